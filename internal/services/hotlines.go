package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/harentsoaR/counsel-api/internal/cache"
	"github.com/harentsoaR/counsel-api/internal/models"
)

const hotlineCacheKey = "hotlines"

// DefaultHotlines is served whenever no remote directory is configured or
// it cannot be reached.
var DefaultHotlines = []models.Hotline{
	{Name: "SADAG Mental Health Line", Phone: "0800 567 567", Description: "South African Depression and Anxiety Group", Hours: "24/7"},
	{Name: "SADAG Suicide Crisis Line", Phone: "0800 567 567", Description: "Suicide crisis counselling", Hours: "24/7"},
	{Name: "Substance Abuse Helpline", Phone: "0800 12 13 14", Description: "SANCA and SADAG substance abuse line", Hours: "24/7"},
	{Name: "Lifeline South Africa", Phone: "0861 322 322", Description: "Trauma and crisis counselling", Hours: "24/7"},
	{Name: "Childline South Africa", Phone: "116", Description: "Support for children and young people", Hours: "24/7"},
	{Name: "GBV Command Centre", Phone: "0800 428 428", Description: "Gender-based violence support", Hours: "24/7"},
}

type HotlineService struct {
	cache     cache.Cache
	sourceURL string
	ttl       time.Duration
	client    *http.Client
	logger    *zap.Logger
}

func NewHotlineService(c cache.Cache, sourceURL string, ttl time.Duration, logger *zap.Logger) *HotlineService {
	return &HotlineService{
		cache:     c,
		sourceURL: sourceURL,
		ttl:       ttl,
		client:    &http.Client{Timeout: 5 * time.Second},
		logger:    logger,
	}
}

// List never fails: cache, then the remote directory, then the built-in list.
func (s *HotlineService) List(ctx context.Context) []models.Hotline {
	if s.sourceURL == "" {
		return cloneHotlines(DefaultHotlines)
	}

	if raw, err := s.cache.Get(ctx, hotlineCacheKey); err == nil {
		var cached []models.Hotline
		if err := json.Unmarshal(raw, &cached); err == nil && len(cached) > 0 {
			return cached
		}
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("hotline cache read failed", zap.Error(err))
	}

	fetched, err := s.fetch(ctx)
	if err != nil {
		s.logger.Warn("hotline directory unavailable, using built-in list", zap.Error(err))
		return cloneHotlines(DefaultHotlines)
	}

	if raw, err := json.Marshal(fetched); err == nil {
		if err := s.cache.Set(ctx, hotlineCacheKey, raw, s.ttl); err != nil {
			s.logger.Warn("hotline cache write failed", zap.Error(err))
		}
	}
	return fetched
}

func (s *HotlineService) fetch(ctx context.Context) ([]models.Hotline, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.sourceURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hotline directory returned %s", resp.Status)
	}

	var out []models.Hotline
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode hotline directory: %w", err)
	}
	valid := out[:0]
	for _, h := range out {
		if h.Name != "" && h.Phone != "" {
			valid = append(valid, h)
		}
	}
	if len(valid) == 0 {
		return nil, errors.New("hotline directory is empty")
	}
	return valid, nil
}

func cloneHotlines(in []models.Hotline) []models.Hotline {
	return append([]models.Hotline(nil), in...)
}
