package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/counsel-api/internal/models"
	"github.com/harentsoaR/counsel-api/internal/repository"
)

const EmergencyStatusOpen = "open"

type EmergencyService struct {
	repo     repository.EmergencyRepository
	hotlines *HotlineService
	audit    *AuditService
	logger   *zap.Logger
	now      func() time.Time
}

func NewEmergencyService(repo repository.EmergencyRepository, hotlines *HotlineService, audit *AuditService, logger *zap.Logger) *EmergencyService {
	return &EmergencyService{repo: repo, hotlines: hotlines, audit: audit, logger: logger, now: time.Now}
}

// RaiseEmergency records a client's request for urgent help and hands back
// the hotlines they can call right away.
func (s *EmergencyService) RaiseEmergency(ctx context.Context, actor models.Actor, details string) (*models.EmergencyRequest, error) {
	if actor.Role != models.RoleClient {
		return nil, fmt.Errorf("%w: only clients can raise emergency requests", ErrInvalidRole)
	}
	details = strings.TrimSpace(details)
	if details == "" {
		return nil, invalidInput("details are required")
	}

	req := &models.EmergencyRequest{
		ID:        primitive.NewObjectID(),
		ClientID:  actor.UserID,
		Details:   details,
		Status:    EmergencyStatusOpen,
		Hotlines:  s.hotlines.List(ctx),
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("store emergency request: %w", err)
	}

	s.audit.Record(ctx, actor.UserID, ActionEmergencyRequested, req.ID)
	s.logger.Warn("emergency request raised", zap.String("requestId", req.ID.Hex()), zap.String("clientId", actor.UserID.Hex()))
	return req, nil
}

func (s *EmergencyService) ListEmergencies(ctx context.Context, actor models.Actor) ([]models.EmergencyRequest, error) {
	if actor.Role != models.RoleAdmin {
		return nil, ErrUnauthorized
	}
	return s.repo.List(ctx)
}
