package memory

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/counsel-api/internal/models"
	"github.com/harentsoaR/counsel-api/internal/repository"
)

type ReviewStore struct {
	mu        sync.RWMutex
	bySession map[primitive.ObjectID]models.Review
}

func NewReviewStore() *ReviewStore {
	return &ReviewStore{bySession: make(map[primitive.ObjectID]models.Review)}
}

func (s *ReviewStore) Create(_ context.Context, r *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bySession[r.SessionID]; exists {
		return repository.ErrDuplicate
	}
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	s.bySession[r.SessionID] = *r
	return nil
}

func (s *ReviewStore) GetBySession(_ context.Context, sessionID primitive.ObjectID) (*models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.bySession[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (s *ReviewStore) ListByCounsellor(_ context.Context, counsellorID primitive.ObjectID) ([]models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Review
	for _, r := range s.bySession {
		if r.CounsellorID == counsellorID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
