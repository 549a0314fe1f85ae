package memory

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/counsel-api/internal/models"
)

type EmergencyStore struct {
	mu       sync.RWMutex
	requests []models.EmergencyRequest
}

func NewEmergencyStore() *EmergencyStore {
	return &EmergencyStore{}
}

func (s *EmergencyStore) Create(_ context.Context, e *models.EmergencyRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	s.requests = append(s.requests, *e)
	return nil
}

func (s *EmergencyStore) List(_ context.Context) ([]models.EmergencyRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.EmergencyRequest, 0, len(s.requests))
	for i := len(s.requests) - 1; i >= 0; i-- {
		out = append(out, s.requests[i])
	}
	return out, nil
}
