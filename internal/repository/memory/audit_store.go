package memory

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/counsel-api/internal/models"
	"github.com/harentsoaR/counsel-api/internal/repository"
)

type AuditStore struct {
	mu      sync.RWMutex
	entries []models.AuditLog
}

func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) Append(_ context.Context, l *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.ID.IsZero() {
		l.ID = primitive.NewObjectID()
	}
	s.entries = append(s.entries, *l)
	return nil
}

// List returns the newest entries first.
func (s *AuditStore) List(_ context.Context, f repository.AuditFilter) ([]models.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.AuditLog{}
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if f.ActorID != nil && e.ActorID != *f.ActorID {
			continue
		}
		if f.SubjectID != nil && e.SubjectID != *f.SubjectID {
			continue
		}
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}
