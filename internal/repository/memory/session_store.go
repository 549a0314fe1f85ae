package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/counsel-api/internal/models"
	"github.com/harentsoaR/counsel-api/internal/repository"
)

// SessionStore serialises every write behind one mutex, which makes
// CreateIfFree's check-then-insert atomic.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[primitive.ObjectID]models.Session
	// byCounsellor indexes session ids so the overlap scan stays per counsellor.
	byCounsellor map[primitive.ObjectID][]primitive.ObjectID
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions:     make(map[primitive.ObjectID]models.Session),
		byCounsellor: make(map[primitive.ObjectID][]primitive.ObjectID),
	}
}

func (s *SessionStore) CreateIfFree(_ context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.byCounsellor[sess.CounsellorID] {
		existing := s.sessions[id]
		if existing.Status.Active() && existing.Slot.Overlaps(sess.Slot) {
			return repository.ErrSlotTaken
		}
	}

	if sess.ID.IsZero() {
		sess.ID = primitive.NewObjectID()
	}
	s.sessions[sess.ID] = *sess
	s.byCounsellor[sess.CounsellorID] = append(s.byCounsellor[sess.CounsellorID], sess.ID)
	return nil
}

func (s *SessionStore) GetByID(_ context.Context, id primitive.ObjectID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sess, nil
}

func (s *SessionStore) List(_ context.Context, f repository.SessionFilter) ([]models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Session
	for _, sess := range s.sessions {
		if matchSession(sess, f) {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot.Start.Before(out[j].Slot.Start) })
	return out, nil
}

func (s *SessionStore) CompareAndSetStatus(_ context.Context, id primitive.ObjectID, from, to models.SessionStatus, at time.Time) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if sess.Status != from {
		return nil, repository.ErrStatusChanged
	}
	sess.Status = to
	sess.UpdatedAt = at
	s.sessions[id] = sess
	return &sess, nil
}

func matchSession(sess models.Session, f repository.SessionFilter) bool {
	if f.ClientID != nil && sess.ClientID != *f.ClientID {
		return false
	}
	if f.CounsellorID != nil && sess.CounsellorID != *f.CounsellorID {
		return false
	}
	if f.Status != "" && sess.Status != f.Status {
		return false
	}
	if !f.From.IsZero() && sess.Slot.Start.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !sess.Slot.Start.Before(f.To) {
		return false
	}
	return true
}
