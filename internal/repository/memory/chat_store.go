package memory

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/counsel-api/internal/models"
	"github.com/harentsoaR/counsel-api/internal/repository"
)

type ChatStore struct {
	mu        sync.RWMutex
	rooms     map[primitive.ObjectID]models.ChatRoom
	bySession map[primitive.ObjectID]primitive.ObjectID
	// messages are appended in creation order per room.
	messages map[primitive.ObjectID][]models.Message
}

func NewChatStore() *ChatStore {
	return &ChatStore{
		rooms:     make(map[primitive.ObjectID]models.ChatRoom),
		bySession: make(map[primitive.ObjectID]primitive.ObjectID),
		messages:  make(map[primitive.ObjectID][]models.Message),
	}
}

func (s *ChatStore) CreateRoom(_ context.Context, r *models.ChatRoom) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bySession[r.SessionID]; exists {
		return repository.ErrDuplicate
	}
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	room := *r
	room.ParticipantIDs = append([]primitive.ObjectID(nil), r.ParticipantIDs...)
	s.rooms[r.ID] = room
	s.bySession[r.SessionID] = r.ID
	return nil
}

func (s *ChatStore) GetRoom(_ context.Context, id primitive.ObjectID) (*models.ChatRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (s *ChatStore) GetRoomBySession(_ context.Context, sessionID primitive.ObjectID) (*models.ChatRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.bySession[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	r := s.rooms[id]
	return &r, nil
}

func (s *ChatStore) AppendMessage(_ context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[m.RoomID]; !ok {
		return repository.ErrNotFound
	}
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	s.messages[m.RoomID] = append(s.messages[m.RoomID], *m)
	return nil
}

func (s *ChatStore) ListMessages(_ context.Context, roomID primitive.ObjectID, after time.Time) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Message{}
	for _, m := range s.messages[roomID] {
		if !m.CreatedAt.After(after) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
