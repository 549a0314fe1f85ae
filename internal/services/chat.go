package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/counsel-api/internal/broker"
	"github.com/harentsoaR/counsel-api/internal/models"
	"github.com/harentsoaR/counsel-api/internal/repository"
)

const maxMessageLength = 4000

type ChatService struct {
	chat     repository.ChatRepository
	sessions repository.SessionRepository
	profiles repository.ProfileRepository
	broker   broker.Broker
	audit    *AuditService
	logger   *zap.Logger
	salt     string
	now      func() time.Time
}

func NewChatService(
	chat repository.ChatRepository,
	sessions repository.SessionRepository,
	profiles repository.ProfileRepository,
	b broker.Broker,
	audit *AuditService,
	logger *zap.Logger,
	salt string,
) *ChatService {
	return &ChatService{
		chat:     chat,
		sessions: sessions,
		profiles: profiles,
		broker:   b,
		audit:    audit,
		logger:   logger,
		salt:     salt,
		now:      time.Now,
	}
}

// CreateRoom opens the room for a session, or returns the one it already has.
func (s *ChatService) CreateRoom(ctx context.Context, actor models.Actor, sessionID primitive.ObjectID, anonymous bool) (*models.ChatRoom, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: session", ErrNotFound)
		}
		return nil, err
	}
	if actor.Role != models.RoleAdmin && !sess.HasParticipant(actor.UserID) {
		return nil, ErrUnauthorized
	}

	if existing, err := s.chat.GetRoomBySession(ctx, sessionID); err == nil {
		return existing, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if sess.Status == models.StatusCancelled {
		return nil, invalidInput("cannot open a chat for a cancelled session")
	}

	room := &models.ChatRoom{
		ID:             primitive.NewObjectID(),
		SessionID:      sessionID,
		ParticipantIDs: []primitive.ObjectID{sess.ClientID, sess.CounsellorID},
		Anonymous:      anonymous,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.chat.CreateRoom(ctx, room); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost a race with the other participant.
			return s.chat.GetRoomBySession(ctx, sessionID)
		}
		return nil, fmt.Errorf("create chat room: %w", err)
	}

	s.audit.Record(ctx, actor.UserID, ActionChatRoomOpened, room.ID)
	return room, nil
}

// PostMessage stores the message and then publishes it to live subscribers.
func (s *ChatService) PostMessage(ctx context.Context, actor models.Actor, roomID primitive.ObjectID, body string) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, invalidInput("message body is required")
	}
	if utf8.RuneCountInString(body) > maxMessageLength {
		return nil, invalidInput("message body exceeds %d characters", maxMessageLength)
	}

	room, err := s.room(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(actor.UserID) {
		return nil, ErrUnauthorized
	}

	msg := &models.Message{
		ID:     primitive.NewObjectID(),
		RoomID: roomID,
		Body:   body,
		// Mongo keeps milliseconds; truncating keeps both stores' `after` cursors equal.
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}

	anonymous, err := s.sendsAnonymously(ctx, actor, room)
	if err != nil {
		return nil, err
	}
	if anonymous {
		msg.SenderAlias = s.Pseudonym(roomID, actor.UserID)
	} else {
		sender := actor.UserID
		msg.SenderID = &sender
	}

	if err := s.chat.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}
	if err := s.broker.Publish(ctx, roomID.Hex(), *msg); err != nil {
		// Subscribers catch up from history, so a lost publish is not fatal.
		s.logger.Warn("chat publish failed", zap.String("roomId", roomID.Hex()), zap.Error(err))
	}
	return msg, nil
}

func (s *ChatService) sendsAnonymously(ctx context.Context, actor models.Actor, room *models.ChatRoom) (bool, error) {
	if actor.Role != models.RoleClient {
		return false, nil
	}
	if room.Anonymous {
		return true, nil
	}
	p, err := s.profiles.GetClient(ctx, actor.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load client profile: %w", err)
	}
	return p.AnonymousModeEnabled, nil
}

// Pseudonym is stable per (salt, room, user) and reveals neither ID.
func (s *ChatService) Pseudonym(roomID, userID primitive.ObjectID) string {
	name := s.salt + ":" + roomID.Hex() + ":" + userID.Hex()
	return "anon-" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()[:8]
}

// ListMessages returns every message created strictly after `after`, oldest
// first. Messages sharing a millisecond keep their posting order.
func (s *ChatService) ListMessages(ctx context.Context, actor models.Actor, roomID primitive.ObjectID, after time.Time) ([]models.Message, error) {
	if _, err := s.authorizeRead(ctx, actor, roomID); err != nil {
		return nil, err
	}
	return s.chat.ListMessages(ctx, roomID, after)
}

// Subscribe delivers messages posted from now on until cancel is called or
// ctx ends.
func (s *ChatService) Subscribe(ctx context.Context, actor models.Actor, roomID primitive.ObjectID) (<-chan models.Message, func(), error) {
	if _, err := s.authorizeRead(ctx, actor, roomID); err != nil {
		return nil, nil, err
	}
	return s.broker.Subscribe(ctx, roomID.Hex())
}

// Follow replays history after `after` and then streams live messages,
// each exactly once. The channel closes when ctx ends or the broker drops
// the subscription.
func (s *ChatService) Follow(ctx context.Context, actor models.Actor, roomID primitive.ObjectID, after time.Time) (<-chan models.Message, error) {
	live, cancel, err := s.Subscribe(ctx, actor, roomID)
	if err != nil {
		return nil, err
	}
	// Subscribed first, so anything posted during the backlog read arrives live.
	backlog, err := s.chat.ListMessages(ctx, roomID, after)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("load chat history: %w", err)
	}

	out := make(chan models.Message)
	go func() {
		defer close(out)
		defer cancel()

		seen := make(map[primitive.ObjectID]struct{}, len(backlog))
		emit := func(m models.Message) bool {
			if _, dup := seen[m.ID]; dup || !m.CreatedAt.After(after) {
				return true
			}
			seen[m.ID] = struct{}{}
			select {
			case out <- m:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for _, m := range backlog {
			if !emit(m) {
				return
			}
		}
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-live:
				if !ok || !emit(m) {
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *ChatService) authorizeRead(ctx context.Context, actor models.Actor, roomID primitive.ObjectID) (*models.ChatRoom, error) {
	room, err := s.room(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && !room.HasParticipant(actor.UserID) {
		return nil, ErrUnauthorized
	}
	return room, nil
}

func (s *ChatService) room(ctx context.Context, id primitive.ObjectID) (*models.ChatRoom, error) {
	room, err := s.chat.GetRoom(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: chat room", ErrNotFound)
		}
		return nil, err
	}
	return room, nil
}
