// Package repository declares the persistence ports. Implementations live in
// the mongo and memory subpackages.
package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/counsel-api/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	// ErrSlotTaken means an active session of the counsellor overlaps the new one.
	ErrSlotTaken = errors.New("slot overlaps an active session")
	// ErrStatusChanged means a compare-and-set on session status lost.
	ErrStatusChanged = errors.New("session status changed concurrently")
)

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

type CounsellorFilter struct {
	Specialty string
	Language  string
}

type ProfileRepository interface {
	GetCounsellor(ctx context.Context, userID primitive.ObjectID) (*models.CounsellorProfile, error)
	ListCounsellors(ctx context.Context, f CounsellorFilter) ([]models.CounsellorProfile, error)
	UpsertCounsellor(ctx context.Context, p *models.CounsellorProfile) error
	GetClient(ctx context.Context, userID primitive.ObjectID) (*models.ClientProfile, error)
	UpsertClient(ctx context.Context, p *models.ClientProfile) error
}

type SessionFilter struct {
	ClientID     *primitive.ObjectID
	CounsellorID *primitive.ObjectID
	Status       models.SessionStatus
	From         time.Time
	To           time.Time
}

type SessionRepository interface {
	// CreateIfFree inserts s unless an active session of the same counsellor
	// overlaps s.Slot, in which case it returns ErrSlotTaken. The check and the
	// insert are atomic with respect to other CreateIfFree calls.
	CreateIfFree(ctx context.Context, s *models.Session) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Session, error)
	List(ctx context.Context, f SessionFilter) ([]models.Session, error)
	// CompareAndSetStatus moves a session from `from` to `to`. It returns
	// ErrStatusChanged when the stored status is no longer `from`.
	CompareAndSetStatus(ctx context.Context, id primitive.ObjectID, from, to models.SessionStatus, at time.Time) (*models.Session, error)
}

type ReviewRepository interface {
	// Create returns ErrDuplicate if the session already has a review.
	Create(ctx context.Context, r *models.Review) error
	GetBySession(ctx context.Context, sessionID primitive.ObjectID) (*models.Review, error)
	ListByCounsellor(ctx context.Context, counsellorID primitive.ObjectID) ([]models.Review, error)
}

type ChatRepository interface {
	// CreateRoom returns ErrDuplicate if the session already has a room.
	CreateRoom(ctx context.Context, r *models.ChatRoom) error
	GetRoom(ctx context.Context, id primitive.ObjectID) (*models.ChatRoom, error)
	GetRoomBySession(ctx context.Context, sessionID primitive.ObjectID) (*models.ChatRoom, error)
	AppendMessage(ctx context.Context, m *models.Message) error
	// ListMessages returns messages created strictly after `after`, oldest first.
	ListMessages(ctx context.Context, roomID primitive.ObjectID, after time.Time) ([]models.Message, error)
}

type AuditFilter struct {
	ActorID   *primitive.ObjectID
	SubjectID *primitive.ObjectID
	Action    string
	Limit     int
}

type AuditRepository interface {
	Append(ctx context.Context, l *models.AuditLog) error
	List(ctx context.Context, f AuditFilter) ([]models.AuditLog, error)
}

type EmergencyRepository interface {
	Create(ctx context.Context, e *models.EmergencyRequest) error
	List(ctx context.Context) ([]models.EmergencyRequest, error)
}

// Store bundles every repository a backend provides.
type Store struct {
	Users       UserRepository
	Profiles    ProfileRepository
	Sessions    SessionRepository
	Reviews     ReviewRepository
	Chat        ChatRepository
	Audit       AuditRepository
	Emergencies EmergencyRepository
}
