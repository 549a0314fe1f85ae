package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/counsel-api/internal/models"
	"github.com/harentsoaR/counsel-api/internal/repository"
)

const (
	ActionUserRegistered     = "user.registered"
	ActionCounsellorUpdated  = "counsellor.updated"
	ActionClientUpdated      = "client.updated"
	ActionSessionBooked      = "session.booked"
	ActionSessionConfirmed   = "session.confirmed"
	ActionSessionCancelled   = "session.cancelled"
	ActionSessionCompleted   = "session.completed"
	ActionReviewSubmitted    = "review.submitted"
	ActionChatRoomOpened     = "chatroom.opened"
	ActionEmergencyRequested = "emergency.requested"
)

type AuditService struct {
	repo   repository.AuditRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewAuditService(repo repository.AuditRepository, logger *zap.Logger) *AuditService {
	return &AuditService{repo: repo, logger: logger, now: time.Now}
}

// Record appends an entry. A failed write is logged and swallowed: the
// operation being audited has already happened.
func (s *AuditService) Record(ctx context.Context, actorID primitive.ObjectID, action string, subjectID primitive.ObjectID) {
	entry := &models.AuditLog{
		ActorID:   actorID,
		Action:    action,
		SubjectID: subjectID,
		Timestamp: s.now().UTC(),
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		s.logger.Error("audit write failed",
			zap.String("action", action),
			zap.String("actorId", actorID.Hex()),
			zap.String("subjectId", subjectID.Hex()),
			zap.Error(err))
	}
}

func (s *AuditService) List(ctx context.Context, actor models.Actor, f repository.AuditFilter) ([]models.AuditLog, error) {
	if actor.Role != models.RoleAdmin {
		return nil, ErrUnauthorized
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	return s.repo.List(ctx, f)
}
