package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/counsel-api/internal/models"
	"github.com/harentsoaR/counsel-api/internal/repository"
)

// BookingService owns every write to sessions. Status only moves through
// ConfirmSession, CancelSession and CompleteSession.
type BookingService struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	sessions repository.SessionRepository
	audit    *AuditService
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewBookingService(
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	sessions repository.SessionRepository,
	audit *AuditService,
	notifier Notifier,
	logger *zap.Logger,
) *BookingService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &BookingService{
		users:    users,
		profiles: profiles,
		sessions: sessions,
		audit:    audit,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

type BookingRequest struct {
	ClientID     primitive.ObjectID
	CounsellorID primitive.ObjectID
	Slot         models.TimeSlot
}

// BookSession creates a requested session if the counsellor publishes the
// slot and no active session of theirs overlaps it.
func (s *BookingService) BookSession(ctx context.Context, actor models.Actor, req BookingRequest) (*models.Session, error) {
	if err := req.Slot.Validate(); err != nil {
		return nil, invalidInput("%v", err)
	}
	// Mongo keeps milliseconds; truncating keeps the returned session equal to the stored one.
	slot := req.Slot.UTC().Truncate(time.Millisecond)

	if actor.Role != models.RoleAdmin && !actor.Is(req.ClientID) {
		return nil, ErrUnauthorized
	}

	if _, err := requireUserWithRole(ctx, s.users, req.ClientID, models.RoleClient); err != nil {
		return nil, err
	}
	if _, err := requireUserWithRole(ctx, s.users, req.CounsellorID, models.RoleCounsellor); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if !slot.Start.After(now) {
		return nil, invalidInput("sessions cannot be booked in the past")
	}

	profile, err := s.profiles.GetCounsellor(ctx, req.CounsellorID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("load counsellor availability: %w", err)
	}
	if profile == nil || !profile.Offers(slot) {
		return nil, fmt.Errorf("%w: counsellor is not available at this time", ErrSlotUnavailable)
	}

	session := &models.Session{
		ID:           primitive.NewObjectID(),
		ClientID:     req.ClientID,
		CounsellorID: req.CounsellorID,
		Slot:         slot,
		Status:       models.StatusRequested,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.sessions.CreateIfFree(ctx, session); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, fmt.Errorf("%w: this time slot is already booked", ErrSlotUnavailable)
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.audit.Record(ctx, actor.UserID, ActionSessionBooked, session.ID)
	s.notifier.SessionChanged(ctx, session)
	s.logger.Info("session booked",
		zap.String("sessionId", session.ID.Hex()),
		zap.String("counsellorId", session.CounsellorID.Hex()),
		zap.Time("start", session.Slot.Start))
	return session, nil
}

func (s *BookingService) ConfirmSession(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*models.Session, error) {
	return s.transition(ctx, actor, id, models.StatusConfirmed)
}

func (s *BookingService) CancelSession(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*models.Session, error) {
	return s.transition(ctx, actor, id, models.StatusCancelled)
}

func (s *BookingService) CompleteSession(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*models.Session, error) {
	return s.transition(ctx, actor, id, models.StatusCompleted)
}

// ApplyStatus routes a requested target status to its transition.
func (s *BookingService) ApplyStatus(ctx context.Context, actor models.Actor, id primitive.ObjectID, status models.SessionStatus) (*models.Session, error) {
	switch status {
	case models.StatusConfirmed:
		return s.ConfirmSession(ctx, actor, id)
	case models.StatusCancelled:
		return s.CancelSession(ctx, actor, id)
	case models.StatusCompleted:
		return s.CompleteSession(ctx, actor, id)
	case models.StatusRequested:
		return nil, fmt.Errorf("%w: a session cannot return to %s", ErrInvalidTransition, status)
	default:
		return nil, invalidInput("unknown status %q", status)
	}
}

func (s *BookingService) transition(ctx context.Context, actor models.Actor, id primitive.ObjectID, to models.SessionStatus) (*models.Session, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !mayMoveTo(actor, current, to) {
		return nil, ErrUnauthorized
	}
	if !models.CanTransition(current.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, to)
	}

	updated, err := s.sessions.CompareAndSetStatus(ctx, id, current.Status, to, s.now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStatusChanged):
			return nil, fmt.Errorf("%w: session changed concurrently", ErrInvalidTransition)
		case errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("%w: session", ErrNotFound)
		default:
			return nil, fmt.Errorf("update session: %w", err)
		}
	}

	s.audit.Record(ctx, actor.UserID, transitionAction(to), id)
	s.notifier.SessionChanged(ctx, updated)
	s.logger.Info("session status changed",
		zap.String("sessionId", id.Hex()),
		zap.String("from", string(current.Status)),
		zap.String("to", string(to)),
		zap.String("actorId", actor.UserID.Hex()))
	return updated, nil
}

// mayMoveTo: counsellors confirm and complete their own sessions, either
// participant may cancel, admins may do anything.
func mayMoveTo(actor models.Actor, s *models.Session, to models.SessionStatus) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleCounsellor:
		return actor.Is(s.CounsellorID)
	case models.RoleClient:
		return to == models.StatusCancelled && actor.Is(s.ClientID)
	default:
		return false
	}
}

func transitionAction(to models.SessionStatus) string {
	switch to {
	case models.StatusConfirmed:
		return ActionSessionConfirmed
	case models.StatusCancelled:
		return ActionSessionCancelled
	case models.StatusCompleted:
		return ActionSessionCompleted
	default:
		return "session." + string(to)
	}
}

func (s *BookingService) GetSession(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*models.Session, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && !sess.HasParticipant(actor.UserID) {
		return nil, ErrUnauthorized
	}
	return sess, nil
}

type SessionQuery struct {
	ClientID     *primitive.ObjectID
	CounsellorID *primitive.ObjectID
	Status       models.SessionStatus
	From         time.Time
	To           time.Time
}

// ListSessions narrows the query to the actor's own sessions unless the
// actor is an admin.
func (s *BookingService) ListSessions(ctx context.Context, actor models.Actor, q SessionQuery) ([]models.Session, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, invalidInput("unknown status %q", q.Status)
	}
	if !q.From.IsZero() && !q.To.IsZero() && !q.To.After(q.From) {
		return nil, invalidInput("to must be after from")
	}

	f := repository.SessionFilter{
		ClientID:     q.ClientID,
		CounsellorID: q.CounsellorID,
		Status:       q.Status,
		From:         q.From,
		To:           q.To,
	}
	self := actor.UserID
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleClient:
		f.ClientID = &self
	case models.RoleCounsellor:
		f.CounsellorID = &self
	default:
		return nil, ErrUnauthorized
	}
	return s.sessions.List(ctx, f)
}

func (s *BookingService) load(ctx context.Context, id primitive.ObjectID) (*models.Session, error) {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: session", ErrNotFound)
		}
		return nil, err
	}
	return sess, nil
}
