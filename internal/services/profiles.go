package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/counsel-api/internal/models"
	"github.com/harentsoaR/counsel-api/internal/repository"
)

type ProfileService struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	sessions repository.SessionRepository
	audit    *AuditService
	now      func() time.Time
}

func NewProfileService(
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	sessions repository.SessionRepository,
	audit *AuditService,
) *ProfileService {
	return &ProfileService{users: users, profiles: profiles, sessions: sessions, audit: audit, now: time.Now}
}

func (s *ProfileService) ListCounsellors(ctx context.Context, f repository.CounsellorFilter) ([]models.CounsellorProfile, error) {
	f.Specialty = strings.ToLower(strings.TrimSpace(f.Specialty))
	f.Language = strings.ToLower(strings.TrimSpace(f.Language))
	return s.profiles.ListCounsellors(ctx, f)
}

func (s *ProfileService) GetCounsellor(ctx context.Context, id primitive.ObjectID) (*models.CounsellorProfile, error) {
	p, err := s.profiles.GetCounsellor(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: counsellor", ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

// CounsellorUpdate carries the fields to change; nil leaves a field as is.
type CounsellorUpdate struct {
	Specialties  *[]string
	Languages    *[]string
	Bio          *string
	Level        *string
	Availability *[]models.TimeSlot
}

// UpdateCounsellor is open to the counsellor themself and to admins.
// Existing sessions are left alone when availability shrinks.
func (s *ProfileService) UpdateCounsellor(ctx context.Context, actor models.Actor, id primitive.ObjectID, in CounsellorUpdate) (*models.CounsellorProfile, error) {
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleCounsellor:
		if !actor.Is(id) {
			return nil, ErrUnauthorized
		}
	default:
		return nil, ErrUnauthorized
	}

	user, err := s.requireUser(ctx, id, models.RoleCounsellor)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetCounsellor(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		profile = &models.CounsellorProfile{UserID: id, FullName: user.FullName}
	} else if err != nil {
		return nil, err
	}

	if in.Specialties != nil {
		profile.Specialties = models.NormalizeTags(*in.Specialties)
	}
	if in.Languages != nil {
		profile.Languages = models.NormalizeTags(*in.Languages)
	}
	if in.Bio != nil {
		profile.Bio = strings.TrimSpace(*in.Bio)
	}
	if in.Level != nil {
		profile.Level = strings.TrimSpace(*in.Level)
	}
	if in.Availability != nil {
		slots, err := models.NormalizeAvailability(*in.Availability)
		if err != nil {
			return nil, invalidInput("%v", err)
		}
		profile.Availability = slots
	}
	profile.UpdatedAt = s.now().UTC()

	if err := s.profiles.UpsertCounsellor(ctx, profile); err != nil {
		return nil, fmt.Errorf("save counsellor profile: %w", err)
	}
	s.audit.Record(ctx, actor.UserID, ActionCounsellorUpdated, id)
	return profile, nil
}

// GetClient is open to the client, admins, and counsellors who have a
// session with the client.
func (s *ProfileService) GetClient(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*models.ClientProfile, error) {
	if _, err := s.requireUser(ctx, id, models.RoleClient); err != nil {
		return nil, err
	}

	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleClient:
		if !actor.Is(id) {
			return nil, ErrUnauthorized
		}
	case models.RoleCounsellor:
		counsellorID := actor.UserID
		sessions, err := s.sessions.List(ctx, repository.SessionFilter{ClientID: &id, CounsellorID: &counsellorID})
		if err != nil {
			return nil, err
		}
		if len(sessions) == 0 {
			return nil, ErrUnauthorized
		}
	default:
		return nil, ErrUnauthorized
	}

	p, err := s.profiles.GetClient(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return &models.ClientProfile{UserID: id}, nil
	}
	return p, err
}

type ClientUpdate struct {
	Bio                  *string
	Address              *string
	Preferences          *string
	AnonymousModeEnabled *bool
}

func (s *ProfileService) UpdateClient(ctx context.Context, actor models.Actor, id primitive.ObjectID, in ClientUpdate) (*models.ClientProfile, error) {
	if actor.Role != models.RoleAdmin && !actor.Is(id) {
		return nil, ErrUnauthorized
	}
	if _, err := s.requireUser(ctx, id, models.RoleClient); err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetClient(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		profile = &models.ClientProfile{UserID: id}
	} else if err != nil {
		return nil, err
	}

	if in.Bio != nil {
		profile.Bio = strings.TrimSpace(*in.Bio)
	}
	if in.Address != nil {
		profile.Address = strings.TrimSpace(*in.Address)
	}
	if in.Preferences != nil {
		profile.Preferences = strings.TrimSpace(*in.Preferences)
	}
	if in.AnonymousModeEnabled != nil {
		profile.AnonymousModeEnabled = *in.AnonymousModeEnabled
	}
	profile.UpdatedAt = s.now().UTC()

	if err := s.profiles.UpsertClient(ctx, profile); err != nil {
		return nil, fmt.Errorf("save client profile: %w", err)
	}
	s.audit.Record(ctx, actor.UserID, ActionClientUpdated, id)
	return profile, nil
}

func (s *ProfileService) requireUser(ctx context.Context, id primitive.ObjectID, role models.Role) (*models.User, error) {
	return requireUserWithRole(ctx, s.users, id, role)
}

// requireUserWithRole loads a user and checks its role.
func requireUserWithRole(ctx context.Context, users repository.UserRepository, id primitive.ObjectID, role models.Role) (*models.User, error) {
	u, err := users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, id.Hex())
		}
		return nil, err
	}
	if u.Role != role {
		return nil, fmt.Errorf("%w: user %s is not a %s", ErrInvalidRole, id.Hex(), role)
	}
	return u, nil
}
