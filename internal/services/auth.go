package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/counsel-api/internal/models"
	"github.com/harentsoaR/counsel-api/internal/repository"
	"github.com/harentsoaR/counsel-api/internal/utils"
)

const (
	minPasswordLength = 8
	// bcrypt only accepts up to 72 bytes.
	maxPasswordBytes = 72
)

type AuthService struct {
	users      repository.UserRepository
	profiles   repository.ProfileRepository
	tokens     *utils.TokenManager
	bcryptCost int
	audit      *AuditService
	logger     *zap.Logger
	now        func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	tokens *utils.TokenManager,
	bcryptCost int,
	audit *AuditService,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		profiles:   profiles,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		audit:      audit,
		logger:     logger,
		now:        time.Now,
	}
}

type RegisterInput struct {
	FullName string
	Email    string
	Password string
	Role     string
	Phone    string
}

// Register creates a client or counsellor account plus its empty profile.
// Admin accounts cannot be self-registered.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	roleName := in.Role
	if roleName == "" {
		roleName = string(models.RoleClient)
	}
	role, err := models.ParseRole(roleName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRole, err)
	}
	if role == models.RoleAdmin {
		return nil, fmt.Errorf("%w: admin accounts cannot be self-registered", ErrInvalidRole)
	}
	return s.createUser(ctx, in, role)
}

func (s *AuthService) createUser(ctx context.Context, in RegisterInput, role models.Role) (*models.User, error) {
	if strings.TrimSpace(in.FullName) == "" {
		return nil, invalidInput("full name is required")
	}
	if email := strings.TrimSpace(in.Email); !strings.Contains(email, "@") || strings.HasPrefix(email, "@") || strings.HasSuffix(email, "@") {
		return nil, invalidInput("a valid email is required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, invalidInput("password must be at least %d characters", minPasswordLength)
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, invalidInput("password must be at most %d bytes", maxPasswordBytes)
	}

	hashed, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:        primitive.NewObjectID(),
		FullName:  strings.TrimSpace(in.FullName),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Password:  hashed,
		Role:      role,
		Phone:     strings.TrimSpace(in.Phone),
		CreatedAt: s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: an account with this email already exists", ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	switch role {
	case models.RoleCounsellor:
		err = s.profiles.UpsertCounsellor(ctx, &models.CounsellorProfile{
			UserID:       user.ID,
			FullName:     user.FullName,
			Specialties:  []string{},
			Languages:    []string{},
			Availability: []models.TimeSlot{},
			UpdatedAt:    user.CreatedAt,
		})
	case models.RoleClient:
		err = s.profiles.UpsertClient(ctx, &models.ClientProfile{UserID: user.ID, UpdatedAt: user.CreatedAt})
	case models.RoleAdmin:
	}
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	s.audit.Record(ctx, user.ID, ActionUserRegistered, user.ID)
	s.logger.Info("user registered", zap.String("userId", user.ID.Hex()), zap.String("role", string(role)))
	return user, nil
}

// Login returns a signed token for valid credentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("find user: %w", err)
	}
	if !utils.CheckPasswordHash(password, user.Password) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateJWT(user.ID.Hex(), string(user.Role))
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}
	return token, user, nil
}

// EnsureAdmin creates the configured admin account on first start.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	existing, err := s.users.GetByEmail(ctx, strings.ToLower(email))
	if err == nil {
		if existing.Role != models.RoleAdmin {
			return fmt.Errorf("%s is registered with role %s", email, existing.Role)
		}
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("find admin: %w", err)
	}
	_, err = s.createUser(ctx, RegisterInput{FullName: "Administrator", Email: email, Password: password}, models.RoleAdmin)
	return err
}

// GetUser returns the account and whether the actor may see its private fields.
func (s *AuthService) GetUser(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*models.User, bool, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, fmt.Errorf("%w: user", ErrNotFound)
		}
		return nil, false, err
	}
	full := actor.Role == models.RoleAdmin || actor.Is(id)
	return user, full, nil
}
