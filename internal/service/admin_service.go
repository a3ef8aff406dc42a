package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/framehq/deskbook/internal/domain"
	"github.com/framehq/deskbook/internal/repository"
	"github.com/framehq/deskbook/internal/security"
	"github.com/framehq/deskbook/pkg/config"
	"github.com/framehq/deskbook/pkg/events"
	"github.com/framehq/deskbook/pkg/logger"
)

type CreateUserResult struct {
	User         *domain.SafeUser `json:"user"`
	TempPassword string           `json:"temp_password"`
	ExpiresAt    time.Time        `json:"temp_password_expires_at"`
}

type AdminService interface {
	CreateUser(ctx context.Context, actor *domain.User, req *domain.CreateUserRequest, ipAddress string) (*CreateUserResult, error)
	ResetPassword(ctx context.Context, actor *domain.User, userID, ipAddress string) (*CreateUserResult, error)
	UnlockAccount(ctx context.Context, actor *domain.User, userID, ipAddress string) error
	SetUserActive(ctx context.Context, actor *domain.User, userID string, active bool, ipAddress string) (*domain.SafeUser, error)
	ListUsers(ctx context.Context, limit, offset int) ([]domain.SafeUser, error)
	ListAuditLog(ctx context.Context, action string, limit, offset int) ([]domain.AuditEntry, error)
}

type adminService struct {
	userRepo  repository.UserRepository
	tempRepo  repository.TempPasswordRepository
	auditRepo repository.AuditRepository
	sessions  SessionService
	eventBus  events.EventBus
	config    *config.Config
	now       func() time.Time
}

func NewAdminService(
	userRepo repository.UserRepository,
	tempRepo repository.TempPasswordRepository,
	auditRepo repository.AuditRepository,
	sessions SessionService,
	eventBus events.EventBus,
	config *config.Config,
) AdminService {
	return &adminService{
		userRepo:  userRepo,
		tempRepo:  tempRepo,
		auditRepo: auditRepo,
		sessions:  sessions,
		eventBus:  eventBus,
		config:    config,
		now:       time.Now,
	}
}

func (s *adminService) audit(ctx context.Context, userID *string, action string, details map[string]any, ipAddress string) {
	if err := s.auditRepo.Insert(ctx, userID, action, details, ipAddress); err != nil {
		logger.ErrorContext(ctx, "Failed to write audit entry", "error", err, "action", action)
	}
}

// CreateUser provisions an account with a one-time temporary password that
// the admin hands to the new user out of band. The account's primary hash
// is seeded from a random credential nobody knows, so the only way in is
// the temporary password, and that path forces an immediate change.
func (s *adminService) CreateUser(ctx context.Context, actor *domain.User, req *domain.CreateUserRequest, ipAddress string) (*CreateUserResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	discard, err := security.GenerateTempPassword()
	if err != nil {
		return nil, fmt.Errorf("failed to generate placeholder credential: %w", err)
	}
	placeholderHash, err := security.HashPassword(discard, s.config.Auth.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash placeholder credential: %w", err)
	}

	user, err := s.userRepo.Create(ctx, req.Username, req.DisplayName, placeholderHash, req.Role, true)
	if err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, domain.ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	tempPassword, expiresAt, err := s.issueTempPassword(ctx, user.ID, actor.ID)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, &actor.ID, domain.AuditCreateUser, map[string]any{"target_user_id": user.ID, "username": user.Username, "role": user.Role}, ipAddress)

	if err := s.eventBus.Publish(ctx, events.UserCreated, events.UserCreatedEvent{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		CreatedBy: actor.ID,
		CreatedAt: user.CreatedAt,
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish user created event", "error", err, "user_id", user.ID)
	}

	return &CreateUserResult{
		User:         user.ToSafeUser(),
		TempPassword: tempPassword,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *adminService) issueTempPassword(ctx context.Context, userID, createdBy string) (string, time.Time, error) {
	tempPassword, err := security.GenerateTempPassword()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate temporary password: %w", err)
	}
	hash, err := security.HashPassword(tempPassword, s.config.Auth.BcryptCost)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to hash temporary password: %w", err)
	}

	expiresAt := s.now().Add(s.config.Auth.TempPasswordTTL)
	if _, err := s.tempRepo.Create(ctx, userID, hash, createdBy, expiresAt); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to store temporary password: %w", err)
	}
	return tempPassword, expiresAt, nil
}

// ResetPassword issues a fresh temporary password for an existing account.
// Earlier unused temporary passwords stay valid until they expire; the
// newest is tried first at login. The primary credential is untouched so
// a reset requested in error does not lock the legitimate holder out.
func (s *adminService) ResetPassword(ctx context.Context, actor *domain.User, userID, ipAddress string) (*CreateUserResult, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}

	tempPassword, expiresAt, err := s.issueTempPassword(ctx, user.ID, actor.ID)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.SetMustChangePassword(ctx, user.ID, true); err != nil {
		return nil, fmt.Errorf("failed to flag password change: %w", err)
	}
	user.MustChangePassword = true

	if _, err := s.sessions.RevokeAll(ctx, user.ID); err != nil {
		logger.ErrorContext(ctx, "Failed to revoke sessions after password reset", "error", err, "user_id", user.ID)
	}

	s.audit(ctx, &actor.ID, domain.AuditResetPassword, map[string]any{"target_user_id": user.ID}, ipAddress)

	if err := s.eventBus.Publish(ctx, events.UserPasswordReset, events.UserPasswordResetEvent{
		UserID:  user.ID,
		ResetBy: actor.ID,
		ResetAt: s.now(),
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish password reset event", "error", err, "user_id", user.ID)
	}

	return &CreateUserResult{
		User:         user.ToSafeUser(),
		TempPassword: tempPassword,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *adminService) UnlockAccount(ctx context.Context, actor *domain.User, userID, ipAddress string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return domain.ErrNotFound
	}

	if err := s.userRepo.Unlock(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to unlock account: %w", err)
	}

	s.audit(ctx, &actor.ID, domain.AuditUnlockAccount, map[string]any{"target_user_id": user.ID}, ipAddress)
	return nil
}

// SetUserActive enables or disables an account. Disabling revokes every
// live session immediately; the validation path also rejects sessions of
// inactive users, so a revoke that partially fails still cannot leak access.
func (s *adminService) SetUserActive(ctx context.Context, actor *domain.User, userID string, active bool, ipAddress string) (*domain.SafeUser, error) {
	if actor.ID == userID && !active {
		return nil, domain.NewValidationError("user_id", "you cannot disable your own account")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}

	if _, err := s.userRepo.SetActive(ctx, user.ID, active); err != nil {
		return nil, fmt.Errorf("failed to update account state: %w", err)
	}
	user.IsActive = active

	action := domain.AuditEnableUser
	if !active {
		action = domain.AuditDisableUser
		if _, err := s.sessions.RevokeAll(ctx, user.ID); err != nil {
			logger.ErrorContext(ctx, "Failed to revoke sessions for disabled user", "error", err, "user_id", user.ID)
		}
	}

	s.audit(ctx, &actor.ID, action, map[string]any{"target_user_id": user.ID}, ipAddress)
	return user.ToSafeUser(), nil
}

func (s *adminService) ListUsers(ctx context.Context, limit, offset int) ([]domain.SafeUser, error) {
	users, err := s.userRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	safe := make([]domain.SafeUser, 0, len(users))
	for i := range users {
		safe = append(safe, *users[i].ToSafeUser())
	}
	return safe, nil
}

func (s *adminService) ListAuditLog(ctx context.Context, action string, limit, offset int) ([]domain.AuditEntry, error) {
	entries, err := s.auditRepo.List(ctx, action, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit log: %w", err)
	}
	return entries, nil
}
