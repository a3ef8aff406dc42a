package service

import (
	"context"
	"fmt"
	"time"

	"github.com/framehq/deskbook/internal/domain"
	"github.com/framehq/deskbook/internal/repository"
	"github.com/framehq/deskbook/internal/security"
	"github.com/framehq/deskbook/pkg/config"
	"github.com/framehq/deskbook/pkg/logger"
)

type SessionService interface {
	Create(ctx context.Context, userID, ipAddress, userAgent string) (string, *domain.Session, error)
	Validate(ctx context.Context, token string) (*domain.User, *domain.Session, error)
	Revoke(ctx context.Context, token string) error
	RevokeAll(ctx context.Context, userID string) (int64, error)
	CleanupExpired(ctx context.Context) (int64, error)
}

type sessionService struct {
	sessionRepo repository.SessionRepository
	userRepo    repository.UserRepository
	config      *config.Config
	now         func() time.Time
}

func NewSessionService(
	sessionRepo repository.SessionRepository,
	userRepo repository.UserRepository,
	config *config.Config,
) SessionService {
	return &sessionService{
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		config:      config,
		now:         time.Now,
	}
}

// Create issues a new session and returns the plaintext token. Only the
// SHA-256 hash is stored; the plaintext is never recoverable afterwards.
func (s *sessionService) Create(ctx context.Context, userID, ipAddress, userAgent string) (string, *domain.Session, error) {
	token, err := security.GenerateSessionToken()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	expiresAt := s.now().Add(s.config.Auth.SessionDuration)
	session, err := s.sessionRepo.Create(ctx, userID, security.HashToken(token), expiresAt, ipAddress, userAgent)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create session: %w", err)
	}

	return token, session, nil
}

// Validate resolves a plaintext token to its user. Expired sessions are
// deleted on sight. Sessions owned by a deactivated user are rejected but
// left in place so re-enabling the account does not strand the user.
func (s *sessionService) Validate(ctx context.Context, token string) (*domain.User, *domain.Session, error) {
	if token == "" {
		return nil, nil, nil
	}

	session, err := s.sessionRepo.GetByTokenHash(ctx, security.HashToken(token))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up session: %w", err)
	}
	if session == nil {
		return nil, nil, nil
	}

	now := s.now()
	if !session.ExpiresAt.After(now) {
		if err := s.sessionRepo.Delete(ctx, session.ID); err != nil {
			logger.WarnContext(ctx, "Failed to delete expired session", "error", err, "session_id", session.ID)
		}
		return nil, nil, nil
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load session user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, nil, nil
	}

	return user, session, nil
}

func (s *sessionService) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessionRepo.DeleteByTokenHash(ctx, security.HashToken(token)); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

func (s *sessionService) RevokeAll(ctx context.Context, userID string) (int64, error) {
	n, err := s.sessionRepo.DeleteByUserID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return n, nil
}

func (s *sessionService) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.sessionRepo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return n, nil
}
