package service

import (
	"context"
	"fmt"
	"time"

	"github.com/framehq/deskbook/internal/domain"
	"github.com/framehq/deskbook/internal/ratelimit"
	"github.com/framehq/deskbook/internal/repository"
	"github.com/framehq/deskbook/internal/security"
	"github.com/framehq/deskbook/pkg/config"
	"github.com/framehq/deskbook/pkg/logger"
)

// dummyHash absorbs a bcrypt comparison when the username does not exist,
// so unknown and known usernames take comparable time to reject.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

type LoginResult struct {
	Token              string           `json:"-"`
	User               *domain.SafeUser `json:"user"`
	MustChangePassword bool             `json:"must_change_password"`
	ExpiresAt          time.Time        `json:"expires_at"`
}

type AuthService interface {
	Login(ctx context.Context, req *domain.LoginRequest, ipAddress, userAgent string) (*LoginResult, error)
	Logout(ctx context.Context, token, userID, ipAddress string) error
	ChangePassword(ctx context.Context, user *domain.User, req *domain.ChangePasswordRequest, ipAddress, userAgent string) (*LoginResult, error)
}

type authService struct {
	userRepo  repository.UserRepository
	tempRepo  repository.TempPasswordRepository
	auditRepo repository.AuditRepository
	sessions  SessionService
	limiter   *ratelimit.Limiter
	config    *config.Config
	now       func() time.Time
}

func NewAuthService(
	userRepo repository.UserRepository,
	tempRepo repository.TempPasswordRepository,
	auditRepo repository.AuditRepository,
	sessions SessionService,
	limiter *ratelimit.Limiter,
	config *config.Config,
) AuthService {
	return &authService{
		userRepo:  userRepo,
		tempRepo:  tempRepo,
		auditRepo: auditRepo,
		sessions:  sessions,
		limiter:   limiter,
		config:    config,
		now:       time.Now,
	}
}

func policyFromConfig(p config.RateLimitPolicy) ratelimit.Policy {
	return ratelimit.Policy{MaxAttempts: p.MaxAttempts, Window: p.Window}
}

// checkLimit applies a rate limit policy and fails open when the store is
// unreachable: an outage in the limiter backend must not lock everyone out.
func (s *authService) checkLimit(ctx context.Context, key string, p config.RateLimitPolicy) error {
	result, err := s.limiter.Check(ctx, key, policyFromConfig(p))
	if err != nil {
		logger.ErrorContext(ctx, "Rate limit check failed, allowing request", "error", err, "key", key)
		return nil
	}
	if !result.Allowed {
		return &domain.RateLimitedError{ResetAt: result.ResetAt}
	}
	return nil
}

func (s *authService) audit(ctx context.Context, userID *string, action string, details map[string]any, ipAddress string) {
	if err := s.auditRepo.Insert(ctx, userID, action, details, ipAddress); err != nil {
		logger.ErrorContext(ctx, "Failed to write audit entry", "error", err, "action", action)
	}
}

func (s *authService) Login(ctx context.Context, req *domain.LoginRequest, ipAddress, userAgent string) (*LoginResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ip := ipAddress
	if ip == "" {
		ip = "unknown"
	}
	if err := s.checkLimit(ctx, "login:"+ip+":"+req.Username, s.config.Auth.LoginRateLimit); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		security.VerifyPassword(req.Password, dummyHash)
		s.audit(ctx, nil, domain.AuditLoginFailed, map[string]any{"username": req.Username, "reason": "unknown_user"}, ipAddress)
		return nil, domain.ErrInvalidCredentials
	}

	if !user.IsActive {
		s.audit(ctx, &user.ID, domain.AuditLoginFailed, map[string]any{"reason": "disabled"}, ipAddress)
		return nil, domain.ErrAccountDisabled
	}

	now := s.now()
	if user.Locked(now) {
		s.audit(ctx, &user.ID, domain.AuditLoginFailed, map[string]any{"reason": "locked"}, ipAddress)
		return nil, domain.ErrAccountLocked
	}

	matched, err := security.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}

	mustChange := user.MustChangePassword
	viaTemp := false
	if !matched {
		tempID, tempErr := s.matchTempPassword(ctx, user.ID, req.Password, now)
		if tempErr != nil {
			return nil, tempErr
		}
		if tempID != "" {
			// Consume the credential. Losing the race to a concurrent
			// login with the same credential counts as a failed attempt.
			consumed, err := s.tempRepo.MarkUsed(ctx, tempID, now)
			if err != nil {
				return nil, fmt.Errorf("failed to consume temporary password: %w", err)
			}
			if consumed {
				matched = true
				mustChange = true
				viaTemp = true
				if !user.MustChangePassword {
					if err := s.userRepo.SetMustChangePassword(ctx, user.ID, true); err != nil {
						return nil, fmt.Errorf("failed to flag password change: %w", err)
					}
				}
			}
		}
	}

	if !matched {
		return nil, s.recordFailure(ctx, user, ipAddress)
	}

	if err := s.userRepo.RecordLoginSuccess(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now
	user.MustChangePassword = mustChange

	token, session, err := s.sessions.Create(ctx, user.ID, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, &user.ID, domain.AuditLoginSuccess, map[string]any{"temp_password": viaTemp}, ipAddress)

	return &LoginResult{
		Token:              token,
		User:               user.ToSafeUser(),
		MustChangePassword: mustChange,
		ExpiresAt:          session.ExpiresAt,
	}, nil
}

// matchTempPassword scans the user's active temporary credentials, newest
// first, and returns the ID of the first one the password matches.
func (s *authService) matchTempPassword(ctx context.Context, userID, password string, now time.Time) (string, error) {
	creds, err := s.tempRepo.ListActive(ctx, userID, now)
	if err != nil {
		return "", fmt.Errorf("failed to list temporary passwords: %w", err)
	}
	for _, tp := range creds {
		ok, err := security.VerifyPassword(password, tp.PasswordHash)
		if err != nil {
			return "", fmt.Errorf("failed to verify temporary password: %w", err)
		}
		if ok {
			return tp.ID, nil
		}
	}
	return "", nil
}

func (s *authService) recordFailure(ctx context.Context, user *domain.User, ipAddress string) error {
	lockUntil := s.now().Add(s.config.Auth.LockoutDuration)
	updated, err := s.userRepo.RecordLoginFailure(ctx, user.ID, s.config.Auth.MaxFailedAttempts, lockUntil)
	if err != nil {
		return fmt.Errorf("failed to record login failure: %w", err)
	}

	details := map[string]any{"reason": "bad_password"}
	if updated != nil {
		details["failed_attempts"] = updated.FailedLoginAttempts
	}
	s.audit(ctx, &user.ID, domain.AuditLoginFailed, details, ipAddress)

	// Even the attempt that crosses the threshold reports generic bad
	// credentials; the lockout only surfaces on the next attempt.
	return domain.ErrInvalidCredentials
}

func (s *authService) Logout(ctx context.Context, token, userID, ipAddress string) error {
	if err := s.sessions.Revoke(ctx, token); err != nil {
		return err
	}
	if userID != "" {
		s.audit(ctx, &userID, domain.AuditLogout, nil, ipAddress)
	}
	return nil
}

// ChangePassword verifies the caller's current credential, applies the
// strength gate, swaps the hash, and rotates every session: all existing
// sessions are revoked and a fresh one is issued so a stolen token dies
// with the old password.
func (s *authService) ChangePassword(ctx context.Context, user *domain.User, req *domain.ChangePasswordRequest, ipAddress, userAgent string) (*LoginResult, error) {
	// The limiter counts every attempt, malformed ones included, so a
	// flood of junk requests cannot guess credentials for free.
	if err := s.checkLimit(ctx, "pwchange:"+user.ID, s.config.Auth.PasswordRateLimit); err != nil {
		return nil, err
	}

	if err := req.Validate(s.config.Auth.MinPasswordLength); err != nil {
		return nil, err
	}

	ok, err := s.verifyCurrentPassword(ctx, user, req.CurrentPassword)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.audit(ctx, &user.ID, domain.AuditPasswordChangeFailed, map[string]any{"reason": "bad_current_password"}, ipAddress)
		return nil, domain.ErrInvalidCredentials
	}

	strength := security.ValidatePasswordStrength(req.NewPassword, user.Username)
	if !strength.Valid {
		s.audit(ctx, &user.ID, domain.AuditPasswordChangeFailed, map[string]any{"reason": "weak_password", "score": strength.Score}, ipAddress)
		return nil, &domain.PasswordStrengthError{Score: strength.Score, Feedback: strength.Feedback}
	}

	hash, err := security.HashPassword(req.NewPassword, s.config.Auth.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePasswordHash(ctx, user.ID, hash, false); err != nil {
		return nil, fmt.Errorf("failed to update password: %w", err)
	}
	user.MustChangePassword = false

	if _, err := s.sessions.RevokeAll(ctx, user.ID); err != nil {
		return nil, err
	}

	token, session, err := s.sessions.Create(ctx, user.ID, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, &user.ID, domain.AuditPasswordChanged, nil, ipAddress)

	return &LoginResult{
		Token:     token,
		User:      user.ToSafeUser(),
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// verifyCurrentPassword accepts the primary credential or an unexpired
// temporary one. An unused temporary credential is consumed on match, the
// same single-use contract as login. A consumed one counts only while the
// forced change it triggered is still pending; otherwise it could never
// finish, since the login already marked it used. Once must_change_password
// clears, a consumed temporary credential never matches again.
func (s *authService) verifyCurrentPassword(ctx context.Context, user *domain.User, password string) (bool, error) {
	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return false, fmt.Errorf("failed to verify password: %w", err)
	}
	if ok {
		return true, nil
	}

	creds, err := s.tempRepo.ListUnexpired(ctx, user.ID, s.now())
	if err != nil {
		return false, fmt.Errorf("failed to list temporary passwords: %w", err)
	}
	for _, tp := range creds {
		ok, err := security.VerifyPassword(password, tp.PasswordHash)
		if err != nil {
			return false, fmt.Errorf("failed to verify temporary password: %w", err)
		}
		if !ok {
			continue
		}
		if tp.UsedAt == nil {
			consumed, err := s.tempRepo.MarkUsed(ctx, tp.ID, s.now())
			if err != nil {
				return false, fmt.Errorf("failed to consume temporary password: %w", err)
			}
			if consumed {
				return true, nil
			}
			// Lost the consumption race; treat it as already used.
		}
		return user.MustChangePassword, nil
	}
	return false, nil
}
