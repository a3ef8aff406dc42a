package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/framehq/deskbook/internal/domain"
	"github.com/framehq/deskbook/internal/repository"
	"github.com/framehq/deskbook/pkg/config"
	"github.com/framehq/deskbook/pkg/events"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			MaxFailedAttempts: 3,
			LockoutDuration:   30 * time.Minute,
			SessionDuration:   7 * 24 * time.Hour,
			TempPasswordTTL:   24 * time.Hour,
			MinPasswordLength: 12,
			BcryptCost:        bcrypt.MinCost,
			LoginRateLimit:    config.RateLimitPolicy{MaxAttempts: 100, Window: 15 * time.Minute},
			PasswordRateLimit: config.RateLimitPolicy{MaxAttempts: 100, Window: time.Hour},
		},
	}
}

// ---------- Mocks ----------

type mockUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[string]*domain.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{nextID: 1, users: make(map[string]*domain.User)}
}

func (m *mockUserRepo) Create(_ context.Context, username, displayName, passwordHash, role string, mustChange bool) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == username {
			return nil, repository.ErrUniqueViolation
		}
	}

	id := fmt.Sprintf("user-%d", m.nextID)
	m.nextID++
	now := time.Now()
	u := &domain.User{
		ID:                 id,
		Username:           username,
		DisplayName:        displayName,
		PasswordHash:       passwordHash,
		Role:               role,
		IsActive:           true,
		MustChangePassword: mustChange,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	m.users[id] = u
	copied := *u
	return &copied, nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) List(_ context.Context, limit, offset int) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []domain.User
	for _, u := range m.users {
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Username < all[j].Username })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *mockUserRepo) RecordLoginFailure(_ context.Context, id string, maxAttempts int, lockUntil time.Time) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= maxAttempts {
		until := lockUntil
		u.LockedUntil = &until
	}
	copied := *u
	return &copied, nil
}

func (m *mockUserRepo) RecordLoginSuccess(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.FailedLoginAttempts = 0
		u.LockedUntil = nil
		t := at
		u.LastLoginAt = &t
	}
	return nil
}

func (m *mockUserRepo) UpdatePasswordHash(_ context.Context, id, passwordHash string, mustChange bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
		u.MustChangePassword = mustChange
	}
	return nil
}

func (m *mockUserRepo) SetMustChangePassword(_ context.Context, id string, mustChange bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.MustChangePassword = mustChange
	}
	return nil
}

func (m *mockUserRepo) Unlock(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.FailedLoginAttempts = 0
		u.LockedUntil = nil
	}
	return nil
}

func (m *mockUserRepo) SetActive(_ context.Context, id string, active bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return false, nil
	}
	u.IsActive = active
	return true, nil
}

type mockTempRepo struct {
	mu     sync.Mutex
	nextID int
	creds  []*domain.TempPassword
}

func newMockTempRepo() *mockTempRepo {
	return &mockTempRepo{nextID: 1}
}

func (m *mockTempRepo) Create(_ context.Context, userID, passwordHash, createdBy string, expiresAt time.Time) (*domain.TempPassword, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tp := &domain.TempPassword{
		ID:           fmt.Sprintf("temp-%d", m.nextID),
		UserID:       userID,
		PasswordHash: passwordHash,
		ExpiresAt:    expiresAt,
		CreatedBy:    createdBy,
		CreatedAt:    time.Now(),
	}
	m.nextID++
	m.creds = append(m.creds, tp)
	copied := *tp
	return &copied, nil
}

func (m *mockTempRepo) ListActive(_ context.Context, userID string, now time.Time) ([]domain.TempPassword, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var active []domain.TempPassword
	for i := len(m.creds) - 1; i >= 0; i-- {
		tp := m.creds[i]
		if tp.UserID == userID && tp.UsedAt == nil && tp.ExpiresAt.After(now) {
			active = append(active, *tp)
		}
	}
	return active, nil
}

func (m *mockTempRepo) ListUnexpired(_ context.Context, userID string, now time.Time) ([]domain.TempPassword, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var creds []domain.TempPassword
	for i := len(m.creds) - 1; i >= 0; i-- {
		tp := m.creds[i]
		if tp.UserID == userID && tp.ExpiresAt.After(now) {
			creds = append(creds, *tp)
		}
	}
	return creds, nil
}

func (m *mockTempRepo) MarkUsed(_ context.Context, id string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tp := range m.creds {
		if tp.ID == id && tp.UsedAt == nil && tp.ExpiresAt.After(now) {
			t := now
			tp.UsedAt = &t
			return true, nil
		}
	}
	return false, nil
}

type mockSessionRepo struct {
	mu       sync.Mutex
	nextID   int
	sessions map[string]*domain.Session // token_hash -> session
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{nextID: 1, sessions: make(map[string]*domain.Session)}
}

func (m *mockSessionRepo) Create(_ context.Context, userID, tokenHash string, expiresAt time.Time, ipAddress, userAgent string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &domain.Session{
		ID:        fmt.Sprintf("session-%d", m.nextID),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		CreatedAt: time.Now(),
	}
	m.nextID++
	m.sessions[tokenHash] = s
	copied := *s
	return &copied, nil
}

func (m *mockSessionRepo) GetByTokenHash(_ context.Context, tokenHash string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[tokenHash]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (m *mockSessionRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for hash, s := range m.sessions {
		if s.ID == id {
			delete(m.sessions, hash)
		}
	}
	return nil
}

func (m *mockSessionRepo) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, tokenHash)
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for hash, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, hash)
			n++
		}
	}
	return n, nil
}

func (m *mockSessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for hash, s := range m.sessions {
		if !s.ExpiresAt.After(now) {
			delete(m.sessions, hash)
			n++
		}
	}
	return n, nil
}

func (m *mockSessionRepo) count(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if s.UserID == userID {
			n++
		}
	}
	return n
}

type auditRecord struct {
	userID  *string
	action  string
	details map[string]any
}

type mockAuditRepo struct {
	mu      sync.Mutex
	records []auditRecord
}

func (m *mockAuditRepo) Insert(_ context.Context, userID *string, action string, details map[string]any, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, auditRecord{userID: userID, action: action, details: details})
	return nil
}

func (m *mockAuditRepo) List(_ context.Context, action string, limit, offset int) ([]domain.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var entries []domain.AuditEntry
	for _, rec := range m.records {
		if action != "" && rec.action != action {
			continue
		}
		entries = append(entries, domain.AuditEntry{UserID: rec.userID, Action: rec.action, Details: rec.details})
	}
	return entries, nil
}

func (m *mockAuditRepo) lastAction() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.records) == 0 {
		return ""
	}
	return m.records[len(m.records)-1].action
}

type publishedEvent struct {
	subject string
	data    interface{}
}

type mockEventBus struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (m *mockEventBus) Publish(_ context.Context, subject string, data interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, publishedEvent{subject: subject, data: data})
	return nil
}

func (m *mockEventBus) Subscribe(string, func(msg *events.Message)) error { return nil }
func (m *mockEventBus) QueueSubscribe(string, string, func(msg *events.Message)) error {
	return nil
}
func (m *mockEventBus) Close() error { return nil }

func (m *mockEventBus) subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.events {
		out = append(out, e.subject)
	}
	return out
}
