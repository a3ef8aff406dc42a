package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/framehq/deskbook/internal/domain"
	"github.com/framehq/deskbook/internal/handlers"
	"github.com/framehq/deskbook/internal/ratelimit"
	"github.com/framehq/deskbook/internal/repository"
	"github.com/framehq/deskbook/internal/security"
	"github.com/framehq/deskbook/internal/service"
	"github.com/framehq/deskbook/pkg/config"
	"github.com/framehq/deskbook/pkg/events"
)

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
	u := &domain.User{
		ID:                 id,
		Username:           username,
		DisplayName:        displayName,
		PasswordHash:       passwordHash,
		Role:               role,
		IsActive:           true,
		MustChangePassword: mustChange,
		CreatedAt:          time.Now(),
	}
	m.users[id] = u
	copied := *u
	return &copied, nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
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

func (m *mockUserRepo) List(_ context.Context, _, _ int) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
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
	mu    sync.Mutex
	creds []*domain.TempPassword
}

func (m *mockTempRepo) Create(_ context.Context, userID, passwordHash, createdBy string, expiresAt time.Time) (*domain.TempPassword, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tp := &domain.TempPassword{
		ID:           fmt.Sprintf("temp-%d", len(m.creds)+1),
		UserID:       userID,
		PasswordHash: passwordHash,
		ExpiresAt:    expiresAt,
		CreatedBy:    createdBy,
		CreatedAt:    time.Now(),
	}
	m.creds = append(m.creds, tp)
	copied := *tp
	return &copied, nil
}

func (m *mockTempRepo) ListActive(_ context.Context, userID string, now time.Time) ([]domain.TempPassword, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TempPassword
	for i := len(m.creds) - 1; i >= 0; i-- {
		tp := m.creds[i]
		if tp.UserID == userID && tp.UsedAt == nil && tp.ExpiresAt.After(now) {
			out = append(out, *tp)
		}
	}
	return out, nil
}

func (m *mockTempRepo) ListUnexpired(_ context.Context, userID string, now time.Time) ([]domain.TempPassword, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TempPassword
	for i := len(m.creds) - 1; i >= 0; i-- {
		tp := m.creds[i]
		if tp.UserID == userID && tp.ExpiresAt.After(now) {
			out = append(out, *tp)
		}
	}
	return out, nil
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
	sessions map[string]*domain.Session
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{nextID: 1, sessions: make(map[string]*domain.Session)}
}

func (m *mockSessionRepo) Create(_ context.Context, userID, tokenHash string, expiresAt time.Time, ip, ua string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &domain.Session{
		ID:        fmt.Sprintf("session-%d", m.nextID),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		IPAddress: ip,
		UserAgent: ua,
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
	if s, ok := m.sessions[tokenHash]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, nil
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
	return 0, nil
}

type mockAuditRepo struct{}

func (mockAuditRepo) Insert(context.Context, *string, string, map[string]any, string) error {
	return nil
}
func (mockAuditRepo) List(context.Context, string, int, int) ([]domain.AuditEntry, error) {
	return nil, nil
}

type mockBookingRepo struct {
	mu       sync.Mutex
	nextID   int
	bookings map[string]*domain.Booking
}

func newMockBookingRepo() *mockBookingRepo {
	return &mockBookingRepo{nextID: 1, bookings: make(map[string]*domain.Booking)}
}

func (m *mockBookingRepo) Create(_ context.Context, userID, deskID, date string, slot domain.TimeSlot, notes string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.DeskID == deskID && b.Date == date && b.Status == domain.BookingConfirmed && b.TimeSlot.Overlaps(slot) {
			return nil, nil
		}
	}
	b := &domain.Booking{
		ID:       fmt.Sprintf("booking-%d", m.nextID),
		UserID:   userID,
		DeskID:   deskID,
		Date:     date,
		TimeSlot: slot,
		Status:   domain.BookingConfirmed,
		Notes:    notes,
	}
	m.nextID++
	m.bookings[b.ID] = b
	copied := *b
	return &copied, nil
}

func (m *mockBookingRepo) GetByID(_ context.Context, id string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bookings[id]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, nil
}

func (m *mockBookingRepo) List(_ context.Context, _ domain.BookingFilter, _, _ int) ([]domain.BookingWithContext, error) {
	return nil, nil
}

func (m *mockBookingRepo) ListByUserID(_ context.Context, userID string, _, _ int) ([]domain.BookingWithContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BookingWithContext
	for _, b := range m.bookings {
		if b.UserID == userID {
			out = append(out, domain.BookingWithContext{Booking: *b})
		}
	}
	return out, nil
}

func (m *mockBookingRepo) ConfirmedSlots(_ context.Context, deskID, date string) ([]domain.TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TimeSlot
	for _, b := range m.bookings {
		if b.DeskID == deskID && b.Date == date && b.Status == domain.BookingConfirmed {
			out = append(out, b.TimeSlot)
		}
	}
	return out, nil
}

func (m *mockBookingRepo) Cancel(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != domain.BookingConfirmed {
		return false, nil
	}
	b.Status = domain.BookingCancelled
	return true, nil
}

type mockWorkspaceRepo struct {
	desks map[string]*domain.Desk
	zones map[string]*domain.Zone
}

func newMockWorkspaceRepo() *mockWorkspaceRepo {
	return &mockWorkspaceRepo{
		desks: map[string]*domain.Desk{
			"desk-1": {ID: "desk-1", Label: "A-01", ZoneID: "zone-1", DeskType: domain.DeskStandard, Status: domain.DeskAvailable},
		},
		zones: map[string]*domain.Zone{
			"zone-1": {ID: "zone-1", Name: "Open Floor", Floor: 2},
		},
	}
}

func (m *mockWorkspaceRepo) GetDeskByID(_ context.Context, id string) (*domain.Desk, error) {
	if d, ok := m.desks[id]; ok {
		copied := *d
		return &copied, nil
	}
	return nil, nil
}

func (m *mockWorkspaceRepo) ListDesks(_ context.Context, _ string) ([]domain.Desk, error) {
	var out []domain.Desk
	for _, d := range m.desks {
		out = append(out, *d)
	}
	return out, nil
}

func (m *mockWorkspaceRepo) GetZoneByID(_ context.Context, id string) (*domain.Zone, error) {
	if z, ok := m.zones[id]; ok {
		copied := *z
		return &copied, nil
	}
	return nil, nil
}

func (m *mockWorkspaceRepo) ListZones(_ context.Context) ([]domain.Zone, error) {
	var out []domain.Zone
	for _, z := range m.zones {
		out = append(out, *z)
	}
	return out, nil
}

func (m *mockWorkspaceRepo) HasZoneAccess(context.Context, string, string) (bool, error) {
	return false, nil
}

type mockEventBus struct{}

func (mockEventBus) Publish(context.Context, string, interface{}) error             { return nil }
func (mockEventBus) Subscribe(string, func(msg *events.Message)) error              { return nil }
func (mockEventBus) QueueSubscribe(string, string, func(msg *events.Message)) error { return nil }
func (mockEventBus) Close() error                                                   { return nil }

// ---------- Test Setup ----------

type testEnv struct {
	server *httptest.Server
	users  *mockUserRepo
	cfg    *config.Config
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		Env: "test",
		Auth: config.AuthConfig{
			MaxFailedAttempts: 10,
			LockoutDuration:   30 * time.Minute,
			SessionDuration:   7 * 24 * time.Hour,
			TempPasswordTTL:   24 * time.Hour,
			MinPasswordLength: 12,
			BcryptCost:        bcrypt.MinCost,
			LoginRateLimit:    config.RateLimitPolicy{MaxAttempts: 100, Window: 15 * time.Minute},
			PasswordRateLimit: config.RateLimitPolicy{MaxAttempts: 100, Window: time.Hour},
		},
	}

	users := newMockUserRepo()
	temps := &mockTempRepo{}
	sessions := newMockSessionRepo()
	audit := mockAuditRepo{}
	bus := mockEventBus{}

	sessionSvc := service.NewSessionService(sessions, users, cfg)
	limiter := ratelimit.New(ratelimit.NewMemoryStore())
	authSvc := service.NewAuthService(users, temps, audit, sessionSvc, limiter, cfg)
	adminSvc := service.NewAdminService(users, temps, audit, sessionSvc, bus, cfg)
	bookingSvc := service.NewBookingService(newMockBookingRepo(), newMockWorkspaceRepo(), bus)
	workspaceSvc := service.NewWorkspaceService(newMockWorkspaceRepo())

	h := handlers.New(authSvc, sessionSvc, adminSvc, bookingSvc, workspaceSvc, cfg)

	r := chi.NewRouter()
	r.Post("/auth/login", h.Login)
	r.Group(func(r chi.Router) {
		r.Use(h.RequireSession)
		r.Post("/auth/logout", h.Logout)
		r.Post("/auth/change-password", h.ChangePassword)
		r.Group(func(r chi.Router) {
			r.Use(h.RequirePasswordCurrent)
			r.Get("/auth/me", h.Me)
			r.Post("/bookings", h.CreateBooking)
			r.Route("/admin", func(r chi.Router) {
				r.Use(h.RequireAdmin)
				r.Get("/users", h.ListUsers)
			})
		})
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return &testEnv{server: server, users: users, cfg: cfg}
}

func (e *testEnv) seedUser(t *testing.T, username, password, role string) *domain.User {
	t.Helper()
	hash, err := security.HashPassword(password, e.cfg.Auth.BcryptCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	u, err := e.users.Create(context.Background(), username, "Test User", hash, role, false)
	if err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
	return u
}

func postJSON(t *testing.T, url string, body any, cookie *http.Cookie) *http.Response {
	t.Helper()
	data, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	return resp
}

func getWithCookie(t *testing.T, url string, cookie *http.Cookie) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	return resp
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "session_token" {
			return c
		}
	}
	return nil
}

// ---------- Tests ----------

func TestLoginFlow_SetsCookieAndAuthenticates(t *testing.T) {
	env := setupTestServer(t)
	env.seedUser(t, "alice", "vK9#mQ2$wx7Lp^Rz", domain.RoleMember)

	resp := postJSON(t, env.server.URL+"/auth/login", map[string]string{
		"username": "alice",
		"password": "vK9#mQ2$wx7Lp^Rz",
	}, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Login status=%d, want 200", resp.StatusCode)
	}

	cookie := sessionCookie(resp)
	if cookie == nil || cookie.Value == "" {
		t.Fatal("Expected a session cookie")
	}
	if !cookie.HttpOnly {
		t.Fatal("Session cookie must be HttpOnly")
	}

	var loginBody map[string]any
	json.NewDecoder(resp.Body).Decode(&loginBody)
	if _, ok := loginBody["token"]; ok {
		t.Fatal("Plaintext token must not appear in the response body")
	}

	meResp := getWithCookie(t, env.server.URL+"/auth/me", cookie)
	defer meResp.Body.Close()
	if meResp.StatusCode != http.StatusOK {
		t.Fatalf("Me status=%d, want 200", meResp.StatusCode)
	}

	var me map[string]any
	json.NewDecoder(meResp.Body).Decode(&me)
	if me["username"] != "alice" {
		t.Fatalf("Me returned %v", me["username"])
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	env := setupTestServer(t)
	env.seedUser(t, "alice", "vK9#mQ2$wx7Lp^Rz", domain.RoleMember)

	resp := postJSON(t, env.server.URL+"/auth/login", map[string]string{
		"username": "alice",
		"password": "wrong-password-99",
	}, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("Status=%d, want 401", resp.StatusCode)
	}
	if sessionCookie(resp) != nil {
		t.Fatal("Failed login must not set a cookie")
	}
}

func TestProtectedRoute_RequiresSession(t *testing.T) {
	env := setupTestServer(t)

	resp := getWithCookie(t, env.server.URL+"/auth/me", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("Status=%d, want 401", resp.StatusCode)
	}

	bogus := &http.Cookie{Name: "session_token", Value: "not-a-real-token"}
	resp = getWithCookie(t, env.server.URL+"/auth/me", bogus)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("Status=%d, want 401", resp.StatusCode)
	}
}

func TestMustChangePassword_BlocksEverythingButChange(t *testing.T) {
	env := setupTestServer(t)
	user := env.seedUser(t, "alice", "vK9#mQ2$wx7Lp^Rz", domain.RoleMember)
	env.users.SetMustChangePassword(context.Background(), user.ID, true)

	resp := postJSON(t, env.server.URL+"/auth/login", map[string]string{
		"username": "alice",
		"password": "vK9#mQ2$wx7Lp^Rz",
	}, nil)
	defer resp.Body.Close()
	cookie := sessionCookie(resp)
	if cookie == nil {
		t.Fatal("Expected a session cookie")
	}

	var loginBody map[string]any
	json.NewDecoder(resp.Body).Decode(&loginBody)
	if loginBody["must_change_password"] != true {
		t.Fatal("Login response should flag the forced change")
	}

	// Booking is blocked.
	blocked := postJSON(t, env.server.URL+"/bookings", map[string]string{
		"desk_id": "desk-1", "date": "2026-09-01", "time_slot": "morning",
	}, cookie)
	defer blocked.Body.Close()
	if blocked.StatusCode != http.StatusForbidden {
		t.Fatalf("Blocked route status=%d, want 403", blocked.StatusCode)
	}

	// The change-password endpoint is reachable and rotates the session.
	changed := postJSON(t, env.server.URL+"/auth/change-password", map[string]string{
		"current_password": "vK9#mQ2$wx7Lp^Rz",
		"new_password":     "orchid-Tundra-94-brick",
		"confirm_password": "orchid-Tundra-94-brick",
	}, cookie)
	defer changed.Body.Close()
	if changed.StatusCode != http.StatusOK {
		t.Fatalf("ChangePassword status=%d, want 200", changed.StatusCode)
	}

	freshCookie := sessionCookie(changed)
	if freshCookie == nil || freshCookie.Value == cookie.Value {
		t.Fatal("Expected a rotated session cookie")
	}

	after := postJSON(t, env.server.URL+"/bookings", map[string]string{
		"desk_id": "desk-1", "date": "2026-09-01", "time_slot": "morning",
	}, freshCookie)
	defer after.Body.Close()
	if after.StatusCode != http.StatusCreated {
		t.Fatalf("Booking after change status=%d, want 201", after.StatusCode)
	}
}

func TestLogout_ClearsCookie(t *testing.T) {
	env := setupTestServer(t)
	env.seedUser(t, "alice", "vK9#mQ2$wx7Lp^Rz", domain.RoleMember)

	resp := postJSON(t, env.server.URL+"/auth/login", map[string]string{
		"username": "alice",
		"password": "vK9#mQ2$wx7Lp^Rz",
	}, nil)
	defer resp.Body.Close()
	cookie := sessionCookie(resp)

	logoutResp := postJSON(t, env.server.URL+"/auth/logout", nil, cookie)
	defer logoutResp.Body.Close()
	if logoutResp.StatusCode != http.StatusOK {
		t.Fatalf("Logout status=%d, want 200", logoutResp.StatusCode)
	}

	cleared := sessionCookie(logoutResp)
	if cleared == nil || cleared.MaxAge >= 0 {
		t.Fatal("Logout must clear the cookie")
	}

	meResp := getWithCookie(t, env.server.URL+"/auth/me", cookie)
	defer meResp.Body.Close()
	if meResp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("Me after logout status=%d, want 401", meResp.StatusCode)
	}
}

func TestAdminRoute_ForbiddenForMembers(t *testing.T) {
	env := setupTestServer(t)
	env.seedUser(t, "alice", "vK9#mQ2$wx7Lp^Rz", domain.RoleMember)
	env.seedUser(t, "root", "vK9#mQ2$wx7Lp^Rz", domain.RoleAdmin)

	login := func(username string) *http.Cookie {
		resp := postJSON(t, env.server.URL+"/auth/login", map[string]string{
			"username": username,
			"password": "vK9#mQ2$wx7Lp^Rz",
		}, nil)
		defer resp.Body.Close()
		return sessionCookie(resp)
	}

	memberResp := getWithCookie(t, env.server.URL+"/admin/users", login("alice"))
	defer memberResp.Body.Close()
	if memberResp.StatusCode != http.StatusForbidden {
		t.Fatalf("Member admin access status=%d, want 403", memberResp.StatusCode)
	}

	adminResp := getWithCookie(t, env.server.URL+"/admin/users", login("root"))
	defer adminResp.Body.Close()
	if adminResp.StatusCode != http.StatusOK {
		t.Fatalf("Admin access status=%d, want 200", adminResp.StatusCode)
	}
}

func TestBookingConflict_Returns409(t *testing.T) {
	env := setupTestServer(t)
	env.seedUser(t, "alice", "vK9#mQ2$wx7Lp^Rz", domain.RoleMember)
	env.seedUser(t, "bob", "vK9#mQ2$wx7Lp^Rz", domain.RoleMember)

	login := func(username string) *http.Cookie {
		resp := postJSON(t, env.server.URL+"/auth/login", map[string]string{
			"username": username,
			"password": "vK9#mQ2$wx7Lp^Rz",
		}, nil)
		defer resp.Body.Close()
		return sessionCookie(resp)
	}

	body := map[string]string{"desk_id": "desk-1", "date": "2026-09-01", "time_slot": "full_day"}

	first := postJSON(t, env.server.URL+"/bookings", body, login("alice"))
	defer first.Body.Close()
	if first.StatusCode != http.StatusCreated {
		t.Fatalf("First booking status=%d, want 201", first.StatusCode)
	}

	second := postJSON(t, env.server.URL+"/bookings", body, login("bob"))
	defer second.Body.Close()
	if second.StatusCode != http.StatusConflict {
		t.Fatalf("Conflicting booking status=%d, want 409", second.StatusCode)
	}

	var errBody map[string]string
	json.NewDecoder(second.Body).Decode(&errBody)
	if errBody["code"] != "DOUBLE_BOOKED" {
		t.Fatalf("Expected DOUBLE_BOOKED code, got %q", errBody["code"])
	}
}
