package handlers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/framehq/deskbook/internal/domain"
	"github.com/framehq/deskbook/internal/service"
	"github.com/framehq/deskbook/pkg/config"
)

const sessionCookieName = "session_token"

type Handlers struct {
	authService      service.AuthService
	sessionService   service.SessionService
	adminService     service.AdminService
	bookingService   service.BookingService
	workspaceService service.WorkspaceService
	config           *config.Config
}

func New(
	authService service.AuthService,
	sessionService service.SessionService,
	adminService service.AdminService,
	bookingService service.BookingService,
	workspaceService service.WorkspaceService,
	config *config.Config,
) *Handlers {
	return &Handlers{
		authService:      authService,
		sessionService:   sessionService,
		adminService:     adminService,
		bookingService:   bookingService,
		workspaceService: workspaceService,
		config:           config,
	}
}

// Helper functions

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message, code string) {
	response := map[string]string{
		"error": message,
		"code":  code,
	}
	writeJSON(w, statusCode, response)
}

// writeServiceError maps domain errors onto HTTP responses. Unrecognized
// errors become an opaque 500 so internals never leak to clients.
func writeServiceError(w http.ResponseWriter, err error) {
	var rateErr *domain.RateLimitedError
	var validationErr *domain.ValidationError
	var strengthErr *domain.PasswordStrengthError

	switch {
	case errors.As(err, &rateErr):
		w.Header().Set("Retry-After", strconv.Itoa(int(time.Until(rateErr.ResetAt).Seconds())+1))
		writeError(w, http.StatusTooManyRequests, rateErr.Error(), "RATE_LIMIT_EXCEEDED")
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": validationErr.Message,
			"field": validationErr.Field,
			"code":  "VALIDATION_ERROR",
		})
	case errors.As(err, &strengthErr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":    strengthErr.Error(),
			"score":    strengthErr.Score,
			"feedback": strengthErr.Feedback,
			"code":     "WEAK_PASSWORD",
		})
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, domain.ErrAccountDisabled):
		writeError(w, http.StatusForbidden, err.Error(), "ACCOUNT_DISABLED")
	case errors.Is(err, domain.ErrAccountLocked):
		writeError(w, http.StatusForbidden, err.Error(), "ACCOUNT_LOCKED")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "Insufficient permissions", "FORBIDDEN")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found", "NOT_FOUND")
	case errors.Is(err, domain.ErrDeskUnavailable):
		writeError(w, http.StatusConflict, err.Error(), "DESK_UNAVAILABLE")
	case errors.Is(err, domain.ErrDoubleBooked):
		writeError(w, http.StatusConflict, err.Error(), "DOUBLE_BOOKED")
	case errors.Is(err, domain.ErrUsernameTaken):
		writeError(w, http.StatusConflict, err.Error(), "USERNAME_TAKEN")
	default:
		writeError(w, http.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR")
	}
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}

// Session cookie helpers

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

func sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
