package handlers

import (
	"context"
	"net/http"

	"github.com/framehq/deskbook/internal/domain"
	"github.com/framehq/deskbook/pkg/logger"
)

type contextKey string

const (
	userContextKey    contextKey = "current_user"
	sessionContextKey contextKey = "current_session"
)

// RequireSession resolves the session cookie to a user and stores both on
// the request context. An invalid or expired cookie is cleared so the
// browser stops sending it.
func (h *Handlers) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
			return
		}

		user, session, err := h.sessionService.Validate(r.Context(), token)
		if err != nil {
			logger.ErrorContext(r.Context(), "Session validation failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR")
			return
		}
		if user == nil {
			h.clearSessionCookie(w)
			writeError(w, http.StatusUnauthorized, "Session is invalid or expired", "UNAUTHORIZED")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		ctx = context.WithValue(ctx, sessionContextKey, session)
		ctx = context.WithValue(ctx, logger.UserIDKey, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePasswordCurrent blocks accounts flagged for a forced password
// change from everything except completing that change.
func (h *Handlers) RequirePasswordCurrent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r)
		if user != nil && user.MustChangePassword {
			writeError(w, http.StatusForbidden, "Password change required before continuing", "PASSWORD_CHANGE_REQUIRED")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r)
		if user == nil || user.Role != domain.RoleAdmin {
			writeError(w, http.StatusForbidden, "Insufficient permissions", "FORBIDDEN")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func currentUser(r *http.Request) *domain.User {
	if user, ok := r.Context().Value(userContextKey).(*domain.User); ok {
		return user
	}
	return nil
}

func currentSession(r *http.Request) *domain.Session {
	if session, ok := r.Context().Value(sessionContextKey).(*domain.Session); ok {
		return session
	}
	return nil
}
