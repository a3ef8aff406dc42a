package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/framehq/deskbook/internal/domain"
)

// Login authenticates with username and password and sets the session
// cookie. The temporary-password path succeeds here too; the response
// flags must_change_password so clients route straight to the change form.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "INVALID_REQUEST")
		return
	}

	result, err := h.authService.Login(r.Context(), &req, getClientIP(r), r.UserAgent())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.setSessionCookie(w, result.Token, result.ExpiresAt)
	writeJSON(w, http.StatusOK, result)
}

// Logout revokes the current session and clears the cookie. Safe to call
// with a stale or missing session.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	userID := ""
	if user := currentUser(r); user != nil {
		userID = user.ID
	}

	if err := h.authService.Logout(r.Context(), token, userID, getClientIP(r)); err != nil {
		writeServiceError(w, err)
		return
	}

	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// ChangePassword swaps the caller's password and rotates their session.
// The cookie in the response replaces the one just revoked.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	var req domain.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "INVALID_REQUEST")
		return
	}

	result, err := h.authService.ChangePassword(r.Context(), user, &req, getClientIP(r), r.UserAgent())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.setSessionCookie(w, result.Token, result.ExpiresAt)
	writeJSON(w, http.StatusOK, result)
}

// Me returns the authenticated user's profile.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	writeJSON(w, http.StatusOK, user.ToSafeUser())
}
