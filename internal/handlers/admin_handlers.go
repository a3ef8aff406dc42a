package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/framehq/deskbook/internal/domain"
	"github.com/go-chi/chi/v5"
)

// CreateUser provisions an account and returns the one-time temporary
// password. This response is the only place the plaintext ever appears.
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "INVALID_REQUEST")
		return
	}

	result, err := h.adminService.CreateUser(r.Context(), currentUser(r), &req, getClientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	users, err := h.adminService.ListUsers(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	result, err := h.adminService.ResetPassword(r.Context(), currentUser(r), userID, getClientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) UnlockAccount(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	if err := h.adminService.UnlockAccount(r.Context(), currentUser(r), userID, getClientIP(r)); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Account unlocked"})
}

func (h *Handlers) SetUserActive(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req struct {
		IsActive *bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsActive == nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "INVALID_REQUEST")
		return
	}

	user, err := h.adminService.SetUserActive(r.Context(), currentUser(r), userID, *req.IsActive, getClientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *Handlers) ListAuditLog(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	action := r.URL.Query().Get("action")

	entries, err := h.adminService.ListAuditLog(r.Context(), action, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
