package handlers

import (
	"net/http"
)

func (h *Handlers) ListDesks(w http.ResponseWriter, r *http.Request) {
	desks, err := h.workspaceService.ListDesks(r.Context(), r.URL.Query().Get("zone_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"desks": desks})
}

func (h *Handlers) ListZones(w http.ResponseWriter, r *http.Request) {
	zones, err := h.workspaceService.ListZones(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"zones": zones})
}
