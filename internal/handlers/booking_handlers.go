package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/framehq/deskbook/internal/domain"
	"github.com/go-chi/chi/v5"
)

func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "INVALID_REQUEST")
		return
	}

	booking, err := h.bookingService.BookDesk(r.Context(), currentUser(r), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, booking)
}

func (h *Handlers) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	bookings, err := h.bookingService.ListMyBookings(r.Context(), currentUser(r).ID, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

// ListBookings is the shared browse endpoint: anyone signed in can see who
// sits where, filtered by date, desk, zone, or user.
func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	filter := domain.BookingFilter{
		Date:   r.URL.Query().Get("date"),
		DeskID: r.URL.Query().Get("desk_id"),
		UserID: r.URL.Query().Get("user_id"),
		ZoneID: r.URL.Query().Get("zone_id"),
	}

	bookings, err := h.bookingService.ListBookings(r.Context(), filter, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "id")

	if err := h.bookingService.CancelBooking(r.Context(), currentUser(r), bookingID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Booking cancelled"})
}

// DeskAvailability returns the open slots for a desk on a date.
func (h *Handlers) DeskAvailability(w http.ResponseWriter, r *http.Request) {
	deskID := chi.URLParam(r, "id")
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date query parameter is required", "INVALID_REQUEST")
		return
	}

	req := domain.CreateBookingRequest{DeskID: deskID, Date: date, TimeSlot: string(domain.SlotFullDay)}
	if err := req.Validate(); err != nil {
		writeServiceError(w, err)
		return
	}

	slots, err := h.bookingService.AvailableSlots(r.Context(), deskID, date)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"desk_id":         deskID,
		"date":            date,
		"available_slots": slots,
	})
}
