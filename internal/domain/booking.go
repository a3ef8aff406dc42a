package domain

import (
	"time"
)

type TimeSlot string

const (
	SlotMorning   TimeSlot = "morning"
	SlotAfternoon TimeSlot = "afternoon"
	SlotFullDay   TimeSlot = "full_day"
)

func ParseTimeSlot(s string) (TimeSlot, bool) {
	switch TimeSlot(s) {
	case SlotMorning, SlotAfternoon, SlotFullDay:
		return TimeSlot(s), true
	default:
		return "", false
	}
}

// Overlaps reports whether two slots compete for the same desk time.
// full_day overlaps both halves; morning and afternoon do not overlap
// each other.
func (s TimeSlot) Overlaps(other TimeSlot) bool {
	return s == other || s == SlotFullDay || other == SlotFullDay
}

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

type Booking struct {
	ID        string        `json:"id"`
	DeskID    string        `json:"desk_id"`
	UserID    string        `json:"user_id"`
	Date      string        `json:"date"`
	TimeSlot  TimeSlot      `json:"time_slot"`
	Status    BookingStatus `json:"status"`
	Notes     string        `json:"notes,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type CreateBookingRequest struct {
	DeskID   string `json:"desk_id"`
	Date     string `json:"date"`
	TimeSlot string `json:"time_slot"`
	Notes    string `json:"notes"`
}

const bookingDateLayout = "2006-01-02"

func (r *CreateBookingRequest) Validate() error {
	if r.DeskID == "" {
		return NewValidationError("desk_id", "desk is required")
	}
	if _, err := time.Parse(bookingDateLayout, r.Date); err != nil {
		return NewValidationError("date", "date must be in YYYY-MM-DD format")
	}
	if _, ok := ParseTimeSlot(r.TimeSlot); !ok {
		return NewValidationError("time_slot", "time slot must be morning, afternoon, or full_day")
	}
	if len(r.Notes) > 500 {
		return NewValidationError("notes", "notes must be 500 characters or less")
	}
	return nil
}

type BookingFilter struct {
	Date   string
	DeskID string
	UserID string
	ZoneID string
}

// BookingWithContext joins a booking with the display fields the list
// endpoints return alongside it.
type BookingWithContext struct {
	Booking
	DeskLabel       string `json:"desk_label"`
	ZoneID          string `json:"zone_id"`
	ZoneName        string `json:"zone_name,omitempty"`
	UserDisplayName string `json:"user_display_name,omitempty"`
}
