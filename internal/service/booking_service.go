package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/framehq/deskbook/internal/domain"
	"github.com/framehq/deskbook/internal/repository"
	"github.com/framehq/deskbook/pkg/events"
	"github.com/framehq/deskbook/pkg/logger"
)

type BookingService interface {
	BookDesk(ctx context.Context, user *domain.User, req *domain.CreateBookingRequest) (*domain.Booking, error)
	CancelBooking(ctx context.Context, actor *domain.User, bookingID string) error
	ListBookings(ctx context.Context, filter domain.BookingFilter, limit, offset int) ([]domain.BookingWithContext, error)
	ListMyBookings(ctx context.Context, userID string, limit, offset int) ([]domain.BookingWithContext, error)
	AvailableSlots(ctx context.Context, deskID, date string) ([]domain.TimeSlot, error)
}

type bookingService struct {
	bookingRepo   repository.BookingRepository
	workspaceRepo repository.WorkspaceRepository
	eventBus      events.EventBus
	now           func() time.Time
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	workspaceRepo repository.WorkspaceRepository,
	eventBus events.EventBus,
) BookingService {
	return &bookingService{
		bookingRepo:   bookingRepo,
		workspaceRepo: workspaceRepo,
		eventBus:      eventBus,
		now:           time.Now,
	}
}

// BookDesk creates a confirmed booking. Desk state and zone access are
// checked up front for clear error messages, but the conflict decision
// belongs to the database alone: the conditional insert either lands or
// reports the clash, so two racing requests can never both succeed.
func (s *bookingService) BookDesk(ctx context.Context, user *domain.User, req *domain.CreateBookingRequest) (*domain.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	desk, err := s.workspaceRepo.GetDeskByID(ctx, req.DeskID)
	if err != nil {
		return nil, fmt.Errorf("failed to find desk: %w", err)
	}
	if desk == nil {
		return nil, domain.ErrNotFound
	}
	// Only maintenance blocks booking; a reserved desk is still bookable
	// and the conflict insert arbitrates contention like any other desk.
	if desk.Status == domain.DeskMaintenance {
		return nil, domain.ErrDeskUnavailable
	}

	if err := s.checkZoneAccess(ctx, user, desk.ZoneID); err != nil {
		return nil, err
	}

	slot, _ := domain.ParseTimeSlot(req.TimeSlot)
	booking, err := s.bookingRepo.Create(ctx, user.ID, desk.ID, req.Date, slot, req.Notes)
	if err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, domain.ErrDoubleBooked
		}
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	if booking == nil {
		return nil, domain.ErrDoubleBooked
	}

	if err := s.eventBus.Publish(ctx, events.BookingCreated, events.BookingCreatedEvent{
		BookingID: booking.ID,
		DeskID:    booking.DeskID,
		UserID:    booking.UserID,
		Date:      booking.Date,
		TimeSlot:  string(booking.TimeSlot),
		CreatedAt: booking.CreatedAt,
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish booking created event", "error", err, "booking_id", booking.ID)
	}

	return booking, nil
}

func (s *bookingService) checkZoneAccess(ctx context.Context, user *domain.User, zoneID string) error {
	zone, err := s.workspaceRepo.GetZoneByID(ctx, zoneID)
	if err != nil {
		return fmt.Errorf("failed to find zone: %w", err)
	}
	if zone == nil || !zone.Restricted || user.Role == domain.RoleAdmin {
		return nil
	}

	allowed, err := s.workspaceRepo.HasZoneAccess(ctx, user.ID, zoneID)
	if err != nil {
		return fmt.Errorf("failed to check zone access: %w", err)
	}
	if !allowed {
		return domain.ErrForbidden
	}
	return nil
}

// CancelBooking cancels a confirmed booking. Members may only cancel their
// own; admins may cancel any. Cancelling a booking that is already
// cancelled reports not found, matching what a stale client would see if
// the booking never existed.
func (s *bookingService) CancelBooking(ctx context.Context, actor *domain.User, bookingID string) error {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("failed to find booking: %w", err)
	}
	if booking == nil {
		return domain.ErrNotFound
	}

	if booking.UserID != actor.ID && actor.Role != domain.RoleAdmin {
		return domain.ErrForbidden
	}

	cancelled, err := s.bookingRepo.Cancel(ctx, booking.ID)
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}
	if !cancelled {
		return domain.ErrNotFound
	}

	if err := s.eventBus.Publish(ctx, events.BookingCancelled, events.BookingCancelledEvent{
		BookingID:   booking.ID,
		DeskID:      booking.DeskID,
		UserID:      booking.UserID,
		CancelledBy: actor.ID,
		CancelledAt: s.now(),
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish booking cancelled event", "error", err, "booking_id", booking.ID)
	}

	return nil
}

func (s *bookingService) ListBookings(ctx context.Context, filter domain.BookingFilter, limit, offset int) ([]domain.BookingWithContext, error) {
	bookings, err := s.bookingRepo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

func (s *bookingService) ListMyBookings(ctx context.Context, userID string, limit, offset int) ([]domain.BookingWithContext, error) {
	bookings, err := s.bookingRepo.ListByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// AvailableSlots reports which slots remain open on a desk for a date,
// derived from the confirmed bookings and the overlap rule.
func (s *bookingService) AvailableSlots(ctx context.Context, deskID, date string) ([]domain.TimeSlot, error) {
	desk, err := s.workspaceRepo.GetDeskByID(ctx, deskID)
	if err != nil {
		return nil, fmt.Errorf("failed to find desk: %w", err)
	}
	if desk == nil {
		return nil, domain.ErrNotFound
	}
	if desk.Status == domain.DeskMaintenance {
		return []domain.TimeSlot{}, nil
	}

	taken, err := s.bookingRepo.ConfirmedSlots(ctx, deskID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load confirmed slots: %w", err)
	}

	open := []domain.TimeSlot{}
	for _, candidate := range []domain.TimeSlot{domain.SlotMorning, domain.SlotAfternoon, domain.SlotFullDay} {
		free := true
		for _, held := range taken {
			if candidate.Overlaps(held) {
				free = false
				break
			}
		}
		if free {
			open = append(open, candidate)
		}
	}
	return open, nil
}
