package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bookingserrors "loyly/internal/bookings/errors"
	"loyly/internal/bookings/repository"
	"loyly/internal/bookings/slots"
	"loyly/pkg/config"
	apperrors "loyly/pkg/errors"
	"loyly/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// AccessChecker gates booking actions on sauna membership. Implemented by the
// users service.
type AccessChecker interface {
	CanBook(ctx context.Context, userID, saunaID string) error
}

// SaunaGetter resolves saunas without importing the saunas package directly.
type SaunaGetter interface {
	GetByID(ctx context.Context, id string) (*model.Sauna, error)
}

// WaitlistNotifier hands a freed slot to the waitlist. Called synchronously
// after a cancellation commits; failures are logged, never propagated.
type WaitlistNotifier interface {
	NotifyNext(ctx context.Context, saunaID string, slotTime time.Time) error
}

// ReminderScheduler is the bookings-side view of the reminders service.
// Both calls are best effort: a booking outcome never depends on them.
type ReminderScheduler interface {
	ScheduleForBooking(ctx context.Context, booking *model.Booking) (string, error)
	CancelForBooking(ctx context.Context, booking *model.Booking) error
}

type BookingService interface {
	GetAvailableSlots(ctx context.Context, userID, saunaID string, date time.Time) ([]model.Slot, error)
	Create(ctx context.Context, userID, saunaID string, startTime time.Time) (*model.Booking, error)
	Cancel(ctx context.Context, userID, bookingID string) error
	CancelAdmin(ctx context.Context, bookingID string) error
	ListForUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, int64, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	locks     repository.SlotLockRepository
	access    AccessChecker
	saunas    SaunaGetter
	waitlist  WaitlistNotifier
	reminders ReminderScheduler
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	locks repository.SlotLockRepository,
	access AccessChecker,
	saunas SaunaGetter,
	waitlist WaitlistNotifier,
	reminders ReminderScheduler,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		locks:     locks,
		access:    access,
		saunas:    saunas,
		waitlist:  waitlist,
		reminders: reminders,
		cfg:       cfg,
	}
}

func (s *bookingService) GetAvailableSlots(ctx context.Context, userID, saunaID string, date time.Time) ([]model.Slot, error) {
	if err := s.access.CanBook(ctx, userID, saunaID); err != nil {
		return nil, err
	}

	sauna, err := s.saunas.GetByID(ctx, saunaID)
	if err != nil {
		return nil, err
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	bookings, err := s.repo.FindActiveBySaunaBetween(ctx, saunaID, dayStart, dayEnd)
	if err != nil {
		return nil, apperrors.Internal("Failed to load bookings for slot generation", err)
	}

	generated, err := slots.Generate(
		dayStart,
		sauna.OperatingHours,
		time.Duration(sauna.SlotDurationMinutes)*time.Minute,
		sauna.MaxConcurrentBookings,
		bookings,
		time.Now(),
	)
	if err != nil {
		return nil, apperrors.Internal("Failed to generate slots", err)
	}
	return generated, nil
}

// Create admits a booking for the slot starting at startTime. Preconditions
// run in a fixed order so callers get stable error codes: access, sauna
// existence, slot validity, then the capacity checks. The capacity checks run
// inside a transaction guarded by an advisory slot lock, so two racing
// requests for the last free seat cannot both pass the recount.
func (s *bookingService) Create(ctx context.Context, userID, saunaID string, startTime time.Time) (*model.Booking, error) {
	if err := s.access.CanBook(ctx, userID, saunaID); err != nil {
		return nil, err
	}

	sauna, err := s.saunas.GetByID(ctx, saunaID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	slotDuration := time.Duration(sauna.SlotDurationMinutes) * time.Minute
	endTime := startTime.Add(slotDuration)

	if err := validateSlotTime(sauna, startTime, endTime, slotDuration, now); err != nil {
		return nil, err
	}

	lock, err := s.acquireSlotLock(ctx, saunaID, startTime, now)
	if err != nil {
		return nil, err
	}
	defer s.releaseSlotLock(ctx, lock.ID)

	booking := &model.Booking{
		SaunaID:   saunaID,
		UserID:    userID,
		StartTime: startTime,
		EndTime:   endTime,
		Status:    model.BookingActive,
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		totalActive, err := s.repo.CountActiveByUser(sessCtx, saunaID, userID, now)
		if err != nil {
			return apperrors.Internal("Failed to count user bookings", err)
		}
		if totalActive >= int64(sauna.MaxTotalBookings) {
			return apperrors.LimitExceeded(fmt.Sprintf(
				"You already hold the maximum of %d active bookings at this sauna", sauna.MaxTotalBookings))
		}

		overlapping, err := s.repo.CountActiveOverlapping(sessCtx, saunaID, startTime, endTime)
		if err != nil {
			return apperrors.Internal("Failed to count overlapping bookings", err)
		}
		if overlapping >= int64(sauna.MaxConcurrentBookings) {
			return apperrors.LimitExceeded("This slot is fully booked")
		}

		if err := s.repo.Create(sessCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Booking created",
		"booking_id", booking.ID,
		"sauna_id", saunaID,
		"user_id", userID,
		"start_time", startTime,
	)

	s.scheduleReminder(ctx, booking)

	return booking, nil
}

// Cancel cancels the caller's own booking and hands the freed slot to the
// waitlist.
func (s *bookingService) Cancel(ctx context.Context, userID, bookingID string) error {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	if booking.UserID != userID {
		return apperrors.Forbidden("You can only cancel your own bookings")
	}

	return s.cancel(ctx, booking)
}

// CancelAdmin cancels any booking regardless of owner. Role gating happens in
// the handler.
func (s *bookingService) CancelAdmin(ctx context.Context, bookingID string) error {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	return s.cancel(ctx, booking)
}

func (s *bookingService) cancel(ctx context.Context, booking *model.Booking) error {
	now := time.Now()

	if booking.EffectiveStatus(now) != model.BookingActive {
		return apperrors.Conflict("Only active bookings can be cancelled")
	}
	if !booking.StartTime.After(now) {
		return apperrors.InvalidInput("Bookings that already started cannot be cancelled")
	}

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.UpdateStatus(sessCtx, booking.ID, model.BookingCancelled); err != nil {
			if errors.Is(err, bookingserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Booking", booking.ID)
			}
			return apperrors.Internal("Failed to cancel booking", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cfg.Log.Info("Booking cancelled",
		"booking_id", booking.ID,
		"sauna_id", booking.SaunaID,
		"start_time", booking.StartTime,
	)

	if booking.ReminderID != "" {
		if err := s.reminders.CancelForBooking(ctx, booking); err != nil {
			s.cfg.Log.Error("Failed to cancel reminder",
				"booking_id", booking.ID, "reminder_id", booking.ReminderID, "error", err)
		}
	}

	// One freed seat, one notification. Errors here never undo the
	// cancellation.
	if err := s.waitlist.NotifyNext(ctx, booking.SaunaID, booking.StartTime); err != nil {
		s.cfg.Log.Error("Failed to notify waitlist",
			"sauna_id", booking.SaunaID, "slot_time", booking.StartTime, "error", err)
	}

	return nil
}

func (s *bookingService) ListForUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	var total int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		total, errCount = s.repo.CountByUser(ctx, userID)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "user_id", userID, "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindByUser(ctx, userID, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "user_id", userID, "error", errFind)
			errFind = apperrors.Internal("Failed to list bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	now := time.Now()
	for _, b := range bookings {
		b.Status = b.EffectiveStatus(now)
	}
	return bookings, total, nil
}

func (s *bookingService) getBooking(ctx context.Context, bookingID string) (*model.Booking, error) {
	booking, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		switch {
		case errors.Is(err, bookingserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Booking", bookingID)
		case errors.Is(err, bookingserrors.ErrInvalidID):
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		default:
			return nil, apperrors.Internal("Failed to retrieve booking", err)
		}
	}
	return booking, nil
}

func (s *bookingService) acquireSlotLock(ctx context.Context, saunaID string, startTime time.Time, now time.Time) (*model.SlotLock, error) {
	lock := &model.SlotLock{
		ID:        fmt.Sprintf("slot_lock_%s_%d", saunaID, startTime.Unix()),
		ExpiresAt: now.Add(s.cfg.SlotLockTTL),
	}

	created, err := s.locks.Create(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperrors.Conflict("This slot is currently being booked, try again")
		}
		return nil, apperrors.Internal("Failed to acquire slot lock", err)
	}
	return created, nil
}

func (s *bookingService) releaseSlotLock(ctx context.Context, lockID string) {
	if err := s.locks.Delete(ctx, lockID); err != nil {
		// TTL expiry cleans it up.
		s.cfg.Log.Warn("Failed to release slot lock", "lock_id", lockID, "error", err)
	}
}

func (s *bookingService) scheduleReminder(ctx context.Context, booking *model.Booking) {
	reminderID, err := s.reminders.ScheduleForBooking(ctx, booking)
	if err != nil {
		s.cfg.Log.Error("Failed to schedule reminder", "booking_id", booking.ID, "error", err)
		return
	}
	if reminderID == "" {
		return
	}

	booking.ReminderID = reminderID
	if err := s.repo.SetReminderID(ctx, booking.ID, reminderID); err != nil {
		s.cfg.Log.Error("Failed to persist reminder id",
			"booking_id", booking.ID, "reminder_id", reminderID, "error", err)
	}
}

// validateSlotTime rejects past starts and anything off the sauna's slot
// grid: the slot must begin on an exact multiple of the slot duration from
// the day's window start and fit inside the window.
func validateSlotTime(sauna *model.Sauna, startTime, endTime time.Time, slotDuration time.Duration, now time.Time) error {
	if !startTime.After(now) {
		return apperrors.InvalidInput("Booking start time must be in the future")
	}

	window := sauna.OperatingHours.HoursFor(startTime)

	startHour, startMinute, err := slots.ParseWallClock(window.Start)
	if err != nil {
		return apperrors.Internal("Sauna has invalid operating hours", err)
	}
	endHour, endMinute, err := slots.ParseWallClock(window.End)
	if err != nil {
		return apperrors.Internal("Sauna has invalid operating hours", err)
	}

	windowStart := time.Date(startTime.Year(), startTime.Month(), startTime.Day(),
		startHour, startMinute, 0, 0, startTime.Location())
	windowEnd := time.Date(startTime.Year(), startTime.Month(), startTime.Day(),
		endHour, endMinute, 0, 0, startTime.Location())

	if startTime.Before(windowStart) || endTime.After(windowEnd) {
		return apperrors.InvalidInput(fmt.Sprintf(
			"Booking must fall within operating hours %s-%s", window.Start, window.End))
	}

	offset := startTime.Sub(windowStart)
	if offset%slotDuration != 0 {
		return apperrors.InvalidInput(fmt.Sprintf(
			"Booking start time must align with the %d-minute slot grid", sauna.SlotDurationMinutes))
	}

	return nil
}
