package service

import (
	"context"
	"errors"
	"time"

	bookingserrors "loyly/internal/bookings/errors"
	"loyly/internal/reminders/scheduler"
	"loyly/pkg/config"
	apperrors "loyly/pkg/errors"
	"loyly/pkg/mailer"
	"loyly/pkg/model"
)

// BookingGetter resolves bookings at fire time. Implemented by the bookings
// repository.
type BookingGetter interface {
	FindByID(ctx context.Context, id string) (*model.Booking, error)
}

// UserGetter resolves the booking owner's address.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// SaunaGetter resolves the sauna name for the reminder mail.
type SaunaGetter interface {
	GetByID(ctx context.Context, id string) (*model.Sauna, error)
}

type ReminderService interface {
	ScheduleForBooking(ctx context.Context, booking *model.Booking) (string, error)
	CancelForBooking(ctx context.Context, booking *model.Booking) error
	HandleNotification(ctx context.Context, payload scheduler.Payload) error
}

type reminderService struct {
	scheduler scheduler.Scheduler
	bookings  BookingGetter
	users     UserGetter
	saunas    SaunaGetter
	mail      mailer.Mailer
	cfg       *config.Config
}

func NewReminderService(
	sched scheduler.Scheduler,
	bookings BookingGetter,
	users UserGetter,
	saunas SaunaGetter,
	mail mailer.Mailer,
	cfg *config.Config,
) ReminderService {
	return &reminderService{
		scheduler: sched,
		bookings:  bookings,
		users:     users,
		saunas:    saunas,
		mail:      mail,
		cfg:       cfg,
	}
}

// ScheduleForBooking requests a reminder one lead time before the session
// starts. Bookings made inside the lead window get no reminder; the empty
// handle tells the caller nothing was scheduled.
func (s *reminderService) ScheduleForBooking(ctx context.Context, booking *model.Booking) (string, error) {
	fireAt := booking.StartTime.Add(-s.cfg.ReminderLeadTime)
	if !fireAt.After(time.Now()) {
		s.cfg.Log.Info("Reminder skipped, booking starts inside the lead window",
			"booking_id", booking.ID, "start_time", booking.StartTime)
		return "", nil
	}

	return s.scheduler.ScheduleAt(ctx, fireAt, scheduler.Payload{BookingID: booking.ID})
}

func (s *reminderService) CancelForBooking(ctx context.Context, booking *model.Booking) error {
	if booking.ReminderID == "" {
		return nil
	}
	return s.scheduler.Cancel(ctx, booking.ReminderID)
}

// HandleNotification is the fire-time entry point, shared by the local
// scheduler and the notification webhook. A booking that got cancelled since
// scheduling is skipped silently. Mail errors are returned so the external
// runner's retry policy applies.
func (s *reminderService) HandleNotification(ctx context.Context, payload scheduler.Payload) error {
	booking, err := s.bookings.FindByID(ctx, payload.BookingID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) || errors.Is(err, bookingserrors.ErrInvalidID) {
			s.cfg.Log.Info("Reminder dropped, booking no longer exists",
				"booking_id", payload.BookingID, "notification_id", payload.NotificationID)
			return nil
		}
		return apperrors.Internal("Failed to resolve booking for reminder", err)
	}

	if booking.EffectiveStatus(time.Now()) != model.BookingActive {
		s.cfg.Log.Info("Reminder dropped, booking is not active",
			"booking_id", booking.ID, "status", booking.Status)
		return nil
	}

	user, err := s.users.GetByID(ctx, booking.UserID)
	if err != nil {
		return err
	}

	saunaName := booking.SaunaID
	if sauna, err := s.saunas.GetByID(ctx, booking.SaunaID); err == nil {
		saunaName = sauna.Name
	}

	data := map[string]string{
		"sauna_name": saunaName,
		"start_time": booking.StartTime.Format(time.RFC1123),
	}
	if err := s.mail.Send(ctx, user.Email, mailer.TemplateBookingReminder, data); err != nil {
		return apperrors.Internal("Failed to send reminder mail", err)
	}

	s.cfg.Log.Info("Reminder delivered",
		"booking_id", booking.ID, "recipient", user.Email, "notification_id", payload.NotificationID)
	return nil
}
