package service

import (
	"context"
	"errors"
	"time"

	waitlisterrors "loyly/internal/waitlist/errors"
	"loyly/internal/waitlist/repository"
	"loyly/pkg/config"
	apperrors "loyly/pkg/errors"
	"loyly/pkg/mailer"
	"loyly/pkg/model"
)

// AccessChecker gates waitlist actions the same way bookings are gated.
type AccessChecker interface {
	CanBook(ctx context.Context, userID, saunaID string) error
}

// SaunaGetter resolves saunas for capacity checks and mail content.
type SaunaGetter interface {
	GetByID(ctx context.Context, id string) (*model.Sauna, error)
}

// UserGetter resolves the queued user's address when a slot frees up.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// SlotOccupancy reports how many active bookings overlap a slot. Implemented
// by the bookings repository.
type SlotOccupancy interface {
	CountActiveOverlapping(ctx context.Context, saunaID string, start, end time.Time) (int64, error)
}

type WaitlistService interface {
	Join(ctx context.Context, userID, saunaID string, slotTime time.Time, bookingID string) (*model.WaitlistStatus, error)
	ListForUser(ctx context.Context, userID string) ([]*model.WaitlistStatus, error)
	Leave(ctx context.Context, userID, saunaID string, slotTime time.Time) error
	NotifyNext(ctx context.Context, saunaID string, slotTime time.Time) error
}

type waitlistService struct {
	repo     repository.WaitlistRepository
	access   AccessChecker
	saunas   SaunaGetter
	users    UserGetter
	bookings SlotOccupancy
	mail     mailer.Mailer
	cfg      *config.Config
}

func NewWaitlistService(
	repo repository.WaitlistRepository,
	access AccessChecker,
	saunas SaunaGetter,
	users UserGetter,
	bookings SlotOccupancy,
	mail mailer.Mailer,
	cfg *config.Config,
) WaitlistService {
	return &waitlistService{
		repo:     repo,
		access:   access,
		saunas:   saunas,
		users:    users,
		bookings: bookings,
		mail:     mail,
		cfg:      cfg,
	}
}

// Join queues the user for a full future slot. Joining a slot that still has
// availability is rejected: the user should just book it.
func (s *waitlistService) Join(ctx context.Context, userID, saunaID string, slotTime time.Time, bookingID string) (*model.WaitlistStatus, error) {
	if err := s.access.CanBook(ctx, userID, saunaID); err != nil {
		return nil, err
	}

	sauna, err := s.saunas.GetByID(ctx, saunaID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if !slotTime.After(now) {
		return nil, apperrors.InvalidInput("Waitlist slot time must be in the future")
	}

	slotEnd := slotTime.Add(time.Duration(sauna.SlotDurationMinutes) * time.Minute)
	occupied, err := s.bookings.CountActiveOverlapping(ctx, saunaID, slotTime, slotEnd)
	if err != nil {
		return nil, apperrors.Internal("Failed to check slot occupancy", err)
	}
	if occupied < int64(sauna.MaxConcurrentBookings) {
		return nil, apperrors.InvalidInput("This slot still has availability, book it directly")
	}

	entry := &model.WaitlistEntry{
		SaunaID:   saunaID,
		UserID:    userID,
		SlotTime:  slotTime,
		BookingID: bookingID,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		if errors.Is(err, waitlisterrors.ErrAlreadyQueued) {
			return nil, apperrors.Conflict("You are already on the waitlist for this slot")
		}
		return nil, apperrors.Internal("Failed to join waitlist", err)
	}

	position, err := s.repo.CountEarlier(ctx, entry)
	if err != nil {
		s.cfg.Log.Error("Failed to derive waitlist position", "entry_id", entry.ID, "error", err)
		position = 0
	}

	s.cfg.Log.Info("Waitlist joined",
		"sauna_id", saunaID, "user_id", userID, "slot_time", slotTime, "position", position+1)

	return &model.WaitlistStatus{Entry: *entry, Position: position + 1}, nil
}

func (s *waitlistService) ListForUser(ctx context.Context, userID string) ([]*model.WaitlistStatus, error) {
	entries, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to list waitlist entries", err)
	}

	statuses := make([]*model.WaitlistStatus, 0, len(entries))
	for _, entry := range entries {
		position, err := s.repo.CountEarlier(ctx, entry)
		if err != nil {
			return nil, apperrors.Internal("Failed to derive waitlist position", err)
		}
		statuses = append(statuses, &model.WaitlistStatus{Entry: *entry, Position: position + 1})
	}
	return statuses, nil
}

func (s *waitlistService) Leave(ctx context.Context, userID, saunaID string, slotTime time.Time) error {
	if err := s.repo.Delete(ctx, userID, saunaID, slotTime); err != nil {
		if errors.Is(err, waitlisterrors.ErrNotFound) {
			return apperrors.NotFound("Waitlist entry")
		}
		return apperrors.Internal("Failed to leave waitlist", err)
	}

	s.cfg.Log.Info("Waitlist left", "sauna_id", saunaID, "user_id", userID, "slot_time", slotTime)
	return nil
}

// NotifyNext moves the FIFO head to notified and mails them about the freed
// slot. One cancellation notifies exactly one entry: the entry is consumed
// even when the mail fails, because re-notifying later would double-promise
// the same seat.
func (s *waitlistService) NotifyNext(ctx context.Context, saunaID string, slotTime time.Time) error {
	entry, err := s.repo.FindNextUnnotified(ctx, saunaID, slotTime)
	if err != nil {
		if errors.Is(err, waitlisterrors.ErrNotFound) {
			return nil
		}
		return apperrors.Internal("Failed to read waitlist head", err)
	}

	if err := s.repo.MarkNotified(ctx, entry.ID); err != nil {
		return apperrors.Internal("Failed to consume waitlist entry", err)
	}

	s.cfg.Log.Info("Waitlist entry notified",
		"entry_id", entry.ID, "sauna_id", saunaID, "user_id", entry.UserID, "slot_time", slotTime)

	user, err := s.users.GetByID(ctx, entry.UserID)
	if err != nil {
		s.cfg.Log.Error("Failed to resolve waitlisted user for mail",
			"entry_id", entry.ID, "user_id", entry.UserID, "error", err)
		return nil
	}

	saunaName := saunaID
	if sauna, err := s.saunas.GetByID(ctx, saunaID); err == nil {
		saunaName = sauna.Name
	}

	data := map[string]string{
		"sauna_name": saunaName,
		"slot_time":  slotTime.Format(time.RFC1123),
	}
	if err := s.mail.Send(ctx, user.Email, mailer.TemplateWaitlistAvailable, data); err != nil {
		s.cfg.Log.Error("Failed to send waitlist mail",
			"entry_id", entry.ID, "recipient", user.Email, "error", err)
	}

	return nil
}
