package service

import (
	"context"
	"sync"
	"testing"
	"time"

	bookingserrors "loyly/internal/bookings/errors"
	"loyly/internal/reminders/scheduler"
	"loyly/pkg/config"
	apperrors "loyly/pkg/errors"
	"loyly/pkg/logger"
	"loyly/pkg/mailer"
	"loyly/pkg/model"
)

// ────────────────────────────────────────────────
// Mocks
// ────────────────────────────────────────────────

type mockScheduler struct {
	mu        sync.Mutex
	fireAts   []time.Time
	cancelled []string
}

func (m *mockScheduler) ScheduleAt(ctx context.Context, fireAt time.Time, payload scheduler.Payload) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fireAts = append(m.fireAts, fireAt)
	return "handle-1", nil
}

func (m *mockScheduler) Cancel(ctx context.Context, handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = append(m.cancelled, handle)
	return nil
}

type mockBookingGetter struct {
	booking *model.Booking
	err     error
}

func (m *mockBookingGetter) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.booking, nil
}

type mockUserGetter struct {
	user *model.User
}

func (m *mockUserGetter) GetByID(ctx context.Context, id string) (*model.User, error) {
	return m.user, nil
}

type mockSaunaGetter struct {
	sauna *model.Sauna
	err   error
}

func (m *mockSaunaGetter) GetByID(ctx context.Context, id string) (*model.Sauna, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.sauna, nil
}

type mockMailer struct {
	mu         sync.Mutex
	sent       []mailer.TemplateKind
	recipients []string
	err        error
}

func (m *mockMailer) Send(ctx context.Context, recipient string, kind mailer.TemplateKind, data map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, kind)
	m.recipients = append(m.recipients, recipient)
	return m.err
}

// ────────────────────────────────────────────────
// Fixtures
// ────────────────────────────────────────────────

var _ scheduler.Scheduler = (*mockScheduler)(nil)

type fixture struct {
	service  ReminderService
	sched    *mockScheduler
	bookings *mockBookingGetter
	mail     *mockMailer
}

func newFixture() *fixture {
	f := &fixture{
		sched: &mockScheduler{},
		bookings: &mockBookingGetter{booking: &model.Booking{
			ID:        "6650a1b2c3d4e5f6a7b8c9bb",
			UserID:    "user-1",
			SaunaID:   "6650a1b2c3d4e5f6a7b8c9d0",
			StartTime: time.Now().Add(24 * time.Hour),
			EndTime:   time.Now().Add(25 * time.Hour),
			Status:    model.BookingActive,
		}},
		mail: &mockMailer{},
	}
	users := &mockUserGetter{user: &model.User{ID: "user-1", Email: "user@example.com"}}
	saunas := &mockSaunaGetter{sauna: &model.Sauna{ID: "6650a1b2c3d4e5f6a7b8c9d0", Name: "Lakeside"}}
	cfg := &config.Config{Log: logger.Discard(), ReminderLeadTime: time.Hour}
	f.service = NewReminderService(f.sched, f.bookings, users, saunas, f.mail, cfg)
	return f
}

// ────────────────────────────────────────────────
// ScheduleForBooking
// ────────────────────────────────────────────────

func TestScheduleForBooking_FiresOneLeadTimeBeforeStart(t *testing.T) {
	f := newFixture()
	start := time.Now().Add(24 * time.Hour).Truncate(time.Minute)
	booking := &model.Booking{ID: "6650a1b2c3d4e5f6a7b8c9bb", StartTime: start}

	handle, err := f.service.ScheduleForBooking(context.Background(), booking)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handle == "" {
		t.Fatal("expected a scheduler handle")
	}

	want := start.Add(-time.Hour)
	if len(f.sched.fireAts) != 1 || !f.sched.fireAts[0].Equal(want) {
		t.Errorf("expected fire time %v, got %v", want, f.sched.fireAts)
	}
}

func TestScheduleForBooking_SkipsInsideLeadWindow(t *testing.T) {
	f := newFixture()
	booking := &model.Booking{
		ID:        "6650a1b2c3d4e5f6a7b8c9bb",
		StartTime: time.Now().Add(30 * time.Minute),
	}

	handle, err := f.service.ScheduleForBooking(context.Background(), booking)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handle != "" {
		t.Errorf("expected no handle inside the lead window, got %q", handle)
	}
	if len(f.sched.fireAts) != 0 {
		t.Error("nothing should be scheduled inside the lead window")
	}
}

// ────────────────────────────────────────────────
// CancelForBooking
// ────────────────────────────────────────────────

func TestCancelForBooking_NoopWithoutHandle(t *testing.T) {
	f := newFixture()

	if err := f.service.CancelForBooking(context.Background(), &model.Booking{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.sched.cancelled) != 0 {
		t.Error("no cancel expected without a stored handle")
	}
}

func TestCancelForBooking_CancelsStoredHandle(t *testing.T) {
	f := newFixture()

	booking := &model.Booking{ReminderID: "handle-1"}
	if err := f.service.CancelForBooking(context.Background(), booking); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.sched.cancelled) != 1 || f.sched.cancelled[0] != "handle-1" {
		t.Errorf("expected handle-1 cancelled, got %v", f.sched.cancelled)
	}
}

// ────────────────────────────────────────────────
// HandleNotification
// ────────────────────────────────────────────────

func TestHandleNotification_SendsReminderMail(t *testing.T) {
	f := newFixture()

	err := f.service.HandleNotification(context.Background(), scheduler.Payload{BookingID: "6650a1b2c3d4e5f6a7b8c9bb"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.mail.sent) != 1 || f.mail.sent[0] != mailer.TemplateBookingReminder {
		t.Fatalf("expected one booking-reminder mail, got %v", f.mail.sent)
	}
	if f.mail.recipients[0] != "user@example.com" {
		t.Errorf("expected mail to booking owner, got %s", f.mail.recipients[0])
	}
}

func TestHandleNotification_SkipsCancelledBooking(t *testing.T) {
	f := newFixture()
	f.bookings.booking.Status = model.BookingCancelled

	err := f.service.HandleNotification(context.Background(), scheduler.Payload{BookingID: "6650a1b2c3d4e5f6a7b8c9bb"})
	if err != nil {
		t.Fatalf("cancelled booking must be skipped silently, got %v", err)
	}
	if len(f.mail.sent) != 0 {
		t.Error("no mail expected for a cancelled booking")
	}
}

func TestHandleNotification_DropsMissingBooking(t *testing.T) {
	f := newFixture()
	f.bookings.err = bookingserrors.ErrNotFound

	err := f.service.HandleNotification(context.Background(), scheduler.Payload{BookingID: "6650a1b2c3d4e5f6a7b8c9bb"})
	if err != nil {
		t.Fatalf("missing booking must be dropped silently, got %v", err)
	}
	if len(f.mail.sent) != 0 {
		t.Error("no mail expected for a missing booking")
	}
}

func TestHandleNotification_ReturnsMailFailure(t *testing.T) {
	f := newFixture()
	f.mail.err = apperrors.Internal("smtp down", nil)

	err := f.service.HandleNotification(context.Background(), scheduler.Payload{BookingID: "6650a1b2c3d4e5f6a7b8c9bb"})
	if err == nil {
		t.Fatal("mail failure must surface so the runner can retry")
	}
}
