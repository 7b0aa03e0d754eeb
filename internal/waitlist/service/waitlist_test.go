package service

import (
	"context"
	"sync"
	"testing"
	"time"

	waitlisterrors "loyly/internal/waitlist/errors"
	"loyly/internal/waitlist/repository"
	"loyly/pkg/config"
	apperrors "loyly/pkg/errors"
	"loyly/pkg/logger"
	"loyly/pkg/mailer"
	"loyly/pkg/model"
)

// ────────────────────────────────────────────────
// Mocks
// ────────────────────────────────────────────────

type mockWaitlistRepository struct {
	createFunc       func(ctx context.Context, entry *model.WaitlistEntry) error
	findNextFunc     func(ctx context.Context, saunaID string, slotTime time.Time) (*model.WaitlistEntry, error)
	countEarlierFunc func(ctx context.Context, entry *model.WaitlistEntry) (int64, error)
	deleteFunc       func(ctx context.Context, userID, saunaID string, slotTime time.Time) error

	mu            sync.Mutex
	notifiedIDs   []string
	markNotifyErr error
}

func (m *mockWaitlistRepository) Create(ctx context.Context, entry *model.WaitlistEntry) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, entry)
	}
	entry.ID = "6650a1b2c3d4e5f6a7b8c9aa"
	return nil
}

func (m *mockWaitlistRepository) FindEntry(ctx context.Context, userID, saunaID string, slotTime time.Time) (*model.WaitlistEntry, error) {
	return nil, waitlisterrors.ErrNotFound
}

func (m *mockWaitlistRepository) FindByUser(ctx context.Context, userID string) ([]*model.WaitlistEntry, error) {
	return nil, nil
}

func (m *mockWaitlistRepository) FindNextUnnotified(ctx context.Context, saunaID string, slotTime time.Time) (*model.WaitlistEntry, error) {
	if m.findNextFunc != nil {
		return m.findNextFunc(ctx, saunaID, slotTime)
	}
	return nil, waitlisterrors.ErrNotFound
}

func (m *mockWaitlistRepository) CountEarlier(ctx context.Context, entry *model.WaitlistEntry) (int64, error) {
	if m.countEarlierFunc != nil {
		return m.countEarlierFunc(ctx, entry)
	}
	return 0, nil
}

func (m *mockWaitlistRepository) MarkNotified(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markNotifyErr != nil {
		return m.markNotifyErr
	}
	m.notifiedIDs = append(m.notifiedIDs, id)
	return nil
}

func (m *mockWaitlistRepository) Delete(ctx context.Context, userID, saunaID string, slotTime time.Time) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, userID, saunaID, slotTime)
	}
	return nil
}

func (m *mockWaitlistRepository) DeleteBySauna(ctx context.Context, saunaID string) (int64, error) {
	return 0, nil
}

type mockAccessChecker struct {
	err error
}

func (m *mockAccessChecker) CanBook(ctx context.Context, userID, saunaID string) error {
	return m.err
}

type mockSaunaGetter struct {
	sauna *model.Sauna
}

func (m *mockSaunaGetter) GetByID(ctx context.Context, id string) (*model.Sauna, error) {
	return m.sauna, nil
}

type mockUserGetter struct {
	user *model.User
	err  error
}

func (m *mockUserGetter) GetByID(ctx context.Context, id string) (*model.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

type mockSlotOccupancy struct {
	count int64
}

func (m *mockSlotOccupancy) CountActiveOverlapping(ctx context.Context, saunaID string, start, end time.Time) (int64, error) {
	return m.count, nil
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

var _ repository.WaitlistRepository = (*mockWaitlistRepository)(nil)

const occupyingBookingID = "6650a1b2c3d4e5f6a7b8c9bb"

type fixture struct {
	service  WaitlistService
	repo     *mockWaitlistRepository
	access   *mockAccessChecker
	bookings *mockSlotOccupancy
	mail     *mockMailer
}

func newFixture() *fixture {
	sauna := &model.Sauna{
		ID:                    "6650a1b2c3d4e5f6a7b8c9d0",
		Name:                  "Lakeside",
		SlotDurationMinutes:   60,
		MaxConcurrentBookings: 1,
	}
	f := &fixture{
		repo:     &mockWaitlistRepository{},
		access:   &mockAccessChecker{},
		bookings: &mockSlotOccupancy{count: 1},
		mail:     &mockMailer{},
	}
	users := &mockUserGetter{user: &model.User{ID: "user-1", Email: "user@example.com"}}
	cfg := &config.Config{Log: logger.Discard()}
	f.service = NewWaitlistService(f.repo, f.access, &mockSaunaGetter{sauna: sauna}, users, f.bookings, f.mail, cfg)
	return f
}

func futureSlot() time.Time {
	return time.Now().Add(24 * time.Hour).Truncate(time.Hour)
}

// ────────────────────────────────────────────────
// Join
// ────────────────────────────────────────────────

func TestJoin_RejectsAvailableSlot(t *testing.T) {
	f := newFixture()
	f.bookings.count = 0

	_, err := f.service.Join(context.Background(), "user-1", "6650a1b2c3d4e5f6a7b8c9d0", futureSlot(), occupyingBookingID)
	if !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT for slot with availability, got %v", err)
	}
}

func TestJoin_RejectsPastSlot(t *testing.T) {
	f := newFixture()

	_, err := f.service.Join(context.Background(), "user-1", "6650a1b2c3d4e5f6a7b8c9d0", time.Now().Add(-time.Hour), occupyingBookingID)
	if !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT for past slot, got %v", err)
	}
}

func TestJoin_DuplicateConflicts(t *testing.T) {
	f := newFixture()
	f.repo.createFunc = func(ctx context.Context, entry *model.WaitlistEntry) error {
		return waitlisterrors.ErrAlreadyQueued
	}

	_, err := f.service.Join(context.Background(), "user-1", "6650a1b2c3d4e5f6a7b8c9d0", futureSlot(), occupyingBookingID)
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected CONFLICT for duplicate join, got %v", err)
	}
}

func TestJoin_AccessDenied(t *testing.T) {
	f := newFixture()
	f.access.err = apperrors.Forbidden("no access")

	_, err := f.service.Join(context.Background(), "user-1", "6650a1b2c3d4e5f6a7b8c9d0", futureSlot(), occupyingBookingID)
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestJoin_ReturnsQueuePosition(t *testing.T) {
	f := newFixture()
	f.repo.countEarlierFunc = func(ctx context.Context, entry *model.WaitlistEntry) (int64, error) {
		return 2, nil
	}

	status, err := f.service.Join(context.Background(), "user-1", "6650a1b2c3d4e5f6a7b8c9d0", futureSlot(), occupyingBookingID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Position != 3 {
		t.Errorf("expected 1-based position 3 behind two earlier entries, got %d", status.Position)
	}
}

// ────────────────────────────────────────────────
// NotifyNext
// ────────────────────────────────────────────────

func TestNotifyNext_EmptyQueueIsNoop(t *testing.T) {
	f := newFixture()

	if err := f.service.NotifyNext(context.Background(), "6650a1b2c3d4e5f6a7b8c9d0", futureSlot()); err != nil {
		t.Fatalf("empty queue must not error, got %v", err)
	}
	if len(f.mail.sent) != 0 {
		t.Error("no mail expected for empty queue")
	}
}

func TestNotifyNext_ConsumesHeadAndMails(t *testing.T) {
	f := newFixture()
	slot := futureSlot()
	f.repo.findNextFunc = func(ctx context.Context, saunaID string, slotTime time.Time) (*model.WaitlistEntry, error) {
		return &model.WaitlistEntry{
			ID:       "6650a1b2c3d4e5f6a7b8c9aa",
			SaunaID:  saunaID,
			UserID:   "user-1",
			SlotTime: slotTime,
		}, nil
	}

	if err := f.service.NotifyNext(context.Background(), "6650a1b2c3d4e5f6a7b8c9d0", slot); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.repo.notifiedIDs) != 1 {
		t.Fatalf("expected exactly one entry consumed, got %d", len(f.repo.notifiedIDs))
	}
	if len(f.mail.sent) != 1 || f.mail.sent[0] != mailer.TemplateWaitlistAvailable {
		t.Fatalf("expected one waitlist-available mail, got %v", f.mail.sent)
	}
	if f.mail.recipients[0] != "user@example.com" {
		t.Errorf("expected mail to queued user, got %s", f.mail.recipients[0])
	}
}

func TestNotifyNext_MailFailureStillConsumesEntry(t *testing.T) {
	f := newFixture()
	f.mail.err = apperrors.Internal("smtp down", nil)
	f.repo.findNextFunc = func(ctx context.Context, saunaID string, slotTime time.Time) (*model.WaitlistEntry, error) {
		return &model.WaitlistEntry{ID: "6650a1b2c3d4e5f6a7b8c9aa", UserID: "user-1"}, nil
	}

	if err := f.service.NotifyNext(context.Background(), "6650a1b2c3d4e5f6a7b8c9d0", futureSlot()); err != nil {
		t.Fatalf("mail failure must not bubble up, got %v", err)
	}
	if len(f.repo.notifiedIDs) != 1 {
		t.Error("entry must be consumed even when the mail fails")
	}
}

// ────────────────────────────────────────────────
// Leave
// ────────────────────────────────────────────────

func TestLeave_NotFound(t *testing.T) {
	f := newFixture()
	f.repo.deleteFunc = func(ctx context.Context, userID, saunaID string, slotTime time.Time) error {
		return waitlisterrors.ErrNotFound
	}

	err := f.service.Leave(context.Background(), "user-1", "6650a1b2c3d4e5f6a7b8c9d0", futureSlot())
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}
