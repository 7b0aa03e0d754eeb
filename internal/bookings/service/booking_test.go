package service

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"loyly/internal/bookings/repository"
	"loyly/pkg/config"
	mongotx "loyly/pkg/db/mongo"
	apperrors "loyly/pkg/errors"
	"loyly/pkg/logger"
	"loyly/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// ────────────────────────────────────────────────
// Mocks
// ────────────────────────────────────────────────

type mockBookingRepository struct {
	mu       sync.Mutex
	bookings []*model.Booking
	nextID   int

	findByIDFunc     func(ctx context.Context, id string) (*model.Booking, error)
	findByUserFunc   func(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error)
	countByUserFunc  func(ctx context.Context, userID string) (int64, error)
	updateStatusFunc func(ctx context.Context, id string, status model.BookingStatus) error

	setReminderCalls []string
}

func (m *mockBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	booking.ID = "booking-" + strconv.Itoa(m.nextID)
	copied := *booking
	m.bookings = append(m.bookings, &copied)
	return nil
}

func (m *mockBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockBookingRepository) FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error) {
	if m.findByUserFunc != nil {
		return m.findByUserFunc(ctx, userID, limit, offset)
	}
	return nil, nil
}

func (m *mockBookingRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	if m.countByUserFunc != nil {
		return m.countByUserFunc(ctx, userID)
	}
	return 0, nil
}

func (m *mockBookingRepository) FindActiveBySaunaBetween(ctx context.Context, saunaID string, start, end time.Time) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Booking
	for _, b := range m.bookings {
		if b.SaunaID == saunaID && b.Status == model.BookingActive && b.Overlaps(start, end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockBookingRepository) CountActiveOverlapping(ctx context.Context, saunaID string, start, end time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, b := range m.bookings {
		if b.SaunaID == saunaID && b.Status == model.BookingActive && b.Overlaps(start, end) {
			count++
		}
	}
	return count, nil
}

func (m *mockBookingRepository) CountActiveByUser(ctx context.Context, saunaID, userID string, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, b := range m.bookings {
		if b.SaunaID == saunaID && b.UserID == userID && b.Status == model.BookingActive && b.EndTime.After(now) {
			count++
		}
	}
	return count, nil
}

func (m *mockBookingRepository) UpdateStatus(ctx context.Context, id string, status model.BookingStatus) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *mockBookingRepository) SetReminderID(ctx context.Context, id, reminderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setReminderCalls = append(m.setReminderCalls, reminderID)
	return nil
}

func (m *mockBookingRepository) CancelFutureBySauna(ctx context.Context, saunaID string, now time.Time) (int64, error) {
	return 0, nil
}

func (m *mockBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

type mockSlotLockRepository struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMockSlotLockRepository() *mockSlotLockRepository {
	return &mockSlotLockRepository{held: make(map[string]bool)}
}

func (m *mockSlotLockRepository) Create(ctx context.Context, lock *model.SlotLock) (*model.SlotLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[lock.ID] {
		return nil, mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
	}
	m.held[lock.ID] = true
	return lock, nil
}

func (m *mockSlotLockRepository) Delete(ctx context.Context, lockID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, lockID)
	return nil
}

type mockAccessChecker struct {
	err error
}

func (m *mockAccessChecker) CanBook(ctx context.Context, userID, saunaID string) error {
	return m.err
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

type mockWaitlistNotifier struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockWaitlistNotifier) NotifyNext(ctx context.Context, saunaID string, slotTime time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.err
}

type mockReminderScheduler struct {
	mu          sync.Mutex
	scheduled   int
	cancelled   int
	handle      string
	scheduleErr error
}

func (m *mockReminderScheduler) ScheduleForBooking(ctx context.Context, booking *model.Booking) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scheduled++
	return m.handle, m.scheduleErr
}

func (m *mockReminderScheduler) CancelForBooking(ctx context.Context, booking *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled++
	return nil
}

// ────────────────────────────────────────────────
// Fixtures
// ────────────────────────────────────────────────

func testConfig() *config.Config {
	return &config.Config{
		Log:         logger.Discard(),
		SlotLockTTL: 10 * time.Second,
	}
}

func testSauna() *model.Sauna {
	return &model.Sauna{
		ID:                  "6650a1b2c3d4e5f6a7b8c9d0",
		Name:                "Lakeside",
		SlotDurationMinutes: 60,
		OperatingHours: model.OperatingHours{
			Weekday: model.TimeRange{Start: "09:00", End: "17:00"},
			Weekend: model.TimeRange{Start: "09:00", End: "17:00"},
		},
		MaxConcurrentBookings: 1,
		MaxTotalBookings:      2,
	}
}

// alignedFutureStart returns tomorrow 10:00 local, always on the slot grid of
// a 09:00-opening sauna with 60-minute slots.
func alignedFutureStart() time.Time {
	tomorrow := time.Now().AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 10, 0, 0, 0, tomorrow.Location())
}

type serviceFixture struct {
	service   BookingService
	repo      *mockBookingRepository
	locks     *mockSlotLockRepository
	access    *mockAccessChecker
	saunas    *mockSaunaGetter
	waitlist  *mockWaitlistNotifier
	reminders *mockReminderScheduler
}

func newFixture() *serviceFixture {
	f := &serviceFixture{
		repo:      &mockBookingRepository{},
		locks:     newMockSlotLockRepository(),
		access:    &mockAccessChecker{},
		saunas:    &mockSaunaGetter{sauna: testSauna()},
		waitlist:  &mockWaitlistNotifier{},
		reminders: &mockReminderScheduler{handle: "reminder-1"},
	}
	f.service = NewBookingService(f.repo, f.locks, f.access, f.saunas, f.waitlist, f.reminders, testConfig())
	return f
}

var _ repository.BookingRepository = (*mockBookingRepository)(nil)
var _ repository.SlotLockRepository = (*mockSlotLockRepository)(nil)

// ────────────────────────────────────────────────
// Create
// ────────────────────────────────────────────────

func TestCreate_AccessDenied(t *testing.T) {
	f := newFixture()
	f.access.err = apperrors.Forbidden("You do not have access to this sauna")

	_, err := f.service.Create(context.Background(), "user-1", f.saunas.sauna.ID, alignedFutureStart())
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestCreate_PastStartRejected(t *testing.T) {
	f := newFixture()

	_, err := f.service.Create(context.Background(), "user-1", f.saunas.sauna.ID, time.Now().Add(-time.Hour))
	if !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT for past start, got %v", err)
	}
}

func TestCreate_MisalignedStartRejected(t *testing.T) {
	f := newFixture()

	_, err := f.service.Create(context.Background(), "user-1", f.saunas.sauna.ID, alignedFutureStart().Add(15*time.Minute))
	if !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT for off-grid start, got %v", err)
	}
}

func TestCreate_OutsideOperatingHoursRejected(t *testing.T) {
	f := newFixture()
	tomorrow := time.Now().AddDate(0, 0, 1)
	lateNight := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 22, 0, 0, 0, tomorrow.Location())

	_, err := f.service.Create(context.Background(), "user-1", f.saunas.sauna.ID, lateNight)
	if !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT for slot outside operating hours, got %v", err)
	}
}

func TestCreate_Success(t *testing.T) {
	f := newFixture()
	start := alignedFutureStart()

	booking, err := f.service.Create(context.Background(), "user-1", f.saunas.sauna.ID, start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if booking.Status != model.BookingActive {
		t.Errorf("expected active status, got %s", booking.Status)
	}
	if !booking.EndTime.Equal(start.Add(time.Hour)) {
		t.Errorf("expected end one hour after start, got %v", booking.EndTime)
	}
	if f.reminders.scheduled != 1 {
		t.Errorf("expected 1 reminder scheduled, got %d", f.reminders.scheduled)
	}
	if booking.ReminderID != "reminder-1" {
		t.Errorf("expected reminder handle persisted on booking, got %q", booking.ReminderID)
	}
	if len(f.locks.held) != 0 {
		t.Error("slot lock must be released after creation")
	}
}

func TestCreate_ReminderFailureDoesNotFailBooking(t *testing.T) {
	f := newFixture()
	f.reminders.scheduleErr = apperrors.Internal("broker down", nil)

	booking, err := f.service.Create(context.Background(), "user-1", f.saunas.sauna.ID, alignedFutureStart())
	if err != nil {
		t.Fatalf("booking must survive reminder failure, got %v", err)
	}
	if booking.ReminderID != "" {
		t.Errorf("expected no reminder handle, got %q", booking.ReminderID)
	}
}

func TestCreate_UserQuotaExceeded(t *testing.T) {
	f := newFixture()
	saunaID := f.saunas.sauna.ID
	start := alignedFutureStart()

	for i := 0; i < 2; i++ {
		if _, err := f.service.Create(context.Background(), "user-1", saunaID, start.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("setup booking %d failed: %v", i, err)
		}
	}

	_, err := f.service.Create(context.Background(), "user-1", saunaID, start.Add(3*time.Hour))
	if !apperrors.HasCode(err, apperrors.CodeLimitExceeded) {
		t.Fatalf("expected LIMIT_EXCEEDED at the total-bookings cap, got %v", err)
	}
}

func TestCreate_SlotFull(t *testing.T) {
	f := newFixture()
	start := alignedFutureStart()

	if _, err := f.service.Create(context.Background(), "user-1", f.saunas.sauna.ID, start); err != nil {
		t.Fatalf("setup booking failed: %v", err)
	}

	_, err := f.service.Create(context.Background(), "user-2", f.saunas.sauna.ID, start)
	if !apperrors.HasCode(err, apperrors.CodeLimitExceeded) {
		t.Fatalf("expected LIMIT_EXCEEDED for full slot, got %v", err)
	}
}

func TestCreate_SlotLockContention(t *testing.T) {
	f := newFixture()
	start := alignedFutureStart()

	// Simulate another request holding the lock.
	f.locks.held["slot_lock_"+f.saunas.sauna.ID+"_"+timestamp(start)] = true

	_, err := f.service.Create(context.Background(), "user-1", f.saunas.sauna.ID, start)
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected CONFLICT while lock is held, got %v", err)
	}
}

func TestCreate_ConcurrentLastSeat(t *testing.T) {
	f := newFixture()
	start := alignedFutureStart()
	saunaID := f.saunas.sauna.ID

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := f.service.Create(context.Background(), userName(n), saunaID, start)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case apperrors.HasCode(err, apperrors.CodeLimitExceeded),
			apperrors.HasCode(err, apperrors.CodeConflict):
		default:
			t.Errorf("unexpected error under contention: %v", err)
		}
	}

	if successes != 1 {
		t.Fatalf("expected exactly one successful booking for the last seat, got %d", successes)
	}
}

// ────────────────────────────────────────────────
// Cancel
// ────────────────────────────────────────────────

func futureBooking(userID string) *model.Booking {
	start := alignedFutureStart()
	return &model.Booking{
		ID:        "6650a1b2c3d4e5f6a7b8c9d1",
		SaunaID:   "6650a1b2c3d4e5f6a7b8c9d0",
		UserID:    userID,
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Status:    model.BookingActive,
	}
}

func TestCancel_NotOwnerForbidden(t *testing.T) {
	f := newFixture()
	booking := futureBooking("owner")
	f.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return booking, nil
	}

	err := f.service.Cancel(context.Background(), "intruder", booking.ID)
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
	if f.waitlist.calls != 0 {
		t.Error("waitlist must not be notified on rejected cancel")
	}
}

func TestCancel_StartedBookingInvalid(t *testing.T) {
	f := newFixture()
	booking := futureBooking("user-1")
	booking.StartTime = time.Now().Add(-30 * time.Minute)
	booking.EndTime = time.Now().Add(30 * time.Minute)
	f.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return booking, nil
	}

	err := f.service.Cancel(context.Background(), "user-1", booking.ID)
	if !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT for started booking, got %v", err)
	}
}

func TestCancel_CancelledBookingConflicts(t *testing.T) {
	f := newFixture()
	booking := futureBooking("user-1")
	booking.Status = model.BookingCancelled
	f.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return booking, nil
	}

	err := f.service.Cancel(context.Background(), "user-1", booking.ID)
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected CONFLICT for already-cancelled booking, got %v", err)
	}
}

func TestCancel_NotifiesWaitlistExactlyOnce(t *testing.T) {
	f := newFixture()
	booking := futureBooking("user-1")
	booking.ReminderID = "reminder-1"
	f.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return booking, nil
	}

	var updated []model.BookingStatus
	f.repo.updateStatusFunc = func(ctx context.Context, id string, status model.BookingStatus) error {
		updated = append(updated, status)
		return nil
	}

	if err := f.service.Cancel(context.Background(), "user-1", booking.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(updated) != 1 || updated[0] != model.BookingCancelled {
		t.Fatalf("expected one cancelled status write, got %v", updated)
	}
	if f.waitlist.calls != 1 {
		t.Errorf("expected exactly one waitlist notification, got %d", f.waitlist.calls)
	}
	if f.reminders.cancelled != 1 {
		t.Errorf("expected reminder cancellation, got %d", f.reminders.cancelled)
	}
}

func TestCancel_WaitlistFailureDoesNotFailCancel(t *testing.T) {
	f := newFixture()
	booking := futureBooking("user-1")
	f.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return booking, nil
	}
	f.waitlist.err = apperrors.Internal("mail down", nil)

	if err := f.service.Cancel(context.Background(), "user-1", booking.ID); err != nil {
		t.Fatalf("cancel must survive waitlist failure, got %v", err)
	}
}

func TestCancelAdmin_AllowsForeignBooking(t *testing.T) {
	f := newFixture()
	booking := futureBooking("someone-else")
	f.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return booking, nil
	}

	if err := f.service.CancelAdmin(context.Background(), booking.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.waitlist.calls != 1 {
		t.Errorf("expected waitlist notification after admin cancel, got %d", f.waitlist.calls)
	}
}

// ────────────────────────────────────────────────
// ListForUser
// ────────────────────────────────────────────────

func TestListForUser_DerivesCompletedStatus(t *testing.T) {
	f := newFixture()
	past := &model.Booking{
		ID:        "6650a1b2c3d4e5f6a7b8c9d2",
		UserID:    "user-1",
		StartTime: time.Now().Add(-2 * time.Hour),
		EndTime:   time.Now().Add(-time.Hour),
		Status:    model.BookingActive,
	}
	f.repo.findByUserFunc = func(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error) {
		return []*model.Booking{past}, nil
	}

	bookings, _, err := f.service.ListForUser(context.Background(), "user-1", 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bookings[0].Status != model.BookingCompleted {
		t.Errorf("expected derived completed status, got %s", bookings[0].Status)
	}
}

func TestListForUser_PaginatesAndCounts(t *testing.T) {
	f := newFixture()
	var gotLimit int
	var gotOffset int64
	f.repo.findByUserFunc = func(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error) {
		gotLimit, gotOffset = limit, offset
		return []*model.Booking{futureBooking("user-1")}, nil
	}
	f.repo.countByUserFunc = func(ctx context.Context, userID string) (int64, error) {
		return 42, nil
	}

	bookings, total, err := f.service.ListForUser(context.Background(), "user-1", 5, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLimit != 5 || gotOffset != 10 {
		t.Errorf("expected limit 5 offset 10 passed through, got %d/%d", gotLimit, gotOffset)
	}
	if total != 42 {
		t.Errorf("expected total from count, got %d", total)
	}
	if len(bookings) != 1 {
		t.Errorf("expected the fetched page, got %d bookings", len(bookings))
	}
}

// ────────────────────────────────────────────────
// helpers
// ────────────────────────────────────────────────

func timestamp(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}

func userName(n int) string {
	return "user-" + strconv.Itoa(n)
}
