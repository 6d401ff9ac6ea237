package service

import (
	"context"
	"errors"
	"testing"
	"time"

	bookingerrors "shelterwalk/internal/booking/errors"
	"shelterwalk/internal/booking/validator"
	"shelterwalk/internal/events"
	"shelterwalk/pkg/config"
	apperrors "shelterwalk/pkg/errors"
	"shelterwalk/pkg/logger"
	"shelterwalk/pkg/model"

	mongotx "shelterwalk/pkg/db/mongo"

	"go.mongodb.org/mongo-driver/mongo"
)

// fixedNow anchors every time-dependent check: 10:00 UTC on 2024-01-01.
var fixedNow = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

// --- Mocks ---

type mockBookingRepo struct {
	CreateFunc                  func(ctx context.Context, booking *model.Booking) error
	FindByIDFunc                func(ctx context.Context, id string) (*model.Booking, error)
	FindScheduledBySlotFunc     func(ctx context.Context, dogID, date, scheduledTime, excludeID string) (*model.Booking, error)
	FindScheduledByUserDateFunc func(ctx context.Context, userID, date, excludeID string) (*model.Booking, error)
	FindUpcomingByUserFunc      func(ctx context.Context, userID, fromDate string) ([]*model.Booking, error)
	FindByDateFunc              func(ctx context.Context, date string) ([]*model.Booking, error)
	MarkCancelledFunc           func(ctx context.Context, id, reason string, at time.Time) error
	MarkCompletedFunc           func(ctx context.Context, id string, at time.Time) error
	SetNotesFunc                func(ctx context.Context, id, notes string) error

	txDepth int
}

func (m *mockBookingRepo) EnsureIndexes(ctx context.Context) error { return nil }

func (m *mockBookingRepo) Create(ctx context.Context, booking *model.Booking) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, booking)
	}
	booking.ID = "new-booking"
	return nil
}

func (m *mockBookingRepo) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, bookingerrors.ErrNotFound
}

func (m *mockBookingRepo) FindScheduledBySlot(ctx context.Context, dogID, date, scheduledTime, excludeID string) (*model.Booking, error) {
	if m.FindScheduledBySlotFunc != nil {
		return m.FindScheduledBySlotFunc(ctx, dogID, date, scheduledTime, excludeID)
	}
	return nil, nil
}

func (m *mockBookingRepo) FindScheduledByUserDate(ctx context.Context, userID, date, excludeID string) (*model.Booking, error) {
	if m.FindScheduledByUserDateFunc != nil {
		return m.FindScheduledByUserDateFunc(ctx, userID, date, excludeID)
	}
	return nil, nil
}

func (m *mockBookingRepo) FindUpcomingByUser(ctx context.Context, userID, fromDate string) ([]*model.Booking, error) {
	if m.FindUpcomingByUserFunc != nil {
		return m.FindUpcomingByUserFunc(ctx, userID, fromDate)
	}
	return nil, nil
}

func (m *mockBookingRepo) FindByDate(ctx context.Context, date string) ([]*model.Booking, error) {
	if m.FindByDateFunc != nil {
		return m.FindByDateFunc(ctx, date)
	}
	return nil, nil
}

func (m *mockBookingRepo) MarkCancelled(ctx context.Context, id, reason string, at time.Time) error {
	if m.MarkCancelledFunc != nil {
		return m.MarkCancelledFunc(ctx, id, reason, at)
	}
	return nil
}

func (m *mockBookingRepo) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	if m.MarkCompletedFunc != nil {
		return m.MarkCompletedFunc(ctx, id, at)
	}
	return nil
}

func (m *mockBookingRepo) SetNotes(ctx context.Context, id, notes string) error {
	if m.SetNotesFunc != nil {
		return m.SetNotesFunc(ctx, id, notes)
	}
	return nil
}

func (m *mockBookingRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	m.txDepth++
	defer func() { m.txDepth-- }()
	return fn(mongo.NewSessionContext(ctx, nil))
}

type mockSlotLockRepo struct {
	AcquireFunc  func(ctx context.Context, lock *model.SlotLock) error
	ReleaseFunc  func(ctx context.Context, lockID string) error
	acquireCalls int
	releaseCalls int
}

func (m *mockSlotLockRepo) EnsureIndexes(ctx context.Context) error { return nil }

func (m *mockSlotLockRepo) Acquire(ctx context.Context, lock *model.SlotLock) error {
	m.acquireCalls++
	if m.AcquireFunc != nil {
		return m.AcquireFunc(ctx, lock)
	}
	return nil
}

func (m *mockSlotLockRepo) Release(ctx context.Context, lockID string) error {
	m.releaseCalls++
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, lockID)
	}
	return nil
}

type mockUserRepo struct {
	FindByIDFunc      func(ctx context.Context, id string) (*model.User, error)
	TouchActivityFunc func(ctx context.Context, id string, at time.Time) error
}

func (m *mockUserRepo) EnsureIndexes(ctx context.Context) error { return nil }

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return activeUser(), nil
}

func (m *mockUserRepo) TouchActivity(ctx context.Context, id string, at time.Time) error {
	if m.TouchActivityFunc != nil {
		return m.TouchActivityFunc(ctx, id, at)
	}
	return nil
}

func (m *mockUserRepo) SetLevel(ctx context.Context, id string, level model.Level) error {
	return nil
}

func (m *mockUserRepo) Deactivate(ctx context.Context, id, reason string, at time.Time) error {
	return nil
}

func (m *mockUserRepo) Reactivate(ctx context.Context, id string, at time.Time) error {
	return nil
}

func (m *mockUserRepo) FindDormant(ctx context.Context, inactiveSince time.Time) ([]*model.User, error) {
	return nil, nil
}

type mockDogRepo struct {
	FindByIDFunc func(ctx context.Context, id string) (*model.Dog, error)
}

func (m *mockDogRepo) FindByID(ctx context.Context, id string) (*model.Dog, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return availableDog(), nil
}

func (m *mockDogRepo) FindAll(ctx context.Context) ([]*model.Dog, error) { return nil, nil }

func (m *mockDogRepo) SetAvailability(ctx context.Context, id string, available bool, reason string) error {
	return nil
}

type mockBlockedDateRepo struct {
	IsBlockedFunc func(ctx context.Context, date string) (bool, error)
}

func (m *mockBlockedDateRepo) IsBlocked(ctx context.Context, date string) (bool, error) {
	if m.IsBlockedFunc != nil {
		return m.IsBlockedFunc(ctx, date)
	}
	return false, nil
}

func (m *mockBlockedDateRepo) FindAll(ctx context.Context) ([]*model.BlockedDate, error) {
	return nil, nil
}

func (m *mockBlockedDateRepo) Add(ctx context.Context, blocked *model.BlockedDate) error {
	return nil
}

func (m *mockBlockedDateRepo) Remove(ctx context.Context, date string) error { return nil }

type mockPolicyStore struct {
	GetIntFunc func(ctx context.Context, key string) (int, error)
}

func (m *mockPolicyStore) Get(ctx context.Context, key string) (string, error) { return "", nil }

func (m *mockPolicyStore) GetInt(ctx context.Context, key string) (int, error) {
	if m.GetIntFunc != nil {
		return m.GetIntFunc(ctx, key)
	}
	switch key {
	case model.SettingBookingAdvanceDays:
		return 14, nil
	case model.SettingCancellationNoticeHours:
		return 12, nil
	case model.SettingAutoDeactivationDays:
		return 365, nil
	}
	return 0, apperrors.InvalidInput("unknown setting: " + key)
}

func (m *mockPolicyStore) Set(ctx context.Context, actor model.Actor, key, value string) error {
	return nil
}

func (m *mockPolicyStore) All(ctx context.Context) ([]*model.Setting, error) { return nil, nil }

func (m *mockPolicyStore) ResetDefaults(ctx context.Context, actor model.Actor) error { return nil }

type mockEmitter struct {
	emitted []emittedEvent
}

type emittedEvent struct {
	eventType string
	subject   string
	payload   any
}

func (m *mockEmitter) Emit(ctx context.Context, eventType, subject string, payload any) error {
	m.emitted = append(m.emitted, emittedEvent{eventType, subject, payload})
	return nil
}

// --- Fixtures ---

func activeUser() *model.User {
	return &model.User{
		ID:              "user-1",
		Email:           "walker@example.com",
		Name:            "Walker",
		ExperienceLevel: model.LevelBlue,
		IsVerified:      true,
		IsActive:        true,
	}
}

func availableDog() *model.Dog {
	return &model.Dog{
		ID:          "dog-1",
		Name:        "Rex",
		Category:    model.LevelBlue,
		IsAvailable: true,
	}
}

func validBooking() *model.Booking {
	return &model.Booking{
		UserID:        "user-1",
		DogID:         "dog-1",
		Date:          "2024-01-05",
		WalkType:      model.WalkMorning,
		ScheduledTime: "09:00",
	}
}

func testConfig() *config.Config {
	return &config.Config{
		SlotLockTTL:          10 * time.Second,
		MaxConflictRetries:   3,
		ConflictRetryBackoff: time.Millisecond,
		Log: logger.New(logger.Config{
			Level:   logger.LevelError,
			Format:  logger.FormatText,
			Service: "test",
		}),
	}
}

type serviceDeps struct {
	repo     *mockBookingRepo
	locks    *mockSlotLockRepo
	users    *mockUserRepo
	dogs     *mockDogRepo
	calendar *mockBlockedDateRepo
	policy   *mockPolicyStore
	emitter  *mockEmitter
}

func newTestService(t *testing.T) (*bookingService, *serviceDeps) {
	t.Helper()
	deps := &serviceDeps{
		repo:     &mockBookingRepo{},
		locks:    &mockSlotLockRepo{},
		users:    &mockUserRepo{},
		dogs:     &mockDogRepo{},
		calendar: &mockBlockedDateRepo{},
		policy:   &mockPolicyStore{},
		emitter:  &mockEmitter{},
	}
	cfg := testConfig()
	svc := NewBookingService(
		deps.repo,
		deps.locks,
		deps.users,
		deps.dogs,
		deps.calendar,
		deps.policy,
		validator.NewBookingValidator(cfg.Log),
		deps.emitter,
		cfg,
	).(*bookingService)
	svc.now = func() time.Time { return fixedNow }
	return svc, deps
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	if !apperrors.IsCode(err, code) {
		t.Fatalf("expected code %s, got: %v", code, err)
	}
}

// --- Create ---

func TestCreateBooking(t *testing.T) {
	svc, deps := newTestService(t)

	created, err := svc.Create(context.Background(), validBooking())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID != "new-booking" {
		t.Errorf("expected assigned ID, got %q", created.ID)
	}
	if created.Status != model.BookingScheduled {
		t.Errorf("expected status scheduled, got %s", created.Status)
	}

	if deps.locks.acquireCalls != 1 || deps.locks.releaseCalls != 1 {
		t.Errorf("expected one acquire and one release, got %d/%d",
			deps.locks.acquireCalls, deps.locks.releaseCalls)
	}
	if len(deps.emitter.emitted) != 1 || deps.emitter.emitted[0].eventType != events.TypeBookingCreated {
		t.Errorf("expected one booking.created event, got %+v", deps.emitter.emitted)
	}
}

func TestCreateBookingShapeValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b *model.Booking)
	}{
		{"missing user", func(b *model.Booking) { b.UserID = "" }},
		{"missing dog", func(b *model.Booking) { b.DogID = "" }},
		{"bad date format", func(b *model.Booking) { b.Date = "05-01-2024" }},
		{"bad time format", func(b *model.Booking) { b.ScheduledTime = "9am" }},
		{"bad walk type", func(b *model.Booking) { b.WalkType = "noon" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := newTestService(t)
			booking := validBooking()
			tt.mutate(booking)

			_, err := svc.Create(context.Background(), booking)
			requireCode(t, err, apperrors.CodeValidation)
			if deps.locks.acquireCalls != 0 {
				t.Error("shape validation must fail before any lock is taken")
			}
		})
	}
}

func TestCreateBookingWindow(t *testing.T) {
	tests := []struct {
		name    string
		date    string
		wantErr bool
	}{
		{"today", "2024-01-01", false},
		{"last day of window", "2024-01-15", false},
		{"one day past window", "2024-01-16", true},
		{"yesterday", "2023-12-31", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			booking := validBooking()
			booking.Date = tt.date

			_, err := svc.Create(context.Background(), booking)
			if tt.wantErr {
				requireCode(t, err, apperrors.CodeDateOutOfWindow)
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCreateBookingUserGates(t *testing.T) {
	tests := []struct {
		name     string
		user     func() *model.User
		wantCode string
	}{
		{"inactive user", func() *model.User {
			u := activeUser()
			u.IsActive = false
			return u
		}, apperrors.CodeUserInactive},
		{"unverified user", func() *model.User {
			u := activeUser()
			u.IsVerified = false
			return u
		}, apperrors.CodeUserUnverified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := newTestService(t)
			deps.users.FindByIDFunc = func(ctx context.Context, id string) (*model.User, error) {
				return tt.user(), nil
			}

			_, err := svc.Create(context.Background(), validBooking())
			requireCode(t, err, tt.wantCode)
		})
	}
}

func TestCreateBookingInactiveBeforeUnverified(t *testing.T) {
	// A user who is both inactive and unverified must fail on inactive first.
	svc, deps := newTestService(t)
	deps.users.FindByIDFunc = func(ctx context.Context, id string) (*model.User, error) {
		u := activeUser()
		u.IsActive = false
		u.IsVerified = false
		return u, nil
	}

	_, err := svc.Create(context.Background(), validBooking())
	requireCode(t, err, apperrors.CodeUserInactive)
}

func TestCreateBookingExperienceGate(t *testing.T) {
	tests := []struct {
		name      string
		userLevel model.Level
		dogLevel  model.Level
		wantErr   bool
	}{
		{"green walker orange dog", model.LevelGreen, model.LevelOrange, true},
		{"green walker blue dog", model.LevelGreen, model.LevelBlue, true},
		{"blue walker blue dog", model.LevelBlue, model.LevelBlue, false},
		{"orange walker green dog", model.LevelOrange, model.LevelGreen, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := newTestService(t)
			deps.users.FindByIDFunc = func(ctx context.Context, id string) (*model.User, error) {
				u := activeUser()
				u.ExperienceLevel = tt.userLevel
				return u, nil
			}
			deps.dogs.FindByIDFunc = func(ctx context.Context, id string) (*model.Dog, error) {
				d := availableDog()
				d.Category = tt.dogLevel
				return d, nil
			}

			_, err := svc.Create(context.Background(), validBooking())
			if tt.wantErr {
				requireCode(t, err, apperrors.CodeExperienceInsufficient)
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCreateBookingDogUnavailable(t *testing.T) {
	svc, deps := newTestService(t)
	deps.dogs.FindByIDFunc = func(ctx context.Context, id string) (*model.Dog, error) {
		d := availableDog()
		d.IsAvailable = false
		return d, nil
	}

	_, err := svc.Create(context.Background(), validBooking())
	requireCode(t, err, apperrors.CodeDogUnavailable)
}

func TestCreateBookingBlockedDate(t *testing.T) {
	svc, deps := newTestService(t)
	deps.calendar.IsBlockedFunc = func(ctx context.Context, date string) (bool, error) {
		return date == "2024-01-05", nil
	}

	_, err := svc.Create(context.Background(), validBooking())
	requireCode(t, err, apperrors.CodeDateBlocked)
}

func TestCreateBookingSlotTaken(t *testing.T) {
	svc, deps := newTestService(t)
	deps.repo.FindScheduledBySlotFunc = func(ctx context.Context, dogID, date, scheduledTime, excludeID string) (*model.Booking, error) {
		return &model.Booking{ID: "other"}, nil
	}

	_, err := svc.Create(context.Background(), validBooking())
	requireCode(t, err, apperrors.CodeSlotAlreadyBooked)
	if apperrors.Retryable(err) {
		t.Error("a committed slot conflict must not be retryable")
	}
	if deps.locks.acquireCalls != 1 {
		t.Errorf("expected no retries for a committed conflict, got %d attempts", deps.locks.acquireCalls)
	}
}

func TestCreateBookingUserDayTaken(t *testing.T) {
	svc, deps := newTestService(t)
	deps.repo.FindScheduledByUserDateFunc = func(ctx context.Context, userID, date, excludeID string) (*model.Booking, error) {
		return &model.Booking{ID: "other"}, nil
	}

	_, err := svc.Create(context.Background(), validBooking())
	requireCode(t, err, apperrors.CodeUserAlreadyBookedDay)
}

func TestCreateBookingLockContention(t *testing.T) {
	svc, deps := newTestService(t)
	deps.locks.AcquireFunc = func(ctx context.Context, lock *model.SlotLock) error {
		return bookingerrors.ErrLockHeld
	}

	_, err := svc.Create(context.Background(), validBooking())
	requireCode(t, err, apperrors.CodeSlotAlreadyBooked)

	// Initial attempt plus MaxConflictRetries retries.
	if deps.locks.acquireCalls != 4 {
		t.Errorf("expected 4 acquire attempts, got %d", deps.locks.acquireCalls)
	}
}

func TestCreateBookingLockContentionResolves(t *testing.T) {
	svc, deps := newTestService(t)
	attempts := 0
	deps.locks.AcquireFunc = func(ctx context.Context, lock *model.SlotLock) error {
		attempts++
		if attempts < 3 {
			return bookingerrors.ErrLockHeld
		}
		return nil
	}

	created, err := svc.Create(context.Background(), validBooking())
	if err != nil {
		t.Fatalf("unexpected error after contention cleared: %v", err)
	}
	if created.ID == "" {
		t.Error("expected booking to be created after retry")
	}
}

func TestCreateBookingDuplicateKeyAtCommit(t *testing.T) {
	// A concurrent transaction committed between our check and the insert; the
	// unique index rejects the write and the conflict is surfaced, not retried.
	svc, deps := newTestService(t)
	deps.repo.CreateFunc = func(ctx context.Context, booking *model.Booking) error {
		return bookingerrors.ErrSlotTaken
	}

	_, err := svc.Create(context.Background(), validBooking())
	requireCode(t, err, apperrors.CodeSlotAlreadyBooked)
	if deps.locks.acquireCalls != 1 {
		t.Errorf("expected no retries, got %d attempts", deps.locks.acquireCalls)
	}
}

func TestCreateBookingTouchesActivity(t *testing.T) {
	svc, deps := newTestService(t)
	var touched string
	deps.users.TouchActivityFunc = func(ctx context.Context, id string, at time.Time) error {
		touched = id
		return nil
	}

	if _, err := svc.Create(context.Background(), validBooking()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if touched != "user-1" {
		t.Errorf("expected activity touch for user-1, got %q", touched)
	}
}

// --- Cancel ---

func scheduledBooking() *model.Booking {
	return &model.Booking{
		ID:            "booking-1",
		UserID:        "user-1",
		DogID:         "dog-1",
		Date:          "2024-01-02",
		WalkType:      model.WalkMorning,
		ScheduledTime: "09:00",
		Status:        model.BookingScheduled,
	}
}

func TestCancelBooking(t *testing.T) {
	// Walk starts 2024-01-02 09:00; now is 23 hours before, well past the
	// 12-hour notice cutoff.
	svc, deps := newTestService(t)
	deps.repo.FindByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return scheduledBooking(), nil
	}

	cancelled, err := svc.Cancel(context.Background(), "booking-1", model.Actor{UserID: "user-1"}, "sick")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != model.BookingCancelled {
		t.Errorf("expected cancelled status, got %s", cancelled.Status)
	}
	if cancelled.CancellationReason != "sick" {
		t.Errorf("expected reason recorded, got %q", cancelled.CancellationReason)
	}
	if len(deps.emitter.emitted) != 1 || deps.emitter.emitted[0].eventType != events.TypeBookingCancelled {
		t.Errorf("expected booking.cancelled event, got %+v", deps.emitter.emitted)
	}
}

func TestCancelBookingTooLate(t *testing.T) {
	// Walk starts 2024-01-01 20:00, 10 hours from now: inside the 12-hour
	// notice window.
	svc, deps := newTestService(t)
	deps.repo.FindByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		b := scheduledBooking()
		b.Date = "2024-01-01"
		b.ScheduledTime = "20:00"
		return b, nil
	}

	_, err := svc.Cancel(context.Background(), "booking-1", model.Actor{UserID: "user-1"}, "")
	requireCode(t, err, apperrors.CodeCancellationTooLate)
}

func TestCancelBookingAdminBypassesNotice(t *testing.T) {
	svc, deps := newTestService(t)
	deps.repo.FindByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		b := scheduledBooking()
		b.Date = "2024-01-01"
		b.ScheduledTime = "20:00"
		return b, nil
	}

	_, err := svc.Cancel(context.Background(), "booking-1", model.Actor{UserID: "admin-1", IsAdmin: true}, "shelter closed")
	if err != nil {
		t.Fatalf("admin cancel inside notice window should succeed: %v", err)
	}
}

func TestCancelBookingExactCutoff(t *testing.T) {
	// Walk at 22:00, cutoff is exactly now (10:00 + 12h). Not yet past the
	// cutoff, so the cancel still succeeds.
	svc, deps := newTestService(t)
	deps.repo.FindByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		b := scheduledBooking()
		b.Date = "2024-01-01"
		b.ScheduledTime = "22:00"
		return b, nil
	}

	if _, err := svc.Cancel(context.Background(), "booking-1", model.Actor{UserID: "user-1"}, ""); err != nil {
		t.Fatalf("cancel at exact cutoff should succeed: %v", err)
	}
}

func TestCancelBookingNotOwner(t *testing.T) {
	svc, deps := newTestService(t)
	deps.repo.FindByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return scheduledBooking(), nil
	}

	_, err := svc.Cancel(context.Background(), "booking-1", model.Actor{UserID: "someone-else"}, "")
	if !apperrors.IsKind(err, apperrors.KindAuthorization) {
		t.Fatalf("expected authorization error, got: %v", err)
	}
}

func TestCancelBookingWrongStatus(t *testing.T) {
	for _, status := range []model.BookingStatus{model.BookingCancelled, model.BookingCompleted} {
		t.Run(string(status), func(t *testing.T) {
			svc, deps := newTestService(t)
			deps.repo.FindByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
				b := scheduledBooking()
				b.Status = status
				return b, nil
			}

			_, err := svc.Cancel(context.Background(), "booking-1", model.Actor{UserID: "user-1"}, "")
			requireCode(t, err, apperrors.CodeBookingNotCancellable)
		})
	}
}

func TestCancelBookingNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Cancel(context.Background(), "missing", model.Actor{UserID: "user-1"}, "")
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("expected not found, got: %v", err)
	}
}

// --- Move ---

func TestMoveBooking(t *testing.T) {
	svc, deps := newTestService(t)
	deps.repo.FindByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return scheduledBooking(), nil
	}

	var cancelledID string
	deps.repo.MarkCancelledFunc = func(ctx context.Context, id, reason string, at time.Time) error {
		cancelledID = id
		return nil
	}
	var createdBooking *model.Booking
	deps.repo.CreateFunc = func(ctx context.Context, booking *model.Booking) error {
		booking.ID = "booking-2"
		createdBooking = booking
		return nil
	}
	var excludedID string
	deps.repo.FindScheduledBySlotFunc = func(ctx context.Context, dogID, date, scheduledTime, excludeID string) (*model.Booking, error) {
		excludedID = excludeID
		return nil, nil
	}

	moved, err := svc.Move(context.Background(), "booking-1", model.Actor{UserID: "user-1"}, "2024-01-03", "10:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if moved.ID != "booking-2" || moved.Date != "2024-01-03" || moved.ScheduledTime != "10:00" {
		t.Errorf("unexpected moved booking: %+v", moved)
	}
	if cancelledID != "booking-1" {
		t.Errorf("expected old booking cancelled, got %q", cancelledID)
	}
	if createdBooking.UserID != "user-1" || createdBooking.DogID != "dog-1" {
		t.Errorf("replacement must keep user and dog: %+v", createdBooking)
	}
	if excludedID != "booking-1" {
		t.Errorf("slot check must exclude the booking's own row, got %q", excludedID)
	}
	if len(deps.emitter.emitted) != 1 || deps.emitter.emitted[0].eventType != events.TypeBookingMoved {
		t.Errorf("expected booking.moved event, got %+v", deps.emitter.emitted)
	}
}

func TestMoveBookingTargetTaken(t *testing.T) {
	svc, deps := newTestService(t)
	deps.repo.FindByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return scheduledBooking(), nil
	}
	deps.repo.FindScheduledBySlotFunc = func(ctx context.Context, dogID, date, scheduledTime, excludeID string) (*model.Booking, error) {
		return &model.Booking{ID: "other"}, nil
	}
	markCalled := false
	deps.repo.MarkCancelledFunc = func(ctx context.Context, id, reason string, at time.Time) error {
		markCalled = true
		return nil
	}

	_, err := svc.Move(context.Background(), "booking-1", model.Actor{UserID: "user-1"}, "2024-01-03", "10:00")
	requireCode(t, err, apperrors.CodeSlotAlreadyBooked)
	if markCalled {
		t.Error("old booking must remain untouched when the target slot is taken")
	}
}

func TestMoveBookingBadSlot(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Move(context.Background(), "booking-1", model.Actor{UserID: "user-1"}, "03/01/2024", "10:00")
	requireCode(t, err, apperrors.CodeValidation)
}

func TestMoveBookingSameUserDateExcluded(t *testing.T) {
	// Moving within the same date must not trip the one-booking-per-day rule
	// against the booking's own row.
	svc, deps := newTestService(t)
	deps.repo.FindByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return scheduledBooking(), nil
	}
	var excludedID string
	deps.repo.FindScheduledByUserDateFunc = func(ctx context.Context, userID, date, excludeID string) (*model.Booking, error) {
		excludedID = excludeID
		return nil, nil
	}

	_, err := svc.Move(context.Background(), "booking-1", model.Actor{UserID: "user-1"}, "2024-01-02", "11:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if excludedID != "booking-1" {
		t.Errorf("user-day check must exclude the booking's own row, got %q", excludedID)
	}
}

// --- AddNotes ---

func TestAddNotes(t *testing.T) {
	svc, deps := newTestService(t)
	deps.repo.FindByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return scheduledBooking(), nil
	}
	var savedNotes string
	deps.repo.SetNotesFunc = func(ctx context.Context, id, notes string) error {
		savedNotes = notes
		return nil
	}

	err := svc.AddNotes(context.Background(), "booking-1", model.Actor{UserID: "user-1"}, "pulled on the leash")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if savedNotes != "pulled on the leash" {
		t.Errorf("notes not saved, got %q", savedNotes)
	}
}

func TestAddNotesCancelledBooking(t *testing.T) {
	svc, deps := newTestService(t)
	deps.repo.FindByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		b := scheduledBooking()
		b.Status = model.BookingCancelled
		return b, nil
	}

	err := svc.AddNotes(context.Background(), "booking-1", model.Actor{UserID: "user-1"}, "notes")
	if !apperrors.IsKind(err, apperrors.KindAuthorization) {
		t.Fatalf("expected authorization error for cancelled booking, got: %v", err)
	}
}

func TestAddNotesNotOwner(t *testing.T) {
	svc, deps := newTestService(t)
	deps.repo.FindByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return scheduledBooking(), nil
	}

	err := svc.AddNotes(context.Background(), "booking-1", model.Actor{UserID: "intruder"}, "notes")
	if !apperrors.IsKind(err, apperrors.KindAuthorization) {
		t.Fatalf("expected authorization error, got: %v", err)
	}
}

func TestAddNotesStatusCheckAndWriteShareTransaction(t *testing.T) {
	svc, deps := newTestService(t)
	deps.repo.FindByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		if deps.repo.txDepth == 0 {
			t.Error("status must be read inside the transaction")
		}
		return scheduledBooking(), nil
	}
	deps.repo.SetNotesFunc = func(ctx context.Context, id, notes string) error {
		// A cancellation landing between check and write would otherwise
		// pick up the notes.
		if deps.repo.txDepth == 0 {
			t.Error("notes must be written inside the transaction")
		}
		return nil
	}

	err := svc.AddNotes(context.Background(), "booking-1", model.Actor{UserID: "user-1"}, "notes")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAddNotesCompletedBookingByAdmin(t *testing.T) {
	svc, deps := newTestService(t)
	deps.repo.FindByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		b := scheduledBooking()
		b.Status = model.BookingCompleted
		return b, nil
	}

	err := svc.AddNotes(context.Background(), "booking-1", model.Actor{UserID: "admin-1", IsAdmin: true}, "good walk")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- Complete ---

func TestCompleteBooking(t *testing.T) {
	svc, deps := newTestService(t)
	deps.repo.FindByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		b := scheduledBooking()
		b.Date = "2023-12-30"
		return b, nil
	}

	completed, err := svc.Complete(context.Background(), "booking-1", model.Actor{UserID: "admin-1", IsAdmin: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if completed.Status != model.BookingCompleted {
		t.Errorf("expected completed status, got %s", completed.Status)
	}
}

func TestCompleteBookingNotAdmin(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Complete(context.Background(), "booking-1", model.Actor{UserID: "user-1"})
	if !apperrors.IsKind(err, apperrors.KindAuthorization) {
		t.Fatalf("expected authorization error, got: %v", err)
	}
}

func TestCompleteBookingFutureDate(t *testing.T) {
	for _, date := range []string{"2024-01-01", "2024-01-02"} {
		t.Run(date, func(t *testing.T) {
			svc, deps := newTestService(t)
			deps.repo.FindByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
				b := scheduledBooking()
				b.Date = date
				return b, nil
			}

			_, err := svc.Complete(context.Background(), "booking-1", model.Actor{UserID: "admin-1", IsAdmin: true})
			requireCode(t, err, apperrors.CodeBookingNotCompletable)
		})
	}
}

// --- Listing ---

func TestListUpcoming(t *testing.T) {
	svc, deps := newTestService(t)
	var gotFrom string
	deps.repo.FindUpcomingByUserFunc = func(ctx context.Context, userID, fromDate string) ([]*model.Booking, error) {
		gotFrom = fromDate
		return []*model.Booking{scheduledBooking()}, nil
	}

	bookings, err := svc.ListUpcoming(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bookings) != 1 {
		t.Fatalf("expected 1 booking, got %d", len(bookings))
	}
	if gotFrom != "2024-01-01" {
		t.Errorf("expected listing from today, got %q", gotFrom)
	}
}

func TestListUpcomingEmptyUser(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ListUpcoming(context.Background(), "")
	if !apperrors.IsKind(err, apperrors.KindInvalidInput) {
		t.Fatalf("expected invalid input, got: %v", err)
	}
}

func TestListForDate(t *testing.T) {
	svc, deps := newTestService(t)
	deps.repo.FindByDateFunc = func(ctx context.Context, date string) ([]*model.Booking, error) {
		return []*model.Booking{scheduledBooking()}, nil
	}

	bookings, err := svc.ListForDate(context.Background(), model.Actor{UserID: "admin-1", IsAdmin: true}, "2024-01-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bookings) != 1 {
		t.Fatalf("expected 1 booking, got %d", len(bookings))
	}
}

func TestListForDateNotAdmin(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ListForDate(context.Background(), model.Actor{UserID: "user-1"}, "2024-01-02")
	if !apperrors.IsKind(err, apperrors.KindAuthorization) {
		t.Fatalf("expected authorization error, got: %v", err)
	}
}

// --- Retry plumbing ---

func TestWithConflictRetryStopsOnNonRetryable(t *testing.T) {
	svc, _ := newTestService(t)
	calls := 0

	err := svc.withConflictRetry(context.Background(), func() error {
		calls++
		return apperrors.Conflict(apperrors.CodeSlotAlreadyBooked, "taken")
	})
	if !apperrors.IsCode(err, apperrors.CodeSlotAlreadyBooked) {
		t.Fatalf("expected conflict, got: %v", err)
	}
	if calls != 1 {
		t.Errorf("non-retryable error must not be retried, got %d calls", calls)
	}
}

func TestWithConflictRetryBounded(t *testing.T) {
	svc, _ := newTestService(t)
	calls := 0

	err := svc.withConflictRetry(context.Background(), func() error {
		calls++
		return apperrors.Transient("storage contention", errors.New("write conflict"))
	})
	if !apperrors.IsKind(err, apperrors.KindTransient) {
		t.Fatalf("expected transient error, got: %v", err)
	}
	if calls != 4 {
		t.Errorf("expected 4 attempts (1 + 3 retries), got %d", calls)
	}
}

func TestWithConflictRetryCancelledContext(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := svc.withConflictRetry(ctx, func() error {
		calls++
		return apperrors.Transient("storage contention", errors.New("write conflict"))
	})
	if !apperrors.IsKind(err, apperrors.KindTransient) {
		t.Fatalf("expected transient error, got: %v", err)
	}
	if calls != 1 {
		t.Errorf("cancelled context must stop retries, got %d calls", calls)
	}
}
