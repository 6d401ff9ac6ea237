package service

import (
	"context"
	"errors"
	"time"

	bookingerrors "shelterwalk/internal/booking/errors"
	"shelterwalk/internal/booking/repository"
	"shelterwalk/internal/booking/validator"
	calendarrepo "shelterwalk/internal/calendar/repository"
	catalogrepo "shelterwalk/internal/catalog/repository"
	directoryrepo "shelterwalk/internal/directory/repository"
	"shelterwalk/internal/events"
	settingsservice "shelterwalk/internal/settings/service"
	"shelterwalk/pkg/config"
	apperrors "shelterwalk/pkg/errors"
	"shelterwalk/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// BookingService is the booking ledger: it creates, cancels, moves and
// annotates bookings while holding every cross-entity invariant. All checks
// and writes of one operation run inside a single transaction.
type BookingService interface {
	Create(ctx context.Context, booking *model.Booking) (*model.Booking, error)
	Cancel(ctx context.Context, id string, actor model.Actor, reason string) (*model.Booking, error)
	Move(ctx context.Context, id string, actor model.Actor, newDate, newTime string) (*model.Booking, error)
	AddNotes(ctx context.Context, id string, actor model.Actor, notes string) error
	Complete(ctx context.Context, id string, actor model.Actor) (*model.Booking, error)
	ListUpcoming(ctx context.Context, userID string) ([]*model.Booking, error)
	ListForDate(ctx context.Context, actor model.Actor, date string) ([]*model.Booking, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	locks     repository.SlotLockRepository
	users     directoryrepo.UserRepository
	dogs      catalogrepo.DogRepository
	calendar  calendarrepo.BlockedDateRepository
	policy    settingsservice.PolicyStore
	validator *validator.BookingValidator
	emitter   events.Emitter
	cfg       *config.Config

	now func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	locks repository.SlotLockRepository,
	users directoryrepo.UserRepository,
	dogs catalogrepo.DogRepository,
	calendar calendarrepo.BlockedDateRepository,
	policy settingsservice.PolicyStore,
	bookingValidator *validator.BookingValidator,
	emitter events.Emitter,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		locks:     locks,
		users:     users,
		dogs:      dogs,
		calendar:  calendar,
		policy:    policy,
		validator: bookingValidator,
		emitter:   emitter,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *bookingService) Create(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	booking.Status = model.BookingScheduled
	if err := s.validateShape(booking); err != nil {
		return nil, err
	}

	err := s.withConflictRetry(ctx, func() error {
		return s.bookSlot(ctx, booking, "")
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create booking",
			"user_id", booking.UserID,
			"dog_id", booking.DogID,
			"date", booking.Date,
			"error", err,
		)
		return nil, err
	}

	s.cfg.Log.Info("Booking created",
		"id", booking.ID,
		"user_id", booking.UserID,
		"dog_id", booking.DogID,
		"date", booking.Date,
		"scheduled_time", booking.ScheduledTime,
	)
	s.emit(ctx, events.TypeBookingCreated, booking.ID, events.BookingPayload{
		BookingID:     booking.ID,
		UserID:        booking.UserID,
		DogID:         booking.DogID,
		Date:          booking.Date,
		WalkType:      booking.WalkType,
		ScheduledTime: booking.ScheduledTime,
	})
	return booking, nil
}

// bookSlot takes the advisory lock for the target slot and runs the full
// validation sequence plus insert in one transaction. excludeID skips the
// booking's own prior row during a move.
func (s *bookingService) bookSlot(ctx context.Context, booking *model.Booking, excludeID string) error {
	lockID, err := s.acquireSlotLock(ctx, booking)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := s.locks.Release(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release slot lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	return s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.validateBooking(sessCtx, booking, excludeID); err != nil {
			return err
		}
		if excludeID != "" {
			if err := s.repo.MarkCancelled(sessCtx, excludeID, "moved to a new slot", s.now().UTC()); err != nil {
				return s.mapBookingError(err, excludeID)
			}
		}
		if err := s.repo.Create(sessCtx, booking); err != nil {
			return s.mapBookingError(err, "")
		}
		if err := s.users.TouchActivity(sessCtx, booking.UserID, s.now().UTC()); err != nil {
			return apperrors.Internal("Failed to record user activity", err)
		}
		return nil
	})
}

// validateBooking is the ordered §first-failure-wins validation sequence.
// The settings it reads come from the transaction's snapshot; they are never
// cached across requests.
func (s *bookingService) validateBooking(ctx context.Context, booking *model.Booking, excludeID string) error {
	user, err := s.users.FindByID(ctx, booking.UserID)
	if err != nil {
		if errors.Is(err, directoryrepo.ErrNotFound) || errors.Is(err, directoryrepo.ErrInvalidID) {
			return apperrors.NotFoundWithID("User", booking.UserID)
		}
		return apperrors.Internal("Failed to load user", err)
	}
	if !user.IsActive {
		return apperrors.State(apperrors.CodeUserInactive, "Account is deactivated")
	}
	if !user.IsVerified {
		return apperrors.State(apperrors.CodeUserUnverified, "Account email is not verified")
	}

	dog, err := s.dogs.FindByID(ctx, booking.DogID)
	if err != nil {
		if errors.Is(err, catalogrepo.ErrNotFound) || errors.Is(err, catalogrepo.ErrInvalidID) {
			return apperrors.NotFoundWithID("Dog", booking.DogID)
		}
		return apperrors.Internal("Failed to load dog", err)
	}
	if !dog.IsAvailable {
		return apperrors.State(apperrors.CodeDogUnavailable, "Dog is not available for walks")
	}

	if !user.ExperienceLevel.AtLeast(dog.Category) {
		return apperrors.Validation(apperrors.CodeExperienceInsufficient,
			"Dog requires a higher experience level").WithDetails(map[string]any{
			"required": dog.Category,
			"actual":   user.ExperienceLevel,
		})
	}

	advanceDays, err := s.policy.GetInt(ctx, model.SettingBookingAdvanceDays)
	if err != nil {
		return err
	}
	today := s.now().UTC().Format(model.DateLayout)
	latest := s.now().UTC().AddDate(0, 0, advanceDays).Format(model.DateLayout)
	if booking.Date < today || booking.Date > latest {
		return apperrors.Validation(apperrors.CodeDateOutOfWindow,
			"Date is outside the booking window").WithDetails(map[string]any{
			"earliest": today,
			"latest":   latest,
		})
	}

	blocked, err := s.calendar.IsBlocked(ctx, booking.Date)
	if err != nil {
		return apperrors.Internal("Failed to check blocked dates", err)
	}
	if blocked {
		return apperrors.Validation(apperrors.CodeDateBlocked, "The shelter is closed on this date")
	}

	existing, err := s.repo.FindScheduledBySlot(ctx, booking.DogID, booking.Date, booking.ScheduledTime, excludeID)
	if err != nil {
		return apperrors.Internal("Failed to check slot availability", err)
	}
	if existing != nil {
		return apperrors.Conflict(apperrors.CodeSlotAlreadyBooked, "This slot is already booked")
	}

	sameDay, err := s.repo.FindScheduledByUserDate(ctx, booking.UserID, booking.Date, excludeID)
	if err != nil {
		return apperrors.Internal("Failed to check user's bookings for the day", err)
	}
	if sameDay != nil {
		return apperrors.Conflict(apperrors.CodeUserAlreadyBookedDay, "You already have a booking on this date")
	}

	return nil
}

func (s *bookingService) Cancel(ctx context.Context, id string, actor model.Actor, reason string) (*model.Booking, error) {
	var cancelled *model.Booking

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		booking, err := s.loadOwned(sessCtx, id, actor)
		if err != nil {
			return err
		}
		if booking.Status != model.BookingScheduled {
			return apperrors.State(apperrors.CodeBookingNotCancellable, "Only scheduled bookings can be cancelled")
		}

		now := s.now().UTC()
		if !actor.Admin() {
			noticeHours, err := s.policy.GetInt(sessCtx, model.SettingCancellationNoticeHours)
			if err != nil {
				return err
			}
			startsAt, err := booking.StartsAt()
			if err != nil {
				return apperrors.Internal("Booking has an invalid schedule", err)
			}
			cutoff := startsAt.Add(-time.Duration(noticeHours) * time.Hour)
			if now.After(cutoff) {
				return apperrors.State(apperrors.CodeCancellationTooLate,
					"The cancellation notice period has passed").WithDetails(map[string]any{
					"cutoff": cutoff.Format(time.RFC3339),
				})
			}
		}

		if err := s.repo.MarkCancelled(sessCtx, id, reason, now); err != nil {
			return s.mapBookingError(err, id)
		}
		if err := s.users.TouchActivity(sessCtx, booking.UserID, now); err != nil {
			return apperrors.Internal("Failed to record user activity", err)
		}

		booking.Status = model.BookingCancelled
		booking.CancellationReason = reason
		booking.CancelledAt = &now
		cancelled = booking
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to cancel booking", "id", id, "actor_id", actor.UserID, "error", err)
		return nil, err
	}

	s.cfg.Log.Info("Booking cancelled", "id", id, "actor_id", actor.UserID)
	s.emit(ctx, events.TypeBookingCancelled, id, events.BookingPayload{
		BookingID:     cancelled.ID,
		UserID:        cancelled.UserID,
		DogID:         cancelled.DogID,
		Date:          cancelled.Date,
		WalkType:      cancelled.WalkType,
		ScheduledTime: cancelled.ScheduledTime,
		Reason:        reason,
	})
	return cancelled, nil
}

// Move re-validates the new slot exactly as create does, excluding the
// booking's own row, then cancels the old row and inserts the new one in the
// same transaction: either both happen or neither.
func (s *bookingService) Move(ctx context.Context, id string, actor model.Actor, newDate, newTime string) (*model.Booking, error) {
	if err := s.validator.ValidateSlot(newDate, newTime); err != nil {
		return nil, apperrors.Validation(apperrors.CodeValidation, err.Error())
	}

	var moved *model.Booking
	var old *model.Booking

	err := s.withConflictRetry(ctx, func() error {
		booking, err := s.loadOwned(ctx, id, actor)
		if err != nil {
			return err
		}
		if booking.Status != model.BookingScheduled {
			return apperrors.State(apperrors.CodeBookingNotCancellable, "Only scheduled bookings can be moved")
		}
		old = booking

		replacement := &model.Booking{
			UserID:        booking.UserID,
			DogID:         booking.DogID,
			Date:          newDate,
			WalkType:      booking.WalkType,
			ScheduledTime: newTime,
			Status:        model.BookingScheduled,
			Notes:         booking.Notes,
		}
		if err := s.bookSlot(ctx, replacement, booking.ID); err != nil {
			return err
		}
		moved = replacement
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to move booking", "id", id, "new_date", newDate, "error", err)
		return nil, err
	}

	s.cfg.Log.Info("Booking moved",
		"old_id", id,
		"new_id", moved.ID,
		"new_date", newDate,
		"new_time", newTime,
	)
	s.emit(ctx, events.TypeBookingMoved, moved.ID, events.BookingMovedPayload{
		OldBookingID: id,
		NewBookingID: moved.ID,
		UserID:       moved.UserID,
		DogID:        moved.DogID,
		OldDate:      old.Date,
		OldTime:      old.ScheduledTime,
		NewDate:      newDate,
		NewTime:      newTime,
	})
	return moved, nil
}

func (s *bookingService) AddNotes(ctx context.Context, id string, actor model.Actor, notes string) error {
	// Status check and write share a transaction so a cancellation landing in
	// between cannot pick up the notes.
	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		booking, err := s.loadOwned(sessCtx, id, actor)
		if err != nil {
			return err
		}
		if booking.Status != model.BookingScheduled && booking.Status != model.BookingCompleted {
			return apperrors.Forbidden("Notes may only be added to scheduled or completed bookings")
		}

		if err := s.repo.SetNotes(sessCtx, id, notes); err != nil {
			return s.mapBookingError(err, id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cfg.Log.Info("Booking notes updated", "id", id, "actor_id", actor.UserID)
	return nil
}

// Complete marks a past scheduled booking as walked. Admin only.
func (s *bookingService) Complete(ctx context.Context, id string, actor model.Actor) (*model.Booking, error) {
	if !actor.Admin() {
		return nil, apperrors.Forbidden("Only admins may complete bookings")
	}

	var completed *model.Booking
	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		booking, err := s.repo.FindByID(sessCtx, id)
		if err != nil {
			return s.mapBookingError(err, id)
		}
		if booking.Status != model.BookingScheduled {
			return apperrors.State(apperrors.CodeBookingNotCompletable, "Only scheduled bookings can be completed")
		}
		today := s.now().UTC().Format(model.DateLayout)
		if booking.Date >= today {
			return apperrors.State(apperrors.CodeBookingNotCompletable, "Bookings can only be completed after their date has passed")
		}

		now := s.now().UTC()
		if err := s.repo.MarkCompleted(sessCtx, id, now); err != nil {
			return s.mapBookingError(err, id)
		}
		booking.Status = model.BookingCompleted
		booking.CompletedAt = &now
		completed = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Booking completed", "id", id, "actor_id", actor.UserID)
	return completed, nil
}

// ListUpcoming returns the user's scheduled bookings from today on, ascending
// by date then time.
func (s *bookingService) ListUpcoming(ctx context.Context, userID string) ([]*model.Booking, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("User ID cannot be empty")
	}

	today := s.now().UTC().Format(model.DateLayout)
	bookings, err := s.repo.FindUpcomingByUser(ctx, userID, today)
	if err != nil {
		return nil, apperrors.Internal("Failed to list upcoming bookings", err)
	}
	return bookings, nil
}

func (s *bookingService) ListForDate(ctx context.Context, actor model.Actor, date string) ([]*model.Booking, error) {
	if !actor.Admin() {
		return nil, apperrors.Forbidden("Only admins may list the day roster")
	}
	if err := s.validator.ValidateSlot(date, "00:00"); err != nil {
		return nil, apperrors.InvalidInput("Invalid date format")
	}

	bookings, err := s.repo.FindByDate(ctx, date)
	if err != nil {
		return nil, apperrors.Internal("Failed to list bookings for date", err)
	}
	return bookings, nil
}

// --- Helpers ---

func (s *bookingService) validateShape(booking *model.Booking) error {
	if err := s.validator.Validate(booking); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return apperrors.Validation(apperrors.CodeValidation, "Booking validation failed").
			WithDetails(map[string]any{"error": err.Error()})
	}
	return nil
}

// loadOwned fetches a booking and checks the actor may act on it: the owner
// or an admin.
func (s *bookingService) loadOwned(ctx context.Context, id string, actor model.Actor) (*model.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapBookingError(err, id)
	}
	if !actor.Admin() && actor.UserID != booking.UserID {
		return nil, apperrors.Forbidden("You may only manage your own bookings")
	}
	return booking, nil
}

func (s *bookingService) mapBookingError(err error, id string) error {
	switch {
	case errors.Is(err, bookingerrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, bookingerrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format")
	case errors.Is(err, bookingerrors.ErrSlotTaken):
		// Committed by a concurrent transaction between our check and the
		// insert; retrying would find the row, so surface it.
		return apperrors.Conflict(apperrors.CodeSlotAlreadyBooked, "This slot is already booked")
	case errors.Is(err, bookingerrors.ErrUserDayTaken):
		return apperrors.Conflict(apperrors.CodeUserAlreadyBookedDay, "You already have a booking on this date")
	case apperrors.IsAppError(err):
		return err
	default:
		return apperrors.Internal("Booking operation failed", err)
	}
}

func (s *bookingService) acquireSlotLock(ctx context.Context, booking *model.Booking) (string, error) {
	lock := &model.SlotLock{
		ID:        booking.SlotKey(),
		ExpiresAt: s.now().UTC().Add(s.cfg.SlotLockTTL),
	}

	if err := s.locks.Acquire(ctx, lock); err != nil {
		if errors.Is(err, bookingerrors.ErrLockHeld) {
			// Another request is mid-validation on the same slot. Retryable:
			// once it finishes the slot is either free again or has a
			// committed row we can report.
			return "", apperrors.Conflict(apperrors.CodeSlotAlreadyBooked,
				"This slot is currently being booked by another request").AsRetryable()
		}
		return "", apperrors.Internal("Failed to acquire slot lock", err)
	}

	return lock.ID, nil
}

// withConflictRetry re-runs fn a bounded number of times when it fails with a
// retryable conflict or transient storage error.
func (s *bookingService) withConflictRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt <= s.cfg.MaxConflictRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return apperrors.Transient("request cancelled during retry", ctx.Err())
			case <-time.After(s.cfg.ConflictRetryBackoff):
			}
		}
		if err = fn(); err == nil || !apperrors.Retryable(err) {
			return err
		}
		s.cfg.Log.Debug("Retrying after conflict", "attempt", attempt+1, "error", err)
	}
	return err
}

func (s *bookingService) emit(ctx context.Context, eventType, subject string, payload any) {
	if err := s.emitter.Emit(ctx, eventType, subject, payload); err != nil {
		s.cfg.Log.Warn("Failed to emit event", "event_type", eventType, "subject", subject, "error", err)
	}
}
