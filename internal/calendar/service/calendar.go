package service

import (
	"context"
	"errors"
	"time"

	"shelterwalk/internal/calendar/repository"
	"shelterwalk/pkg/config"
	apperrors "shelterwalk/pkg/errors"
	"shelterwalk/pkg/model"
)

// CalendarService manages the shelter's closed dates. Blocking a date stops
// new bookings from being made on it; existing bookings are untouched.
type CalendarService interface {
	List(ctx context.Context) ([]*model.BlockedDate, error)
	Block(ctx context.Context, actor model.Actor, date, reason string) (*model.BlockedDate, error)
	Unblock(ctx context.Context, actor model.Actor, date string) error
}

type calendarService struct {
	repo repository.BlockedDateRepository
	cfg  *config.Config

	now func() time.Time
}

func NewCalendarService(repo repository.BlockedDateRepository, cfg *config.Config) CalendarService {
	return &calendarService{
		repo: repo,
		cfg:  cfg,
		now:  time.Now,
	}
}

func (s *calendarService) List(ctx context.Context) ([]*model.BlockedDate, error) {
	dates, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to list blocked dates", err)
	}
	return dates, nil
}

func (s *calendarService) Block(ctx context.Context, actor model.Actor, date, reason string) (*model.BlockedDate, error) {
	if !actor.Admin() {
		return nil, apperrors.Forbidden("Only admins may block dates")
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return nil, apperrors.InvalidInput("Date must be in " + model.DateLayout + " format")
	}
	if reason == "" {
		return nil, apperrors.InvalidInput("Reason cannot be empty")
	}

	blocked := &model.BlockedDate{
		Date:      date,
		Reason:    reason,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Add(ctx, blocked); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, apperrors.Conflict(apperrors.CodeConflict, "Date is already blocked")
		}
		return nil, apperrors.Internal("Failed to block date", err)
	}

	s.cfg.Log.Info("Date blocked", "date", date, "reason", reason, "actor_id", actor.UserID)
	return blocked, nil
}

func (s *calendarService) Unblock(ctx context.Context, actor model.Actor, date string) error {
	if !actor.Admin() {
		return apperrors.Forbidden("Only admins may unblock dates")
	}

	if err := s.repo.Remove(ctx, date); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFoundWithID("Blocked date", date)
		}
		return apperrors.Internal("Failed to unblock date", err)
	}

	s.cfg.Log.Info("Date unblocked", "date", date, "actor_id", actor.UserID)
	return nil
}
