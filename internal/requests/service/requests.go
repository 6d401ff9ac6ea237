package service

import (
	"context"
	"errors"
	"strings"
	"time"

	directoryrepo "shelterwalk/internal/directory/repository"
	"shelterwalk/internal/events"
	"shelterwalk/internal/requests/repository"
	"shelterwalk/pkg/config"
	apperrors "shelterwalk/pkg/errors"
	"shelterwalk/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// RequestService runs the two admin-mediated workflows: experience upgrades
// and account reactivation. A user may hold at most one pending request of
// each kind; resolution applies the request's effect and records the outcome
// in a single transaction.
type RequestService interface {
	SubmitExperience(ctx context.Context, userID string, requestedLevel model.Level) (*model.ExperienceRequest, error)
	ResolveExperience(ctx context.Context, id string, actor model.Actor, approve bool, message string) (*model.ExperienceRequest, error)
	SubmitReactivation(ctx context.Context, userID, reason string) (*model.ReactivationRequest, error)
	ResolveReactivation(ctx context.Context, id string, actor model.Actor, approve bool) (*model.ReactivationRequest, error)
}

type requestService struct {
	repo    repository.RequestRepository
	users   directoryrepo.UserRepository
	emitter events.Emitter
	cfg     *config.Config

	now func() time.Time
}

func NewRequestService(
	repo repository.RequestRepository,
	users directoryrepo.UserRepository,
	emitter events.Emitter,
	cfg *config.Config,
) RequestService {
	return &requestService{
		repo:    repo,
		users:   users,
		emitter: emitter,
		cfg:     cfg,
		now:     time.Now,
	}
}

func (s *requestService) SubmitExperience(ctx context.Context, userID string, requestedLevel model.Level) (*model.ExperienceRequest, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.State(apperrors.CodeUserInactive, "Account is deactivated")
	}
	if !user.IsVerified {
		return nil, apperrors.State(apperrors.CodeUserUnverified, "Account email is not verified")
	}

	if !requestedLevel.Valid() || !requestedLevel.Above(user.ExperienceLevel) {
		return nil, apperrors.Validation(apperrors.CodeInvalidLevelRequested,
			"Requested level must be higher than the current level").WithDetails(map[string]any{
			"current":   user.ExperienceLevel,
			"requested": requestedLevel,
		})
	}

	req := &model.ExperienceRequest{
		UserID:         userID,
		RequestedLevel: requestedLevel,
		Status:         model.RequestPending,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.repo.CreateExperience(ctx, req); err != nil {
		if errors.Is(err, repository.ErrDuplicatePending) {
			return nil, apperrors.Conflict(apperrors.CodeDuplicatePendingReq,
				"A pending experience request already exists")
		}
		return nil, apperrors.Internal("Failed to create experience request", err)
	}

	s.cfg.Log.Info("Experience request submitted",
		"id", req.ID,
		"user_id", userID,
		"requested_level", requestedLevel,
	)
	return req, nil
}

// ResolveExperience approves or denies a pending request. On approval the
// user's level changes in the same transaction that resolves the request;
// neither happens without the other.
func (s *requestService) ResolveExperience(ctx context.Context, id string, actor model.Actor, approve bool, message string) (*model.ExperienceRequest, error) {
	if !actor.Admin() {
		return nil, apperrors.Forbidden("Only admins may resolve requests")
	}

	status := model.RequestDenied
	if approve {
		status = model.RequestApproved
	}

	var resolved *model.ExperienceRequest
	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		req, err := s.repo.FindExperienceByID(sessCtx, id)
		if err != nil {
			return s.mapRequestError(err, id)
		}
		if req.Status != model.RequestPending {
			return apperrors.State(apperrors.CodeRequestAlreadyResolved, "Request has already been resolved")
		}

		now := s.now().UTC()
		if err := s.repo.ResolveExperience(sessCtx, id, status, actor.UserID, message, now); err != nil {
			return s.mapRequestError(err, id)
		}
		if approve {
			if err := s.users.SetLevel(sessCtx, req.UserID, req.RequestedLevel); err != nil {
				return apperrors.Internal("Failed to update user level", err)
			}
		}

		req.Status = status
		req.AdminMessage = message
		req.ResolvedBy = actor.UserID
		req.ResolvedAt = &now
		resolved = req
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to resolve experience request", "id", id, "actor_id", actor.UserID, "error", err)
		return nil, err
	}

	s.cfg.Log.Info("Experience request resolved",
		"id", id,
		"status", status,
		"actor_id", actor.UserID,
	)
	s.emit(ctx, resolved.UserID, events.RequestResolvedPayload{
		RequestID:   id,
		RequestType: "experience",
		UserID:      resolved.UserID,
		Approved:    approve,
		ResolvedBy:  actor.UserID,
	})
	return resolved, nil
}

func (s *requestService) SubmitReactivation(ctx context.Context, userID, reason string) (*model.ReactivationRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.InvalidInput("Reason cannot be empty")
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsActive {
		return nil, apperrors.State(apperrors.CodeUserStillActive, "Account is already active")
	}

	req := &model.ReactivationRequest{
		UserID:    userID,
		Reason:    reason,
		Status:    model.RequestPending,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateReactivation(ctx, req); err != nil {
		if errors.Is(err, repository.ErrDuplicatePending) {
			return nil, apperrors.Conflict(apperrors.CodeDuplicatePendingReq,
				"A pending reactivation request already exists")
		}
		return nil, apperrors.Internal("Failed to create reactivation request", err)
	}

	s.cfg.Log.Info("Reactivation request submitted", "id", req.ID, "user_id", userID)
	return req, nil
}

// ResolveReactivation approves or denies a pending request. Approval restores
// the account and resets its activity clock so the dormancy sweep does not
// immediately re-deactivate it.
func (s *requestService) ResolveReactivation(ctx context.Context, id string, actor model.Actor, approve bool) (*model.ReactivationRequest, error) {
	if !actor.Admin() {
		return nil, apperrors.Forbidden("Only admins may resolve requests")
	}

	status := model.RequestDenied
	if approve {
		status = model.RequestApproved
	}

	var resolved *model.ReactivationRequest
	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		req, err := s.repo.FindReactivationByID(sessCtx, id)
		if err != nil {
			return s.mapRequestError(err, id)
		}
		if req.Status != model.RequestPending {
			return apperrors.State(apperrors.CodeRequestAlreadyResolved, "Request has already been resolved")
		}

		now := s.now().UTC()
		if err := s.repo.ResolveReactivation(sessCtx, id, status, actor.UserID, now); err != nil {
			return s.mapRequestError(err, id)
		}
		if approve {
			if err := s.users.Reactivate(sessCtx, req.UserID, now); err != nil {
				return apperrors.Internal("Failed to reactivate user", err)
			}
		}

		req.Status = status
		req.ResolvedBy = actor.UserID
		req.ResolvedAt = &now
		resolved = req
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to resolve reactivation request", "id", id, "actor_id", actor.UserID, "error", err)
		return nil, err
	}

	s.cfg.Log.Info("Reactivation request resolved",
		"id", id,
		"status", status,
		"actor_id", actor.UserID,
	)
	s.emit(ctx, resolved.UserID, events.RequestResolvedPayload{
		RequestID:   id,
		RequestType: "reactivation",
		UserID:      resolved.UserID,
		Approved:    approve,
		ResolvedBy:  actor.UserID,
	})
	return resolved, nil
}

func (s *requestService) loadUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, directoryrepo.ErrNotFound) || errors.Is(err, directoryrepo.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("User", userID)
		}
		return nil, apperrors.Internal("Failed to load user", err)
	}
	return user, nil
}

func (s *requestService) mapRequestError(err error, id string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFoundWithID("Request", id)
	case errors.Is(err, repository.ErrInvalidID):
		return apperrors.InvalidInput("Invalid request ID format")
	case apperrors.IsAppError(err):
		return err
	default:
		return apperrors.Internal("Request operation failed", err)
	}
}

func (s *requestService) emit(ctx context.Context, subject string, payload events.RequestResolvedPayload) {
	if err := s.emitter.Emit(ctx, events.TypeRequestResolved, subject, payload); err != nil {
		s.cfg.Log.Warn("Failed to emit event", "event_type", events.TypeRequestResolved, "subject", subject, "error", err)
	}
}
