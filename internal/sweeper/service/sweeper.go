package service

import (
	"context"
	"errors"
	"os"
	"time"

	directoryrepo "shelterwalk/internal/directory/repository"
	"shelterwalk/internal/events"
	"shelterwalk/internal/sweeper/repository"
	settingsservice "shelterwalk/internal/settings/service"
	"shelterwalk/pkg/config"
	apperrors "shelterwalk/pkg/errors"
	"shelterwalk/pkg/model"

	"github.com/google/uuid"
)

// leaseID is the single lease document all sweeper instances contend on.
const leaseID = "dormancy_sweep"

const deactivationReason = "inactive beyond the dormancy threshold"

// Sweeper deactivates accounts with no activity past the configured
// threshold. A short-lived lease keeps concurrent instances from sweeping the
// same window; the sweep itself is idempotent, so a crashed run is simply
// redone after the lease expires.
type Sweeper struct {
	leases  repository.LeaseRepository
	users   directoryrepo.UserRepository
	policy  settingsservice.PolicyStore
	emitter events.Emitter
	cfg     *config.Config

	holder string
	now    func() time.Time
}

func NewSweeper(
	leases repository.LeaseRepository,
	users directoryrepo.UserRepository,
	policy settingsservice.PolicyStore,
	emitter events.Emitter,
	cfg *config.Config,
) *Sweeper {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "sweeper"
	}
	return &Sweeper{
		leases:  leases,
		users:   users,
		policy:  policy,
		emitter: emitter,
		cfg:     cfg,
		holder:  hostname + "-" + uuid.NewString(),
		now:     time.Now,
	}
}

// Run executes one sweep. It returns the number of accounts deactivated; zero
// with a nil error also covers the case where another instance holds the
// lease.
func (s *Sweeper) Run(ctx context.Context) (int, error) {
	now := s.now().UTC()

	lease := &model.SweepLease{
		ID:        leaseID,
		Holder:    s.holder,
		ExpiresAt: now.Add(s.cfg.SweepLeaseTTL),
	}
	if err := s.leases.Acquire(ctx, lease); err != nil {
		if errors.Is(err, repository.ErrLeaseHeld) {
			s.cfg.Log.Info("Sweep skipped, lease held by another instance")
			return 0, nil
		}
		return 0, apperrors.Internal("Failed to acquire sweep lease", err)
	}
	defer func() {
		if err := s.leases.Release(ctx, leaseID, s.holder); err != nil {
			s.cfg.Log.Warn("Failed to release sweep lease", "error", err)
		}
	}()

	thresholdDays, err := s.policy.GetInt(ctx, model.SettingAutoDeactivationDays)
	if err != nil {
		return 0, err
	}
	cutoff := now.AddDate(0, 0, -thresholdDays)

	dormant, err := s.users.FindDormant(ctx, cutoff)
	if err != nil {
		return 0, apperrors.Internal("Failed to find dormant users", err)
	}

	deactivated := 0
	for _, user := range dormant {
		if ctx.Err() != nil {
			break
		}
		if err := s.users.Deactivate(ctx, user.ID, deactivationReason, now); err != nil {
			// Keep going; the user stays dormant and the next sweep picks
			// them up again.
			s.cfg.Log.Error("Failed to deactivate dormant user", "user_id", user.ID, "error", err)
			continue
		}
		deactivated++

		s.cfg.Log.Info("User deactivated for dormancy",
			"user_id", user.ID,
			"last_activity_at", user.LastActivityAt,
		)
		if err := s.emitter.Emit(ctx, events.TypeUserDeactivated, user.ID, events.UserDeactivatedPayload{
			UserID:         user.ID,
			Reason:         deactivationReason,
			LastActivityAt: user.LastActivityAt,
		}); err != nil {
			s.cfg.Log.Warn("Failed to emit event", "event_type", events.TypeUserDeactivated, "user_id", user.ID, "error", err)
		}
	}

	s.cfg.Log.Info("Sweep finished",
		"dormant", len(dormant),
		"deactivated", deactivated,
		"cutoff", cutoff.Format(time.RFC3339),
	)
	return deactivated, nil
}

// Loop runs sweeps on the configured interval until the context is cancelled.
// The first sweep runs immediately.
func (s *Sweeper) Loop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		if _, err := s.Run(ctx); err != nil {
			s.cfg.Log.Error("Sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
