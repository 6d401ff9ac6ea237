package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"shelterwalk/internal/settings/repository"
	"shelterwalk/pkg/config"
	apperrors "shelterwalk/pkg/errors"
	"shelterwalk/pkg/model"
)

// PolicyStore exposes the tunable scheduling parameters. Readers always see
// the value visible at their transaction's start: reads go straight to the
// store through the caller's context, never through a cache.
type PolicyStore interface {
	Get(ctx context.Context, key string) (string, error)
	GetInt(ctx context.Context, key string) (int, error)
	Set(ctx context.Context, actor model.Actor, key, value string) error
	All(ctx context.Context) ([]*model.Setting, error)
	ResetDefaults(ctx context.Context, actor model.Actor) error
}

type policyStore struct {
	repo repository.SettingsRepository
	cfg  *config.Config
}

func NewPolicyStore(repo repository.SettingsRepository, cfg *config.Config) PolicyStore {
	return &policyStore{
		repo: repo,
		cfg:  cfg,
	}
}

func (s *policyStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if fallback, ok := model.DefaultSettings[key]; ok {
				return fallback, nil
			}
			return "", apperrors.NotFoundWithID("Setting", key)
		}
		return "", apperrors.Internal("Failed to read setting", err)
	}
	return value, nil
}

func (s *policyStore) GetInt(ctx context.Context, key string) (int, error) {
	value, err := s.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, apperrors.Internal(fmt.Sprintf("Setting %s is not a number", key), err)
	}
	return n, nil
}

func (s *policyStore) Set(ctx context.Context, actor model.Actor, key, value string) error {
	if !actor.Admin() {
		return apperrors.Forbidden("Only admins may change scheduling parameters")
	}
	if _, known := model.DefaultSettings[key]; !known {
		return apperrors.InvalidInput(fmt.Sprintf("Unknown setting: %s", key))
	}
	if n, err := strconv.Atoi(value); err != nil || n < 0 {
		return apperrors.InvalidInput(fmt.Sprintf("Setting %s must be a non-negative number, got: %s", key, value))
	}

	if err := s.repo.Set(ctx, key, value); err != nil {
		return apperrors.Internal("Failed to write setting", err)
	}

	s.cfg.Log.Info("Setting updated", "key", key, "value", value, "actor_id", actor.UserID)
	return nil
}

func (s *policyStore) All(ctx context.Context) ([]*model.Setting, error) {
	settings, err := s.repo.All(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to list settings", err)
	}
	return settings, nil
}

func (s *policyStore) ResetDefaults(ctx context.Context, actor model.Actor) error {
	if !actor.Admin() {
		return apperrors.Forbidden("Only admins may reset scheduling parameters")
	}
	if err := s.repo.ResetDefaults(ctx); err != nil {
		return apperrors.Internal("Failed to reset settings", err)
	}

	s.cfg.Log.Info("Settings reset to defaults", "actor_id", actor.UserID)
	return nil
}
