package service

import (
	"context"
	"errors"

	"shelterwalk/internal/catalog/repository"
	"shelterwalk/pkg/config"
	apperrors "shelterwalk/pkg/errors"
	"shelterwalk/pkg/model"
)

// CatalogService exposes the shelter's dogs. Availability toggling is the
// only mutation; dog intake happens through the shelter's admin tooling, not
// this service.
type CatalogService interface {
	Get(ctx context.Context, id string) (*model.Dog, error)
	List(ctx context.Context) ([]*model.Dog, error)
	SetAvailability(ctx context.Context, actor model.Actor, id string, available bool, reason string) error
}

type catalogService struct {
	repo repository.DogRepository
	cfg  *config.Config
}

func NewCatalogService(repo repository.DogRepository, cfg *config.Config) CatalogService {
	return &catalogService{
		repo: repo,
		cfg:  cfg,
	}
}

func (s *catalogService) Get(ctx context.Context, id string) (*model.Dog, error) {
	dog, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Dog", id)
		}
		return nil, apperrors.Internal("Failed to load dog", err)
	}
	return dog, nil
}

func (s *catalogService) List(ctx context.Context) ([]*model.Dog, error) {
	dogs, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to list dogs", err)
	}
	return dogs, nil
}

func (s *catalogService) SetAvailability(ctx context.Context, actor model.Actor, id string, available bool, reason string) error {
	if !actor.Admin() {
		return apperrors.Forbidden("Only admins may change a dog's availability")
	}

	if err := s.repo.SetAvailability(ctx, id, available, reason); err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidID) {
			return apperrors.NotFoundWithID("Dog", id)
		}
		return apperrors.Internal("Failed to update dog availability", err)
	}

	s.cfg.Log.Info("Dog availability changed",
		"dog_id", id,
		"available", available,
		"actor_id", actor.UserID,
	)
	return nil
}
