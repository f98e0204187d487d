package service

import (
	"context"
	"errors"

	bikeserrors "keiteki/internal/bikes/errors"
	"keiteki/internal/bikes/repository"
	"keiteki/pkg/config"
	apperrors "keiteki/pkg/errors"
	"keiteki/pkg/model"
)

type BikeService interface {
	GetByID(ctx context.Context, id string) (*model.Bike, error)
	GetAll(ctx context.Context) ([]*model.Bike, error)
}

type bikeService struct {
	repo repository.BikeRepository
	cfg  *config.Config
}

func NewBikeService(repo repository.BikeRepository, cfg *config.Config) BikeService {
	return &bikeService{
		repo: repo,
		cfg:  cfg,
	}
}

func (s *bikeService) GetByID(ctx context.Context, id string) (*model.Bike, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Bike ID cannot be empty")
	}

	bike, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bikeserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Bike", id)
		}
		return nil, apperrors.Internal("Failed to retrieve bike", err)
	}

	return bike, nil
}

func (s *bikeService) GetAll(ctx context.Context) ([]*model.Bike, error) {
	bikes, err := s.repo.FindAll(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list bikes", "error", err)
		return nil, apperrors.Internal("Failed to retrieve bikes", err)
	}

	return bikes, nil
}
