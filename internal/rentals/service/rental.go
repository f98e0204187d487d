package service

import (
	"context"
	"errors"
	"time"

	bikeserrors "keiteki/internal/bikes/errors"
	bikesrepo "keiteki/internal/bikes/repository"
	billingservice "keiteki/internal/billing/service"
	rentalserrors "keiteki/internal/rentals/errors"
	"keiteki/internal/rentals/repository"
	"keiteki/internal/rentals/validator"
	"keiteki/pkg/config"
	"keiteki/pkg/daysplit"
	apperrors "keiteki/pkg/errors"
	"keiteki/pkg/model"
	"keiteki/pkg/sanitizer"
)

// EndResult summarizes a completed return: the closed rental, the
// ride length after day splitting, and any overage charged along the
// way.
type EndResult struct {
	Rental         *model.Rental `json:"rental"`
	TotalMinutes   int           `json:"total_minutes"`
	OverageCharged int           `json:"overage_charged"`
}

type RentalService interface {
	Start(ctx context.Context, req *model.RentalRequest) (*model.Rental, error)
	End(ctx context.Context, req *model.RentalRequest) (*EndResult, error)
	Current(ctx context.Context) ([]*model.Rental, error)
	Usage(ctx context.Context, residentKey string) ([]*model.DailyUsage, error)
}

type rentalService struct {
	repo        repository.RentalRepository
	bikes       bikesrepo.BikeRepository
	accumulator UsageAccumulator
	ledger      billingservice.BillingLedger
	validator   *validator.RentalValidator
	events      EventPublisher
	cfg         *config.Config
	now         func() time.Time
}

func NewRentalService(
	repo repository.RentalRepository,
	bikes bikesrepo.BikeRepository,
	accumulator UsageAccumulator,
	ledger billingservice.BillingLedger,
	validator *validator.RentalValidator,
	events EventPublisher,
	cfg *config.Config,
) RentalService {
	return &rentalService{
		repo:        repo,
		bikes:       bikes,
		accumulator: accumulator,
		ledger:      ledger,
		validator:   validator,
		events:      events,
		cfg:         cfg,
		now:         time.Now,
	}
}

func (s *rentalService) sanitize(req *model.RentalRequest) {
	req.Action = sanitizer.TrimAndNormalize(req.Action)
	req.BikeID = sanitizer.TrimAndNormalize(req.BikeID)
	req.ResidentKey = sanitizer.TrimAndNormalize(req.ResidentKey)
}

func (s *rentalService) validate(req *model.RentalRequest) error {
	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.Warn("Rental request validation failed", "error", err)
		return apperrors.Validation("Invalid rental request", map[string]any{"error": err.Error()})
	}
	return nil
}

func (s *rentalService) Start(ctx context.Context, req *model.RentalRequest) (*model.Rental, error) {
	s.sanitize(req)
	if err := s.validate(req); err != nil {
		return nil, err
	}

	if _, err := s.bikes.FindByID(ctx, req.BikeID); err != nil {
		if errors.Is(err, bikeserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Bike", req.BikeID)
		}
		return nil, apperrors.Internal("Failed to check bike existence", err)
	}

	rental := &model.Rental{
		BikeID:      req.BikeID,
		ResidentKey: req.ResidentKey,
		StartAt:     s.now().UTC().Truncate(time.Millisecond),
	}

	if err := s.repo.Create(ctx, rental); err != nil {
		if errors.Is(err, rentalserrors.ErrBikeInUse) {
			return nil, apperrors.Conflict("Bike already has an open rental")
		}
		s.cfg.Log.Error("Failed to create rental", "bike_id", req.BikeID, "error", err)
		return nil, apperrors.Internal("Failed to start rental", err)
	}

	s.cfg.Log.Info("Rental started",
		"id", rental.ID,
		"bike_id", rental.BikeID,
		"resident_key", rental.ResidentKey,
		"start_at", rental.StartAt,
	)

	publishEvent(ctx, s.cfg, s.events, EventRentalStarted, rentalEvent{
		RentalID:    rental.ID,
		BikeID:      rental.BikeID,
		ResidentKey: rental.ResidentKey,
		StartAt:     rental.StartAt,
	})

	return rental, nil
}

// End settles a return. Usage and billing are written before the
// rental is closed: if anything fails mid-way the rental stays open
// and the kiosk retries the whole return. Every write on that path
// is idempotent or latched, so a replay cannot double-charge.
func (s *rentalService) End(ctx context.Context, req *model.RentalRequest) (*EndResult, error) {
	s.sanitize(req)
	if err := s.validate(req); err != nil {
		return nil, err
	}

	rental, err := s.repo.FindOpenByBike(ctx, req.BikeID)
	if err != nil {
		if errors.Is(err, rentalserrors.ErrNoOpenRental) {
			return nil, apperrors.NotFoundWithID("Open rental for bike", req.BikeID)
		}
		return nil, apperrors.Internal("Failed to find open rental", err)
	}

	endAt := s.now().UTC().Truncate(time.Millisecond)

	segments, err := daysplit.Split(rental.StartAt, endAt, s.cfg.LocalOffset)
	if err != nil {
		return nil, apperrors.Validation("Rental interval is invalid", map[string]any{"error": err.Error()})
	}

	totalMinutes := 0
	overageCharged := 0
	for _, seg := range segments {
		charged, err := s.accumulator.Accumulate(ctx, rental.ResidentKey, seg)
		if err != nil {
			return nil, err
		}
		totalMinutes += seg.Minutes
		overageCharged += charged
	}

	endDate := daysplit.DateOf(endAt, s.cfg.LocalOffset)
	if err := s.ledger.SetBaseFee(ctx, endDate.YearMonth(), rental.ResidentKey, endDate.Half()); err != nil {
		return nil, err
	}

	if err := s.repo.Close(ctx, rental.ID, endAt); err != nil {
		if errors.Is(err, rentalserrors.ErrAlreadyClosed) {
			return nil, apperrors.Conflict("Rental was already returned")
		}
		s.cfg.Log.Error("Failed to close rental", "id", rental.ID, "error", err)
		return nil, apperrors.Internal("Failed to close rental", err)
	}
	rental.EndAt = &endAt

	s.cfg.Log.Info("Rental ended",
		"id", rental.ID,
		"bike_id", rental.BikeID,
		"resident_key", rental.ResidentKey,
		"total_minutes", totalMinutes,
		"overage_charged", overageCharged,
	)

	publishEvent(ctx, s.cfg, s.events, EventRentalEnded, rentalEvent{
		RentalID:     rental.ID,
		BikeID:       rental.BikeID,
		ResidentKey:  rental.ResidentKey,
		StartAt:      rental.StartAt,
		EndAt:        rental.EndAt,
		TotalMinutes: totalMinutes,
	})
	if overageCharged > 0 {
		publishEvent(ctx, s.cfg, s.events, EventOverageCharged, rentalEvent{
			RentalID:       rental.ID,
			BikeID:         rental.BikeID,
			ResidentKey:    rental.ResidentKey,
			StartAt:        rental.StartAt,
			EndAt:          rental.EndAt,
			OverageCharged: overageCharged,
		})
	}

	return &EndResult{
		Rental:         rental,
		TotalMinutes:   totalMinutes,
		OverageCharged: overageCharged,
	}, nil
}

// Usage returns the resident's recent daily counters for the kiosk's
// usage screen.
func (s *rentalService) Usage(ctx context.Context, residentKey string) ([]*model.DailyUsage, error) {
	residentKey = sanitizer.TrimAndNormalize(residentKey)
	if residentKey == "" {
		return nil, apperrors.InvalidInput("Resident key is required")
	}

	return s.accumulator.History(ctx, residentKey)
}

func (s *rentalService) Current(ctx context.Context) ([]*model.Rental, error) {
	rentals, err := s.repo.FindOpen(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list open rentals", "error", err)
		return nil, apperrors.Internal("Failed to retrieve open rentals", err)
	}

	return rentals, nil
}
