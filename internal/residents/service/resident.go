package service

import (
	"context"
	"errors"
	"regexp"

	residentserrors "keiteki/internal/residents/errors"
	"keiteki/internal/residents/repository"
	"keiteki/internal/residents/validator"
	"keiteki/pkg/config"
	apperrors "keiteki/pkg/errors"
	"keiteki/pkg/model"
	"keiteki/pkg/sanitizer"
)

var yearMonthRegex = regexp.MustCompile(`^\d{6}$`)

type ResidentService interface {
	Register(ctx context.Context, yearMonth string, reg *model.ResidentRegistration) (*model.Resident, error)
	Get(ctx context.Context, yearMonth, residentKey string) (*model.Resident, error)
	List(ctx context.Context, yearMonth string) ([]*model.Resident, error)
}

type residentService struct {
	repo      repository.ResidentRepository
	validator *validator.ResidentValidator
	cfg       *config.Config
}

func NewResidentService(
	repo repository.ResidentRepository,
	validator *validator.ResidentValidator,
	cfg *config.Config,
) ResidentService {
	return &residentService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *residentService) sanitize(reg *model.ResidentRegistration) {
	reg.Wing = sanitizer.NormalizeUnit(reg.Wing)
	reg.Floor = sanitizer.NormalizeUnit(reg.Floor)
	reg.Side = sanitizer.NormalizeUnit(reg.Side)
	reg.Name = sanitizer.NormalizeName(reg.Name)
}

func (s *residentService) Register(ctx context.Context, yearMonth string, reg *model.ResidentRegistration) (*model.Resident, error) {
	if !yearMonthRegex.MatchString(yearMonth) {
		return nil, apperrors.InvalidInput("Invalid year-month, expected YYYYMM")
	}

	s.sanitize(reg)
	if err := s.validator.Validate(reg); err != nil {
		s.cfg.Log.Warn("Resident registration validation failed", "error", err)
		return nil, apperrors.Validation("Invalid registration", map[string]any{"error": err.Error()})
	}

	residentKey := model.BuildResidentKey(reg.Wing, reg.Floor, reg.Side, reg.Name)
	resident := &model.Resident{
		ID:          model.ResidentID(yearMonth, residentKey),
		YearMonth:   yearMonth,
		ResidentKey: residentKey,
		Wing:        reg.Wing,
		Floor:       reg.Floor,
		Side:        reg.Side,
		Name:        reg.Name,
	}

	if err := s.repo.Create(ctx, resident); err != nil {
		if errors.Is(err, residentserrors.ErrAlreadyRegistered) {
			return nil, apperrors.Conflict("Resident already registered for this month")
		}
		s.cfg.Log.Error("Failed to register resident", "resident_key", residentKey, "error", err)
		return nil, apperrors.Internal("Failed to register resident", err)
	}

	s.cfg.Log.Info("Resident registered",
		"year_month", yearMonth,
		"resident_key", residentKey,
	)
	return resident, nil
}

func (s *residentService) Get(ctx context.Context, yearMonth, residentKey string) (*model.Resident, error) {
	if !yearMonthRegex.MatchString(yearMonth) {
		return nil, apperrors.InvalidInput("Invalid year-month, expected YYYYMM")
	}

	resident, err := s.repo.FindByID(ctx, yearMonth, sanitizer.TrimAndNormalize(residentKey))
	if err != nil {
		if errors.Is(err, residentserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Resident", residentKey)
		}
		s.cfg.Log.Error("Failed to find resident", "resident_key", residentKey, "error", err)
		return nil, apperrors.Internal("Failed to retrieve resident", err)
	}

	return resident, nil
}

func (s *residentService) List(ctx context.Context, yearMonth string) ([]*model.Resident, error) {
	if !yearMonthRegex.MatchString(yearMonth) {
		return nil, apperrors.InvalidInput("Invalid year-month, expected YYYYMM")
	}

	residents, err := s.repo.ListByMonth(ctx, yearMonth)
	if err != nil {
		s.cfg.Log.Error("Failed to list residents", "year_month", yearMonth, "error", err)
		return nil, apperrors.Internal("Failed to retrieve residents", err)
	}

	return residents, nil
}
