package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/vidassign-api/internal/dto"
	"github.com/noah-isme/vidassign-api/internal/models"
	"github.com/noah-isme/vidassign-api/internal/repository"
)

// PreferenceService stores per-grader listing preferences.
type PreferenceService interface {
	Get(ctx context.Context, userID uint) (dto.PreferenceResponse, error)
	Save(ctx context.Context, userID uint, payload dto.PreferenceRequest) (dto.PreferenceResponse, error)
}

type preferenceService struct {
	repo      repository.PreferenceRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewPreferenceService constructs the preference service.
func NewPreferenceService(repo repository.PreferenceRepository, validate *validator.Validate, logger zerolog.Logger) PreferenceService {
	return &preferenceService{
		repo:      repo,
		validator: validate,
		logger:    logger.With().Str("component", "preference_service").Logger(),
	}
}

func (s *preferenceService) Get(ctx context.Context, userID uint) (dto.PreferenceResponse, error) {
	preference, err := s.repo.Get(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.NewPreferenceResponse(models.DefaultGradingPreference(userID)), nil
	}
	if err != nil {
		return dto.PreferenceResponse{}, err
	}

	return dto.NewPreferenceResponse(preference), nil
}

func (s *preferenceService) Save(ctx context.Context, userID uint, payload dto.PreferenceRequest) (dto.PreferenceResponse, error) {
	if userID == 0 {
		return dto.PreferenceResponse{}, newValidationError("user_id", "required")
	}
	if payload.PerPage <= 0 {
		return dto.PreferenceResponse{}, newValidationError("per_page", "must be greater than zero")
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.PreferenceResponse{}, validationFromStruct(err)
	}

	preference := models.GradingPreference{
		UserID:         userID,
		Filter:         payload.Filter,
		PerPage:        payload.PerPage,
		QuickGrade:     payload.QuickGrade,
		GroupFilter:    payload.GroupFilter,
		NotifyStudents: payload.NotifyStudents,
	}
	if err := s.repo.Save(ctx, &preference); err != nil {
		return dto.PreferenceResponse{}, err
	}

	s.logger.Debug().Uint("user_id", userID).Int("filter", preference.Filter).Int("per_page", preference.PerPage).Msg("grading preferences saved")

	return dto.NewPreferenceResponse(preference), nil
}
