package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/vidassign-api/internal/models"
)

// PreferenceRepository stores grader preferences.
type PreferenceRepository interface {
	Get(ctx context.Context, userID uint) (models.GradingPreference, error)
	Save(ctx context.Context, preference *models.GradingPreference) error
}

type preferenceRepository struct {
	db *gorm.DB
}

// NewPreferenceRepository constructs a GORM-backed preference repository.
func NewPreferenceRepository(db *gorm.DB) PreferenceRepository {
	return &preferenceRepository{db: db}
}

func (r *preferenceRepository) Get(ctx context.Context, userID uint) (models.GradingPreference, error) {
	var preference models.GradingPreference
	if err := r.db.WithContext(ctx).First(&preference, "user_id = ?", userID).Error; err != nil {
		return models.GradingPreference{}, err
	}

	return preference, nil
}

func (r *preferenceRepository) Save(ctx context.Context, preference *models.GradingPreference) error {
	return r.db.WithContext(ctx).Save(preference).Error
}
