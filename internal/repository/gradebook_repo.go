package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/vidassign-api/internal/models"
)

// GradebookRepository persists gradebook items and per-user entries.
type GradebookRepository interface {
	UpsertItem(ctx context.Context, item *models.GradeItem) error
	FindItem(ctx context.Context, moduleType string, instanceID uint) (models.GradeItem, error)
	UpsertEntry(ctx context.Context, entry *models.GradeEntry) error
	FindEntry(ctx context.Context, itemID, userID uint) (models.GradeEntry, error)
	ResetItem(ctx context.Context, moduleType string, instanceID uint, at time.Time) error
	DeleteItem(ctx context.Context, moduleType string, instanceID uint) error
}

type gradebookRepository struct {
	db *gorm.DB
}

// NewGradebookRepository constructs a GORM-backed gradebook repository.
func NewGradebookRepository(db *gorm.DB) GradebookRepository {
	return &gradebookRepository{db: db}
}

func (r *gradebookRepository) UpsertItem(ctx context.Context, item *models.GradeItem) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "module_type"}, {Name: "instance_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"course_id", "item_name", "id_number", "grade_type",
			"grade_max", "grade_min", "scale_id", "deleted", "updated_at",
		}),
	}).Create(item).Error
	if err != nil {
		return err
	}

	stored, err := r.FindItem(ctx, item.ModuleType, item.InstanceID)
	if err != nil {
		return err
	}
	*item = stored
	return nil
}

func (r *gradebookRepository) FindItem(ctx context.Context, moduleType string, instanceID uint) (models.GradeItem, error) {
	var item models.GradeItem
	if err := r.db.WithContext(ctx).
		Where("module_type = ? AND instance_id = ?", moduleType, instanceID).
		First(&item).Error; err != nil {
		return models.GradeItem{}, err
	}

	return item, nil
}

func (r *gradebookRepository) UpsertEntry(ctx context.Context, entry *models.GradeEntry) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "grade_item_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"raw_grade", "feedback", "feedback_format", "grader_id",
			"graded_at", "submitted_at", "updated_at",
		}),
	}).Create(entry).Error
}

func (r *gradebookRepository) FindEntry(ctx context.Context, itemID, userID uint) (models.GradeEntry, error) {
	var entry models.GradeEntry
	if err := r.db.WithContext(ctx).
		Where("grade_item_id = ? AND user_id = ?", itemID, userID).
		First(&entry).Error; err != nil {
		return models.GradeEntry{}, err
	}

	return entry, nil
}

// ResetItem clears every entry of the item. A missing item is not an error.
func (r *gradebookRepository) ResetItem(ctx context.Context, moduleType string, instanceID uint, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.GradeItem
		err := tx.Where("module_type = ? AND instance_id = ?", moduleType, instanceID).First(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := tx.Where("grade_item_id = ?", item.ID).Delete(&models.GradeEntry{}).Error; err != nil {
			return err
		}
		return tx.Model(&item).Update("reset_at", at).Error
	})
}

// DeleteItem removes the item and its entries. A missing item is not an error.
func (r *gradebookRepository) DeleteItem(ctx context.Context, moduleType string, instanceID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.GradeItem
		err := tx.Where("module_type = ? AND instance_id = ?", moduleType, instanceID).First(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := tx.Where("grade_item_id = ?", item.ID).Delete(&models.GradeEntry{}).Error; err != nil {
			return err
		}
		return tx.Delete(&item).Error
	})
}
