package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/vidassign-api/internal/models"
)

// CalendarRepository stores assignment calendar events.
type CalendarRepository interface {
	FindByInstance(ctx context.Context, moduleName string, instance uint, eventType string) (models.CalendarEvent, error)
	ListByInstance(ctx context.Context, moduleName string, instance uint) ([]models.CalendarEvent, error)
	Create(ctx context.Context, event *models.CalendarEvent) error
	Update(ctx context.Context, event *models.CalendarEvent) error
	DeleteByInstance(ctx context.Context, moduleName string, instance uint) (int64, error)
}

type calendarRepository struct {
	db *gorm.DB
}

// NewCalendarRepository constructs a GORM-backed calendar repository.
func NewCalendarRepository(db *gorm.DB) CalendarRepository {
	return &calendarRepository{db: db}
}

func (r *calendarRepository) FindByInstance(ctx context.Context, moduleName string, instance uint, eventType string) (models.CalendarEvent, error) {
	var event models.CalendarEvent
	if err := r.db.WithContext(ctx).
		Where("module_name = ? AND instance = ? AND event_type = ?", moduleName, instance, eventType).
		First(&event).Error; err != nil {
		return models.CalendarEvent{}, err
	}

	return event, nil
}

func (r *calendarRepository) ListByInstance(ctx context.Context, moduleName string, instance uint) ([]models.CalendarEvent, error) {
	var events []models.CalendarEvent
	if err := r.db.WithContext(ctx).
		Where("module_name = ? AND instance = ?", moduleName, instance).
		Order("time_start ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}

	return events, nil
}

func (r *calendarRepository) Create(ctx context.Context, event *models.CalendarEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *calendarRepository) Update(ctx context.Context, event *models.CalendarEvent) error {
	return r.db.WithContext(ctx).Save(event).Error
}

func (r *calendarRepository) DeleteByInstance(ctx context.Context, moduleName string, instance uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("module_name = ? AND instance = ?", moduleName, instance).
		Delete(&models.CalendarEvent{})
	return result.RowsAffected, result.Error
}
