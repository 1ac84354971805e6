package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/vidassign-api/internal/models"
)

// EventFilter narrows assignment event queries.
type EventFilter struct {
	Page          int
	PageSize      int
	AssignmentID  uint
	RelatedUserID *uint
	Action        string
}

// EventRepository persists the assignment audit trail.
type EventRepository interface {
	Create(ctx context.Context, event *models.AssignmentEvent) error
	List(ctx context.Context, filter EventFilter) ([]models.AssignmentEvent, int64, error)
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository constructs the event repository.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, event *models.AssignmentEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *eventRepository) List(ctx context.Context, filter EventFilter) ([]models.AssignmentEvent, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AssignmentEvent{})

	if filter.AssignmentID != 0 {
		query = query.Where("assignment_id = ?", filter.AssignmentID)
	}

	if filter.RelatedUserID != nil {
		query = query.Where("related_user_id = ?", *filter.RelatedUserID)
	}

	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var events []models.AssignmentEvent
	if err := query.Order("created_at DESC").Order("id DESC").Find(&events).Error; err != nil {
		return nil, 0, err
	}

	return events, total, nil
}
