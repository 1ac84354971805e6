package dto

import (
	"time"

	"github.com/noah-isme/vidassign-api/internal/models"
)

// NotificationCreateRequest describes a notification to deliver.
type NotificationCreateRequest struct {
	UserID     uint                   `json:"user_id" validate:"required,gt=0"`
	Type       string                 `json:"type" validate:"required,max=64"`
	Subject    string                 `json:"subject" validate:"omitempty,max=255"`
	Message    string                 `json:"message" validate:"required"`
	HTML       string                 `json:"html"`
	ContextURL string                 `json:"context_url" validate:"omitempty,max=512"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// NotificationResponse represents notification data returned to clients.
type NotificationResponse struct {
	ID         uint                   `json:"id"`
	UserID     uint                   `json:"user_id"`
	Type       string                 `json:"type"`
	Subject    string                 `json:"subject"`
	Message    string                 `json:"message"`
	HTML       string                 `json:"html,omitempty"`
	ContextURL string                 `json:"context_url,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Read       bool                   `json:"read"`
	CreatedAt  time.Time              `json:"created_at"`
}

// NewNotificationResponse converts a notification model to DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:         model.ID,
		UserID:     model.UserID,
		Type:       model.Type,
		Subject:    model.Subject,
		Message:    model.Message,
		HTML:       model.HTML,
		ContextURL: model.ContextURL,
		Metadata:   model.Metadata,
		Read:       model.IsRead(),
		CreatedAt:  model.CreatedAt,
	}
}

// NewNotificationResponseSlice converts a slice to DTOs.
func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewNotificationResponse(item))
	}
	return out
}

// EventListRequest filters the assignment event log.
type EventListRequest struct {
	AssignmentID  uint
	RelatedUserID *uint
	Action        string
	Page          int
	PageSize      int
}

// EventResponse serializes an assignment event.
type EventResponse struct {
	ID            uint                   `json:"id"`
	Action        string                 `json:"action"`
	CourseID      uint                   `json:"course_id"`
	AssignmentID  uint                   `json:"assignment_id"`
	ActorID       uint                   `json:"actor_id"`
	RelatedUserID *uint                  `json:"related_user_id,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

// NewEventResponse converts an event model to DTO.
func NewEventResponse(model models.AssignmentEvent) EventResponse {
	return EventResponse{
		ID:            model.ID,
		Action:        model.Action,
		CourseID:      model.CourseID,
		AssignmentID:  model.AssignmentID,
		ActorID:       model.ActorID,
		RelatedUserID: model.RelatedUserID,
		Metadata:      model.Metadata,
		CreatedAt:     model.CreatedAt,
	}
}

// EventListResponse wraps a page of events.
type EventListResponse struct {
	Items      []EventResponse `json:"items"`
	Pagination PaginationMeta  `json:"pagination"`
}
