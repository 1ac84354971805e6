package models

import (
	"time"

	"gorm.io/datatypes"
)

// Event actions emitted by the submission and grading workflows.
const (
	EventMediaSubmitted    = "media_submitted"
	EventGradesUpdated     = "grades_updated"
	EventAssignmentCreated = "assignment_created"
	EventAssignmentUpdated = "assignment_updated"
	EventAssignmentDeleted = "assignment_deleted"
	EventCourseReset       = "course_reset"
)

// AssignmentEvent is an auditable event attached to an assignment.
type AssignmentEvent struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	Action        string            `gorm:"size:64;not null;index" json:"action"`
	CourseID      uint              `gorm:"not null;index" json:"course_id"`
	AssignmentID  uint              `gorm:"not null;index" json:"assignment_id"`
	ActorID       uint              `gorm:"not null" json:"actor_id"`
	RelatedUserID *uint             `json:"related_user_id"`
	Metadata      datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt     time.Time         `json:"created_at"`
}
