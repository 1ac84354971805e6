package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification types.
const (
	NotificationTeacherAlert  = "teacher_alert"
	NotificationGradeReleased = "grade_released"
)

// Notification is a message delivered to a single user.
type Notification struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	UserID     uint              `gorm:"not null;index" json:"user_id"`
	Type       string            `gorm:"size:64;not null" json:"type"`
	Subject    string            `gorm:"size:255" json:"subject"`
	Message    string            `gorm:"type:text" json:"message"`
	HTML       string            `gorm:"type:text" json:"html"`
	ContextURL string            `gorm:"size:512" json:"context_url"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	ReadAt     *time.Time        `json:"read_at"`
	CreatedAt  time.Time         `json:"created_at"`
}

// IsRead reports whether the recipient has acknowledged the notification.
func (n Notification) IsRead() bool {
	return n.ReadAt != nil
}
