package models

import "time"

// EventTypeDue marks the calendar entry that announces an assignment deadline.
const EventTypeDue = "due"

// CalendarEvent is a course calendar entry owned by an assignment.
type CalendarEvent struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Description  string    `gorm:"type:text" json:"description"`
	CourseID     uint      `gorm:"not null;index" json:"course_id"`
	ModuleName   string    `gorm:"size:64;not null;index:idx_calendar_instance" json:"module_name"`
	Instance     uint      `gorm:"not null;index:idx_calendar_instance" json:"instance"`
	EventType    string    `gorm:"size:32;not null" json:"event_type"`
	TimeStart    time.Time `json:"time_start"`
	TimeDuration int64     `gorm:"not null;default:0" json:"time_duration"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
