package models

import "time"

// Submission list filters.
const (
	FilterAll             = 0
	FilterRequiresGrading = 1
	FilterSubmitted       = 2
	FilterNotSubmittedYet = 3
)

// DefaultPerPage is used when a grader has not saved a page size yet.
const DefaultPerPage = 10

// GradingPreference stores per-grader listing and quick-grade settings.
type GradingPreference struct {
	UserID         uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Filter         int       `gorm:"not null;default:0" json:"filter"`
	PerPage        int       `gorm:"not null;default:10" json:"per_page"`
	QuickGrade     bool      `gorm:"not null;default:false" json:"quick_grade"`
	GroupFilter    uint      `gorm:"not null;default:0" json:"group_filter"`
	NotifyStudents bool      `gorm:"not null" json:"notify_students"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DefaultGradingPreference returns the preference used before a grader saves one.
func DefaultGradingPreference(userID uint) GradingPreference {
	return GradingPreference{
		UserID:         userID,
		Filter:         FilterAll,
		PerPage:        DefaultPerPage,
		NotifyStudents: true,
	}
}
