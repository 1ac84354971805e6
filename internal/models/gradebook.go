package models

import "time"

// ModuleType identifies gradebook items owned by video assignments.
const ModuleType = "kalvidassign"

// Grade types understood by the gradebook.
const (
	GradeTypeValue = "value"
	GradeTypeScale = "scale"
	GradeTypeText  = "text"
)

// GradeItem is the gradebook column backing a single assignment.
type GradeItem struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	CourseID   uint       `gorm:"not null;index" json:"course_id"`
	ModuleType string     `gorm:"size:64;not null;uniqueIndex:idx_grade_item_module" json:"module_type"`
	InstanceID uint       `gorm:"not null;uniqueIndex:idx_grade_item_module" json:"instance_id"`
	ItemName   string     `gorm:"size:255" json:"item_name"`
	IDNumber   string     `gorm:"size:100" json:"id_number"`
	GradeType  string     `gorm:"size:16;not null" json:"grade_type"`
	GradeMax   float64    `json:"grade_max"`
	GradeMin   float64    `json:"grade_min"`
	ScaleID    *uint      `json:"scale_id"`
	ResetAt    *time.Time `json:"reset_at"`
	Deleted    bool       `gorm:"not null;default:false" json:"deleted"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// GradeEntry holds one user's grade inside a gradebook item.
type GradeEntry struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	GradeItemID    uint      `gorm:"not null;uniqueIndex:idx_grade_entry_user" json:"grade_item_id"`
	UserID         uint      `gorm:"not null;uniqueIndex:idx_grade_entry_user" json:"user_id"`
	RawGrade       *float64  `json:"raw_grade"`
	Feedback       string    `gorm:"type:text" json:"feedback"`
	FeedbackFormat string    `gorm:"size:16" json:"feedback_format"`
	GraderID       *uint     `json:"grader_id"`
	GradedAt       int64     `json:"graded_at"`
	SubmittedAt    int64     `json:"submitted_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// GradeSnapshot is the payload pushed to the gradebook after a grading change.
type GradeSnapshot struct {
	UserID         uint     `json:"user_id"`
	RawGrade       *float64 `json:"raw_grade"`
	Feedback       string   `json:"feedback"`
	FeedbackFormat string   `json:"feedback_format"`
	GraderID       *uint    `json:"grader_id"`
	GradedAt       int64    `json:"graded_at"`
	SubmittedAt    int64    `json:"submitted_at"`
}

// SnapshotFromSubmission converts a submission into a gradebook snapshot.
// The ungraded marker becomes a missing raw grade.
func SnapshotFromSubmission(s Submission) GradeSnapshot {
	snapshot := GradeSnapshot{
		UserID:         s.UserID,
		Feedback:       s.Comment,
		FeedbackFormat: s.CommentFormat,
		GraderID:       s.GraderID,
		GradedAt:       s.GradedAt,
		SubmittedAt:    s.UpdatedAt,
	}
	if s.HasGrade() {
		raw := float64(*s.Grade)
		snapshot.RawGrade = &raw
	}
	return snapshot
}
