package models

import "time"

// Group modes supported by an assignment.
const (
	GroupModeNone     = "none"
	GroupModeSeparate = "separate"
	GroupModeVisible  = "visible"
)

// Assignment represents a video assignment inside a course.
type Assignment struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	CourseID      uint       `gorm:"not null;index" json:"course_id"`
	Name          string     `gorm:"size:255;not null" json:"name"`
	Intro         string     `gorm:"type:text" json:"intro"`
	IDNumber      string     `gorm:"size:100" json:"id_number"`
	GradeMax      int        `gorm:"not null" json:"grade_max"`
	TimeAvailable *time.Time `json:"time_available"`
	TimeDue       *time.Time `json:"time_due"`
	PreventLate   bool       `gorm:"not null;default:false" json:"prevent_late"`
	AllowResubmit bool       `gorm:"not null;default:false" json:"allow_resubmit"`
	EmailTeachers bool       `gorm:"not null;default:false" json:"email_teachers"`
	GroupMode     string     `gorm:"size:16;not null;default:none" json:"group_mode"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// GradeType derives how the gradebook should interpret grades for the assignment.
func (a Assignment) GradeType() string {
	switch {
	case a.GradeMax > 0:
		return GradeTypeValue
	case a.GradeMax < 0:
		return GradeTypeScale
	default:
		return GradeTypeText
	}
}

// ScaleID returns the scale identifier encoded as a negative maximum grade.
func (a Assignment) ScaleID() uint {
	if a.GradeMax >= 0 {
		return 0
	}
	return uint(-a.GradeMax)
}

// HasDueDate reports whether a due date has been configured.
func (a Assignment) HasDueDate() bool {
	return a.TimeDue != nil && !a.TimeDue.IsZero()
}

// HasAvailableDate reports whether an availability date has been configured.
func (a Assignment) HasAvailableDate() bool {
	return a.TimeAvailable != nil && !a.TimeAvailable.IsZero()
}

// UsesSeparateGroups reports whether graders only see their own groups.
func (a Assignment) UsesSeparateGroups() bool {
	return a.GroupMode == GroupModeSeparate
}
