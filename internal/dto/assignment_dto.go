package dto

import (
	"time"

	"github.com/noah-isme/vidassign-api/internal/models"
)

// AssignmentCreateRequest describes the payload to create an assignment.
type AssignmentCreateRequest struct {
	CourseID      uint       `json:"course_id" validate:"required,gt=0"`
	Name          string     `json:"name" validate:"required,min=1,max=255"`
	Intro         string     `json:"intro" validate:"omitempty,max=20000"`
	IDNumber      string     `json:"id_number" validate:"omitempty,max=100"`
	GradeMax      int        `json:"grade_max"`
	TimeAvailable *time.Time `json:"time_available"`
	TimeDue       *time.Time `json:"time_due"`
	PreventLate   bool       `json:"prevent_late"`
	AllowResubmit bool       `json:"allow_resubmit"`
	EmailTeachers bool       `json:"email_teachers"`
	GroupMode     string     `json:"group_mode" validate:"omitempty,oneof=none separate visible"`
}

// AssignmentUpdateRequest captures partial assignment updates.
type AssignmentUpdateRequest struct {
	Name               *string    `json:"name" validate:"omitempty,min=1,max=255"`
	Intro              *string    `json:"intro" validate:"omitempty,max=20000"`
	IDNumber           *string    `json:"id_number" validate:"omitempty,max=100"`
	GradeMax           *int       `json:"grade_max"`
	TimeAvailable      *time.Time `json:"time_available"`
	ClearTimeAvailable bool       `json:"clear_time_available"`
	TimeDue            *time.Time `json:"time_due"`
	ClearTimeDue       bool       `json:"clear_time_due"`
	PreventLate        *bool      `json:"prevent_late"`
	AllowResubmit      *bool      `json:"allow_resubmit"`
	EmailTeachers      *bool      `json:"email_teachers"`
	GroupMode          *string    `json:"group_mode" validate:"omitempty,oneof=none separate visible"`
}

// AssignmentResponse is returned to API clients when viewing assignments.
type AssignmentResponse struct {
	ID            uint       `json:"id"`
	CourseID      uint       `json:"course_id"`
	Name          string     `json:"name"`
	Intro         string     `json:"intro"`
	IDNumber      string     `json:"id_number"`
	GradeMax      int        `json:"grade_max"`
	GradeType     string     `json:"grade_type"`
	TimeAvailable *time.Time `json:"time_available"`
	TimeDue       *time.Time `json:"time_due"`
	PreventLate   bool       `json:"prevent_late"`
	AllowResubmit bool       `json:"allow_resubmit"`
	EmailTeachers bool       `json:"email_teachers"`
	GroupMode     string     `json:"group_mode"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewAssignmentResponse converts an assignment model to its DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:            model.ID,
		CourseID:      model.CourseID,
		Name:          model.Name,
		Intro:         model.Intro,
		IDNumber:      model.IDNumber,
		GradeMax:      model.GradeMax,
		GradeType:     model.GradeType(),
		TimeAvailable: model.TimeAvailable,
		TimeDue:       model.TimeDue,
		PreventLate:   model.PreventLate,
		AllowResubmit: model.AllowResubmit,
		EmailTeachers: model.EmailTeachers,
		GroupMode:     model.GroupMode,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

// NewAssignmentResponseSlice converts assignment models into DTOs.
func NewAssignmentResponseSlice(items []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, NewAssignmentResponse(item))
	}
	return responses
}

// CourseResetRequest selects what a course reset removes.
type CourseResetRequest struct {
	DeleteSubmissions bool  `json:"delete_submissions"`
	ResetGradebook    bool  `json:"reset_gradebook"`
	TimeShiftSeconds  int64 `json:"time_shift_seconds"`
}

// CourseResetStatus reports one step of a course reset.
type CourseResetStatus struct {
	Component string `json:"component"`
	Item      string `json:"item"`
	Error     bool   `json:"error"`
}

// ScaleUsageResponse reports whether a scale is referenced by any assignment.
type ScaleUsageResponse struct {
	ScaleID uint `json:"scale_id"`
	InUse   bool `json:"in_use"`
}
