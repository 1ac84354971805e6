package dto

import (
	"time"

	"github.com/noah-isme/vidassign-api/internal/models"
)

// GradeRequest carries a partial grade update. Absent fields are left alone.
type GradeRequest struct {
	Grade         *int    `json:"grade" validate:"omitempty,gte=-1"`
	Comment       *string `json:"comment" validate:"omitempty,max=65535"`
	CommentFormat string  `json:"comment_format" validate:"omitempty,oneof=html plain"`
	NotifyStudent *bool   `json:"notify_student"`
}

// QuickGradeRequest grades many students of one assignment at once.
type QuickGradeRequest struct {
	Grades         map[uint]GradeRequest `json:"grades" validate:"required,min=1,dive"`
	NotifyStudents *bool                 `json:"notify_students"`
}

// GradeResultResponse reports the outcome for one student.
type GradeResultResponse struct {
	UserID     uint                `json:"user_id"`
	Updated    bool                `json:"updated"`
	Submission *SubmissionResponse `json:"submission,omitempty"`
	Error      string              `json:"error,omitempty"`
	Warning    string              `json:"warning,omitempty"`
}

// SubmissionListRequest describes the grader's listing query.
type SubmissionListRequest struct {
	AssignmentID uint `json:"assignment_id"`
	Filter       int  `json:"filter"`
	GroupID      uint `json:"group_id"`
	Page         int  `json:"page"`
	PageSize     int  `json:"page_size"`
}

// LatenessResponse reports how early or late a submission arrived.
type LatenessResponse struct {
	Late    bool  `json:"late"`
	Seconds int64 `json:"seconds"`
}

// SubmissionRow is one student line in the grading listing.
type SubmissionRow struct {
	UserID          uint                `json:"user_id"`
	Username        string              `json:"username"`
	FullName        string              `json:"full_name"`
	Status          string              `json:"status"`
	RequiresGrading bool                `json:"requires_grading"`
	Lateness        *LatenessResponse   `json:"lateness,omitempty"`
	Submission      *SubmissionResponse `json:"submission"`
}

// Row statuses used by the grading listing.
const (
	RowStatusNotSubmitted = "not_submitted"
	RowStatusSubmitted    = "submitted"
	RowStatusGraded       = "graded"
)

// SubmissionListResponse wraps a page of grading rows.
type SubmissionListResponse struct {
	Filter     int             `json:"filter"`
	Items      []SubmissionRow `json:"items"`
	Pagination PaginationMeta  `json:"pagination"`
}

// GradingSummaryResponse is the grader's overview of an assignment.
type GradingSummaryResponse struct {
	AssignmentID    uint       `json:"assignment_id"`
	Participants    int        `json:"participants"`
	Submitted       int        `json:"submitted"`
	RequiresGrading int        `json:"requires_grading"`
	TimeAvailable   *time.Time `json:"time_available"`
	TimeDue         *time.Time `json:"time_due"`
	NotOpenYet      bool       `json:"not_open_yet"`
	Expired         bool       `json:"expired"`
	RemainingTime   string     `json:"remaining_time,omitempty"`
}

// GradeHistoryResponse serializes grading history entries.
type GradeHistoryResponse struct {
	Grade    *int       `json:"grade"`
	Comment  string     `json:"comment"`
	GraderID uint       `json:"grader_id"`
	GradedAt *time.Time `json:"graded_at"`
}

// NewGradeHistoryResponseSlice converts history rows into DTOs.
func NewGradeHistoryResponseSlice(items []models.GradeHistory) []GradeHistoryResponse {
	responses := make([]GradeHistoryResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, GradeHistoryResponse{
			Grade:    item.Grade,
			Comment:  item.Comment,
			GraderID: item.GraderID,
			GradedAt: UnixTime(item.GradedAt),
		})
	}
	return responses
}

// CourseOverviewItem is one assignment that needs attention on the course page.
type CourseOverviewItem struct {
	AssignmentID uint       `json:"assignment_id"`
	CourseID     uint       `json:"course_id"`
	Name         string     `json:"name"`
	TimeDue      *time.Time `json:"time_due"`
	PreventLate  bool       `json:"prevent_late"`
	NotSubmitted bool       `json:"not_submitted,omitempty"`
	Unmarked     int        `json:"unmarked,omitempty"`
}

// PreferenceRequest updates a grader's listing preferences.
type PreferenceRequest struct {
	Filter         int  `json:"filter" validate:"gte=0,lte=3"`
	PerPage        int  `json:"per_page" validate:"gt=0,lte=1000"`
	QuickGrade     bool `json:"quick_grade"`
	GroupFilter    uint `json:"group_filter"`
	NotifyStudents bool `json:"notify_students"`
}

// PreferenceResponse returns the stored grader preferences.
type PreferenceResponse struct {
	Filter         int  `json:"filter"`
	PerPage        int  `json:"per_page"`
	QuickGrade     bool `json:"quick_grade"`
	GroupFilter    uint `json:"group_filter"`
	NotifyStudents bool `json:"notify_students"`
}

// NewPreferenceResponse converts a preference model into a DTO.
func NewPreferenceResponse(model models.GradingPreference) PreferenceResponse {
	return PreferenceResponse{
		Filter:         model.Filter,
		PerPage:        model.PerPage,
		QuickGrade:     model.QuickGrade,
		GroupFilter:    model.GroupFilter,
		NotifyStudents: model.NotifyStudents,
	}
}
