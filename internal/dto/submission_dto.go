package dto

import (
	"time"

	"github.com/noah-isme/vidassign-api/internal/models"
)

// SubmitRequest is the student payload referencing an uploaded video.
type SubmitRequest struct {
	MediaReferenceID string `json:"media_reference_id" validate:"required,max=255"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID               uint       `json:"id"`
	AssignmentID     uint       `json:"assignment_id"`
	UserID           uint       `json:"user_id"`
	MediaReferenceID string     `json:"media_reference_id"`
	Grade            *int       `json:"grade"`
	Comment          string     `json:"comment"`
	CommentFormat    string     `json:"comment_format"`
	GraderID         *uint      `json:"grader_id"`
	GradedAt         *time.Time `json:"graded_at"`
	CreatedAt        *time.Time `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:               model.ID,
		AssignmentID:     model.AssignmentID,
		UserID:           model.UserID,
		MediaReferenceID: model.MediaReferenceID,
		Grade:            model.Grade,
		Comment:          model.Comment,
		CommentFormat:    model.CommentFormat,
		GraderID:         model.GraderID,
		GradedAt:         UnixTime(model.GradedAt),
		CreatedAt:        UnixTime(model.CreatedAt),
		UpdatedAt:        UnixTime(model.UpdatedAt),
	}
}

// SubmissionStatusResponse is the student's view of their own submission.
type SubmissionStatusResponse struct {
	Assignment     AssignmentResponse  `json:"assignment"`
	Submission     *SubmissionResponse `json:"submission"`
	Submitted      bool                `json:"submitted"`
	Marked         bool                `json:"marked"`
	Late           bool                `json:"late"`
	Open           bool                `json:"open"`
	Expired        bool                `json:"expired"`
	CanResubmit    bool                `json:"can_resubmit"`
	SubmitDisabled bool                `json:"submit_disabled"`
	RemainingTime  string              `json:"remaining_time,omitempty"`
}
