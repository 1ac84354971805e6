package models

// GradeUngraded marks a submission that has not been assigned a grade.
const GradeUngraded = -1

// Comment formats accepted for grader feedback.
const (
	CommentFormatHTML  = "html"
	CommentFormatPlain = "plain"
)

// Submission is the single record a student holds for a video assignment.
// Timestamps are unix seconds; zero means never.
type Submission struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	AssignmentID     uint   `gorm:"not null;uniqueIndex:idx_submission_assignment_user" json:"assignment_id"`
	UserID           uint   `gorm:"not null;uniqueIndex:idx_submission_assignment_user;index" json:"user_id"`
	MediaReferenceID string `gorm:"size:255;index" json:"media_reference_id"`
	Grade            *int   `json:"grade"`
	Comment          string `gorm:"type:text" json:"comment"`
	CommentFormat    string `gorm:"size:16;not null;default:html" json:"comment_format"`
	GraderID         *uint  `json:"grader_id"`
	GradedAt         int64  `gorm:"not null;default:0" json:"graded_at"`
	CreatedAt        int64  `gorm:"autoCreateTime:false;not null;default:0" json:"created_at"`
	UpdatedAt        int64  `gorm:"autoUpdateTime:false;not null;default:0;index" json:"updated_at"`
}

// HasMedia reports whether a media reference has been submitted.
func (s Submission) HasMedia() bool {
	return s.MediaReferenceID != ""
}

// HasGrade reports whether a real grade (not the ungraded marker) is stored.
func (s Submission) HasGrade() bool {
	return s.Grade != nil && *s.Grade != GradeUngraded
}

// IsSubmitted reports whether the student ever submitted.
func (s Submission) IsSubmitted() bool {
	return s.UpdatedAt > 0
}

// RequiresGrading reports whether the last student change is newer than the last grading.
func (s Submission) RequiresGrading() bool {
	return s.GradedAt < s.UpdatedAt
}

// IsMarked reports whether the current submission has been graded since it last changed.
func (s Submission) IsMarked() bool {
	return s.CreatedAt > 0 && s.GradedAt > s.CreatedAt && s.GradedAt > s.UpdatedAt
}

// IsUnmarked reports whether the grader still owes a mark.
func (s Submission) IsUnmarked() bool {
	return s.GradedAt == 0 || s.Grade == nil || *s.Grade == GradeUngraded
}

// GradeHistory stores each persisted grade change for auditing.
type GradeHistory struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	SubmissionID uint   `gorm:"not null;index" json:"submission_id"`
	AssignmentID uint   `gorm:"not null;index" json:"assignment_id"`
	UserID       uint   `gorm:"not null;index" json:"user_id"`
	Grade        *int   `json:"grade"`
	Comment      string `gorm:"type:text" json:"comment"`
	GraderID     uint   `gorm:"not null" json:"grader_id"`
	GradedAt     int64  `gorm:"not null" json:"graded_at"`
}

// IntPtr returns a pointer to the provided grade value.
func IntPtr(v int) *int {
	return &v
}
