package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/vidassign-api/internal/dto"
	"github.com/noah-isme/vidassign-api/internal/models"
	"github.com/noah-isme/vidassign-api/internal/observability"
	"github.com/noah-isme/vidassign-api/internal/policy"
	"github.com/noah-isme/vidassign-api/internal/repository"
)

// MediaTagger labels media assets referenced by submissions.
type MediaTagger interface {
	AddAssessmentTag(ctx context.Context, mediaReferenceID string) error
	RemoveAssessmentTag(ctx context.Context, mediaReferenceID string) error
}

// SubmissionService handles student video submissions.
type SubmissionService interface {
	Submit(ctx context.Context, assignmentID, userID uint, mediaReferenceID string, now time.Time) (models.Submission, error)
	Status(ctx context.Context, assignmentID, userID uint, now time.Time) (dto.SubmissionStatusResponse, error)
}

type submissionService struct {
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	access      courseAccess
	events      EventRecorder
	alerter     TeacherAlerter
	tagger      MediaTagger
	summaries   SummaryInvalidator
	logger      zerolog.Logger
}

// NewSubmissionService constructs a SubmissionService instance. tagger and
// summaries may be nil.
func NewSubmissionService(assignments repository.AssignmentRepository, submissions repository.SubmissionRepository, enrollments repository.EnrollmentRepository, events EventRecorder, alerter TeacherAlerter, tagger MediaTagger, summaries SummaryInvalidator, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		assignments: assignments,
		submissions: submissions,
		access:      courseAccess{enrollments: enrollments},
		events:      events,
		alerter:     alerter,
		tagger:      tagger,
		summaries:   summaries,
		logger:      logger.With().Str("component", "submission_service").Logger(),
	}
}

func (s *submissionService) loadAssignment(ctx context.Context, id uint) (models.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}
	return assignment, nil
}

// Submit records the student's media reference. The returned error may be a
// partial failure when follow-up notifications fail after the write.
func (s *submissionService) Submit(ctx context.Context, assignmentID, userID uint, mediaReferenceID string, now time.Time) (models.Submission, error) {
	mediaReferenceID = strings.TrimSpace(mediaReferenceID)
	if mediaReferenceID == "" {
		return models.Submission{}, newValidationError("media_reference_id", "required")
	}

	assignment, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return models.Submission{}, err
	}
	if err := s.access.requireStudent(ctx, assignment.CourseID, userID); err != nil {
		return models.Submission{}, err
	}

	if policy.IsExpired(assignment, now) && assignment.PreventLate {
		observability.Submissions().WithLabelValues("expired").Inc()
		return models.Submission{}, ErrSubmissionExpired
	}

	submission, previousMedia, err := s.store(ctx, assignment.ID, userID, mediaReferenceID, now.Unix())
	if err != nil {
		return models.Submission{}, err
	}

	logger := s.logger.With().
		Uint("assignment_id", assignment.ID).
		Uint("user_id", userID).
		Logger()
	logger.Info().Str("media_reference_id", mediaReferenceID).Msg("media submitted")

	s.retag(ctx, previousMedia, mediaReferenceID)

	if s.summaries != nil {
		s.summaries.Invalidate(ctx, assignment.ID)
	}

	var followUps []error
	related := userID
	if err := s.events.Record(ctx, EventEntry{
		Action:        models.EventMediaSubmitted,
		CourseID:      assignment.CourseID,
		AssignmentID:  assignment.ID,
		ActorID:       userID,
		RelatedUserID: &related,
		Metadata: map[string]interface{}{
			"media_reference_id": mediaReferenceID,
			"resubmission":       previousMedia != "",
		},
	}); err != nil {
		followUps = append(followUps, &NotificationError{Event: models.EventMediaSubmitted, Err: err})
	}

	if assignment.EmailTeachers && s.alerter != nil {
		if err := s.alerter.AlertGraders(ctx, assignment, submission); err != nil {
			logger.Error().Err(err).Msg("failed to alert graders")
			followUps = append(followUps, &NotificationError{Event: models.NotificationTeacherAlert, Err: err})
		}
	}

	return submission, errors.Join(followUps...)
}

// store inserts or updates the single submission row and returns the media
// reference it replaced.
func (s *submissionService) store(ctx context.Context, assignmentID, userID uint, mediaReferenceID string, now int64) (models.Submission, string, error) {
	existing, err := s.submissions.Find(ctx, assignmentID, userID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		submission := models.Submission{
			AssignmentID:     assignmentID,
			UserID:           userID,
			MediaReferenceID: mediaReferenceID,
			Grade:            models.IntPtr(models.GradeUngraded),
			CommentFormat:    models.CommentFormatHTML,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		err := s.submissions.Create(ctx, &submission)
		if err == nil {
			observability.Submissions().WithLabelValues("created").Inc()
			return submission, "", nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.Submission{}, "", err
		}
		existing, err = s.submissions.Find(ctx, assignmentID, userID)
		if err != nil {
			return models.Submission{}, "", err
		}
	case err != nil:
		return models.Submission{}, "", err
	}

	previous := existing.MediaReferenceID
	existing.MediaReferenceID = mediaReferenceID
	existing.UpdatedAt = now
	if existing.CreatedAt == 0 {
		existing.CreatedAt = now
	}

	if err := s.submissions.Update(ctx, &existing); err != nil {
		return models.Submission{}, "", err
	}

	observability.Submissions().WithLabelValues("updated").Inc()
	return existing, previous, nil
}

func (s *submissionService) retag(ctx context.Context, previous, current string) {
	if s.tagger == nil {
		return
	}

	if err := s.tagger.AddAssessmentTag(ctx, current); err != nil {
		s.logger.Warn().Err(err).Str("media_reference_id", current).Msg("failed to tag submitted media")
	}

	if previous == "" || previous == current {
		return
	}

	count, err := s.submissions.CountByMedia(ctx, previous)
	if err != nil {
		s.logger.Warn().Err(err).Str("media_reference_id", previous).Msg("failed to count media references")
		return
	}
	if count > 0 {
		return
	}
	if err := s.tagger.RemoveAssessmentTag(ctx, previous); err != nil {
		s.logger.Warn().Err(err).Str("media_reference_id", previous).Msg("failed to untag replaced media")
	}
}

func (s *submissionService) Status(ctx context.Context, assignmentID, userID uint, now time.Time) (dto.SubmissionStatusResponse, error) {
	assignment, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return dto.SubmissionStatusResponse{}, err
	}
	if err := s.access.requireStudent(ctx, assignment.CourseID, userID); err != nil {
		return dto.SubmissionStatusResponse{}, err
	}

	status := dto.SubmissionStatusResponse{
		Assignment:     dto.NewAssignmentResponse(assignment),
		Open:           policy.IsOpen(assignment, now),
		Expired:        policy.IsExpired(assignment, now),
		SubmitDisabled: policy.SubmitDisabled(assignment, now),
	}
	if assignment.HasDueDate() {
		status.RemainingTime = policy.RemainingTime(*assignment.TimeDue, now).String()
	}

	submission, err := s.submissions.Find(ctx, assignmentID, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.SubmissionStatusResponse{}, fmt.Errorf("load submission: %w", err)
	}

	if err != nil {
		status.CanResubmit = policy.CanResubmitSubmission(assignment, now, nil)
		return status, nil
	}

	response := dto.NewSubmissionResponse(submission)
	status.Submission = &response
	status.Submitted = submission.IsSubmitted()
	status.Marked = submission.IsMarked()
	status.Late = policy.IsLateSubmission(assignment, submission)
	status.CanResubmit = policy.CanResubmitSubmission(assignment, now, &submission)

	return status, nil
}
