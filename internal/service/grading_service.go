package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/vidassign-api/internal/dto"
	"github.com/noah-isme/vidassign-api/internal/models"
	"github.com/noah-isme/vidassign-api/internal/observability"
	"github.com/noah-isme/vidassign-api/internal/repository"
)

// GradeInput is a partial grade update. Nil fields keep their stored value.
type GradeInput struct {
	Grade         *int
	Comment       *string
	CommentFormat string
	NotifyStudent bool
}

// GradeResult reports the outcome of grading one student.
type GradeResult struct {
	UserID     uint
	Updated    bool
	Submission models.Submission
	Err        error
}

// GradingService applies grader decisions to submissions.
type GradingService interface {
	GradeOne(ctx context.Context, assignmentID, userID uint, input GradeInput, grader Viewer, now time.Time) (GradeResult, error)
	GradeBatch(ctx context.Context, assignmentID uint, grades map[uint]GradeInput, grader Viewer, now time.Time) ([]GradeResult, error)
	History(ctx context.Context, assignmentID, userID uint, viewer Viewer) ([]models.GradeHistory, error)
}

type gradingService struct {
	assignments   repository.AssignmentRepository
	submissions   repository.SubmissionRepository
	access        courseAccess
	gradebook     GradebookSync
	events        EventRecorder
	notifications NotificationService
	summaries     SummaryInvalidator
	sanitizer     *bluemonday.Policy
	baseURL       string
	logger        zerolog.Logger
	tracer        trace.Tracer
}

// NewGradingService constructs the grading workflow. notifications and
// summaries may be nil.
func NewGradingService(assignments repository.AssignmentRepository, submissions repository.SubmissionRepository, enrollments repository.EnrollmentRepository, gradebook GradebookSync, events EventRecorder, notifications NotificationService, summaries SummaryInvalidator, baseURL string, logger zerolog.Logger) GradingService {
	return &gradingService{
		assignments:   assignments,
		submissions:   submissions,
		access:        courseAccess{enrollments: enrollments},
		gradebook:     gradebook,
		events:        events,
		notifications: notifications,
		summaries:     summaries,
		sanitizer:     bluemonday.UGCPolicy(),
		baseURL:       strings.TrimRight(baseURL, "/"),
		logger:        logger.With().Str("component", "grading_service").Logger(),
		tracer:        otel.Tracer("github.com/noah-isme/vidassign-api/internal/service/grading"),
	}
}

func (s *gradingService) GradeOne(ctx context.Context, assignmentID, userID uint, input GradeInput, grader Viewer, now time.Time) (GradeResult, error) {
	assignment, err := s.loadGradable(ctx, assignmentID, grader)
	if err != nil {
		return GradeResult{UserID: userID}, err
	}

	if err := s.access.requireStudent(ctx, assignment.CourseID, userID); err != nil {
		if errors.Is(err, ErrCourseAccessDenied) {
			return GradeResult{UserID: userID}, errNotCourseStudent
		}
		return GradeResult{UserID: userID}, err
	}

	return s.grade(ctx, assignment, userID, input, grader.UserID, now)
}

// GradeBatch grades every listed student in ascending user order. A failure
// for one student is reported in its result and does not stop the others.
func (s *gradingService) GradeBatch(ctx context.Context, assignmentID uint, grades map[uint]GradeInput, grader Viewer, now time.Time) ([]GradeResult, error) {
	if len(grades) == 0 {
		return nil, newValidationError("grades", "at least one grade is required")
	}

	assignment, err := s.loadGradable(ctx, assignmentID, grader)
	if err != nil {
		return nil, err
	}

	students, err := s.access.studentSet(ctx, assignment.CourseID)
	if err != nil {
		return nil, err
	}

	userIDs := make([]uint, 0, len(grades))
	for userID := range grades {
		userIDs = append(userIDs, userID)
	}
	sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })

	results := make([]GradeResult, 0, len(userIDs))
	failures := 0
	for _, userID := range userIDs {
		if _, ok := students[userID]; !ok {
			failures++
			results = append(results, GradeResult{UserID: userID, Err: errNotCourseStudent})
			continue
		}

		result, err := s.grade(ctx, assignment, userID, grades[userID], grader.UserID, now)
		result.Err = err
		if err != nil && !IsPartialFailure(err) {
			failures++
		}
		results = append(results, result)
	}

	s.logger.Info().
		Uint("assignment_id", assignment.ID).
		Int("students", len(userIDs)).
		Int("failures", failures).
		Msg("batch grading finished")

	return results, nil
}

// History returns the grading trail of one student's submission.
func (s *gradingService) History(ctx context.Context, assignmentID, userID uint, viewer Viewer) ([]models.GradeHistory, error) {
	assignment, err := s.loadGradable(ctx, assignmentID, viewer)
	if err != nil {
		return nil, err
	}

	_, found, err := s.find(ctx, assignment.ID, userID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrSubmissionNotFound
	}

	return s.submissions.ListHistory(ctx, assignment.ID, userID)
}

func (s *gradingService) loadGradable(ctx context.Context, id uint, grader Viewer) (models.Assignment, error) {
	assignment, err := s.loadAssignment(ctx, id)
	if err != nil {
		return models.Assignment{}, err
	}
	if err := s.access.requireGrader(ctx, assignment.CourseID, grader); err != nil {
		return models.Assignment{}, err
	}
	return assignment, nil
}

func (s *gradingService) loadAssignment(ctx context.Context, id uint) (models.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}
	return assignment, nil
}

func validateGrade(assignment models.Assignment, grade int) error {
	if grade == models.GradeUngraded {
		return nil
	}

	switch assignment.GradeType() {
	case models.GradeTypeValue:
		if grade < 0 || grade > assignment.GradeMax {
			return newValidationError("grade", fmt.Sprintf("must be between 0 and %d", assignment.GradeMax))
		}
	case models.GradeTypeScale:
		if grade < 1 {
			return newValidationError("grade", "must reference a scale item")
		}
	default:
		return newValidationError("grade", "assignment does not accept numeric grades")
	}
	return nil
}

func gradesEqual(current *int, next int) bool {
	return current != nil && *current == next
}

func (s *gradingService) grade(ctx context.Context, assignment models.Assignment, userID uint, input GradeInput, graderID uint, now time.Time) (GradeResult, error) {
	result := GradeResult{UserID: userID}

	ctx, span := s.tracer.Start(ctx, "grading.grade_one", trace.WithAttributes(
		attribute.Int64("grading.assignment_id", int64(assignment.ID)),
		attribute.Int64("grading.user_id", int64(userID)),
	))
	defer span.End()

	if input.Grade != nil {
		if err := validateGrade(assignment, *input.Grade); err != nil {
			observability.GradeChanges().WithLabelValues("rejected").Inc()
			return result, err
		}
	}

	var comment string
	if input.Comment != nil {
		comment = strings.TrimSpace(s.sanitizer.Sanitize(*input.Comment))
	}
	format := input.CommentFormat
	if format == "" {
		format = models.CommentFormatHTML
	}

	submission, found, err := s.find(ctx, assignment.ID, userID)
	if err != nil {
		span.RecordError(err)
		return result, err
	}

	if !found {
		grade := models.GradeUngraded
		if input.Grade != nil {
			grade = *input.Grade
		}
		if grade == models.GradeUngraded && comment == "" {
			observability.GradeChanges().WithLabelValues("noop").Inc()
			return result, nil
		}

		grader := graderID
		submission = models.Submission{
			AssignmentID:  assignment.ID,
			UserID:        userID,
			Grade:         models.IntPtr(grade),
			Comment:       comment,
			CommentFormat: format,
			GraderID:      &grader,
			GradedAt:      now.Unix(),
		}
		err := s.submissions.Create(ctx, &submission)
		if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			span.RecordError(err)
			return result, err
		}
		if err != nil {
			// Lost an insert race; apply the change to the winner's row.
			submission, found, err = s.find(ctx, assignment.ID, userID)
			if err == nil && !found {
				err = gorm.ErrRecordNotFound
			}
			if err != nil {
				span.RecordError(err)
				return result, fmt.Errorf("reload submission after conflict: %w", err)
			}
		}
	}

	if found {
		gradeChanged := input.Grade != nil && !gradesEqual(submission.Grade, *input.Grade)
		commentChanged := input.Comment != nil && submission.Comment != comment
		if !gradeChanged && !commentChanged {
			observability.GradeChanges().WithLabelValues("noop").Inc()
			result.Submission = submission
			return result, nil
		}

		if gradeChanged {
			submission.Grade = models.IntPtr(*input.Grade)
		}
		if commentChanged {
			submission.Comment = comment
			submission.CommentFormat = format
		}
		grader := graderID
		submission.GraderID = &grader
		submission.GradedAt = now.Unix()

		if err := s.submissions.Update(ctx, &submission); err != nil {
			span.RecordError(err)
			return result, err
		}
	}

	result.Updated = true
	result.Submission = submission
	observability.GradeChanges().WithLabelValues("updated").Inc()

	logger := s.logger.With().
		Uint("assignment_id", assignment.ID).
		Uint("user_id", userID).
		Uint("grader_id", graderID).
		Logger()
	logger.Info().Msg("grade recorded")

	s.recordHistory(ctx, submission, graderID, logger)
	if s.summaries != nil {
		s.summaries.Invalidate(ctx, assignment.ID)
	}

	var followUps []error
	if err := s.gradebook.Push(ctx, assignment, models.SnapshotFromSubmission(submission)); err != nil {
		span.SetStatus(codes.Error, "gradebook_push_failed")
		logger.Error().Err(err).Msg("gradebook push failed")
		followUps = append(followUps, &GradebookSyncError{AssignmentID: assignment.ID, UserID: userID, Err: err})
	}

	related := userID
	if err := s.events.Record(ctx, EventEntry{
		Action:        models.EventGradesUpdated,
		CourseID:      assignment.CourseID,
		AssignmentID:  assignment.ID,
		ActorID:       graderID,
		RelatedUserID: &related,
		Metadata: map[string]interface{}{
			"grade":     submission.Grade,
			"graded_at": submission.GradedAt,
		},
	}); err != nil {
		followUps = append(followUps, &NotificationError{Event: models.EventGradesUpdated, Err: err})
	}

	if input.NotifyStudent && s.notifications != nil {
		if err := s.notifyStudent(ctx, assignment, submission); err != nil {
			logger.Warn().Err(err).Msg("failed to notify student about grade")
			followUps = append(followUps, &NotificationError{Event: models.NotificationGradeReleased, Err: err})
		}
	}

	return result, errors.Join(followUps...)
}

func (s *gradingService) find(ctx context.Context, assignmentID, userID uint) (models.Submission, bool, error) {
	submission, err := s.submissions.Find(ctx, assignmentID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Submission{}, false, nil
	}
	if err != nil {
		return models.Submission{}, false, err
	}
	return submission, true, nil
}

func (s *gradingService) recordHistory(ctx context.Context, submission models.Submission, graderID uint, logger zerolog.Logger) {
	entry := models.GradeHistory{
		SubmissionID: submission.ID,
		AssignmentID: submission.AssignmentID,
		UserID:       submission.UserID,
		Grade:        submission.Grade,
		Comment:      submission.Comment,
		GraderID:     graderID,
		GradedAt:     submission.GradedAt,
	}
	if err := s.submissions.CreateHistory(ctx, &entry); err != nil {
		logger.Warn().Err(err).Msg("failed to record grade history")
	}
}

func (s *gradingService) notifyStudent(ctx context.Context, assignment models.Assignment, submission models.Submission) error {
	message := fmt.Sprintf("Your submission for '%s' has been graded.", assignment.Name)
	if submission.HasGrade() {
		message = fmt.Sprintf("Your submission for '%s' has been graded: %d.", assignment.Name, *submission.Grade)
	}

	_, err := s.notifications.Publish(ctx, dto.NotificationCreateRequest{
		UserID:     submission.UserID,
		Type:       models.NotificationGradeReleased,
		Subject:    fmt.Sprintf("Graded: %s", assignment.Name),
		Message:    message,
		HTML:       submission.Comment,
		ContextURL: fmt.Sprintf("%s/assignments/%d", s.baseURL, assignment.ID),
		Metadata: map[string]interface{}{
			"assignment_id": assignment.ID,
			"course_id":     assignment.CourseID,
		},
	})
	return err
}
