package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/vidassign-api/internal/dto"
	"github.com/noah-isme/vidassign-api/internal/models"
	"github.com/noah-isme/vidassign-api/internal/repository"
)

const resetComponent = "Video assignments"

// AssignmentService exposes assignment lifecycle use cases.
type AssignmentService interface {
	Create(ctx context.Context, payload dto.AssignmentCreateRequest, actorID uint) (dto.AssignmentResponse, error)
	Update(ctx context.Context, id uint, payload dto.AssignmentUpdateRequest, actorID uint) (dto.AssignmentResponse, error)
	Get(ctx context.Context, id uint) (dto.AssignmentResponse, error)
	ListByCourse(ctx context.Context, courseID uint) ([]dto.AssignmentResponse, error)
	Delete(ctx context.Context, id uint, actorID uint) error
	ResetCourse(ctx context.Context, courseID uint, payload dto.CourseResetRequest, actorID uint) ([]dto.CourseResetStatus, error)
	ScaleUsedAnywhere(ctx context.Context, scaleID uint) (bool, error)
}

type assignmentService struct {
	repo        repository.AssignmentRepository
	submissions repository.SubmissionRepository
	calendar    repository.CalendarRepository
	gradebook   GradebookSync
	events      EventRecorder
	tagger      MediaTagger
	summaries   SummaryInvalidator
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
}

// NewAssignmentService builds a new assignment service. tagger and summaries may be nil.
func NewAssignmentService(repo repository.AssignmentRepository, submissions repository.SubmissionRepository, calendar repository.CalendarRepository, gradebook GradebookSync, events EventRecorder, tagger MediaTagger, summaries SummaryInvalidator, validate *validator.Validate, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		repo:        repo,
		submissions: submissions,
		calendar:    calendar,
		gradebook:   gradebook,
		events:      events,
		tagger:      tagger,
		summaries:   summaries,
		validator:   validate,
		sanitizer:   bluemonday.UGCPolicy(),
		logger:      logger.With().Str("component", "assignment_service").Logger(),
	}
}

func (s *assignmentService) load(ctx context.Context, id uint) (models.Assignment, error) {
	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}
	return assignment, nil
}

func validateWindow(available, due *time.Time) error {
	if available != nil && due != nil && due.Before(*available) {
		return newValidationError("time_due", "must not be before time_available")
	}
	return nil
}

func (s *assignmentService) Create(ctx context.Context, payload dto.AssignmentCreateRequest, actorID uint) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, validationFromStruct(err)
	}
	if err := validateWindow(payload.TimeAvailable, payload.TimeDue); err != nil {
		return dto.AssignmentResponse{}, err
	}

	groupMode := payload.GroupMode
	if groupMode == "" {
		groupMode = models.GroupModeNone
	}

	assignment := models.Assignment{
		CourseID:      payload.CourseID,
		Name:          strings.TrimSpace(payload.Name),
		Intro:         s.sanitizer.Sanitize(payload.Intro),
		IDNumber:      strings.TrimSpace(payload.IDNumber),
		GradeMax:      payload.GradeMax,
		TimeAvailable: payload.TimeAvailable,
		TimeDue:       payload.TimeDue,
		PreventLate:   payload.PreventLate,
		AllowResubmit: payload.AllowResubmit,
		EmailTeachers: payload.EmailTeachers,
		GroupMode:     groupMode,
	}

	if err := s.repo.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Uint("course_id", assignment.CourseID).Msg("assignment created")

	return dto.NewAssignmentResponse(assignment), s.afterWrite(ctx, assignment, models.EventAssignmentCreated, actorID)
}

func (s *assignmentService) Update(ctx context.Context, id uint, payload dto.AssignmentUpdateRequest, actorID uint) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, validationFromStruct(err)
	}

	assignment, err := s.load(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	if payload.Name != nil {
		assignment.Name = strings.TrimSpace(*payload.Name)
	}
	if payload.Intro != nil {
		assignment.Intro = s.sanitizer.Sanitize(*payload.Intro)
	}
	if payload.IDNumber != nil {
		assignment.IDNumber = strings.TrimSpace(*payload.IDNumber)
	}
	if payload.GradeMax != nil {
		assignment.GradeMax = *payload.GradeMax
	}
	if payload.ClearTimeAvailable {
		assignment.TimeAvailable = nil
	} else if payload.TimeAvailable != nil {
		assignment.TimeAvailable = payload.TimeAvailable
	}
	if payload.ClearTimeDue {
		assignment.TimeDue = nil
	} else if payload.TimeDue != nil {
		assignment.TimeDue = payload.TimeDue
	}
	if payload.PreventLate != nil {
		assignment.PreventLate = *payload.PreventLate
	}
	if payload.AllowResubmit != nil {
		assignment.AllowResubmit = *payload.AllowResubmit
	}
	if payload.EmailTeachers != nil {
		assignment.EmailTeachers = *payload.EmailTeachers
	}
	if payload.GroupMode != nil {
		assignment.GroupMode = *payload.GroupMode
	}

	if err := validateWindow(assignment.TimeAvailable, assignment.TimeDue); err != nil {
		return dto.AssignmentResponse{}, err
	}

	if err := s.repo.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Msg("assignment updated")
	if s.summaries != nil {
		s.summaries.Invalidate(ctx, assignment.ID)
	}

	return dto.NewAssignmentResponse(assignment), s.afterWrite(ctx, assignment, models.EventAssignmentUpdated, actorID)
}

// afterWrite refreshes the calendar and gradebook item and records the event.
// The assignment row is already durable, so failures are reported as partial.
func (s *assignmentService) afterWrite(ctx context.Context, assignment models.Assignment, action string, actorID uint) error {
	var followUps []error

	if err := s.syncCalendar(ctx, assignment); err != nil {
		s.logger.Error().Err(err).Uint("assignment_id", assignment.ID).Msg("failed to refresh calendar event")
		followUps = append(followUps, &NotificationError{Event: "calendar", Err: err})
	}

	if err := s.gradebook.UpdateItem(ctx, assignment); err != nil {
		followUps = append(followUps, &GradebookSyncError{AssignmentID: assignment.ID, Err: err})
	}

	if err := s.events.Record(ctx, EventEntry{
		Action:       action,
		CourseID:     assignment.CourseID,
		AssignmentID: assignment.ID,
		ActorID:      actorID,
		Metadata:     map[string]interface{}{"name": assignment.Name},
	}); err != nil {
		followUps = append(followUps, &NotificationError{Event: action, Err: err})
	}

	return errors.Join(followUps...)
}

// syncCalendar keeps exactly one due event while a due date is set.
func (s *assignmentService) syncCalendar(ctx context.Context, assignment models.Assignment) error {
	if !assignment.HasDueDate() {
		_, err := s.calendar.DeleteByInstance(ctx, models.ModuleType, assignment.ID)
		return err
	}

	event, err := s.calendar.FindByInstance(ctx, models.ModuleType, assignment.ID, models.EventTypeDue)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	event.Name = assignment.Name
	event.Description = assignment.Intro
	event.CourseID = assignment.CourseID
	event.ModuleName = models.ModuleType
	event.Instance = assignment.ID
	event.EventType = models.EventTypeDue
	event.TimeStart = assignment.TimeDue.UTC()
	event.TimeDuration = 0

	if event.ID == 0 {
		return s.calendar.Create(ctx, &event)
	}
	return s.calendar.Update(ctx, &event)
}

func (s *assignmentService) Get(ctx context.Context, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.load(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) ListByCourse(ctx context.Context, courseID uint) ([]dto.AssignmentResponse, error) {
	assignments, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	return dto.NewAssignmentResponseSlice(assignments), nil
}

// Delete removes the assignment with its submissions, calendar events and gradebook item.
func (s *assignmentService) Delete(ctx context.Context, id uint, actorID uint) error {
	assignment, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	media, err := s.mediaReferences(ctx, []uint{assignment.ID})
	if err != nil {
		return err
	}

	deleted, err := s.submissions.DeleteAllForAssignment(ctx, assignment.ID)
	if err != nil {
		return fmt.Errorf("delete submissions: %w", err)
	}
	if _, err := s.calendar.DeleteByInstance(ctx, models.ModuleType, assignment.ID); err != nil {
		return fmt.Errorf("delete calendar events: %w", err)
	}
	if err := s.repo.Delete(ctx, assignment.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	}

	s.logger.Info().
		Uint("assignment_id", assignment.ID).
		Int64("submissions_deleted", deleted).
		Msg("assignment deleted")

	if s.summaries != nil {
		s.summaries.Invalidate(ctx, assignment.ID)
	}
	s.untagOrphans(ctx, media)

	var followUps []error
	if err := s.gradebook.Delete(ctx, assignment); err != nil {
		followUps = append(followUps, &GradebookSyncError{AssignmentID: assignment.ID, Err: err})
	}
	if err := s.events.Record(ctx, EventEntry{
		Action:       models.EventAssignmentDeleted,
		CourseID:     assignment.CourseID,
		AssignmentID: assignment.ID,
		ActorID:      actorID,
		Metadata:     map[string]interface{}{"name": assignment.Name, "submissions_deleted": deleted},
	}); err != nil {
		followUps = append(followUps, &NotificationError{Event: models.EventAssignmentDeleted, Err: err})
	}

	return errors.Join(followUps...)
}

func (s *assignmentService) mediaReferences(ctx context.Context, assignmentIDs []uint) ([]string, error) {
	if s.tagger == nil {
		return nil, nil
	}

	seen := map[string]struct{}{}
	var media []string
	for _, id := range assignmentIDs {
		submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{AssignmentID: id})
		if err != nil {
			return nil, err
		}
		for _, submission := range submissions {
			if !submission.HasMedia() {
				continue
			}
			if _, ok := seen[submission.MediaReferenceID]; ok {
				continue
			}
			seen[submission.MediaReferenceID] = struct{}{}
			media = append(media, submission.MediaReferenceID)
		}
	}
	return media, nil
}

func (s *assignmentService) untagOrphans(ctx context.Context, media []string) {
	if s.tagger == nil {
		return
	}
	for _, ref := range media {
		count, err := s.submissions.CountByMedia(ctx, ref)
		if err != nil {
			s.logger.Warn().Err(err).Str("media_reference_id", ref).Msg("failed to count media references")
			continue
		}
		if count > 0 {
			continue
		}
		if err := s.tagger.RemoveAssessmentTag(ctx, ref); err != nil {
			s.logger.Warn().Err(err).Str("media_reference_id", ref).Msg("failed to untag media")
		}
	}
}

// ResetCourse clears course user data for a new term and reports each step.
func (s *assignmentService) ResetCourse(ctx context.Context, courseID uint, payload dto.CourseResetRequest, actorID uint) ([]dto.CourseResetStatus, error) {
	if courseID == 0 {
		return nil, newValidationError("course_id", "required")
	}

	assignments, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(assignments))
	for _, assignment := range assignments {
		ids = append(ids, assignment.ID)
	}

	statuses := make([]dto.CourseResetStatus, 0, 3)

	if payload.DeleteSubmissions {
		status := dto.CourseResetStatus{Component: resetComponent, Item: "Delete all submissions"}
		media, err := s.mediaReferences(ctx, ids)
		if err == nil {
			_, err = s.submissions.DeleteAllForAssignments(ctx, ids)
		}
		if err != nil {
			s.logger.Error().Err(err).Uint("course_id", courseID).Msg("failed to delete course submissions")
			status.Error = true
		} else {
			s.untagOrphans(ctx, media)
			for _, id := range ids {
				if s.summaries != nil {
					s.summaries.Invalidate(ctx, id)
				}
			}
		}
		statuses = append(statuses, status)
	}

	if payload.DeleteSubmissions || payload.ResetGradebook {
		status := dto.CourseResetStatus{Component: resetComponent, Item: "Reset gradebook grades"}
		for _, assignment := range assignments {
			if err := s.gradebook.Reset(ctx, assignment); err != nil {
				s.logger.Error().Err(err).Uint("assignment_id", assignment.ID).Msg("failed to reset gradebook item")
				status.Error = true
			}
		}
		statuses = append(statuses, status)
	}

	if payload.TimeShiftSeconds != 0 {
		status := dto.CourseResetStatus{Component: resetComponent, Item: "Dates changed"}
		if err := s.shiftDates(ctx, courseID, time.Duration(payload.TimeShiftSeconds)*time.Second); err != nil {
			s.logger.Error().Err(err).Uint("course_id", courseID).Msg("failed to shift assignment dates")
			status.Error = true
		}
		statuses = append(statuses, status)
	}

	if err := s.events.Record(ctx, EventEntry{
		Action:   models.EventCourseReset,
		CourseID: courseID,
		ActorID:  actorID,
		Metadata: map[string]interface{}{
			"delete_submissions": payload.DeleteSubmissions,
			"reset_gradebook":    payload.ResetGradebook,
			"time_shift_seconds": payload.TimeShiftSeconds,
		},
	}); err != nil {
		return statuses, &NotificationError{Event: models.EventCourseReset, Err: err}
	}

	return statuses, nil
}

func (s *assignmentService) shiftDates(ctx context.Context, courseID uint, delta time.Duration) error {
	if _, err := s.repo.ShiftDates(ctx, courseID, delta); err != nil {
		return err
	}

	shifted, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return err
	}
	for _, assignment := range shifted {
		if err := s.syncCalendar(ctx, assignment); err != nil {
			return err
		}
	}
	return nil
}

func (s *assignmentService) ScaleUsedAnywhere(ctx context.Context, scaleID uint) (bool, error) {
	if scaleID == 0 {
		return false, nil
	}

	count, err := s.repo.CountUsingScale(ctx, scaleID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
