package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/vidassign-api/internal/models"
	"github.com/noah-isme/vidassign-api/internal/repository"
)

type submissionHarness struct {
	db          *gorm.DB
	service     SubmissionService
	submissions repository.SubmissionRepository
	events      *fakeEventRecorder
	alerter     *fakeAlerter
	tagger      *fakeTagger
	summaries   *fakeInvalidator
	fixture     courseFixture
}

func newSubmissionHarness(t *testing.T) submissionHarness {
	t.Helper()

	db := setupServiceDB(t)
	h := submissionHarness{
		db:          db,
		submissions: repository.NewSubmissionRepository(db),
		events:      &fakeEventRecorder{},
		alerter:     &fakeAlerter{},
		tagger:      &fakeTagger{},
		summaries:   &fakeInvalidator{},
		fixture:     seedCourse(t, db, 2),
	}
	h.service = NewSubmissionService(repository.NewAssignmentRepository(db), h.submissions, repository.NewEnrollmentRepository(db), h.events, h.alerter, h.tagger, h.summaries, zerolog.Nop())
	return h
}

func TestSubmissionServiceRejectsLateWhenPrevented(t *testing.T) {
	h := newSubmissionHarness(t)
	assignment := seedAssignment(t, h.db, models.Assignment{
		CourseID:    h.fixture.course.ID,
		GradeMax:    100,
		TimeDue:     timePtr(testNow),
		PreventLate: true,
	})
	student := h.fixture.students[0]

	_, err := h.service.Submit(context.Background(), assignment.ID, student.ID, "vid123", testNow.Add(time.Second))
	require.ErrorIs(t, err, ErrSubmissionExpired)

	_, err = h.submissions.Find(context.Background(), assignment.ID, student.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	require.Empty(t, h.events.entries)
}

func TestSubmissionServiceAcceptsLateWhenAllowed(t *testing.T) {
	h := newSubmissionHarness(t)
	assignment := seedAssignment(t, h.db, models.Assignment{
		CourseID: h.fixture.course.ID,
		GradeMax: 100,
		TimeDue:  timePtr(testNow),
	})
	student := h.fixture.students[0]
	submittedAt := testNow.Add(time.Second)

	submission, err := h.service.Submit(context.Background(), assignment.ID, student.ID, "vid123", submittedAt)
	require.NoError(t, err)
	require.Equal(t, "vid123", submission.MediaReferenceID)
	require.NotNil(t, submission.Grade)
	require.Equal(t, models.GradeUngraded, *submission.Grade)
	require.Equal(t, submittedAt.Unix(), submission.CreatedAt)
	require.Equal(t, submittedAt.Unix(), submission.UpdatedAt)

	require.Equal(t, []string{models.EventMediaSubmitted}, h.events.actions())
	require.Equal(t, []string{"vid123"}, h.tagger.added)
	require.Equal(t, []uint{assignment.ID}, h.summaries.invalidated)
	require.Empty(t, h.alerter.calls)
}

func TestSubmissionServiceResubmitKeepsCreatedAt(t *testing.T) {
	h := newSubmissionHarness(t)
	assignment := seedAssignment(t, h.db, models.Assignment{CourseID: h.fixture.course.ID, GradeMax: 100, AllowResubmit: true})
	student := h.fixture.students[0]
	ctx := context.Background()

	first, err := h.service.Submit(ctx, assignment.ID, student.ID, "vid-a", testNow)
	require.NoError(t, err)

	second, err := h.service.Submit(ctx, assignment.ID, student.ID, "vid-b", testNow.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, testNow.Unix(), second.CreatedAt)
	require.Equal(t, testNow.Add(time.Hour).Unix(), second.UpdatedAt)

	var count int64
	require.NoError(t, h.db.Model(&models.Submission{}).Where("assignment_id = ? AND user_id = ?", assignment.ID, student.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)

	stored, err := h.submissions.Find(ctx, assignment.ID, student.ID)
	require.NoError(t, err)
	require.Equal(t, "vid-b", stored.MediaReferenceID)

	require.Equal(t, []string{"vid-a", "vid-b"}, h.tagger.added)
	require.Equal(t, []string{"vid-a"}, h.tagger.removed)
}

func TestSubmissionServiceFillsCreatedAtForGraderCreatedRecord(t *testing.T) {
	h := newSubmissionHarness(t)
	assignment := seedAssignment(t, h.db, models.Assignment{CourseID: h.fixture.course.ID, GradeMax: 100})
	student := h.fixture.students[0]

	graderID := h.fixture.teacher.ID
	require.NoError(t, h.db.Create(&models.Submission{
		AssignmentID:  assignment.ID,
		UserID:        student.ID,
		Grade:         models.IntPtr(40),
		CommentFormat: models.CommentFormatHTML,
		GraderID:      &graderID,
		GradedAt:      testNow.Add(-time.Hour).Unix(),
	}).Error)

	submission, err := h.service.Submit(context.Background(), assignment.ID, student.ID, "vid123", testNow)
	require.NoError(t, err)
	require.Equal(t, testNow.Unix(), submission.CreatedAt)
	require.Equal(t, 40, *submission.Grade)
}

func TestSubmissionServiceValidatesInput(t *testing.T) {
	h := newSubmissionHarness(t)

	_, err := h.service.Submit(context.Background(), 1, h.fixture.students[0].ID, "   ", testNow)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "media_reference_id", validationErr.Field)

	_, err = h.service.Submit(context.Background(), 999, h.fixture.students[0].ID, "vid", testNow)
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestSubmissionServiceAlertsGradersAsPartialFailure(t *testing.T) {
	h := newSubmissionHarness(t)
	assignment := seedAssignment(t, h.db, models.Assignment{CourseID: h.fixture.course.ID, GradeMax: 100, EmailTeachers: true})
	student := h.fixture.students[0]
	h.alerter.err = errors.New("broker down")

	submission, err := h.service.Submit(context.Background(), assignment.ID, student.ID, "vid123", testNow)
	require.Error(t, err)
	require.True(t, IsPartialFailure(err))
	require.NotZero(t, submission.ID)
	require.Len(t, h.alerter.calls, 1)

	_, findErr := h.submissions.Find(context.Background(), assignment.ID, student.ID)
	require.NoError(t, findErr)
}

func TestSubmissionServiceStatus(t *testing.T) {
	h := newSubmissionHarness(t)
	assignment := seedAssignment(t, h.db, models.Assignment{
		CourseID:      h.fixture.course.ID,
		GradeMax:      100,
		TimeAvailable: timePtr(testNow.Add(-48 * time.Hour)),
		TimeDue:       timePtr(testNow.Add(26*time.Hour + 15*time.Minute)),
	})
	student := h.fixture.students[0]
	ctx := context.Background()

	status, err := h.service.Status(ctx, assignment.ID, student.ID, testNow)
	require.NoError(t, err)
	require.Nil(t, status.Submission)
	require.False(t, status.Submitted)
	require.True(t, status.Open)
	require.True(t, status.CanResubmit)
	require.Equal(t, "1 day(s) 02:15", status.RemainingTime)

	_, err = h.service.Submit(ctx, assignment.ID, student.ID, "vid123", testNow)
	require.NoError(t, err)

	status, err = h.service.Status(ctx, assignment.ID, student.ID, testNow)
	require.NoError(t, err)
	require.NotNil(t, status.Submission)
	require.True(t, status.Submitted)
	require.False(t, status.Marked)
	require.False(t, status.Late)
	require.True(t, status.CanResubmit)
}

func TestSubmissionServiceRequiresCourseEnrolment(t *testing.T) {
	h := newSubmissionHarness(t)
	assignment := seedAssignment(t, h.db, models.Assignment{CourseID: h.fixture.course.ID, GradeMax: 100})
	ctx := context.Background()

	outsider := models.User{Username: "student-elsewhere"}
	require.NoError(t, h.db.Create(&outsider).Error)

	_, err := h.service.Submit(ctx, assignment.ID, outsider.ID, "vid123", testNow)
	require.ErrorIs(t, err, ErrCourseAccessDenied)

	_, err = h.service.Status(ctx, assignment.ID, outsider.ID, testNow)
	require.ErrorIs(t, err, ErrCourseAccessDenied)

	_, err = h.service.Submit(ctx, assignment.ID, h.fixture.teacher.ID, "vid123", testNow)
	require.ErrorIs(t, err, ErrCourseAccessDenied)

	_, err = h.submissions.Find(ctx, assignment.ID, outsider.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	require.Empty(t, h.events.entries)
	require.Empty(t, h.alerter.calls)
}
