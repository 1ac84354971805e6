package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/vidassign-api/internal/dto"
	"github.com/noah-isme/vidassign-api/internal/models"
	"github.com/noah-isme/vidassign-api/internal/repository"
)

func newListingService(t *testing.T, db *gorm.DB) ListingService {
	t.Helper()
	return NewListingService(repository.NewAssignmentRepository(db), repository.NewSubmissionRepository(db), repository.NewEnrollmentRepository(db), nil, time.Minute, zerolog.Nop())
}

func createSubmission(t *testing.T, db *gorm.DB, assignmentID, userID uint, updatedAt, gradedAt int64) {
	t.Helper()
	require.NoError(t, db.Create(&models.Submission{
		AssignmentID:     assignmentID,
		UserID:           userID,
		MediaReferenceID: "vid",
		Grade:            models.IntPtr(models.GradeUngraded),
		CommentFormat:    models.CommentFormatHTML,
		CreatedAt:        updatedAt,
		UpdatedAt:        updatedAt,
		GradedAt:         gradedAt,
	}).Error)
}

func rowUserIDs(rows []dto.SubmissionRow) []uint {
	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.UserID)
	}
	return ids
}

func TestListingServiceFilters(t *testing.T) {
	db := setupServiceDB(t)
	fixture := seedCourse(t, db, 4)
	assignment := seedAssignment(t, db, models.Assignment{CourseID: fixture.course.ID, GradeMax: 100, TimeDue: timePtr(testNow)})
	svc := newListingService(t, db)
	ctx := context.Background()
	viewer := Viewer{UserID: fixture.teacher.ID, Role: models.RoleTeacher}

	s1, s2, s3, s4 := fixture.students[0].ID, fixture.students[1].ID, fixture.students[2].ID, fixture.students[3].ID
	base := testNow.Unix()
	createSubmission(t, db, assignment.ID, s1, base-100, base)
	createSubmission(t, db, assignment.ID, s2, base+50, 0)
	createSubmission(t, db, assignment.ID, s3, base+50, 0)

	list := func(filter int) dto.SubmissionListResponse {
		resp, err := svc.List(ctx, dto.SubmissionListRequest{AssignmentID: assignment.ID, Filter: filter, PageSize: 10}, viewer, testNow)
		require.NoError(t, err)
		return resp
	}

	all := list(models.FilterAll)
	require.Equal(t, []uint{s2, s3, s1, s4}, rowUserIDs(all.Items))
	require.Equal(t, dto.RowStatusSubmitted, all.Items[0].Status)
	require.True(t, all.Items[0].Lateness.Late)
	require.Equal(t, int64(50), all.Items[0].Lateness.Seconds)
	require.Equal(t, dto.RowStatusNotSubmitted, all.Items[3].Status)
	require.Nil(t, all.Items[3].Submission)
	require.Equal(t, "student1", all.Items[2].Username)

	require.Equal(t, []uint{s2, s3}, rowUserIDs(list(models.FilterRequiresGrading).Items))
	require.Equal(t, []uint{s2, s3, s1}, rowUserIDs(list(models.FilterSubmitted).Items))
	require.Equal(t, []uint{s4}, rowUserIDs(list(models.FilterNotSubmittedYet).Items))

	paged, err := svc.List(ctx, dto.SubmissionListRequest{AssignmentID: assignment.ID, Page: 2, PageSize: 3}, viewer, testNow)
	require.NoError(t, err)
	require.Equal(t, []uint{s4}, rowUserIDs(paged.Items))
	require.EqualValues(t, 4, paged.Pagination.TotalItems)
	require.Equal(t, 2, paged.Pagination.TotalPages)
}

func TestListingServiceRejectsBadPaging(t *testing.T) {
	db := setupServiceDB(t)
	svc := newListingService(t, db)
	var validationErr *ValidationError

	_, err := svc.List(context.Background(), dto.SubmissionListRequest{AssignmentID: 1, PageSize: 0}, Viewer{}, testNow)
	require.ErrorAs(t, err, &validationErr)

	_, err = svc.List(context.Background(), dto.SubmissionListRequest{AssignmentID: 1, Page: -1, PageSize: 10}, Viewer{}, testNow)
	require.ErrorAs(t, err, &validationErr)

	_, err = svc.List(context.Background(), dto.SubmissionListRequest{AssignmentID: 1, Filter: 7, PageSize: 10}, Viewer{}, testNow)
	require.ErrorAs(t, err, &validationErr)

	_, err = svc.List(context.Background(), dto.SubmissionListRequest{AssignmentID: 1, PageSize: 10}, Viewer{}, testNow)
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestListingServiceSeparateGroups(t *testing.T) {
	db := setupServiceDB(t)
	fixture := seedCourse(t, db, 3)
	assignment := seedAssignment(t, db, models.Assignment{CourseID: fixture.course.ID, GradeMax: 100, GroupMode: models.GroupModeSeparate})
	svc := newListingService(t, db)
	ctx := context.Background()

	red := models.Group{CourseID: fixture.course.ID, Name: "Red"}
	blue := models.Group{CourseID: fixture.course.ID, Name: "Blue"}
	require.NoError(t, db.Create(&red).Error)
	require.NoError(t, db.Create(&blue).Error)
	require.NoError(t, db.Create(&models.GroupMember{GroupID: red.ID, UserID: fixture.teacher.ID}).Error)
	require.NoError(t, db.Create(&models.GroupMember{GroupID: red.ID, UserID: fixture.students[0].ID}).Error)
	require.NoError(t, db.Create(&models.GroupMember{GroupID: blue.ID, UserID: fixture.students[1].ID}).Error)

	teacher := Viewer{UserID: fixture.teacher.ID, Role: models.RoleTeacher}
	resp, err := svc.List(ctx, dto.SubmissionListRequest{AssignmentID: assignment.ID, PageSize: 10}, teacher, testNow)
	require.NoError(t, err)
	require.Equal(t, []uint{fixture.students[0].ID}, rowUserIDs(resp.Items))

	resp, err = svc.List(ctx, dto.SubmissionListRequest{AssignmentID: assignment.ID, GroupID: blue.ID, PageSize: 10}, teacher, testNow)
	require.NoError(t, err)
	require.Empty(t, resp.Items)

	admin := Viewer{UserID: 999, Role: models.RoleAdmin}
	resp, err = svc.List(ctx, dto.SubmissionListRequest{AssignmentID: assignment.ID, GroupID: blue.ID, PageSize: 10}, admin, testNow)
	require.NoError(t, err)
	require.Equal(t, []uint{fixture.students[1].ID}, rowUserIDs(resp.Items))

	resp, err = svc.List(ctx, dto.SubmissionListRequest{AssignmentID: assignment.ID, PageSize: 10}, admin, testNow)
	require.NoError(t, err)
	require.Len(t, resp.Items, 3)
}

func TestListingServiceSummaryCaching(t *testing.T) {
	db := setupServiceDB(t)
	mini, redisClient := setupRedis(t)
	fixture := seedCourse(t, db, 3)
	assignment := seedAssignment(t, db, models.Assignment{
		CourseID:      fixture.course.ID,
		GradeMax:      100,
		TimeAvailable: timePtr(testNow.Add(-time.Hour)),
		TimeDue:       timePtr(testNow.Add(2*time.Hour + 30*time.Minute)),
	})
	svc := NewListingService(repository.NewAssignmentRepository(db), repository.NewSubmissionRepository(db), repository.NewEnrollmentRepository(db), redisClient, time.Minute, zerolog.Nop())
	ctx := context.Background()
	grader := Viewer{UserID: fixture.teacher.ID, Role: models.RoleTeacher}

	base := testNow.Unix()
	createSubmission(t, db, assignment.ID, fixture.students[0].ID, base, base+10)
	createSubmission(t, db, assignment.ID, fixture.students[1].ID, base, 0)

	summary, err := svc.Summary(ctx, assignment.ID, grader, testNow)
	require.NoError(t, err)
	require.Equal(t, 3, summary.Participants)
	require.Equal(t, 2, summary.Submitted)
	require.Equal(t, 1, summary.RequiresGrading)
	require.False(t, summary.NotOpenYet)
	require.False(t, summary.Expired)
	require.Equal(t, "02:30", summary.RemainingTime)
	require.True(t, mini.Exists(summaryCacheKey(assignment.ID)))

	createSubmission(t, db, assignment.ID, fixture.students[2].ID, base, 0)
	cached, err := svc.Summary(ctx, assignment.ID, grader, testNow)
	require.NoError(t, err)
	require.Equal(t, 2, cached.Submitted)

	svc.Invalidate(ctx, assignment.ID)
	require.False(t, mini.Exists(summaryCacheKey(assignment.ID)))

	fresh, err := svc.Summary(ctx, assignment.ID, grader, testNow)
	require.NoError(t, err)
	require.Equal(t, 3, fresh.Submitted)
	require.Equal(t, 2, fresh.RequiresGrading)
}

func TestListingServiceCourseOverview(t *testing.T) {
	db := setupServiceDB(t)
	fixture := seedCourse(t, db, 2)
	svc := newListingService(t, db)
	ctx := context.Background()

	open := seedAssignment(t, db, models.Assignment{CourseID: fixture.course.ID, Name: "Open", GradeMax: 100, TimeDue: timePtr(testNow.Add(time.Hour)), PreventLate: true})
	seedAssignment(t, db, models.Assignment{CourseID: fixture.course.ID, Name: "Closed", GradeMax: 100, TimeDue: timePtr(testNow.Add(-time.Hour)), PreventLate: true})
	late := seedAssignment(t, db, models.Assignment{CourseID: fixture.course.ID, Name: "Late ok", GradeMax: 100, TimeDue: timePtr(testNow.Add(-time.Hour))})

	createSubmission(t, db, open.ID, fixture.students[0].ID, testNow.Unix(), 0)

	teacherItems, err := svc.CourseOverview(ctx, fixture.course.ID, Viewer{UserID: fixture.teacher.ID, Role: models.RoleTeacher}, testNow)
	require.NoError(t, err)
	require.Len(t, teacherItems, 1)
	require.Equal(t, open.ID, teacherItems[0].AssignmentID)
	require.Equal(t, 1, teacherItems[0].Unmarked)

	studentItems, err := svc.CourseOverview(ctx, fixture.course.ID, Viewer{UserID: fixture.students[0].ID, Role: models.RoleStudent}, testNow)
	require.NoError(t, err)
	require.Len(t, studentItems, 1)
	require.Equal(t, late.ID, studentItems[0].AssignmentID)
	require.True(t, studentItems[0].NotSubmitted)

	otherItems, err := svc.CourseOverview(ctx, fixture.course.ID, Viewer{UserID: fixture.students[1].ID, Role: models.RoleStudent}, testNow)
	require.NoError(t, err)
	require.Len(t, otherItems, 2)
}

func TestListingServiceRequiresCourseGrader(t *testing.T) {
	db := setupServiceDB(t)
	fixture := seedCourse(t, db, 2)
	assignment := seedAssignment(t, db, models.Assignment{CourseID: fixture.course.ID, GradeMax: 100})
	svc := newListingService(t, db)
	ctx := context.Background()

	outsider := models.User{Username: "teacher-elsewhere"}
	require.NoError(t, db.Create(&outsider).Error)

	for _, viewer := range []Viewer{
		{UserID: outsider.ID, Role: models.RoleTeacher},
		{UserID: fixture.students[0].ID, Role: models.RoleTeacher},
	} {
		_, err := svc.List(ctx, dto.SubmissionListRequest{AssignmentID: assignment.ID, PageSize: 10}, viewer, testNow)
		require.ErrorIs(t, err, ErrCourseAccessDenied)

		_, err = svc.Summary(ctx, assignment.ID, viewer, testNow)
		require.ErrorIs(t, err, ErrCourseAccessDenied)
	}

	summary, err := svc.Summary(ctx, assignment.ID, Viewer{UserID: outsider.ID, Role: models.RoleAdmin}, testNow)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Participants)
}
