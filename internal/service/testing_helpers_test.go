package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/vidassign-api/internal/database"
	"github.com/noah-isme/vidassign-api/internal/models"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	return db
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mini, client
}

func newTestValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func stringPtr(v string) *string {
	return &v
}

type courseFixture struct {
	course   models.Course
	teacher  models.User
	students []models.User
}

// seedCourse creates a course with one teacher and the given number of students.
func seedCourse(t *testing.T, db *gorm.DB, students int) courseFixture {
	t.Helper()

	fixture := courseFixture{course: models.Course{ShortName: "VID101", FullName: "Video Production"}}
	require.NoError(t, db.Create(&fixture.course).Error)

	fixture.teacher = models.User{Username: "teacher7", FullName: "Tess Teacher", Email: "tess@example.com"}
	require.NoError(t, db.Create(&fixture.teacher).Error)
	require.NoError(t, db.Create(&models.Enrollment{CourseID: fixture.course.ID, UserID: fixture.teacher.ID, Role: models.RoleTeacher, Active: true}).Error)

	for i := 0; i < students; i++ {
		student := models.User{Username: fmt.Sprintf("student%d", i+1), FullName: fmt.Sprintf("Student %d", i+1)}
		require.NoError(t, db.Create(&student).Error)
		require.NoError(t, db.Create(&models.Enrollment{CourseID: fixture.course.ID, UserID: student.ID, Role: models.RoleStudent, Active: true}).Error)
		fixture.students = append(fixture.students, student)
	}

	return fixture
}

func seedAssignment(t *testing.T, db *gorm.DB, assignment models.Assignment) models.Assignment {
	t.Helper()

	if assignment.Name == "" {
		assignment.Name = "Pitch video"
	}
	if assignment.GroupMode == "" {
		assignment.GroupMode = models.GroupModeNone
	}
	require.NoError(t, db.Create(&assignment).Error)
	return assignment
}

type pushCall struct {
	assignment models.Assignment
	snapshot   models.GradeSnapshot
}

type fakeGradebook struct {
	mu        sync.Mutex
	pushes    []pushCall
	updates   int
	resets    []uint
	deletes   []uint
	pushErr   error
	failUsers map[uint]bool
}

func (f *fakeGradebook) Push(ctx context.Context, assignment models.Assignment, snapshot models.GradeSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failUsers[snapshot.UserID] {
		return errors.New("gradebook unavailable")
	}
	if f.pushErr != nil {
		return f.pushErr
	}
	f.pushes = append(f.pushes, pushCall{assignment: assignment, snapshot: snapshot})
	return nil
}

func (f *fakeGradebook) UpdateItem(ctx context.Context, assignment models.Assignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	return nil
}

func (f *fakeGradebook) Reset(ctx context.Context, assignment models.Assignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, assignment.ID)
	return nil
}

func (f *fakeGradebook) Delete(ctx context.Context, assignment models.Assignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, assignment.ID)
	return nil
}

func (f *fakeGradebook) Reconcile(ctx context.Context) (ReconcileReport, error) {
	return ReconcileReport{}, nil
}

type fakeEventRecorder struct {
	entries []EventEntry
	err     error
}

func (f *fakeEventRecorder) Record(ctx context.Context, entry EventEntry) error {
	f.entries = append(f.entries, entry)
	return f.err
}

func (f *fakeEventRecorder) actions() []string {
	actions := make([]string, 0, len(f.entries))
	for _, entry := range f.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

type fakeAlerter struct {
	calls []models.Submission
	err   error
}

func (f *fakeAlerter) AlertGraders(ctx context.Context, assignment models.Assignment, submission models.Submission) error {
	f.calls = append(f.calls, submission)
	return f.err
}

type fakeTagger struct {
	added   []string
	removed []string
}

func (f *fakeTagger) AddAssessmentTag(ctx context.Context, mediaReferenceID string) error {
	f.added = append(f.added, mediaReferenceID)
	return nil
}

func (f *fakeTagger) RemoveAssessmentTag(ctx context.Context, mediaReferenceID string) error {
	f.removed = append(f.removed, mediaReferenceID)
	return nil
}

type fakeInvalidator struct {
	invalidated []uint
}

func (f *fakeInvalidator) Invalidate(ctx context.Context, assignmentID uint) {
	f.invalidated = append(f.invalidated, assignmentID)
}
