package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/vidassign-api/internal/config"
	"github.com/noah-isme/vidassign-api/internal/database"
	"github.com/noah-isme/vidassign-api/internal/handler"
	"github.com/noah-isme/vidassign-api/internal/models"
	"github.com/noah-isme/vidassign-api/internal/repository"
	"github.com/noah-isme/vidassign-api/internal/router"
	"github.com/noah-isme/vidassign-api/internal/service"
)

type testEnv struct {
	app      *fiber.App
	db       *gorm.DB
	course   models.Course
	teacher  models.User
	admin    models.User
	students []models.User
}

type caller struct {
	id   uint
	role string
}

type apiEnvelope struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
	Data     json.RawMessage `json:"data"`
	Warnings []string        `json:"warnings"`
}

// headerAuth stands in for JWT validation and trusts the test headers.
func headerAuth(c *fiber.Ctx) error {
	if raw := c.Get("X-Test-User"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err == nil {
			c.Locals("user_id", uint(id))
		}
	}
	if role := c.Get("X-Test-Role"); role != "" {
		c.Locals("user_role", role)
	}
	return c.Next()
}

func setupHandlerEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)
	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)
	const baseURL = "https://courses.test"

	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)

	events := service.NewEventService(repository.NewEventRepository(db), redisClient, nil, "vidassign-test", logger)
	notifications := service.NewNotificationService(repository.NewNotificationRepository(db), redisClient, "vidassign-test", nil, validate, logger)
	gradebook := service.NewGradebookSync(repository.NewGradebookRepository(db), assignmentRepo, submissionRepo, redisClient, logger)
	listing := service.NewListingService(assignmentRepo, submissionRepo, enrollmentRepo, redisClient, 0, logger)
	preferences := service.NewPreferenceService(repository.NewPreferenceRepository(db), validate, logger)
	alerter := service.NewTeacherAlerter(service.NewGraderResolver(enrollmentRepo), enrollmentRepo, notifications, baseURL, logger)

	assignments := service.NewAssignmentService(assignmentRepo, submissionRepo, repository.NewCalendarRepository(db), gradebook, events, nil, listing, validate, logger)
	submissions := service.NewSubmissionService(assignmentRepo, submissionRepo, enrollmentRepo, events, alerter, nil, listing, logger)
	grading := service.NewGradingService(assignmentRepo, submissionRepo, enrollmentRepo, gradebook, events, notifications, listing, baseURL, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		Health:              handler.HealthDependencies{DB: db, Redis: redisClient},
		AssignmentHandler:   handler.NewAssignmentHandler(assignments, logger),
		CourseHandler:       handler.NewCourseHandler(assignments, listing, logger),
		SubmissionHandler:   handler.NewSubmissionHandler(submissions, validate, 100, logger),
		GradingHandler:      handler.NewGradingHandler(grading, listing, preferences, events, gradebook, validate, logger),
		NotificationHandler: handler.NewNotificationHandler(notifications, logger, 0),
		JWTMiddleware:       headerAuth,
	})

	env := &testEnv{app: app, db: db}
	env.seed(t)
	return env
}

func (e *testEnv) seed(t *testing.T) {
	t.Helper()

	e.course = models.Course{ShortName: "VID101", FullName: "Video Production"}
	require.NoError(t, e.db.Create(&e.course).Error)

	e.teacher = models.User{Username: "teacher7", FullName: "Tess Teacher"}
	require.NoError(t, e.db.Create(&e.teacher).Error)
	require.NoError(t, e.db.Create(&models.Enrollment{CourseID: e.course.ID, UserID: e.teacher.ID, Role: models.RoleTeacher, Active: true}).Error)

	e.admin = models.User{Username: "admin1", FullName: "Site Admin"}
	require.NoError(t, e.db.Create(&e.admin).Error)

	for i := 0; i < 3; i++ {
		student := models.User{Username: fmt.Sprintf("student%d", i+1), FullName: fmt.Sprintf("Student %d", i+1)}
		require.NoError(t, e.db.Create(&student).Error)
		require.NoError(t, e.db.Create(&models.Enrollment{CourseID: e.course.ID, UserID: student.ID, Role: models.RoleStudent, Active: true}).Error)
		e.students = append(e.students, student)
	}
}

func (e *testEnv) asTeacher() caller {
	return caller{id: e.teacher.ID, role: models.RoleTeacher}
}

func (e *testEnv) asAdmin() caller {
	return caller{id: e.admin.ID, role: models.RoleAdmin}
}

func (e *testEnv) asStudent(i int) caller {
	return caller{id: e.students[i].ID, role: models.RoleStudent}
}

func (e *testEnv) createAssignment(t *testing.T, assignment models.Assignment) models.Assignment {
	t.Helper()

	assignment.CourseID = e.course.ID
	if assignment.Name == "" {
		assignment.Name = "Pitch video"
	}
	if assignment.GroupMode == "" {
		assignment.GroupMode = models.GroupModeNone
	}
	require.NoError(t, e.db.Create(&assignment).Error)
	return assignment
}

func (e *testEnv) do(t *testing.T, who caller, method, path string, body interface{}) (*http.Response, apiEnvelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if who.id != 0 {
		req.Header.Set("X-Test-User", strconv.FormatUint(uint64(who.id), 10))
	}
	if who.role != "" {
		req.Header.Set("X-Test-Role", who.role)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope apiEnvelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &envelope), string(raw))
	}
	return resp, envelope
}

func decodeData(t *testing.T, envelope apiEnvelope, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(envelope.Data, target))
}

func intPtr(v int) *int {
	return &v
}
