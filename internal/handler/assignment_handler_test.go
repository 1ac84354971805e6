package handler_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/vidassign-api/internal/dto"
	"github.com/noah-isme/vidassign-api/internal/models"
)

func TestAssignmentHandlerLifecycle(t *testing.T) {
	env := setupHandlerEnv(t)
	due := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)

	resp, body := env.do(t, env.asTeacher(), http.MethodPost, "/api/v1/assignments", dto.AssignmentCreateRequest{
		CourseID: env.course.ID,
		Name:     "Elevator pitch",
		Intro:    "<p>Two minutes</p><script>alert(1)</script>",
		GradeMax: 100,
		TimeDue:  &due,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Empty(t, body.Warnings)

	var created dto.AssignmentResponse
	decodeData(t, body, &created)
	require.NotZero(t, created.ID)
	require.Equal(t, models.GradeTypeValue, created.GradeType)
	require.Equal(t, models.GroupModeNone, created.GroupMode)
	require.NotContains(t, created.Intro, "script")

	var calendarEvents int64
	require.NoError(t, env.db.Model(&models.CalendarEvent{}).Where("instance = ?", created.ID).Count(&calendarEvents).Error)
	require.Equal(t, int64(1), calendarEvents)

	resp, body = env.do(t, env.asStudent(0), http.MethodGet, fmt.Sprintf("/api/v1/assignments?course_id=%d", env.course.ID), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var listed []dto.AssignmentResponse
	decodeData(t, body, &listed)
	require.Len(t, listed, 1)

	newName := "Elevator pitch v2"
	resp, body = env.do(t, env.asTeacher(), http.MethodPatch, fmt.Sprintf("/api/v1/assignments/%d", created.ID), dto.AssignmentUpdateRequest{
		Name:         &newName,
		ClearTimeDue: true,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var updated dto.AssignmentResponse
	decodeData(t, body, &updated)
	require.Equal(t, newName, updated.Name)
	require.Nil(t, updated.TimeDue)

	require.NoError(t, env.db.Model(&models.CalendarEvent{}).Where("instance = ?", created.ID).Count(&calendarEvents).Error)
	require.Zero(t, calendarEvents)

	resp, _ = env.do(t, env.asTeacher(), http.MethodDelete, fmt.Sprintf("/api/v1/assignments/%d", created.ID), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body = env.do(t, env.asTeacher(), http.MethodGet, fmt.Sprintf("/api/v1/assignments/%d", created.ID), nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	require.False(t, body.Success)
}

func TestAssignmentHandlerRejectsStudentWrites(t *testing.T) {
	env := setupHandlerEnv(t)

	resp, _ := env.do(t, env.asStudent(0), http.MethodPost, "/api/v1/assignments", dto.AssignmentCreateRequest{
		CourseID: env.course.ID,
		Name:     "Sneaky",
	})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestAssignmentHandlerValidation(t *testing.T) {
	env := setupHandlerEnv(t)
	now := time.Now().UTC()
	available := now.Add(48 * time.Hour)
	due := now.Add(24 * time.Hour)

	resp, body := env.do(t, env.asTeacher(), http.MethodPost, "/api/v1/assignments", dto.AssignmentCreateRequest{
		CourseID:      env.course.ID,
		Name:          "Backwards",
		TimeAvailable: &available,
		TimeDue:       &due,
	})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.False(t, body.Success)

	resp, _ = env.do(t, env.asTeacher(), http.MethodPost, "/api/v1/assignments", dto.AssignmentCreateRequest{Name: "No course"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, env.asTeacher(), http.MethodGet, "/api/v1/assignments", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, env.asTeacher(), http.MethodGet, "/api/v1/assignments/abc", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAssignmentHandlerRequiresAuthentication(t *testing.T) {
	env := setupHandlerEnv(t)

	resp, _ := env.do(t, caller{}, http.MethodGet, fmt.Sprintf("/api/v1/assignments?course_id=%d", env.course.ID), nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
