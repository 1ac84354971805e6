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

func TestSubmissionHandlerSubmitAndStatus(t *testing.T) {
	env := setupHandlerEnv(t)
	due := time.Now().UTC().Add(24 * time.Hour)
	assignment := env.createAssignment(t, models.Assignment{GradeMax: 100, TimeDue: &due, EmailTeachers: true})
	path := fmt.Sprintf("/api/v1/assignments/%d/submission", assignment.ID)

	resp, body := env.do(t, env.asStudent(0), http.MethodGet, path, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var before dto.SubmissionStatusResponse
	decodeData(t, body, &before)
	require.False(t, before.Submitted)
	require.True(t, before.CanResubmit)
	require.NotEmpty(t, before.RemainingTime)

	resp, body = env.do(t, env.asStudent(0), http.MethodPost, path, dto.SubmitRequest{MediaReferenceID: " 0_abc123 "})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Empty(t, body.Warnings)
	var submitted dto.SubmissionResponse
	decodeData(t, body, &submitted)
	require.Equal(t, "0_abc123", submitted.MediaReferenceID)
	require.Equal(t, env.students[0].ID, submitted.UserID)

	resp, body = env.do(t, env.asStudent(0), http.MethodGet, path, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var after dto.SubmissionStatusResponse
	decodeData(t, body, &after)
	require.True(t, after.Submitted)
	require.False(t, after.Marked)
	require.NotNil(t, after.Submission)

	var alerts []models.Notification
	require.NoError(t, env.db.Where("user_id = ? AND type = ?", env.teacher.ID, models.NotificationTeacherAlert).Find(&alerts).Error)
	require.Len(t, alerts, 1)
	require.Contains(t, alerts[0].Subject, "student1")
}

func TestSubmissionHandlerRejectsExpired(t *testing.T) {
	env := setupHandlerEnv(t)
	due := time.Now().UTC().Add(-time.Hour)
	assignment := env.createAssignment(t, models.Assignment{GradeMax: 100, TimeDue: &due, PreventLate: true})

	resp, body := env.do(t, env.asStudent(0), http.MethodPost, fmt.Sprintf("/api/v1/assignments/%d/submission", assignment.ID), dto.SubmitRequest{MediaReferenceID: "0_late"})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.False(t, body.Success)
}

func TestSubmissionHandlerErrors(t *testing.T) {
	env := setupHandlerEnv(t)
	assignment := env.createAssignment(t, models.Assignment{GradeMax: 10})
	path := fmt.Sprintf("/api/v1/assignments/%d/submission", assignment.ID)

	resp, _ := env.do(t, env.asStudent(0), http.MethodPost, path, dto.SubmitRequest{})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, env.asStudent(0), http.MethodPost, "/api/v1/assignments/9999/submission", dto.SubmitRequest{MediaReferenceID: "0_x"})
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, env.asTeacher(), http.MethodPost, path, dto.SubmitRequest{MediaReferenceID: "0_x"})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
