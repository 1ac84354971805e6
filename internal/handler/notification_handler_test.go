package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/vidassign-api/internal/dto"
	"github.com/noah-isme/vidassign-api/internal/models"
)

func TestNotificationHandlerMarkRead(t *testing.T) {
	env := setupHandlerEnv(t)
	notification := models.Notification{UserID: env.students[0].ID, Type: models.NotificationGradeReleased, Subject: "Graded", Message: "Your video was graded"}
	require.NoError(t, env.db.Create(&notification).Error)

	path := fmt.Sprintf("/api/v1/notifications/%d/read", notification.ID)

	resp, _ := env.do(t, env.asStudent(1), http.MethodPatch, path, nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, body := env.do(t, env.asStudent(0), http.MethodPatch, path, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var updated dto.NotificationResponse
	decodeData(t, body, &updated)
	require.True(t, updated.Read)

	resp, _ = env.do(t, env.asStudent(0), http.MethodPatch, "/api/v1/notifications/zero/read", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestNotificationHandlerListPaging(t *testing.T) {
	env := setupHandlerEnv(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, env.db.Create(&models.Notification{UserID: env.students[0].ID, Type: models.NotificationGradeReleased, Message: fmt.Sprintf("n%d", i)}).Error)
	}

	resp, body := env.do(t, env.asStudent(0), http.MethodGet, "/api/v1/notifications?limit=2", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var items []dto.NotificationResponse
	decodeData(t, body, &items)
	require.Len(t, items, 2)

	resp, _ = env.do(t, env.asStudent(0), http.MethodGet, "/api/v1/notifications?limit=abc", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestNotificationWebsocketRequiresUpgrade(t *testing.T) {
	env := setupHandlerEnv(t)

	resp, _ := env.do(t, env.asStudent(0), http.MethodGet, "/api/v1/notifications/ws", nil)
	require.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestHealthReportsComponents(t *testing.T) {
	env := setupHandlerEnv(t)

	resp, body := env.do(t, caller{}, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var health struct {
		Status     string            `json:"status"`
		Components map[string]string `json:"components"`
	}
	decodeData(t, body, &health)
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "up", health.Components["database"])
	require.Equal(t, "up", health.Components["redis"])
	require.Equal(t, "disabled", health.Components["nats"])
}
