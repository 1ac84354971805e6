package handler

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/vidassign-api/internal/dto"
	"github.com/noah-isme/vidassign-api/internal/middleware"
	"github.com/noah-isme/vidassign-api/internal/models"
	"github.com/noah-isme/vidassign-api/internal/service"
	"github.com/noah-isme/vidassign-api/internal/utils"
)

// SubmissionHandler serves the student side of a video assignment.
type SubmissionHandler struct {
	service     service.SubmissionService
	validator   *validator.Validate
	submitLimit int
	logger      zerolog.Logger
}

// NewSubmissionHandler creates a SubmissionHandler. submitLimit caps submit
// calls per user per minute.
func NewSubmissionHandler(service service.SubmissionService, validate *validator.Validate, submitLimit int, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service:     service,
		validator:   validate,
		submitLimit: submitLimit,
		logger:      logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register mounts the submission routes under the assignments group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	studentOnly := middleware.RequireRole(models.RoleStudent)
	router.Post("/:id/submission", studentOnly, middleware.RateLimit("submission", h.submitLimit, time.Minute), h.submit)
	router.Get("/:id/submission", studentOnly, h.status)
}

func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.SubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.Submit(requestContext(c), assignmentID, userID, payload.MediaReferenceID, time.Now().UTC())
	return sendResult(c, h.logger, fiber.StatusCreated, "submission saved", dto.NewSubmissionResponse(submission), err)
}

func (h *SubmissionHandler) status(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	status, err := h.service.Status(requestContext(c), assignmentID, userID, time.Now().UTC())
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission status", status)
}
