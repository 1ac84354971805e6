package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/vidassign-api/internal/dto"
	"github.com/noah-isme/vidassign-api/internal/middleware"
	"github.com/noah-isme/vidassign-api/internal/models"
	"github.com/noah-isme/vidassign-api/internal/service"
	"github.com/noah-isme/vidassign-api/internal/utils"
)

var graderRoles = []string{models.RoleTeacher, models.RoleEditingTeacher, models.RoleAdmin}

// AssignmentHandler exposes video assignment CRUD endpoints.
type AssignmentHandler struct {
	service service.AssignmentService
	logger  zerolog.Logger
}

// NewAssignmentHandler builds an AssignmentHandler.
func NewAssignmentHandler(service service.AssignmentService, logger zerolog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		service: service,
		logger:  logger.With().Str("component", "assignment_handler").Logger(),
	}
}

// Register mounts the assignment routes.
func (h *AssignmentHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/", middleware.RequireRole(graderRoles...), h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id", middleware.RequireRole(graderRoles...), h.update)
	router.Delete("/:id", middleware.RequireRole(graderRoles...), h.delete)
}

func (h *AssignmentHandler) list(c *fiber.Ctx) error {
	courseID, err := parseQueryUint(c, "course_id")
	if err != nil || courseID == nil || *courseID == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "course_id required")
	}

	assignments, err := h.service.ListByCourse(requestContext(c), *courseID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "assignments retrieved", assignments)
}

func (h *AssignmentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignment, err := h.service.Get(requestContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "assignment retrieved", assignment)
}

func (h *AssignmentHandler) create(c *fiber.Ctx) error {
	var payload dto.AssignmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	assignment, err := h.service.Create(requestContext(c), payload, userIDFromContext(c))
	return sendResult(c, h.logger, fiber.StatusCreated, "assignment created", assignment, err)
}

func (h *AssignmentHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AssignmentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	assignment, err := h.service.Update(requestContext(c), id, payload, userIDFromContext(c))
	return sendResult(c, h.logger, fiber.StatusOK, "assignment updated", assignment, err)
}

func (h *AssignmentHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	err = h.service.Delete(requestContext(c), id, userIDFromContext(c))
	return sendResult(c, h.logger, fiber.StatusOK, "assignment deleted", fiber.Map{"id": id}, err)
}
