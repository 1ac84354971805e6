package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/vidassign-api/internal/dto"
	"github.com/noah-isme/vidassign-api/internal/middleware"
	"github.com/noah-isme/vidassign-api/internal/models"
	"github.com/noah-isme/vidassign-api/internal/service"
	"github.com/noah-isme/vidassign-api/internal/utils"
)

// CourseHandler serves course-wide views and maintenance.
type CourseHandler struct {
	assignments service.AssignmentService
	listing     service.ListingService
	logger      zerolog.Logger
}

// NewCourseHandler constructs a CourseHandler.
func NewCourseHandler(assignments service.AssignmentService, listing service.ListingService, logger zerolog.Logger) *CourseHandler {
	return &CourseHandler{
		assignments: assignments,
		listing:     listing,
		logger:      logger.With().Str("component", "course_handler").Logger(),
	}
}

// Register mounts the course routes.
func (h *CourseHandler) Register(router fiber.Router) {
	router.Get("/:courseId/overview", h.overview)
	router.Post("/:courseId/reset", middleware.RequireRole(models.RoleAdmin), h.reset)
}

// RegisterScales mounts the scale usage lookup.
func (h *CourseHandler) RegisterScales(router fiber.Router) {
	router.Get("/:scaleId/usage", middleware.RequireRole(graderRoles...), h.scaleUsage)
}

func (h *CourseHandler) overview(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	items, err := h.listing.CourseOverview(requestContext(c), courseID, viewerFromContext(c), time.Now().UTC())
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "course overview", items)
}

func (h *CourseHandler) reset(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.CourseResetRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	statuses, err := h.assignments.ResetCourse(requestContext(c), courseID, payload, userIDFromContext(c))
	return sendResult(c, h.logger, fiber.StatusOK, "course reset", statuses, err)
}

func (h *CourseHandler) scaleUsage(c *fiber.Ctx) error {
	scaleID, err := parseUintParam(c, "scaleId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	inUse, err := h.assignments.ScaleUsedAnywhere(requestContext(c), scaleID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "scale usage", dto.ScaleUsageResponse{ScaleID: scaleID, InUse: inUse})
}
