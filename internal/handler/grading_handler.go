package handler

import (
	"context"
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

// GradingHandler serves the grader views: listing, summary, grading and
// per-grader preferences.
type GradingHandler struct {
	grading     service.GradingService
	listing     service.ListingService
	preferences service.PreferenceService
	events      service.EventService
	gradebook   service.GradebookSync
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewGradingHandler constructs a GradingHandler.
func NewGradingHandler(grading service.GradingService, listing service.ListingService, preferences service.PreferenceService, events service.EventService, gradebook service.GradebookSync, validate *validator.Validate, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		grading:     grading,
		listing:     listing,
		preferences: preferences,
		events:      events,
		gradebook:   gradebook,
		validator:   validate,
		logger:      logger.With().Str("component", "grading_handler").Logger(),
	}
}

// Register mounts the grader routes under the assignments group.
func (h *GradingHandler) Register(router fiber.Router) {
	graders := middleware.RequireRole(graderRoles...)
	router.Get("/:id/submissions", graders, h.list)
	router.Get("/:id/summary", graders, h.summary)
	router.Put("/:id/submissions/:userId/grade", graders, h.grade)
	router.Get("/:id/submissions/:userId/history", graders, h.history)
	router.Post("/:id/quickgrade", graders, h.quickGrade)
	router.Get("/:id/events", graders, h.listEvents)
}

// RegisterPreferences mounts the grader preference routes.
func (h *GradingHandler) RegisterPreferences(router fiber.Router) {
	graders := middleware.RequireRole(graderRoles...)
	router.Get("/preferences", graders, h.getPreferences)
	router.Put("/preferences", graders, h.savePreferences)
}

// RegisterGradebook mounts gradebook maintenance routes.
func (h *GradingHandler) RegisterGradebook(router fiber.Router) {
	router.Post("/reconcile", middleware.RequireRole(models.RoleAdmin), h.reconcile)
}

func (h *GradingHandler) list(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	ctx := requestContext(c)
	viewer := viewerFromContext(c)

	prefs, err := h.preferences.Get(ctx, viewer.UserID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	req := dto.SubmissionListRequest{
		AssignmentID: assignmentID,
		Filter:       prefs.Filter,
		GroupID:      prefs.GroupFilter,
		PageSize:     prefs.PerPage,
	}

	if c.Query("filter") != "" {
		if req.Filter, err = parseQueryInt(c, "filter"); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid filter")
		}
	}
	if c.Query("page_size") != "" {
		if req.PageSize, err = parseQueryInt(c, "page_size"); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid page_size")
		}
	}
	if req.Page, err = parseQueryInt(c, "page"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	group, err := parseQueryUint(c, "group")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid group")
	}
	if group != nil {
		req.GroupID = *group
	}

	result, err := h.listing.List(ctx, req, viewer, time.Now().UTC())
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", result)
}

func (h *GradingHandler) summary(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	summary, err := h.listing.Summary(requestContext(c), assignmentID, viewerFromContext(c), time.Now().UTC())
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "grading summary", summary)
}

func (h *GradingHandler) grade(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	userID, err := parseUintParam(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.GradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	ctx := requestContext(c)
	grader := viewerFromContext(c)

	notify, err := h.notifyDefault(ctx, grader.UserID, payload.NotifyStudent)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	result, err := h.grading.GradeOne(ctx, assignmentID, userID, toGradeInput(payload, notify), grader, time.Now().UTC())
	if err != nil && !service.IsPartialFailure(err) {
		return respondError(c, h.logger, err)
	}
	result.Err = err

	message := "grade unchanged"
	if result.Updated {
		message = "grade saved"
	}
	return sendResult(c, h.logger, fiber.StatusOK, message, newGradeResultResponse(result), err)
}

func (h *GradingHandler) quickGrade(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.QuickGradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	ctx := requestContext(c)
	grader := viewerFromContext(c)

	notifyAll, err := h.notifyDefault(ctx, grader.UserID, payload.NotifyStudents)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	inputs := make(map[uint]service.GradeInput, len(payload.Grades))
	for userID, grade := range payload.Grades {
		notify := notifyAll
		if grade.NotifyStudent != nil {
			notify = *grade.NotifyStudent
		}
		inputs[userID] = toGradeInput(grade, notify)
	}

	results, err := h.grading.GradeBatch(ctx, assignmentID, inputs, grader, time.Now().UTC())
	if err != nil {
		return respondError(c, h.logger, err)
	}

	responses := make([]dto.GradeResultResponse, 0, len(results))
	for _, result := range results {
		responses = append(responses, newGradeResultResponse(result))
	}

	return utils.SendSuccess(c, "grades processed", responses)
}

func (h *GradingHandler) history(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	userID, err := parseUintParam(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	entries, err := h.grading.History(requestContext(c), assignmentID, userID, viewerFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "grade history", dto.NewGradeHistoryResponseSlice(entries))
}

func (h *GradingHandler) listEvents(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	req := dto.EventListRequest{
		AssignmentID: assignmentID,
		Action:       c.Query("action"),
	}
	if req.RelatedUserID, err = parseQueryUint(c, "user_id"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user_id")
	}
	if req.Page, err = parseQueryInt(c, "page"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	if req.PageSize, err = parseQueryInt(c, "page_size"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page_size")
	}

	events, err := h.events.List(requestContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "assignment events", events)
}

func (h *GradingHandler) getPreferences(c *fiber.Ctx) error {
	prefs, err := h.preferences.Get(requestContext(c), userIDFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "grading preferences", prefs)
}

func (h *GradingHandler) savePreferences(c *fiber.Ctx) error {
	var payload dto.PreferenceRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	prefs, err := h.preferences.Save(requestContext(c), userIDFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "grading preferences saved", prefs)
}

func (h *GradingHandler) reconcile(c *fiber.Ctx) error {
	report, err := h.gradebook.Reconcile(requestContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "gradebook reconciled", report)
}

func (h *GradingHandler) notifyDefault(ctx context.Context, graderID uint, requested *bool) (bool, error) {
	if requested != nil {
		return *requested, nil
	}
	prefs, err := h.preferences.Get(ctx, graderID)
	if err != nil {
		return false, err
	}
	return prefs.NotifyStudents, nil
}

func toGradeInput(req dto.GradeRequest, notify bool) service.GradeInput {
	return service.GradeInput{
		Grade:         req.Grade,
		Comment:       req.Comment,
		CommentFormat: req.CommentFormat,
		NotifyStudent: notify,
	}
}

func newGradeResultResponse(result service.GradeResult) dto.GradeResultResponse {
	response := dto.GradeResultResponse{
		UserID:  result.UserID,
		Updated: result.Updated,
	}
	if result.Submission.ID != 0 {
		submission := dto.NewSubmissionResponse(result.Submission)
		response.Submission = &submission
	}
	if result.Err != nil {
		if service.IsPartialFailure(result.Err) {
			response.Warning = result.Err.Error()
		} else {
			response.Error = result.Err.Error()
		}
	}
	return response
}
