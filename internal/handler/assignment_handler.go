package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-roster-web/internal/dto"
	"github.com/noah-isme/gema-roster-web/internal/render"
	"github.com/noah-isme/gema-roster-web/internal/service"
	"github.com/noah-isme/gema-roster-web/internal/utils"
)

// AssignmentHandler serves the assignments panel.
type AssignmentHandler struct {
	service  service.AssignmentService
	renderer *render.Renderer
	logger   zerolog.Logger
}

// NewAssignmentHandler constructs an assignments panel handler.
func NewAssignmentHandler(service service.AssignmentService, renderer *render.Renderer, logger zerolog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		service:  service,
		renderer: renderer,
		logger:   logger.With().Str("component", "assignment_handler").Logger(),
	}
}

// Register binds the assignment routes.
func (h *AssignmentHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/", h.create)
	router.Delete("/:id", h.delete)
	router.Get("/:id/progress", h.progress)
}

func (h *AssignmentHandler) list(c *fiber.Ctx) error {
	panel, err := h.service.List(requestContext(c))
	if wantsJSON(c) {
		if err != nil {
			return utils.SendError(c, fiber.StatusBadGateway, panel.Error)
		}
		return utils.SendSuccess(c, "assignments retrieved", panel)
	}
	return h.renderer.Respond(c, fiber.StatusOK, h.renderer.AssignmentPanel(panel))
}

func (h *AssignmentHandler) create(c *fiber.Ctx) error {
	var payload dto.AssignmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return respondError(c, fiber.StatusBadRequest, "invalid assignment payload")
	}

	panel, err := h.service.Create(requestContext(c), payload)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("assignment create failed")
	} else {
		triggerRefresh(c, dto.PanelMatrix, dto.PanelActivity)
	}

	if wantsJSON(c) {
		if err != nil {
			return sendFailure(c, err, panel.Form.Message)
		}
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, panel.Form.Message, panel)
	}
	return h.renderer.Respond(c, fiber.StatusOK, h.renderer.AssignmentPanel(panel))
}

// delete only reaches the backend when the request carries confirm=true,
// which htmx adds once the user accepts the hx-confirm prompt.
func (h *AssignmentHandler) delete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "invalid assignment id")
	}

	req := dto.AssignmentDeleteRequest{ID: id, Confirmed: c.QueryBool("confirm", false)}
	panel, err := h.service.Delete(requestContext(c), req)
	switch {
	case errors.Is(err, service.ErrDeletionNotConfirmed):
		if wantsJSON(c) {
			return utils.SendError(c, fiber.StatusPreconditionRequired, service.ConfirmDeletePrompt)
		}
	case err != nil:
		requestLogger(h.logger, c).Warn().Err(err).Uint("assignment_id", id).Msg("assignment delete failed")
		if wantsJSON(c) {
			return sendFailure(c, err, panel.Alert)
		}
	default:
		triggerRefresh(c, dto.PanelMatrix, dto.PanelActivity)
		if wantsJSON(c) {
			return utils.SendSuccess(c, "assignment deleted", panel)
		}
	}

	return h.renderer.Respond(c, fiber.StatusOK, h.renderer.AssignmentPanel(panel))
}

func (h *AssignmentHandler) progress(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "invalid assignment id")
	}

	progress, err := h.service.Progress(requestContext(c), id)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Uint("assignment_id", id).Msg("assignment progress failed")
		return respondError(c, statusFor(err), "Failed to load progress")
	}

	if wantsJSON(c) {
		return utils.SendSuccess(c, "assignment progress", progress)
	}
	return h.renderer.Respond(c, fiber.StatusOK, h.renderer.AssignmentProgress(progress))
}
