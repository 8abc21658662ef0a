package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-roster-web/internal/dto"
	"github.com/noah-isme/gema-roster-web/internal/render"
	"github.com/noah-isme/gema-roster-web/internal/service"
	"github.com/noah-isme/gema-roster-web/internal/utils"
	"github.com/noah-isme/gema-roster-web/internal/view"
)

// ActivityHandler serves the console's activity journal.
type ActivityHandler struct {
	service  service.ActivityService
	renderer *render.Renderer
	logger   zerolog.Logger
}

// NewActivityHandler constructs the handler.
func NewActivityHandler(service service.ActivityService, renderer *render.Renderer, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		service:  service,
		renderer: renderer,
		logger:   logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register attaches activity routes to the router group.
func (h *ActivityHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
}

func (h *ActivityHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "invalid page")
	}
	if page <= 0 {
		page = 1
	}

	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "invalid page size")
	}

	filter := dto.ActivityListRequest{
		Page:       page,
		PageSize:   pageSize,
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
	}

	response, err := h.service.List(requestContext(c), filter)
	if err != nil {
		if isValidationError(err) {
			return respondError(c, fiber.StatusBadRequest, "invalid activity filter")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list activity logs")
		if wantsJSON(c) {
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to list activity logs")
		}
		panel := view.BuildActivityPanel(response, filter)
		panel.Error = "Failed to load activity"
		return h.renderer.Respond(c, fiber.StatusOK, h.renderer.ActivityPanel(panel))
	}

	if wantsJSON(c) {
		return utils.OK(c, response.Items, "activity logs", response.Pagination)
	}
	return h.renderer.Respond(c, fiber.StatusOK, h.renderer.ActivityPanel(view.BuildActivityPanel(response, filter)))
}
