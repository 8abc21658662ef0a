package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-roster-web/internal/render"
	"github.com/noah-isme/gema-roster-web/internal/service"
	"github.com/noah-isme/gema-roster-web/internal/utils"
)

// PageHandler serves the full console.
type PageHandler struct {
	service  service.PageService
	renderer *render.Renderer
	logger   zerolog.Logger
}

// NewPageHandler constructs the page handler.
func NewPageHandler(service service.PageService, renderer *render.Renderer, logger zerolog.Logger) *PageHandler {
	return &PageHandler{
		service:  service,
		renderer: renderer,
		logger:   logger.With().Str("component", "page_handler").Logger(),
	}
}

// Register binds the console root.
func (h *PageHandler) Register(router fiber.Router) {
	router.Get("/", h.index)
}

// index always answers 200: panels that failed to load carry their own error.
func (h *PageHandler) index(c *fiber.Ctx) error {
	page, err := h.service.Load(requestContext(c))
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("console rendered with failed panels")
	}

	if wantsJSON(c) {
		return utils.SendSuccess(c, "console loaded", page)
	}
	return h.renderer.Respond(c, fiber.StatusOK, h.renderer.Page(page))
}
