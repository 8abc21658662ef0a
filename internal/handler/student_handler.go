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

// StudentHandler serves the students panel and its rows.
type StudentHandler struct {
	service  service.StudentService
	renderer *render.Renderer
	logger   zerolog.Logger
}

// NewStudentHandler constructs a students panel handler.
func NewStudentHandler(service service.StudentService, renderer *render.Renderer, logger zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		service:  service,
		renderer: renderer,
		logger:   logger.With().Str("component", "student_handler").Logger(),
	}
}

// Register binds the student routes.
func (h *StudentHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/", h.create)
	router.Get("/:id/edit", h.edit)
	router.Get("/:id/row", h.row)
	router.Put("/:id", h.update)
}

func (h *StudentHandler) list(c *fiber.Ctx) error {
	panel, err := h.service.List(requestContext(c))
	if wantsJSON(c) {
		if err != nil {
			return utils.SendError(c, fiber.StatusBadGateway, panel.Error)
		}
		return utils.SendSuccess(c, "students retrieved", panel)
	}
	return h.renderer.Respond(c, fiber.StatusOK, h.renderer.StudentPanel(panel))
}

func (h *StudentHandler) create(c *fiber.Ctx) error {
	var payload dto.StudentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return respondError(c, fiber.StatusBadRequest, "invalid student payload")
	}

	panel, err := h.service.Create(requestContext(c), payload)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("student create failed")
	} else {
		triggerRefresh(c, dto.PanelMatrix, dto.PanelActivity)
	}

	if wantsJSON(c) {
		if err != nil {
			return sendFailure(c, err, panel.Form.Message)
		}
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, panel.Form.Message, panel)
	}
	return h.renderer.Respond(c, fiber.StatusOK, h.renderer.StudentPanel(panel))
}

func (h *StudentHandler) edit(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "invalid student id")
	}

	row, err := h.service.BeginEdit(requestContext(c), id)
	if err != nil {
		return h.rowError(c, err)
	}
	if wantsJSON(c) {
		return utils.SendSuccess(c, "student editing", row)
	}
	return h.renderer.Respond(c, fiber.StatusOK, h.renderer.StudentRow(row), render.InTable)
}

func (h *StudentHandler) row(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "invalid student id")
	}

	row, err := h.service.CancelEdit(requestContext(c), id)
	if err != nil {
		return h.rowError(c, err)
	}
	if wantsJSON(c) {
		return utils.SendSuccess(c, "student retrieved", row)
	}
	return h.renderer.Respond(c, fiber.StatusOK, h.renderer.StudentRow(row), render.InTable)
}

func (h *StudentHandler) update(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "invalid student id")
	}

	var payload dto.StudentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return respondError(c, fiber.StatusBadRequest, "invalid student payload")
	}

	row, err := h.service.SubmitEdit(requestContext(c), id, payload)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Uint("student_id", id).Msg("student update failed")
	} else {
		triggerRefresh(c, dto.PanelMatrix, dto.PanelActivity)
	}

	if wantsJSON(c) {
		if err != nil {
			return sendFailure(c, err, row.Message)
		}
		return utils.SendSuccess(c, row.Message, row)
	}
	// The edit row carries the outcome inline, so failures are swapped too.
	return h.renderer.Respond(c, fiber.StatusOK, h.renderer.StudentRow(row), render.InTable)
}

func (h *StudentHandler) rowError(c *fiber.Ctx, err error) error {
	if errors.Is(err, service.ErrStudentNotFound) {
		return respondError(c, fiber.StatusNotFound, "student not found")
	}
	requestLogger(h.logger, c).Error().Err(err).Msg("student row failed")
	return respondError(c, fiber.StatusInternalServerError, "failed to render student")
}
