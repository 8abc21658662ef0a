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

// MatrixHandler serves the submission matrix and its cells.
type MatrixHandler struct {
	service  service.MatrixService
	renderer *render.Renderer
	logger   zerolog.Logger
}

// NewMatrixHandler constructs a matrix handler.
func NewMatrixHandler(service service.MatrixService, renderer *render.Renderer, logger zerolog.Logger) *MatrixHandler {
	return &MatrixHandler{
		service:  service,
		renderer: renderer,
		logger:   logger.With().Str("component", "matrix_handler").Logger(),
	}
}

// Register binds the matrix routes.
func (h *MatrixHandler) Register(router fiber.Router) {
	router.Get("/", h.load)
	router.Post("/cells", h.toggle)
}

func (h *MatrixHandler) load(c *fiber.Ctx) error {
	matrix, err := h.service.Load(requestContext(c))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("matrix load failed")
	}
	if wantsJSON(c) {
		if err != nil {
			return utils.SendError(c, fiber.StatusBadGateway, matrix.Error)
		}
		return utils.SendSuccess(c, "matrix retrieved", matrix)
	}
	return h.renderer.Respond(c, fiber.StatusOK, h.renderer.Matrix(matrix))
}

// toggle reads the checkbox form: checked is only sent while the box is ticked.
func (h *MatrixHandler) toggle(c *fiber.Ctx) error {
	var req dto.SubmissionToggleRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "invalid submission payload")
	}

	cell, err := h.service.Toggle(requestContext(c), req)
	if errors.Is(err, service.ErrInvalidSubmission) {
		return respondError(c, fiber.StatusBadRequest, "student_id and assignment_id are required")
	}
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Str("submission", req.Key().String()).Msg("submission toggle failed")
	} else {
		triggerRefresh(c, dto.PanelActivity)
	}

	if wantsJSON(c) {
		if err != nil {
			return utils.Fail(c, statusFor(err), cell.State.Error, cell)
		}
		return utils.SendSuccess(c, "submission updated", cell)
	}
	// A failed cell is swapped in with its prior value and the error next to it.
	return h.renderer.Respond(c, fiber.StatusOK, h.renderer.MatrixCell(cell), render.InTableRow)
}
