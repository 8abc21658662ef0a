package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-roster-web/internal/backend"
	"github.com/noah-isme/gema-roster-web/internal/middleware"
	"github.com/noah-isme/gema-roster-web/internal/service"
	"github.com/noah-isme/gema-roster-web/internal/utils"
)

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
	return middleware.ContextWithClient(ctx, middleware.GetClientID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// wantsJSON reports whether the client prefers the JSON envelope over HTML.
func wantsJSON(c *fiber.Ctx) bool {
	return c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON
}

func parseID(c *fiber.Ctx) (uint, error) {
	raw := strings.TrimSpace(c.Params("id"))
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(parsed), nil
}

// triggerRefresh asks htmx to re-fetch the named panels once the response is swapped.
func triggerRefresh(c *fiber.Ctx, panels ...string) {
	if len(panels) == 0 {
		return
	}
	events := make([]string, 0, len(panels))
	for _, panel := range panels {
		events = append(events, "refresh-"+panel)
	}
	c.Set("HX-Trigger", strings.Join(events, ", "))
}

// respondError answers with the JSON envelope for API clients and plain text otherwise.
func respondError(c *fiber.Ctx, status int, message string) error {
	if wantsJSON(c) {
		return utils.SendError(c, status, message)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Status(status).SendString(message)
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// statusFor maps controller errors to the status reported to JSON clients.
func statusFor(err error) int {
	var apiErr *backend.APIError
	switch {
	case err == nil:
		return fiber.StatusOK
	case isValidationError(err):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, service.ErrStudentNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrDeletionNotConfirmed):
		return fiber.StatusPreconditionRequired
	case errors.Is(err, service.ErrInvalidSubmission):
		return fiber.StatusBadRequest
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
		return apiErr.StatusCode
	default:
		return fiber.StatusBadGateway
	}
}

// fieldErrors flattens validator errors into field -> tag pairs.
func fieldErrors(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	fields := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fields[strings.ToLower(fieldErr.Field())] = fieldErr.Tag()
	}
	return fields
}

// sendFailure reports a failed mutation to JSON clients, carrying field errors when present.
func sendFailure(c *fiber.Ctx, err error, message string) error {
	if message == "" {
		message = err.Error()
	}
	if fields := fieldErrors(err); fields != nil {
		return utils.Fail(c, statusFor(err), message, fields)
	}
	return utils.SendError(c, statusFor(err), message)
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}
