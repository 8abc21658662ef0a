package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ClientIDHeader carries the browser tab identity issued with the page layout.
const ClientIDHeader = "X-Console-Client"

type correlationIDKey struct{}

type clientIDKey struct{}

var (
	correlationKey = correlationIDKey{}
	clientKey      = clientIDKey{}
)

// CorrelationID middleware ensures every request carries a correlation identifier for tracing across services.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		incoming := strings.TrimSpace(c.Get("X-Correlation-ID"))
		if incoming == "" {
			incoming = strings.TrimSpace(c.Get("X-Request-ID"))
		}
		if incoming == "" {
			incoming = uuid.NewString()
		}

		c.Locals("correlation_id", incoming)
		c.Set("X-Correlation-ID", incoming)

		ctx := context.WithValue(c.Context(), correlationKey, incoming)

		// EventSource cannot send headers, so streams pass the tab in the query.
		client := strings.TrimSpace(c.Get(ClientIDHeader))
		if client == "" {
			client = strings.TrimSpace(c.Query("client"))
		}
		if client != "" {
			c.Locals("client_id", client)
			ctx = context.WithValue(ctx, clientKey, client)
		}
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// CorrelationIDFromContext extracts the correlation identifier from context, if present.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value := ctx.Value(correlationKey); value != nil {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return ""
}

// GetCorrelationID returns the correlation identifier bound to the active request.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if value := c.Locals("correlation_id"); value != nil {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return CorrelationIDFromContext(c.Context())
}

// ContextWithCorrelation attaches the correlation identifier to the provided context.
func ContextWithCorrelation(ctx context.Context, correlationID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(correlationID) == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey, strings.TrimSpace(correlationID))
}

// ClientIDFromContext returns the browser tab that issued the request, if known.
func ClientIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(clientKey).(string); ok {
		return id
	}
	return ""
}

// GetClientID returns the browser tab bound to the active request.
func GetClientID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals("client_id").(string); ok {
		return id
	}
	return ""
}

// ContextWithClient attaches the browser tab identity to ctx.
func ContextWithClient(ctx context.Context, clientID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(clientID) == "" {
		return ctx
	}
	return context.WithValue(ctx, clientKey, strings.TrimSpace(clientID))
}
