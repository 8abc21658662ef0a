package handler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-roster-web/internal/dto"
	"github.com/noah-isme/gema-roster-web/internal/middleware"
	"github.com/noah-isme/gema-roster-web/internal/service"
)

const defaultKeepAlive = 30 * time.Second

// EventHandler streams view events to browsers over SSE and WebSocket.
type EventHandler struct {
	service   service.EventService
	logger    zerolog.Logger
	keepAlive time.Duration
}

// NewEventHandler constructs a handler instance. keepAlive bounds the silence
// between frames on an idle stream.
func NewEventHandler(service service.EventService, logger zerolog.Logger, keepAlive time.Duration) *EventHandler {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	return &EventHandler{
		service:   service,
		logger:    logger.With().Str("component", "event_handler").Logger(),
		keepAlive: keepAlive,
	}
}

// Register binds the event stream routes.
func (h *EventHandler) Register(router fiber.Router) {
	router.Get("/stream", h.stream)

	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("correlation_id", middleware.GetCorrelationID(c))
			c.Locals("client_id", middleware.GetClientID(c))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws", websocket.New(h.handleConnection))
}

// stream writes one SSE frame per touched panel so htmx elements listening on
// sse:<panel> re-fetch themselves. Events caused by the subscribing tab are
// skipped; that tab already swapped in its own response.
func (h *EventHandler) stream(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	events, cleanup := h.service.Subscribe()
	client := middleware.GetClientID(c)
	logger := *requestLogger(h.logger, c)

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cleanup()

		if err := writeKeepAlive(w); err != nil {
			return
		}

		ticker := time.NewTicker(h.keepAlive / 2)
		defer ticker.Stop()

		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				if event.FromClient(client) {
					continue
				}
				if err := writeViewEvent(w, event); err != nil {
					logger.Debug().Err(err).Msg("failed to write view event")
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					logger.Debug().Err(err).Msg("failed to write view event keepalive")
					return
				}
			}
		}
	})

	return nil
}

func (h *EventHandler) handleConnection(conn *websocket.Conn) {
	correlation := fmt.Sprint(conn.Locals("correlation_id"))
	client, _ := conn.Locals("client_id").(string)
	logger := h.logger.With().Str("correlation_id", correlation).Logger()

	events, cleanup := h.service.Subscribe()
	defer cleanup()

	// Incoming frames are ignored; reading detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	logger.Info().Msg("view event websocket connected")
	defer logger.Info().Msg("view event websocket disconnected")

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "event stream closed"))
				return
			}
			if event.FromClient(client) {
				continue
			}
			if err := conn.WriteJSON(event); err != nil {
				logger.Debug().Err(err).Msg("view event write loop terminated")
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				logger.Debug().Err(err).Msg("view event ping failed")
				return
			}
		case <-closed:
			return
		}
	}
}

func writeViewEvent(w *bufio.Writer, event dto.ViewEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	for _, panel := range event.Panels {
		if _, err := fmt.Fprintf(w, "event: %s\n", panel); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return err
		}
	}
	return w.Flush()
}

func writeKeepAlive(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, ": keep-alive %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return w.Flush()
}
