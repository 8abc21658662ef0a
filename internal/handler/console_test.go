package handler_test

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-roster-web/internal/backend"
	"github.com/noah-isme/gema-roster-web/internal/backend/backendtest"
	"github.com/noah-isme/gema-roster-web/internal/config"
	"github.com/noah-isme/gema-roster-web/internal/database"
	"github.com/noah-isme/gema-roster-web/internal/handler"
	"github.com/noah-isme/gema-roster-web/internal/middleware"
	"github.com/noah-isme/gema-roster-web/internal/render"
	"github.com/noah-isme/gema-roster-web/internal/repository"
	"github.com/noah-isme/gema-roster-web/internal/router"
	"github.com/noah-isme/gema-roster-web/internal/service"
	"github.com/noah-isme/gema-roster-web/internal/store"
	"github.com/noah-isme/gema-roster-web/internal/view"
)

var (
	htmxRequest = map[string]string{"HX-Request": "true"}
	jsonRequest = map[string]string{"Accept": fiber.MIMEApplicationJSON}
)

type console struct {
	server *backendtest.Server
	store  *store.Store
	events service.EventService
	app    *fiber.App
}

type envelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    json.RawMessage        `json:"data"`
	Meta    json.RawMessage        `json:"meta"`
	Details map[string]interface{} `json:"details"`
}

// newConsole wires the real services against a fake backend and an in-memory journal.
func newConsole(t *testing.T) *console {
	t.Helper()

	logger := zerolog.New(io.Discard)

	server := backendtest.New()
	t.Cleanup(server.Close)

	client, err := backend.New(backend.Config{BaseURL: server.URL, ContractCheck: true}, logger)
	require.NoError(t, err)

	db, err := database.Open("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	validate := validator.New()
	st := store.New(client)
	activity := service.NewActivityService(repository.NewActivityLogRepository(db), validate, logger)
	events := service.NewEventService(service.EventConfig{}, st, logger)
	opts := service.Options{
		HideAfter: time.Second,
		DueDates:  view.DueDateFormat{Layout: view.DefaultDueDateLayout, Location: time.UTC},
	}

	matrix := service.NewMatrixService(client, st, service.NewCellTracker(), events, activity, validate, logger)
	renderer, err := render.New("Roster Console")
	require.NoError(t, err)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})

	cfg := config.Config{AppName: "Roster Console", AppEnv: "test", BackendURL: server.URL}
	router.Register(app, cfg, router.Dependencies{
		PageHandler:       handler.NewPageHandler(service.NewPageService(st, matrix, activity, opts, cfg.AppName, logger), renderer, logger),
		StudentHandler:    handler.NewStudentHandler(service.NewStudentService(client, st, events, activity, validate, opts, logger), renderer, logger),
		AssignmentHandler: handler.NewAssignmentHandler(service.NewAssignmentService(client, st, events, activity, validate, opts, logger), renderer, logger),
		MatrixHandler:     handler.NewMatrixHandler(matrix, renderer, logger),
		ActivityHandler:   handler.NewActivityHandler(activity, renderer, logger),
		EventHandler:      handler.NewEventHandler(events, logger, 100*time.Millisecond),
		Store:             st,
	})

	return &console{server: server, store: st, events: events, app: app}
}

// warm loads the store and clears the backend's request log.
func (c *console) warm(t *testing.T) {
	t.Helper()
	_, err := c.store.RefreshAll(t.Context())
	require.NoError(t, err)
	c.server.Reset()
}

func (c *console) do(t *testing.T, method, target string, form url.Values, headers map[string]string) (*http.Response, string) {
	t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.app.Test(req, 5000)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp, string(raw)
}

func decodeEnvelope(t *testing.T, body string) envelope {
	t.Helper()
	var payload envelope
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	return payload
}

func startFiberServer(t *testing.T, app *fiber.App) (string, func()) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		if err := app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", err)
		}
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)

	shutdown := func() {
		_ = app.ShutdownWithTimeout(time.Second)
		_ = listener.Close()
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}

	return "http://" + listener.Addr().String(), shutdown
}
