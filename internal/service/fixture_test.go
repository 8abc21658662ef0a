package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-roster-web/internal/backend"
	"github.com/noah-isme/gema-roster-web/internal/backend/backendtest"
	"github.com/noah-isme/gema-roster-web/internal/dto"
	"github.com/noah-isme/gema-roster-web/internal/store"
	"github.com/noah-isme/gema-roster-web/internal/view"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []dto.ViewEvent
}

func (p *recordingPublisher) Publish(_ context.Context, reason string, panels ...string) dto.ViewEvent {
	event := dto.ViewEvent{Reason: reason, Panels: panels, OccurredAt: time.Now().UTC()}
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
	return event
}

func (p *recordingPublisher) Events() []dto.ViewEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]dto.ViewEvent(nil), p.events...)
}

type fixture struct {
	server   *backendtest.Server
	client   *backend.Client
	store    *store.Store
	events   *recordingPublisher
	journal  *memoryActivityRepo
	activity ActivityService
	validate *validator.Validate
	opts     Options
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	server := backendtest.New()
	t.Cleanup(server.Close)

	client, err := backend.New(backend.Config{BaseURL: server.URL, ContractCheck: true}, testLogger())
	require.NoError(t, err)

	journal := &memoryActivityRepo{}
	validate := validator.New()

	return &fixture{
		server:   server,
		client:   client,
		store:    store.New(client),
		events:   &recordingPublisher{},
		journal:  journal,
		activity: NewActivityService(journal, validate, testLogger()),
		validate: validate,
		opts: Options{
			HideAfter: time.Second,
			DueDates:  view.DueDateFormat{Layout: view.DefaultDueDateLayout, Location: time.UTC},
		},
	}
}

// warm loads the store and clears the request log so tests count only their own calls.
func (f *fixture) warm(t *testing.T) {
	t.Helper()
	_, err := f.store.RefreshAll(context.Background())
	require.NoError(t, err)
	f.server.Reset()
}

func (f *fixture) students() StudentService {
	return NewStudentService(f.client, f.store, f.events, f.activity, f.validate, f.opts, testLogger())
}

func (f *fixture) assignments() AssignmentService {
	return NewAssignmentService(f.client, f.store, f.events, f.activity, f.validate, f.opts, testLogger())
}

func (f *fixture) matrix(tracker *CellTracker) MatrixService {
	return NewMatrixService(f.client, f.store, tracker, f.events, f.activity, f.validate, testLogger())
}
