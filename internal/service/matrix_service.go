package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-roster-web/internal/dto"
	"github.com/noah-isme/gema-roster-web/internal/models"
	"github.com/noah-isme/gema-roster-web/internal/observability"
	"github.com/noah-isme/gema-roster-web/internal/store"
	"github.com/noah-isme/gema-roster-web/internal/view"
)

// MatrixService drives the submission matrix.
type MatrixService interface {
	// Load re-fetches students, assignments and submissions together.
	Load(ctx context.Context) (view.Matrix, error)
	// Render builds the matrix from the current snapshot.
	Render() view.Matrix
	// Toggle flips one cell. The returned cell is committed on success and
	// reverted to its prior value in the failed phase otherwise.
	Toggle(ctx context.Context, req dto.SubmissionToggleRequest) (view.Cell, error)
}

// CellTracker holds the transient state of cells whose toggle is in flight
// or has failed. Committed cells are not tracked. Each Begin hands out a
// ticket; only the newest ticket of a cell may settle its marker.
type CellTracker struct {
	mu    sync.Mutex
	seq   uint64
	cells map[models.SubmissionKey]trackedCell
}

type trackedCell struct {
	state  view.CellState
	ticket uint64
}

// NewCellTracker creates an empty tracker.
func NewCellTracker() *CellTracker {
	return &CellTracker{cells: make(map[models.SubmissionKey]trackedCell)}
}

// Begin marks the cell pending with the value it is moving to and returns the
// ticket that owns the marker.
func (t *CellTracker) Begin(key models.SubmissionKey, target view.CellValue) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	t.cells[key] = trackedCell{state: view.CellState{Value: target, Phase: view.PhasePending}, ticket: t.seq}
	return t.seq
}

// Commit settles ticket with the value the backend now holds. A newer toggle
// of the same cell keeps its pending marker; a failed marker is moved to value.
// The returned state is what the cell should display.
func (t *CellTracker) Commit(key models.SubmissionKey, ticket uint64, value view.CellValue) view.CellState {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, ok := t.cells[key]
	switch {
	case !ok || current.ticket == ticket:
		delete(t.cells, key)
	case current.state.Phase == view.PhaseFailed:
		current.state.Value = value
		t.cells[key] = current
		return current.state
	default:
		return current.state
	}
	return view.CellState{Value: value, Phase: view.PhaseCommitted}
}

// Fail reverts the cell to prior and keeps the error next to it, unless a
// newer toggle of the cell is still in flight.
func (t *CellTracker) Fail(key models.SubmissionKey, ticket uint64, prior view.CellValue, message string) view.CellState {
	t.mu.Lock()
	defer t.mu.Unlock()

	if current, ok := t.cells[key]; ok && current.ticket != ticket && current.state.Phase == view.PhasePending {
		return current.state
	}
	state := view.CellState{Value: prior, Phase: view.PhaseFailed, Error: message}
	t.cells[key] = trackedCell{state: state, ticket: ticket}
	return state
}

// ClearFailed drops failed markers, keeping in-flight ones.
func (t *CellTracker) ClearFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, tracked := range t.cells {
		if tracked.state.Phase == view.PhaseFailed {
			delete(t.cells, key)
		}
	}
}

// Overlay returns a copy of the tracked states.
func (t *CellTracker) Overlay() view.Overlay {
	t.mu.Lock()
	defer t.mu.Unlock()
	overlay := make(view.Overlay, len(t.cells))
	for key, tracked := range t.cells {
		overlay[key] = tracked.state
	}
	return overlay
}

type matrixService struct {
	api       SubmissionBackend
	store     *store.Store
	tracker   *CellTracker
	events    ViewPublisher
	activity  ActivityRecorder
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewMatrixService constructs the matrix controller.
func NewMatrixService(api SubmissionBackend, st *store.Store, tracker *CellTracker, events ViewPublisher, activity ActivityRecorder, validate *validator.Validate, logger zerolog.Logger) MatrixService {
	if tracker == nil {
		tracker = NewCellTracker()
	}
	return &matrixService{
		api:       api,
		store:     st,
		tracker:   tracker,
		events:    publisherOrNop(events),
		activity:  activity,
		validator: validate,
		logger:    logger.With().Str("component", "matrix_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/gema-roster-web/internal/service/matrix"),
	}
}

func (s *matrixService) Load(ctx context.Context) (view.Matrix, error) {
	spanCtx, span := s.tracer.Start(ctx, "matrix.load")
	defer span.End()

	if _, err := s.store.RefreshAll(spanCtx); err != nil {
		span.RecordError(err)
		s.logger.Error().Err(err).Msg("failed to load matrix inputs")
		matrix := s.Render()
		matrix.Error = "Failed to load submissions"
		return matrix, err
	}

	// Fresh data supersedes earlier failures.
	s.tracker.ClearFailed()
	return s.Render(), nil
}

func (s *matrixService) Render() view.Matrix {
	snap := s.store.Snapshot()
	return view.BuildMatrix(snap.Students, snap.Assignments, snap.Submissions, s.tracker.Overlay())
}

func (s *matrixService) Toggle(ctx context.Context, req dto.SubmissionToggleRequest) (view.Cell, error) {
	key := req.Key()
	cell := view.Cell{StudentID: key.StudentID, AssignmentID: key.AssignmentID}
	if err := s.validator.Struct(req); err != nil || !key.Valid() {
		return cell, ErrInvalidSubmission
	}

	target := view.ValueOf(req.Checked)
	action := "delete"
	if req.Checked {
		action = "create"
	}

	spanCtx, span := s.tracer.Start(ctx, "matrix.toggle", trace.WithAttributes(
		attribute.String("submission.key", key.String()),
		attribute.String("submission.action", action),
	))
	defer span.End()

	ticket := s.tracker.Begin(key, target)

	var err error
	if req.Checked {
		err = s.api.CreateSubmission(spanCtx, key)
	} else {
		err = s.api.DeleteSubmission(spanCtx, key)
	}

	record(spanCtx, s.activity, s.logger, ActivityEntry{
		Action:     "submission." + action,
		EntityType: "submission",
		Outcome:    outcomeOf(err),
		Detail:     errorText(err),
		Metadata:   map[string]interface{}{"student_id": key.StudentID, "assignment_id": key.AssignmentID},
	})
	observability.SubmissionToggles().WithLabelValues(action, outcomeOf(err)).Inc()

	if err != nil {
		span.RecordError(err)
		s.logger.Warn().Err(err).Str("submission", key.String()).Msg("submission toggle failed")
		// Read after the request so toggles that finished meanwhile are respected.
		prior := view.ValueOf(s.store.Snapshot().HasSubmission(key))
		cell.State = s.tracker.Fail(key, ticket, prior, MessageToggleFailed)
		return cell, fmt.Errorf("toggle submission %s: %w", key, err)
	}

	if req.Checked {
		s.store.PutSubmission(key)
	} else {
		s.store.RemoveSubmission(key)
	}
	cell.State = s.tracker.Commit(key, ticket, target)
	s.events.Publish(spanCtx, "submission.toggled", dto.PanelMatrix, dto.PanelActivity)

	return cell, nil
}
