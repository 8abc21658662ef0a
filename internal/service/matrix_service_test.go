package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-roster-web/internal/dto"
	"github.com/noah-isme/gema-roster-web/internal/models"
	"github.com/noah-isme/gema-roster-web/internal/store"
	"github.com/noah-isme/gema-roster-web/internal/view"
)

func TestMatrixLoadBuildsGrid(t *testing.T) {
	f := newFixture(t)
	ada := f.server.AddStudent("A", "a@x.com")
	essay := f.server.AddAssignment("Essay", "", "2025-07-01T12:00:00")
	f.server.AddSubmission(ada.ID, essay.ID)

	matrix, err := f.matrix(nil).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"Student", "Email", "Essay"}, matrix.Header)

	cell, ok := matrix.Cell(models.SubmissionKey{StudentID: ada.ID, AssignmentID: essay.ID})
	require.True(t, ok)
	require.True(t, cell.State.Checked())
}

func TestMatrixLoadFailureKeepsPreviousSnapshot(t *testing.T) {
	f := newFixture(t)
	f.server.AddStudent("A", "a@x.com")
	f.warm(t)
	f.server.Fail(http.MethodGet, "/submissions/", http.StatusInternalServerError, ``)

	matrix, err := f.matrix(nil).Load(context.Background())
	require.Error(t, err)
	require.NotEmpty(t, matrix.Error)
	require.Len(t, matrix.Rows, 1)
}

func TestMatrixToggleCommitsOnSuccess(t *testing.T) {
	f := newFixture(t)
	ada := f.server.AddStudent("A", "a@x.com")
	essay := f.server.AddAssignment("Essay", "", "2025-07-01T12:00:00")
	f.warm(t)

	cell, err := f.matrix(nil).Toggle(context.Background(), dto.SubmissionToggleRequest{StudentID: ada.ID, AssignmentID: essay.ID, Checked: true})
	require.NoError(t, err)
	require.Equal(t, view.CellState{Value: view.CellPresent, Phase: view.PhaseCommitted}, cell.State)
	require.True(t, f.server.HasSubmission(ada.ID, essay.ID))
	require.True(t, f.store.Snapshot().HasSubmission(cell.Key()))

	cell, err = f.matrix(nil).Toggle(context.Background(), dto.SubmissionToggleRequest{StudentID: ada.ID, AssignmentID: essay.ID, Checked: false})
	require.NoError(t, err)
	require.Equal(t, view.CellAbsent, cell.State.Value)
	require.False(t, f.server.HasSubmission(ada.ID, essay.ID))
}

func TestMatrixToggleRevertsOnFailure(t *testing.T) {
	f := newFixture(t)
	ada := f.server.AddStudent("A", "a@x.com")
	essay := f.server.AddAssignment("Essay", "", "2025-07-01T12:00:00")
	f.warm(t)
	f.server.Fail(http.MethodPost, "/submissions/", http.StatusInternalServerError, ``)

	svc := f.matrix(nil)
	cell, err := svc.Toggle(context.Background(), dto.SubmissionToggleRequest{StudentID: ada.ID, AssignmentID: essay.ID, Checked: true})
	require.Error(t, err)
	require.Equal(t, view.CellState{Value: view.CellAbsent, Phase: view.PhaseFailed, Error: MessageToggleFailed}, cell.State)
	require.False(t, f.server.HasSubmission(ada.ID, essay.ID))

	rendered, ok := svc.Render().Cell(cell.Key())
	require.True(t, ok)
	require.Equal(t, view.PhaseFailed, rendered.State.Phase)

	// No re-fetch after a failed toggle.
	require.Equal(t, 0, f.server.Count(http.MethodGet, ""))
	require.Empty(t, f.events.Events())

	f.server.Reset()
	_, err = svc.Load(context.Background())
	require.NoError(t, err)
	rendered, _ = svc.Render().Cell(cell.Key())
	require.Equal(t, view.PhaseCommitted, rendered.State.Phase)
}

func TestMatrixToggleRejectsIncompleteKey(t *testing.T) {
	f := newFixture(t)

	_, err := f.matrix(nil).Toggle(context.Background(), dto.SubmissionToggleRequest{StudentID: 1})
	require.ErrorIs(t, err, ErrInvalidSubmission)
	require.Empty(t, f.server.Requests())
}

func TestMatrixShowsPendingCellWhileRequestInFlight(t *testing.T) {
	st := store.New(staticSource{
		students:    []models.Student{{ID: 1, Name: "A", Email: "a@x.com"}},
		assignments: []models.Assignment{{ID: 2, Title: "Essay"}},
	})
	_, err := st.RefreshAll(context.Background())
	require.NoError(t, err)

	api := &blockingSubmissions{entered: make(chan struct{}), release: make(chan error)}
	tracker := NewCellTracker()
	svc := NewMatrixService(api, st, tracker, nil, nil, validator.New(), testLogger())

	done := make(chan view.Cell)
	go func() {
		cell, _ := svc.Toggle(context.Background(), dto.SubmissionToggleRequest{StudentID: 1, AssignmentID: 2, Checked: true})
		done <- cell
	}()

	<-api.entered
	pending, ok := svc.Render().Cell(models.SubmissionKey{StudentID: 1, AssignmentID: 2})
	require.True(t, ok)
	require.Equal(t, view.CellState{Value: view.CellPresent, Phase: view.PhasePending}, pending.State)

	api.release <- nil
	cell := <-done
	require.Equal(t, view.PhaseCommitted, cell.State.Phase)
	require.Empty(t, tracker.Overlay())
}

type staticSource struct {
	students    []models.Student
	assignments []models.Assignment
	submissions []models.Submission
}

func (s staticSource) ListStudents(context.Context) ([]models.Student, error) {
	return s.students, nil
}

func (s staticSource) ListAssignments(context.Context) ([]models.Assignment, error) {
	return s.assignments, nil
}

func (s staticSource) ListSubmissions(context.Context) ([]models.Submission, error) {
	return s.submissions, nil
}

type blockingSubmissions struct {
	entered chan struct{}
	release chan error
}

func (b *blockingSubmissions) CreateSubmission(ctx context.Context, key models.SubmissionKey) error {
	close(b.entered)
	return <-b.release
}

func (b *blockingSubmissions) DeleteSubmission(ctx context.Context, key models.SubmissionKey) error {
	close(b.entered)
	return <-b.release
}

func TestCellTrackerKeepsNewerPendingMarker(t *testing.T) {
	tracker := NewCellTracker()
	key := models.SubmissionKey{StudentID: 1, AssignmentID: 2}

	first := tracker.Begin(key, view.CellPresent)
	second := tracker.Begin(key, view.CellAbsent)
	pending := view.CellState{Value: view.CellAbsent, Phase: view.PhasePending}

	require.Equal(t, pending, tracker.Commit(key, first, view.CellPresent))
	require.Equal(t, pending, tracker.Overlay()[key])

	require.Equal(t, pending, tracker.Fail(key, first, view.CellAbsent, MessageToggleFailed))
	require.Equal(t, pending, tracker.Overlay()[key])

	require.Equal(t, view.CellState{Value: view.CellAbsent, Phase: view.PhaseCommitted}, tracker.Commit(key, second, view.CellAbsent))
	require.Empty(t, tracker.Overlay())
}

func TestCellTrackerMovesFailedMarkerToCommittedValue(t *testing.T) {
	tracker := NewCellTracker()
	key := models.SubmissionKey{StudentID: 1, AssignmentID: 2}

	first := tracker.Begin(key, view.CellPresent)
	second := tracker.Begin(key, view.CellAbsent)

	failed := tracker.Fail(key, second, view.CellAbsent, MessageToggleFailed)
	require.Equal(t, view.PhaseFailed, failed.Phase)

	state := tracker.Commit(key, first, view.CellPresent)
	require.Equal(t, view.CellState{Value: view.CellPresent, Phase: view.PhaseFailed, Error: MessageToggleFailed}, state)
	require.Equal(t, state, tracker.Overlay()[key])
}

func TestMatrixOverlappingTogglesOfOneCell(t *testing.T) {
	st := store.New(staticSource{
		students:    []models.Student{{ID: 1, Name: "A", Email: "a@x.com"}},
		assignments: []models.Assignment{{ID: 2, Title: "Essay"}},
	})
	_, err := st.RefreshAll(context.Background())
	require.NoError(t, err)

	api := &gatedSubmissions{calls: make(chan chan error)}
	tracker := NewCellTracker()
	svc := NewMatrixService(api, st, tracker, nil, nil, validator.New(), testLogger())
	key := models.SubmissionKey{StudentID: 1, AssignmentID: 2}

	checkDone := make(chan view.Cell)
	go func() {
		cell, _ := svc.Toggle(context.Background(), dto.SubmissionToggleRequest{StudentID: 1, AssignmentID: 2, Checked: true})
		checkDone <- cell
	}()
	releaseCheck := <-api.calls

	uncheckDone := make(chan view.Cell)
	go func() {
		cell, _ := svc.Toggle(context.Background(), dto.SubmissionToggleRequest{StudentID: 1, AssignmentID: 2})
		uncheckDone <- cell
	}()
	releaseUncheck := <-api.calls

	releaseCheck <- nil
	checked := <-checkDone
	require.Equal(t, view.CellState{Value: view.CellAbsent, Phase: view.PhasePending}, checked.State)
	require.True(t, st.Snapshot().HasSubmission(key))
	require.Equal(t, view.PhasePending, tracker.Overlay()[key].Phase)

	releaseUncheck <- errors.New("backend down")
	unchecked := <-uncheckDone
	require.Equal(t, view.PhaseFailed, unchecked.State.Phase)
	require.Equal(t, view.CellPresent, unchecked.State.Value)
}

type gatedSubmissions struct {
	calls chan chan error
}

func (g *gatedSubmissions) wait() error {
	release := make(chan error)
	g.calls <- release
	return <-release
}

func (g *gatedSubmissions) CreateSubmission(context.Context, models.SubmissionKey) error {
	return g.wait()
}

func (g *gatedSubmissions) DeleteSubmission(context.Context, models.SubmissionKey) error {
	return g.wait()
}
