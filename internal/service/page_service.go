package service

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-roster-web/internal/dto"
	"github.com/noah-isme/gema-roster-web/internal/store"
	"github.com/noah-isme/gema-roster-web/internal/view"
)

// PageService assembles the full console.
type PageService interface {
	// Load fetches every input afresh. Each panel renders on its own: a list
	// that fails to load marks its panel (and the matrix) with an error while
	// the rest still render.
	Load(ctx context.Context) (view.Page, error)
}

type pageService struct {
	store    *store.Store
	matrix   MatrixService
	activity ActivityService
	opts     Options
	title    string
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewPageService constructs the page assembler. activity may be nil when the
// journal is disabled.
func NewPageService(st *store.Store, matrix MatrixService, activity ActivityService, opts Options, title string, logger zerolog.Logger) PageService {
	return &pageService{
		store:    st,
		matrix:   matrix,
		activity: activity,
		opts:     opts,
		title:    title,
		logger:   logger.With().Str("component", "page_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/gema-roster-web/internal/service/page"),
	}
}

func (s *pageService) Load(ctx context.Context) (view.Page, error) {
	spanCtx, span := s.tracer.Start(ctx, "page.load")
	defer span.End()

	// Each list installs independently so one failure does not discard the others.
	var studentsErr, assignmentsErr, submissionsErr error
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		_, studentsErr = s.store.RefreshStudents(spanCtx)
	}()
	go func() {
		defer wg.Done()
		_, assignmentsErr = s.store.RefreshAssignments(spanCtx)
	}()
	go func() {
		defer wg.Done()
		_, submissionsErr = s.store.RefreshSubmissions(spanCtx)
	}()
	wg.Wait()

	snap := s.store.Snapshot()
	page := view.Page{
		Title:       s.title,
		Students:    view.BuildStudentPanel(snap.Students),
		Assignments: view.BuildAssignmentPanel(snap.Assignments, s.opts.DueDates),
		Matrix:      s.matrix.Render(),
	}

	if studentsErr != nil {
		page.Students.Error = "Failed to load students"
	}
	if assignmentsErr != nil {
		page.Assignments.Error = "Failed to load assignments"
	}
	loadErr := errors.Join(studentsErr, assignmentsErr, submissionsErr)
	if loadErr != nil {
		span.RecordError(loadErr)
		s.logger.Error().Err(loadErr).Msg("console inputs failed to load")
		page.Matrix.Error = "Failed to load submissions"
	}

	if s.activity != nil {
		filter := dto.ActivityListRequest{Page: 1}
		journal, err := s.activity.List(spanCtx, filter)
		panel := view.BuildActivityPanel(journal, filter)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to load activity journal")
			panel.Error = "Failed to load activity"
			loadErr = errors.Join(loadErr, err)
		}
		page.Activity = &panel
	}

	return page, loadErr
}
