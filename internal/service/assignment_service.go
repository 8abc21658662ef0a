package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/gema-roster-web/internal/dto"
	"github.com/noah-isme/gema-roster-web/internal/models"
	"github.com/noah-isme/gema-roster-web/internal/store"
	"github.com/noah-isme/gema-roster-web/internal/view"
)

// AssignmentService drives the assignments panel.
type AssignmentService interface {
	List(ctx context.Context) (view.AssignmentPanel, error)
	Panel() view.AssignmentPanel
	Create(ctx context.Context, payload dto.AssignmentCreateRequest) (view.AssignmentPanel, error)
	Delete(ctx context.Context, req dto.AssignmentDeleteRequest) (view.AssignmentPanel, error)
	Progress(ctx context.Context, id uint) (view.AssignmentProgress, error)
}

type assignmentService struct {
	api       AssignmentBackend
	store     *store.Store
	events    ViewPublisher
	activity  ActivityRecorder
	validator *validator.Validate
	opts      Options
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewAssignmentService constructs the assignments controller.
func NewAssignmentService(api AssignmentBackend, st *store.Store, events ViewPublisher, activity ActivityRecorder, validate *validator.Validate, opts Options, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		api:       api,
		store:     st,
		events:    publisherOrNop(events),
		activity:  activity,
		validator: validate,
		opts:      opts,
		logger:    logger.With().Str("component", "assignment_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/gema-roster-web/internal/service/assignment"),
	}
}

func (s *assignmentService) List(ctx context.Context) (view.AssignmentPanel, error) {
	snap, err := s.store.RefreshAssignments(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load assignments")
		panel := s.Panel()
		panel.Error = "Failed to load assignments"
		return panel, err
	}
	return view.BuildAssignmentPanel(snap.Assignments, s.opts.DueDates), nil
}

func (s *assignmentService) Panel() view.AssignmentPanel {
	return view.BuildAssignmentPanel(s.store.Snapshot().Assignments, s.opts.DueDates)
}

// Create never surfaces the backend's detail; failures read "Error".
func (s *assignmentService) Create(ctx context.Context, payload dto.AssignmentCreateRequest) (view.AssignmentPanel, error) {
	if err := s.validator.Struct(payload); err != nil {
		return s.failedCreate(payload), err
	}

	spanCtx, span := s.tracer.Start(ctx, "assignments.create")
	defer span.End()

	created, err := s.api.CreateAssignment(spanCtx, payload)
	entry := ActivityEntry{
		Action:     "assignment.create",
		EntityType: "assignment",
		Outcome:    outcomeOf(err),
		Detail:     errorText(err),
		Metadata:   map[string]interface{}{"title": payload.Title, "due_date": payload.DueDate},
	}
	if created != nil {
		entry.EntityID = uintPtr(created.ID)
	}
	record(spanCtx, s.activity, s.logger, entry)

	if err != nil {
		span.RecordError(err)
		s.logger.Warn().Err(err).Msg("assignment create rejected")
		return s.failedCreate(payload), fmt.Errorf("create assignment: %w", err)
	}

	if created == nil || s.opts.RefetchAfterMutation {
		if _, refreshErr := s.store.RefreshAssignments(spanCtx); refreshErr != nil {
			s.logger.Warn().Err(refreshErr).Msg("assignment list refresh after create failed")
			if created != nil {
				s.store.UpsertAssignment(*created)
			}
		}
	} else {
		s.store.UpsertAssignment(*created)
	}
	s.events.Publish(spanCtx, "assignment.created", dto.PanelAssignments, dto.PanelMatrix, dto.PanelActivity)

	panel := s.Panel()
	panel.Form = view.AssignmentForm{Message: MessageAssignmentCreated}
	return panel, nil
}

func (s *assignmentService) failedCreate(payload dto.AssignmentCreateRequest) view.AssignmentPanel {
	panel := s.Panel()
	panel.Form = view.AssignmentForm{
		Title:       payload.Title,
		Description: payload.Description,
		DueDate:     payload.DueDate,
		Message:     MessageGenericError,
		IsError:     true,
	}
	return panel
}

// Delete removes an assignment once the user confirmed. An unconfirmed
// request sends nothing to the backend.
func (s *assignmentService) Delete(ctx context.Context, req dto.AssignmentDeleteRequest) (view.AssignmentPanel, error) {
	if !req.Confirmed {
		record(ctx, s.activity, s.logger, ActivityEntry{
			Action:     "assignment.delete",
			EntityType: "assignment",
			EntityID:   uintPtr(req.ID),
			Outcome:    models.ActivityOutcomeCancelled,
		})
		return s.Panel(), ErrDeletionNotConfirmed
	}

	spanCtx, span := s.tracer.Start(ctx, "assignments.delete", trace.WithAttributes(attribute.Int64("assignment.id", int64(req.ID))))
	defer span.End()

	err := s.api.DeleteAssignment(spanCtx, req.ID)
	record(spanCtx, s.activity, s.logger, ActivityEntry{
		Action:     "assignment.delete",
		EntityType: "assignment",
		EntityID:   uintPtr(req.ID),
		Outcome:    outcomeOf(err),
		Detail:     errorText(err),
	})
	if err != nil {
		span.RecordError(err)
		s.logger.Warn().Err(err).Uint("assignment_id", req.ID).Msg("assignment delete failed")
		panel := s.Panel()
		panel.Alert = MessageDeleteFailed
		return panel, fmt.Errorf("delete assignment %d: %w", req.ID, err)
	}

	if s.opts.RefetchAfterMutation {
		if _, refreshErr := s.store.Refresh(spanCtx, store.KindAssignments, store.KindSubmissions); refreshErr != nil {
			s.logger.Warn().Err(refreshErr).Msg("refresh after assignment delete failed")
			s.store.RemoveAssignment(req.ID)
		}
	} else {
		s.store.RemoveAssignment(req.ID)
	}
	s.events.Publish(spanCtx, "assignment.deleted", dto.PanelAssignments, dto.PanelMatrix, dto.PanelActivity)

	return s.Panel(), nil
}

// Progress lists who has and has not submitted the assignment.
func (s *assignmentService) Progress(ctx context.Context, id uint) (view.AssignmentProgress, error) {
	assignment := models.Assignment{ID: id, Title: fmt.Sprintf("Assignment #%d", id)}
	for _, candidate := range s.store.Snapshot().Assignments {
		if candidate.ID == id {
			assignment = candidate
			break
		}
	}

	var completed, pending []models.Student
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		completed, err = s.api.StudentsCompleted(groupCtx, id)
		return err
	})
	group.Go(func() error {
		var err error
		pending, err = s.api.StudentsPending(groupCtx, id)
		return err
	})
	if err := group.Wait(); err != nil {
		return view.AssignmentProgress{}, fmt.Errorf("assignment %d progress: %w", id, err)
	}

	return view.BuildAssignmentProgress(assignment, completed, pending), nil
}
