package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-roster-web/internal/backend"
	"github.com/noah-isme/gema-roster-web/internal/dto"
	"github.com/noah-isme/gema-roster-web/internal/models"
	"github.com/noah-isme/gema-roster-web/internal/store"
	"github.com/noah-isme/gema-roster-web/internal/view"
)

// StudentService drives the students panel.
type StudentService interface {
	// List re-fetches the students and renders the panel.
	List(ctx context.Context) (view.StudentPanel, error)
	// Panel renders the panel from the current snapshot without fetching.
	Panel() view.StudentPanel
	BeginEdit(ctx context.Context, id uint) (view.StudentRow, error)
	CancelEdit(ctx context.Context, id uint) (view.StudentRow, error)
	SubmitEdit(ctx context.Context, id uint, payload dto.StudentUpdateRequest) (view.StudentRow, error)
	Create(ctx context.Context, payload dto.StudentCreateRequest) (view.StudentPanel, error)
}

type studentService struct {
	api       StudentBackend
	store     *store.Store
	events    ViewPublisher
	activity  ActivityRecorder
	validator *validator.Validate
	opts      Options
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewStudentService constructs the students controller.
func NewStudentService(api StudentBackend, st *store.Store, events ViewPublisher, activity ActivityRecorder, validate *validator.Validate, opts Options, logger zerolog.Logger) StudentService {
	return &studentService{
		api:       api,
		store:     st,
		events:    publisherOrNop(events),
		activity:  activity,
		validator: validate,
		opts:      opts,
		logger:    logger.With().Str("component", "student_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/gema-roster-web/internal/service/student"),
	}
}

func (s *studentService) List(ctx context.Context) (view.StudentPanel, error) {
	snap, err := s.store.RefreshStudents(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load students")
		panel := view.BuildStudentPanel(s.store.Snapshot().Students)
		panel.Error = "Failed to load students"
		return panel, err
	}
	return view.BuildStudentPanel(snap.Students), nil
}

func (s *studentService) Panel() view.StudentPanel {
	return view.BuildStudentPanel(s.store.Snapshot().Students)
}

func (s *studentService) BeginEdit(_ context.Context, id uint) (view.StudentRow, error) {
	student, ok := s.store.Snapshot().Student(id)
	if !ok {
		return view.StudentRow{}, ErrStudentNotFound
	}
	return view.EditRow(student), nil
}

func (s *studentService) CancelEdit(_ context.Context, id uint) (view.StudentRow, error) {
	student, ok := s.store.Snapshot().Student(id)
	if !ok {
		return view.StudentRow{}, ErrStudentNotFound
	}
	return view.DisplayRow(student), nil
}

func (s *studentService) SubmitEdit(ctx context.Context, id uint, payload dto.StudentUpdateRequest) (view.StudentRow, error) {
	row := view.EditRow(models.Student{ID: id, Name: payload.Name, Email: payload.Email})
	row.HideAfter = s.opts.hideAfter()

	if err := s.validator.Struct(payload); err != nil {
		row.Message = validationMessage(err)
		row.IsError = true
		return row, err
	}

	spanCtx, span := s.tracer.Start(ctx, "students.update", trace.WithAttributes(attribute.Int64("student.id", int64(id))))
	defer span.End()

	updated, err := s.api.UpdateStudent(spanCtx, id, payload)
	record(spanCtx, s.activity, s.logger, ActivityEntry{
		Action:     "student.update",
		EntityType: "student",
		EntityID:   uintPtr(id),
		Outcome:    outcomeOf(err),
		Detail:     errorText(err),
		Metadata:   map[string]interface{}{"name": payload.Name, "email": payload.Email},
	})
	if err != nil {
		span.RecordError(err)
		s.logger.Warn().Err(err).Uint("student_id", id).Msg("student update rejected")
		row.Message = backend.DetailOr(err, MessageGenericError)
		row.IsError = true
		return row, fmt.Errorf("update student %d: %w", id, err)
	}

	saved := s.sync(spanCtx, updated, models.Student{ID: id, Name: payload.Name, Email: payload.Email})
	s.events.Publish(spanCtx, "student.updated", dto.PanelStudents, dto.PanelMatrix, dto.PanelActivity)

	row.Name = saved.Name
	row.Email = saved.Email
	row.Message = MessageStudentUpdated
	return row, nil
}

func (s *studentService) Create(ctx context.Context, payload dto.StudentCreateRequest) (view.StudentPanel, error) {
	if err := s.validator.Struct(payload); err != nil {
		return s.failedCreate(payload, validationMessage(err)), err
	}

	spanCtx, span := s.tracer.Start(ctx, "students.create")
	defer span.End()

	created, err := s.api.CreateStudent(spanCtx, payload)
	entry := ActivityEntry{
		Action:     "student.create",
		EntityType: "student",
		Outcome:    outcomeOf(err),
		Detail:     errorText(err),
		Metadata:   map[string]interface{}{"name": payload.Name, "email": payload.Email},
	}
	if created != nil {
		entry.EntityID = uintPtr(created.ID)
	}
	record(spanCtx, s.activity, s.logger, entry)

	if err != nil {
		span.RecordError(err)
		s.logger.Warn().Err(err).Msg("student create rejected")
		return s.failedCreate(payload, backend.DetailOr(err, MessageGenericError)), fmt.Errorf("create student: %w", err)
	}

	if created == nil || s.opts.RefetchAfterMutation {
		if _, refreshErr := s.store.RefreshStudents(spanCtx); refreshErr != nil {
			s.logger.Warn().Err(refreshErr).Msg("student list refresh after create failed")
			if created != nil {
				s.store.UpsertStudent(*created)
			}
		}
	} else {
		s.store.UpsertStudent(*created)
	}
	s.events.Publish(spanCtx, "student.created", dto.PanelStudents, dto.PanelMatrix, dto.PanelActivity)

	panel := s.Panel()
	panel.Form = view.StudentForm{Message: MessageStudentCreated}
	return panel, nil
}

func (s *studentService) failedCreate(payload dto.StudentCreateRequest, message string) view.StudentPanel {
	panel := s.Panel()
	panel.Form = view.StudentForm{Name: payload.Name, Email: payload.Email, Message: message, IsError: true}
	return panel
}

// sync brings the store in line after a successful update and returns the
// record as the backend now holds it.
func (s *studentService) sync(ctx context.Context, updated *models.Student, submitted models.Student) models.Student {
	if updated != nil && !s.opts.RefetchAfterMutation {
		s.store.UpsertStudent(*updated)
		return *updated
	}

	snap, err := s.store.RefreshStudents(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("student list refresh after update failed")
		fallback := submitted
		if updated != nil {
			fallback = *updated
		}
		s.store.UpsertStudent(fallback)
		return fallback
	}
	if fresh, ok := snap.Student(submitted.ID); ok {
		return fresh
	}
	return submitted
}
