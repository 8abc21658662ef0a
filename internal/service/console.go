package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-roster-web/internal/dto"
	"github.com/noah-isme/gema-roster-web/internal/models"
	"github.com/noah-isme/gema-roster-web/internal/view"
)

var (
	// ErrStudentNotFound indicates the student is not in the current snapshot.
	ErrStudentNotFound = errors.New("student not found")
	// ErrDeletionNotConfirmed indicates the user declined the delete prompt.
	ErrDeletionNotConfirmed = errors.New("assignment deletion not confirmed")
	// ErrInvalidSubmission indicates a toggle without both halves of its key.
	ErrInvalidSubmission = errors.New("invalid submission key")
)

// User-facing outcome messages.
const (
	MessageStudentUpdated    = "Updated!"
	MessageStudentCreated    = "Student created!"
	MessageAssignmentCreated = "Assignment created!"
	MessageGenericError      = "Error"
	MessageDeleteFailed      = "Failed to delete assignment"
	MessageToggleFailed      = "Failed to update submission"
	ConfirmDeletePrompt      = "Are you sure you want to delete this assignment?"
)

// DefaultHideAfter is how long an edit row shows its save outcome.
const DefaultHideAfter = time.Second

// Options tunes controller behaviour.
type Options struct {
	// HideAfter is the edit row's self-dismiss delay.
	HideAfter time.Duration
	// RefetchAfterMutation re-reads lists after every successful write instead
	// of patching the store from the mutation response.
	RefetchAfterMutation bool
	DueDates             view.DueDateFormat
}

func (o Options) hideAfter() time.Duration {
	if o.HideAfter <= 0 {
		return DefaultHideAfter
	}
	return o.HideAfter
}

// StudentBackend is the subset of the backend client used for students.
type StudentBackend interface {
	CreateStudent(ctx context.Context, payload dto.StudentCreateRequest) (*models.Student, error)
	UpdateStudent(ctx context.Context, id uint, payload dto.StudentUpdateRequest) (*models.Student, error)
}

// AssignmentBackend is the subset of the backend client used for assignments.
type AssignmentBackend interface {
	CreateAssignment(ctx context.Context, payload dto.AssignmentCreateRequest) (*models.Assignment, error)
	DeleteAssignment(ctx context.Context, id uint) error
	StudentsCompleted(ctx context.Context, assignmentID uint) ([]models.Student, error)
	StudentsPending(ctx context.Context, assignmentID uint) ([]models.Student, error)
}

// SubmissionBackend is the subset of the backend client used for the matrix.
type SubmissionBackend interface {
	CreateSubmission(ctx context.Context, key models.SubmissionKey) error
	DeleteSubmission(ctx context.Context, key models.SubmissionKey) error
}

// ViewPublisher announces which panels changed.
type ViewPublisher interface {
	Publish(ctx context.Context, reason string, panels ...string) dto.ViewEvent
}

type nopPublisher struct{}

func (nopPublisher) Publish(_ context.Context, reason string, panels ...string) dto.ViewEvent {
	return dto.ViewEvent{Reason: reason, Panels: panels, OccurredAt: time.Now().UTC()}
}

func publisherOrNop(p ViewPublisher) ViewPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

// record writes a journal entry; journal failures never fail the mutation.
func record(ctx context.Context, recorder ActivityRecorder, logger zerolog.Logger, entry ActivityEntry) {
	if recorder == nil {
		return
	}
	if _, err := recorder.Record(ctx, entry); err != nil {
		logger.Warn().Err(err).Str("action", entry.Action).Msg("failed to journal activity")
	}
}

func outcomeOf(err error) string {
	if err != nil {
		return models.ActivityOutcomeFailed
	}
	return models.ActivityOutcomeSucceeded
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// validationMessage renders validator errors as one line for inline display.
func validationMessage(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return MessageGenericError
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		field := strings.ToLower(fieldErr.Field())
		switch fieldErr.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", field))
		case "email":
			messages = append(messages, fmt.Sprintf("%s must be a valid email address", field))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(messages, "; ")
}

func uintPtr(v uint) *uint {
	return &v
}
