package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-roster-web/internal/dto"
	"github.com/noah-isme/gema-roster-web/internal/middleware"
	"github.com/noah-isme/gema-roster-web/internal/models"
	"github.com/noah-isme/gema-roster-web/internal/repository"
)

func TestActivityServiceRecordMasksEmailAndKeepsCorrelation(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, validator.New(), testLogger())

	ctx := middleware.ContextWithCorrelation(context.Background(), "corr-7")
	entry, err := svc.Record(ctx, ActivityEntry{
		Action:     "Student.Update",
		EntityType: "student",
		EntityID:   uintPtr(5),
		Outcome:    models.ActivityOutcomeFailed,
		Detail:     "<b>Email already registered</b>",
		Metadata: map[string]interface{}{
			"email": "student@example.com",
			"name":  "Ada",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "student.update", entry.Action)
	require.Equal(t, "***", entry.Metadata["email"])
	require.Equal(t, "Ada", entry.Metadata["name"])
	require.Equal(t, "Email already registered", entry.Detail)
	require.Equal(t, "corr-7", entry.CorrelationID)
	require.Equal(t, models.ActivityOutcomeFailed, entry.Outcome)
}

func TestActivityServiceRecordRequiresAction(t *testing.T) {
	svc := NewActivityService(&memoryActivityRepo{}, validator.New(), testLogger())

	_, err := svc.Record(context.Background(), ActivityEntry{EntityType: "student"})
	require.Error(t, err)
}

func TestActivityServiceListPaginates(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, validator.New(), testLogger())
	for i := 0; i < 3; i++ {
		_, err := svc.Record(context.Background(), ActivityEntry{Action: "submission.create", EntityType: "submission"})
		require.NoError(t, err)
	}

	page, err := svc.List(context.Background(), dto.ActivityListRequest{PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, 1, page.Pagination.Page)
	require.Equal(t, 2, page.Pagination.TotalPages)
	require.Equal(t, int64(3), page.Pagination.TotalItems)
	require.Equal(t, 2, repo.lastFilter.PageSize)

	_, err = svc.List(context.Background(), dto.ActivityListRequest{PageSize: 500})
	require.Error(t, err)
}

type memoryActivityRepo struct {
	entries    []models.ActivityLog
	lastFilter repository.ActivityLogFilter
}

func (m *memoryActivityRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	entry.ID = uint(len(m.entries) + 1)
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryActivityRepo) List(ctx context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	m.lastFilter = filter
	return append([]models.ActivityLog(nil), m.entries...), int64(len(m.entries)), nil
}
