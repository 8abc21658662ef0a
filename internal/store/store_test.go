package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-roster-web/internal/models"
	"github.com/noah-isme/gema-roster-web/internal/store"
)

type fakeSource struct {
	mu             sync.Mutex
	students       []models.Student
	assignments    []models.Assignment
	submissions    []models.Submission
	failAssignment error
	calls          map[store.Kind]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		students:    []models.Student{{ID: 1, Name: "A", Email: "a@x.com"}},
		assignments: []models.Assignment{{ID: 2, Title: "Essay"}, {ID: 3, Title: "Quiz"}},
		submissions: []models.Submission{{StudentID: 1, AssignmentID: 2}, {StudentID: 1, AssignmentID: 3}},
		calls:       map[store.Kind]int{},
	}
}

func (f *fakeSource) count(kind store.Kind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[kind]++
}

func (f *fakeSource) ListStudents(context.Context) ([]models.Student, error) {
	f.count(store.KindStudents)
	return f.students, nil
}

func (f *fakeSource) ListAssignments(context.Context) ([]models.Assignment, error) {
	f.count(store.KindAssignments)
	if f.failAssignment != nil {
		return nil, f.failAssignment
	}
	return f.assignments, nil
}

func (f *fakeSource) ListSubmissions(context.Context) ([]models.Submission, error) {
	f.count(store.KindSubmissions)
	return f.submissions, nil
}

func TestRefreshAllInstallsEveryList(t *testing.T) {
	s := store.New(newFakeSource())

	snap, err := s.RefreshAll(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Students, 1)
	require.Len(t, snap.Assignments, 2)
	require.Len(t, snap.Submissions, 2)
	require.Equal(t, uint64(1), snap.Version)
	require.Equal(t, snap, s.Snapshot())
}

func TestRefreshAllLeavesStoreUntouchedOnFailure(t *testing.T) {
	source := newFakeSource()
	s := store.New(source)
	_, err := s.RefreshAll(context.Background())
	require.NoError(t, err)
	before := s.Snapshot()

	source.failAssignment = errors.New("boom")
	source.students = []models.Student{{ID: 9, Name: "Z", Email: "z@x.com"}}

	_, err = s.RefreshAll(context.Background())
	require.Error(t, err)
	require.Equal(t, before, s.Snapshot())
}

func TestRefreshOnlyFetchesRequestedKinds(t *testing.T) {
	source := newFakeSource()
	s := store.New(source)

	_, err := s.Refresh(context.Background(), store.KindStudents)
	require.NoError(t, err)
	require.Equal(t, 1, source.calls[store.KindStudents])
	require.Zero(t, source.calls[store.KindAssignments])
	require.Zero(t, source.calls[store.KindSubmissions])

	snap, err := s.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(1), snap.Version)
}

func TestSnapshotsAreNotMutatedByLaterPatches(t *testing.T) {
	s := store.New(newFakeSource())
	_, err := s.RefreshAll(context.Background())
	require.NoError(t, err)

	old := s.Snapshot()
	s.UpsertStudent(models.Student{ID: 1, Name: "Renamed", Email: "a@x.com"})
	s.RemoveSubmission(models.SubmissionKey{StudentID: 1, AssignmentID: 2})

	require.Equal(t, "A", old.Students[0].Name)
	require.Len(t, old.Submissions, 2)

	current := s.Snapshot()
	require.Equal(t, "Renamed", current.Students[0].Name)
	require.Len(t, current.Submissions, 1)
	require.Greater(t, current.Version, old.Version)
}

func TestUpsertAppendsUnknownRecords(t *testing.T) {
	s := store.New(newFakeSource())

	s.UpsertStudent(models.Student{ID: 4, Name: "New", Email: "n@x.com"})
	snap := s.UpsertAssignment(models.Assignment{ID: 5, Title: "Lab"})

	require.Len(t, snap.Students, 1)
	student, ok := snap.Student(4)
	require.True(t, ok)
	require.Equal(t, "New", student.Name)
	require.Equal(t, "Lab", snap.Assignments[0].Title)

	_, ok = snap.Student(99)
	require.False(t, ok)
}

func TestRemoveAssignmentDropsItsSubmissions(t *testing.T) {
	s := store.New(newFakeSource())
	_, err := s.RefreshAll(context.Background())
	require.NoError(t, err)

	snap := s.RemoveAssignment(2)
	require.Len(t, snap.Assignments, 1)
	require.Equal(t, uint(3), snap.Assignments[0].ID)
	require.False(t, snap.HasSubmission(models.SubmissionKey{StudentID: 1, AssignmentID: 2}))
	require.True(t, snap.HasSubmission(models.SubmissionKey{StudentID: 1, AssignmentID: 3}))
}

func TestPutSubmissionIsIdempotent(t *testing.T) {
	s := store.New(newFakeSource())
	key := models.SubmissionKey{StudentID: 7, AssignmentID: 8}

	s.PutSubmission(key)
	snap := s.PutSubmission(key)
	require.Len(t, snap.Submissions, 1)
	require.True(t, snap.HasSubmission(key))

	snap = s.RemoveSubmission(key)
	require.False(t, snap.HasSubmission(key))
}
