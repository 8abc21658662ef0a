// Package store mirrors the backend's entity lists for rendering.
//
// Reads hand out immutable snapshots; every write replaces the affected slice
// instead of mutating it, so a snapshot taken by a render pass never changes
// underneath it.
package store

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/gema-roster-web/internal/models"
)

// Kind names one entity collection held by the store.
type Kind string

const (
	KindStudents    Kind = "students"
	KindAssignments Kind = "assignments"
	KindSubmissions Kind = "submissions"
)

// Source fetches authoritative entity lists.
type Source interface {
	ListStudents(ctx context.Context) ([]models.Student, error)
	ListAssignments(ctx context.Context) ([]models.Assignment, error)
	ListSubmissions(ctx context.Context) ([]models.Submission, error)
}

// Snapshot is one consistent view of the store. Callers must not modify the slices.
type Snapshot struct {
	Students    []models.Student
	Assignments []models.Assignment
	Submissions []models.Submission
	Version     uint64
}

// HasSubmission reports whether the pair exists in the snapshot.
func (s Snapshot) HasSubmission(key models.SubmissionKey) bool {
	for _, submission := range s.Submissions {
		if submission.Key() == key {
			return true
		}
	}
	return false
}

// Student looks a student up by id.
func (s Snapshot) Student(id uint) (models.Student, bool) {
	for _, student := range s.Students {
		if student.ID == id {
			return student, true
		}
	}
	return models.Student{}, false
}

// Store holds the latest snapshot and refreshes it from a Source.
type Store struct {
	source Source

	mu   sync.RWMutex
	snap Snapshot
}

// New creates an empty store backed by source.
func New(source Source) *Store {
	return &Store{source: source}
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// RefreshStudents re-fetches the student list.
func (s *Store) RefreshStudents(ctx context.Context) (Snapshot, error) {
	students, err := s.source.ListStudents(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("refresh students: %w", err)
	}
	return s.update(func(snap *Snapshot) { snap.Students = students }), nil
}

// RefreshAssignments re-fetches the assignment list.
func (s *Store) RefreshAssignments(ctx context.Context) (Snapshot, error) {
	assignments, err := s.source.ListAssignments(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("refresh assignments: %w", err)
	}
	return s.update(func(snap *Snapshot) { snap.Assignments = assignments }), nil
}

// RefreshSubmissions re-fetches the submission list.
func (s *Store) RefreshSubmissions(ctx context.Context) (Snapshot, error) {
	submissions, err := s.source.ListSubmissions(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("refresh submissions: %w", err)
	}
	return s.update(func(snap *Snapshot) { snap.Submissions = submissions }), nil
}

// RefreshAll fetches all three lists in parallel and installs them together.
// If any fetch fails the store is left untouched.
func (s *Store) RefreshAll(ctx context.Context) (Snapshot, error) {
	return s.Refresh(ctx, KindStudents, KindAssignments, KindSubmissions)
}

// Refresh fetches the given kinds in parallel and installs them together.
func (s *Store) Refresh(ctx context.Context, kinds ...Kind) (Snapshot, error) {
	var (
		students    []models.Student
		assignments []models.Assignment
		submissions []models.Submission
		want        = make(map[Kind]bool, len(kinds))
	)
	for _, kind := range kinds {
		want[kind] = true
	}
	if len(want) == 0 {
		return s.Snapshot(), nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	if want[KindStudents] {
		group.Go(func() error {
			var err error
			students, err = s.source.ListStudents(groupCtx)
			return err
		})
	}
	if want[KindAssignments] {
		group.Go(func() error {
			var err error
			assignments, err = s.source.ListAssignments(groupCtx)
			return err
		})
	}
	if want[KindSubmissions] {
		group.Go(func() error {
			var err error
			submissions, err = s.source.ListSubmissions(groupCtx)
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return Snapshot{}, fmt.Errorf("refresh store: %w", err)
	}

	return s.update(func(snap *Snapshot) {
		if want[KindStudents] {
			snap.Students = students
		}
		if want[KindAssignments] {
			snap.Assignments = assignments
		}
		if want[KindSubmissions] {
			snap.Submissions = submissions
		}
	}), nil
}

// UpsertStudent replaces the student with the same id or appends it.
func (s *Store) UpsertStudent(student models.Student) Snapshot {
	return s.update(func(snap *Snapshot) {
		next := make([]models.Student, 0, len(snap.Students)+1)
		replaced := false
		for _, existing := range snap.Students {
			if existing.ID == student.ID {
				next = append(next, student)
				replaced = true
				continue
			}
			next = append(next, existing)
		}
		if !replaced {
			next = append(next, student)
		}
		snap.Students = next
	})
}

// UpsertAssignment replaces the assignment with the same id or appends it.
func (s *Store) UpsertAssignment(assignment models.Assignment) Snapshot {
	return s.update(func(snap *Snapshot) {
		next := make([]models.Assignment, 0, len(snap.Assignments)+1)
		replaced := false
		for _, existing := range snap.Assignments {
			if existing.ID == assignment.ID {
				next = append(next, assignment)
				replaced = true
				continue
			}
			next = append(next, existing)
		}
		if !replaced {
			next = append(next, assignment)
		}
		snap.Assignments = next
	})
}

// RemoveAssignment drops the assignment and every submission referencing it,
// mirroring the backend's cascade.
func (s *Store) RemoveAssignment(id uint) Snapshot {
	return s.update(func(snap *Snapshot) {
		assignments := make([]models.Assignment, 0, len(snap.Assignments))
		for _, existing := range snap.Assignments {
			if existing.ID != id {
				assignments = append(assignments, existing)
			}
		}
		submissions := make([]models.Submission, 0, len(snap.Submissions))
		for _, existing := range snap.Submissions {
			if existing.AssignmentID != id {
				submissions = append(submissions, existing)
			}
		}
		snap.Assignments = assignments
		snap.Submissions = submissions
	})
}

// PutSubmission records the pair as present.
func (s *Store) PutSubmission(key models.SubmissionKey) Snapshot {
	return s.update(func(snap *Snapshot) {
		if snap.HasSubmission(key) {
			return
		}
		next := make([]models.Submission, 0, len(snap.Submissions)+1)
		next = append(next, snap.Submissions...)
		snap.Submissions = append(next, models.Submission{StudentID: key.StudentID, AssignmentID: key.AssignmentID})
	})
}

// RemoveSubmission records the pair as absent.
func (s *Store) RemoveSubmission(key models.SubmissionKey) Snapshot {
	return s.update(func(snap *Snapshot) {
		next := make([]models.Submission, 0, len(snap.Submissions))
		for _, existing := range snap.Submissions {
			if existing.Key() != key {
				next = append(next, existing)
			}
		}
		snap.Submissions = next
	})
}

func (s *Store) update(apply func(*Snapshot)) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snap
	apply(&next)
	next.Version = s.snap.Version + 1
	s.snap = next
	return next
}
