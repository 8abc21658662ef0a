package models

import "fmt"

// SubmissionKey identifies the relationship "student has submitted assignment".
type SubmissionKey struct {
	StudentID    uint `json:"student_id"`
	AssignmentID uint `json:"assignment_id"`
}

// Valid reports whether both halves of the key are set.
func (k SubmissionKey) Valid() bool {
	return k.StudentID > 0 && k.AssignmentID > 0
}

// String renders the key as "student:assignment".
func (k SubmissionKey) String() string {
	return fmt.Sprintf("%d:%d", k.StudentID, k.AssignmentID)
}

// Submission is an existence-only relationship between a student and an
// assignment. Any extra attributes the backend sends are ignored.
type Submission struct {
	StudentID    uint `json:"student_id"`
	AssignmentID uint `json:"assignment_id"`
}

// Key returns the composite key of the submission.
func (s Submission) Key() SubmissionKey {
	return SubmissionKey{StudentID: s.StudentID, AssignmentID: s.AssignmentID}
}
