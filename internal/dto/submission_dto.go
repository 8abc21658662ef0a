package dto

import "github.com/noah-isme/gema-roster-web/internal/models"

// SubmissionToggleRequest describes a checkbox flip in the matrix.
// Checked is the value the user moved the cell to.
type SubmissionToggleRequest struct {
	StudentID    uint `form:"student_id" json:"student_id" validate:"required"`
	AssignmentID uint `form:"assignment_id" json:"assignment_id" validate:"required"`
	Checked      bool `form:"checked" json:"checked"`
}

// Key returns the submission key targeted by the toggle.
func (r SubmissionToggleRequest) Key() models.SubmissionKey {
	return models.SubmissionKey{StudentID: r.StudentID, AssignmentID: r.AssignmentID}
}
