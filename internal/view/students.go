// Package view turns store snapshots into render-ready view models. Every
// builder is a pure function of its inputs.
package view

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/gema-roster-web/internal/models"
)

// StudentRow is either the display row or the edit row of one student.
type StudentRow struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Editing bool   `json:"editing"`
	// Message is the outcome of the last save, shown in the edit row.
	Message string `json:"message,omitempty"`
	IsError bool   `json:"is_error,omitempty"`
	// HideAfter is how long the edit row stays before reverting to display.
	HideAfter time.Duration `json:"-"`
}

// MarshalJSON reports HideAfter as hide_after_ms.
func (r StudentRow) MarshalJSON() ([]byte, error) {
	type row StudentRow
	return json.Marshal(struct {
		row
		HideAfterMillis int64 `json:"hide_after_ms,omitempty"`
	}{row: row(r), HideAfterMillis: r.HideAfterMillis()})
}

// HideAfterMillis is HideAfter in milliseconds, for htmx delay modifiers.
func (r StudentRow) HideAfterMillis() int64 {
	return r.HideAfter.Milliseconds()
}

// Settling reports whether the row carries a save outcome and will revert on its own.
func (r StudentRow) Settling() bool {
	return r.Editing && r.Message != "" && r.HideAfter > 0
}

// StudentForm is the create form with its last outcome.
type StudentForm struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message,omitempty"`
	IsError bool   `json:"is_error,omitempty"`
}

// StudentPanel is the students list plus the create form.
type StudentPanel struct {
	Rows  []StudentRow `json:"rows"`
	Form  StudentForm  `json:"form"`
	Error string       `json:"error,omitempty"`
}

// DisplayRow renders a student in read-only form.
func DisplayRow(student models.Student) StudentRow {
	return StudentRow{ID: student.ID, Name: student.Name, Email: student.Email}
}

// EditRow renders a student with inputs prefilled from its current values.
func EditRow(student models.Student) StudentRow {
	row := DisplayRow(student)
	row.Editing = true
	return row
}

// BuildStudentPanel renders one display row per student in fetched order.
func BuildStudentPanel(students []models.Student) StudentPanel {
	rows := make([]StudentRow, 0, len(students))
	for _, student := range students {
		rows = append(rows, DisplayRow(student))
	}
	return StudentPanel{Rows: rows}
}
