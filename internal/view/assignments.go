package view

import (
	"time"

	"github.com/noah-isme/gema-roster-web/internal/models"
)

// DefaultDueDateLayout approximates a browser's default locale rendering.
const DefaultDueDateLayout = "1/2/2006, 3:04:05 PM"

// DueDateFormat controls how due dates are displayed.
type DueDateFormat struct {
	Layout   string
	Location *time.Location
}

// Format renders ts for display. Values that cannot be parsed are shown as received.
func (f DueDateFormat) Format(ts models.Timestamp) string {
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	parsed, ok := ts.Parse(loc)
	if !ok {
		return ts.Raw
	}
	layout := f.Layout
	if layout == "" {
		layout = DefaultDueDateLayout
	}
	return parsed.In(loc).Format(layout)
}

// AssignmentRow is one assignment with its display-formatted due date.
type AssignmentRow struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
	DueDateRaw  string `json:"due_date_raw"`
}

// AssignmentForm is the create form with its last outcome.
type AssignmentForm struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
	Message     string `json:"message,omitempty"`
	IsError     bool   `json:"is_error,omitempty"`
}

// AssignmentPanel is the assignments list, the create form and an optional alert.
type AssignmentPanel struct {
	Rows  []AssignmentRow `json:"rows"`
	Form  AssignmentForm  `json:"form"`
	Alert string          `json:"alert,omitempty"`
	Error string          `json:"error,omitempty"`
}

// BuildAssignmentPanel renders assignments in fetched order.
func BuildAssignmentPanel(assignments []models.Assignment, format DueDateFormat) AssignmentPanel {
	rows := make([]AssignmentRow, 0, len(assignments))
	for _, assignment := range assignments {
		rows = append(rows, AssignmentRow{
			ID:          assignment.ID,
			Title:       assignment.Title,
			Description: assignment.Description,
			DueDate:     format.Format(assignment.DueDate),
			DueDateRaw:  assignment.DueDate.Raw,
		})
	}
	return AssignmentPanel{Rows: rows}
}

// AssignmentProgress lists who has and has not submitted one assignment.
type AssignmentProgress struct {
	AssignmentID uint         `json:"assignment_id"`
	Title        string       `json:"title"`
	Completed    []StudentRow `json:"completed"`
	Pending      []StudentRow `json:"pending"`
}

// BuildAssignmentProgress renders the completed and pending lists.
func BuildAssignmentProgress(assignment models.Assignment, completed, pending []models.Student) AssignmentProgress {
	return AssignmentProgress{
		AssignmentID: assignment.ID,
		Title:        assignment.Title,
		Completed:    BuildStudentPanel(completed).Rows,
		Pending:      BuildStudentPanel(pending).Rows,
	}
}
