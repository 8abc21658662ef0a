package view

import (
	"github.com/noah-isme/gema-roster-web/internal/models"
)

// CellValue is whether a submission exists for a cell.
type CellValue string

const (
	CellAbsent  CellValue = "absent"
	CellPresent CellValue = "present"
)

// ValueOf converts a checkbox state into a cell value.
func ValueOf(checked bool) CellValue {
	if checked {
		return CellPresent
	}
	return CellAbsent
}

// CellPhase tracks where a cell is in its toggle lifecycle.
type CellPhase string

const (
	PhaseCommitted CellPhase = "committed"
	PhasePending   CellPhase = "pending"
	PhaseFailed    CellPhase = "failed"
)

// CellState is the rendered state of one matrix cell. A failed cell holds the
// value it reverted to and the error to show next to it.
type CellState struct {
	Value CellValue `json:"value"`
	Phase CellPhase `json:"phase"`
	Error string    `json:"error,omitempty"`
}

// Checked reports whether the checkbox should render ticked.
func (s CellState) Checked() bool {
	return s.Value == CellPresent
}

// Pending reports whether a toggle for the cell is in flight.
func (s CellState) Pending() bool {
	return s.Phase == PhasePending
}

// Cell is one student/assignment intersection.
type Cell struct {
	StudentID    uint      `json:"student_id"`
	AssignmentID uint      `json:"assignment_id"`
	State        CellState `json:"state"`
}

// Key returns the submission key of the cell.
func (c Cell) Key() models.SubmissionKey {
	return models.SubmissionKey{StudentID: c.StudentID, AssignmentID: c.AssignmentID}
}

// MatrixColumn is one assignment column.
type MatrixColumn struct {
	AssignmentID uint   `json:"assignment_id"`
	Title        string `json:"title"`
}

// MatrixRow is one student with a cell per assignment column.
type MatrixRow struct {
	StudentID uint   `json:"student_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Cells     []Cell `json:"cells"`
}

// Matrix is the student x assignment grid.
type Matrix struct {
	Header  []string       `json:"header"`
	Columns []MatrixColumn `json:"columns"`
	Rows    []MatrixRow    `json:"rows"`
	Error   string         `json:"error,omitempty"`
}

// Overlay carries transient cell states (pending or failed) that take
// precedence over what the snapshot says.
type Overlay map[models.SubmissionKey]CellState

// BuildMatrix renders the grid from scratch: header "Student", "Email", then
// one column per assignment title in the given order.
func BuildMatrix(students []models.Student, assignments []models.Assignment, submissions []models.Submission, overlay Overlay) Matrix {
	present := make(map[models.SubmissionKey]struct{}, len(submissions))
	for _, submission := range submissions {
		present[submission.Key()] = struct{}{}
	}

	header := make([]string, 0, len(assignments)+2)
	header = append(header, "Student", "Email")
	columns := make([]MatrixColumn, 0, len(assignments))
	for _, assignment := range assignments {
		header = append(header, assignment.Title)
		columns = append(columns, MatrixColumn{AssignmentID: assignment.ID, Title: assignment.Title})
	}

	rows := make([]MatrixRow, 0, len(students))
	for _, student := range students {
		cells := make([]Cell, 0, len(assignments))
		for _, assignment := range assignments {
			key := models.SubmissionKey{StudentID: student.ID, AssignmentID: assignment.ID}
			state, overridden := overlay[key]
			if !overridden {
				_, ok := present[key]
				state = CellState{Value: ValueOf(ok), Phase: PhaseCommitted}
			}
			cells = append(cells, Cell{StudentID: student.ID, AssignmentID: assignment.ID, State: state})
		}
		rows = append(rows, MatrixRow{StudentID: student.ID, Name: student.Name, Email: student.Email, Cells: cells})
	}

	return Matrix{Header: header, Columns: columns, Rows: rows}
}

// Cell finds the cell for key.
func (m Matrix) Cell(key models.SubmissionKey) (Cell, bool) {
	for _, row := range m.Rows {
		if row.StudentID != key.StudentID {
			continue
		}
		for _, cell := range row.Cells {
			if cell.AssignmentID == key.AssignmentID {
				return cell, true
			}
		}
	}
	return Cell{}, false
}
