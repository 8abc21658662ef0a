package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/noah-isme/gema-roster-web/internal/dto"
	"github.com/noah-isme/gema-roster-web/internal/models"
)

// ListStudents fetches GET /students/.
func (c *Client) ListStudents(ctx context.Context) ([]models.Student, error) {
	const op = "list_students"
	raw, err := c.do(ctx, call{op: op, method: http.MethodGet, path: "/students/"})
	if err != nil {
		return nil, err
	}
	return decodeList[models.Student](c, op, SchemaStudents, raw)
}

// CreateStudent issues POST /students/. The returned student is nil when the
// backend accepted the request but echoed nothing usable.
func (c *Client) CreateStudent(ctx context.Context, payload dto.StudentCreateRequest) (*models.Student, error) {
	const op = "create_student"
	raw, err := c.do(ctx, call{op: op, method: http.MethodPost, path: "/students/", body: payload})
	if err != nil {
		return nil, err
	}
	return decodeRecord[models.Student](c, op, SchemaStudent, raw), nil
}

// UpdateStudent issues PUT /students/{id}.
func (c *Client) UpdateStudent(ctx context.Context, id uint, payload dto.StudentUpdateRequest) (*models.Student, error) {
	const op = "update_student"
	raw, err := c.do(ctx, call{op: op, method: http.MethodPut, path: fmt.Sprintf("/students/%d", id), body: payload})
	if err != nil {
		return nil, err
	}
	return decodeRecord[models.Student](c, op, SchemaStudent, raw), nil
}

// StudentsCompleted fetches the students who submitted the assignment.
func (c *Client) StudentsCompleted(ctx context.Context, assignmentID uint) ([]models.Student, error) {
	const op = "students_completed"
	raw, err := c.do(ctx, call{op: op, method: http.MethodGet, path: fmt.Sprintf("/students/completed/%d", assignmentID)})
	if err != nil {
		return nil, err
	}
	return decodeList[models.Student](c, op, SchemaStudents, raw)
}

// StudentsPending fetches the students who have not submitted the assignment.
func (c *Client) StudentsPending(ctx context.Context, assignmentID uint) ([]models.Student, error) {
	const op = "students_pending"
	raw, err := c.do(ctx, call{op: op, method: http.MethodGet, path: fmt.Sprintf("/students/pending/%d", assignmentID)})
	if err != nil {
		return nil, err
	}
	return decodeList[models.Student](c, op, SchemaStudents, raw)
}
