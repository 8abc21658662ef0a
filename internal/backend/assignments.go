package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/noah-isme/gema-roster-web/internal/dto"
	"github.com/noah-isme/gema-roster-web/internal/models"
)

// ListAssignments fetches GET /assignments/.
func (c *Client) ListAssignments(ctx context.Context) ([]models.Assignment, error) {
	const op = "list_assignments"
	raw, err := c.do(ctx, call{op: op, method: http.MethodGet, path: "/assignments/"})
	if err != nil {
		return nil, err
	}
	return decodeList[models.Assignment](c, op, SchemaAssignments, raw)
}

// CreateAssignment issues POST /assignments/.
func (c *Client) CreateAssignment(ctx context.Context, payload dto.AssignmentCreateRequest) (*models.Assignment, error) {
	const op = "create_assignment"
	raw, err := c.do(ctx, call{op: op, method: http.MethodPost, path: "/assignments/", body: payload})
	if err != nil {
		return nil, err
	}
	return decodeRecord[models.Assignment](c, op, SchemaAssignment, raw), nil
}

// DeleteAssignment issues DELETE /assignments/{id}.
func (c *Client) DeleteAssignment(ctx context.Context, id uint) error {
	_, err := c.do(ctx, call{op: "delete_assignment", method: http.MethodDelete, path: fmt.Sprintf("/assignments/%d", id)})
	return err
}
