package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/noah-isme/gema-roster-web/internal/models"
)

// ListSubmissions fetches GET /submissions/.
func (c *Client) ListSubmissions(ctx context.Context) ([]models.Submission, error) {
	const op = "list_submissions"
	raw, err := c.do(ctx, call{op: op, method: http.MethodGet, path: "/submissions/"})
	if err != nil {
		return nil, err
	}
	return decodeList[models.Submission](c, op, SchemaSubmissions, raw)
}

// CreateSubmission issues POST /submissions/?student_id=&assignment_id=.
func (c *Client) CreateSubmission(ctx context.Context, key models.SubmissionKey) error {
	_, err := c.do(ctx, call{op: "create_submission", method: http.MethodPost, path: "/submissions/", query: submissionQuery(key)})
	return err
}

// DeleteSubmission issues DELETE /submissions/?student_id=&assignment_id=.
func (c *Client) DeleteSubmission(ctx context.Context, key models.SubmissionKey) error {
	_, err := c.do(ctx, call{op: "delete_submission", method: http.MethodDelete, path: "/submissions/", query: submissionQuery(key)})
	return err
}

func submissionQuery(key models.SubmissionKey) url.Values {
	query := url.Values{}
	query.Set("student_id", strconv.FormatUint(uint64(key.StudentID), 10))
	query.Set("assignment_id", strconv.FormatUint(uint64(key.AssignmentID), 10))
	return query
}
