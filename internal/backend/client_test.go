package backend_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-roster-web/internal/backend"
	"github.com/noah-isme/gema-roster-web/internal/backend/backendtest"
	"github.com/noah-isme/gema-roster-web/internal/dto"
	"github.com/noah-isme/gema-roster-web/internal/middleware"
	"github.com/noah-isme/gema-roster-web/internal/models"
)

func newClient(t *testing.T, server *backendtest.Server) *backend.Client {
	t.Helper()
	client, err := backend.New(backend.Config{BaseURL: server.URL, ContractCheck: true}, zerolog.Nop())
	require.NoError(t, err)
	return client
}

func TestClientListsEntities(t *testing.T) {
	server := backendtest.New()
	defer server.Close()

	student := server.AddStudent("Ada", "ada@example.com")
	assignment := server.AddAssignment("Essay", "Write", "2025-07-01T12:00:00")
	server.AddSubmission(student.ID, assignment.ID)

	client := newClient(t, server)
	ctx := context.Background()

	students, err := client.ListStudents(ctx)
	require.NoError(t, err)
	require.Equal(t, []models.Student{student}, students)

	assignments, err := client.ListAssignments(ctx)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	require.Equal(t, "2025-07-01T12:00:00", assignments[0].DueDate.Raw)

	submissions, err := client.ListSubmissions(ctx)
	require.NoError(t, err)
	require.Equal(t, []models.Submission{{StudentID: student.ID, AssignmentID: assignment.ID}}, submissions)
}

func TestClientCreateStudentSurfacesDetail(t *testing.T) {
	server := backendtest.New()
	defer server.Close()
	server.AddStudent("Ada", "ada@example.com")

	client := newClient(t, server)

	_, err := client.CreateStudent(context.Background(), dto.StudentCreateRequest{Name: "Other", Email: "ada@example.com"})
	require.Error(t, err)

	var apiErr *backend.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	require.Equal(t, "Email already registered", backend.DetailOr(err, "Error"))
}

func TestClientJoinsValidationDetail(t *testing.T) {
	server := backendtest.New()
	defer server.Close()

	client := newClient(t, server)

	_, err := client.CreateStudent(context.Background(), dto.StudentCreateRequest{Name: "Bob", Email: "nope"})
	require.Error(t, err)
	require.Equal(t, "value is not a valid email address", backend.DetailOr(err, "Error"))
}

func TestClientDetailFallbackAndSanitising(t *testing.T) {
	server := backendtest.New()
	defer server.Close()

	server.Fail(http.MethodPut, "/students/1", http.StatusInternalServerError, `oops`)
	server.Fail(http.MethodPut, "/students/2", http.StatusBadRequest, `{"detail":"<b>bad</b> name"}`)

	client := newClient(t, server)
	ctx := context.Background()

	_, err := client.UpdateStudent(ctx, 1, dto.StudentUpdateRequest{Name: "A", Email: "a@x.com"})
	require.Error(t, err)
	require.Equal(t, "Error", backend.DetailOr(err, "Error"))

	_, err = client.UpdateStudent(ctx, 2, dto.StudentUpdateRequest{Name: "A", Email: "a@x.com"})
	require.Error(t, err)
	require.Equal(t, "bad name", backend.DetailOr(err, "Error"))
}

func TestClientUpdateStudentSendsPayload(t *testing.T) {
	server := backendtest.New()
	defer server.Close()
	student := server.AddStudent("Ada", "ada@example.com")

	client := newClient(t, server)
	updated, err := client.UpdateStudent(context.Background(), student.ID, dto.StudentUpdateRequest{Name: "Ada L", Email: "ada.l@example.com"})
	require.NoError(t, err)
	require.NotNil(t, updated)
	require.Equal(t, "Ada L", updated.Name)

	requests := server.Requests()
	require.Len(t, requests, 1)
	require.Equal(t, http.MethodPut, requests[0].Method)
	require.JSONEq(t, `{"name":"Ada L","email":"ada.l@example.com"}`, requests[0].Body)
}

func TestClientMutationWithUnusableBodyReturnsNilRecord(t *testing.T) {
	server := backendtest.New()
	defer server.Close()
	server.RespondRaw(http.MethodPost, "/students/", `{"created":true}`)

	client := newClient(t, server)
	created, err := client.CreateStudent(context.Background(), dto.StudentCreateRequest{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	require.Nil(t, created)
	require.Len(t, server.Students(), 1)
}

func TestClientSubmissionQueryParameters(t *testing.T) {
	server := backendtest.New()
	defer server.Close()

	client := newClient(t, server)
	key := models.SubmissionKey{StudentID: 3, AssignmentID: 7}
	require.NoError(t, client.CreateSubmission(context.Background(), key))
	require.True(t, server.HasSubmission(3, 7))

	require.NoError(t, client.DeleteSubmission(context.Background(), key))
	require.False(t, server.HasSubmission(3, 7))

	err := client.DeleteSubmission(context.Background(), key)
	require.True(t, backend.IsNotFound(err))

	requests := server.Requests()
	require.Equal(t, "assignment_id=7&student_id=3", requests[0].Query)
	require.Equal(t, "/submissions/", requests[0].Path)
}

func TestClientRejectsContractViolations(t *testing.T) {
	server := backendtest.New()
	defer server.Close()
	server.RespondRaw(http.MethodGet, "/students/", `[{"id":"one","name":"A"}]`)

	client := newClient(t, server)
	_, err := client.ListStudents(context.Background())
	require.ErrorIs(t, err, backend.ErrContractViolation)
}

func TestClientAcceptsEmptyCollections(t *testing.T) {
	server := backendtest.New()
	defer server.Close()

	client := newClient(t, server)
	ctx := context.Background()

	students, err := client.ListStudents(ctx)
	require.NoError(t, err)
	require.Empty(t, students)

	assignments, err := client.ListAssignments(ctx)
	require.NoError(t, err)
	require.Empty(t, assignments)

	submissions, err := client.ListSubmissions(ctx)
	require.NoError(t, err)
	require.Empty(t, submissions)
}

func TestContractValidatesDecodedDocuments(t *testing.T) {
	contract, err := backend.LoadContract()
	require.NoError(t, err)

	require.NoError(t, contract.Validate(backend.SchemaStudents, []byte(`[]`)))
	require.NoError(t, contract.Validate(backend.SchemaStudents, []byte(`[{"id":1,"name":"Ada","email":"ada@example.com"}]`)))
	require.ErrorIs(t, contract.Validate(backend.SchemaStudents, []byte(`null`)), backend.ErrContractViolation)
	require.ErrorIs(t, contract.Validate(backend.SchemaStudents, []byte(`{not json`)), backend.ErrContractViolation)
}

func TestClientForwardsCorrelationID(t *testing.T) {
	server := backendtest.New()
	defer server.Close()

	var seen string
	client, err := backend.New(backend.Config{
		BaseURL: server.URL,
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			seen = r.Header.Get("X-Correlation-ID")
			return http.DefaultTransport.RoundTrip(r)
		})},
	}, zerolog.Nop())
	require.NoError(t, err)

	ctx := middleware.ContextWithCorrelation(context.Background(), "corr-1")
	_, err = client.ListStudents(ctx)
	require.NoError(t, err)
	require.Equal(t, "corr-1", seen)
}

func TestNewRejectsInvalidBaseURL(t *testing.T) {
	_, err := backend.New(backend.Config{BaseURL: ""}, zerolog.Nop())
	require.Error(t, err)

	_, err = backend.New(backend.Config{BaseURL: "localhost"}, zerolog.Nop())
	require.Error(t, err)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
