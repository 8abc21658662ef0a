// Package backendtest runs an in-memory stand-in for the roster backend over
// real HTTP so clients and handlers can be exercised end to end.
package backendtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/noah-isme/gema-roster-web/internal/models"
)

// Request is one call received by the fake backend.
type Request struct {
	Method string
	Path   string
	Query  string
	Body   string
}

type failure struct {
	status int
	body   string
}

// Server is a stateful fake of the students/assignments/submissions API.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	students     []models.Student
	assignments  []models.Assignment
	submissions  map[models.SubmissionKey]struct{}
	nextStudent  uint
	nextAssign   uint
	requests     []Request
	failures     map[string]failure
	rawResponses map[string]string
}

// New starts a fake backend. Call Close when done.
func New() *Server {
	s := &Server{
		submissions:  make(map[models.SubmissionKey]struct{}),
		failures:     make(map[string]failure),
		rawResponses: make(map[string]string),
		nextStudent:  1,
		nextAssign:   1,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// AddStudent seeds a student and returns it.
func (s *Server) AddStudent(name, email string) models.Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	student := models.Student{ID: s.nextStudent, Name: name, Email: email}
	s.nextStudent++
	s.students = append(s.students, student)
	return student
}

// AddAssignment seeds an assignment and returns it.
func (s *Server) AddAssignment(title, description, dueDate string) models.Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	assignment := models.Assignment{ID: s.nextAssign, Title: title, Description: description, DueDate: models.NewTimestamp(dueDate)}
	s.nextAssign++
	s.assignments = append(s.assignments, assignment)
	return assignment
}

// AddSubmission seeds a submission.
func (s *Server) AddSubmission(studentID, assignmentID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions[models.SubmissionKey{StudentID: studentID, AssignmentID: assignmentID}] = struct{}{}
}

// HasSubmission reports whether the backend currently stores the pair.
func (s *Server) HasSubmission(studentID, assignmentID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.submissions[models.SubmissionKey{StudentID: studentID, AssignmentID: assignmentID}]
	return ok
}

// Students returns the stored students.
func (s *Server) Students() []models.Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(make([]models.Student, 0, len(s.students)), s.students...)
}

// Assignments returns the stored assignments.
func (s *Server) Assignments() []models.Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(make([]models.Assignment, 0, len(s.assignments)), s.assignments...)
}

// Fail makes every request matching method and path answer with status and
// body instead of being handled. Path excludes the query string.
func (s *Server) Fail(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, body: body}
}

// RespondRaw makes successful requests matching method and path reply with
// body instead of the usual JSON record; state changes still apply.
func (s *Server) RespondRaw(method, path, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rawResponses[method+" "+path] = body
}

// Reset clears failures, raw overrides and the request log.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]failure)
	s.rawResponses = make(map[string]string)
	s.requests = nil
}

// Requests returns the calls received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many calls matched method and path prefix. An empty
// method matches any method.
func (s *Server) Count(method, pathPrefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, req := range s.requests {
		if (method == "" || req.Method == method) && strings.HasPrefix(req.Path, pathPrefix) {
			total++
		}
	}
	return total
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(body)})
	fail, failing := s.failures[r.Method+" "+r.URL.Path]
	raw, hasRaw := s.rawResponses[r.Method+" "+r.URL.Path]
	s.mu.Unlock()

	if failing {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(fail.status)
		_, _ = io.WriteString(w, fail.body)
		return
	}

	status, payload := s.route(r, body)
	if hasRaw && status < 300 {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, raw)
		return
	}
	writeJSON(w, status, payload)
}

func (s *Server) route(r *http.Request, body []byte) (int, interface{}) {
	path := r.URL.Path
	switch {
	case path == "/students/" && r.Method == http.MethodGet:
		return http.StatusOK, s.Students()
	case path == "/students/" && r.Method == http.MethodPost:
		return s.createStudent(body)
	case strings.HasPrefix(path, "/students/completed/") && r.Method == http.MethodGet:
		return s.progress(strings.TrimPrefix(path, "/students/completed/"), true)
	case strings.HasPrefix(path, "/students/pending/") && r.Method == http.MethodGet:
		return s.progress(strings.TrimPrefix(path, "/students/pending/"), false)
	case strings.HasPrefix(path, "/students/") && r.Method == http.MethodPut:
		return s.updateStudent(strings.TrimPrefix(path, "/students/"), body)
	case path == "/assignments/" && r.Method == http.MethodGet:
		return http.StatusOK, s.Assignments()
	case path == "/assignments/" && r.Method == http.MethodPost:
		return s.createAssignment(body)
	case strings.HasPrefix(path, "/assignments/") && r.Method == http.MethodDelete:
		return s.deleteAssignment(strings.TrimPrefix(path, "/assignments/"))
	case path == "/submissions/" && r.Method == http.MethodGet:
		return http.StatusOK, s.listSubmissions()
	case path == "/submissions/" && r.Method == http.MethodPost:
		return s.createSubmission(r)
	case path == "/submissions/" && r.Method == http.MethodDelete:
		return s.deleteSubmission(r)
	default:
		return http.StatusNotFound, detail("Not Found")
	}
}

func (s *Server) createStudent(body []byte) (int, interface{}) {
	var payload struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Name == "" || !strings.Contains(payload.Email, "@") {
		return http.StatusUnprocessableEntity, map[string]interface{}{
			"detail": []map[string]interface{}{{"loc": []string{"body", "email"}, "msg": "value is not a valid email address", "type": "value_error"}},
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.students {
		if existing.Email == payload.Email {
			return http.StatusBadRequest, detail("Email already registered")
		}
	}
	student := models.Student{ID: s.nextStudent, Name: payload.Name, Email: payload.Email}
	s.nextStudent++
	s.students = append(s.students, student)
	return http.StatusOK, student
}

func (s *Server) updateStudent(rawID string, body []byte) (int, interface{}) {
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		return http.StatusUnprocessableEntity, detail("invalid id")
	}
	var payload struct {
		Name  *string `json:"name"`
		Email *string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return http.StatusUnprocessableEntity, detail("invalid body")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.students {
		if s.students[i].ID != uint(id) {
			continue
		}
		if payload.Name != nil {
			s.students[i].Name = *payload.Name
		}
		if payload.Email != nil {
			s.students[i].Email = *payload.Email
		}
		return http.StatusOK, s.students[i]
	}
	return http.StatusNotFound, detail("Student not found")
}

func (s *Server) progress(rawID string, completed bool) (int, interface{}) {
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		return http.StatusUnprocessableEntity, detail("invalid id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]models.Student, 0)
	for _, student := range s.students {
		_, submitted := s.submissions[models.SubmissionKey{StudentID: student.ID, AssignmentID: uint(id)}]
		if submitted == completed {
			result = append(result, student)
		}
	}
	return http.StatusOK, result
}

func (s *Server) createAssignment(body []byte) (int, interface{}) {
	var payload struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		DueDate     string `json:"due_date"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Title == "" || payload.DueDate == "" {
		return http.StatusUnprocessableEntity, map[string]interface{}{
			"detail": []map[string]interface{}{{"loc": []string{"body", "due_date"}, "msg": "field required", "type": "missing"}},
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	assignment := models.Assignment{
		ID:          s.nextAssign,
		Title:       payload.Title,
		Description: payload.Description,
		DueDate:     models.NewTimestamp(payload.DueDate),
	}
	s.nextAssign++
	s.assignments = append(s.assignments, assignment)
	return http.StatusOK, assignment
}

func (s *Server) deleteAssignment(rawID string) (int, interface{}) {
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		return http.StatusUnprocessableEntity, detail("invalid id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, assignment := range s.assignments {
		if assignment.ID != uint(id) {
			continue
		}
		s.assignments = append(s.assignments[:i], s.assignments[i+1:]...)
		for key := range s.submissions {
			if key.AssignmentID == uint(id) {
				delete(s.submissions, key)
			}
		}
		return http.StatusOK, map[string]bool{"ok": true}
	}
	return http.StatusNotFound, detail("Assignment not found")
}

func (s *Server) listSubmissions() []map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]models.SubmissionKey, 0, len(s.submissions))
	for key := range s.submissions {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].StudentID != keys[j].StudentID {
			return keys[i].StudentID < keys[j].StudentID
		}
		return keys[i].AssignmentID < keys[j].AssignmentID
	})

	result := make([]map[string]interface{}, 0, len(keys))
	for i, key := range keys {
		result = append(result, map[string]interface{}{
			"id":            i + 1,
			"student_id":    key.StudentID,
			"assignment_id": key.AssignmentID,
			"submitted_at":  "2025-07-01T12:00:00",
		})
	}
	return result
}

func (s *Server) createSubmission(r *http.Request) (int, interface{}) {
	key, err := submissionKey(r)
	if err != nil {
		return http.StatusUnprocessableEntity, detail(err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions[key] = struct{}{}
	return http.StatusOK, map[string]interface{}{"student_id": key.StudentID, "assignment_id": key.AssignmentID}
}

func (s *Server) deleteSubmission(r *http.Request) (int, interface{}) {
	key, err := submissionKey(r)
	if err != nil {
		return http.StatusUnprocessableEntity, detail(err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.submissions[key]; !ok {
		return http.StatusNotFound, detail("Submission not found")
	}
	delete(s.submissions, key)
	return http.StatusOK, map[string]bool{"ok": true}
}

func submissionKey(r *http.Request) (models.SubmissionKey, error) {
	studentID, err := strconv.ParseUint(r.URL.Query().Get("student_id"), 10, 64)
	if err != nil {
		return models.SubmissionKey{}, fmt.Errorf("invalid student_id")
	}
	assignmentID, err := strconv.ParseUint(r.URL.Query().Get("assignment_id"), 10, 64)
	if err != nil {
		return models.SubmissionKey{}, fmt.Errorf("invalid assignment_id")
	}
	return models.SubmissionKey{StudentID: uint(studentID), AssignmentID: uint(assignmentID)}, nil
}

func detail(message string) map[string]string {
	return map[string]string{"detail": message}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
