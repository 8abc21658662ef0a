package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// ErrEmptyResponse indicates a 2xx response without the expected body.
	ErrEmptyResponse = errors.New("empty response body")
	// ErrContractViolation indicates a response that does not match the backend contract.
	ErrContractViolation = errors.New("response violates backend contract")
)

var detailPolicy = bluemonday.StrictPolicy()

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Op         string
	StatusCode int
	// Detail is the backend's "detail" message, stripped of markup. May be empty.
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: backend returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: backend returned status %d: %s", e.Op, e.StatusCode, e.Detail)
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}

// DetailOr returns the backend's detail message carried by err, or fallback
// when err carries none.
func DetailOr(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

type validationIssue struct {
	Msg string `json:"msg"`
}

// parseDetail extracts "detail" from an error body. It accepts a plain string
// or a list of validation issues, whose messages are joined.
func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return sanitizeDetail(text)
	}

	var issues []validationIssue
	if err := json.Unmarshal(envelope.Detail, &issues); err == nil {
		messages := make([]string, 0, len(issues))
		for _, issue := range issues {
			if msg := strings.TrimSpace(issue.Msg); msg != "" {
				messages = append(messages, msg)
			}
		}
		return sanitizeDetail(strings.Join(messages, "; "))
	}

	var single validationIssue
	if err := json.Unmarshal(envelope.Detail, &single); err == nil {
		return sanitizeDetail(single.Msg)
	}

	return ""
}

func sanitizeDetail(text string) string {
	return strings.TrimSpace(detailPolicy.Sanitize(text))
}
