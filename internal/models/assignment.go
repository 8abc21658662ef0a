package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Assignment is a piece of work students can submit.
type Assignment struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     Timestamp `json:"due_date"`
}

// timestampLayouts lists the ISO-8601 shapes the backend is known to emit.
// Layouts without an offset are resolved in the caller's location.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp keeps the backend's due date string untouched while still
// allowing it to be interpreted for display.
type Timestamp struct {
	Raw string
}

// NewTimestamp wraps a raw ISO-8601 string.
func NewTimestamp(raw string) Timestamp {
	return Timestamp{Raw: strings.TrimSpace(raw)}
}

// Parse interprets the raw value. Values carrying an explicit offset keep it;
// naive values are read as wall-clock time in loc.
func (t Timestamp) Parse(loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	if t.Raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, t.Raw, loc); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// IsZero reports whether no value was received.
func (t Timestamp) IsZero() bool {
	return t.Raw == ""
}

// String returns the raw value.
func (t Timestamp) String() string {
	return t.Raw
}

// MarshalJSON emits the raw string exactly as it was received.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Raw == "" {
		return []byte("null"), nil
	}
	return json.Marshal(t.Raw)
}

// UnmarshalJSON accepts a JSON string or null.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		t.Raw = ""
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.Raw = strings.TrimSpace(raw)
	return nil
}
