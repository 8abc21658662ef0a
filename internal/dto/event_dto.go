package dto

import "time"

// Panel names used by view events and the page layout.
const (
	PanelStudents    = "students"
	PanelAssignments = "assignments"
	PanelMatrix      = "matrix"
	PanelActivity    = "activity"
)

// ViewEvent tells subscribers which panels must be re-fetched.
type ViewEvent struct {
	ID         string    `json:"id"`
	Reason     string    `json:"reason"`
	Panels     []string  `json:"panels"`
	OccurredAt time.Time `json:"occurred_at"`
	// Origin is the browser tab whose request caused the event.
	Origin string `json:"origin,omitempty"`
}

// Touches reports whether the event names the given panel.
func (e ViewEvent) Touches(panel string) bool {
	for _, p := range e.Panels {
		if p == panel {
			return true
		}
	}
	return false
}

// FromClient reports whether the event was caused by the given browser tab.
func (e ViewEvent) FromClient(clientID string) bool {
	return clientID != "" && e.Origin == clientID
}
