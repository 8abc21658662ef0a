package view

// Page is the full console: every panel renders independently, so a panel
// whose inputs failed to load carries its own Error and the rest still show.
type Page struct {
	Title       string          `json:"title"`
	Students    StudentPanel    `json:"students"`
	Assignments AssignmentPanel `json:"assignments"`
	Matrix      Matrix          `json:"matrix"`
	// Activity is nil when the journal is disabled.
	Activity *ActivityPanel `json:"activity,omitempty"`
}
