package dto

// AssignmentCreateRequest is the payload sent to POST /assignments/.
// DueDate is forwarded exactly as typed (e.g. a datetime-local value).
type AssignmentCreateRequest struct {
	Title       string `form:"title" json:"title" validate:"required"`
	Description string `form:"description" json:"description"`
	DueDate     string `form:"due_date" json:"due_date" validate:"required"`
}

// AssignmentDeleteRequest carries the user's answer to the confirmation prompt.
type AssignmentDeleteRequest struct {
	ID        uint `validate:"required"`
	Confirmed bool
}
