package models

// Student is a learner record owned by the backend.
type Student struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
