package dto

// StudentCreateRequest is the payload sent to POST /students/.
type StudentCreateRequest struct {
	Name  string `form:"name" json:"name" validate:"required"`
	Email string `form:"email" json:"email" validate:"required,email"`
}

// StudentUpdateRequest is the payload sent to PUT /students/{id}.
type StudentUpdateRequest struct {
	Name  string `form:"name" json:"name" validate:"required"`
	Email string `form:"email" json:"email" validate:"required,email"`
}
