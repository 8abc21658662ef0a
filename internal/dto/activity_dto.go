package dto

import (
	"time"

	"github.com/noah-isme/gema-roster-web/internal/models"
)

// ActivityListRequest filters the activity journal.
type ActivityListRequest struct {
	Page       int    `query:"page" json:"page,omitempty" validate:"omitempty,min=1"`
	PageSize   int    `query:"page_size" json:"page_size,omitempty" validate:"omitempty,min=1,max=200"`
	Action     string `query:"action" json:"action,omitempty" validate:"omitempty,max=64"`
	EntityType string `query:"entity_type" json:"entity_type,omitempty" validate:"omitempty,max=64"`
}

// ActivityResponse is one journal row.
type ActivityResponse struct {
	ID            uint                   `json:"id"`
	Action        string                 `json:"action"`
	EntityType    string                 `json:"entity_type"`
	EntityID      *uint                  `json:"entity_id,omitempty"`
	Outcome       string                 `json:"outcome"`
	Detail        string                 `json:"detail,omitempty"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

// ActivityListResponse is a page of journal rows.
type ActivityListResponse struct {
	Items      []ActivityResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// PaginationMeta describes the page returned.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NewActivityResponse converts a journal model into its DTO.
func NewActivityResponse(model models.ActivityLog) ActivityResponse {
	var metadata map[string]interface{}
	if len(model.Metadata) > 0 {
		metadata = map[string]interface{}(model.Metadata)
	}

	return ActivityResponse{
		ID:            model.ID,
		Action:        model.Action,
		EntityType:    model.EntityType,
		EntityID:      model.EntityID,
		Outcome:       model.Outcome,
		Detail:        model.Detail,
		CorrelationID: model.CorrelationID,
		Metadata:      metadata,
		CreatedAt:     model.CreatedAt,
	}
}
