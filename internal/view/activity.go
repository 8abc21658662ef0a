package view

import "github.com/noah-isme/gema-roster-web/internal/dto"

// ActivityPanel is one page of the mutation journal.
type ActivityPanel struct {
	Items      []dto.ActivityResponse  `json:"items"`
	Pagination dto.PaginationMeta      `json:"pagination"`
	Filter     dto.ActivityListRequest `json:"filter"`
	Error      string                  `json:"error,omitempty"`
}

// HasNext reports whether a later page exists.
func (p ActivityPanel) HasNext() bool {
	return p.Pagination.Page < p.Pagination.TotalPages
}

// HasPrev reports whether an earlier page exists.
func (p ActivityPanel) HasPrev() bool {
	return p.Pagination.Page > 1
}

// BuildActivityPanel wraps a journal page.
func BuildActivityPanel(page dto.ActivityListResponse, filter dto.ActivityListRequest) ActivityPanel {
	items := page.Items
	if items == nil {
		items = []dto.ActivityResponse{}
	}
	return ActivityPanel{Items: items, Pagination: page.Pagination, Filter: filter}
}
