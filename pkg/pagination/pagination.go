// Package pagination implements offset and keyset pagination for list endpoints.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

const (
	DefaultPerPage = 15
	MaxPerPage     = 100
)

// PaginationParams are the page/per_page query parameters.
type PaginationParams struct {
	Page    int `form:"page" json:"page"`
	PerPage int `form:"per_page" json:"per_page"`
}

// DefaultPagination returns the first page with the default size.
func DefaultPagination() *PaginationParams {
	return &PaginationParams{Page: 1, PerPage: DefaultPerPage}
}

// Validate clamps page and per_page into range.
func (p *PaginationParams) Validate() {
	if p.Page < 1 {
		p.Page = 1
	}
	switch {
	case p.PerPage < 1:
		p.PerPage = DefaultPerPage
	case p.PerPage > MaxPerPage:
		p.PerPage = MaxPerPage
	}
}

// Offset calculates the offset for SQL queries
func (p *PaginationParams) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Pagination is the page metadata returned with a list.
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"total_pages"`
	HasNext     bool  `json:"has_next"`
	HasPrev     bool  `json:"has_prev"`
}

// NewPagination builds page metadata from the total row count.
func NewPagination(page, perPage int, total int64) *Pagination {
	totalPages := 0
	if perPage > 0 {
		totalPages = int((total + int64(perPage) - 1) / int64(perPage))
	}
	return &Pagination{
		CurrentPage: page,
		PerPage:     perPage,
		Total:       total,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
}

// PaginatedResult pairs a page of items with its metadata.
type PaginatedResult[T any] struct {
	Items      []T         `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

func NewPaginatedResult[T any](items []T, pagination *Pagination) *PaginatedResult[T] {
	if items == nil {
		items = []T{}
	}
	return &PaginatedResult[T]{Items: items, Pagination: pagination}
}

// Cursor marks the last row seen in a keyset-paginated list ordered by
// created_at desc, id desc.
type Cursor struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// CursorParams are the cursor/limit query parameters.
type CursorParams struct {
	Cursor string `form:"cursor" json:"cursor"`
	Limit  int    `form:"limit" json:"limit"`
}

// Validate clamps the limit into range.
func (c *CursorParams) Validate() {
	if c.Limit < 1 {
		c.Limit = DefaultPerPage
	}
	if c.Limit > MaxPerPage {
		c.Limit = MaxPerPage
	}
}

// Decode returns nil when no cursor was supplied.
func (c *CursorParams) Decode() (*Cursor, error) {
	if c.Cursor == "" {
		return nil, nil
	}
	raw, err := base64.URLEncoding.DecodeString(c.Cursor)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor format: %w", err)
	}
	var cur Cursor
	if err := json.Unmarshal(raw, &cur); err != nil {
		return nil, fmt.Errorf("invalid cursor data: %w", err)
	}
	return &cur, nil
}

// EncodeCursor serialises a cursor for the next_cursor field.
func EncodeCursor(id string, createdAt time.Time) string {
	data, _ := json.Marshal(Cursor{ID: id, CreatedAt: createdAt})
	return base64.URLEncoding.EncodeToString(data)
}

// CursorResult is a keyset page.
type CursorResult[T any] struct {
	Items      []T     `json:"items"`
	NextCursor *string `json:"next_cursor,omitempty"`
	HasNext    bool    `json:"has_next"`
	Limit      int     `json:"limit"`
}

// NewCursorResult expects up to limit+1 rows; the extra row only signals
// that another page exists.
func NewCursorResult[T any](rows []T, limit int, key func(T) (string, time.Time)) *CursorResult[T] {
	hasNext := len(rows) > limit
	if hasNext {
		rows = rows[:limit]
	}
	if rows == nil {
		rows = []T{}
	}
	result := &CursorResult[T]{Items: rows, HasNext: hasNext, Limit: limit}
	if hasNext && len(rows) > 0 {
		id, createdAt := key(rows[len(rows)-1])
		next := EncodeCursor(id, createdAt)
		result.NextCursor = &next
	}
	return result
}
