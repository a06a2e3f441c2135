package core

import "time"

// Tag is an administrative label managed through the /api/tags endpoints.
type Tag struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TagInput carries the mutable fields of a tag.
type TagInput struct {
	Name        string
	Description string
}

// TagQuery selects a page of tags.
type TagQuery struct {
	Page     int
	PageSize int
	Name     string // substring filter, case-insensitive
}

// Offset returns the row offset of the page.
func (q TagQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}
