package database

import "fmt"

const (
	DefaultPageSize = 50
	MaxPageSize     = 1000
)

// ClampPage bounds limit and offset to sane values
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// BuildPaginationClause renders a LIMIT/OFFSET suffix for bounded values
func BuildPaginationClause(limit, offset int) string {
	limit, offset = ClampPage(limit, offset)
	return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
}
