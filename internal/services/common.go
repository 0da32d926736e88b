package services

import (
	"strings"
	"time"

	"github.com/example/blacktie/internal/utils"
)

// Page is one page of a filtered list plus the exact count of all matches.
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

func newPage[T any](items []T, total int64, pg utils.Pagination) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total, Page: pg.Page, Limit: pg.Limit}
}

// containsPattern builds a case-insensitive LIKE pattern; pair it with
// LOWER(column) on the left-hand side.
func containsPattern(v string) string {
	return "%" + strings.ToLower(strings.TrimSpace(v)) + "%"
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// optional trims s and maps blank input to nil for nullable columns.
func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// patchValue is the column value for a provided nullable patch field.
func patchValue(s *string) any {
	if v := optional(s); v != nil {
		return *v
	}
	return nil
}
