// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// PageSize is the default number of rows returned by paged lists.
const PageSize = 50

// MaxPageSize caps the "limit" query parameter.
const MaxPageSize = 200

// ParseStart extracts the human-friendly "start" query parameter (1-based index).
// Returns 1 if not present or invalid.
func ParseStart(r *http.Request) int {
	return parsePositive(query.Get(r, "start"), 1)
}

// ParseLimit extracts the "limit" query parameter, defaulting to PageSize
// and clamped to MaxPageSize.
func ParseLimit(r *http.Request) int {
	n := parsePositive(query.Get(r, "limit"), PageSize)
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

func parsePositive(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// Skip converts a 1-based start into a Mongo skip count.
func Skip(start int) int64 {
	if start < 1 {
		return 0
	}
	return int64(start - 1)
}

// LimitPlusOne returns limit+1 for look-ahead pagination
// (fetch one extra document to detect a next page).
func LimitPlusOne(limit int) int64 { return int64(limit + 1) }

// TrimPage trims a slice fetched with LimitPlusOne back to limit and
// reports whether a next page exists.
func TrimPage[T any](rows *[]T, limit int) bool {
	if len(*rows) > limit {
		*rows = (*rows)[:limit]
		return true
	}
	return false
}

// Range holds the display range of a page and the start values of its
// neighbours.
type Range struct {
	Start     int  `json:"start"` // 0 if no results
	End       int  `json:"end"`   // 0 if no results
	HasPrev   bool `json:"has_prev"`
	HasNext   bool `json:"has_next"`
	PrevStart int  `json:"prev_start"`
	NextStart int  `json:"next_start"`
}

// ComputeRange calculates range values given the current start index,
// the number of rows shown, the page size and whether more rows follow.
func ComputeRange(start, shown, limit int, hasNext bool) Range {
	prevStart := start - limit
	if prevStart < 1 {
		prevStart = 1
	}
	if shown == 0 {
		return Range{HasPrev: start > 1, PrevStart: prevStart, NextStart: start}
	}
	return Range{
		Start:     start,
		End:       start + shown - 1,
		HasPrev:   start > 1,
		HasNext:   hasNext,
		PrevStart: prevStart,
		NextStart: start + shown,
	}
}
