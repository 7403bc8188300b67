package model

import (
	"fmt"
	"strings"
	"time"
)

// Filter selects which todos a list view shows.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
	FilterOverdue   Filter = "overdue"
	FilterDueToday  Filter = "due-today"
)

// Filters lists every filter in display order.
var Filters = []Filter{FilterAll, FilterActive, FilterCompleted, FilterOverdue, FilterDueToday}

func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterActive, FilterCompleted, FilterOverdue, FilterDueToday:
		return f, nil
	case "today":
		return FilterDueToday, nil
	case "done":
		return FilterCompleted, nil
	}
	return "", fmt.Errorf("unknown filter %q", s)
}

// Sort is the creation-time ordering of a list view.
type Sort string

const (
	SortNewest Sort = "newest"
	SortOldest Sort = "oldest"
)

func ParseSort(s string) (Sort, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "newest", "desc":
		return SortNewest, nil
	case "oldest", "asc":
		return SortOldest, nil
	}
	return "", fmt.Errorf("unknown sort %q", s)
}

// Desc reports whether newer items come first.
func (s Sort) Desc() bool { return s != SortOldest }

// Toggle returns the opposite direction.
func (s Sort) Toggle() Sort {
	if s.Desc() {
		return SortOldest
	}
	return SortNewest
}

// ListParams are the query parameters of GET /todos.
type ListParams struct {
	Limit    int    `schema:"limit"`
	Offset   int    `schema:"offset"`
	Search   string `schema:"q,omitempty"`
	Done     *bool  `schema:"is_done,omitempty"`
	Due      string `schema:"due,omitempty"`
	SortDesc bool   `schema:"sort_desc"`
}

// Query is the user-facing part of a list view: what to show and in which order.
type Query struct {
	Search string
	Filter Filter
	Sort   Sort
}

// Params derives the server query for the given 1-based page.
func (q Query) Params(page, pageSize int) ListParams {
	if page < 1 {
		page = 1
	}
	p := ListParams{
		Limit:    pageSize,
		Offset:   (page - 1) * pageSize,
		Search:   strings.TrimSpace(q.Search),
		SortDesc: q.Sort.Desc(),
	}
	switch q.Filter {
	case FilterActive:
		p.Done = boolPtr(false)
	case FilterCompleted:
		p.Done = boolPtr(true)
	case FilterOverdue:
		p.Done = boolPtr(false)
		p.Due = "overdue"
	case FilterDueToday:
		p.Due = "today"
	}
	return p
}

// Matches reports whether t belongs in a list built from q, evaluated at now.
// Search is a case-insensitive substring match on the title, like the server.
func (q Query) Matches(t Todo, now time.Time) bool {
	if s := strings.TrimSpace(q.Search); s != "" &&
		!strings.Contains(strings.ToLower(t.Title), strings.ToLower(s)) {
		return false
	}
	switch q.Filter {
	case FilterActive:
		return !t.Done
	case FilterCompleted:
		return t.Done
	case FilterOverdue:
		return t.Overdue(now)
	case FilterDueToday:
		return t.DueOn(now)
	}
	return true
}

func boolPtr(b bool) *bool { return &b }

// TotalPages is ceil(total/pageSize), never less than 1.
func TotalPages(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}
