package model

import (
	"fmt"
	"strings"
	"time"
)

// DueLayout is the date form accepted and printed for due dates.
const DueLayout = "2006-01-02"

// ParseDue reads a due date relative to now. Plain dates mean the end of
// that day in now's location, so a todo due today is not overdue until
// midnight. Accepted: "today", "tomorrow", "+Nd", YYYY-MM-DD and RFC 3339.
func ParseDue(s string, now time.Time) (time.Time, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	endOfDay := func(t time.Time) time.Time {
		y, m, d := t.Date()
		return time.Date(y, m, d, 23, 59, 59, 0, now.Location())
	}
	switch {
	case s == "today":
		return endOfDay(now), nil
	case s == "tomorrow":
		return endOfDay(now.AddDate(0, 0, 1)), nil
	case strings.HasPrefix(s, "+") && strings.HasSuffix(s, "d"):
		var n int
		if _, err := fmt.Sscanf(s, "+%dd", &n); err != nil || n < 0 {
			return time.Time{}, fmt.Errorf("invalid due date %q", s)
		}
		return endOfDay(now.AddDate(0, 0, n)), nil
	}
	if d, err := time.ParseInLocation(DueLayout, s, now.Location()); err == nil {
		return endOfDay(d), nil
	}
	if t, err := time.Parse(time.RFC3339, strings.ToUpper(s)); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid due date %q (want YYYY-MM-DD, today, tomorrow or +Nd)", s)
}

// FormatDue prints a due date as a calendar day in loc.
func FormatDue(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DueLayout)
}
