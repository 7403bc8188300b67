package tui

import (
	"slices"
	"testing"
	"time"

	"github.com/idilsaglam/todoclient/internal/model"
)

var quickNow = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

func TestParseQuick(t *testing.T) {
	known := []model.Tag{{ID: 1, Name: "home"}, {ID: 2, Name: "Work"}}
	tomorrow := time.Date(2024, 3, 11, 23, 59, 59, 0, time.UTC)

	tests := []struct {
		text     string
		title    string
		tags     []int
		due      *time.Time
		clearDue bool
		err      bool
	}{
		{text: "buy milk", title: "buy milk"},
		{text: "  buy   milk  ", title: "buy milk"},
		{text: "buy milk #home #work #home", title: "buy milk", tags: []int{1, 2}},
		{text: "fix #bug now", title: "fix #bug now"},
		{text: "call mom due:tomorrow", title: "call mom", due: &tomorrow},
		{text: "call mom DUE:2024-03-11", title: "call mom", due: &tomorrow},
		{text: "call mom due:none", title: "call mom", clearDue: true},
		{text: "call mom due:someday", title: "call mom", err: true},
		{text: "# alone", title: "# alone"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			q := parseQuick(tt.text, known, quickNow)
			if q.Title != tt.title {
				t.Errorf("title = %q, want %q", q.Title, tt.title)
			}
			if !slices.Equal(q.TagIDs, tt.tags) {
				t.Errorf("tags = %v, want %v", q.TagIDs, tt.tags)
			}
			if (q.Err != "") != tt.err {
				t.Errorf("err = %q", q.Err)
			}
			if q.ClearDue != tt.clearDue {
				t.Errorf("clearDue = %v", q.ClearDue)
			}
			switch {
			case tt.due == nil && q.Due != nil:
				t.Errorf("due = %v, want none", q.Due)
			case tt.due != nil && (q.Due == nil || !q.Due.Equal(*tt.due)):
				t.Errorf("due = %v, want %v", q.Due, tt.due)
			}
		})
	}
}

func TestQuickTextRoundTrip(t *testing.T) {
	due := time.Date(2024, 3, 12, 23, 59, 59, 0, time.UTC)
	todo := model.Todo{ID: 4, Title: "plan trip", DueDate: &due, Tags: []model.Tag{{ID: 2, Name: "work"}}}

	text := quickText(todo, time.UTC)
	if text != "plan trip #work due:2024-03-12" {
		t.Fatalf("quickText = %q", text)
	}
	q := parseQuick(text, todo.Tags, quickNow)
	if p := q.patch(todo, time.UTC); !p.Empty() {
		t.Fatalf("unchanged text produced a patch: %+v", p)
	}
}

func TestQuickPatch(t *testing.T) {
	due := time.Date(2024, 3, 12, 23, 59, 59, 0, time.UTC)
	cur := model.Todo{ID: 4, Title: "plan trip", DueDate: &due, Tags: []model.Tag{{ID: 2, Name: "work"}}}
	known := []model.Tag{{ID: 1, Name: "home"}, {ID: 2, Name: "work"}}

	p := parseQuick("plan the trip #home", known, quickNow).patch(cur, time.UTC)
	if p.Title == nil || *p.Title != "plan the trip" {
		t.Errorf("title = %v", p.Title)
	}
	if p.TagIDs == nil || !slices.Equal(*p.TagIDs, []int{1}) {
		t.Errorf("tags = %v", p.TagIDs)
	}
	if !p.ClearDueDate || p.DueDate != nil {
		t.Errorf("dropping the due token should clear it: %+v", p)
	}

	p = parseQuick("plan trip #work due:+3d", known, quickNow).patch(cur, time.UTC)
	if p.Title != nil || p.TagIDs != nil || p.ClearDueDate {
		t.Errorf("unexpected fields: %+v", p)
	}
	if p.DueDate == nil || model.FormatDue(*p.DueDate, time.UTC) != "2024-03-13" {
		t.Errorf("due = %v", p.DueDate)
	}

	p = parseQuick("plan trip", known, quickNow).patch(model.Todo{ID: 5, Title: "plan trip", Tags: cur.Tags}, time.UTC)
	if p.TagIDs == nil || len(*p.TagIDs) != 0 {
		t.Errorf("removing every tag should send an empty list: %v", p.TagIDs)
	}
}
