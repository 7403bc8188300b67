package tui

import (
	"slices"
	"strings"
	"time"

	"github.com/idilsaglam/todoclient/internal/model"
)

// quickEntry is the parsed text of the add/edit line:
//
//	buy milk #home due:tomorrow
//
// "#name" attaches a known tag, "due:<when>" sets the due date and
// "due:none" clears it. Anything else is part of the title.
type quickEntry struct {
	Title    string
	TagIDs   []int
	Due      *time.Time
	ClearDue bool
	Err      string
}

func parseQuick(text string, known []model.Tag, now time.Time) quickEntry {
	var q quickEntry
	var words []string
	for _, w := range strings.Fields(text) {
		lw := strings.ToLower(w)
		switch {
		case strings.HasPrefix(w, "#") && len(w) > 1:
			if tg, ok := findTag(known, w[1:]); ok {
				if !slices.Contains(q.TagIDs, tg.ID) {
					q.TagIDs = append(q.TagIDs, tg.ID)
				}
				continue
			}
			words = append(words, w)
		case strings.HasPrefix(lw, "due:"):
			v := lw[len("due:"):]
			if v == "none" || v == "" {
				q.ClearDue = true
				q.Due = nil
				continue
			}
			d, err := model.ParseDue(v, now)
			if err != nil {
				q.Err = err.Error()
				continue
			}
			q.Due, q.ClearDue = &d, false
		default:
			words = append(words, w)
		}
	}
	q.Title = strings.Join(words, " ")
	return q
}

func findTag(known []model.Tag, name string) (model.Tag, bool) {
	for _, tg := range known {
		if strings.EqualFold(tg.Name, name) {
			return tg, true
		}
	}
	return model.Tag{}, false
}

// quickText is the inverse of parseQuick, used to prefill the edit line.
func quickText(t model.Todo, loc *time.Location) string {
	parts := []string{t.Title}
	for _, tg := range t.Tags {
		if tg.Name != "" {
			parts = append(parts, "#"+tg.Name)
		}
	}
	if t.DueDate != nil {
		parts = append(parts, "due:"+model.FormatDue(*t.DueDate, loc))
	}
	return strings.Join(parts, " ")
}

func (q quickEntry) input() model.TodoInput {
	return model.TodoInput{Title: q.Title, DueDate: q.Due, TagIDs: q.TagIDs}
}

// patch diffs the entry against the current todo. Removing the due token
// or every tag token clears them.
func (q quickEntry) patch(cur model.Todo, loc *time.Location) model.TodoPatch {
	var p model.TodoPatch
	if q.Title != cur.Title {
		title := q.Title
		p.Title = &title
	}
	if !slices.Equal(q.TagIDs, cur.TagIDs()) {
		ids := append([]int{}, q.TagIDs...)
		p.TagIDs = &ids
	}
	switch {
	case q.Due != nil:
		if cur.DueDate == nil || model.FormatDue(*cur.DueDate, loc) != model.FormatDue(*q.Due, loc) {
			p.DueDate = q.Due
		}
	case cur.DueDate != nil:
		p.ClearDueDate = true
	}
	return p
}
