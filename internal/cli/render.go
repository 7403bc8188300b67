package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/idilsaglam/todoclient/internal/model"
	"github.com/idilsaglam/todoclient/internal/ui"
)

// listing is one fetched page plus what is needed to describe it.
type listing struct {
	page  model.TodoPage
	query model.Query
	num   int
	size  int
	group bool
	now   time.Time
}

func renderList(w io.Writer, l listing) {
	th := ui.Current()
	items := l.page.Items

	// Header + progress
	d, p := stats(items)
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		ui.C(th.Title, "Todos"),
		ui.C(th.Success, th.SymDone), d,
		ui.C(th.Pending, th.SymUnchecked), p,
		ui.C(th.Accent, "Total"), l.page.Total,
	)
	if l.query.Filter != model.FilterAll || l.query.Search != "" {
		header += "  " + ui.C(th.Muted, filterLabel(l.query))
	}

	var lines []string
	lines = append(lines, header)
	lines = append(lines, ui.C(th.Muted, ui.ProgressBar(d, d+p, 28)))
	lines = append(lines, "")

	if l.group {
		lines = append(lines, groupLines(items, l.now)...)
	} else {
		lines = append(lines, flatLines(items, l.now)...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(th.Muted, pageLabel(l)))
	if l.num < model.TotalPages(l.page.Total, l.size) {
		lines = append(lines, ui.C(th.Muted, fmt.Sprintf("Next: `todo ls --page %d`", l.num+1)))
	} else if l.page.Total == 0 {
		lines = append(lines, ui.C(th.Muted, "Tip: add with `todo add \"Buy milk\"`"))
	}
	ui.Panel(w, lines)
}

func filterLabel(q model.Query) string {
	s := "filter: " + string(q.Filter)
	if q.Search != "" {
		s += fmt.Sprintf("  search: %q", q.Search)
	}
	return s
}

func pageLabel(l listing) string {
	pages := model.TotalPages(l.page.Total, l.size)
	if len(l.page.Items) == 0 {
		return fmt.Sprintf("page %d of %d", l.num, pages)
	}
	from := (l.num-1)*l.size + 1
	return fmt.Sprintf("page %d of %d  (%d-%d of %d)", l.num, pages, from, from+len(l.page.Items)-1, l.page.Total)
}

func stats(items []model.Todo) (done, pending int) {
	for _, it := range items {
		if it.Done {
			done++
		} else {
			pending++
		}
	}
	return
}

func flatLines(items []model.Todo, now time.Time) []string {
	th := ui.Current()
	if len(items) == 0 {
		return []string{ui.C(th.Muted, "no todos")}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		box, color := th.BoxUnchecked, th.Muted
		if it.Done {
			box, color = th.BoxChecked, th.Success
		}
		line := fmt.Sprintf("%s %s %s",
			ui.Dim(fmt.Sprintf("%4s", fmt.Sprintf("#%d", it.ID))), ui.C(color, box), ui.Truncate(it.Title, 60))
		if it.DueDate != nil {
			due := th.SymDue + " " + model.FormatDue(*it.DueDate, now.Location())
			if it.Overdue(now) {
				line += "  " + ui.C(th.Error, due+" overdue")
			} else {
				line += "  " + ui.C(th.Muted, due)
			}
		}
		if len(it.Tags) > 0 {
			line += "  " + ui.Tags(it.Tags)
		}
		out = append(out, line)
	}
	return out
}

func groupLines(items []model.Todo, now time.Time) []string {
	th := ui.Current()
	var pend, done []model.Todo
	for _, it := range items {
		if it.Done {
			done = append(done, it)
		} else {
			pend = append(pend, it)
		}
	}
	var lines []string
	lines = append(lines, ui.C(th.Accent, "Pending"))
	if len(pend) == 0 {
		lines = append(lines, ui.C(th.Muted, "(none)"))
	} else {
		lines = append(lines, flatLines(pend, now)...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(th.Accent, "Done"))
	if len(done) == 0 {
		lines = append(lines, ui.C(th.Muted, "(none)"))
	} else {
		lines = append(lines, flatLines(done, now)...)
	}
	return lines
}
