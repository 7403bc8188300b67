package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/todoclient/internal/model"
)

// todoItem adapts a todo to bubbles/list.Item.
type todoItem struct {
	todo model.Todo
	now  time.Time
}

func (i todoItem) FilterValue() string { return i.todo.Title }

// todoDelegate renders one todo per line: box, title, due date and tags.
type todoDelegate struct{}

func (d todoDelegate) Height() int                               { return 1 }
func (d todoDelegate) Spacing() int                              { return 0 }
func (d todoDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d todoDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(todoItem)
	if !ok {
		return
	}
	t := it.todo

	box := mutedStyle.Render(boxUnchecked)
	title := t.Title
	switch {
	case t.Placeholder():
		title = savingStyle.Render(title + " (saving…)")
	case t.Done:
		box = successStyle.Render(boxChecked)
		title = doneStyle.Render(title)
	}

	parts := []string{box, title}
	if t.DueDate != nil {
		due := "due " + model.FormatDue(*t.DueDate, it.now.Location())
		if t.Overdue(it.now) {
			parts = append(parts, overdueStyle.Render(due+" (overdue)"))
		} else {
			parts = append(parts, mutedStyle.Render(due))
		}
	}
	for _, tg := range t.Tags {
		parts = append(parts, tagChip(tg))
	}

	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprint(w, prefix+strings.Join(parts, " "))
}
