package tui

import (
	"context"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/todoclient/internal/model"
)

// Tag panel keys: j/k move, enter attaches or detaches the tag on the
// selected todo, n creates a tag, x deletes one, esc closes.
func (m Model) updateTags(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	tags := m.ctrl.Tags().List()
	switch msg.String() {
	case "esc", "t", "q":
		m.mode = modeNormal
	case "up", "k":
		m.tagIndex = max(m.tagIndex-1, 0)
	case "down", "j":
		m.tagIndex = min(m.tagIndex+1, max(len(tags)-1, 0))
	case "n":
		m.mode = modeTagAdd
		m.inputErr = ""
		m.input.Reset()
		m.input.Placeholder = "tag name"
		cmd := m.input.Focus()
		return m, cmd
	case "x", "d":
		if m.tagIndex >= len(tags) {
			return m, nil
		}
		tg, ctrl := tags[m.tagIndex], m.ctrl
		return m, tagCmd(m, "Tag deleted", func(ctx context.Context) error {
			return ctrl.Tags().Delete(ctx, tg.ID)
		})
	case "enter", " ":
		if m.tagIndex >= len(tags) {
			return m, nil
		}
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		ids := t.TagIDs()
		if i := slices.Index(ids, tags[m.tagIndex].ID); i >= 0 {
			ids = slices.Delete(ids, i, i+1)
		} else {
			ids = append(ids, tags[m.tagIndex].ID)
		}
		if ids == nil {
			ids = []int{}
		}
		p, err := m.ctrl.StartEdit(t.ID, model.TodoPatch{TagIDs: &ids})
		return m.start(p, err, "")
	}
	return m, nil
}

func tagCmd(m Model, success string, fn func(ctx context.Context) error) tea.Cmd {
	c := m.ctrl
	return func() tea.Msg {
		return tagDoneMsg{from: c, err: fn(context.Background()), success: success}
	}
}

func (m Model) updateTagInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m = m.closeInput()
		m.mode = modeTags
		return m, nil
	case "enter":
		name := strings.TrimSpace(m.input.Value())
		if name == "" {
			m.inputErr = "name is required"
			return m, nil
		}
		if _, dup := m.ctrl.Tags().Find(name); dup {
			m.inputErr = "a tag with that name exists"
			return m, nil
		}
		// Colors rotate through the palette in creation order.
		color := model.TagPalette[len(m.ctrl.Tags().List())%len(model.TagPalette)]
		ctrl := m.ctrl
		m = m.closeInput()
		m.mode = modeTags
		return m, tagCmd(m, "Tag created", func(ctx context.Context) error {
			_, err := ctrl.Tags().Create(ctx, name, color)
			return err
		})
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) tagsView() string {
	tags := m.ctrl.Tags().List()
	var b strings.Builder
	b.WriteString(titleStyle.Render("Tags") + "\n")
	if len(tags) == 0 {
		b.WriteString(mutedStyle.Render("no tags yet") + "\n")
	}
	cur, _ := m.selected()
	for i, tg := range tags {
		prefix := "  "
		if i == m.tagIndex {
			prefix = selectedStyle.Render("> ")
		}
		mark := " "
		if slices.Contains(cur.TagIDs(), tg.ID) {
			mark = "✔"
		}
		b.WriteString(prefix + mark + " " + tagChip(tg) + "\n")
	}
	if m.mode == modeTagAdd {
		line := m.input.View()
		if m.inputErr != "" {
			line += "  " + errorStyle.Render(m.inputErr)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString(helpStyle.Render("enter attach/detach • n new • x delete • esc close"))
	return panelString(b.String())
}
