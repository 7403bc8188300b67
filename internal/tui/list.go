package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/idilsaglam/todoclient/internal/api"
	"github.com/idilsaglam/todoclient/internal/listview"
	"github.com/idilsaglam/todoclient/internal/model"
)

// Results of background work. from names the controller that started it;
// results from a controller of an earlier session are dropped.
type (
	pageLoadedMsg struct {
		from *listview.Controller
		err  error
	}
	refreshedMsg struct {
		from *listview.Controller
		err  error
	}
	mutationDoneMsg struct {
		from    *listview.Controller
		err     error
		success string
	}
	tagsLoadedMsg struct {
		from *listview.Controller
		err  error
	}
	tagDoneMsg struct {
		from    *listview.Controller
		err     error
		success string
	}
)

func fetchCmd(c *listview.Controller) tea.Cmd {
	return func() tea.Msg {
		return pageLoadedMsg{from: c, err: c.Fetch(context.Background())}
	}
}

func loadTagsCmd(c *listview.Controller) tea.Cmd {
	return func() tea.Msg {
		return tagsLoadedMsg{from: c, err: c.Tags().Load(context.Background())}
	}
}

func waitCmd(c *listview.Controller, p *listview.Pending, success string) tea.Cmd {
	return func() tea.Msg {
		return mutationDoneMsg{from: c, err: p.Wait(context.Background()), success: success}
	}
}

// sync copies the controller's view into the list widget.
func (m *Model) sync() {
	if m.ctrl == nil {
		return
	}
	m.view = m.ctrl.View()
	now := m.opt.Now()
	items := make([]list.Item, len(m.view.Items))
	for i, t := range m.view.Items {
		items[i] = todoItem{todo: t, now: now}
	}
	idx := m.list.Index()
	m.list.SetItems(items)
	if idx >= len(items) {
		idx = len(items) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}
	m.pager.TotalPages = m.view.TotalPages()
	m.pager.Page = m.view.Page - 1
}

func (m Model) selected() (model.Todo, bool) {
	it, ok := m.list.SelectedItem().(todoItem)
	if !ok {
		return model.Todo{}, false
	}
	return it.todo, true
}

func (m Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case pageLoadedMsg:
		if msg.from != m.ctrl {
			return m, nil
		}
		m.sync()
		if msg.err != nil {
			return m.apiError(msg.err)
		}
	case refreshedMsg:
		if msg.from != m.ctrl {
			return m, nil
		}
		m.sync()
		if msg.err != nil {
			return m.apiError(msg.err)
		}
	case mutationDoneMsg:
		if msg.from != m.ctrl {
			return m, nil
		}
		m.sync()
		if msg.err != nil {
			return m.apiError(msg.err)
		}
		if msg.success != "" {
			cmd = m.toast(toastSuccess, msg.success)
		}
	case tagsLoadedMsg:
		if msg.from != m.ctrl {
			return m, nil
		}
		if msg.err != nil {
			return m.apiError(msg.err)
		}
	case tagDoneMsg:
		if msg.from != m.ctrl {
			return m, nil
		}
		m.tagIndex = min(m.tagIndex, max(len(m.ctrl.Tags().List())-1, 0))
		if msg.err != nil {
			return m.apiError(msg.err)
		}
		// A renamed or deleted tag changes how todos render.
		cmd = tea.Batch(fetchCmd(m.ctrl), m.toast(toastSuccess, msg.success))
	case tea.KeyMsg:
		switch m.mode {
		case modeAdd, modeEdit:
			return m.updateInput(msg)
		case modeSearch:
			return m.updateSearch(msg)
		case modeConfirmClear:
			return m.updateConfirmClear(msg)
		case modeTags:
			return m.updateTags(msg)
		case modeTagAdd:
			return m.updateTagInput(msg)
		}
		return m.handleKey(msg)
	}
	return m, cmd
}

// apiError reports a failed call. A 401 ends the session.
func (m Model) apiError(err error) (Model, tea.Cmd) {
	if errors.Is(err, api.ErrUnauthorized) {
		return m.sessionExpired()
	}
	text := api.Message(err)
	var me *listview.MutationError
	if errors.As(err, &me) {
		text = me.Message()
	}
	cmd := m.toast(toastError, text)
	return m, cmd
}

// start shows an optimistic change and sends it.
func (m Model) start(p *listview.Pending, err error, success string) (Model, tea.Cmd) {
	if err != nil {
		cmd := m.toast(toastError, api.Message(err))
		return m, cmd
	}
	m.sync()
	return m, waitCmd(m.ctrl, p, success)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit

	case key.Matches(msg, k.Toggle):
		if t, ok := m.selected(); ok {
			p, err := m.ctrl.StartToggle(t.ID)
			return m.start(p, err, "")
		}

	case key.Matches(msg, k.Delete):
		if t, ok := m.selected(); ok {
			p, err := m.ctrl.StartDelete(t.ID)
			return m.start(p, err, "Todo deleted")
		}

	case key.Matches(msg, k.Add):
		m.mode = modeAdd
		m.inputErr = ""
		m.input.Reset()
		m.input.Placeholder = "What needs doing?  #tag  due:tomorrow"
		cmd := m.input.Focus()
		return m, cmd

	case key.Matches(msg, k.Edit):
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		if t.Placeholder() {
			cmd := m.toast(toastInfo, "Still saving, try again in a moment.")
			return m, cmd
		}
		m.mode = modeEdit
		m.editID = t.ID
		m.inputErr = ""
		m.input.SetValue(quickText(t, m.opt.Now().Location()))
		m.input.CursorEnd()
		m.input.Placeholder = "Title  #tag  due:YYYY-MM-DD  (due:none clears)"
		cmd := m.input.Focus()
		return m, cmd

	case key.Matches(msg, k.Search):
		m.mode = modeSearch
		m.input.SetValue(m.view.Search)
		m.input.CursorEnd()
		m.input.Placeholder = "search titles"
		cmd := m.input.Focus()
		return m, cmd

	case key.Matches(msg, k.Filter):
		i := slices.Index(model.Filters, m.view.Query.Filter)
		m.ctrl.SetFilter(model.Filters[(i+1)%len(model.Filters)])
		m.sync()

	case key.Matches(msg, k.Sort):
		m.ctrl.SetSort(m.view.Query.Sort.Toggle())
		m.sync()

	case key.Matches(msg, k.PrevPage):
		m.ctrl.PrevPage()
		m.sync()

	case key.Matches(msg, k.NextPage):
		m.ctrl.NextPage()
		m.sync()

	case key.Matches(msg, k.Clear):
		m.mode = modeConfirmClear

	case key.Matches(msg, k.Tags):
		m.mode = modeTags
		m.tagIndex = 0

	case key.Matches(msg, k.Reload):
		return m, fetchCmd(m.ctrl)

	case key.Matches(msg, k.Logout):
		m.sess.Logout()
		cmd := m.leaveList()
		cmd = tea.Batch(cmd, m.toast(toastInfo, "Logged out"))
		return m, cmd

	case key.Matches(msg, k.Help):
		m.help.ShowAll = !m.help.ShowAll

	default:
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) closeInput() Model {
	m.mode = modeNormal
	m.inputErr = ""
	m.input.Blur()
	m.input.Reset()
	return m
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.closeInput(), nil
	case "enter":
		now := m.opt.Now()
		q := parseQuick(m.input.Value(), m.ctrl.Tags().List(), now)
		if q.Err != "" {
			m.inputErr = q.Err
			return m, nil
		}
		var (
			p       *listview.Pending
			err     error
			success string
		)
		if m.mode == modeAdd {
			p, err = m.ctrl.StartAdd(q.input())
			success = "Todo added"
		} else {
			t, ok := m.current(m.editID)
			if !ok {
				m = m.closeInput()
				cmd := m.toast(toastError, "That todo is no longer on this page.")
				return m, cmd
			}
			p, err = m.ctrl.StartEdit(m.editID, q.patch(t, now.Location()))
		}
		if err != nil {
			// Keep the line open so the text can be fixed.
			m.inputErr = api.Message(err)
			return m, nil
		}
		m = m.closeInput()
		m.sync()
		return m, waitCmd(m.ctrl, p, success)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) current(id int) (model.Todo, bool) {
	for _, t := range m.view.Items {
		if t.ID == id {
			return t, true
		}
	}
	return model.Todo{}, false
}

// updateSearch feeds every keystroke to the debounced search. Enter applies
// it at once; esc clears it.
func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.ctrl.FlushSearch()
		m.mode = modeNormal
		m.input.Blur()
		m.sync()
		return m, nil
	case "esc":
		m.ctrl.SetSearch("")
		m.ctrl.FlushSearch()
		m = m.closeInput()
		m.sync()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.ctrl.SetSearch(m.input.Value())
	m.sync()
	return m, cmd
}

func (m Model) updateConfirmClear(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = modeNormal
	if s := msg.String(); s != "y" && s != "Y" {
		return m, nil
	}
	p := m.ctrl.StartClearCompleted()
	return m.start(p, nil, "Completed todos cleared")
}

func (m Model) header() string {
	v := m.view
	done := 0
	for _, t := range v.Items {
		if t.Done {
			done++
		}
	}
	h := fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		titleStyle.Render("Todos"),
		successStyle.Render("✔"), done,
		pendingStyle.Render("•"), len(v.Items)-done,
		accentStyle.Render("Total"), v.Total,
	)
	if u := m.sess.User(); u != nil {
		h += "   " + mutedStyle.Render(u.Email)
	}
	if v.Fetching {
		h += "  " + mutedStyle.Render("loading…")
	}
	return h
}

func (m Model) filterBar() string {
	tabs := make([]string, len(model.Filters))
	for i, f := range model.Filters {
		if f == m.view.Query.Filter {
			tabs[i] = activeTab.Render(string(f))
		} else {
			tabs[i] = mutedStyle.Render(string(f))
		}
	}
	bar := strings.Join(tabs, "  ") + "   " + mutedStyle.Render("sort: ") + string(m.view.Query.Sort)
	if m.view.Search != "" && m.mode != modeSearch {
		bar += "   " + mutedStyle.Render("search: ") + m.view.Search
	}
	return bar
}

func (m Model) pagerLine() string {
	v := m.view
	if v.Total == 0 {
		return mutedStyle.Render("page 1 of 1")
	}
	from := (v.Page-1)*v.PageSize + 1
	to := from + len(v.Items) - 1
	line := fmt.Sprintf("page %d of %d  (%d-%d of %d)", v.Page, v.TotalPages(), from, max(to, from), v.Total)
	if v.TotalPages() > 1 {
		line = m.pager.View() + "  " + line
	}
	return mutedStyle.Render(line)
}

func (m Model) detail() string {
	t, ok := m.selected()
	if !ok || strings.TrimSpace(t.Description) == "" {
		return ""
	}
	return renderMarkdown(t.Description, m.width-8)
}

func (m Model) listView() string {
	parts := []string{m.header(), m.filterBar(), ""}

	if m.view.Loaded && len(m.view.Items) == 0 {
		empty := "Nothing here. Press a to add a todo."
		if m.view.Query.Search != "" || m.view.Query.Filter != model.FilterAll {
			empty = "No todos match the current filter."
		}
		parts = append(parts, mutedStyle.Render(empty))
	} else {
		parts = append(parts, m.list.View())
	}
	parts = append(parts, "", m.pagerLine())

	if d := m.detail(); d != "" && m.mode == modeNormal {
		parts = append(parts, "", d)
	}

	switch m.mode {
	case modeAdd, modeEdit, modeSearch:
		title := map[mode]string{modeAdd: "Add todo", modeEdit: "Edit todo", modeSearch: "Search"}[m.mode]
		if m.inputErr != "" {
			title += "  " + errorStyle.Render(m.inputErr)
		}
		parts = append(parts, panelString(title+"\n"+m.input.View()))
	case modeConfirmClear:
		parts = append(parts, pendingStyle.Render("Delete all completed todos? (y/n)"))
	case modeTags, modeTagAdd:
		parts = append(parts, m.tagsView())
	}

	parts = append(parts, "", helpStyle.Render(m.help.View(m.keys)))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
