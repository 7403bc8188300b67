// Package tui is the interactive terminal front end: a login/register form
// and the paged todo list with optimistic edits.
package tui

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/idilsaglam/todoclient/internal/api"
	"github.com/idilsaglam/todoclient/internal/listview"
	"github.com/idilsaglam/todoclient/internal/session"
)

type Options struct {
	PageSize int
	Debounce time.Duration
	ToastTTL time.Duration
	Now      func() time.Time
	Logger   *slog.Logger
}

type screen int

const (
	screenLoading screen = iota
	screenAuth
	screenList
)

type mode int

const (
	modeNormal mode = iota
	modeAdd
	modeEdit
	modeSearch
	modeConfirmClear
	modeTags
	modeTagAdd
)

type (
	restoredMsg     struct{ err error }
	sessionEndedMsg struct{}
)

// sender forwards messages from background goroutines into the running
// program. All copies of a Model share one.
type sender struct{ p *tea.Program }

func (s *sender) Send(msg tea.Msg) {
	if s == nil || s.p == nil {
		return
	}
	// Never block the caller: it may be the event loop itself.
	go s.p.Send(msg)
}

// Model is the Bubble Tea model of the whole program.
type Model struct {
	sess *session.Session
	opt  Options
	send *sender

	screen        screen
	mode          mode
	width, height int

	auth authForm

	ctrl     *listview.Controller
	view     listview.View
	list     list.Model
	input    textinput.Model
	inputErr string
	editID   int
	tagIndex int

	pager paginator.Model
	spin  spinner.Model
	help  help.Model
	keys  keyMap

	toasts   []toast
	toastSeq int
}

func New(sess *session.Session, opt Options) Model {
	if opt.PageSize <= 0 {
		opt.PageSize = listview.DefaultPageSize
	}
	if opt.ToastTTL <= 0 {
		opt.ToastTTL = defaultToastTTL
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}

	l := list.New(nil, todoDelegate{}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowPagination(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	l.SetStatusBarItemName("todo", "todos")

	in := textinput.New()
	in.Prompt = "> "
	in.CharLimit = 200

	pg := paginator.New()
	pg.Type = paginator.Dots
	pg.ActiveDot = accentStyle.Render("•")
	pg.InactiveDot = mutedStyle.Render("•")

	m := Model{
		sess:   sess,
		opt:    opt,
		send:   &sender{},
		screen: screenLoading,
		width:  80,
		height: 24,
		auth:   newAuthForm(),
		list:   l,
		input:  in,
		pager:  pg,
		spin:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:   help.New(),
		keys:   newKeyMap(),
	}
	send := m.send
	sess.OnChange(func(s session.State) {
		if s == session.Anonymous {
			send.Send(sessionEndedMsg{})
		}
	})
	m.resize()
	return m
}

// Run starts the program on the terminal and blocks until it exits.
func Run(ctx context.Context, sess *session.Session, opt Options) error {
	m := New(sess, opt)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	m.send.p = p
	final, err := p.Run()
	if fm, ok := final.(Model); ok && fm.ctrl != nil {
		fm.ctrl.Close()
	}
	return err
}

func (m Model) Init() tea.Cmd {
	if m.sess.State() != session.Loading {
		return func() tea.Msg { return restoredMsg{} }
	}
	sess := m.sess
	return tea.Batch(m.spin.Tick, func() tea.Msg {
		return restoredMsg{err: sess.Restore(context.Background())}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if m.screen != screenLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case toastExpiredMsg:
		m.dropToast(msg.id)
		return m, nil

	case restoredMsg:
		if m.sess.State() == session.Authenticated {
			return m.enterList()
		}
		m.screen = screenAuth
		cmd := m.auth.reset()
		if msg.err != nil && !errors.Is(msg.err, api.ErrUnauthorized) {
			cmd = tea.Batch(cmd, m.toast(toastError, "Could not restore session: "+api.Message(msg.err)))
		}
		return m, cmd

	case sessionEndedMsg:
		// Late delivery after an explicit logout or a new login.
		if m.ctrl == nil || m.sess.State() == session.Authenticated {
			return m, nil
		}
		return m.sessionExpired()
	}

	switch m.screen {
	case screenAuth:
		return m.updateAuth(msg)
	case screenList:
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) enterList() (Model, tea.Cmd) {
	send := m.send
	var ctrl *listview.Controller
	ctrl = listview.New(m.sess.Client(), listview.Options{
		PageSize:       m.opt.PageSize,
		Debounce:       m.opt.Debounce,
		Now:            m.opt.Now,
		Logger:         m.opt.Logger,
		OnUnauthorized: m.sess.Expire,
		OnRefresh: func(err error) {
			send.Send(refreshedMsg{from: ctrl, err: err})
		},
	})
	m.ctrl = ctrl
	m.screen = screenList
	m.mode = modeNormal
	m.auth.busy = false
	m.sync()
	return m, tea.Batch(fetchCmd(ctrl), loadTagsCmd(ctrl))
}

// leaveList drops the list state and shows the login form.
func (m *Model) leaveList() tea.Cmd {
	if m.ctrl != nil {
		m.ctrl.Close()
		m.ctrl = nil
	}
	m.view = listview.View{}
	m.list.SetItems(nil)
	m.input.Blur()
	m.mode = modeNormal
	m.screen = screenAuth
	return m.auth.reset()
}

func (m Model) sessionExpired() (Model, tea.Cmd) {
	cmd := m.leaveList()
	cmd = tea.Batch(cmd, m.toast(toastError, "Your session has expired. Please log in again."))
	return m, cmd
}

func (m *Model) resize() {
	m.help.Width = m.width
	// header, filter bar, pager, input, help, toasts and the frame
	m.list.SetSize(max(m.width-4, 20), max(m.height-14, m.opt.PageSize))
}

func (m Model) View() string {
	switch m.screen {
	case screenLoading:
		return panelString(m.spin.View() + " Restoring session…")
	case screenAuth:
		return m.authView()
	}
	return lipgloss.JoinVertical(lipgloss.Left, panelString(m.listView()), m.toastView())
}
