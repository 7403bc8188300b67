package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/idilsaglam/todoclient/internal/api"
	"github.com/idilsaglam/todoclient/internal/model"
	"github.com/idilsaglam/todoclient/internal/session"
)

// authForm is the login/register screen. Register adds a confirmation field.
type authForm struct {
	register bool
	inputs   []textinput.Model // email, password, confirm
	focus    int
	err      string
	busy     bool
}

const (
	fieldEmail = iota
	fieldPassword
	fieldConfirm
)

func newAuthForm() authForm {
	f := authForm{inputs: make([]textinput.Model, 3)}
	for i := range f.inputs {
		ti := textinput.New()
		ti.CharLimit = 128
		ti.Prompt = "  "
		switch i {
		case fieldEmail:
			ti.Placeholder = "you@example.com"
		case fieldPassword:
			ti.Placeholder = "password"
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		case fieldConfirm:
			ti.Placeholder = "repeat password"
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		f.inputs[i] = ti
	}
	return f
}

func (f authForm) fields() int {
	if f.register {
		return 3
	}
	return 2
}

func (f *authForm) focusField(i int) tea.Cmd {
	f.focus = i
	var cmd tea.Cmd
	for j := range f.inputs {
		if j == i {
			cmd = f.inputs[j].Focus()
			f.inputs[j].Prompt = "> "
		} else {
			f.inputs[j].Blur()
			f.inputs[j].Prompt = "  "
		}
	}
	return cmd
}

// reset clears the secrets and keeps the email.
func (f *authForm) reset() tea.Cmd {
	f.inputs[fieldPassword].Reset()
	f.inputs[fieldConfirm].Reset()
	f.err = ""
	f.busy = false
	if strings.TrimSpace(f.inputs[fieldEmail].Value()) == "" {
		return f.focusField(fieldEmail)
	}
	return f.focusField(fieldPassword)
}

type loginDoneMsg struct{ err error }

type registerDoneMsg struct {
	user model.User
	err  error
}

func loginCmd(s *session.Session, email, password string) tea.Cmd {
	return func() tea.Msg {
		return loginDoneMsg{err: s.Login(context.Background(), email, password)}
	}
}

func registerCmd(s *session.Session, email, password, confirm string) tea.Cmd {
	return func() tea.Msg {
		u, err := s.Register(context.Background(), email, password, confirm)
		return registerDoneMsg{user: u, err: err}
	}
}

func (m Model) updateAuth(msg tea.Msg) (tea.Model, tea.Cmd) {
	f := &m.auth
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case loginDoneMsg:
		f.busy = false
		if msg.err == nil {
			return m.enterList()
		}
		f.err = authMessage(msg.err)
		f.inputs[fieldPassword].Reset()
		cmd = f.focusField(fieldPassword)

	case registerDoneMsg:
		f.busy = false
		if msg.err != nil {
			f.err = authMessage(msg.err)
			break
		}
		f.register = false
		f.inputs[fieldEmail].SetValue(msg.user.Email)
		cmd = tea.Batch(f.reset(), m.toast(toastSuccess, "Account created. Please log in."))

	case tea.KeyMsg:
		if f.busy {
			break
		}
		switch msg.String() {
		case "esc":
			cmd = tea.Quit
		case "ctrl+r":
			f.register = !f.register
			f.err = ""
			cmd = f.focusField(min(f.focus, f.fields()-1))
		case "tab", "down":
			cmd = f.focusField((f.focus + 1) % f.fields())
		case "shift+tab", "up":
			cmd = f.focusField((f.focus + f.fields() - 1) % f.fields())
		case "enter":
			if f.focus < f.fields()-1 {
				cmd = f.focusField(f.focus + 1)
				break
			}
			f.err = ""
			f.busy = true
			email := f.inputs[fieldEmail].Value()
			pw := f.inputs[fieldPassword].Value()
			if f.register {
				cmd = registerCmd(m.sess, email, pw, f.inputs[fieldConfirm].Value())
			} else {
				cmd = loginCmd(m.sess, email, pw)
			}
		default:
			f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
		}

	default:
		f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	}
	return m, cmd
}

func authMessage(err error) string {
	if errors.Is(err, session.ErrInvalidCredentials) {
		return "Incorrect email or password."
	}
	return api.Message(err)
}

func (m Model) authView() string {
	f := m.auth
	heading := "Log in"
	if f.register {
		heading = "Create account"
	}
	labels := []string{"Email", "Password", "Confirm password"}
	var b strings.Builder
	b.WriteString(titleStyle.Render(heading) + "\n\n")
	for i := 0; i < f.fields(); i++ {
		b.WriteString(mutedStyle.Render(labels[i]) + "\n")
		b.WriteString(f.inputs[i].View() + "\n")
	}
	if f.err != "" {
		b.WriteString("\n" + errorStyle.Render(f.err) + "\n")
	}
	if f.busy {
		b.WriteString("\n" + mutedStyle.Render("Please wait…") + "\n")
	}
	switchTo := "register"
	if f.register {
		switchTo = "log in"
	}
	b.WriteString("\n" + helpStyle.Render("tab next field • enter submit • ctrl+r "+switchTo+" • esc quit"))
	return lipgloss.JoinVertical(lipgloss.Left, panelString(b.String()), m.toastView())
}
