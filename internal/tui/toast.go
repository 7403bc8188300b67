package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const defaultToastTTL = 3 * time.Second

type toastKind int

const (
	toastInfo toastKind = iota
	toastSuccess
	toastError
)

type toast struct {
	id   int
	kind toastKind
	text string
}

type toastExpiredMsg struct{ id int }

var toastStyles = map[toastKind]lipgloss.Style{
	toastInfo:    accentStyle,
	toastSuccess: successStyle,
	toastError:   errorStyle,
}

// maxToasts bounds the stack; the oldest is dropped first.
const maxToasts = 3

// toast queues a notification and returns the command that dismisses it.
func (m *Model) toast(kind toastKind, text string) tea.Cmd {
	m.toastSeq++
	id := m.toastSeq
	m.toasts = append(m.toasts, toast{id: id, kind: kind, text: text})
	if len(m.toasts) > maxToasts {
		m.toasts = m.toasts[len(m.toasts)-maxToasts:]
	}
	return tea.Tick(m.opt.ToastTTL, func(time.Time) tea.Msg { return toastExpiredMsg{id: id} })
}

func (m *Model) dropToast(id int) {
	for i, t := range m.toasts {
		if t.id == id {
			m.toasts = append(m.toasts[:i:i], m.toasts[i+1:]...)
			return
		}
	}
}

func (m Model) toastView() string {
	if len(m.toasts) == 0 {
		return ""
	}
	lines := make([]string, len(m.toasts))
	for i, t := range m.toasts {
		sym := "•"
		switch t.kind {
		case toastSuccess:
			sym = "✔"
		case toastError:
			sym = "✖"
		}
		lines[i] = toastStyles[t.kind].Render(sym + " " + t.text)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
