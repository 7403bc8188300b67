package tui

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/todoclient/internal/api"
	"github.com/idilsaglam/todoclient/internal/session"
	"github.com/idilsaglam/todoclient/internal/store/credstore"
	"github.com/idilsaglam/todoclient/internal/testutil/fakeapi"
)

type harness struct {
	srv   *fakeapi.Server
	tok   string
	sess  *session.Session
	store *credstore.Store
}

func newHarness(t *testing.T, seed int) *harness {
	t.Helper()
	srv := fakeapi.New(t)
	tok := srv.AddUser("ann@example.com", "secret1")
	srv.Seed(tok, seed)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &credstore.Store{Dir: t.TempDir(), NoEnv: true}
	sess := session.New(api.New(srv.URL, api.WithLogger(logger)), store, logger)
	return &harness{srv: srv, tok: tok, sess: sess, store: store}
}

func (h *harness) model() Model {
	m := New(h.sess, Options{
		PageSize: 5,
		Debounce: 10 * time.Millisecond,
		ToastTTL: time.Millisecond,
		Now:      h.srv.Now,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	// Blinking cursors schedule timers that would keep drive busy.
	m.input.Cursor.SetMode(cursor.CursorStatic)
	for i := range m.auth.inputs {
		m.auth.inputs[i].Cursor.SetMode(cursor.CursorStatic)
	}
	return m
}

// anonymous returns a model showing the login form.
func anonymous(t *testing.T, seed int) (*harness, Model) {
	t.Helper()
	h := newHarness(t, seed)
	if err := h.sess.Restore(context.Background()); err != nil {
		t.Fatal(err)
	}
	m := drive(t, h.model(), func() tea.Msg { return restoredMsg{} })
	if m.screen != screenAuth {
		t.Fatalf("screen = %v, want auth", m.screen)
	}
	return h, m
}

// loggedIn returns a model showing the first page of seed todos.
func loggedIn(t *testing.T, seed int) (*harness, Model) {
	t.Helper()
	h := newHarness(t, seed)
	if _, err := h.store.Save(h.tok); err != nil {
		t.Fatal(err)
	}
	if err := h.sess.Restore(context.Background()); err != nil {
		t.Fatal(err)
	}
	m := drive(t, h.model(), func() tea.Msg { return restoredMsg{} })
	if m.screen != screenList || !m.view.Loaded {
		t.Fatalf("screen = %v loaded = %v", m.screen, m.view.Loaded)
	}
	t.Cleanup(func() {
		if m.ctrl != nil {
			m.ctrl.Close()
		}
	})
	return h, m
}

// drive runs cmd and feeds the resulting messages back into the model the
// way the runtime would. Timer messages are dropped so toasts stay visible.
func drive(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 200 {
			t.Fatal("message loop did not settle")
		}
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case nil, toastExpiredMsg, spinner.TickMsg, tea.QuitMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			next, cmd := m.Update(msg)
			m = next.(Model)
			queue = append(queue, cmd)
		}
	}
	return m
}

func press(m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	next, cmd := m.Update(k)
	return next.(Model), cmd
}

// pressAndDrive presses k and runs everything it started.
func pressAndDrive(t *testing.T, m Model, k tea.KeyMsg) Model {
	t.Helper()
	m, cmd := press(m, k)
	return drive(t, m, cmd)
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	tab   = tea.KeyMsg{Type: tea.KeyTab}
	space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	right = tea.KeyMsg{Type: tea.KeyRight}
	ctrlR = tea.KeyMsg{Type: tea.KeyCtrlR}
)

// waitFor polls cond, for state changed by background refreshes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func hasToast(m Model, substr string) bool {
	for _, tt := range m.toasts {
		if strings.Contains(tt.text, substr) {
			return true
		}
	}
	return false
}

func titles(m Model) []string {
	out := make([]string, len(m.view.Items))
	for i, t := range m.view.Items {
		out[i] = t.Title
	}
	return out
}

func TestLoginShowsList(t *testing.T) {
	h, m := anonymous(t, 3)
	m, _ = press(m, runes("ann@example.com"))
	m, _ = press(m, tab)
	m, _ = press(m, runes("secret1"))
	m = pressAndDrive(t, m, enter)

	if m.screen != screenList {
		t.Fatalf("screen = %v, err = %q", m.screen, m.auth.err)
	}
	if got := titles(m); len(got) != 3 || got[0] != "todo 3" {
		t.Fatalf("titles = %v", got)
	}
	if ti, _ := h.store.Load(); ti == nil {
		t.Fatal("token not persisted")
	}
	if !strings.Contains(m.View(), "ann@example.com") {
		t.Fatal("header does not show the user")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	h, m := anonymous(t, 0)
	m, _ = press(m, runes("ann@example.com"))
	m, _ = press(m, tab)
	m, _ = press(m, runes("nope"))
	m = pressAndDrive(t, m, enter)

	if m.screen != screenAuth || m.auth.err != "Incorrect email or password." {
		t.Fatalf("screen = %v err = %q", m.screen, m.auth.err)
	}
	if m.auth.inputs[fieldPassword].Value() != "" {
		t.Fatal("password kept after failure")
	}
	if h.sess.State() != session.Anonymous {
		t.Fatalf("state = %v", h.sess.State())
	}
}

func TestLoginValidationSkipsRequest(t *testing.T) {
	h, m := anonymous(t, 0)
	m, _ = press(m, runes("not-an-email"))
	m, _ = press(m, tab)
	m = pressAndDrive(t, m, enter)
	if m.auth.err == "" {
		t.Fatal("no validation message")
	}
	if n := h.srv.Requests(http.MethodPost, "/auth/login"); n != 0 {
		t.Fatalf("POST /auth/login = %d", n)
	}
}

func TestRegisterReturnsToLogin(t *testing.T) {
	_, m := anonymous(t, 0)
	m, _ = press(m, ctrlR)
	if !m.auth.register {
		t.Fatal("ctrl+r did not switch to register")
	}
	m, _ = press(m, runes("bob@example.com"))
	m, _ = press(m, tab)
	m, _ = press(m, runes("hunter22"))
	m, _ = press(m, tab)
	m, _ = press(m, runes("hunter22"))
	m = pressAndDrive(t, m, enter)

	if m.auth.register || m.auth.err != "" {
		t.Fatalf("register = %v err = %q", m.auth.register, m.auth.err)
	}
	if m.auth.inputs[fieldEmail].Value() != "bob@example.com" || m.auth.focus != fieldPassword {
		t.Fatalf("email = %q focus = %d", m.auth.inputs[fieldEmail].Value(), m.auth.focus)
	}
	if !hasToast(m, "Account created") {
		t.Fatalf("toasts = %+v", m.toasts)
	}
}

func TestToggleRendersBeforeServerAnswers(t *testing.T) {
	h, m := loggedIn(t, 2)
	id := m.view.Items[0].ID

	m, cmd := press(m, space)
	if !m.view.Items[0].Done {
		t.Fatal("toggle not shown optimistically")
	}
	m = drive(t, m, cmd)
	if !m.view.Items[0].Done {
		t.Fatal("toggle lost after confirmation")
	}
	for _, td := range h.srv.Todos(h.tok) {
		if td.ID == id && !td.Done {
			t.Fatal("server copy not updated")
		}
	}
}

func TestAddWithQuickSyntax(t *testing.T) {
	h, m := loggedIn(t, 2)
	m, _ = press(m, runes("a"))
	if m.mode != modeAdd {
		t.Fatalf("mode = %v", m.mode)
	}
	m, _ = press(m, runes("buy oat milk due:tomorrow"))
	m, cmd := press(m, enter)
	if first := m.view.Items[0]; !first.Placeholder() || first.Title != "buy oat milk" {
		t.Fatalf("first = %+v", first)
	}
	m = drive(t, m, cmd)

	first := m.view.Items[0]
	if first.Placeholder() || first.DueDate == nil || m.view.Total != 3 {
		t.Fatalf("first = %+v total = %d", first, m.view.Total)
	}
	if !hasToast(m, "Todo added") || m.mode != modeNormal {
		t.Fatalf("mode = %v toasts = %+v", m.mode, m.toasts)
	}
	if n := len(h.srv.Todos(h.tok)); n != 3 {
		t.Fatalf("server has %d todos", n)
	}
}

func TestAddValidationKeepsInputOpen(t *testing.T) {
	h, m := loggedIn(t, 1)
	m, _ = press(m, runes("a"))
	m, _ = press(m, runes("ab"))
	m = pressAndDrive(t, m, enter)
	if m.mode != modeAdd || m.inputErr == "" {
		t.Fatalf("mode = %v err = %q", m.mode, m.inputErr)
	}
	if n := h.srv.Requests(http.MethodPost, "/todos"); n != 0 {
		t.Fatalf("POST /todos = %d", n)
	}
	m, _ = press(m, esc)
	if m.mode != modeNormal {
		t.Fatal("esc did not close the input")
	}
}

func TestEditTitle(t *testing.T) {
	h, m := loggedIn(t, 1)
	m, _ = press(m, runes("e"))
	if got := m.input.Value(); got != "todo 1" {
		t.Fatalf("prefill = %q", got)
	}
	m.input.SetValue("walk the dog")
	m = pressAndDrive(t, m, enter)
	if m.view.Items[0].Title != "walk the dog" {
		t.Fatalf("title = %q", m.view.Items[0].Title)
	}
	if got := h.srv.Todos(h.tok)[0].Title; got != "walk the dog" {
		t.Fatalf("server title = %q", got)
	}
}

func TestFailedDeleteIsRevertedWithToast(t *testing.T) {
	h, m := loggedIn(t, 3)
	before := titles(m)
	h.srv.FailNext(http.MethodDelete, "/todos", http.StatusInternalServerError, "")

	m, cmd := press(m, runes("d"))
	if len(m.view.Items) != 2 {
		t.Fatal("delete not shown optimistically")
	}
	m = drive(t, m, cmd)
	if got := titles(m); strings.Join(got, ",") != strings.Join(before, ",") {
		t.Fatalf("titles = %v, want %v", got, before)
	}
	if !hasToast(m, "Could not delete") {
		t.Fatalf("toasts = %+v", m.toasts)
	}
}

func TestUnauthorizedReturnsToLogin(t *testing.T) {
	h, m := loggedIn(t, 2)
	h.srv.Revoke(h.tok)
	m = pressAndDrive(t, m, runes("r"))

	if m.screen != screenAuth || m.ctrl != nil {
		t.Fatalf("screen = %v", m.screen)
	}
	if !hasToast(m, "session has expired") {
		t.Fatalf("toasts = %+v", m.toasts)
	}
	if h.sess.State() != session.Anonymous {
		t.Fatalf("state = %v", h.sess.State())
	}
	if ti, _ := h.store.Load(); ti != nil {
		t.Fatal("token still stored")
	}
}

func TestLogout(t *testing.T) {
	h, m := loggedIn(t, 1)
	m = pressAndDrive(t, m, runes("L"))
	if m.screen != screenAuth || h.sess.State() != session.Anonymous {
		t.Fatalf("screen = %v state = %v", m.screen, h.sess.State())
	}
	// The listener's late notification must not produce a second toast.
	m = drive(t, m, func() tea.Msg { return sessionEndedMsg{} })
	if hasToast(m, "expired") {
		t.Fatal("logout reported as expiry")
	}
}

func TestPagingAndFilterKeys(t *testing.T) {
	_, m := loggedIn(t, 7)
	m, _ = press(m, right)
	if m.view.Page != 2 {
		t.Fatalf("page = %d", m.view.Page)
	}
	ctrl := m.ctrl
	waitFor(t, "page 2", func() bool {
		v := ctrl.View()
		return len(v.Items) == 2 && v.Items[0].Title == "todo 2"
	})
	m = drive(t, m, func() tea.Msg { return refreshedMsg{from: ctrl} })
	if got := titles(m); strings.Join(got, ",") != "todo 2,todo 1" {
		t.Fatalf("titles = %v", got)
	}
	if !strings.Contains(m.View(), "page 2 of 2") {
		t.Fatal("pager line missing")
	}

	m, _ = press(m, runes("f"))
	if m.view.Query.Filter != "active" || m.view.Page != 1 {
		t.Fatalf("filter = %q page = %d", m.view.Query.Filter, m.view.Page)
	}
}

func TestSearch(t *testing.T) {
	_, m := loggedIn(t, 6)
	m, _ = press(m, runes("/"))
	m, _ = press(m, runes("todo 3"))
	m, _ = press(m, enter)
	if m.mode != modeNormal {
		t.Fatalf("mode = %v", m.mode)
	}
	ctrl := m.ctrl
	waitFor(t, "search results", func() bool {
		v := ctrl.View()
		return v.Query.Search == "todo 3" && len(v.Items) == 1
	})
	m = drive(t, m, func() tea.Msg { return refreshedMsg{from: ctrl} })
	if got := titles(m); len(got) != 1 || got[0] != "todo 3" {
		t.Fatalf("titles = %v", got)
	}
}

func TestTagPanelAttachesTag(t *testing.T) {
	h, m := loggedIn(t, 1)
	tag, err := m.ctrl.Tags().Create(context.Background(), "home", "")
	if err != nil {
		t.Fatal(err)
	}
	m, _ = press(m, runes("t"))
	if m.mode != modeTags || !strings.Contains(m.View(), "#home") {
		t.Fatalf("mode = %v", m.mode)
	}
	m, cmd := press(m, enter)
	if tags := m.view.Items[0].Tags; len(tags) != 1 || tags[0].Name != "home" {
		t.Fatalf("tags = %+v", tags)
	}
	m = drive(t, m, cmd)
	if tags := h.srv.Todos(h.tok)[0].Tags; len(tags) != 1 || tags[0].ID != tag.ID {
		t.Fatalf("server tags = %+v", tags)
	}
}

func TestCreateTagFromPanel(t *testing.T) {
	_, m := loggedIn(t, 0)
	m, _ = press(m, runes("t"))
	m, _ = press(m, runes("n"))
	m, _ = press(m, runes("errands"))
	m = pressAndDrive(t, m, enter)
	if m.mode != modeTags {
		t.Fatalf("mode = %v", m.mode)
	}
	tags := m.ctrl.Tags().List()
	if len(tags) != 1 || tags[0].Name != "errands" || tags[0].Color == "" {
		t.Fatalf("tags = %+v", tags)
	}
}

func TestToastExpires(t *testing.T) {
	_, m := anonymous(t, 0)
	cmd := m.toast(toastInfo, "hello")
	if len(m.toasts) != 1 {
		t.Fatal("toast not queued")
	}
	next, _ := m.Update(cmd())
	if m = next.(Model); len(m.toasts) != 0 {
		t.Fatalf("toasts = %+v", m.toasts)
	}
}
