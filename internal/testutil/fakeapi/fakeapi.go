// Package fakeapi is an in-memory implementation of the todo REST API for
// tests. It keeps per-user todos and tags, and can inject failures or hold
// requests to exercise rollback and stale-response paths.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/schema"

	"github.com/idilsaglam/todoclient/internal/model"
)

var decoder = schema.NewDecoder()

func init() {
	decoder.IgnoreUnknownKeys(true)
}

type user struct {
	model.User
	password string
}

type fault struct {
	method, path string
	status       int
	detail       string
}

type hold struct {
	method, path string
	release      chan struct{}
	arrived      chan struct{}
}

// Server is the fake backend. URL is the API base (already includes /api/v1).
type Server struct {
	URL string
	// Now is the server clock used for created_at and due filters.
	Now func() time.Time

	srv *httptest.Server

	mu       sync.Mutex
	users    map[string]*user // by email
	tokens   map[string]int   // token -> user id
	todos    map[int][]*model.Todo
	tags     map[int][]*model.Tag
	nextID   int
	tick     int
	faults   []fault
	holds    []*hold
	requests map[string]int
}

// New starts a server that is closed with the test.
func New(t testing.TB) *Server {
	t.Helper()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s := &Server{
		Now:      func() time.Time { return base },
		users:    map[string]*user{},
		tokens:   map[string]int{},
		todos:    map[int][]*model.Todo{},
		tags:     map[int][]*model.Tag{},
		requests: map[string]int{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", s.login)
	mux.HandleFunc("POST /api/v1/auth/register", s.register)
	mux.HandleFunc("GET /api/v1/auth/me", s.authed(s.me))
	mux.HandleFunc("GET /api/v1/todos", s.authed(s.listTodos))
	mux.HandleFunc("POST /api/v1/todos", s.authed(s.createTodo))
	mux.HandleFunc("PATCH /api/v1/todos/{id}", s.authed(s.updateTodo))
	mux.HandleFunc("DELETE /api/v1/todos/completed", s.authed(s.deleteCompleted))
	mux.HandleFunc("DELETE /api/v1/todos/{id}", s.authed(s.deleteTodo))
	mux.HandleFunc("GET /api/v1/tags", s.authed(s.listTags))
	mux.HandleFunc("POST /api/v1/tags", s.authed(s.createTag))
	mux.HandleFunc("PUT /api/v1/tags/{id}", s.authed(s.updateTag))
	mux.HandleFunc("DELETE /api/v1/tags/{id}", s.authed(s.deleteTag))

	s.srv = httptest.NewServer(s.intercept(mux))
	s.URL = s.srv.URL + "/api/v1"
	t.Cleanup(s.srv.Close)
	return s
}

// AddUser registers an account and returns a valid token for it.
func (s *Server) AddUser(email, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.addUserLocked(email, password)
	return s.issueLocked(u.ID)
}

func (s *Server) addUserLocked(email, password string) *user {
	s.nextID++
	u := &user{User: model.User{ID: s.nextID, Email: email, Active: true, CreatedAt: s.Now()}, password: password}
	s.users[email] = u
	return u
}

func (s *Server) issueLocked(uid int) string {
	tok := fmt.Sprintf("tok-%d-%d", uid, len(s.tokens)+1)
	s.tokens[tok] = uid
	return tok
}

// Revoke invalidates a token; later requests with it get 401.
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

// Seed creates n todos titled "todo 1".."todo n", oldest first.
func (s *Server) Seed(token string, n int) []model.Todo {
	out := make([]model.Todo, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, s.Put(token, model.Todo{Title: fmt.Sprintf("todo %d", i)}))
	}
	return out
}

// Put stores t for the token's owner, assigning id and timestamps.
func (s *Server) Put(token string, t model.Todo) model.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	uid := s.tokens[token]
	nt := s.newTodoLocked(t)
	s.todos[uid] = append(s.todos[uid], nt)
	return nt.Clone()
}

func (s *Server) newTodoLocked(t model.Todo) *model.Todo {
	s.nextID++
	s.tick++
	nt := t.Clone()
	nt.ID = s.nextID
	nt.CreatedAt = s.Now().Add(time.Duration(s.tick) * time.Second)
	nt.UpdatedAt = nt.CreatedAt
	return &nt
}

// Todos returns a copy of everything stored for the token's owner, by id.
func (s *Server) Todos(token string) []model.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Todo
	for _, t := range s.todos[s.tokens[token]] {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FailNext makes the next request matching method and path prefix
// (relative to the API base) fail with status.
func (s *Server) FailNext(method, path string, status int, detail string) {
	s.mu.Lock()
	s.faults = append(s.faults, fault{method: method, path: path, status: status, detail: detail})
	s.mu.Unlock()
}

// Hold blocks the next matching request until release is called. wait
// returns once the request has reached the server.
func (s *Server) Hold(method, path string) (wait func(), release func()) {
	h := &hold{method: method, path: path, release: make(chan struct{}), arrived: make(chan struct{})}
	s.mu.Lock()
	s.holds = append(s.holds, h)
	s.mu.Unlock()
	var once sync.Once
	return func() { <-h.arrived }, func() { once.Do(func() { close(h.release) }) }
}

// Requests counts requests seen for method and exact path.
func (s *Server) Requests(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[method+" "+path]
}

func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/v1")
		s.mu.Lock()
		s.requests[r.Method+" "+path]++
		var f *fault
		for i, ft := range s.faults {
			if ft.method == r.Method && strings.HasPrefix(path, ft.path) {
				f = &ft
				s.faults = append(s.faults[:i], s.faults[i+1:]...)
				break
			}
		}
		var h *hold
		for i, hd := range s.holds {
			if hd.method == r.Method && strings.HasPrefix(path, hd.path) {
				h = hd
				s.holds = append(s.holds[:i], s.holds[i+1:]...)
				break
			}
		}
		s.mu.Unlock()

		if h != nil {
			close(h.arrived)
			<-h.release
		}
		if f != nil {
			writeDetail(w, f.status, f.detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type authedHandler func(w http.ResponseWriter, r *http.Request, uid int)

func (s *Server) authed(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		uid, known := s.tokens[tok]
		s.mu.Unlock()
		if !ok || !known {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		h(w, r, uid)
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	var form struct {
		Username string `schema:"username"`
		Password string `schema:"password"`
	}
	if err := decoder.Decode(&form, r.PostForm); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.mu.Lock()
	u, ok := s.users[form.Username]
	if !ok || u.password != form.Password {
		s.mu.Unlock()
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	tok := s.issueLocked(u.ID)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, model.Token{AccessToken: tok, TokenType: "bearer"})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if !strings.Contains(body.Email, "@") {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid email")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.users[body.Email]; dup {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	u := s.addUserLocked(body.Email, body.Password)
	writeJSON(w, http.StatusCreated, u.User)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request, uid int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == uid {
			writeJSON(w, http.StatusOK, u.User)
			return
		}
	}
	writeDetail(w, http.StatusUnauthorized, "user not found")
}

func (s *Server) listTodos(w http.ResponseWriter, r *http.Request, uid int) {
	var p model.ListParams
	p.Limit = 10
	p.SortDesc = true
	if err := decoder.Decode(&p, r.URL.Query()); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	q := model.Query{Search: p.Search, Filter: model.FilterAll}
	switch {
	case p.Due == "overdue":
		q.Filter = model.FilterOverdue
	case p.Due == "today":
		q.Filter = model.FilterDueToday
	case p.Done != nil && *p.Done:
		q.Filter = model.FilterCompleted
	case p.Done != nil:
		q.Filter = model.FilterActive
	}

	s.mu.Lock()
	now := s.Now()
	var match []model.Todo
	for _, t := range s.todos[uid] {
		if p.Done != nil && t.Done != *p.Done {
			continue
		}
		if q.Matches(*t, now) {
			match = append(match, t.Clone())
		}
	}
	s.mu.Unlock()

	sort.SliceStable(match, func(i, j int) bool {
		if p.SortDesc {
			return match[i].CreatedAt.After(match[j].CreatedAt)
		}
		return match[i].CreatedAt.Before(match[j].CreatedAt)
	})
	total := len(match)
	lo := min(max(p.Offset, 0), total)
	hi := min(lo+max(p.Limit, 0), total)
	writeJSON(w, http.StatusOK, model.TodoPage{Items: append([]model.Todo{}, match[lo:hi]...), Total: total, Limit: p.Limit, Offset: p.Offset})
}

func (s *Server) createTodo(w http.ResponseWriter, r *http.Request, uid int) {
	var in model.TodoInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if n := len(strings.TrimSpace(in.Title)); n < 3 || n > 100 {
		writeValidation(w, "title", "String should have at least 3 characters")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.newTodoLocked(model.Todo{
		Title:       in.Title,
		Description: in.Description,
		Done:        in.Done,
		DueDate:     in.DueDate,
		Tags:        s.resolveLocked(uid, in.TagIDs),
	})
	s.todos[uid] = append(s.todos[uid], t)
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) updateTodo(w http.ResponseWriter, r *http.Request, uid int) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	var p model.TodoPatch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if p.Title != nil && len(strings.TrimSpace(*p.Title)) < 3 {
		writeValidation(w, "title", "String should have at least 3 characters")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.todos[uid] {
		if t.ID == id {
			var known []model.Tag
			for _, tg := range s.tags[uid] {
				known = append(known, *tg)
			}
			p.ApplyTo(t, known)
			s.tick++
			t.UpdatedAt = s.Now().Add(time.Duration(s.tick) * time.Second)
			writeJSON(w, http.StatusOK, t)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Todo not found or not owned by user")
}

func (s *Server) deleteTodo(w http.ResponseWriter, r *http.Request, uid int) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.todos[uid]
	for i, t := range list {
		if t.ID == id {
			s.todos[uid] = append(list[:i], list[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Todo not found or not owned by user")
}

func (s *Server) deleteCompleted(w http.ResponseWriter, r *http.Request, uid int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keep []*model.Todo
	for _, t := range s.todos[uid] {
		if !t.Done {
			keep = append(keep, t)
		}
	}
	n := len(s.todos[uid]) - len(keep)
	s.todos[uid] = keep
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

func (s *Server) resolveLocked(uid int, ids []int) []model.Tag {
	var known []model.Tag
	for _, tg := range s.tags[uid] {
		known = append(known, *tg)
	}
	return model.ResolveTags(ids, known)
}

func (s *Server) listTags(w http.ResponseWriter, r *http.Request, uid int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Tag{}
	for _, t := range s.tags[uid] {
		out = append(out, *t)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) decodeTag(w http.ResponseWriter, r *http.Request) (model.TagInput, bool) {
	var in model.TagInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return in, false
	}
	if in.Name == "" || len(in.Name) > 50 {
		writeValidation(w, "name", "String should have 1 to 50 characters")
		return in, false
	}
	if in.Color == "" {
		in.Color = model.DefaultTagColor
	}
	return in, true
}

func (s *Server) createTag(w http.ResponseWriter, r *http.Request, uid int) {
	in, ok := s.decodeTag(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tags[uid] {
		if strings.EqualFold(t.Name, in.Name) {
			writeDetail(w, http.StatusBadRequest, "Tag already exists")
			return
		}
	}
	s.nextID++
	t := &model.Tag{ID: s.nextID, Name: in.Name, Color: in.Color}
	s.tags[uid] = append(s.tags[uid], t)
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) updateTag(w http.ResponseWriter, r *http.Request, uid int) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	in, ok := s.decodeTag(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tags[uid] {
		if t.ID == id {
			t.Name, t.Color = in.Name, in.Color
			writeJSON(w, http.StatusOK, t)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Tag not found")
}

func (s *Server) deleteTag(w http.ResponseWriter, r *http.Request, uid int) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.tags[uid]
	for i, t := range list {
		if t.ID == id {
			s.tags[uid] = append(list[:i], list[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Tag not found")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeValidation(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"detail": []map[string]any{{"loc": []string{"body", field}, "msg": msg}},
	})
}
