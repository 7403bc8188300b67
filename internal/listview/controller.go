// Package listview keeps the client-side copy of one page of todos in step
// with the server: which page and query are shown, what the page holds, and
// the optimistic add/toggle/edit/delete operations on it.
package listview

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/idilsaglam/todoclient/internal/api"
	"github.com/idilsaglam/todoclient/internal/model"
)

const (
	DefaultPageSize = 5
	DefaultDebounce = 300 * time.Millisecond

	// staleRetries bounds how often Fetch reloads a page that a mutation
	// overtook while it was on the wire.
	staleRetries = 2
)

// API is the subset of the REST client the list needs. *api.Client
// implements it.
type API interface {
	ListTodos(ctx context.Context, p model.ListParams) (model.TodoPage, error)
	CreateTodo(ctx context.Context, in model.TodoInput) (model.Todo, error)
	UpdateTodo(ctx context.Context, id int, p model.TodoPatch) (model.Todo, error)
	DeleteTodo(ctx context.Context, id int) error
	DeleteCompleted(ctx context.Context) (int, error)

	ListTags(ctx context.Context) ([]model.Tag, error)
	CreateTag(ctx context.Context, in model.TagInput) (model.Tag, error)
	UpdateTag(ctx context.Context, id int, in model.TagInput) (model.Tag, error)
	DeleteTag(ctx context.Context, id int) error
}

type Options struct {
	PageSize int
	Debounce time.Duration
	// Query and Page set the initial view.
	Query model.Query
	Page  int

	Now    func() time.Time
	Logger *slog.Logger
	// OnUnauthorized runs when any call comes back 401.
	OnUnauthorized func()
	// OnRefresh runs after every fetch the controller starts on its own
	// (search, filter, sort and page changes).
	OnRefresh func(err error)
}

// View is a copy of the displayed state.
type View struct {
	Page     int
	PageSize int
	Total    int
	Items    []model.Todo
	Query    model.Query // Query.Search is the debounced term
	Search   string      // raw search text as typed
	Loaded   bool
	Fetching bool
}

func (v View) TotalPages() int { return model.TotalPages(v.Total, v.PageSize) }
func (v View) HasPrev() bool   { return v.Page > 1 }
func (v View) HasNext() bool   { return v.Page < v.TotalPages() }

// Controller owns the list view state. All fields are guarded by mu; network
// calls never run with mu held.
type Controller struct {
	api      API
	opt      Options
	search   *Debouncer
	tags     *Tags
	pageSize int

	mu        sync.Mutex
	page      int
	query     model.Query
	rawSearch string
	items     []model.Todo
	total     int
	loaded    bool
	version   uint64 // bumped on every local change
	fetchSeq  uint64
	inflight  int
	gens      map[int]uint64 // latest mutation per item id
	genSeq    uint64
	nextTemp  int
	mutSeq    uint64 // bumped when a mutation starts or finishes
	pending   int    // mutations awaiting the server
	stale     bool   // a page was dropped while mutations were pending
}

func New(client API, opt Options) *Controller {
	if opt.PageSize <= 0 {
		opt.PageSize = DefaultPageSize
	}
	if opt.Debounce <= 0 {
		opt.Debounce = DefaultDebounce
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	if opt.Query.Filter == "" {
		opt.Query.Filter = model.FilterAll
	}
	if opt.Query.Sort == "" {
		opt.Query.Sort = model.SortNewest
	}
	if opt.Page < 1 {
		opt.Page = 1
	}
	c := &Controller{
		api:       client,
		opt:       opt,
		search:    NewDebouncer(opt.Debounce),
		pageSize:  opt.PageSize,
		page:      opt.Page,
		query:     opt.Query,
		rawSearch: opt.Query.Search,
		gens:      map[int]uint64{},
	}
	c.tags = &Tags{api: client, fail: c.fail}
	return c
}

// Tags is the tag side list of the same session.
func (c *Controller) Tags() *Tags { return c.tags }

// Close stops the pending search timer. The controller is not usable after
// the session ends.
func (c *Controller) Close() { c.search.Stop() }

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]model.Todo, len(c.items))
	for i, t := range c.items {
		items[i] = t.Clone()
	}
	return View{
		Page:     c.page,
		PageSize: c.pageSize,
		Total:    c.total,
		Items:    items,
		Query:    c.query,
		Search:   c.rawSearch,
		Loaded:   c.loaded,
		Fetching: c.inflight > 0,
	}
}

// Params is the server query for the current view.
func (c *Controller) Params() model.ListParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query.Params(c.page, c.pageSize)
}

// Fetch loads the current page. A response that arrives after a newer fetch
// started is dropped. So is one overtaken by a mutation: while mutations are
// pending the last of them reloads the page when it finishes, otherwise the
// page is fetched again. On error the displayed state is left alone.
func (c *Controller) Fetch(ctx context.Context) error {
	for attempt := 0; ; attempt++ {
		c.mu.Lock()
		c.fetchSeq++
		seq := c.fetchSeq
		mseq := c.mutSeq
		params := c.query.Params(c.page, c.pageSize)
		c.inflight++
		c.mu.Unlock()

		page, err := c.api.ListTodos(ctx, params)

		c.mu.Lock()
		c.inflight--
		if seq != c.fetchSeq {
			c.mu.Unlock()
			c.opt.Logger.Debug("stale page dropped", slog.Int("offset", params.Offset))
			return nil
		}
		if err != nil {
			c.mu.Unlock()
			c.fail(err)
			return err
		}
		if n := c.pending; n > 0 {
			c.stale = true
			c.mu.Unlock()
			c.opt.Logger.Debug("page dropped, changes in flight", slog.Int("pending", n))
			return nil
		}
		if c.mutSeq != mseq && attempt < staleRetries {
			c.mu.Unlock()
			c.opt.Logger.Debug("page overtaken by a change, fetching again", slog.Int("offset", params.Offset))
			continue
		}
		c.items = page.Items
		c.total = page.Total
		c.loaded = true
		c.version++
		c.mu.Unlock()
		return nil
	}
}

// refresh fetches and, if the page turned out to be past the end (items
// were removed elsewhere), steps back to the last page and fetches again.
func (c *Controller) refresh(ctx context.Context) error {
	if err := c.Fetch(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	last := model.TotalPages(c.total, c.pageSize)
	if c.page <= last || len(c.items) > 0 {
		c.mu.Unlock()
		return nil
	}
	c.page = last
	c.mu.Unlock()
	return c.Fetch(ctx)
}

func (c *Controller) refreshAsync() {
	go func() {
		err := c.refresh(context.Background())
		if err != nil {
			c.opt.Logger.Warn("refresh failed", slog.Any("error", err))
		}
		if c.opt.OnRefresh != nil {
			c.opt.OnRefresh(err)
		}
	}()
}

func (c *Controller) fail(err error) {
	if errors.Is(err, api.ErrUnauthorized) {
		c.opt.Logger.Info("unauthorized, ending session")
		c.search.Stop()
		if c.opt.OnUnauthorized != nil {
			c.opt.OnUnauthorized()
		}
		return
	}
	c.opt.Logger.Warn("api call failed", slog.Any("error", err))
}

// SetSearch records typed text. The query only changes after the debounce
// delay passes without another call; then the page resets to 1 and the list
// is fetched.
func (c *Controller) SetSearch(text string) {
	c.mu.Lock()
	c.rawSearch = text
	c.mu.Unlock()
	c.search.Trigger(c.applySearch)
}

// FlushSearch applies pending search text immediately.
func (c *Controller) FlushSearch() bool { return c.search.Flush() }

func (c *Controller) applySearch() {
	c.mu.Lock()
	term := strings.TrimSpace(c.rawSearch)
	if term == c.query.Search {
		c.mu.Unlock()
		return
	}
	c.query.Search = term
	c.page = 1
	c.mu.Unlock()
	c.refreshAsync()
}

// SetFilter switches the completion filter and goes back to page 1.
func (c *Controller) SetFilter(f model.Filter) bool {
	c.mu.Lock()
	if c.query.Filter == f {
		c.mu.Unlock()
		return false
	}
	c.query.Filter = f
	c.page = 1
	c.mu.Unlock()
	c.refreshAsync()
	return true
}

// SetSort switches the creation-time order and goes back to page 1.
func (c *Controller) SetSort(s model.Sort) bool {
	c.mu.Lock()
	if c.query.Sort == s {
		c.mu.Unlock()
		return false
	}
	c.query.Sort = s
	c.page = 1
	c.mu.Unlock()
	c.refreshAsync()
	return true
}

// SetPage moves to page n, clamped to the known page range.
func (c *Controller) SetPage(n int) bool {
	c.mu.Lock()
	last := model.TotalPages(c.total, c.pageSize)
	n = min(max(n, 1), last)
	if n == c.page {
		c.mu.Unlock()
		return false
	}
	c.page = n
	c.mu.Unlock()
	c.refreshAsync()
	return true
}

func (c *Controller) NextPage() bool {
	c.mu.Lock()
	n := c.page + 1
	c.mu.Unlock()
	return c.SetPage(n)
}

func (c *Controller) PrevPage() bool {
	c.mu.Lock()
	n := c.page - 1
	c.mu.Unlock()
	return c.SetPage(n)
}

func (c *Controller) indexLocked(id int) int {
	for i, t := range c.items {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (c *Controller) removeLocked(i int) {
	c.items = append(c.items[:i:i], c.items[i+1:]...)
	if c.total > 0 {
		c.total--
	}
}

// finishLocked retires a mutation and reports whether a page was dropped
// while it was pending and has to be loaded again.
func (c *Controller) finishLocked() bool {
	c.pending--
	c.mutSeq++
	if c.pending == 0 && c.stale {
		c.stale = false
		return true
	}
	return false
}

// settleLocked fixes the page after items left it and reports whether a
// fetch is needed: step back when the page is now past the end, reload
// when it emptied while other items remain.
func (c *Controller) settleLocked() bool {
	last := model.TotalPages(c.total, c.pageSize)
	if c.page > last {
		c.page = last
		return true
	}
	return len(c.items) == 0 && c.total > 0
}
