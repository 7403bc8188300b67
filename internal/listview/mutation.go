package listview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/idilsaglam/todoclient/internal/api"
	"github.com/idilsaglam/todoclient/internal/model"
	"github.com/idilsaglam/todoclient/internal/validate"
)

var (
	// ErrNotOnPage is returned for an id that is not in the displayed page.
	ErrNotOnPage = errors.New("todo is not on the current page")
	// ErrUnsaved is returned when acting on an item whose create is still in flight.
	ErrUnsaved = errors.New("todo is still being saved")
)

// MutationError wraps a failed server call whose local change was reverted.
type MutationError struct {
	Op  string
	Err error
}

func (e *MutationError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *MutationError) Unwrap() error { return e.Err }

// Message is a user-facing description of the failure.
func (e *MutationError) Message() string {
	return fmt.Sprintf("Could not %s: %s. Changes were reverted.", e.Op, api.Message(e.Err))
}

// mutation describes one optimistic change: a local delta, the server call
// confirming it, and how to fold the server's answer back in. apply and
// reconcile run with the controller lock held.
type mutation struct {
	op  string
	key int // item id; 0 for list-wide changes
	// apply changes local state.
	apply func(c *Controller)
	// call performs the request; the returned todo may be nil.
	call func(ctx context.Context) (*model.Todo, error)
	// reconcile folds the response in and reports whether a fetch is needed.
	reconcile func(c *Controller, res *model.Todo) bool
}

type snapshot struct {
	items []model.Todo
	total int
	page  int
}

// Pending is a mutation that has been applied locally and awaits the server.
type Pending struct {
	c       *Controller
	m       mutation
	snap    snapshot
	gen     uint64
	version uint64
	result  *model.Todo
}

// Op names the operation ("add", "toggle", ...).
func (p *Pending) Op() string { return p.m.op }

// Result is the server's copy of the todo after Wait succeeded, if any.
func (p *Pending) Result() *model.Todo { return p.result }

func (c *Controller) start(m mutation) *Pending {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := &Pending{c: c, m: m}
	p.snap = snapshot{items: append([]model.Todo(nil), c.items...), total: c.total, page: c.page}
	for i := range p.snap.items {
		p.snap.items[i] = p.snap.items[i].Clone()
	}
	c.genSeq++
	p.gen = c.genSeq
	if m.key != 0 {
		c.gens[m.key] = p.gen
	}
	m.apply(c)
	c.version++
	p.version = c.version
	c.pending++
	c.mutSeq++
	return p
}

// Wait sends the request and then either reconciles the local state with
// the response or reverts it. If a newer mutation on the same item started
// meanwhile, the response is ignored: the newer one owns the item.
func (p *Pending) Wait(ctx context.Context) error {
	c := p.c
	res, err := p.m.call(ctx)

	c.mu.Lock()
	reload := c.finishLocked()
	if p.m.key != 0 {
		if c.gens[p.m.key] != p.gen {
			c.mu.Unlock()
			c.opt.Logger.Debug("superseded response ignored", slog.String("op", p.m.op), slog.Int("id", p.m.key))
			if reload {
				if ferr := c.refresh(ctx); ferr != nil {
					c.opt.Logger.Warn("refresh after superseded change", slog.Any("error", ferr))
				}
			}
			return nil
		}
		delete(c.gens, p.m.key)
	}

	if err != nil {
		untouched := c.version == p.version
		if untouched {
			c.items = p.snap.items
			c.total = p.snap.total
			c.page = p.snap.page
			c.version++
		}
		c.mu.Unlock()
		c.fail(err)
		if (!untouched || reload) && !errors.Is(err, api.ErrUnauthorized) {
			// Other changes landed on top of ours; let the server decide.
			if ferr := c.refresh(ctx); ferr != nil {
				c.opt.Logger.Warn("refresh after rollback", slog.Any("error", ferr))
			}
		}
		return &MutationError{Op: p.m.op, Err: err}
	}

	p.result = res
	refetch := p.m.reconcile(c, res) || reload
	if c.settleLocked() {
		refetch = true
	}
	c.version++
	c.mu.Unlock()

	if refetch {
		if err := c.refresh(ctx); err != nil {
			return fmt.Errorf("refresh: %w", err)
		}
	}
	return nil
}

func (c *Controller) lookup(id int) (model.Todo, error) {
	if id < 0 {
		return model.Todo{}, ErrUnsaved
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(id)
	if i < 0 {
		return model.Todo{}, ErrNotOnPage
	}
	return c.items[i].Clone(), nil
}

// replaceLocked puts the server copy of a todo in place and drops it when it
// no longer belongs in the current query.
func (c *Controller) replaceLocked(id int, res *model.Todo) {
	i := c.indexLocked(id)
	if i < 0 || res == nil {
		return
	}
	if !c.query.Matches(*res, c.opt.Now()) {
		c.removeLocked(i)
		return
	}
	c.items[i] = res.Clone()
}

// StartAdd validates in and shows it immediately when it would land on the
// visible page: page 1, newest first, and matching the active filter and
// search. Otherwise only the total moves and the page is reloaded once the
// server confirms.
func (c *Controller) StartAdd(in model.TodoInput) (*Pending, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Done = false
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.nextTemp--
	tempID := c.nextTemp
	c.mu.Unlock()

	ph := model.Todo{
		ID:          tempID,
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
		Tags:        model.ResolveTags(in.TagIDs, c.tags.List()),
		CreatedAt:   c.opt.Now(),
	}
	inserted := false

	return c.start(mutation{
		op:  "add",
		key: tempID,
		apply: func(c *Controller) {
			c.total++
			if c.page != 1 || !c.query.Sort.Desc() || c.query.Filter == model.FilterCompleted ||
				!c.query.Matches(ph, c.opt.Now()) {
				return
			}
			inserted = true
			c.items = append([]model.Todo{ph.Clone()}, c.items...)
			if len(c.items) > c.pageSize {
				c.items = c.items[:c.pageSize]
			}
		},
		call: func(ctx context.Context) (*model.Todo, error) {
			t, err := c.api.CreateTodo(ctx, in)
			if err != nil {
				return nil, err
			}
			return &t, nil
		},
		reconcile: func(c *Controller, res *model.Todo) bool {
			if !inserted {
				return true
			}
			i := c.indexLocked(tempID)
			if i < 0 {
				// A fetch replaced the page meanwhile.
				return true
			}
			c.items[i] = res.Clone()
			return false
		},
	}), nil
}

// Add is StartAdd followed by Wait.
func (c *Controller) Add(ctx context.Context, in model.TodoInput) (model.Todo, error) {
	p, err := c.StartAdd(in)
	if err != nil {
		return model.Todo{}, err
	}
	if err := p.Wait(ctx); err != nil {
		return model.Todo{}, err
	}
	if p.Result() == nil {
		return model.Todo{}, nil
	}
	return *p.Result(), nil
}

// StartToggle flips completion of a displayed todo. If the todo no longer
// matches the filter it leaves the page at once.
func (c *Controller) StartToggle(id int) (*Pending, error) {
	t, err := c.lookup(id)
	if err != nil {
		return nil, err
	}
	done := !t.Done
	return c.start(mutation{
		op:  "update status",
		key: id,
		apply: func(c *Controller) {
			i := c.indexLocked(id)
			if i < 0 {
				return
			}
			c.items[i].Done = done
			if !c.query.Matches(c.items[i], c.opt.Now()) {
				c.removeLocked(i)
			}
		},
		call: func(ctx context.Context) (*model.Todo, error) {
			res, err := c.api.UpdateTodo(ctx, id, model.TodoPatch{Done: &done})
			if err != nil {
				return nil, err
			}
			return &res, nil
		},
		reconcile: func(c *Controller, res *model.Todo) bool {
			c.replaceLocked(id, res)
			return false
		},
	}), nil
}

func (c *Controller) Toggle(ctx context.Context, id int) error {
	p, err := c.StartToggle(id)
	if err != nil {
		return err
	}
	return p.Wait(ctx)
}

// StartEdit applies a partial update to a displayed todo.
func (c *Controller) StartEdit(id int, patch model.TodoPatch) (*Pending, error) {
	if patch.Title != nil {
		s := strings.TrimSpace(*patch.Title)
		patch.Title = &s
	}
	if patch.Description != nil {
		s := strings.TrimSpace(*patch.Description)
		patch.Description = &s
	}
	if err := validate.Struct(patch); err != nil {
		return nil, err
	}
	if _, err := c.lookup(id); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, validate.Field("todo", "has no changes")
	}
	known := c.tags.List()
	return c.start(mutation{
		op:  "save changes",
		key: id,
		apply: func(c *Controller) {
			i := c.indexLocked(id)
			if i < 0 {
				return
			}
			patch.ApplyTo(&c.items[i], known)
			if !c.query.Matches(c.items[i], c.opt.Now()) {
				c.removeLocked(i)
			}
		},
		call: func(ctx context.Context) (*model.Todo, error) {
			res, err := c.api.UpdateTodo(ctx, id, patch)
			if err != nil {
				return nil, err
			}
			return &res, nil
		},
		reconcile: func(c *Controller, res *model.Todo) bool {
			c.replaceLocked(id, res)
			return false
		},
	}), nil
}

func (c *Controller) Edit(ctx context.Context, id int, patch model.TodoPatch) error {
	p, err := c.StartEdit(id, patch)
	if err != nil {
		return err
	}
	return p.Wait(ctx)
}

// StartDelete removes a displayed todo.
func (c *Controller) StartDelete(id int) (*Pending, error) {
	if _, err := c.lookup(id); err != nil {
		return nil, err
	}
	return c.start(mutation{
		op:  "delete",
		key: id,
		apply: func(c *Controller) {
			if i := c.indexLocked(id); i >= 0 {
				c.removeLocked(i)
			}
		},
		call: func(ctx context.Context) (*model.Todo, error) {
			return nil, c.api.DeleteTodo(ctx, id)
		},
		reconcile: func(*Controller, *model.Todo) bool { return false },
	}), nil
}

func (c *Controller) Delete(ctx context.Context, id int) error {
	p, err := c.StartDelete(id)
	if err != nil {
		return err
	}
	return p.Wait(ctx)
}

// StartClearCompleted hides completed todos of the page and deletes all
// completed todos on the server. The page is reloaded afterwards since
// completed items on other pages change the total too.
func (c *Controller) StartClearCompleted() *Pending {
	return c.start(mutation{
		op: "clear completed",
		apply: func(c *Controller) {
			keep := c.items[:0:0]
			for _, t := range c.items {
				if t.Done {
					if c.total > 0 {
						c.total--
					}
					continue
				}
				keep = append(keep, t)
			}
			c.items = keep
		},
		call: func(ctx context.Context) (*model.Todo, error) {
			n, err := c.api.DeleteCompleted(ctx)
			if err == nil {
				c.opt.Logger.Info("cleared completed", slog.Int("deleted", n))
			}
			return nil, err
		},
		reconcile: func(*Controller, *model.Todo) bool { return true },
	})
}

func (c *Controller) ClearCompleted(ctx context.Context) error {
	return c.StartClearCompleted().Wait(ctx)
}
