package cli

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/todoclient/internal/api"
	"github.com/idilsaglam/todoclient/internal/model"
	"github.com/idilsaglam/todoclient/internal/ui"
	"github.com/idilsaglam/todoclient/internal/validate"
)

func newListCmd(app *App) *cobra.Command {
	var (
		page     int
		size     int
		filter   string
		sortFlag string
		search   string
	)
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List todos, one page at a time",
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := model.ParseFilter(filter)
			if err != nil {
				return writeErr(cmd, usageError{err})
			}
			s, err := model.ParseSort(sortFlag)
			if err != nil {
				return writeErr(cmd, usageError{err})
			}
			if page < 1 {
				return writeErr(cmd, usagef("--page must be at least 1"))
			}
			if size <= 0 {
				size = app.cfg.PageSize
			}
			if err := app.requireLogin(cmd); err != nil {
				return app.fail(cmd, err)
			}

			q := model.Query{Search: search, Filter: f, Sort: s}
			res, err := app.client.ListTodos(cmd.Context(), q.Params(page, size))
			if err != nil {
				return app.fail(cmd, err)
			}
			renderList(cmd.OutOrStdout(), listing{
				page:  res,
				query: q,
				num:   page,
				size:  size,
				group: app.Group,
				now:   app.now(),
			})
			return nil
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page number (1-based)")
	cmd.Flags().IntVar(&size, "size", 0, "Items per page (default from TODO_PAGE_SIZE)")
	cmd.Flags().StringVarP(&filter, "filter", "f", "all", "Filter: all|active|completed|overdue|due-today")
	cmd.Flags().StringVar(&sortFlag, "sort", "newest", "Sort by creation time: newest|oldest")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Only titles containing this text")
	return cmd
}

func newAddCmd(app *App) *cobra.Command {
	var (
		desc string
		due  string
		tags []string
	)
	cmd := &cobra.Command{
		Use:   "add <title...>",
		Short: "Add a todo (title can be multiple words)",
		Args:  minArgs(1, "todo add <title...>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := model.TodoInput{
				Title:       strings.TrimSpace(strings.Join(args, " ")),
				Description: desc,
			}
			if due != "" {
				d, err := model.ParseDue(due, app.now())
				if err != nil {
					return writeErr(cmd, usageError{err})
				}
				in.DueDate = &d
			}
			if err := validate.Struct(in); err != nil {
				return app.fail(cmd, err)
			}
			if err := app.requireLogin(cmd); err != nil {
				return app.fail(cmd, err)
			}
			ids, err := app.tagIDs(cmd.Context(), tags)
			if err != nil {
				return app.fail(cmd, err)
			}
			in.TagIDs = ids
			t, err := app.client.CreateTodo(cmd.Context(), in)
			if err != nil {
				return app.fail(cmd, err)
			}
			ui.OK(cmd.OutOrStdout(), fmt.Sprintf("added #%d %s", t.ID, t.Title))
			return nil
		},
	}
	cmd.Flags().StringVarP(&desc, "desc", "d", "", "Description (markdown)")
	cmd.Flags().StringVar(&due, "due", "", "Due date: YYYY-MM-DD, today, tomorrow or +Nd")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Tag name (repeatable)")
	return cmd
}

// newDoneCmd builds "done" (done=true) and "undone".
func newDoneCmd(app *App, done bool) *cobra.Command {
	use, short, verb := "done", "Mark a todo as completed", "completed"
	if !done {
		use, short, verb = "undone", "Mark a todo as active again", "reopened"
	}
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  exactArgs(1, "todo "+use+" <id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return app.fail(cmd, err)
			}
			if err := app.requireLogin(cmd); err != nil {
				return app.fail(cmd, err)
			}
			t, err := app.client.UpdateTodo(cmd.Context(), id, model.TodoPatch{Done: &done})
			if err != nil {
				return app.fail(cmd, notFoundHint(err, id))
			}
			ui.OK(cmd.OutOrStdout(), fmt.Sprintf("%s #%d %s", verb, t.ID, t.Title))
			return nil
		},
	}
}

func newEditCmd(app *App) *cobra.Command {
	var (
		title    string
		desc     string
		due      string
		clearDue bool
		tags     []string
		noTags   bool
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a todo's title, description, due date or tags",
		Args:  exactArgs(1, "todo edit <id> [flags]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return app.fail(cmd, err)
			}
			var p model.TodoPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				s := strings.TrimSpace(title)
				p.Title = &s
			}
			if flags.Changed("desc") {
				p.Description = &desc
			}
			switch {
			case clearDue && due != "":
				return writeErr(cmd, usagef("--due and --clear-due are exclusive"))
			case clearDue:
				p.ClearDueDate = true
			case due != "":
				d, err := model.ParseDue(due, app.now())
				if err != nil {
					return writeErr(cmd, usageError{err})
				}
				p.DueDate = &d
			}
			if noTags && len(tags) > 0 {
				return writeErr(cmd, usagef("--tag and --no-tags are exclusive"))
			}
			if p.Empty() && len(tags) == 0 && !noTags {
				return writeErr(cmd, usagef("nothing to change; see todo edit --help"))
			}
			if err := validate.Struct(p); err != nil {
				return app.fail(cmd, err)
			}
			if err := app.requireLogin(cmd); err != nil {
				return app.fail(cmd, err)
			}
			if len(tags) > 0 || noTags {
				ids, err := app.tagIDs(cmd.Context(), tags)
				if err != nil {
					return app.fail(cmd, err)
				}
				if ids == nil {
					ids = []int{}
				}
				p.TagIDs = &ids
			}
			t, err := app.client.UpdateTodo(cmd.Context(), id, p)
			if err != nil {
				return app.fail(cmd, notFoundHint(err, id))
			}
			ui.OK(cmd.OutOrStdout(), fmt.Sprintf("updated #%d %s", t.ID, t.Title))
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVarP(&desc, "desc", "d", "", "New description (markdown)")
	cmd.Flags().StringVar(&due, "due", "", "Due date: YYYY-MM-DD, today, tomorrow or +Nd")
	cmd.Flags().BoolVar(&clearDue, "clear-due", false, "Remove the due date")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Replace tags with these names (repeatable)")
	cmd.Flags().BoolVar(&noTags, "no-tags", false, "Remove every tag")
	return cmd
}

func newRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a todo",
		Args:    exactArgs(1, "todo rm <id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return app.fail(cmd, err)
			}
			if err := app.requireLogin(cmd); err != nil {
				return app.fail(cmd, err)
			}
			if err := app.client.DeleteTodo(cmd.Context(), id); err != nil {
				return app.fail(cmd, notFoundHint(err, id))
			}
			ui.OK(cmd.OutOrStdout(), fmt.Sprintf("removed #%d", id))
			return nil
		},
	}
}

func newClearCompletedCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-completed",
		Short: "Delete every completed todo",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(cmd); err != nil {
				return app.fail(cmd, err)
			}
			n, err := app.client.DeleteCompleted(cmd.Context())
			if err != nil {
				return app.fail(cmd, err)
			}
			msg := "cleared completed todos"
			if n >= 0 {
				msg = fmt.Sprintf("cleared %d completed todo(s)", n)
			}
			ui.OK(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(s, "#"))
	if err != nil || id <= 0 {
		return 0, usagef("not a todo id: %s", s)
	}
	return id, nil
}

// tagIDs resolves tag names against the user's tags.
func (app *App) tagIDs(ctx context.Context, names []string) ([]int, error) {
	if len(names) == 0 {
		return nil, nil
	}
	known, err := app.client.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	var ids []int
	for _, name := range names {
		tg, ok := findTag(known, name)
		if !ok {
			return nil, fmt.Errorf("unknown tag %q (create it with `todo tags add %s`)", name, name)
		}
		ids = append(ids, tg.ID)
	}
	return ids, nil
}

func findTag(known []model.Tag, name string) (model.Tag, bool) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "#")
	for _, tg := range known {
		if strings.EqualFold(tg.Name, name) {
			return tg, true
		}
	}
	return model.Tag{}, false
}

func notFoundHint(err error, id int) error {
	if api.StatusOf(err) == http.StatusNotFound {
		return fmt.Errorf("todo #%d not found (run `todo ls` to see ids)", id)
	}
	return err
}
