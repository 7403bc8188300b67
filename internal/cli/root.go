// Package cli is the scriptable command line. With no subcommand it starts
// the interactive TUI.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/todoclient/internal/api"
	"github.com/idilsaglam/todoclient/internal/config"
	"github.com/idilsaglam/todoclient/internal/session"
	"github.com/idilsaglam/todoclient/internal/store/credstore"
	"github.com/idilsaglam/todoclient/internal/tui"
	"github.com/idilsaglam/todoclient/internal/ui"
	"github.com/idilsaglam/todoclient/internal/validate"
)

type App struct {
	APIURL  string
	Theme   string
	NoColor bool
	Debug   bool
	Group   bool

	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer
	client *api.Client
	store  *credstore.Store
	sess   *session.Session
	stdin  *bufio.Reader
	now    func() time.Time
}

func NewRootCmd() *cobra.Command {
	app := &App{now: time.Now}

	cmd := &cobra.Command{
		Use:           "todo",
		Short:         "Todo list client (TUI + CLI)",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          noArgs,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  todo

  # Scriptable commands
  todo login ann@example.com
  todo add "Buy milk" --tag home --due tomorrow
  todo ls --filter active
  todo done 12
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app)
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := app.setup(cmd); err != nil {
			return writeErr(cmd, err)
		}
		return nil
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if app.closer != nil {
			return app.closer.Close()
		}
		return nil
	}
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return writeErr(c, usageError{err})
	})

	cmd.PersistentFlags().StringVar(&app.APIURL, "api", "", "API base URL (default from TODO_API_URL)")
	cmd.PersistentFlags().StringVar(&app.Theme, "theme", "", "Color theme: "+strings.Join(ui.Themes, "|")+" (default from TODO_THEME)")
	cmd.PersistentFlags().BoolVar(&app.NoColor, "no-color", envOr("NO_COLOR", "") != "", "Disable colored output")
	cmd.PersistentFlags().BoolVar(&app.Debug, "debug", os.Getenv("TODO_DEBUG") != "", "Write a debug log to the config dir")
	cmd.PersistentFlags().BoolVar(&app.Group, "group", false, "Group list output by pending/done")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newRegisterCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newStatusCmd(app))
	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newAddCmd(app))
	cmd.AddCommand(newDoneCmd(app, true))
	cmd.AddCommand(newDoneCmd(app, false))
	cmd.AddCommand(newEditCmd(app))
	cmd.AddCommand(newRemoveCmd(app))
	cmd.AddCommand(newClearCompletedCmd(app))
	cmd.AddCommand(newTagsCmd(app))

	return cmd
}

// setup loads configuration and builds the client and session shared by
// every command.
func (app *App) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if s := strings.TrimRight(strings.TrimSpace(app.APIURL), "/"); s != "" {
		cfg.APIURL = s
	}
	if app.Theme != "" {
		cfg.Theme = app.Theme
	}
	cfg.Debug = cfg.Debug || app.Debug

	ui.SetColorForcing(os.Getenv("TODO_FORCE_COLOR") != "", app.NoColor)
	if !ui.SetTheme(cfg.Theme) {
		ui.Warn(cmd.ErrOrStderr(), fmt.Sprintf("unknown theme %q, using classic", cfg.Theme))
	}

	logger, closer, err := cfg.Logger()
	if err != nil {
		return err
	}
	app.cfg, app.logger, app.closer = cfg, logger, closer
	app.client = api.New(cfg.APIURL, api.WithLogger(logger))
	app.store = credstore.New(cfg.Dir)
	app.sess = session.New(app.client, app.store, logger)
	app.stdin = bufio.NewReader(cmd.InOrStdin())
	logger.Debug("config", slog.String("api", cfg.APIURL), slog.String("dir", cfg.Dir))
	return nil
}

func runTUI(cmd *cobra.Command, app *App) error {
	err := tui.Run(cmd.Context(), app.sess, tui.Options{
		PageSize: app.cfg.PageSize,
		Logger:   app.logger,
	})
	if err != nil {
		return writeErr(cmd, err)
	}
	return nil
}

var (
	errNotLoggedIn    = errors.New("not logged in (run `todo login`)")
	errSessionExpired = errors.New("session expired (run `todo login`)")
)

// requireLogin restores the stored session and fails unless it is valid.
func (app *App) requireLogin(cmd *cobra.Command) error {
	if err := app.sess.Restore(cmd.Context()); err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return fmt.Errorf("%w: %w", errSessionExpired, err)
		}
		return err
	}
	if app.sess.State() != session.Authenticated {
		return errNotLoggedIn
	}
	return nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// usageError marks bad invocations; they exit with status 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, a ...any) error { return usageError{fmt.Errorf(format, a...)} }

// ExitCode maps an error returned by Execute to the process status:
// 0 ok, 2 usage, 1 anything else.
func ExitCode(err error) int {
	var ue usageError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &ue):
		return 2
	}
	return 1
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return writeErr(cmd, usagef("unknown command %q for %q", args[0], cmd.CommandPath()))
	}
	return nil
}

func exactArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return writeErr(cmd, usagef("usage: %s", usage))
		}
		return nil
	}
}

func maxArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) > n {
			return writeErr(cmd, usagef("usage: %s", usage))
		}
		return nil
	}
}

func minArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return writeErr(cmd, usagef("usage: %s", usage))
		}
		return nil
	}
}

// writeErr prints err for humans and returns it for the exit status.
func writeErr(cmd *cobra.Command, err error) error {
	ui.Fail(cmd.ErrOrStderr(), errorText(err))
	return err
}

// fail is writeErr for commands that talk to the API. A 401 ends the
// stored session before the error is printed.
func (app *App) fail(cmd *cobra.Command, err error) error {
	if app.sess != nil && app.sess.State() == session.Authenticated && app.sess.HandleError(err) {
		err = fmt.Errorf("%w: %w", errSessionExpired, err)
	}
	return writeErr(cmd, err)
}

func errorText(err error) string {
	var ve *validate.Error
	var ue usageError
	switch {
	case errors.Is(err, errSessionExpired):
		return errSessionExpired.Error()
	case errors.As(err, &ve), errors.As(err, &ue):
		return err.Error()
	case errors.Is(err, api.ErrInvalidCredentials):
		return "incorrect email or password"
	}
	return api.Message(err)
}
