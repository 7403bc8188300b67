package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/idilsaglam/todoclient/internal/store/credstore"
	"github.com/idilsaglam/todoclient/internal/ui"
)

func newLoginCmd(app *App) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login [email]",
		Short: "Log in and remember the session",
		Args:  maxArgs(1, "todo login [email]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := app.argOrPrompt(cmd, args, "Email: ")
			if err != nil {
				return writeErr(cmd, err)
			}
			if password == "" {
				if password, err = app.readSecret(cmd, "Password: "); err != nil {
					return writeErr(cmd, err)
				}
			}
			if err := app.sess.Login(cmd.Context(), email, password); err != nil {
				return writeErr(cmd, err)
			}
			ui.OK(cmd.OutOrStdout(), "logged in as "+app.sess.User().Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	return cmd
}

func newRegisterCmd(app *App) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "register [email]",
		Short: "Create an account",
		Args:  maxArgs(1, "todo register [email]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := app.argOrPrompt(cmd, args, "Email: ")
			if err != nil {
				return writeErr(cmd, err)
			}
			confirm := password
			if password == "" {
				if password, err = app.readSecret(cmd, "Password: "); err != nil {
					return writeErr(cmd, err)
				}
				if confirm, err = app.readSecret(cmd, "Repeat password: "); err != nil {
					return writeErr(cmd, err)
				}
			}
			u, err := app.sess.Register(cmd.Context(), email, password, confirm)
			if err != nil {
				return writeErr(cmd, err)
			}
			ui.OK(cmd.OutOrStdout(), fmt.Sprintf("account created for %s, now run `todo login`", u.Email))
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted twice when omitted)")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.sess.Logout()
			ui.OK(cmd.OutOrStdout(), "logged out")
			if os.Getenv(credstore.EnvToken) != "" {
				ui.Warn(cmd.ErrOrStderr(), credstore.EnvToken+" is still set and will be used")
			}
			return nil
		},
	}
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Aliases: []string{"whoami"},
		Short:   "Show who is logged in",
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(cmd); err != nil {
				return app.fail(cmd, err)
			}
			ti, err := app.store.Load()
			if err != nil {
				return app.fail(cmd, err)
			}
			u := app.sess.User()
			lines := []string{
				ui.C(ui.Current().Title, "Session"),
				"",
				fmt.Sprintf("%-8s %s", "user", u.Email),
				fmt.Sprintf("%-8s %s", "api", app.cfg.APIURL),
			}
			if ti != nil {
				lines = append(lines, fmt.Sprintf("%-8s %s", "token", ti.Source))
				if ti.ExpiresAt != nil {
					left := ti.ExpiresAt.Sub(app.now()).Round(time.Minute)
					lines = append(lines, fmt.Sprintf("%-8s %s (in %s)", "expires", ti.ExpiresAt.Local().Format(time.RFC1123), left))
				}
				if claims, ok := credstore.Claims(ti.Token); ok {
					if sub, _ := claims.GetSubject(); sub != "" {
						lines = append(lines, fmt.Sprintf("%-8s %s", "subject", sub))
					}
				}
			}
			ui.Panel(cmd.OutOrStdout(), lines)
			return nil
		},
	}
}

func (app *App) argOrPrompt(cmd *cobra.Command, args []string, prompt string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	return app.readLine()
}

// readSecret reads without echo from a terminal, else one line of input.
func (app *App) readSecret(cmd *cobra.Command, prompt string) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		return string(b), err
	}
	return app.readLine()
}

func (app *App) readLine() (string, error) {
	s, err := app.stdin.ReadString('\n')
	if err != nil && (err != io.EOF || s == "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(s, "\r\n"), nil
}
