package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/todoclient/internal/model"
	"github.com/idilsaglam/todoclient/internal/ui"
	"github.com/idilsaglam/todoclient/internal/validate"
)

func newTagsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Manage tags",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listTags(cmd, app)
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List tags",
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listTags(cmd, app)
		},
	})
	cmd.AddCommand(newTagAddCmd(app))
	cmd.AddCommand(newTagRenameCmd(app))
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a tag (todos keep existing without it)",
		Args:  exactArgs(1, "todo tags rm <name>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(cmd); err != nil {
				return app.fail(cmd, err)
			}
			tg, err := app.lookupTag(cmd, args[0])
			if err != nil {
				return app.fail(cmd, err)
			}
			if err := app.client.DeleteTag(cmd.Context(), tg.ID); err != nil {
				return app.fail(cmd, err)
			}
			ui.OK(cmd.OutOrStdout(), "removed tag #"+tg.Name)
			return nil
		},
	})
	return cmd
}

func listTags(cmd *cobra.Command, app *App) error {
	if err := app.requireLogin(cmd); err != nil {
		return app.fail(cmd, err)
	}
	tags, err := app.client.ListTags(cmd.Context())
	if err != nil {
		return app.fail(cmd, err)
	}
	th := ui.Current()
	lines := []string{ui.C(th.Title, "Tags") + "  " + ui.C(th.Muted, fmt.Sprintf("%d", len(tags))), ""}
	if len(tags) == 0 {
		lines = append(lines, ui.C(th.Muted, "no tags yet"), "", ui.C(th.Muted, "Tip: `todo tags add home`"))
	}
	for _, tg := range tags {
		lines = append(lines, fmt.Sprintf("%s  %s", ui.Tag(tg), ui.C(th.Muted, tg.Color)))
	}
	ui.Panel(cmd.OutOrStdout(), lines)
	return nil
}

func newTagAddCmd(app *App) *cobra.Command {
	var color string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a tag",
		Args:  exactArgs(1, "todo tags add <name> [--color #rrggbb]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := model.TagInput{Name: strings.TrimPrefix(strings.TrimSpace(args[0]), "#"), Color: color}
			if in.Color == "" {
				in.Color = model.DefaultTagColor
			}
			if err := validate.Struct(in); err != nil {
				return app.fail(cmd, err)
			}
			if err := app.requireLogin(cmd); err != nil {
				return app.fail(cmd, err)
			}
			tg, err := app.client.CreateTag(cmd.Context(), in)
			if err != nil {
				return app.fail(cmd, err)
			}
			ui.OK(cmd.OutOrStdout(), "created tag "+ui.Tag(tg))
			return nil
		},
	}
	cmd.Flags().StringVarP(&color, "color", "c", "", "Color as #rrggbb (one of "+strings.Join(model.TagPalette[:4], ", ")+", ...)")
	return cmd
}

func newTagRenameCmd(app *App) *cobra.Command {
	var color string
	cmd := &cobra.Command{
		Use:   "edit <name> [new-name]",
		Short: "Rename or recolor a tag",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 || len(args) > 2 {
				return writeErr(cmd, usagef("usage: todo tags edit <name> [new-name] [--color #rrggbb]"))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && color == "" {
				return writeErr(cmd, usagef("nothing to change; give a new name or --color"))
			}
			if err := app.requireLogin(cmd); err != nil {
				return app.fail(cmd, err)
			}
			tg, err := app.lookupTag(cmd, args[0])
			if err != nil {
				return app.fail(cmd, err)
			}
			in := model.TagInput{Name: tg.Name, Color: tg.Color}
			if len(args) == 2 {
				in.Name = strings.TrimPrefix(strings.TrimSpace(args[1]), "#")
			}
			if color != "" {
				in.Color = color
			}
			if err := validate.Struct(in); err != nil {
				return app.fail(cmd, err)
			}
			out, err := app.client.UpdateTag(cmd.Context(), tg.ID, in)
			if err != nil {
				return app.fail(cmd, err)
			}
			ui.OK(cmd.OutOrStdout(), "updated tag "+ui.Tag(out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&color, "color", "c", "", "New color as #rrggbb")
	return cmd
}

func (app *App) lookupTag(cmd *cobra.Command, name string) (model.Tag, error) {
	known, err := app.client.ListTags(cmd.Context())
	if err != nil {
		return model.Tag{}, err
	}
	tg, ok := findTag(known, name)
	if !ok {
		return model.Tag{}, fmt.Errorf("unknown tag %q", name)
	}
	return tg, nil
}
