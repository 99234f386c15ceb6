package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/saga-engine/pkg/library"
	"github.com/jwebster45206/saga-engine/pkg/world"
)

func newWorldsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worlds",
		Short: "List, export and delete worlds",
	}
	cmd.AddCommand(newWorldsListCmd(), newWorldsExportCmd(), newWorldsDeleteCmd())
	return cmd
}

func newWorldsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every world with its characters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, cleanup, err := openLibrary(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			worlds, err := lib.Worlds()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(worlds) == 0 {
				fmt.Fprintln(out, muted.Render("No worlds yet."))
				return nil
			}
			for _, w := range worlds {
				fmt.Fprintf(out, "%s %s\n", title.Render(w.Name), muted.Render("("+w.ID+")"))
				for _, sc := range w.Characters {
					fmt.Fprintf(out, "  %s  level %d, turn %d, %d gold %s\n",
						sc.Character.Name, sc.Character.Level, sc.TurnCount, sc.Character.Gold,
						muted.Render("("+sc.Character.ID+")"))
				}
			}
			return nil
		},
	}
}

func newWorldsExportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export [world-id]",
		Short: "Export worlds as YAML",
		Long:  "Export every world, or the one given, as a YAML document. Writes to stdout unless --output is set.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, cleanup, err := openLibrary(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			var worlds []world.World
			if len(args) == 1 {
				w, err := lib.World(args[0])
				if err != nil {
					return err
				}
				worlds = []world.World{*w}
			} else if worlds, err = lib.Worlds(); err != nil {
				return err
			}

			var out io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				out = f
			}
			return library.ExportYAML(out, worlds)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func newWorldsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <world-id>",
		Short: "Delete a world and every character in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, cleanup, err := openLibrary(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := lib.DeleteWorld(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, library.ErrWorldNotFound) {
					return fmt.Errorf("no world with id %q", args[0])
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), good.Render("Deleted world "+args[0]))
			return nil
		},
	}
}
