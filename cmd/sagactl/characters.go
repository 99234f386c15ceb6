package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCharactersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "characters",
		Short: "Manage saved characters",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <world-id> <character-id>",
		Short: "Delete a saved character from a world",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, cleanup, err := openLibrary(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			removed, err := lib.DeleteCharacter(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("no character %q in world %q", args[1], args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), good.Render("Deleted character "+args[1]))
			return nil
		},
	})
	return cmd
}
