package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"eventimporter/internal/store"
)

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <url|id>",
		Short: "Remove a cached event and its submission history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				entry, err := resolveEntry(cmd.Context(), st, args[0])
				if err != nil {
					return err
				}
				removed, err := st.DeleteEntry(cmd.Context(), entry.SourceURL)
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("no cached event for %s", entry.SourceURL)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed event %d (%s)\n", entry.ID, entry.SourceURL)
				return nil
			})
		},
	}
}
