package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"eventimporter/internal/store"
)

func newUpdateCommand(ctx *commandContext) *cobra.Command {
	var setPairs []string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Patch fields on a cached event",
		Long: "Patch fields on a cached event. Values parse as JSON when possible, so " +
			"--set cost=0 stores the number zero and --set 'lineup=[\"A\",\"B\"]' stores a " +
			"list; anything else is kept as a string. The merged record is re-validated " +
			"and re-hashed before it is persisted.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid event id %q", args[0])
			}
			if len(setPairs) == 0 {
				return errors.New("nothing to update; pass at least one --set field=value")
			}

			patch := make(map[string]any, len(setPairs))
			for _, pair := range setPairs {
				field, raw, ok := strings.Cut(pair, "=")
				field = strings.TrimSpace(field)
				if !ok || field == "" {
					return fmt.Errorf("invalid --set %q (expected field=value)", pair)
				}
				patch[field] = parsePatchValue(raw)
			}

			return ctx.withStore(func(st *store.Store) error {
				entry, err := st.UpdateEvent(cmd.Context(), id, patch)
				if err != nil {
					return err
				}
				if entry == nil {
					return fmt.Errorf("no cached event with id %d", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated event %d: %s\n", entry.ID, entry.Record.Title)
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVar(&setPairs, "set", nil, "Field assignment as field=value (repeatable)")
	return cmd
}

// parsePatchValue decodes a --set value. Valid JSON passes through typed, so
// numbers, lists, objects, and null (field removal) work; everything else is
// a plain string.
func parsePatchValue(raw string) any {
	trimmed := strings.TrimSpace(raw)
	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		return parsed
	}
	return raw
}
