package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"eventimporter/internal/store"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var selectorFlag string
	var serviceFlag string
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached events",
		Long: "List cached events, newest first. With --selector the listing previews " +
			"exactly what a submit run with the same selector would pick.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				var (
					entries []*store.Entry
					err     error
				)

				if selectorFlag == "" {
					entries, err = st.ListEntries(cmd.Context(), limitFlag)
				} else {
					selector, parseErr := store.ParseSelector(selectorFlag)
					if parseErr != nil {
						return parseErr
					}
					service := resolveService(ctx, serviceFlag)
					if service == "" {
						return fmt.Errorf("selector %q needs --service or submission.default_service", selector)
					}
					entries, err = st.SelectForSubmission(cmd.Context(), store.Selection{
						Selector: selector,
						Service:  service,
					})
				}
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No cached events")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Title", "Date", "Venue", "Updated"},
					buildEntryRows(entries),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&selectorFlag, "selector", "s", "", "Preview a submit selection: unsubmitted, failed, pending, all, or url")
	cmd.Flags().StringVar(&serviceFlag, "service", "", "Service the selector applies to (default from config)")
	cmd.Flags().IntVar(&limitFlag, "limit", 0, "Maximum rows to show (0 shows everything)")
	return cmd
}

// resolveService picks the submission service from the flag or the
// configured default.
func resolveService(ctx *commandContext, flag string) string {
	service := strings.TrimSpace(flag)
	if service != "" {
		return service
	}
	if cfg := ctx.configValue(); cfg != nil {
		return strings.TrimSpace(cfg.Submission.DefaultService)
	}
	return ""
}
