package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"eventimporter/internal/store"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <url|id>",
		Short: "Show a cached event and its submission history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				entry, err := resolveEntry(cmd.Context(), st, args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				record := entry.Record
				fmt.Fprintf(out, "Event %d: %s\n", entry.ID, record.Title)
				writeDetail(out, "Source URL", entry.SourceURL)
				writeDetail(out, "Venue", displayValue(record.Venue))
				writeDetail(out, "Date", displayValue(record.Date))
				if record.EndDate != "" {
					writeDetail(out, "End date", record.EndDate)
				}
				writeDetail(out, "Time", formatTimeRange(record.Time))
				writeDetail(out, "Cost", displayValue(record.Cost))
				writeDetail(out, "Minimum age", displayValue(record.MinimumAge))
				writeDetail(out, "Lineup", displayList(record.Lineup))
				writeDetail(out, "Genres", displayList(record.Genres))
				writeDetail(out, "Promoters", displayList(record.Promoters))
				writeDetail(out, "Ticket URL", displayValue(record.TicketURL))
				if record.ShortDescription != "" {
					writeDetail(out, "Summary", truncateCell(record.ShortDescription, 100))
				}
				writeDetail(out, "Imported", formatDisplayTime(entry.ScrapedAt))
				writeDetail(out, "Updated", formatDisplayTime(entry.UpdatedAt))
				writeDetail(out, "Hash", formatHash(entry.DataHash))

				subs, err := st.SubmissionsForEvent(cmd.Context(), entry.ID)
				if err != nil {
					return err
				}
				if len(subs) == 0 {
					fmt.Fprintln(out, "No submissions recorded")
					return nil
				}
				fmt.Fprintln(out, "Submissions:")
				table := renderTable(
					[]string{"ID", "Service", "Status", "Retries", "Submitted", "Detail"},
					buildSubmissionRows(subs),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				)
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}
}
