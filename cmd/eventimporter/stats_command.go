package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"eventimporter/internal/store"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache and submission statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				eventStats, err := st.EventStats(cmd.Context())
				if err != nil {
					return err
				}
				submissionStats, err := st.SubmissionStats(cmd.Context())
				if err != nil {
					return err
				}
				trend, err := st.EventTrend(cmd.Context(), days)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "Events")
				writeDetail(out, "Total", fmt.Sprintf("%d", eventStats.TotalEvents))
				writeDetail(out, "Today", fmt.Sprintf("%d", eventStats.EventsToday))
				writeDetail(out, "This week", fmt.Sprintf("%d", eventStats.EventsThisWeek))
				writeDetail(out, "Submitted", fmt.Sprintf("%d", eventStats.WithSubmissions))
				writeDetail(out, "Unsubmitted", fmt.Sprintf("%d", eventStats.Unsubmitted))

				fmt.Fprintln(out, "Submissions")
				writeDetail(out, "Total", fmt.Sprintf("%d", submissionStats.Total))
				if submissionStats.Total > 0 {
					writeDetail(out, "Success rate", fmt.Sprintf("%.2f%%", submissionStats.SuccessRate))
					table := renderTable(
						[]string{"Status", "Count"},
						buildStatusRows(submissionStats.ByStatus),
						[]columnAlignment{alignLeft, alignRight},
					)
					fmt.Fprintln(out, table)
					table = renderTable(
						[]string{"Service", "Count"},
						buildServiceRows(submissionStats.ByService),
						[]columnAlignment{alignLeft, alignRight},
					)
					fmt.Fprintln(out, table)
				}

				fmt.Fprintf(out, "Imports (last %d days)\n", len(trend))
				rows := make([][]string, 0, len(trend))
				for _, day := range trend {
					rows = append(rows, []string{day.Date, fmt.Sprintf("%d", day.Count)})
				}
				table := renderTable(
					[]string{"Date", "Imports"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				)
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "Days of import history to chart")
	return cmd
}

func buildStatusRows(byStatus map[store.SubmissionStatus]int) [][]string {
	keys := make([]string, 0, len(byStatus))
	for status := range byStatus {
		keys = append(keys, string(status))
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{key, fmt.Sprintf("%d", byStatus[store.SubmissionStatus(key)])})
	}
	return rows
}

func buildServiceRows(byService map[string]int) [][]string {
	keys := make([]string, 0, len(byService))
	for service := range byService {
		keys = append(keys, service)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{key, fmt.Sprintf("%d", byService[key])})
	}
	return rows
}
