package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"eventimporter/internal/events"
	"eventimporter/internal/importer"
	"eventimporter/internal/progress"
	"eventimporter/internal/sources"
	"eventimporter/internal/store"
)

type importView struct {
	ImportID  string             `json:"import_id"`
	URL       string             `json:"url"`
	Success   bool               `json:"success"`
	FromCache bool               `json:"from_cache"`
	Method    string             `json:"method,omitempty"`
	ElapsedMS int64              `json:"elapsed_ms"`
	EventID   int64              `json:"event_id,omitempty"`
	Error     string             `json:"error,omitempty"`
	Attempts  []importer.Attempt `json:"attempts,omitempty"`
	Event     *events.Record     `json:"event,omitempty"`
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	var methodFlag string
	var timeoutSeconds int
	var ignoreCache bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "import <url>",
		Short: "Import event metadata from a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var method sources.Method
			if methodFlag != "" {
				parsed, ok := sources.ParseMethod(methodFlag)
				if !ok {
					return fmt.Errorf("unknown method %q (expected api, web, or image)", methodFlag)
				}
				method = parsed
			}

			return ctx.withStore(func(st *store.Store) error {
				hub := progress.NewHub(0)
				imp, err := ctx.buildImporter(st, hub)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				importID := uuid.NewString()

				done := make(chan struct{})
				stopProgress := func() {}
				if isTerminal(out) && !jsonOutput {
					updates, cancel := hub.Subscribe(importID, 64)
					stopProgress = cancel
					go func() {
						defer close(done)
						for update := range updates {
							fmt.Fprintf(out, "  [%3.0f%%] %s\n", update.Progress*100, update.Message)
						}
					}()
				} else {
					close(done)
				}

				result := imp.Import(cmd.Context(), args[0], importer.Options{
					ImportID:    importID,
					ForceMethod: method,
					Timeout:     time.Duration(timeoutSeconds) * time.Second,
					IgnoreCache: ignoreCache,
				})
				stopProgress()
				<-done

				if jsonOutput {
					if err := writeJSON(cmd, buildImportView(result)); err != nil {
						return err
					}
					return result.Err
				}

				if !result.Success {
					writeAttempts(cmd, result.Attempts)
					return result.Err
				}

				title := ""
				if result.Record != nil {
					title = result.Record.Title
				}
				fmt.Fprintf(out, "Imported: %s\n", title)
				if result.Entry != nil {
					writeDetail(out, "Event ID", fmt.Sprintf("%d", result.Entry.ID))
				}
				writeDetail(out, "Method", string(result.MethodUsed))
				if result.FromCache {
					writeDetail(out, "Cache", "hit (use --ignore-cache to refresh)")
				}
				writeDetail(out, "Elapsed", result.ImportTime.Round(time.Millisecond).String())
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&methodFlag, "method", "m", "", "Force a single strategy: api, web, or image")
	cmd.Flags().IntVar(&timeoutSeconds, "timeout", 0, "Total import budget in seconds (default from config)")
	cmd.Flags().BoolVar(&ignoreCache, "ignore-cache", false, "Re-extract even when the URL is already cached")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the result as JSON")
	return cmd
}

func buildImportView(result *importer.Result) importView {
	view := importView{
		ImportID:  result.ImportID,
		URL:       result.URL,
		Success:   result.Success,
		FromCache: result.FromCache,
		Method:    string(result.MethodUsed),
		ElapsedMS: result.ImportTime.Milliseconds(),
		Error:     result.ErrorMessage(),
		Attempts:  result.Attempts,
		Event:     result.Record,
	}
	if result.Entry != nil {
		view.EventID = result.Entry.ID
	}
	return view
}

func writeAttempts(cmd *cobra.Command, attempts []importer.Attempt) {
	if len(attempts) == 0 {
		return
	}
	rows := make([][]string, 0, len(attempts))
	for _, attempt := range attempts {
		rows = append(rows, []string{
			attempt.Source,
			string(attempt.Method),
			attempt.Code,
			truncateCell(attempt.Error, 60),
			attempt.Elapsed.Round(time.Millisecond).String(),
		})
	}
	table := renderTable(
		[]string{"Strategy", "Method", "Code", "Error", "Elapsed"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	)
	fmt.Fprintln(cmd.OutOrStdout(), table)
}
