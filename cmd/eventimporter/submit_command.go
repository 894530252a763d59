package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"eventimporter/internal/store"
	"eventimporter/internal/submit"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var serviceFlag string
	var selectorFlag string
	var urlFlag string
	var live bool
	var includeSubmitted bool

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit cached events to a third-party service",
		Long: "Submit cached events to a third-party service. Runs are dry by default: " +
			"the batch is selected and recorded in the submission ledger without any " +
			"delivery. Pass --live to deliver through the configured webhook endpoint.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()

			service := resolveService(ctx, serviceFlag)
			if service == "" {
				return errors.New("no submission service; pass --service or set submission.default_service")
			}

			selector := store.SelectorUnsubmitted
			if selectorFlag != "" {
				parsed, err := store.ParseSelector(selectorFlag)
				if err != nil {
					return err
				}
				selector = parsed
			} else if strings.TrimSpace(urlFlag) != "" {
				selector = store.SelectorURL
			}
			if strings.TrimSpace(urlFlag) != "" && selector != store.SelectorURL {
				return fmt.Errorf("--url only applies to --selector url, not %q", selector)
			}

			var sink submit.Sink
			if live {
				if strings.TrimSpace(cfg.Submission.Endpoint) == "" {
					return errors.New("live submits need submission.endpoint in the config")
				}
				webhook, err := submit.NewWebhookSink(
					service,
					cfg.Submission.Endpoint,
					cfg.Submission.AuthToken,
					time.Duration(cfg.Submission.RequestTimeout)*time.Second,
				)
				if err != nil {
					return err
				}
				sink = webhook
			} else {
				sink = submit.NewDryRunSink(service)
			}

			return ctx.withStore(func(st *store.Store) error {
				submitter, err := submit.New(st, sink, cfg.SubmitLockPath(), ctx.notifier(), ctx.pipelineLogger())
				if err != nil {
					return err
				}

				report, err := submitter.Run(cmd.Context(), submit.Options{
					Selector:         selector,
					URL:              strings.TrimSpace(urlFlag),
					IncludeSubmitted: includeSubmitted,
				})
				if err != nil {
					if errors.Is(err, submit.ErrBatchInProgress) {
						return fmt.Errorf("%w (lock file %s)", err, cfg.SubmitLockPath())
					}
					return err
				}

				out := cmd.OutOrStdout()
				if report.Total == 0 {
					fmt.Fprintf(out, "No events matched selector %q for %s\n", report.Selector, report.Service)
					return nil
				}

				if !live {
					fmt.Fprintf(out, "Dry run against %s; nothing was delivered (pass --live to submit)\n", report.Service)
				}

				rows := make([][]string, 0, len(report.Outcomes))
				for _, outcome := range report.Outcomes {
					rows = append(rows, []string{
						fmt.Sprintf("%d", outcome.EventID),
						truncateCell(outcome.Title, 40),
						string(outcome.Status),
						truncateCell(outcome.Error, 50),
					})
				}
				table := renderTable(
					[]string{"ID", "Title", "Status", "Error"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(out, table)

				fmt.Fprintf(out, "Batch %s: %d selected, %d submitted, %d failed, %d dry-run in %s\n",
					report.BatchID,
					report.Total,
					report.Submitted,
					report.Failed,
					report.DryRun,
					report.Duration.Round(time.Millisecond),
				)
				if report.Failed > 0 {
					fmt.Fprintln(out, "Retry failures with --selector failed once the service recovers")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&serviceFlag, "service", "", "Service to submit to (default from config)")
	cmd.Flags().StringVar(&selectorFlag, "selector", "", "Which events to pick: unsubmitted, failed, pending, all, or url (default unsubmitted)")
	cmd.Flags().StringVar(&urlFlag, "url", "", "Source URL for the url selector")
	cmd.Flags().BoolVar(&live, "live", false, "Deliver for real instead of recording a dry run")
	cmd.Flags().BoolVar(&includeSubmitted, "include-submitted", false, "Let url and all selections pick already-submitted events")
	return cmd
}
