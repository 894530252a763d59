package submit

import (
	"context"
	"strings"

	"eventimporter/internal/events"
)

// DryRunSink stands in for a real service during rehearsal runs. Events
// routed through it settle as dry_run in the ledger and never leave the
// machine.
type DryRunSink struct {
	service string
}

// NewDryRunSink labels a rehearsal sink with the service name the ledger
// rows should carry.
func NewDryRunSink(service string) DryRunSink {
	return DryRunSink{service: strings.TrimSpace(service)}
}

// Name returns the service name the dry run rehearses against.
func (d DryRunSink) Name() string { return d.service }

// DryRun marks the sink as non-delivering.
func (d DryRunSink) DryRun() bool { return true }

// Submit never runs: the submitter settles dry-run rows without delivery.
// It exists so DryRunSink satisfies Sink.
func (d DryRunSink) Submit(context.Context, *events.Record) (string, error) {
	return `{"dry_run":true}`, nil
}
