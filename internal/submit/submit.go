// Package submit delivers cached events to external ticketing services. A
// batch run selects entries from the store, opens a pending ledger row per
// event, hands the record to a Sink, and settles each row as success,
// failed, or dry_run. A file lock keeps concurrent runs from double-sending.
package submit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"eventimporter/internal/events"
	"eventimporter/internal/logging"
	"eventimporter/internal/store"
)

// ErrBatchInProgress reports that another submit run holds the batch lock.
var ErrBatchInProgress = errors.New("another submit run is already in progress")

// Sink delivers one event to an external service and returns the service
// response payload. Implementations must be safe for sequential reuse across
// a batch.
type Sink interface {
	Name() string
	Submit(ctx context.Context, record *events.Record) (string, error)
}

// dryRunner marks sinks that validate without delivering. Submissions routed
// through such a sink settle as dry_run instead of success.
type dryRunner interface {
	DryRun() bool
}

// Notifier receives a push once a live batch settles.
type Notifier interface {
	NotifyBatchCompleted(ctx context.Context, service string, submitted, failed int, duration time.Duration) error
}

// Options control which cached events one batch run targets.
type Options struct {
	// Selector picks the store selection strategy; defaults to unsubmitted.
	Selector store.Selector
	// URL identifies the event for the url selector; other selectors ignore
	// it.
	URL string
	// IncludeSubmitted lifts the resubmission guard on the url and all
	// selectors.
	IncludeSubmitted bool
}

// Outcome records how one event fared within a batch.
type Outcome struct {
	EventID      int64                  `json:"event_id"`
	SubmissionID int64                  `json:"submission_id"`
	SourceURL    string                 `json:"source_url"`
	Title        string                 `json:"title"`
	Status       store.SubmissionStatus `json:"status"`
	Error        string                 `json:"error,omitempty"`
}

// BatchReport summarizes a submit run.
type BatchReport struct {
	BatchID   string         `json:"batch_id"`
	Service   string         `json:"service"`
	Selector  store.Selector `json:"selector"`
	Total     int            `json:"total"`
	Submitted int            `json:"submitted"`
	Failed    int            `json:"failed"`
	DryRun    int            `json:"dry_run"`
	Duration  time.Duration  `json:"duration"`
	Outcomes  []Outcome      `json:"outcomes,omitempty"`
}

// Submitter runs submission batches against one sink.
type Submitter struct {
	store    *store.Store
	sink     Sink
	lockPath string
	notifier Notifier
	logger   *slog.Logger
}

// New wires a submitter. The notifier may be nil; batch pushes are skipped.
func New(st *store.Store, sink Sink, lockPath string, notifier Notifier, logger *slog.Logger) (*Submitter, error) {
	if st == nil {
		return nil, errors.New("submit: store is required")
	}
	if sink == nil {
		return nil, errors.New("submit: sink is required")
	}
	if strings.TrimSpace(sink.Name()) == "" {
		return nil, errors.New("submit: sink must have a service name")
	}
	if strings.TrimSpace(lockPath) == "" {
		return nil, errors.New("submit: lock path is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Submitter{
		store:    st,
		sink:     sink,
		lockPath: lockPath,
		notifier: notifier,
		logger:   logger.With(logging.String(logging.FieldComponent, "submit")),
	}, nil
}

// Run executes one batch: select, open pending rows, deliver, settle. The
// returned report is valid even when err is non-nil; a context cancellation
// mid-batch leaves the in-flight row pending so a later run can resume it.
func (s *Submitter) Run(ctx context.Context, opts Options) (*BatchReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	selector := opts.Selector
	if selector == "" {
		selector = store.SelectorUnsubmitted
	}

	service := s.sink.Name()
	report := &BatchReport{
		BatchID:  uuid.NewString(),
		Service:  service,
		Selector: selector,
	}

	lock := flock.New(s.lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return report, fmt.Errorf("acquire submit lock: %w", err)
	}
	if !ok {
		return report, ErrBatchInProgress
	}
	defer func() {
		_ = lock.Unlock()
	}()

	start := time.Now()
	logger := s.logger.With(
		logging.String(logging.FieldService, service),
		logging.String(logging.FieldBatchID, report.BatchID))

	entries, err := s.store.SelectForSubmission(ctx, store.Selection{
		Selector:         selector,
		Service:          service,
		URL:              opts.URL,
		IncludeSubmitted: opts.IncludeSubmitted,
	})
	if err != nil {
		return report, fmt.Errorf("select events: %w", err)
	}
	report.Total = len(entries)
	if len(entries) == 0 {
		report.Duration = time.Since(start)
		logger.Info("no events matched selection",
			logging.String(logging.FieldEventType, "batch_empty"),
			logging.String("selector", string(selector)))
		return report, nil
	}

	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.String("selector", string(selector)),
		logging.Int("events", len(entries)))

	_, dryRun := s.sink.(dryRunner)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			return report, fmt.Errorf("batch interrupted: %w", err)
		}
		outcome := s.submitOne(ctx, entry, report.BatchID, dryRun, logger)
		report.Outcomes = append(report.Outcomes, outcome)
		switch outcome.Status {
		case store.SubmissionSuccess:
			report.Submitted++
		case store.SubmissionDryRun:
			report.DryRun++
		default:
			report.Failed++
		}
	}
	report.Duration = time.Since(start)

	logger.Info("batch finished",
		logging.String(logging.FieldEventType, "batch_done"),
		logging.Int("submitted", report.Submitted),
		logging.Int("failed", report.Failed),
		logging.Int("dry_run", report.DryRun),
		logging.Duration("duration", report.Duration))

	if s.notifier != nil && !dryRun {
		if err := s.notifier.NotifyBatchCompleted(ctx, service, report.Submitted, report.Failed, report.Duration); err != nil {
			logger.Debug("batch notification failed", logging.Error(err))
		}
	}
	return report, nil
}

func (s *Submitter) submitOne(ctx context.Context, entry *store.Entry, batchID string, dryRun bool, logger *slog.Logger) Outcome {
	outcome := Outcome{
		EventID:   entry.ID,
		SourceURL: entry.SourceURL,
	}
	if entry.Record != nil {
		outcome.Title = entry.Record.Title
	}

	sub, created, err := s.store.EnsurePendingSubmission(ctx, entry.ID, s.sink.Name(), batchID)
	if err != nil {
		outcome.Status = store.SubmissionFailed
		outcome.Error = err.Error()
		logging.ErrorWithContext(logger, "could not open submission", "submission_open_failed",
			logging.Int64("event_id", entry.ID),
			logging.Error(err))
		return outcome
	}
	outcome.SubmissionID = sub.ID
	if !created {
		logger.Debug("retrying pending submission",
			logging.Int64("event_id", entry.ID),
			logging.Int("retry_count", sub.RetryCount))
	}

	if dryRun {
		if err := s.store.MarkSubmissionDryRun(ctx, sub.ID); err != nil {
			outcome.Status = store.SubmissionFailed
			outcome.Error = err.Error()
			return outcome
		}
		outcome.Status = store.SubmissionDryRun
		logger.Info("dry run",
			logging.String(logging.FieldEventType, "submission_dry_run"),
			logging.Int64("event_id", entry.ID),
			logging.String("title", outcome.Title))
		return outcome
	}

	response, err := s.sink.Submit(ctx, entry.Record)
	if err != nil {
		outcome.Status = store.SubmissionFailed
		outcome.Error = err.Error()
		if markErr := s.store.MarkSubmissionFailed(ctx, sub.ID, err.Error()); markErr != nil {
			logger.Error("could not record failure", logging.Error(markErr))
		}
		logging.WarnWithContext(logger, "submission failed", "submission_failed",
			logging.Int64("event_id", entry.ID),
			logging.String("title", outcome.Title),
			logging.String(logging.FieldErrorHint, "retry with --selector failed once the service recovers"),
			logging.String(logging.FieldImpact, "event stays selectable for retry"),
			logging.Error(err))
		return outcome
	}

	if err := s.store.MarkSubmissionSuccess(ctx, sub.ID, response); err != nil {
		outcome.Status = store.SubmissionFailed
		outcome.Error = err.Error()
		logger.Error("could not record success", logging.Error(err))
		return outcome
	}
	outcome.Status = store.SubmissionSuccess
	logger.Info("submitted",
		logging.String(logging.FieldEventType, "submission_success"),
		logging.Int64("event_id", entry.ID),
		logging.String("title", outcome.Title))
	return outcome
}
