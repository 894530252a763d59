// Package importer runs the import pipeline end to end: classify the URL,
// try the ordered strategies until one produces a valid record, fill
// missing genres, and persist the result to the event cache. One import is
// strictly sequential; independent imports may run concurrently over the
// same store.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"eventimporter/internal/classify"
	"eventimporter/internal/config"
	"eventimporter/internal/events"
	"eventimporter/internal/logging"
	"eventimporter/internal/progress"
	"eventimporter/internal/sources"
	"eventimporter/internal/store"
)

const defaultTotalTimeout = 2 * time.Minute

// GenreInferrer is the model surface for genre enhancement.
type GenreInferrer interface {
	Available() bool
	InferGenres(ctx context.Context, artist, eventTitle, venue string) ([]string, error)
}

// Notifier pushes human-facing alerts about import outcomes. Implementations
// must tolerate being called from concurrent imports.
type Notifier interface {
	NotifyImportCompleted(ctx context.Context, title, method string) error
	NotifyImportFailed(ctx context.Context, url, reason string) error
}

// Options control one import run.
type Options struct {
	// ImportID keys progress updates so callers can subscribe before the
	// run starts. A fresh UUID is generated when empty.
	ImportID string
	// ForceMethod runs exactly one strategy instead of the fallback chain.
	ForceMethod sources.Method
	// Timeout overrides the configured total budget.
	Timeout time.Duration
	// IgnoreCache forces a fresh extraction even when the URL is cached.
	IgnoreCache bool
}

// Importer coordinates classification, strategy fallback, enhancement, and
// persistence for event imports.
type Importer struct {
	cfg      config.Import
	registry *sources.Registry
	store    *store.Store
	hub      *progress.Hub
	genres   GenreInferrer
	notifier Notifier
	logger   *slog.Logger
}

// New wires an importer. The hub, genre inferrer, and notifier may be nil;
// the matching features are skipped.
func New(cfg config.Import, registry *sources.Registry, st *store.Store, hub *progress.Hub, genres GenreInferrer, notifier Notifier, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Importer{
		cfg:      cfg,
		registry: registry,
		store:    st,
		hub:      hub,
		genres:   genres,
		notifier: notifier,
		logger:   logger.With(logging.String(logging.FieldComponent, "importer")),
	}
}

// Import runs one import and always returns a structured result; errors are
// reported in Result.Err, never panics.
func (imp *Importer) Import(ctx context.Context, rawURL string, opts Options) *Result {
	start := time.Now()
	importID := opts.ImportID
	if importID == "" {
		importID = uuid.NewString()
	}
	result := &Result{ImportID: importID, URL: rawURL}
	logger := imp.logger.With(
		logging.String(logging.FieldImportID, importID),
		logging.String(logging.FieldURL, rawURL))

	if ctx == nil {
		ctx = context.Background()
	}
	budget := imp.totalBudget(opts)
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	imp.publish(importID, progress.StatusClassifying, "Classifying URL", 0.02)
	classification, err := classify.Classify(rawURL)
	if err != nil {
		return imp.fail(ctx, result, start, logger,
			sources.Wrap(sources.ErrValidation, "importer", "classify", "", err))
	}
	result.URL = classification.URL
	logger.Info("import started",
		logging.String(logging.FieldEventType, "import_start"),
		logging.String("kind", string(classification.Kind)))

	if !opts.IgnoreCache {
		entry, err := imp.store.GetEntry(ctx, classification.URL)
		if err != nil {
			return imp.fail(ctx, result, start, logger,
				sources.Wrap(sources.ErrStorage, "importer", "cache", "", err))
		}
		if entry != nil {
			result.Success = true
			result.FromCache = true
			result.MethodUsed = MethodCache
			result.Record = entry.Record
			result.Entry = entry
			result.ImportTime = time.Since(start)
			imp.publish(importID, progress.StatusDone, "Retrieved from cache", 1.0)
			logger.Info("import served from cache",
				logging.String(logging.FieldEventType, "import_cached"))
			return result
		}
	}

	imp.publish(importID, progress.StatusSelecting, "Selecting import strategy", 0.05)
	plan, err := imp.plan(classification, opts.ForceMethod)
	if err != nil {
		return imp.fail(ctx, result, start, logger, err)
	}

	record, lastErr := imp.runPlan(ctx, plan, classification, importID, result, logger)
	if record == nil {
		if budgetErr := imp.budgetExhausted(ctx, budget, lastErr); budgetErr != nil {
			lastErr = budgetErr
		}
		return imp.fail(ctx, result, start, logger, lastErr)
	}
	if budgetErr := imp.budgetExhausted(ctx, budget, nil); budgetErr != nil {
		return imp.fail(ctx, result, start, logger, budgetErr)
	}

	imp.enhanceGenres(ctx, importID, record, logger)

	imp.publish(importID, progress.StatusPersisting, "Saving to cache", 0.98)
	entry, outcome, err := imp.store.SaveEvent(ctx, record)
	if err != nil {
		return imp.fail(ctx, result, start, logger,
			sources.Wrap(sources.ErrStorage, "importer", "persist", "", err))
	}

	result.Success = true
	result.Record = record
	result.Entry = entry
	result.ImportTime = time.Since(start)
	imp.publish(importID, progress.StatusDone, "Import complete", 1.0)
	logger.Info("import complete",
		logging.String(logging.FieldEventType, "import_complete"),
		logging.String(logging.FieldStrategy, string(result.MethodUsed)),
		logging.String("title", record.Title),
		logging.String("cache_outcome", string(outcome)),
		logging.Duration("import_time", result.ImportTime))
	imp.notifySuccess(ctx, record.Title, string(result.MethodUsed), logger)
	return result
}

// runPlan tries each strategy in order until one yields a validated record.
// Terminal errors and an exhausted total budget stop the chain early. The
// last failure is returned so the caller can surface it as the primary
// error.
func (imp *Importer) runPlan(ctx context.Context, plan []sources.Source, c classify.Classification, importID string, result *Result, logger *slog.Logger) (*events.Record, error) {
	var lastErr error
	for i, src := range plan {
		result.MethodUsed = src.Method()
		attemptStart := time.Now()
		record, err := imp.runAttempt(ctx, src, c, importID, attemptBand(i, len(plan)))
		elapsed := time.Since(attemptStart)

		attempt := Attempt{Source: src.Name(), Method: src.Method(), Elapsed: elapsed}
		if err == nil {
			result.Attempts = append(result.Attempts, attempt)
			logger.Info("strategy succeeded",
				logging.String(logging.FieldEventType, "attempt_success"),
				logging.String(logging.FieldStrategy, src.Name()),
				logging.Duration("attempt_time", elapsed))
			return record, nil
		}

		attempt.Code = sources.Code(err)
		attempt.Error = err.Error()
		result.Attempts = append(result.Attempts, attempt)
		lastErr = err
		logger.Warn("strategy failed",
			logging.String(logging.FieldEventType, "attempt_failed"),
			logging.String(logging.FieldStrategy, src.Name()),
			logging.String("code", attempt.Code),
			logging.Duration("attempt_time", elapsed),
			logging.Error(err))

		if ctx.Err() != nil || sources.IsTerminal(err) {
			break
		}
	}
	return nil, lastErr
}

// runAttempt executes one strategy under the per-attempt deadline. The
// derived context never outlives the total budget.
func (imp *Importer) runAttempt(ctx context.Context, src sources.Source, c classify.Classification, importID string, b band) (*events.Record, error) {
	attemptCtx := ctx
	cancel := context.CancelFunc(func() {})
	if per := imp.attemptBudget(); per > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, per)
	}
	defer cancel()

	imp.publish(importID, progress.StatusExtracting,
		fmt.Sprintf("Extracting with %s strategy", src.Name()), b.at(0))

	record, err := src.Extract(attemptCtx, sources.Request{
		URL:      c.URL,
		EventID:  c.EventID,
		ImportID: importID,
		Report: func(message string, fraction float64) {
			imp.publish(importID, progress.StatusExtracting, message, b.at(fraction))
		},
	})
	if err != nil {
		if attemptCtx.Err() != nil && ctx.Err() == nil && !errors.Is(err, sources.ErrTimeout) {
			err = sources.Wrap(sources.ErrTimeout, src.Name(), "extract", "attempt budget exhausted", err)
		}
		return nil, err
	}

	imp.publish(importID, progress.StatusValidating, "Validating event data", b.at(0.97))
	if record == nil || record.Title == "" {
		return nil, sources.Wrap(sources.ErrValidation, src.Name(), "validate", "strategy produced no event data", nil)
	}
	return record, nil
}

// enhanceGenres fills missing genres from the primary artist. Failures log
// and the record ships without genres.
func (imp *Importer) enhanceGenres(ctx context.Context, importID string, record *events.Record, logger *slog.Logger) {
	if !imp.cfg.GenreEnhancement || len(record.Genres) > 0 || len(record.Lineup) == 0 {
		return
	}
	if imp.genres == nil || !imp.genres.Available() {
		return
	}
	imp.publish(importID, progress.StatusEnhancing, "Searching for artist genres", 0.95)

	primary := record.Lineup[0]
	found, err := imp.genres.InferGenres(ctx, primary, record.Title, record.Venue)
	if err != nil {
		logger.Warn("genre enhancement failed",
			logging.String(logging.FieldEventType, "genre_enhancement_failed"),
			logging.String("artist", primary),
			logging.Error(err))
		return
	}
	record.Genres = events.CanonicalGenres(found, imp.maxGenres())
	if len(record.Genres) > 0 {
		logger.Debug("genres enhanced",
			logging.String("artist", primary),
			logging.Any("genres", record.Genres))
	}
}

// Update applies a partial patch to a cached event and returns the merged,
// re-normalized record.
func (imp *Importer) Update(ctx context.Context, id int64, patch map[string]any) (*events.Record, error) {
	entry, err := imp.store.UpdateEvent(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("no cached event with id %d", id)
	}
	return entry.Record, nil
}

func (imp *Importer) fail(ctx context.Context, result *Result, start time.Time, logger *slog.Logger, err error) *Result {
	result.Success = false
	result.Err = err
	result.ImportTime = time.Since(start)
	imp.publish(result.ImportID, progress.StatusFailed, fmt.Sprintf("Import failed: %v", err), 1.0)
	logger.Error("import failed",
		logging.String(logging.FieldEventType, "import_failed"),
		logging.String("code", sources.Code(err)),
		logging.Duration("import_time", result.ImportTime),
		logging.Error(err))
	imp.notifyFailure(ctx, result.URL, err, logger)
	return result
}

// budgetExhausted converts a spent total budget into the terminal marker.
// Parent cancellation is not a timeout and passes through untouched.
func (imp *Importer) budgetExhausted(ctx context.Context, budget time.Duration, lastErr error) error {
	ctxErr := ctx.Err()
	if ctxErr == nil {
		return nil
	}
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return sources.Wrap(sources.ErrTotalTimeout, "importer", "run",
			fmt.Sprintf("import budget of %s exhausted", budget), lastErr)
	}
	if lastErr != nil {
		return lastErr
	}
	return ctxErr
}

func (imp *Importer) notifySuccess(ctx context.Context, title, method string, logger *slog.Logger) {
	if imp.notifier == nil {
		return
	}
	if err := imp.notifier.NotifyImportCompleted(ctx, title, method); err != nil {
		logger.Debug("import notification failed", logging.Error(err))
	}
}

func (imp *Importer) notifyFailure(ctx context.Context, url string, cause error, logger *slog.Logger) {
	if imp.notifier == nil {
		return
	}
	if err := imp.notifier.NotifyImportFailed(ctx, url, cause.Error()); err != nil {
		logger.Debug("failure notification failed", logging.Error(err))
	}
}

func (imp *Importer) publish(importID string, status progress.Status, message string, fraction float64) {
	imp.hub.Publish(progress.Update{
		ImportID: importID,
		Status:   status,
		Message:  message,
		Progress: fraction,
	})
}

func (imp *Importer) totalBudget(opts Options) time.Duration {
	if opts.Timeout > 0 {
		return opts.Timeout
	}
	if imp.cfg.TotalTimeout > 0 {
		return time.Duration(imp.cfg.TotalTimeout) * time.Second
	}
	return defaultTotalTimeout
}

func (imp *Importer) attemptBudget() time.Duration {
	if imp.cfg.AttemptTimeout > 0 {
		return time.Duration(imp.cfg.AttemptTimeout) * time.Second
	}
	return 0
}

func (imp *Importer) maxGenres() int {
	if imp.cfg.MaxGenres > 0 {
		return imp.cfg.MaxGenres
	}
	return 4
}
