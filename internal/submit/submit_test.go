package submit_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"eventimporter/internal/events"
	"eventimporter/internal/store"
	"eventimporter/internal/submit"
	"eventimporter/internal/testsupport"
)

func sampleRecord(sourceURL, title string) *events.Record {
	return &events.Record{
		Title:     title,
		Venue:     "Basement",
		Date:      "2026-06-05",
		SourceURL: sourceURL,
	}
}

type recordingNotifier struct {
	mu        sync.Mutex
	calls     int
	service   string
	submitted int
	failed    int
}

func (n *recordingNotifier) NotifyBatchCompleted(_ context.Context, service string, submitted, failed int, _ time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	n.service = service
	n.submitted = submitted
	n.failed = failed
	return nil
}

func TestDryRunBatchSettlesWithoutDelivery(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.SaveRecord(t, st, sampleRecord("https://example.com/events/1", "Dry Run A"))
	second := testsupport.SaveRecord(t, st, sampleRecord("https://example.com/events/2", "Dry Run B"))

	notifier := &recordingNotifier{}
	submitter, err := submit.New(st, submit.NewDryRunSink("ticketfairy"), cfg.SubmitLockPath(), notifier, nil)
	if err != nil {
		t.Fatalf("submit.New: %v", err)
	}

	report, err := submitter.Run(ctx, submit.Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Total != 2 || report.DryRun != 2 || report.Submitted != 0 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.BatchID == "" {
		t.Fatal("expected a batch id")
	}

	for _, id := range []int64{first.ID, second.ID} {
		subs, err := st.SubmissionsForEvent(ctx, id)
		if err != nil {
			t.Fatalf("SubmissionsForEvent failed: %v", err)
		}
		if len(subs) != 1 {
			t.Fatalf("expected 1 submission for event %d, got %d", id, len(subs))
		}
		if subs[0].Status != store.SubmissionDryRun || subs[0].ResponseData != `{"dry_run":true}` {
			t.Fatalf("unexpected ledger row: %#v", subs[0])
		}
		if subs[0].BatchID != report.BatchID {
			t.Fatalf("row not stamped with batch id: %#v", subs[0])
		}
	}

	if notifier.calls != 0 {
		t.Fatalf("dry run should not notify, got %d calls", notifier.calls)
	}
}

func TestLiveBatchDeliversAndRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	entry := testsupport.SaveRecord(t, st, sampleRecord("https://example.com/events/10", "Live Fixture"))

	var (
		gotAuth    string
		gotAccept  string
		gotPayload events.Record
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"evt_1","status":"created"}`))
	}))
	defer server.Close()

	sink, err := submit.NewWebhookSink("ticketfairy", server.URL, "tf-token", 5*time.Second)
	if err != nil {
		t.Fatalf("NewWebhookSink: %v", err)
	}
	notifier := &recordingNotifier{}
	submitter, err := submit.New(st, sink, cfg.SubmitLockPath(), notifier, nil)
	if err != nil {
		t.Fatalf("submit.New: %v", err)
	}

	report, err := submitter.Run(ctx, submit.Options{Selector: store.SelectorUnsubmitted})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Total != 1 || report.Submitted != 1 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	if gotAuth != "Bearer tf-token" {
		t.Fatalf("authorization = %q, want bearer token", gotAuth)
	}
	if gotAccept != "application/json" {
		t.Fatalf("accept = %q", gotAccept)
	}
	if gotPayload.Title != "Live Fixture" || gotPayload.SourceURL != entry.SourceURL {
		t.Fatalf("unexpected delivered payload: %+v", gotPayload)
	}

	subs, err := st.SubmissionsForEvent(ctx, entry.ID)
	if err != nil {
		t.Fatalf("SubmissionsForEvent failed: %v", err)
	}
	if len(subs) != 1 || subs[0].Status != store.SubmissionSuccess {
		t.Fatalf("unexpected ledger rows: %#v", subs)
	}
	if !strings.Contains(subs[0].ResponseData, "evt_1") {
		t.Fatalf("service response not recorded: %q", subs[0].ResponseData)
	}

	if notifier.calls != 1 || notifier.service != "ticketfairy" || notifier.submitted != 1 || notifier.failed != 0 {
		t.Fatalf("unexpected notifier state: %+v", notifier)
	}
}

func TestLiveBatchRecordsFailuresAndKeepsRetryable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	entry := testsupport.SaveRecord(t, st, sampleRecord("https://example.com/events/11", "Flaky Fixture"))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("service down"))
	}))
	defer server.Close()

	sink, err := submit.NewWebhookSink("ticketfairy", server.URL, "", 5*time.Second)
	if err != nil {
		t.Fatalf("NewWebhookSink: %v", err)
	}
	submitter, err := submit.New(st, sink, cfg.SubmitLockPath(), nil, nil)
	if err != nil {
		t.Fatalf("submit.New: %v", err)
	}

	report, err := submitter.Run(ctx, submit.Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Total != 1 || report.Failed != 1 || report.Submitted != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(report.Outcomes) != 1 || report.Outcomes[0].Status != store.SubmissionFailed {
		t.Fatalf("unexpected outcomes: %+v", report.Outcomes)
	}
	if !strings.Contains(report.Outcomes[0].Error, "502") {
		t.Fatalf("outcome error should carry status, got %q", report.Outcomes[0].Error)
	}

	subs, err := st.SubmissionsForEvent(ctx, entry.ID)
	if err != nil {
		t.Fatalf("SubmissionsForEvent failed: %v", err)
	}
	if len(subs) != 1 || subs[0].Status != store.SubmissionFailed {
		t.Fatalf("unexpected ledger rows: %#v", subs)
	}
	if !strings.Contains(subs[0].ErrorMessage, "service down") {
		t.Fatalf("failure message not recorded: %q", subs[0].ErrorMessage)
	}

	retryable, err := st.SelectForSubmission(ctx, store.Selection{Selector: store.SelectorFailed, Service: "ticketfairy"})
	if err != nil {
		t.Fatalf("SelectForSubmission failed: %v", err)
	}
	if len(retryable) != 1 || retryable[0].ID != entry.ID {
		t.Fatalf("failed event should stay selectable, got %d entries", len(retryable))
	}
}

func TestPendingRowsAreReusedWithRetryCount(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	entry := testsupport.SaveRecord(t, st, sampleRecord("https://example.com/events/12", "Stuck Fixture"))

	stale, created, err := st.EnsurePendingSubmission(ctx, entry.ID, "ticketfairy", "old-batch")
	if err != nil || !created {
		t.Fatalf("seed pending submission: created=%v err=%v", created, err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"evt_2"}`))
	}))
	defer server.Close()

	sink, err := submit.NewWebhookSink("ticketfairy", server.URL, "", 5*time.Second)
	if err != nil {
		t.Fatalf("NewWebhookSink: %v", err)
	}
	submitter, err := submit.New(st, sink, cfg.SubmitLockPath(), nil, nil)
	if err != nil {
		t.Fatalf("submit.New: %v", err)
	}

	report, err := submitter.Run(ctx, submit.Options{Selector: store.SelectorPending})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Total != 1 || report.Submitted != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	settled, err := st.GetSubmission(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetSubmission failed: %v", err)
	}
	if settled.Status != store.SubmissionSuccess {
		t.Fatalf("stale pending row should settle, got %#v", settled)
	}
	if settled.RetryCount != 1 {
		t.Fatalf("retry_count = %d, want 1", settled.RetryCount)
	}
	if settled.BatchID != report.BatchID {
		t.Fatalf("row not retagged: %q vs batch %q", settled.BatchID, report.BatchID)
	}
}

func TestRunRejectsConcurrentBatches(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	lock := flock.New(cfg.SubmitLockPath())
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("could not hold lock for test: locked=%v err=%v", locked, err)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	submitter, err := submit.New(st, submit.NewDryRunSink("ticketfairy"), cfg.SubmitLockPath(), nil, nil)
	if err != nil {
		t.Fatalf("submit.New: %v", err)
	}
	if _, err := submitter.Run(context.Background(), submit.Options{}); !errors.Is(err, submit.ErrBatchInProgress) {
		t.Fatalf("expected ErrBatchInProgress, got %v", err)
	}
}

func TestRunWithEmptySelection(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	notifier := &recordingNotifier{}
	submitter, err := submit.New(st, submit.NewDryRunSink("ticketfairy"), cfg.SubmitLockPath(), notifier, nil)
	if err != nil {
		t.Fatalf("submit.New: %v", err)
	}

	report, err := submitter.Run(context.Background(), submit.Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Total != 0 || len(report.Outcomes) != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if notifier.calls != 0 {
		t.Fatalf("empty batch should not notify, got %d calls", notifier.calls)
	}
}

func TestWebhookSinkRejectsEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink, err := submit.NewWebhookSink("ticketfairy", server.URL, "", 5*time.Second)
	if err != nil {
		t.Fatalf("NewWebhookSink: %v", err)
	}
	if _, err := sink.Submit(context.Background(), sampleRecord("https://example.com/events/13", "Empty Fixture")); err == nil {
		t.Fatal("expected error for empty response body")
	}
}

func TestNewWebhookSinkValidates(t *testing.T) {
	if _, err := submit.NewWebhookSink("", "https://hooks.example.com", "", 0); err == nil {
		t.Fatal("expected error for missing service name")
	}
	if _, err := submit.NewWebhookSink("ticketfairy", "", "", 0); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
}

func TestNewValidatesDependencies(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	if _, err := submit.New(nil, submit.NewDryRunSink("svc"), cfg.SubmitLockPath(), nil, nil); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := submit.New(st, nil, cfg.SubmitLockPath(), nil, nil); err == nil {
		t.Fatal("expected error for nil sink")
	}
	if _, err := submit.New(st, submit.NewDryRunSink(""), cfg.SubmitLockPath(), nil, nil); err == nil {
		t.Fatal("expected error for unnamed sink")
	}
	if _, err := submit.New(st, submit.NewDryRunSink("svc"), "", nil, nil); err == nil {
		t.Fatal("expected error for missing lock path")
	}
}
