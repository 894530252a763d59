package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"eventimporter/internal/events"
)

// Entry is a cached event row. RawJSON holds the canonical serialization
// exactly as persisted; Record is the decoded form.
type Entry struct {
	ID        int64
	SourceURL string
	Record    *events.Record
	RawJSON   string
	DataHash  string
	ScrapedAt time.Time
	UpdatedAt time.Time
}

// SaveOutcome describes what a SaveEvent call did to the cache row.
type SaveOutcome string

const (
	SaveInserted  SaveOutcome = "inserted"
	SaveUpdated   SaveOutcome = "updated"
	SaveUnchanged SaveOutcome = "unchanged"
)

// SubmissionStatus is the lifecycle of a submission ledger row.
type SubmissionStatus string

const (
	SubmissionPending SubmissionStatus = "pending"
	SubmissionSuccess SubmissionStatus = "success"
	SubmissionFailed  SubmissionStatus = "failed"
	SubmissionDryRun  SubmissionStatus = "dry_run"
)

var submissionStatuses = map[SubmissionStatus]struct{}{
	SubmissionPending: {},
	SubmissionSuccess: {},
	SubmissionFailed:  {},
	SubmissionDryRun:  {},
}

// Valid reports whether the status is a known ledger state.
func (s SubmissionStatus) Valid() bool {
	_, ok := submissionStatuses[s]
	return ok
}

// Terminal reports whether the status ends a submission attempt.
func (s SubmissionStatus) Terminal() bool {
	return s.Valid() && s != SubmissionPending
}

// Submission is one delivery attempt of a cached event to an external
// service. A pending row is created before the attempt and moved to a
// terminal status afterward; failed attempts keep the row so later runs can
// select them for retry.
type Submission struct {
	ID           int64
	EventID      int64
	ServiceName  string
	Status       SubmissionStatus
	SubmittedAt  time.Time
	ResponseData string
	ErrorMessage string
	RetryCount   int
	BatchID      string
}

const (
	entryColumns        = "id, source_url, scraped_data, data_hash, scraped_at, updated_at"
	entryColumnsAliased = "e.id, e.source_url, e.scraped_data, e.data_hash, e.scraped_at, e.updated_at"
	submissionColumns   = "id, event_id, service_name, status, submitted_at, response_data, error_message, retry_count, batch_id"
)

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		id         int64
		sourceURL  string
		scrapedRaw string
		dataHash   string
		scrapedAt  sql.NullString
		updatedAt  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&sourceURL,
		&scrapedRaw,
		&dataHash,
		&scrapedAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:        id,
		SourceURL: sourceURL,
		RawJSON:   scrapedRaw,
		DataHash:  dataHash,
	}

	record := &events.Record{}
	if err := json.Unmarshal([]byte(scrapedRaw), record); err != nil {
		return nil, fmt.Errorf("decode cached record for %s: %w", sourceURL, err)
	}
	entry.Record = record

	if scraped, err := parseTimeString(scrapedAt.String); err == nil {
		entry.ScrapedAt = scraped
	}
	if updated, err := parseTimeString(updatedAt.String); err == nil {
		entry.UpdatedAt = updated
	}
	return entry, nil
}

func scanSubmission(scanner interface{ Scan(dest ...any) error }) (*Submission, error) {
	var (
		id          int64
		eventID     int64
		serviceName string
		statusStr   string
		submittedAt sql.NullString
		response    sql.NullString
		errMessage  sql.NullString
		retryCount  sql.NullInt64
		batchID     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&eventID,
		&serviceName,
		&statusStr,
		&submittedAt,
		&response,
		&errMessage,
		&retryCount,
		&batchID,
	); err != nil {
		return nil, err
	}

	sub := &Submission{
		ID:           id,
		EventID:      eventID,
		ServiceName:  serviceName,
		Status:       SubmissionStatus(statusStr),
		ResponseData: response.String,
		ErrorMessage: errMessage.String,
		RetryCount:   int(retryCount.Int64),
		BatchID:      batchID.String,
	}
	if submitted, err := parseTimeString(submittedAt.String); err == nil {
		sub.SubmittedAt = submitted
	}
	return sub, nil
}

// timestampLayout pads fractional seconds to a fixed width so lexicographic
// ordering of stored timestamps matches time ordering in ORDER BY clauses and
// day-prefix comparisons.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(value time.Time) string {
	return value.UTC().Format(timestampLayout)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
