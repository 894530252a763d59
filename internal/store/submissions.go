package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// dryRunResponse is recorded instead of a service response when a submission
// runs in dry-run mode.
const dryRunResponse = `{"dry_run":true}`

// EnsurePendingSubmission returns the open pending submission for an event
// and service, creating one when none exists. Reusing an open row counts as a
// retry and retags it with the current batch. Reports whether a new row was
// created.
func (s *Store) EnsurePendingSubmission(ctx context.Context, eventID int64, serviceName, batchID string) (*Submission, bool, error) {
	var (
		subID   int64
		created bool
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT id FROM submissions
             WHERE event_id = ? AND service_name = ? AND status = ?
             ORDER BY id DESC LIMIT 1`,
			eventID, serviceName, SubmissionPending,
		)
		err := row.Scan(&subID)
		switch {
		case err == nil:
			created = false
			_, err = tx.ExecContext(ctx,
				`UPDATE submissions SET retry_count = retry_count + 1, batch_id = COALESCE(?, batch_id) WHERE id = ?`,
				nullableString(batchID), subID,
			)
			if err != nil {
				return fmt.Errorf("retag pending submission: %w", err)
			}
		case errors.Is(err, sql.ErrNoRows):
			created = true
			now := formatTime(time.Now())
			res, err := tx.ExecContext(ctx,
				`INSERT INTO submissions (event_id, service_name, status, submitted_at, retry_count, batch_id)
                 VALUES (?, ?, ?, ?, 0, ?)`,
				eventID, serviceName, SubmissionPending, now, nullableString(batchID),
			)
			if err != nil {
				return fmt.Errorf("insert submission: %w", err)
			}
			if subID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("last insert id: %w", err)
			}
		default:
			return fmt.Errorf("find pending submission: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	sub, err := s.GetSubmission(ctx, subID)
	if err != nil {
		return nil, false, err
	}
	return sub, created, nil
}

// GetSubmission returns a submission by row identifier, or nil when unknown.
func (s *Store) GetSubmission(ctx context.Context, id int64) (*Submission, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

// MarkSubmissionSuccess records a delivered submission with the service
// response payload.
func (s *Store) MarkSubmissionSuccess(ctx context.Context, id int64, responseJSON string) error {
	return s.markSubmission(ctx, id, SubmissionSuccess,
		`UPDATE submissions SET status = ?, response_data = ?, error_message = NULL WHERE id = ?`,
		SubmissionSuccess, nullableString(responseJSON), id)
}

// MarkSubmissionFailed records a failed attempt and keeps the row selectable
// for retry.
func (s *Store) MarkSubmissionFailed(ctx context.Context, id int64, message string) error {
	return s.markSubmission(ctx, id, SubmissionFailed,
		`UPDATE submissions SET status = ?, error_message = ? WHERE id = ?`,
		SubmissionFailed, nullableString(message), id)
}

// MarkSubmissionDryRun closes a submission that was transformed and validated
// but never sent.
func (s *Store) MarkSubmissionDryRun(ctx context.Context, id int64) error {
	return s.markSubmission(ctx, id, SubmissionDryRun,
		`UPDATE submissions SET status = ?, response_data = ? WHERE id = ?`,
		SubmissionDryRun, dryRunResponse, id)
}

func (s *Store) markSubmission(ctx context.Context, id int64, status SubmissionStatus, query string, args ...any) error {
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark submission %s: %w", status, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("submission %d not found", id)
	}
	return nil
}

// SubmissionsForEvent returns the submission history of a cached event,
// newest first.
func (s *Store) SubmissionsForEvent(ctx context.Context, eventID int64) ([]*Submission, error) {
	return s.querySubmissions(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE event_id = ? ORDER BY submitted_at DESC, id DESC`,
		eventID)
}

// SubmissionsForBatch returns every submission stamped with a batch
// identifier, in insertion order.
func (s *Store) SubmissionsForBatch(ctx context.Context, batchID string) ([]*Submission, error) {
	return s.querySubmissions(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE batch_id = ? ORDER BY id ASC`,
		batchID)
}

func (s *Store) querySubmissions(ctx context.Context, query string, args ...any) ([]*Submission, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var subs []*Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
