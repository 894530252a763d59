package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventimporter/internal/events"
)

// SaveEvent persists a record keyed by its source URL. An existing row with
// the same canonical hash is left untouched; a differing hash overwrites the
// payload and bumps both timestamps. The hash comparison and the row write
// happen in one transaction so concurrent writers on the same URL resolve to
// the update path instead of a constraint violation.
func (s *Store) SaveEvent(ctx context.Context, record *events.Record) (*Entry, SaveOutcome, error) {
	if record == nil {
		return nil, "", errors.New("record is nil")
	}
	sourceURL := strings.TrimSpace(record.SourceURL)
	if sourceURL == "" {
		return nil, "", errors.New("record has no source url")
	}

	payload, err := events.CanonicalJSON(record)
	if err != nil {
		return nil, "", fmt.Errorf("serialize record: %w", err)
	}
	hash, err := events.Hash(record)
	if err != nil {
		return nil, "", fmt.Errorf("hash record: %w", err)
	}

	outcome := SaveUnchanged
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := entryBySourceURLTx(ctx, tx, sourceURL)
		if err != nil {
			return fmt.Errorf("lookup cache entry: %w", err)
		}
		now := formatTime(time.Now())
		switch {
		case existing == nil:
			outcome = SaveInserted
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO events (source_url, scraped_data, data_hash, scraped_at, updated_at)
                 VALUES (?, ?, ?, ?, ?)
                 ON CONFLICT(source_url) DO UPDATE SET
                     scraped_data = excluded.scraped_data,
                     data_hash    = excluded.data_hash,
                     scraped_at   = excluded.scraped_at,
                     updated_at   = excluded.updated_at`,
				sourceURL, string(payload), hash, now, now,
			); err != nil {
				return fmt.Errorf("insert cache entry: %w", err)
			}
		case existing.DataHash == hash:
			outcome = SaveUnchanged
		default:
			outcome = SaveUpdated
			if _, err := tx.ExecContext(ctx,
				`UPDATE events SET scraped_data = ?, data_hash = ?, scraped_at = ?, updated_at = ? WHERE id = ?`,
				string(payload), hash, now, now, existing.ID,
			); err != nil {
				return fmt.Errorf("update cache entry: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	entry, err := s.GetEntry(ctx, sourceURL)
	if err != nil {
		return nil, "", err
	}
	if entry == nil {
		return nil, "", fmt.Errorf("cache entry for %s missing after save", sourceURL)
	}
	return entry, outcome, nil
}

func entryBySourceURLTx(ctx context.Context, tx *sql.Tx, sourceURL string) (*Entry, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM events WHERE source_url = ?`, sourceURL)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return entry, err
}

// GetEntry returns the cache entry for a source URL, or nil when the URL has
// never been imported.
func (s *Store) GetEntry(ctx context.Context, sourceURL string) (*Entry, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM events WHERE source_url = ?`, sourceURL)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}
	return entry, nil
}

// GetEntryByID returns a cache entry by row identifier, or nil when unknown.
func (s *Store) GetEntryByID(ctx context.Context, id int64) (*Entry, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM events WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}
	return entry, nil
}

// UpdateEvent applies a partial patch to a cached record, re-validates the
// merged result, and persists it when the content actually changed. Patch
// keys may use field aliases; a nil value removes the field. Returns nil when
// the id is unknown. The source URL cannot be patched away from the row key.
func (s *Store) UpdateEvent(ctx context.Context, id int64, patch map[string]any) (*Entry, error) {
	entry, err := s.GetEntryByID(ctx, id)
	if err != nil || entry == nil {
		return nil, err
	}

	merged := make(map[string]any)
	if err := json.Unmarshal([]byte(entry.RawJSON), &merged); err != nil {
		return nil, fmt.Errorf("decode cached record: %w", err)
	}
	for key, value := range patch {
		canonical := events.CanonicalField(key)
		if value == nil {
			delete(merged, canonical)
			continue
		}
		merged[canonical] = value
	}

	record, err := events.Normalize(merged)
	if err != nil {
		return nil, err
	}
	record.SourceURL = entry.SourceURL

	hash, err := events.Hash(record)
	if err != nil {
		return nil, fmt.Errorf("hash record: %w", err)
	}
	if hash == entry.DataHash {
		return entry, nil
	}
	payload, err := events.CanonicalJSON(record)
	if err != nil {
		return nil, fmt.Errorf("serialize record: %w", err)
	}

	now := formatTime(time.Now())
	if err := s.execWithoutResultRetry(ctx,
		`UPDATE events SET scraped_data = ?, data_hash = ?, updated_at = ? WHERE id = ?`,
		string(payload), hash, now, id,
	); err != nil {
		return nil, fmt.Errorf("update cache entry: %w", err)
	}
	return s.GetEntryByID(ctx, id)
}

// DeleteEntry removes a cache entry and, through the foreign key cascade,
// its submission history. Reports whether a row was deleted.
func (s *Store) DeleteEntry(ctx context.Context, sourceURL string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM events WHERE source_url = ?`, sourceURL)
	if err != nil {
		return false, fmt.Errorf("delete cache entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListEntries returns cache entries newest first. A limit of zero or less
// returns everything.
func (s *Store) ListEntries(ctx context.Context, limit int) ([]*Entry, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + entryColumns + ` FROM events ORDER BY scraped_at DESC, id DESC`
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, query+` LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
