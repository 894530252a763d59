package store

import (
	"context"
	"fmt"
	"strings"
)

// Selector names a strategy for picking cached events to submit.
type Selector string

const (
	// SelectorUnsubmitted picks events with no successful or pending
	// submission for the service; failed and dry-run attempts do not
	// count as submitted.
	SelectorUnsubmitted Selector = "unsubmitted"
	// SelectorFailed picks events whose attempts include a failure for the
	// service.
	SelectorFailed Selector = "failed"
	// SelectorPending picks events with an open pending submission for the
	// service.
	SelectorPending Selector = "pending"
	// SelectorAll picks every cached event, guarded against resubmission
	// unless the selection says otherwise.
	SelectorAll Selector = "all"
	// SelectorURL picks the most recent cache entry for one source URL,
	// guarded the same way.
	SelectorURL Selector = "url"
)

var selectorNames = []Selector{SelectorUnsubmitted, SelectorFailed, SelectorPending, SelectorAll, SelectorURL}

// ParseSelector validates a selector name from user input.
func ParseSelector(raw string) (Selector, error) {
	sel := Selector(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range selectorNames {
		if sel == known {
			return sel, nil
		}
	}
	names := make([]string, len(selectorNames))
	for i, known := range selectorNames {
		names[i] = string(known)
	}
	return "", fmt.Errorf("unknown selector %q (valid: %s)", raw, strings.Join(names, ", "))
}

// Selection controls which cached events a submit run targets.
type Selection struct {
	Selector Selector
	Service  string
	// URL identifies the event SelectorURL targets; other selectors ignore
	// it.
	URL string
	// IncludeSubmitted lifts the guard that keeps events already pending or
	// successfully submitted to the service out of url and all selections.
	IncludeSubmitted bool
}

// SelectForSubmission returns the cached events a selection matches, oldest
// first so long-waiting events go out before fresh imports.
func (s *Store) SelectForSubmission(ctx context.Context, sel Selection) ([]*Entry, error) {
	ctx = ensureContext(ctx)

	var (
		query string
		args  []any
	)
	switch sel.Selector {
	case SelectorUnsubmitted:
		query = `SELECT ` + entryColumnsAliased + ` FROM events e
             LEFT JOIN submissions s ON s.event_id = e.id AND s.service_name = ?
                  AND s.status IN (?, ?)
             WHERE s.id IS NULL
             ORDER BY e.scraped_at ASC, e.id ASC`
		args = []any{sel.Service, SubmissionSuccess, SubmissionPending}
	case SelectorFailed:
		query = `SELECT DISTINCT ` + entryColumnsAliased + ` FROM events e
             JOIN submissions s ON s.event_id = e.id
             WHERE s.service_name = ? AND s.status = ?
             ORDER BY e.scraped_at ASC, e.id ASC`
		args = []any{sel.Service, SubmissionFailed}
	case SelectorPending:
		query = `SELECT DISTINCT ` + entryColumnsAliased + ` FROM events e
             JOIN submissions s ON s.event_id = e.id
             WHERE s.service_name = ? AND s.status = ?
             ORDER BY e.scraped_at ASC, e.id ASC`
		args = []any{sel.Service, SubmissionPending}
	case SelectorAll:
		if sel.IncludeSubmitted {
			query = `SELECT ` + entryColumns + ` FROM events ORDER BY scraped_at ASC, id ASC`
			break
		}
		query = `SELECT ` + entryColumnsAliased + ` FROM events e
             LEFT JOIN submissions s ON s.event_id = e.id AND s.service_name = ?
                  AND s.status IN (?, ?)
             WHERE s.id IS NULL
             ORDER BY e.scraped_at ASC, e.id ASC`
		args = []any{sel.Service, SubmissionSuccess, SubmissionPending}
	case SelectorURL:
		if strings.TrimSpace(sel.URL) == "" {
			return nil, fmt.Errorf("selector %q requires a url", SelectorURL)
		}
		if sel.IncludeSubmitted {
			query = `SELECT ` + entryColumns + ` FROM events WHERE source_url = ?
             ORDER BY scraped_at DESC, id DESC LIMIT 1`
			args = []any{sel.URL}
			break
		}
		query = `SELECT ` + entryColumnsAliased + ` FROM events e
             WHERE e.source_url = ?
               AND NOT EXISTS (
                 SELECT 1 FROM submissions s
                 WHERE s.event_id = e.id AND s.service_name = ? AND s.status IN (?, ?))
             ORDER BY e.scraped_at DESC, e.id DESC LIMIT 1`
		args = []any{sel.URL, sel.Service, SubmissionSuccess, SubmissionPending}
	default:
		return nil, fmt.Errorf("unknown selector %q", sel.Selector)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select events (%s): %w", sel.Selector, err)
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
