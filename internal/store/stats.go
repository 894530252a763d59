package store

import (
	"context"
	"fmt"
	"math"
	"time"
)

const dateLayout = "2006-01-02"

// EventStats summarizes cache activity. Day boundaries are UTC, matching the
// stored timestamps.
type EventStats struct {
	TotalEvents     int
	EventsToday     int
	EventsThisWeek  int
	WithSubmissions int
	Unsubmitted     int
}

// SubmissionStats summarizes the submission ledger. SuccessRate is a
// percentage of all attempts, rounded to two decimals.
type SubmissionStats struct {
	Total       int
	ByStatus    map[SubmissionStatus]int
	ByService   map[string]int
	SuccessRate float64
}

// DailyCount is one day of import activity.
type DailyCount struct {
	Date  string
	Count int
}

// EventStats reports cache totals and recent activity.
func (s *Store) EventStats(ctx context.Context) (EventStats, error) {
	ctx = ensureContext(ctx)
	var stats EventStats

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM events`).Scan(&stats.TotalEvents); err != nil {
		return EventStats{}, fmt.Errorf("count events: %w", err)
	}

	now := time.Now().UTC()
	today := now.Format(dateLayout)
	// Week starts on Monday.
	weekStart := now.AddDate(0, 0, -((int(now.Weekday()) + 6) % 7)).Format(dateLayout)

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM events WHERE substr(scraped_at, 1, 10) = ?`, today,
	).Scan(&stats.EventsToday); err != nil {
		return EventStats{}, fmt.Errorf("count events today: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM events WHERE substr(scraped_at, 1, 10) >= ?`, weekStart,
	).Scan(&stats.EventsThisWeek); err != nil {
		return EventStats{}, fmt.Errorf("count events this week: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT e.id) FROM events e JOIN submissions s ON s.event_id = e.id`,
	).Scan(&stats.WithSubmissions); err != nil {
		return EventStats{}, fmt.Errorf("count submitted events: %w", err)
	}
	stats.Unsubmitted = stats.TotalEvents - stats.WithSubmissions
	return stats, nil
}

// SubmissionStats reports ledger totals grouped by status and service.
func (s *Store) SubmissionStats(ctx context.Context) (SubmissionStats, error) {
	ctx = ensureContext(ctx)
	stats := SubmissionStats{
		ByStatus:  make(map[SubmissionStatus]int),
		ByService: make(map[string]int),
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM submissions`).Scan(&stats.Total); err != nil {
		return SubmissionStats{}, fmt.Errorf("count submissions: %w", err)
	}
	if stats.Total == 0 {
		return stats, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM submissions GROUP BY status`)
	if err != nil {
		return SubmissionStats{}, fmt.Errorf("group by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return SubmissionStats{}, err
		}
		stats.ByStatus[SubmissionStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return SubmissionStats{}, err
	}

	serviceRows, err := s.db.QueryContext(ctx, `SELECT service_name, COUNT(1) FROM submissions GROUP BY service_name`)
	if err != nil {
		return SubmissionStats{}, fmt.Errorf("group by service: %w", err)
	}
	defer serviceRows.Close()
	for serviceRows.Next() {
		var (
			service string
			count   int
		)
		if err := serviceRows.Scan(&service, &count); err != nil {
			return SubmissionStats{}, err
		}
		stats.ByService[service] = count
	}
	if err := serviceRows.Err(); err != nil {
		return SubmissionStats{}, err
	}

	rate := float64(stats.ByStatus[SubmissionSuccess]) / float64(stats.Total) * 100
	stats.SuccessRate = math.Round(rate*100) / 100
	return stats, nil
}

// EventTrend returns per-day import counts for the trailing window, oldest
// day first, with zero-filled gaps. Days of zero or less defaults to a week.
func (s *Store) EventTrend(ctx context.Context, days int) ([]DailyCount, error) {
	ctx = ensureContext(ctx)
	if days <= 0 {
		days = 7
	}

	today := time.Now().UTC()
	windowStart := today.AddDate(0, 0, -(days - 1)).Format(dateLayout)

	rows, err := s.db.QueryContext(ctx,
		`SELECT substr(scraped_at, 1, 10) AS day, COUNT(1)
         FROM events
         WHERE substr(scraped_at, 1, 10) >= ?
         GROUP BY day`,
		windowStart,
	)
	if err != nil {
		return nil, fmt.Errorf("query trend: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int, days)
	for rows.Next() {
		var (
			day   string
			count int
		)
		if err := rows.Scan(&day, &count); err != nil {
			return nil, err
		}
		counts[day] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	trend := make([]DailyCount, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i).Format(dateLayout)
		trend = append(trend, DailyCount{Date: day, Count: counts[day]})
	}
	return trend, nil
}
