package main

import (
	"fmt"
	"strings"
	"time"

	"eventimporter/internal/events"
	"eventimporter/internal/store"
)

// missingValue marks optional fields with no value. A cost of "Free" is a
// present value and never collapses into it.
const missingValue = "Missing"

func displayValue(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return missingValue
	}
	return value
}

func displayList(values []string) string {
	if len(values) == 0 {
		return missingValue
	}
	return strings.Join(values, ", ")
}

func formatDisplayTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format("2006-01-02 15:04")
}

func formatTimeRange(value *events.Time) string {
	if value == nil {
		return missingValue
	}
	parts := value.Start
	if value.End != "" {
		if parts == "" {
			parts = "?"
		}
		parts += " - " + value.End
	}
	if parts == "" {
		return missingValue
	}
	if value.Timezone != "" {
		parts += " (" + value.Timezone + ")"
	}
	return parts
}

func formatHash(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	if len(value) > 12 {
		return value[:12]
	}
	return value
}

func truncateCell(value string, max int) string {
	value = strings.TrimSpace(value)
	if max <= 0 || len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}

func buildEntryRows(entries []*store.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		title, venue, date := "", "", ""
		if entry.Record != nil {
			title = entry.Record.Title
			venue = entry.Record.Venue
			date = entry.Record.Date
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", entry.ID),
			truncateCell(title, 40),
			displayValue(date),
			truncateCell(displayValue(venue), 24),
			formatDisplayTime(entry.UpdatedAt),
		})
	}
	return rows
}

func buildSubmissionRows(subs []*store.Submission) [][]string {
	rows := make([][]string, 0, len(subs))
	for _, sub := range subs {
		detail := sub.ErrorMessage
		if detail == "" {
			detail = sub.ResponseData
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", sub.ID),
			sub.ServiceName,
			string(sub.Status),
			fmt.Sprintf("%d", sub.RetryCount),
			formatDisplayTime(sub.SubmittedAt),
			truncateCell(detail, 40),
		})
	}
	return rows
}
