// Package logging assembles the structured slog loggers used across the
// importer.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and provides standardized attribute keys so import pipeline code
// tags log lines consistently with import IDs, strategies, and services. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape.
package logging
