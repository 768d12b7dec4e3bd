// Package logging assembles structured slog loggers and formatting helpers used
// across univdl.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so installer and launcher code can tag log
// lines with job IDs, engines, and tool names. Download jobs tee their records
// into a per-job JSON log file through the fan-out handler. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits records with the same shape.
package logging
