// Package logging assembles structured slog loggers and formatting helpers used
// across relink commands.
//
// It owns the console and JSON handlers, tees every record into the JSON log
// file under log_dir, and exposes context helpers so each invocation tags its
// lines with a run id. Progress reporting for long scans and rewrites is
// sampled into percentage buckets to keep the console readable.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits the same shape.
package logging
