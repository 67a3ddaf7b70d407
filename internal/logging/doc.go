// Package logging assembles structured slog loggers and attribute helpers used
// across dropwatch.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes a no-op logger for tests and wiring code that cannot
// fail. Warnings follow a cause + impact + next step shape: use
// WarnWithContext so every WARN line carries event_type, error_hint, and
// impact fields.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits lines with the same shape.
package logging
