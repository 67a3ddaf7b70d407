// Package logs reads the dropwatch log file for the `dropwatch logs` command:
// the last N lines, optionally narrowed to one tick, and a polling follow mode
// that survives log truncation.
package logs
