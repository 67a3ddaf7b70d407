// Package history keeps a SQLite ledger of ticks for the status and history
// commands.
//
// The ledger is informational: the snapshot file remains the only source of
// truth for what has been notified, and a failure to record a run never fails
// the tick. Each run row carries the final pipeline state and counts; the
// run_files table lists the outcome for every file the run touched.
package history
