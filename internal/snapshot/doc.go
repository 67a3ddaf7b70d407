// Package snapshot persists the set of remote files already notified.
//
// The snapshot is a single JSON document at a well-known path. Load treats a
// missing file as the empty snapshot and anything unreadable as a
// CorruptStateError; it never resets silently. Save replaces the file via a
// fsynced temp file and rename so readers see either the previous or the new
// document. Deleting the file (Store.Reset) is the operator reset.
//
// Ticks serialize on an advisory lock next to the state file.
package snapshot
