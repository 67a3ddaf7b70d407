// Package pipeline runs a single tick: it lists the shared folder, detects
// new and modified files against the persisted snapshot, stages them, sends
// one notification, and only then advances the snapshot.
//
// A tick moves through the states start, listed, detected, staged, notified
// and committed. Any fatal error ends it in failed with the snapshot file
// untouched, so the same files are detected again on the next tick. Per-file
// fetch and write failures are not fatal; those files are left out of the
// notification and the snapshot advance.
//
// Ticks are serialized through the snapshot lock. A tick that cannot take
// the lock within lock.wait_seconds is reported as skipped.
//
// After a commit the coordinator prunes the storage directory, records the
// run in the history ledger, and rewrites the metrics textfile. Those steps
// are best effort and never change the outcome of the tick.
package pipeline
