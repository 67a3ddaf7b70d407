// Package staging fetches changed remote files and writes them under their
// normalized names in the storage directory.
//
// Fetches run concurrently up to the configured limit; writes happen one at
// a time in detector order. When two remote names normalize to the same
// local name the later event overwrites the earlier file and a warning is
// logged. A failed fetch or write affects only that file: it is reported in
// Result.Failed and left out of the notification and the snapshot advance.
//
// CleanStale prunes staged files past the retention window and temp files
// left by interrupted writes.
package staging
