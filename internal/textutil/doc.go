// Package textutil provides small text helpers shared across dropwatch.
//
// NormalizeFilename produces the canonical on-disk and display name for a
// remote file: Unicode lowercase, trimmed, with every whitespace run
// collapsed to a single hyphen. The function is pure and idempotent so the
// same remote name always stages to the same local path.
package textutil
