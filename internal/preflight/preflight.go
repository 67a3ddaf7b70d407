package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"dropwatch/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the local checks plus a reachability probe of the shared
// link. It is used by the status command.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := Storage(cfg)
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckShareLink(ctx, cfg.Dropbox.ShareLink, cfg.Dropbox.UserAgent))
	return results
}

// Storage returns the checks a tick requires before staging files.
func Storage(cfg *config.Config) []Result {
	results := []Result{CheckDirectoryAccess("Storage directory", cfg.Paths.StorageDir)}
	if cfg.Storage.MinFreeMiB > 0 {
		results = append(results, CheckFreeSpace("Storage free space", cfg.Paths.StorageDir, uint64(cfg.Storage.MinFreeMiB)))
	}
	return results
}

// EnsureStorage creates the storage directory if needed and returns an
// error describing every failed storage check.
func EnsureStorage(cfg *config.Config) error {
	if err := os.MkdirAll(cfg.Paths.StorageDir, 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}
	return Err(Storage(cfg))
}

// Err joins the failed results into one error, or returns nil.
func Err(results []Result) error {
	var failed []string
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result.Name+": "+result.Detail)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return errors.New("preflight failed: " + strings.Join(failed, "; "))
}
