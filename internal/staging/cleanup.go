package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dropwatch/internal/fileutil"
	"dropwatch/internal/logging"
)

// CleanStaleResult contains the outcome of a cleanup pass.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes staged files older than maxAge and leftover temp files
// from interrupted writes. A maxAge of zero keeps staged files forever.
func CleanStale(ctx context.Context, storageDir string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	storageDir = strings.TrimSpace(storageDir)
	if storageDir == "" {
		return result
	}

	entries, err := os.ReadDir(storageDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: storageDir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(storageDir, entry.Name())
		temp := fileutil.IsTempName(entry.Name())
		if !temp {
			if maxAge <= 0 {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
				continue
			}
			if !info.ModTime().Before(cutoff) {
				continue
			}
		}

		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			logging.WarnWithContext(logger, "failed to remove stale staged file",
				"staging_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check storage_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
		if logger != nil {
			logger.Info("removed stale staged file",
				logging.String("path", path),
				logging.Bool("temp", temp),
				logging.String(logging.FieldEventType, "staging_cleanup"),
			)
		}
	}

	return result
}

// FileInfo describes one staged file.
type FileInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// ListFiles returns the staged files in storageDir, skipping temp files.
func ListFiles(storageDir string) ([]FileInfo, error) {
	storageDir = strings.TrimSpace(storageDir)
	if storageDir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(storageDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || fileutil.IsTempName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:    entry.Name(),
			Path:    filepath.Join(storageDir, entry.Name()),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}
	return files, nil
}
