package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dropwatch/internal/fileutil"
	"dropwatch/internal/logging"
)

// Store loads and saves the snapshot document.
type Store struct {
	path   string
	logger *slog.Logger
	rename fileutil.RenameFunc
}

// NewStore creates a store for the snapshot at path.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{
		path:   path,
		logger: logging.NewComponentLogger(logger, "snapshot"),
		rename: os.Rename,
	}
}

// Path returns the snapshot file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted snapshot. A missing file yields Empty.
func (s *Store) Load() (Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("no snapshot on disk; starting empty", logging.String("path", s.path))
			return Empty(), nil
		}
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return Snapshot{}, &CorruptStateError{Path: s.path, Err: errors.New("file is empty")}
	}
	if err := validateDocument(data); err != nil {
		return Snapshot{}, &CorruptStateError{Path: s.path, Err: err}
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, &CorruptStateError{Path: s.path, Err: err}
	}
	if snap.Files == nil {
		snap.Files = map[string]Entry{}
	}
	return snap, nil
}

// Save atomically replaces the persisted snapshot.
func (s *Store) Save(snap Snapshot) error {
	snap.Version = CurrentVersion
	if snap.Files == nil {
		snap.Files = map[string]Entry{}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return &PersistenceError{Path: s.path, Err: fmt.Errorf("encode: %w", err)}
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return &PersistenceError{Path: s.path, Err: err}
	}
	if err := fileutil.WriteFileAtomicWith(s.path, data, 0o644, s.rename); err != nil {
		return &PersistenceError{Path: s.path, Err: err}
	}
	s.logger.Debug("snapshot saved",
		logging.String("path", s.path),
		logging.Int("files", len(snap.Files)),
	)
	return nil
}

// Reset deletes the persisted snapshot and any leftover temp files so the
// next Load returns Empty. It reports whether a snapshot existed.
func (s *Store) Reset() (bool, error) {
	existed := true
	if err := os.Remove(s.path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("remove snapshot: %w", err)
		}
		existed = false
	}

	dir := filepath.Dir(s.path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return existed, nil
		}
		return existed, fmt.Errorf("read state dir: %w", err)
	}
	prefix := fileutil.TempPrefix(s.path)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return existed, fmt.Errorf("remove temp file: %w", err)
		}
	}
	if existed {
		s.logger.Info("snapshot reset", logging.String("path", s.path))
	}
	return existed, nil
}
