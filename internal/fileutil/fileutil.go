package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RenameFunc moves a finished temp file over its destination.
type RenameFunc func(oldpath, newpath string) error

// WriteFileAtomic writes data to a temp file next to path, fsyncs it, and
// renames it into place. Readers observe either the old or the new content.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	return WriteFileAtomicWith(path, data, mode, os.Rename)
}

// WriteFileAtomicWith is WriteFileAtomic with a caller-supplied rename step.
func WriteFileAtomicWith(path string, data []byte, mode os.FileMode, rename RenameFunc) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, TempPrefix(path)+"*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmpFile.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Chmod(mode); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	committed = true
	return SyncDir(dir)
}

// SyncDir flushes directory metadata so a completed rename survives a crash.
func SyncDir(dir string) error {
	handle, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open directory: %w", err)
	}
	defer handle.Close()
	if err := handle.Sync(); err != nil {
		return fmt.Errorf("sync directory: %w", err)
	}
	return nil
}

// TempPrefix returns the name prefix WriteFileAtomic uses for temp files of path.
func TempPrefix(path string) string {
	return "." + filepath.Base(path) + ".tmp-"
}

// IsTempName reports whether a base name looks like a WriteFileAtomic temp file.
func IsTempName(name string) bool {
	return strings.HasPrefix(name, ".") && strings.Contains(name, ".tmp-")
}

// SHA256Hex returns the hex-encoded SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
