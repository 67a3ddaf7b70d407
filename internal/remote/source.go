package remote

import (
	"context"
	"fmt"
	"time"
)

// FileDescriptor identifies one remote file for the duration of a tick.
type FileDescriptor struct {
	// ID is the slash-separated path inside the shared folder.
	ID          string
	Path        string
	Name        string
	Size        int64
	ModTime     time.Time
	Fingerprint string
}

// Source lists the remote folder and fetches file contents.
type Source interface {
	List(ctx context.Context) ([]FileDescriptor, error)
	Fetch(ctx context.Context, file FileDescriptor) ([]byte, error)
}

// Fingerprint builds the descriptor fingerprint from archive metadata.
func Fingerprint(crc uint32, size int64) string {
	return fmt.Sprintf("crc32:%08x:%d", crc, size)
}
