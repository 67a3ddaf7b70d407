package snapshot

import (
	"errors"
	"fmt"
)

// ErrLocked is returned by Lock when another tick holds the state lock.
var ErrLocked = errors.New("snapshot locked by another run")

// CorruptStateError reports a persisted snapshot that exists but cannot be
// used. The operator must inspect or reset it.
type CorruptStateError struct {
	Path string
	Err  error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("snapshot %s is corrupt: %v (inspect it or run 'dropwatch reset')", e.Path, e.Err)
}

func (e *CorruptStateError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a failed save. The previous snapshot is intact.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist snapshot %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
