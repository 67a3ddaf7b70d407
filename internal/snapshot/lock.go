package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"dropwatch/internal/logging"
)

const lockRetryDelay = 100 * time.Millisecond

// LockPath returns the advisory lock file guarding the snapshot.
func (s *Store) LockPath() string {
	return s.path + ".lock"
}

// Lock acquires the inter-process tick lock, waiting up to wait. It returns
// ErrLocked when another process still holds it after the wait.
func (s *Store) Lock(ctx context.Context, wait time.Duration) (func(), error) {
	lockPath := s.LockPath()
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	lock := flock.New(lockPath)

	var (
		ok  bool
		err error
	)
	if wait <= 0 {
		ok, err = lock.TryLock()
	} else {
		waitCtx, cancel := context.WithTimeout(ctx, wait)
		ok, err = lock.TryLockContext(waitCtx, lockRetryDelay)
		cancel()
		if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			ok, err = false, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}

	return func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("failed to release snapshot lock",
				logging.String("lock", lockPath),
				logging.Error(err),
			)
		}
	}, nil
}
