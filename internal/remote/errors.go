package remote

import (
	"errors"
	"fmt"
)

// ErrNotListed is returned by Fetch when the descriptor is not part of the
// current listing, typically because the file vanished between ticks.
var ErrNotListed = errors.New("file not present in current listing")

// ListError reports a failed remote listing after all attempts.
type ListError struct {
	Attempts int
	Err      error
}

func (e *ListError) Error() string {
	return fmt.Sprintf("list remote folder (after %d attempt(s)): %v", e.Attempts, e.Err)
}

func (e *ListError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx response from the remote provider.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s", e.Status)
}

// Transient reports whether the status is worth retrying.
func (e *StatusError) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
