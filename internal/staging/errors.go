package staging

import "fmt"

// FetchError reports a remote file whose bytes could not be retrieved.
type FetchError struct {
	ID  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.ID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// WriteError reports a fetched file that could not be written locally.
type WriteError struct {
	ID   string
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("stage %s to %s: %v", e.ID, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
