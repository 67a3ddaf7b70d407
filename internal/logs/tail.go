package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const maxLineBytes = 1024 * 1024

// Filter reports whether a log line should be shown. A nil Filter keeps
// every line.
type Filter func(line string) bool

// RunFilter keeps lines stamped with runID by either the console or the JSON
// handler.
func RunFilter(runID string) Filter {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil
	}
	console := "run_id=" + runID
	structured := `"run_id":"` + runID + `"`
	return func(line string) bool {
		return strings.Contains(line, console) || strings.Contains(line, structured)
	}
}

func (f Filter) keep(line string) bool {
	return f == nil || f(line)
}

// Last returns up to n matching lines from the end of path and the offset at
// which a follower should resume. A missing file yields no lines.
func Last(path string, n int, filter Filter) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if info, err := file.Stat(); err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	} else if info.IsDir() {
		return nil, 0, fmt.Errorf("log path %q is a directory", path)
	}

	if n <= 0 {
		offset, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, offset, nil
	}

	ring := make([]string, n)
	count, next := 0, 0
	offset, err := scan(file, func(line string) {
		if !filter.keep(line) {
			return
		}
		ring[next] = line
		next = (next + 1) % n
		count = min(count+1, n)
	})
	if err != nil {
		return nil, 0, err
	}

	lines := make([]string, 0, count)
	start := 0
	if count == n {
		start = next
	}
	for i := range count {
		lines = append(lines, ring[(start+i)%n])
	}
	return lines, offset, nil
}

// Follow polls path from offset and calls emit for each new matching line
// until ctx is done. When the file shrinks it starts again from the top.
func Follow(ctx context.Context, path string, offset int64, poll time.Duration, filter Filter, emit func(string)) error {
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		next, err := readFrom(path, offset, filter, emit)
		if err != nil {
			return err
		}
		offset = next

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64, filter Filter, emit func(string)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}

	consumed, err := scan(file, func(line string) {
		if filter.keep(line) {
			emit(line)
		}
	})
	if err != nil {
		return offset, err
	}
	return offset + consumed, nil
}

// scan feeds complete lines to fn and returns the bytes consumed. A trailing
// partial line is left for the next read.
func scan(r io.Reader, fn func(string)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return consumed, nil
			}
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		if len(line) > maxLineBytes {
			line = line[:maxLineBytes]
		}
		fn(strings.TrimRight(line, "\r\n"))
	}
}
