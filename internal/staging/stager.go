package staging

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"dropwatch/internal/changes"
	"dropwatch/internal/config"
	"dropwatch/internal/fileutil"
	"dropwatch/internal/logging"
	"dropwatch/internal/remote"
)

// StagedFile is a fetched file written under its normalized name.
type StagedFile struct {
	Event  changes.Event
	Name   string
	Path   string
	Data   []byte
	SHA256 string
}

// Failure pairs an event with the FetchError or WriteError that excluded it.
type Failure struct {
	Event changes.Event
	Err   error
}

// Result is the outcome of staging one batch. Staged keeps detector order.
type Result struct {
	Staged []StagedFile
	Failed []Failure
}

// Events returns the events that were staged successfully.
func (r Result) Events() []changes.Event {
	out := make([]changes.Event, 0, len(r.Staged))
	for _, file := range r.Staged {
		out = append(out, file.Event)
	}
	return out
}

// Stager fetches and writes change events.
type Stager struct {
	source      remote.Source
	dir         string
	concurrency int
	logger      *slog.Logger
}

// NewStager creates a stager writing into the configured storage directory.
func NewStager(cfg *config.Config, source remote.Source, logger *slog.Logger) *Stager {
	return &Stager{
		source:      source,
		dir:         cfg.Paths.StorageDir,
		concurrency: max(cfg.Fetch.Concurrency, 1),
		logger:      logging.NewComponentLogger(logger, "staging"),
	}
}

type fetched struct {
	data []byte
	err  error
}

// Stage fetches every event concurrently, then writes the results in order.
func (s *Stager) Stage(ctx context.Context, events []changes.Event) Result {
	var result Result
	if len(events) == 0 {
		return result
	}

	results := make([]fetched, len(events))
	var group errgroup.Group
	group.SetLimit(s.concurrency)
	for i, event := range events {
		group.Go(func() error {
			data, err := s.source.Fetch(ctx, event.File)
			results[i] = fetched{data: data, err: err}
			return nil
		})
	}
	_ = group.Wait()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		for _, event := range events {
			s.fail(&result, event, &WriteError{ID: event.File.ID, Path: s.dir, Err: err})
		}
		return result
	}

	written := make(map[string]string, len(events))
	for i, event := range events {
		if err := results[i].err; err != nil {
			s.fail(&result, event, &FetchError{ID: event.File.ID, Err: err})
			continue
		}
		staged, err := s.write(event, results[i].data)
		if err != nil {
			s.fail(&result, event, err)
			continue
		}
		if previous, ok := written[staged.Name]; ok {
			logging.WarnWithContext(s.logger, "normalized name collision; later file overwrites earlier",
				"staging_name_collision",
				logging.String(logging.FieldFile, staged.Name),
				logging.String("overwritten_remote_id", previous),
				logging.String(logging.FieldRemoteID, event.File.ID),
				logging.String(logging.FieldErrorHint, "rename one of the remote files"),
				logging.String(logging.FieldImpact, "only the later file is kept on disk"),
			)
		}
		written[staged.Name] = event.File.ID
		result.Staged = append(result.Staged, staged)
		s.logger.Debug("file staged",
			logging.String(logging.FieldFile, staged.Name),
			logging.String(logging.FieldRemoteID, event.File.ID),
			logging.Int("bytes", len(staged.Data)),
		)
	}
	return result
}

func (s *Stager) write(event changes.Event, data []byte) (StagedFile, error) {
	name := event.NormalizedName
	target := filepath.Join(s.dir, name)
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return StagedFile{}, &WriteError{ID: event.File.ID, Path: target, Err: errors.New("unusable file name")}
	}
	if err := fileutil.WriteFileAtomic(target, data, 0o644); err != nil {
		return StagedFile{}, &WriteError{ID: event.File.ID, Path: target, Err: err}
	}
	return StagedFile{
		Event:  event,
		Name:   name,
		Path:   target,
		Data:   data,
		SHA256: fileutil.SHA256Hex(data),
	}, nil
}

func (s *Stager) fail(result *Result, event changes.Event, err error) {
	result.Failed = append(result.Failed, Failure{Event: event, Err: err})
	logging.WarnWithContext(s.logger, "file excluded from this run",
		"staging_file_failed",
		logging.String(logging.FieldRemoteID, event.File.ID),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "the file is retried on the next run"),
		logging.String(logging.FieldImpact, "file not notified or recorded this run"),
	)
}
