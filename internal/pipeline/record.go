package pipeline

import (
	"context"
	"errors"
	"time"

	"dropwatch/internal/changes"
	"dropwatch/internal/history"
	"dropwatch/internal/logging"
	"dropwatch/internal/metrics"
	"dropwatch/internal/staging"
)

// finish stamps the duration and runs the best-effort bookkeeping. Its
// failures are logged and never change the tick outcome.
func (c *Coordinator) finish(ctx context.Context, t *tick) {
	finished := c.now()
	t.report.Duration = finished.Sub(t.started)

	// Bookkeeping must survive a cancelled tick.
	ctx = context.WithoutCancel(ctx)

	c.recordHistory(ctx, t, finished)
	c.writeMetrics(ctx, t)
}

func (c *Coordinator) recordHistory(ctx context.Context, t *tick, finished time.Time) {
	if c.history == nil {
		return
	}
	run := history.Run{
		ID:         t.report.RunID,
		StartedAt:  t.started,
		FinishedAt: finished,
		State:      string(t.report.State),
		Kind:       t.report.Kind,
		Mode:       c.notifier.Mode(),
		Listed:     t.report.Listed,
		Detected:   t.report.Events,
		Staged:     t.report.Staged,
		Failed:     t.report.Failed,
		Notified:   t.report.Notified,
	}
	if t.report.Err != nil {
		run.Error = t.report.Err.Error()
	}
	if err := c.history.Record(ctx, run, runFiles(t)); err != nil {
		logging.WarnWithContext(t.logger, "history record failed", "history_record_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the history database in the state directory"),
			logging.String(logging.FieldImpact, "this tick is missing from 'dropwatch history'"),
		)
	}
}

func runFiles(t *tick) []history.RunFile {
	files := make([]history.RunFile, 0, len(t.staged.Staged)+len(t.staged.Failed))
	delivered := t.report.State == StateCommitted && t.report.Notified > 0
	for _, staged := range t.staged.Staged {
		outcome := history.OutcomeUndelivered
		if delivered {
			outcome = history.OutcomeNotified
		}
		files = append(files, runFile(staged.Event, outcome, nil))
	}
	for _, failure := range t.staged.Failed {
		outcome := history.OutcomeFetchFailed
		var writeErr *staging.WriteError
		if errors.As(failure.Err, &writeErr) {
			outcome = history.OutcomeWriteFailed
		}
		files = append(files, runFile(failure.Event, outcome, failure.Err))
	}
	return files
}

func runFile(event changes.Event, outcome string, err error) history.RunFile {
	file := history.RunFile{
		RemoteID: event.File.ID,
		Name:     event.NormalizedName,
		Change:   string(event.Kind),
		Outcome:  outcome,
	}
	if err != nil {
		file.Error = err.Error()
	}
	return file
}

func (c *Coordinator) writeMetrics(ctx context.Context, t *tick) {
	path := c.cfg.Metrics.TextfilePath
	if path == "" {
		return
	}
	sample := metrics.Tick{
		Started:   t.started,
		Duration:  t.report.Duration,
		State:     string(t.report.State),
		Kind:      t.report.Kind,
		Listed:    t.report.Listed,
		Detected:  t.report.Events,
		Staged:    t.report.Staged,
		Failed:    t.report.Failed,
		Notified:  t.report.Notified,
		Succeeded: t.report.Committed(),
		Tracked:   t.tracked,
	}
	if sample.Succeeded {
		sample.LastSuccess = t.started
	} else if c.history != nil {
		if last, err := c.history.LastCommitted(ctx); err == nil && last != nil {
			sample.LastSuccess = last.StartedAt
		}
	}

	recorder := metrics.New()
	recorder.Observe(sample)
	if err := recorder.WriteTextfile(path); err != nil {
		logging.WarnWithContext(t.logger, "metrics textfile write failed", "metrics_write_failed",
			logging.Error(err),
			logging.String("path", path),
			logging.String(logging.FieldImpact, "monitoring sees stale tick metrics"),
		)
	}
}
