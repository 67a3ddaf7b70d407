package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"dropwatch/internal/changes"
	"dropwatch/internal/config"
	"dropwatch/internal/history"
	"dropwatch/internal/logging"
	"dropwatch/internal/notifications"
	"dropwatch/internal/preflight"
	"dropwatch/internal/remote"
	"dropwatch/internal/snapshot"
	"dropwatch/internal/staging"
)

// Coordinator owns one tick at a time.
type Coordinator struct {
	cfg      *config.Config
	source   remote.Source
	store    *snapshot.Store
	stager   *staging.Stager
	notifier *notifications.Notifier
	history  *history.Store
	logger   *slog.Logger
	now      func() time.Time
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithHistory records every finished tick in the run ledger.
func WithHistory(store *history.Store) Option {
	return func(c *Coordinator) {
		c.history = store
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// New wires a coordinator from its collaborators.
func New(cfg *config.Config, source remote.Source, notifier *notifications.Notifier, logger *slog.Logger, opts ...Option) *Coordinator {
	logger = logging.NewComponentLogger(logger, "coordinator")
	c := &Coordinator{
		cfg:      cfg,
		source:   source,
		store:    snapshot.NewStore(cfg.SnapshotPath(), logger),
		stager:   staging.NewStager(cfg, source, logger),
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the snapshot store the coordinator commits to.
func (c *Coordinator) Store() *snapshot.Store {
	return c.store
}

// tick carries the working values of one run.
type tick struct {
	report  Report
	started time.Time
	logger  *slog.Logger
	events  []changes.Event
	staged  staging.Result
	tracked int
}

// Tick performs one run. A lock timeout yields a skipped report and a nil
// error. Any other error leaves the snapshot file as it was.
func (c *Coordinator) Tick(ctx context.Context) (Report, error) {
	t := &tick{
		report:  Report{RunID: uuid.NewString(), State: StateStart},
		started: c.now(),
	}
	t.logger = c.logger.With(logging.String(logging.FieldRunID, t.report.RunID))

	unlock, err := c.store.Lock(ctx, c.cfg.LockWait())
	if err != nil {
		if errors.Is(err, snapshot.ErrLocked) {
			t.report.State = StateSkipped
			t.report.Duration = c.now().Sub(t.started)
			t.logger.Info("another tick holds the snapshot lock; skipping",
				logging.String(logging.FieldEventType, "tick_skipped"),
				logging.String("lock_path", c.store.LockPath()),
			)
			return t.report, nil
		}
		return c.fail(ctx, t, fmt.Errorf("acquire snapshot lock: %w", err))
	}
	defer unlock()

	snap, err := c.store.Load()
	if err != nil {
		return c.fail(ctx, t, err)
	}
	t.tracked = snap.Len()

	if err := preflight.EnsureStorage(c.cfg); err != nil {
		return c.fail(ctx, t, err)
	}

	listing, err := c.source.List(ctx)
	if err != nil {
		return c.fail(ctx, t, err)
	}
	t.report.Listed = len(listing)
	c.advance(t, StateListed, logging.Int("listed", len(listing)))

	t.events = changes.Detect(listing, snap)
	t.report.Events = len(t.events)
	c.advance(t, StateDetected, logging.Int("events", len(t.events)))

	t.staged = c.stager.Stage(ctx, t.events)
	if err := ctx.Err(); err != nil {
		return c.fail(ctx, t, err)
	}
	t.report.Staged = len(t.staged.Staged)
	t.report.Failed = len(t.staged.Failed)
	for _, file := range t.staged.Staged {
		t.report.Files = append(t.report.Files, file.Name)
	}
	c.advance(t, StateStaged,
		logging.Int("staged", t.report.Staged),
		logging.Int("failed", t.report.Failed),
	)

	outcome, err := c.notifier.Notify(ctx, t.staged.Staged)
	t.report.Kind = outcome.Kind
	if err != nil {
		return c.fail(ctx, t, err)
	}
	if outcome.Kind == notifications.KindUpdate {
		t.report.Notified = len(t.staged.Staged)
	}
	c.advance(t, StateNotified, logging.String("kind", outcome.Kind))

	now := c.now()
	next := snap.Advance(changes.Entries(t.staged.Events(), now), now)
	if err := c.store.Save(next); err != nil {
		return c.fail(ctx, t, err)
	}
	t.tracked = next.Len()
	c.advance(t, StateCommitted, logging.Int("tracked", t.tracked))

	result := staging.CleanStale(ctx, c.cfg.Paths.StorageDir, c.cfg.RetentionAge(), t.logger)
	if len(result.Removed) > 0 {
		t.logger.Debug("pruned storage directory", logging.Int("removed", len(result.Removed)))
	}

	c.finish(ctx, t)
	t.logger.Info("tick committed",
		logging.String(logging.FieldEventType, "tick_committed"),
		logging.Int("events", t.report.Events),
		logging.Int("notified", t.report.Notified),
		logging.Duration("duration", t.report.Duration),
	)
	return t.report, nil
}

func (c *Coordinator) advance(t *tick, state State, attrs ...logging.Attr) {
	t.report.State = state
	attrs = append(attrs, logging.String(logging.FieldState, string(state)))
	t.logger.Debug("tick advanced", logging.Args(attrs...)...)
}

func (c *Coordinator) fail(ctx context.Context, t *tick, err error) (Report, error) {
	t.report.FailedAt = t.report.State
	t.report.State = StateFailed
	t.report.Err = err

	logging.ErrorWithContext(t.logger, "tick failed", "tick_failed",
		logging.String("failed_at", string(t.report.FailedAt)),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, hint(err)),
		logging.String(logging.FieldImpact, "snapshot not advanced; changes will be detected again next tick"),
	)
	c.finish(ctx, t)
	return t.report, err
}

func hint(err error) string {
	var (
		corrupt  *snapshot.CorruptStateError
		persist  *snapshot.PersistenceError
		list     *remote.ListError
		delivery *notifications.DeliveryError
	)
	switch {
	case errors.As(err, &corrupt):
		return "inspect or remove the snapshot file with 'dropwatch reset'"
	case errors.As(err, &persist):
		return "check free space and permissions of the state directory"
	case errors.As(err, &list):
		return "check the dropbox share link and network access"
	case errors.As(err, &delivery):
		return "check lark credentials with 'dropwatch test-notify'"
	default:
		return "see error for details"
	}
}
