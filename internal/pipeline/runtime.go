package pipeline

import (
	"fmt"
	"log/slog"

	"dropwatch/internal/config"
	"dropwatch/internal/history"
	"dropwatch/internal/logging"
	"dropwatch/internal/notifications"
	"dropwatch/internal/remote"
)

// Runtime bundles a coordinator with the resources it owns.
type Runtime struct {
	Coordinator *Coordinator
	Notifier    *notifications.Notifier
	Source      *remote.Dropbox
	History     *history.Store
}

// Build constructs the production collaborators from cfg. The history ledger
// is optional: when it cannot be opened the tick still runs.
func Build(cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	source, err := remote.NewDropbox(cfg, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("dropbox source: %w", err)
	}
	service, err := notifications.NewService(cfg)
	if err != nil {
		return nil, fmt.Errorf("notification service: %w", err)
	}
	notifier := notifications.NewNotifier(cfg, service, source.PreviewURL(), logger)

	rt := &Runtime{Notifier: notifier, Source: source}
	var opts []Option
	if store, err := history.Open(cfg); err != nil {
		logging.WarnWithContext(logger, "history ledger unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the state directory or remove history.db"),
			logging.String(logging.FieldImpact, "ticks run but are not recorded"),
		)
	} else {
		rt.History = store
		opts = append(opts, WithHistory(store))
	}

	rt.Coordinator = New(cfg, source, notifier, logger, opts...)
	return rt, nil
}

// Close releases the history ledger.
func (r *Runtime) Close() error {
	if r == nil || r.History == nil {
		return nil
	}
	return r.History.Close()
}
