package notifications

import (
	"context"
	"log/slog"

	"dropwatch/internal/config"
	"dropwatch/internal/logging"
	"dropwatch/internal/retry"
	"dropwatch/internal/staging"
)

// Outcome kinds reported by Notify.
const (
	KindNone      = "none"
	KindUpdate    = "update"
	KindHeartbeat = "heartbeat"
)

// Outcome describes what Notify delivered.
type Outcome struct {
	Kind     string
	Attempts int
	Preview  *Preview
}

// Notifier formats a staged batch into a card and delivers it.
type Notifier struct {
	service    Service
	uploader   Uploader
	heartbeat  bool
	maxListed  int
	folderLink string
	retry      retry.Config
	logger     *slog.Logger
}

// NewNotifier wraps service with the configured card and retry policy.
// folderLink is the fallback link shown when no upload preview is available.
func NewNotifier(cfg *config.Config, service Service, folderLink string, logger *slog.Logger) *Notifier {
	logger = logging.NewComponentLogger(logger, "notifier")
	n := &Notifier{
		service:    service,
		heartbeat:  cfg.Notify.Heartbeat,
		maxListed:  cfg.Notify.MaxListed,
		folderLink: folderLink,
		logger:     logger,
	}
	if uploader, ok := service.(Uploader); ok && cfg.Notify.Upload {
		n.uploader = uploader
	}
	n.retry = retry.Config{
		MaxAttempts: cfg.Delivery.MaxAttempts,
		Wait:        cfg.DeliveryBackoff(),
		OnRetry: func(attempt int, err error) {
			logger.Warn("lark request failed; retrying",
				logging.Int("attempt", attempt),
				logging.Error(err),
			)
		},
	}
	return n
}

// Mode returns the underlying service mode.
func (n *Notifier) Mode() string {
	return n.service.Mode()
}

// Notify delivers one card for the batch. An empty batch sends a heartbeat
// when enabled and is otherwise a no-op. batch must be in display order.
func (n *Notifier) Notify(ctx context.Context, batch []staging.StagedFile) (Outcome, error) {
	if len(batch) == 0 {
		if !n.heartbeat {
			return Outcome{Kind: KindNone}, nil
		}
		attempts, err := n.deliver(ctx, KindHeartbeat, BuildHeartbeatCard())
		return Outcome{Kind: KindHeartbeat, Attempts: attempts}, err
	}

	names := make([]string, 0, len(batch))
	for _, file := range batch {
		names = append(names, file.Name)
	}

	outcome := Outcome{Kind: KindUpdate}
	link := n.fallbackLink()
	if preview, ok := n.uploadLatest(ctx, batch[len(batch)-1]); ok {
		outcome.Preview = &preview
		link = &Link{Text: "Open in Lark Drive", URL: preview.URL}
	}

	card := BuildUpdateCard(names, link, n.maxListed)
	attempts, err := n.deliver(ctx, KindUpdate, card)
	outcome.Attempts = attempts
	return outcome, err
}

// TestNotification sends a test card through the normal delivery path.
func (n *Notifier) TestNotification(ctx context.Context) error {
	_, err := n.deliver(ctx, "test", BuildTestCard(n.service.Mode()))
	return err
}

func (n *Notifier) uploadLatest(ctx context.Context, latest staging.StagedFile) (Preview, bool) {
	if n.uploader == nil {
		return Preview{}, false
	}
	var preview Preview
	_, err := retry.Do(ctx, n.retry, func(ctx context.Context) error {
		p, err := n.uploader.Upload(ctx, latest.Name, latest.Data)
		if err != nil {
			return err
		}
		preview = p
		return nil
	})
	if err != nil {
		logging.WarnWithContext(n.logger, "drive upload failed; linking the shared folder instead",
			"drive_upload_failed",
			logging.String(logging.FieldFile, latest.Name),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check lark app permissions for drive uploads"),
			logging.String(logging.FieldImpact, "card links to the dropbox folder"),
		)
		return Preview{}, false
	}
	n.logger.Info("uploaded latest file to drive",
		logging.String(logging.FieldFile, latest.Name),
		logging.String("file_token", preview.Token),
	)
	return preview, true
}

func (n *Notifier) fallbackLink() *Link {
	if n.folderLink == "" {
		return nil
	}
	return &Link{Text: "Open in Dropbox", URL: n.folderLink}
}

func (n *Notifier) deliver(ctx context.Context, kind string, card Card) (int, error) {
	attempts, err := retry.Do(ctx, n.retry, func(ctx context.Context) error {
		return n.service.Send(ctx, card)
	})
	if err != nil {
		return attempts, &DeliveryError{Kind: kind, Attempts: attempts, Err: err}
	}
	n.logger.Info("card delivered",
		logging.String("kind", kind),
		logging.String("mode", n.service.Mode()),
		logging.Int("attempts", attempts),
	)
	return attempts, nil
}
