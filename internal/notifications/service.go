package notifications

import (
	"context"
	"errors"
	"net/http"
	"time"

	"dropwatch/internal/config"
)

// Notification modes.
const (
	ModeWebhook = "webhook"
	ModeApp     = "app"
	ModeHybrid  = "hybrid"
)

// uploadTimeout bounds a Drive upload, which carries the file body.
const uploadTimeout = 60 * time.Second

// Service delivers a single card. Implementations make one attempt per call;
// Notifier owns the retry policy.
type Service interface {
	Send(ctx context.Context, card Card) error
	Mode() string
}

// Uploader is implemented by services that can host a file and return a
// preview link.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (Preview, error)
}

// NewService selects the delivery mode from configuration:
//   - app credentials with chat_id: app mode (send via messaging API, upload)
//   - app credentials with webhook_url: hybrid (send via webhook, upload)
//   - webhook_url only: webhook mode (send only)
func NewService(cfg *config.Config) (Service, error) {
	if cfg == nil {
		return nil, errors.New("notifications: config is required")
	}
	client := &http.Client{Timeout: cfg.LarkTimeout()}
	var webhook *webhookSender
	if cfg.Lark.WebhookURL != "" {
		webhook = &webhookSender{
			url:    cfg.Lark.WebhookURL,
			secret: cfg.Lark.Secret,
			client: client,
			now:    time.Now,
		}
	}

	if !cfg.HasAppCredentials() {
		if webhook == nil {
			return nil, errors.New("notifications: no lark webhook_url or app credentials configured")
		}
		return &webhookService{webhook: webhook}, nil
	}

	app := &appClient{
		baseURL:     cfg.Lark.BaseURL,
		fileBaseURL: cfg.Lark.FileBaseURL,
		appID:       cfg.Lark.AppID,
		appSecret:   cfg.Lark.AppSecret,
		folderToken: cfg.Lark.FolderToken,
		client:      client,
		upload:      &http.Client{Timeout: max(uploadTimeout, cfg.LarkTimeout())},
		now:         time.Now,
	}
	if cfg.Lark.ChatID != "" {
		return &appService{app: app, chatID: cfg.Lark.ChatID}, nil
	}
	if webhook == nil {
		return nil, errors.New("notifications: app credentials need lark.chat_id or lark.webhook_url to send cards")
	}
	return &hybridService{webhook: webhook, app: app}, nil
}

type webhookService struct {
	webhook *webhookSender
}

func (s *webhookService) Send(ctx context.Context, card Card) error {
	return s.webhook.send(ctx, card)
}

func (s *webhookService) Mode() string { return ModeWebhook }

type appService struct {
	app    *appClient
	chatID string
}

func (s *appService) Send(ctx context.Context, card Card) error {
	return s.app.sendToChat(ctx, s.chatID, card)
}

func (s *appService) Upload(ctx context.Context, name string, data []byte) (Preview, error) {
	return s.app.uploadFile(ctx, name, data)
}

func (s *appService) Mode() string { return ModeApp }

type hybridService struct {
	webhook *webhookSender
	app     *appClient
}

func (s *hybridService) Send(ctx context.Context, card Card) error {
	return s.webhook.send(ctx, card)
}

func (s *hybridService) Upload(ctx context.Context, name string, data []byte) (Preview, error) {
	return s.app.uploadFile(ctx, name, data)
}

func (s *hybridService) Mode() string { return ModeHybrid }
