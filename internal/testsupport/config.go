package testsupport

import (
	"path/filepath"
	"testing"

	"dropwatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Delivery and fetch backoffs are zero so retry paths run instantly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Dropbox.ShareLink = "https://www.dropbox.com/sh/test/folder?dl=0"
	cfgVal.Paths.StorageDir = filepath.Join(base, "downloads")
	cfgVal.Paths.StateDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Lark.WebhookURL = "https://open.larksuite.com/open-apis/bot/v2/hook/test"
	cfgVal.Delivery.BackoffSeconds = 0
	cfgVal.Fetch.BackoffSeconds = 0
	cfgVal.Lock.WaitSeconds = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithShareLink points the Dropbox source at the given URL.
func WithShareLink(link string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dropbox.ShareLink = link
	}
}

// WithWebhook sets the Lark webhook URL and signing secret.
func WithWebhook(url, secret string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Lark.WebhookURL = url
		b.cfg.Lark.Secret = secret
	}
}

// WithApp configures Lark app credentials against baseURL. An empty chatID
// leaves the webhook in place, producing hybrid mode.
func WithApp(baseURL, chatID string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Lark.AppID = "cli_test"
		b.cfg.Lark.AppSecret = "secret_test"
		b.cfg.Lark.ChatID = chatID
		b.cfg.Lark.BaseURL = baseURL
		if chatID != "" {
			b.cfg.Lark.WebhookURL = ""
		}
	}
}

// WithHeartbeat toggles heartbeat cards.
func WithHeartbeat(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notify.Heartbeat = enabled
	}
}

// WithMetricsTextfile enables the Prometheus textfile output under the base dir.
func WithMetricsTextfile() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Metrics.TextfilePath = filepath.Join(b.baseDir, "metrics", "dropwatch.prom")
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StorageDir)
}
