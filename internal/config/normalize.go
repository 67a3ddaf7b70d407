package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

func (c *Config) normalize() error {
	if err := c.normalizeDropbox(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeLark(); err != nil {
		return err
	}
	c.normalizeTuning()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeDropbox() error {
	c.Dropbox.ShareLink = strings.TrimSpace(c.Dropbox.ShareLink)
	if c.Dropbox.ShareLink == "" {
		c.Dropbox.ShareLink = envValue("DROPBOX_SHARE_LINK")
	}
	c.Dropbox.UserAgent = strings.TrimSpace(c.Dropbox.UserAgent)
	if c.Dropbox.UserAgent == "" {
		c.Dropbox.UserAgent = defaultDropboxUserAgent
	}
	if c.Dropbox.RequestTimeout <= 0 {
		c.Dropbox.RequestTimeout = defaultDropboxRequestTimeout
	}
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.StorageDir) == "" || c.Paths.StorageDir == defaultStorageDir {
		if value := envValue("STORAGE_DIR"); value != "" {
			c.Paths.StorageDir = value
		}
	}
	if strings.TrimSpace(c.Paths.StorageDir) == "" {
		c.Paths.StorageDir = defaultStorageDir
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}

	var err error
	if c.Paths.StorageDir, err = expandPath(c.Paths.StorageDir); err != nil {
		return fmt.Errorf("paths.storage_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Metrics.TextfilePath = strings.TrimSpace(c.Metrics.TextfilePath); c.Metrics.TextfilePath != "" {
		if c.Metrics.TextfilePath, err = expandPath(c.Metrics.TextfilePath); err != nil {
			return fmt.Errorf("metrics.textfile_path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeLark() error {
	fill := func(field *string, env string) {
		*field = strings.TrimSpace(*field)
		if *field == "" {
			*field = envValue(env)
		}
	}
	fill(&c.Lark.WebhookURL, "LARK_WEBHOOK_URL")
	fill(&c.Lark.Secret, "LARK_SECRET")
	fill(&c.Lark.AppID, "LARK_APP_ID")
	fill(&c.Lark.AppSecret, "LARK_APP_SECRET")
	fill(&c.Lark.ChatID, "LARK_CHAT_ID")
	fill(&c.Lark.FolderToken, "LARK_FOLDER_TOKEN")

	if c.Lark.AppSecret == "" && c.Lark.AppID != "" && c.Lark.UseKeyring {
		secret, err := keyring.Get(KeyringService, KeyringAppSecretUser)
		switch {
		case err == nil:
			c.Lark.AppSecret = strings.TrimSpace(secret)
		case errors.Is(err, keyring.ErrNotFound):
		default:
			return fmt.Errorf("lark.app_secret: read keyring: %w", err)
		}
	}

	c.Lark.BaseURL = strings.TrimRight(strings.TrimSpace(c.Lark.BaseURL), "/")
	if c.Lark.BaseURL == "" {
		c.Lark.BaseURL = defaultLarkBaseURL
	}
	c.Lark.FileBaseURL = strings.TrimRight(strings.TrimSpace(c.Lark.FileBaseURL), "/")
	if c.Lark.FileBaseURL == "" {
		c.Lark.FileBaseURL = defaultLarkFileBaseURL
	}
	if c.Lark.RequestTimeout <= 0 {
		c.Lark.RequestTimeout = defaultLarkRequestTimeout
	}
	return nil
}

func (c *Config) normalizeTuning() {
	if c.Notify.MaxListed <= 0 {
		c.Notify.MaxListed = defaultNotifyMaxListed
	}
	if c.Delivery.MaxAttempts <= 0 {
		c.Delivery.MaxAttempts = defaultDeliveryMaxAttempts
	}
	if c.Delivery.BackoffSeconds < 0 {
		c.Delivery.BackoffSeconds = 0
	}
	if c.Fetch.Concurrency <= 0 {
		c.Fetch.Concurrency = defaultFetchConcurrency
	}
	if c.Fetch.MaxAttempts <= 0 {
		c.Fetch.MaxAttempts = defaultFetchMaxAttempts
	}
	if c.Fetch.BackoffSeconds < 0 {
		c.Fetch.BackoffSeconds = 0
	}
	if c.Storage.RetentionDays < 0 {
		c.Storage.RetentionDays = 0
	}
	if c.Storage.MinFreeMiB < 0 {
		c.Storage.MinFreeMiB = 0
	}
	if c.Lock.WaitSeconds < 0 {
		c.Lock.WaitSeconds = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// NormalizeShareLink forces the direct-download form of a Dropbox shared
// link (dl=1) so the folder is served as a zip archive.
func NormalizeShareLink(link string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return "", fmt.Errorf("parse share link: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return "", fmt.Errorf("share link must be an http(s) url, got %q", link)
	}
	query := parsed.Query()
	query.Set("dl", "1")
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func envValue(name string) string {
	if value, ok := os.LookupEnv(name); ok {
		return strings.TrimSpace(value)
	}
	return ""
}
