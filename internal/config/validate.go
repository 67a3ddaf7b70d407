package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDropbox(); err != nil {
		return err
	}
	if err := c.validateLark(); err != nil {
		return err
	}
	if err := c.validateTuning(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDropbox() error {
	if c.Dropbox.ShareLink == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("dropbox.share_link is required. Set DROPBOX_SHARE_LINK or edit %s (create with 'dropwatch config init')", defaultPath)
	}
	if _, err := NormalizeShareLink(c.Dropbox.ShareLink); err != nil {
		return fmt.Errorf("dropbox.share_link: %w", err)
	}
	return nil
}

func (c *Config) validateLark() error {
	hasWebhook := c.Lark.WebhookURL != ""
	hasAppID := c.Lark.AppID != ""
	hasAppSecret := c.Lark.AppSecret != ""

	if hasAppID != hasAppSecret {
		return errors.New("lark.app_id and lark.app_secret must be set together (app_secret may come from LARK_APP_SECRET or the keyring)")
	}
	if !hasWebhook && !(hasAppID && c.Lark.ChatID != "") {
		return errors.New("lark: set webhook_url, or app_id + app_secret + chat_id, to deliver notifications")
	}
	if hasWebhook && !strings.HasPrefix(c.Lark.WebhookURL, "https://") && !strings.HasPrefix(c.Lark.WebhookURL, "http://") {
		return fmt.Errorf("lark.webhook_url must be an http(s) url, got %q", c.Lark.WebhookURL)
	}
	return nil
}

func (c *Config) validateTuning() error {
	return ensurePositiveMap(map[string]int{
		"dropbox.request_timeout": c.Dropbox.RequestTimeout,
		"lark.request_timeout":    c.Lark.RequestTimeout,
		"delivery.max_attempts":   c.Delivery.MaxAttempts,
		"fetch.concurrency":       c.Fetch.Concurrency,
		"fetch.max_attempts":      c.Fetch.MaxAttempts,
		"notify.max_listed":       c.Notify.MaxListed,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
