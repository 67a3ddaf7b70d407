package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Dropbox describes the watched shared folder.
type Dropbox struct {
	ShareLink      string `toml:"share_link"`
	RequestTimeout int    `toml:"request_timeout"`
	UserAgent      string `toml:"user_agent"`
}

// Paths contains directory configuration.
type Paths struct {
	StorageDir string `toml:"storage_dir"`
	StateDir   string `toml:"state_dir"`
	LogDir     string `toml:"log_dir"`
}

// Lark contains messaging credentials. Which fields are set decides the
// notification mode: webhook only, app credentials, or both.
type Lark struct {
	WebhookURL     string `toml:"webhook_url"`
	Secret         string `toml:"secret"`
	AppID          string `toml:"app_id"`
	AppSecret      string `toml:"app_secret"`
	ChatID         string `toml:"chat_id"`
	FolderToken    string `toml:"folder_token"`
	BaseURL        string `toml:"base_url"`
	FileBaseURL    string `toml:"file_base_url"`
	RequestTimeout int    `toml:"request_timeout"`
	UseKeyring     bool   `toml:"use_keyring"`
}

// Notify controls card content.
type Notify struct {
	Heartbeat bool `toml:"heartbeat"`
	MaxListed int  `toml:"max_listed"`
	Upload    bool `toml:"upload"`
}

// Delivery bounds the retry of card delivery.
type Delivery struct {
	MaxAttempts    int `toml:"max_attempts"`
	BackoffSeconds int `toml:"backoff_seconds"`
}

// Fetch controls remote listing and per-file fetches.
type Fetch struct {
	Concurrency    int `toml:"concurrency"`
	MaxAttempts    int `toml:"max_attempts"`
	BackoffSeconds int `toml:"backoff_seconds"`
}

// Storage controls the staged download directory.
type Storage struct {
	RetentionDays int `toml:"retention_days"`
	MinFreeMiB    int `toml:"min_free_mib"`
}

// Lock controls the inter-process tick lock.
type Lock struct {
	WaitSeconds int `toml:"wait_seconds"`
}

// Metrics controls the node_exporter textfile output.
type Metrics struct {
	TextfilePath string `toml:"textfile_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for dropwatch.
//
// Configuration sections by subsystem:
//   - Dropbox: the shared folder link and download settings
//   - Paths: staged downloads, snapshot/history state, logs
//   - Lark: webhook and app credentials
//   - Notify: heartbeat mode and card content
//   - Delivery: bounded retry for card delivery
//   - Fetch: listing retries and fetch concurrency
//   - Storage: staged file retention and free space floor
//   - Lock: how long a tick waits for a concurrent tick
//   - Metrics: optional Prometheus textfile output
//   - Logging: log format and level
type Config struct {
	Dropbox  Dropbox  `toml:"dropbox"`
	Paths    Paths    `toml:"paths"`
	Lark     Lark     `toml:"lark"`
	Notify   Notify   `toml:"notify"`
	Delivery Delivery `toml:"delivery"`
	Fetch    Fetch    `toml:"fetch"`
	Storage  Storage  `toml:"storage"`
	Lock     Lock     `toml:"lock"`
	Metrics  Metrics  `toml:"metrics"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and secrets resolved from the environment or keyring.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("dropwatch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a tick writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StorageDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SnapshotPath is the well-known location of the persisted snapshot.
// Deleting this file is the documented reset operation.
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.Paths.StateDir, "snapshot.json")
}

// HistoryPath is the sqlite run ledger location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// DropboxTimeout returns the archive download timeout.
func (c *Config) DropboxTimeout() time.Duration {
	return time.Duration(c.Dropbox.RequestTimeout) * time.Second
}

// LarkTimeout returns the per-request timeout for Lark API calls.
func (c *Config) LarkTimeout() time.Duration {
	return time.Duration(c.Lark.RequestTimeout) * time.Second
}

// DeliveryBackoff returns the fixed wait between delivery attempts.
func (c *Config) DeliveryBackoff() time.Duration {
	return time.Duration(c.Delivery.BackoffSeconds) * time.Second
}

// FetchBackoff returns the wait between listing attempts.
func (c *Config) FetchBackoff() time.Duration {
	return time.Duration(c.Fetch.BackoffSeconds) * time.Second
}

// LockWait returns how long a tick waits for a concurrent tick to finish.
func (c *Config) LockWait() time.Duration {
	return time.Duration(c.Lock.WaitSeconds) * time.Second
}

// RetentionAge returns the staged file retention, zero when disabled.
func (c *Config) RetentionAge() time.Duration {
	return time.Duration(c.Storage.RetentionDays) * 24 * time.Hour
}

// HasAppCredentials reports whether Lark app credentials are configured.
func (c *Config) HasAppCredentials() bool {
	return strings.TrimSpace(c.Lark.AppID) != "" && strings.TrimSpace(c.Lark.AppSecret) != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
