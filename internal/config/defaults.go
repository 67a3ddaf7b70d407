package config

const (
	defaultConfigPath            = "~/.config/dropwatch/config.toml"
	defaultStorageDir            = "~/.local/share/dropwatch/downloads"
	defaultStateDir              = "~/.local/share/dropwatch/data"
	defaultLogDir                = "~/.local/share/dropwatch/logs"
	defaultDropboxRequestTimeout = 120
	defaultDropboxUserAgent      = "Mozilla/5.0 (compatible; dropwatch/0.1)"
	defaultLarkBaseURL           = "https://open.larksuite.com"
	defaultLarkFileBaseURL       = "https://www.larksuite.com/file"
	defaultLarkRequestTimeout    = 10
	defaultNotifyMaxListed       = 10
	defaultDeliveryMaxAttempts   = 3
	defaultDeliveryBackoff       = 5
	defaultFetchConcurrency      = 4
	defaultFetchMaxAttempts      = 3
	defaultFetchBackoff          = 10
	defaultLockWaitSeconds       = 30
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"

	// KeyringService is the OS keyring service name holding the Lark app secret.
	KeyringService = "dropwatch"
	// KeyringAppSecretUser is the keyring account for the Lark app secret.
	KeyringAppSecretUser = "lark_app_secret"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Dropbox: Dropbox{
			RequestTimeout: defaultDropboxRequestTimeout,
			UserAgent:      defaultDropboxUserAgent,
		},
		Paths: Paths{
			StorageDir: defaultStorageDir,
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
		},
		Lark: Lark{
			BaseURL:        defaultLarkBaseURL,
			FileBaseURL:    defaultLarkFileBaseURL,
			RequestTimeout: defaultLarkRequestTimeout,
		},
		Notify: Notify{
			MaxListed: defaultNotifyMaxListed,
			Upload:    true,
		},
		Delivery: Delivery{
			MaxAttempts:    defaultDeliveryMaxAttempts,
			BackoffSeconds: defaultDeliveryBackoff,
		},
		Fetch: Fetch{
			Concurrency:    defaultFetchConcurrency,
			MaxAttempts:    defaultFetchMaxAttempts,
			BackoffSeconds: defaultFetchBackoff,
		},
		Lock: Lock{
			WaitSeconds: defaultLockWaitSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
