// Package config loads, normalizes, and validates dropwatch configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the environment names the tool has
// always used (DROPBOX_SHARE_LINK, LARK_WEBHOOK_URL, LARK_APP_ID, ...). The Lark
// app secret may also live in the OS keyring. The Config record is built once
// at startup and passed explicitly to every component; nothing below the CLI
// reads the environment.
package config
