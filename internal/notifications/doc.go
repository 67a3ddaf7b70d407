// Package notifications delivers change and heartbeat cards to Lark.
//
// A Service is selected once at startup from configuration. Webhook mode
// posts interactive cards to a custom bot webhook, optionally signed with
// HMAC-SHA256. App mode authenticates with tenant credentials, sends cards to
// a chat through the messaging API, and can upload files to Lark Drive.
// Hybrid mode sends through the webhook and uploads with the app credentials.
// Services that can upload also implement Uploader; the pipeline never
// branches on the mode string.
//
// Notifier turns a staged batch into a card and delivers it with a bounded
// retry. Transient failures (network errors, HTTP 5xx and 429) are retried;
// anything else fails immediately. Exhausted delivery surfaces as
// DeliveryError so the caller leaves the snapshot untouched.
package notifications
