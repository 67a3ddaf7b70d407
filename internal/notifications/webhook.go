package notifications

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strconv"
	"time"
)

type webhookPayload struct {
	MsgType   string          `json:"msg_type"`
	Card      interactiveCard `json:"card"`
	Timestamp string          `json:"timestamp,omitempty"`
	Sign      string          `json:"sign,omitempty"`
}

// webhookSender posts cards to a custom bot webhook.
type webhookSender struct {
	url    string
	secret string
	client *http.Client
	now    func() time.Time
}

func (w *webhookSender) send(ctx context.Context, card Card) error {
	payload := webhookPayload{
		MsgType: "interactive",
		Card:    card.interactive(),
	}
	if w.secret != "" {
		timestamp := strconv.FormatInt(w.now().Unix(), 10)
		payload.Timestamp = timestamp
		payload.Sign = SignWebhook(timestamp, w.secret)
	}
	return postJSON(ctx, w.client, w.url, "", payload, nil)
}

// SignWebhook computes the Lark custom bot signature: HMAC-SHA256 keyed with
// "timestamp\nsecret" over an empty message, base64 encoded.
func SignWebhook(timestamp, secret string) string {
	mac := hmac.New(sha256.New, []byte(timestamp+"\n"+secret))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
