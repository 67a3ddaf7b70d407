package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"dropwatch/internal/retry"
)

const userAgent = "dropwatch/0.1"

// larkResponse covers both the open API envelope and the legacy webhook
// envelope (StatusCode/StatusMessage).
type larkResponse struct {
	Code          *int            `json:"code"`
	Msg           string          `json:"msg"`
	StatusCode    *int            `json:"StatusCode"`
	StatusMessage string          `json:"StatusMessage"`
	Data          json.RawMessage `json:"data"`
}

func (r larkResponse) result() (int, string) {
	if r.Code != nil {
		return *r.Code, r.Msg
	}
	if r.StatusCode != nil {
		return *r.StatusCode, r.StatusMessage
	}
	return 0, ""
}

func postJSON(ctx context.Context, client *http.Client, endpoint, bearer string, payload any, out any) error {
	label := endpointLabel(endpoint)
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", label, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", label, err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return do(ctx, client, req, label, out)
}

// do executes req and decodes the Lark envelope. Transport failures and
// transient statuses come back wrapped with retry.Retryable.
func do(ctx context.Context, client *http.Client, req *http.Request, label string, out any) error {
	req.Header.Set("User-Agent", userAgent)
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return retry.Retryable(fmt.Errorf("%s: %w", label, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return retry.Retryable(fmt.Errorf("%s: read response: %w", label, err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{
			Endpoint:   label,
			StatusCode: resp.StatusCode,
			Body:       truncate(strings.TrimSpace(string(raw)), 512),
		}
		if statusErr.Transient() {
			return retry.Retryable(statusErr)
		}
		return statusErr
	}

	var envelope larkResponse
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return fmt.Errorf("%s: decode response: %w", label, err)
		}
	}
	if code, msg := envelope.result(); code != 0 {
		return &APIError{Endpoint: label, Code: code, Msg: msg}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%s: decode response: %w", label, err)
		}
	}
	return nil
}

func endpointLabel(endpoint string) string {
	if strings.Contains(endpoint, "/hook/") {
		return "webhook"
	}
	if idx := strings.Index(endpoint, "/open-apis/"); idx >= 0 {
		label := endpoint[idx:]
		if q := strings.IndexByte(label, '?'); q >= 0 {
			label = label[:q]
		}
		return label
	}
	return "webhook"
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}
