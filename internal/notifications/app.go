package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// tokenRefreshMargin renews the tenant token before Lark expires it.
const tokenRefreshMargin = time.Minute

// Preview is the handle returned by a successful upload.
type Preview struct {
	Token string
	URL   string
}

// appClient talks to the Lark open platform with tenant credentials.
type appClient struct {
	baseURL     string
	fileBaseURL string
	appID       string
	appSecret   string
	folderToken string
	client      *http.Client
	upload      *http.Client
	now         func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

type tenantTokenResponse struct {
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int    `json:"expire"`
}

func (a *appClient) tenantToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.token != "" && a.now().Before(a.tokenExpiry) {
		return a.token, nil
	}

	var resp tenantTokenResponse
	endpoint := a.baseURL + "/open-apis/auth/v3/tenant_access_token/internal"
	payload := map[string]string{"app_id": a.appID, "app_secret": a.appSecret}
	if err := postJSON(ctx, a.client, endpoint, "", payload, &resp); err != nil {
		return "", err
	}
	if resp.TenantAccessToken == "" {
		return "", errors.New("tenant token response missing tenant_access_token")
	}
	lifetime := time.Duration(resp.Expire) * time.Second
	if lifetime <= tokenRefreshMargin {
		lifetime = 2 * tokenRefreshMargin
	}
	a.token = resp.TenantAccessToken
	a.tokenExpiry = a.now().Add(lifetime - tokenRefreshMargin)
	return a.token, nil
}

type messagePayload struct {
	ReceiveID string `json:"receive_id"`
	MsgType   string `json:"msg_type"`
	Content   string `json:"content"`
}

func (a *appClient) sendToChat(ctx context.Context, chatID string, card Card) error {
	token, err := a.tenantToken(ctx)
	if err != nil {
		return err
	}
	content, err := json.Marshal(card.interactive())
	if err != nil {
		return fmt.Errorf("encode card: %w", err)
	}
	endpoint := a.baseURL + "/open-apis/im/v1/messages?receive_id_type=chat_id"
	payload := messagePayload{ReceiveID: chatID, MsgType: "interactive", Content: string(content)}
	return postJSON(ctx, a.client, endpoint, token, payload, nil)
}

type uploadResponse struct {
	Data struct {
		FileToken string `json:"file_token"`
	} `json:"data"`
}

func (a *appClient) uploadFile(ctx context.Context, name string, data []byte) (Preview, error) {
	token, err := a.tenantToken(ctx)
	if err != nil {
		return Preview{}, err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	fields := [][2]string{
		{"file_name", name},
		{"parent_type", "explorer"},
		{"parent_token", a.folderToken},
		{"size", strconv.Itoa(len(data))},
	}
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return Preview{}, fmt.Errorf("encode upload form: %w", err)
		}
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	header.Set("Content-Type", contentType(name))
	part, err := writer.CreatePart(header)
	if err != nil {
		return Preview{}, fmt.Errorf("encode upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return Preview{}, fmt.Errorf("encode upload form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Preview{}, fmt.Errorf("encode upload form: %w", err)
	}

	endpoint := a.baseURL + "/open-apis/drive/v1/files/upload_all"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return Preview{}, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	var resp uploadResponse
	if err := do(ctx, a.upload, req, endpointLabel(endpoint), &resp); err != nil {
		return Preview{}, err
	}
	if resp.Data.FileToken == "" {
		return Preview{}, errors.New("upload response missing file_token")
	}
	return Preview{
		Token: resp.Data.FileToken,
		URL:   a.fileBaseURL + "/" + resp.Data.FileToken,
	}, nil
}

func contentType(name string) string {
	if value := mime.TypeByExtension(filepath.Ext(name)); value != "" {
		return value
	}
	return "application/octet-stream"
}
