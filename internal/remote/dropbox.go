package remote

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"dropwatch/internal/config"
	"dropwatch/internal/logging"
	"dropwatch/internal/retry"
)

// maxArchiveBytes bounds the archive download held in memory.
const maxArchiveBytes = 1 << 30

// Dropbox is a Source backed by a Dropbox shared folder link.
type Dropbox struct {
	downloadURL string
	previewURL  string
	userAgent   string
	client      *http.Client
	retry       retry.Config
	logger      *slog.Logger

	mu      sync.RWMutex
	members map[string]*zip.File
}

// NewDropbox builds a Dropbox source from configuration.
func NewDropbox(cfg *config.Config, client *http.Client, logger *slog.Logger) (*Dropbox, error) {
	if cfg == nil {
		return nil, errors.New("remote: config is required")
	}
	downloadURL, err := config.NormalizeShareLink(cfg.Dropbox.ShareLink)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.DropboxTimeout()}
	}
	logger = logging.NewComponentLogger(logger, "dropbox")
	d := &Dropbox{
		downloadURL: downloadURL,
		previewURL:  previewLink(downloadURL),
		userAgent:   cfg.Dropbox.UserAgent,
		client:      client,
		logger:      logger,
	}
	d.retry = retry.Config{
		MaxAttempts: cfg.Fetch.MaxAttempts,
		Wait:        cfg.FetchBackoff(),
		OnRetry: func(attempt int, err error) {
			logger.Warn("archive download failed; retrying",
				logging.Int("attempt", attempt),
				logging.Error(err),
			)
		},
	}
	return d, nil
}

// PreviewURL returns the human-facing folder link (dl=0).
func (d *Dropbox) PreviewURL() string {
	return d.previewURL
}

// List downloads the folder archive and returns its visible files sorted by ID.
func (d *Dropbox) List(ctx context.Context) ([]FileDescriptor, error) {
	var archive []byte
	attempts, err := retry.Do(ctx, d.retry, func(ctx context.Context) error {
		data, err := d.download(ctx)
		if err != nil {
			return err
		}
		archive = data
		return nil
	})
	if err != nil {
		return nil, &ListError{Attempts: attempts, Err: err}
	}

	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, &ListError{Attempts: attempts, Err: fmt.Errorf("open archive: %w", err)}
	}

	members := make(map[string]*zip.File, len(reader.File))
	files := make([]FileDescriptor, 0, len(reader.File))
	for _, member := range reader.File {
		desc, ok := describe(member)
		if !ok {
			continue
		}
		members[desc.ID] = member
		files = append(files, desc)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ID < files[j].ID })

	d.mu.Lock()
	d.members = members
	d.mu.Unlock()

	d.logger.Debug("archive listed",
		logging.Int("archive_bytes", len(archive)),
		logging.Int("files", len(files)),
	)
	return files, nil
}

// Fetch reads a file from the archive downloaded by the last List call.
func (d *Dropbox) Fetch(ctx context.Context, file FileDescriptor) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	member, ok := d.members[file.ID]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", file.ID, ErrNotListed)
	}
	rc, err := member.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", file.ID, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file.ID, err)
	}
	return data, nil
}

func (d *Dropbox) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, retry.Retryable(fmt.Errorf("download archive: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		statusErr := &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
		if statusErr.Transient() {
			return nil, retry.Retryable(statusErr)
		}
		return nil, statusErr
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArchiveBytes+1))
	if err != nil {
		return nil, retry.Retryable(fmt.Errorf("read archive: %w", err))
	}
	if len(data) > maxArchiveBytes {
		return nil, fmt.Errorf("archive exceeds %d bytes", maxArchiveBytes)
	}
	return data, nil
}

func describe(member *zip.File) (FileDescriptor, bool) {
	if member.FileInfo().IsDir() || strings.HasSuffix(member.Name, "/") {
		return FileDescriptor{}, false
	}
	id := strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(member.Name, "\\", "/")), "/")
	name := path.Base(id)
	if name == "" || name == "." || strings.HasPrefix(name, ".") {
		return FileDescriptor{}, false
	}
	size := int64(member.UncompressedSize64)
	return FileDescriptor{
		ID:          id,
		Path:        member.Name,
		Name:        name,
		Size:        size,
		ModTime:     member.Modified.UTC().Truncate(time.Second),
		Fingerprint: Fingerprint(member.CRC32, size),
	}, true
}

func previewLink(downloadURL string) string {
	parsed, err := url.Parse(downloadURL)
	if err != nil {
		return downloadURL
	}
	query := parsed.Query()
	query.Set("dl", "0")
	parsed.RawQuery = query.Encode()
	return parsed.String()
}
