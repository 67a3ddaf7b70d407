package remote_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"dropwatch/internal/remote"
	"dropwatch/internal/testsupport"
)

func newSource(t *testing.T, server *testsupport.ArchiveServer) *remote.Dropbox {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithShareLink(server.ShareLink()))
	source, err := remote.NewDropbox(cfg, server.Client(), nil)
	if err != nil {
		t.Fatalf("NewDropbox: %v", err)
	}
	return source
}

func TestDropboxListSkipsDirectoriesAndHiddenFiles(t *testing.T) {
	modified := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	archive := testsupport.BuildZip(t,
		testsupport.ArchiveEntry{Name: "reports/"},
		testsupport.ArchiveEntry{Name: "reports/Report A.pdf", Content: "alpha", Modified: modified},
		testsupport.ArchiveEntry{Name: "Notes.txt", Content: "beta"},
		testsupport.ArchiveEntry{Name: ".DS_Store", Content: "junk"},
		testsupport.ArchiveEntry{Name: "__MACOSX/reports/._Report A.pdf", Content: "junk"},
	)
	server := testsupport.NewArchiveServer(t, archive)
	source := newSource(t, server)

	files, err := source.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if server.LastQuery() != "1" {
		t.Fatalf("expected dl=1 download, got dl=%q", server.LastQuery())
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d: %+v", len(files), files)
	}
	if files[0].ID != "Notes.txt" || files[1].ID != "reports/Report A.pdf" {
		t.Fatalf("unexpected ids: %q, %q", files[0].ID, files[1].ID)
	}
	report := files[1]
	if report.Name != "Report A.pdf" || report.Size != int64(len("alpha")) {
		t.Fatalf("unexpected descriptor: %+v", report)
	}
	if !report.ModTime.Equal(modified) {
		t.Fatalf("mod time = %v, want %v", report.ModTime, modified)
	}
	if !strings.HasPrefix(report.Fingerprint, "crc32:") || !strings.HasSuffix(report.Fingerprint, ":5") {
		t.Fatalf("unexpected fingerprint %q", report.Fingerprint)
	}

	data, err := source.Fetch(context.Background(), report)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "alpha" {
		t.Fatalf("fetched %q", data)
	}
}

func TestDropboxFingerprintTracksContent(t *testing.T) {
	server := testsupport.NewArchiveServer(t, testsupport.BuildZip(t,
		testsupport.ArchiveEntry{Name: "a.pdf", Content: "one"},
	))
	source := newSource(t, server)

	first, err := source.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	server.SetArchive(testsupport.BuildZip(t,
		testsupport.ArchiveEntry{Name: "a.pdf", Content: "two"},
	))
	second, err := source.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if first[0].Fingerprint == second[0].Fingerprint {
		t.Fatalf("fingerprint unchanged after content change: %s", first[0].Fingerprint)
	}
}

func TestDropboxListRetriesTransientStatus(t *testing.T) {
	server := testsupport.NewArchiveServer(t, testsupport.BuildZip(t,
		testsupport.ArchiveEntry{Name: "a.pdf", Content: "one"},
	))
	server.FailNext(http.StatusBadGateway, http.StatusTooManyRequests)
	source := newSource(t, server)

	files, err := source.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	if server.Requests() != 3 {
		t.Fatalf("expected 3 requests, got %d", server.Requests())
	}
}

func TestDropboxListPermanentStatusFailsFast(t *testing.T) {
	server := testsupport.NewArchiveServer(t, nil)
	server.FailNext(http.StatusNotFound)
	source := newSource(t, server)

	_, err := source.List(context.Background())
	var listErr *remote.ListError
	if !errors.As(err, &listErr) {
		t.Fatalf("expected ListError, got %v", err)
	}
	if listErr.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", listErr.Attempts)
	}
	var statusErr *remote.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 StatusError, got %v", err)
	}
}

func TestDropboxListRejectsNonArchive(t *testing.T) {
	server := testsupport.NewArchiveServer(t, []byte("<html>login</html>"))
	source := newSource(t, server)

	_, err := source.List(context.Background())
	var listErr *remote.ListError
	if !errors.As(err, &listErr) {
		t.Fatalf("expected ListError, got %v", err)
	}
}

func TestDropboxFetchUnknownFile(t *testing.T) {
	server := testsupport.NewArchiveServer(t, testsupport.BuildZip(t,
		testsupport.ArchiveEntry{Name: "a.pdf", Content: "one"},
	))
	source := newSource(t, server)
	if _, err := source.List(context.Background()); err != nil {
		t.Fatalf("List: %v", err)
	}

	_, err := source.Fetch(context.Background(), remote.FileDescriptor{ID: "gone.pdf"})
	if !errors.Is(err, remote.ErrNotListed) {
		t.Fatalf("expected ErrNotListed, got %v", err)
	}
}

func TestDropboxPreviewURL(t *testing.T) {
	server := testsupport.NewArchiveServer(t, nil)
	source := newSource(t, server)
	if got := source.PreviewURL(); !strings.HasSuffix(got, "/sh/test/folder?dl=0") {
		t.Fatalf("PreviewURL = %q", got)
	}
}
