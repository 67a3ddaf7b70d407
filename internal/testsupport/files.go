package testsupport

import (
	"archive/zip"
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x42}, int(size)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ArchiveEntry is one member of a test zip archive. A Name ending in "/"
// produces a directory entry.
type ArchiveEntry struct {
	Name     string
	Content  string
	Modified time.Time
}

// BuildZip returns a zip archive containing entries in order.
func BuildZip(t testing.TB, entries ...ArchiveEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, entry := range entries {
		modified := entry.Modified
		if modified.IsZero() {
			modified = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     entry.Name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			t.Fatalf("zip create %s: %v", entry.Name, err)
		}
		if entry.Content != "" {
			if _, err := w.Write([]byte(entry.Content)); err != nil {
				t.Fatalf("zip write %s: %v", entry.Name, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// ArchiveServer serves a swappable zip archive the way a Dropbox shared
// link does with dl=1.
type ArchiveServer struct {
	*httptest.Server

	mu       sync.Mutex
	archive  []byte
	status   []int
	requests int
	query    []string
}

// NewArchiveServer starts a server returning archive on every GET.
func NewArchiveServer(t testing.TB, archive []byte) *ArchiveServer {
	t.Helper()

	s := &ArchiveServer{archive: archive}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// SetArchive replaces the archive served to subsequent requests.
func (s *ArchiveServer) SetArchive(archive []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archive = archive
}

// FailNext makes the next requests answer with the given status codes.
func (s *ArchiveServer) FailNext(codes ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = append(s.status, codes...)
}

// Requests returns how many requests were served.
func (s *ArchiveServer) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// LastQuery returns the dl query value of the most recent request.
func (s *ArchiveServer) LastQuery() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.query) == 0 {
		return ""
	}
	return s.query[len(s.query)-1]
}

// ShareLink returns a shared-link style URL pointing at the server.
func (s *ArchiveServer) ShareLink() string {
	return s.URL + "/sh/test/folder?dl=0"
}

func (s *ArchiveServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests++
	s.query = append(s.query, r.URL.Query().Get("dl"))
	var status int
	if len(s.status) > 0 {
		status = s.status[0]
		s.status = s.status[1:]
	}
	archive := s.archive
	s.mu.Unlock()

	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	_, _ = w.Write(archive)
}
