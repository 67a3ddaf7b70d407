package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"dropwatch/internal/config"
	"dropwatch/internal/logging"
	"dropwatch/internal/notifications"
	"dropwatch/internal/pipeline"
	"dropwatch/internal/remote"
	"dropwatch/internal/snapshot"
	"dropwatch/internal/testsupport"
)

type fakeSource struct {
	mu        sync.Mutex
	files     []remote.FileDescriptor
	content   map[string]string
	failFetch map[string]bool
	lists     int
}

func newFakeSource() *fakeSource {
	return &fakeSource{content: map[string]string{}, failFetch: map[string]bool{}}
}

func (f *fakeSource) put(id, name, content, fingerprint string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, file := range f.files {
		if file.ID == id {
			f.files = append(f.files[:i], f.files[i+1:]...)
			break
		}
	}
	f.files = append(f.files, remote.FileDescriptor{
		ID:          id,
		Path:        id,
		Name:        name,
		Size:        int64(len(content)),
		Fingerprint: fingerprint,
	})
	f.content[id] = content
}

func (f *fakeSource) setFetchFailure(id string, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failFetch[id] = fail
}

func (f *fakeSource) List(context.Context) ([]remote.FileDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	return append([]remote.FileDescriptor(nil), f.files...), nil
}

func (f *fakeSource) Fetch(_ context.Context, file remote.FileDescriptor) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFetch[file.ID] {
		return nil, errors.New("connection reset")
	}
	data, ok := f.content[file.ID]
	if !ok {
		return nil, remote.ErrNotListed
	}
	return []byte(data), nil
}

type fakeService struct {
	mu    sync.Mutex
	cards []notifications.Card
	err   error
}

func (s *fakeService) Send(_ context.Context, card notifications.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.cards = append(s.cards, card)
	return nil
}

func (s *fakeService) Mode() string { return notifications.ModeWebhook }

func (s *fakeService) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *fakeService) sent() []notifications.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notifications.Card(nil), s.cards...)
}

type harness struct {
	cfg     *config.Config
	source  *fakeSource
	service *fakeService
	coord   *pipeline.Coordinator
}

func newHarness(t *testing.T, cfg *config.Config, opts ...pipeline.Option) *harness {
	t.Helper()
	source := newFakeSource()
	service := &fakeService{}
	notifier := notifications.NewNotifier(cfg, service, "https://www.dropbox.com/sh/test/folder?dl=0", logging.NewNop())
	return &harness{
		cfg:     cfg,
		source:  source,
		service: service,
		coord:   pipeline.New(cfg, source, notifier, logging.NewNop(), opts...),
	}
}

func (h *harness) tick(t *testing.T) pipeline.Report {
	t.Helper()
	report, err := h.coord.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	return report
}

func (h *harness) snapshot(t *testing.T) snapshot.Snapshot {
	t.Helper()
	snap, err := h.coord.Store().Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return snap
}

func TestFirstTickNotifiesAndCommits(t *testing.T) {
	h := newHarness(t, testsupport.NewConfig(t))
	h.source.put("/Report A.pdf", "Report A.pdf", "quarterly", "crc32:0000000a:9")

	report := h.tick(t)
	if report.State != pipeline.StateCommitted {
		t.Fatalf("state = %s, want committed", report.State)
	}
	if report.Listed != 1 || report.Events != 1 || report.Staged != 1 || report.Notified != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Kind != notifications.KindUpdate {
		t.Fatalf("kind = %q", report.Kind)
	}
	if report.RunID == "" {
		t.Fatal("expected run id")
	}

	cards := h.service.sent()
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}
	if cards[0].Title != "Dropbox update" || !strings.Contains(cards[0].Body, "report-a.pdf") {
		t.Fatalf("unexpected card %+v", cards[0])
	}

	data, err := os.ReadFile(filepath.Join(h.cfg.Paths.StorageDir, "report-a.pdf"))
	if err != nil || string(data) != "quarterly" {
		t.Fatalf("staged file = %q, %v", data, err)
	}

	snap := h.snapshot(t)
	entry, ok := snap.Lookup("/Report A.pdf")
	if !ok {
		t.Fatal("snapshot missing delivered file")
	}
	if entry.NormalizedName != "report-a.pdf" || entry.NotifiedAt.IsZero() {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func TestUnchangedListingSendsNothing(t *testing.T) {
	h := newHarness(t, testsupport.NewConfig(t))
	h.source.put("/a.pdf", "a.pdf", "a", "crc32:00000001:1")
	h.tick(t)

	report := h.tick(t)
	if report.State != pipeline.StateCommitted || report.Events != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Kind != notifications.KindNone {
		t.Fatalf("kind = %q, want none", report.Kind)
	}
	if got := len(h.service.sent()); got != 1 {
		t.Fatalf("expected only the first card, got %d", got)
	}
}

func TestUnchangedListingSendsHeartbeat(t *testing.T) {
	h := newHarness(t, testsupport.NewConfig(t, testsupport.WithHeartbeat(true)))
	h.source.put("/a.pdf", "a.pdf", "a", "crc32:00000001:1")
	h.tick(t)

	report := h.tick(t)
	if report.Kind != notifications.KindHeartbeat || report.Notified != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	cards := h.service.sent()
	if len(cards) != 2 || cards[1].Template != notifications.TemplateNeutral {
		t.Fatalf("expected heartbeat card, got %+v", cards)
	}
}

func TestModifiedFileIsNotifiedAgain(t *testing.T) {
	h := newHarness(t, testsupport.NewConfig(t))
	h.source.put("/a.pdf", "a.pdf", "v1", "crc32:00000001:2")
	h.tick(t)

	h.source.put("/a.pdf", "a.pdf", "v2!", "crc32:00000002:3")
	report := h.tick(t)
	if report.Events != 1 || report.Notified != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	entry, _ := h.snapshot(t).Lookup("/a.pdf")
	if entry.Fingerprint != "crc32:00000002:3" {
		t.Fatalf("fingerprint not advanced: %+v", entry)
	}
}

func TestDeliveryFailureLeavesSnapshotForNextTick(t *testing.T) {
	h := newHarness(t, testsupport.NewConfig(t))
	h.source.put("/a.pdf", "a.pdf", "a", "crc32:00000001:1")
	h.service.setErr(errors.New("bad request"))

	report, err := h.coord.Tick(context.Background())
	var delivery *notifications.DeliveryError
	if !errors.As(err, &delivery) {
		t.Fatalf("expected DeliveryError, got %v", err)
	}
	if report.State != pipeline.StateFailed || report.FailedAt != pipeline.StateStaged {
		t.Fatalf("unexpected report %+v", report)
	}
	if _, statErr := os.Stat(h.cfg.SnapshotPath()); !os.IsNotExist(statErr) {
		t.Fatalf("snapshot written after failed delivery: %v", statErr)
	}

	h.service.setErr(nil)
	report = h.tick(t)
	if report.Events != 1 || report.Notified != 1 {
		t.Fatalf("expected redelivery, got %+v", report)
	}
}

func TestFetchFailureIsDetectedAgain(t *testing.T) {
	h := newHarness(t, testsupport.NewConfig(t))
	h.source.put("/a.pdf", "a.pdf", "a", "crc32:00000001:1")
	h.source.put("/b.pdf", "b.pdf", "b", "crc32:00000002:1")
	h.source.setFetchFailure("/b.pdf", true)

	report := h.tick(t)
	if report.Staged != 1 || report.Failed != 1 || report.Notified != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if _, ok := h.snapshot(t).Lookup("/b.pdf"); ok {
		t.Fatal("failed file must not be recorded")
	}

	h.source.setFetchFailure("/b.pdf", false)
	report = h.tick(t)
	if report.Events != 1 || report.Notified != 1 {
		t.Fatalf("expected retry of b.pdf, got %+v", report)
	}
	if len(report.Files) != 1 || report.Files[0] != "b.pdf" {
		t.Fatalf("unexpected files %v", report.Files)
	}
}

func TestCorruptStateAbortsWithoutTouchingFile(t *testing.T) {
	h := newHarness(t, testsupport.NewConfig(t))
	h.source.put("/a.pdf", "a.pdf", "a", "crc32:00000001:1")
	path := h.cfg.SnapshotPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	garbage := []byte("{not json")
	if err := os.WriteFile(path, garbage, 0o644); err != nil {
		t.Fatal(err)
	}

	report, err := h.coord.Tick(context.Background())
	var corrupt *snapshot.CorruptStateError
	if !errors.As(err, &corrupt) {
		t.Fatalf("expected CorruptStateError, got %v", err)
	}
	if report.State != pipeline.StateFailed || report.FailedAt != pipeline.StateStart {
		t.Fatalf("unexpected report %+v", report)
	}
	if h.source.lists != 0 {
		t.Fatal("listing must not run against a corrupt snapshot")
	}
	if len(h.service.sent()) != 0 {
		t.Fatal("no card expected")
	}
	data, _ := os.ReadFile(path)
	if string(data) != string(garbage) {
		t.Fatalf("snapshot file modified: %q", data)
	}
}

func TestLockedTickIsSkipped(t *testing.T) {
	h := newHarness(t, testsupport.NewConfig(t))
	h.source.put("/a.pdf", "a.pdf", "a", "crc32:00000001:1")

	other := snapshot.NewStore(h.cfg.SnapshotPath(), logging.NewNop())
	unlock, err := other.Lock(context.Background(), 0)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer unlock()

	report := h.tick(t)
	if report.State != pipeline.StateSkipped {
		t.Fatalf("state = %s, want skipped", report.State)
	}
	if h.source.lists != 0 || len(h.service.sent()) != 0 {
		t.Fatal("skipped tick must not list or notify")
	}
}

func TestHistoryAndMetricsRecorded(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMetricsTextfile())
	ledger := testsupport.MustOpenHistory(t, cfg)
	h := newHarness(t, cfg, pipeline.WithHistory(ledger))
	h.source.put("/a.pdf", "a.pdf", "a", "crc32:00000001:1")
	h.source.put("/b.pdf", "b.pdf", "b", "crc32:00000002:1")
	h.source.setFetchFailure("/b.pdf", true)

	report := h.tick(t)

	runs, err := ledger.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != report.RunID || runs[0].State != "committed" {
		t.Fatalf("unexpected runs %+v", runs)
	}
	files, err := ledger.Files(context.Background(), report.RunID)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	outcomes := map[string]string{}
	for _, file := range files {
		outcomes[file.Name] = file.Outcome
	}
	if outcomes["a.pdf"] != "notified" || outcomes["b.pdf"] != "fetch_failed" {
		t.Fatalf("unexpected file outcomes %v", outcomes)
	}

	data, err := os.ReadFile(cfg.Metrics.TextfilePath)
	if err != nil {
		t.Fatalf("metrics textfile: %v", err)
	}
	if !strings.Contains(string(data), "dropwatch_run_success 1") {
		t.Fatalf("unexpected metrics:\n%s", data)
	}
}

func TestFailedTickIsRecorded(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMetricsTextfile())
	ledger := testsupport.MustOpenHistory(t, cfg)
	h := newHarness(t, cfg, pipeline.WithHistory(ledger))
	h.source.put("/a.pdf", "a.pdf", "a", "crc32:00000001:1")
	h.service.setErr(errors.New("bad request"))

	if _, err := h.coord.Tick(context.Background()); err == nil {
		t.Fatal("expected failure")
	}
	runs, err := ledger.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 || runs[0].State != "failed" || runs[0].Error == "" {
		t.Fatalf("unexpected runs %+v", runs)
	}
	files, _ := ledger.Files(context.Background(), runs[0].ID)
	if len(files) != 1 || files[0].Outcome != "undelivered" {
		t.Fatalf("unexpected files %+v", files)
	}
	data, _ := os.ReadFile(cfg.Metrics.TextfilePath)
	if !strings.Contains(string(data), "dropwatch_run_success 0") {
		t.Fatalf("unexpected metrics:\n%s", data)
	}
}

func TestBuildRunsAgainstDropboxAndWebhook(t *testing.T) {
	archive := testsupport.BuildZip(t,
		testsupport.ArchiveEntry{Name: "Weekly Sales.xlsx", Content: "numbers", Modified: time.Now()},
		testsupport.ArchiveEntry{Name: ".DS_Store", Content: "junk", Modified: time.Now()},
	)
	dropbox := testsupport.NewArchiveServer(t, archive)

	var mu sync.Mutex
	var bodies []map[string]any
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()
		_, _ = w.Write([]byte(`{"code":0,"msg":"success"}`))
	}))
	defer webhook.Close()

	cfg := testsupport.NewConfig(t,
		testsupport.WithShareLink(dropbox.ShareLink()),
		testsupport.WithWebhook(webhook.URL+"/open-apis/bot/v2/hook/abc", "s3cret"),
	)
	rt, err := pipeline.Build(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer rt.Close()

	report, err := rt.Coordinator.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if report.Listed != 1 || report.Notified != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.StorageDir, "weekly-sales.xlsx")); err != nil {
		t.Fatalf("staged file missing: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 1 || bodies[0]["sign"] == nil || bodies[0]["msg_type"] != "interactive" {
		t.Fatalf("unexpected webhook bodies %+v", bodies)
	}

	runs, err := rt.History.Recent(context.Background(), 1)
	if err != nil || len(runs) != 1 || runs[0].Mode != notifications.ModeWebhook {
		t.Fatalf("unexpected history %+v, %v", runs, err)
	}
}
