package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeAndRead(t *testing.T, rec *Recorder) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "textfile", "dropwatch.prom")
	if err := rec.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	return string(data)
}

func TestObserveWritesGauges(t *testing.T) {
	rec := New()
	started := time.Unix(1_700_000_000, 0)
	rec.Observe(Tick{
		Started:     started,
		Duration:    1500 * time.Millisecond,
		Kind:        "update",
		Listed:      4,
		Detected:    2,
		Staged:      1,
		Failed:      1,
		Notified:    1,
		Succeeded:   true,
		LastSuccess: started,
		Tracked:     3,
	})

	text := writeAndRead(t, rec)
	for _, want := range []string{
		"# TYPE dropwatch_run_duration_seconds gauge",
		"dropwatch_run_duration_seconds 1.5",
		"dropwatch_run_success 1",
		`dropwatch_run_files{stage="listed"} 4`,
		`dropwatch_run_files{stage="failed"} 1`,
		`dropwatch_run_notification{kind="update"} 1`,
		"dropwatch_snapshot_files 3",
		"dropwatch_last_success_timestamp_seconds 1.7e+09",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("textfile missing %q:\n%s", want, text)
		}
	}
}

func TestObserveFailedTick(t *testing.T) {
	rec := New()
	rec.Observe(Tick{Started: time.Now()})

	text := writeAndRead(t, rec)
	if !strings.Contains(text, "dropwatch_run_success 0") {
		t.Fatalf("expected failed tick to report success 0:\n%s", text)
	}
	if !strings.Contains(text, "dropwatch_last_success_timestamp_seconds 0") {
		t.Fatalf("expected unset last success:\n%s", text)
	}
	if strings.Contains(text, "dropwatch_run_notification{") {
		t.Fatalf("expected no notification series:\n%s", text)
	}
}

func TestWriteTextfileEmptyPath(t *testing.T) {
	if err := New().WriteTextfile(""); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}
