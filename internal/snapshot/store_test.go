package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "data", "snapshot.json"), nil)
}

func sampleSnapshot(now time.Time) Snapshot {
	return Empty().Advance([]Entry{
		{ID: "reports/Report A.pdf", Name: "Report A.pdf", NormalizedName: "report-a.pdf", Fingerprint: "crc32:0000abcd:5", Size: 5},
	}, now)
}

func TestLoadMissingReturnsEmpty(t *testing.T) {
	store := newTestStore(t)
	snap, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.Len() != 0 || !snap.LastRun.IsZero() {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
	if snap.Files == nil {
		t.Fatal("expected non-nil files map")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	want := sampleSnapshot(now)

	if err := store.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.LastRun.Equal(now) {
		t.Fatalf("last run = %v, want %v", got.LastRun, now)
	}
	entry, ok := got.Lookup("reports/Report A.pdf")
	if !ok {
		t.Fatal("expected entry after round trip")
	}
	if entry.NormalizedName != "report-a.pdf" || entry.Fingerprint != "crc32:0000abcd:5" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if !entry.NotifiedAt.Equal(now) {
		t.Fatalf("notified at = %v, want %v", entry.NotifiedAt, now)
	}
}

func TestLoadCorruptState(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"whitespace", "  \n"},
		{"truncated json", `{"version":1,"files":{"a":`},
		{"legacy list format", `["report-a.pdf"]`},
		{"wrong version", `{"version":2,"files":{}}`},
		{"missing files", `{"version":1}`},
		{"entry without id", `{"version":1,"files":{"a":{"name":"a","normalized_name":"a"}}}`},
		{"negative size", `{"version":1,"files":{"a":{"id":"a","name":"a","normalized_name":"a","size":-1}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			if err := os.MkdirAll(filepath.Dir(store.Path()), 0o755); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(store.Path(), []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}

			_, err := store.Load()
			var corrupt *CorruptStateError
			if !errors.As(err, &corrupt) {
				t.Fatalf("expected CorruptStateError, got %v", err)
			}

			data, readErr := os.ReadFile(store.Path())
			if readErr != nil {
				t.Fatalf("corrupt file removed: %v", readErr)
			}
			if string(data) != tt.content {
				t.Fatal("corrupt file was modified by Load")
			}
		})
	}
}

func TestInterruptedSaveKeepsPreviousSnapshot(t *testing.T) {
	store := newTestStore(t)
	old := sampleSnapshot(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	if err := store.Save(old); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Simulate a crash after the temp file is written but before rename:
	// a half-written temp file is left behind and the rename never happens.
	partial := filepath.Join(filepath.Dir(store.Path()), ".snapshot.json.tmp-crash")
	if err := os.WriteFile(partial, []byte(`{"version":1,"files":{"b":`), 0o644); err != nil {
		t.Fatal(err)
	}
	store.rename = func(string, string) error { return errors.New("power loss") }

	next := old.Advance([]Entry{{ID: "b.pdf", Name: "b.pdf", NormalizedName: "b.pdf"}}, time.Now())
	err := store.Save(next)
	var persistErr *PersistenceError
	if !errors.As(err, &persistErr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load after interrupted save: %v", err)
	}
	if got.Len() != 1 {
		t.Fatalf("expected old snapshot with 1 entry, got %d", got.Len())
	}
	if _, ok := got.Lookup("b.pdf"); ok {
		t.Fatal("interrupted save leaked new entry")
	}

	store.rename = os.Rename
	if err := store.Save(next); err != nil {
		t.Fatalf("Save after recovery: %v", err)
	}
	got, err = store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("expected new snapshot with 2 entries, got %d", got.Len())
	}
}

func TestResetRemovesStateAndTempFiles(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save(sampleSnapshot(time.Now())); err != nil {
		t.Fatalf("Save: %v", err)
	}
	temp := filepath.Join(filepath.Dir(store.Path()), ".snapshot.json.tmp-1")
	if err := os.WriteFile(temp, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	existed, err := store.Reset()
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if !existed {
		t.Fatal("expected Reset to report existing snapshot")
	}
	if _, err := os.Stat(temp); !os.IsNotExist(err) {
		t.Fatalf("temp file still present: %v", err)
	}
	snap, err := store.Load()
	if err != nil || snap.Len() != 0 {
		t.Fatalf("expected empty snapshot after reset, got %+v err=%v", snap, err)
	}

	existed, err = store.Reset()
	if err != nil || existed {
		t.Fatalf("second reset: existed=%v err=%v", existed, err)
	}
}

func TestResetRecoversFromCorruptState(t *testing.T) {
	store := newTestStore(t)
	if err := os.MkdirAll(filepath.Dir(store.Path()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.Path(), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(); err == nil {
		t.Fatal("expected corrupt state")
	}
	if _, err := store.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, err := store.Load(); err != nil {
		t.Fatalf("Load after reset: %v", err)
	}
}

func TestLockSerializesRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	release, err := store.Lock(ctx, 0)
	if err != nil {
		t.Fatalf("first Lock: %v", err)
	}

	other := NewStore(store.Path(), nil)
	if _, err := other.Lock(ctx, 0); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked without wait, got %v", err)
	}
	if _, err := other.Lock(ctx, 150*time.Millisecond); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked after wait, got %v", err)
	}

	release()
	releaseOther, err := other.Lock(ctx, 0)
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	releaseOther()
}
