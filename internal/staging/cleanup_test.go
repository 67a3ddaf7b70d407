package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dropwatch/internal/logging"
)

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldFiles(t *testing.T) {
	tmpDir := t.TempDir()

	oldFile := filepath.Join(tmpDir, "old-report.pdf")
	if err := os.WriteFile(oldFile, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	oldTime := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(oldFile, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}

	recentFile := filepath.Join(tmpDir, "recent-report.pdf")
	if err := os.WriteFile(recentFile, []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}

	result := CleanStale(context.Background(), tmpDir, 24*time.Hour, logging.NewNop())

	if len(result.Removed) != 1 || result.Removed[0] != oldFile {
		t.Fatalf("expected only %s removed, got %v", oldFile, result.Removed)
	}
	if _, err := os.Stat(oldFile); !os.IsNotExist(err) {
		t.Error("old file should have been removed")
	}
	if _, err := os.Stat(recentFile); err != nil {
		t.Error("recent file should still exist")
	}
}

func TestCleanStaleZeroRetentionKeepsFilesButDropsTemps(t *testing.T) {
	tmpDir := t.TempDir()

	oldFile := filepath.Join(tmpDir, "report.pdf")
	if err := os.WriteFile(oldFile, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	oldTime := time.Now().Add(-365 * 24 * time.Hour)
	if err := os.Chtimes(oldFile, oldTime, oldTime); err != nil {
		t.Fatal(err)
	}
	tempFile := filepath.Join(tmpDir, ".report.pdf.tmp-123")
	if err := os.WriteFile(tempFile, []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}

	result := CleanStale(context.Background(), tmpDir, 0, logging.NewNop())

	if len(result.Removed) != 1 || result.Removed[0] != tempFile {
		t.Fatalf("expected only temp file removed, got %v", result.Removed)
	}
	if _, err := os.Stat(oldFile); err != nil {
		t.Fatal("staged file should be kept when retention is disabled")
	}
}

func TestListFilesSkipsTempAndDirs(t *testing.T) {
	tmpDir := t.TempDir()
	for name, content := range map[string]string{
		"a.pdf":          "aaaa",
		".a.pdf.tmp-999": "x",
	} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(tmpDir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := ListFiles(tmpDir)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 1 || files[0].Name != "a.pdf" || files[0].Size != 4 {
		t.Fatalf("unexpected files %+v", files)
	}

	missing, err := ListFiles(filepath.Join(tmpDir, "missing"))
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing dir, got %v %v", missing, err)
	}
}
