package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSnapshotLifecycle(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)

	first := []byte(`{"id":"an1","projectId":"p1","data":{"Themes":[]}}`)
	commit, err := svc.Record("p1", "an1", first, "Avery", "Save analysis")
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if commit.Hash == "" {
		t.Fatal("expected commit hash")
	}
	if _, err := os.Stat(filepath.Join(tempDir, "p1", "analyses", "an1.json")); err != nil {
		t.Fatalf("snapshot file missing: %v", err)
	}

	second := []byte(`{"id":"an1","projectId":"p1","data":{"Themes":[{"transcriptId":"t1","respno":"R01"}]}}`)
	if _, err := svc.Record("p1", "an1", second, "Avery", "Recompute respondent codes"); err != nil {
		t.Fatalf("second Record() error = %v", err)
	}

	history, err := svc.History("p1", "an1", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	if !strings.Contains(history[0].Message, "Recompute") {
		t.Errorf("newest entry = %q, want the recompute commit first", history[0].Message)
	}

	content, err := svc.Content("p1", "an1", history[1].Hash)
	if err != nil {
		t.Fatalf("Content() error = %v", err)
	}
	if !strings.Contains(string(content), `"Themes":[]`) {
		t.Errorf("snapshot content = %s, want the first document state", content)
	}
}

func TestRecordUnchangedDocumentIsNoop(t *testing.T) {
	svc := New(t.TempDir())

	payload := []byte(`{"id":"an1","projectId":"p1"}`)
	if _, err := svc.Record("p1", "an1", payload, "Avery", "Save"); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	commit, err := svc.Record("p1", "an1", payload, "Avery", "Save again")
	if err != nil {
		t.Fatalf("unchanged Record() error = %v", err)
	}
	if commit.Hash != "" {
		t.Errorf("expected no commit for unchanged document, got %s", commit.Hash)
	}

	history, err := svc.History("p1", "an1", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 {
		t.Errorf("expected 1 history entry, got %d", len(history))
	}
}

func TestHistoryWithoutRepo(t *testing.T) {
	svc := New(t.TempDir())

	history, err := svc.History("p-none", "an1", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 0 {
		t.Errorf("expected empty history, got %d entries", len(history))
	}
}

func TestHistoryScopedToAnalysis(t *testing.T) {
	svc := New(t.TempDir())

	if _, err := svc.Record("p1", "an1", []byte(`{"id":"an1"}`), "Avery", "Save an1"); err != nil {
		t.Fatalf("Record(an1) error = %v", err)
	}
	if _, err := svc.Record("p1", "an2", []byte(`{"id":"an2"}`), "Avery", "Save an2"); err != nil {
		t.Fatalf("Record(an2) error = %v", err)
	}

	history, err := svc.History("p1", "an1", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected only an1's commit, got %d", len(history))
	}
	if !strings.Contains(history[0].Message, "an1") {
		t.Errorf("history entry = %q, want an1 save", history[0].Message)
	}
}
