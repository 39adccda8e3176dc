package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFilesGetMissing(t *testing.T) {
	files, err := NewFiles(t.TempDir())
	if err != nil {
		t.Fatalf("NewFiles() error = %v", err)
	}

	_, err = files.Get(context.Background(), KeyTranscripts)
	if !errors.Is(err, ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestFilesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	files, err := NewFiles(dir)
	if err != nil {
		t.Fatalf("NewFiles() error = %v", err)
	}
	ctx := context.Background()

	body := []byte(`{"p1":[{"id":"t1"}]}`)
	if err := files.Put(ctx, KeyTranscripts, body); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := files.Get(ctx, KeyTranscripts)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != string(body) {
		t.Errorf("Get() = %s, want %s", got, body)
	}

	if _, err := os.Stat(filepath.Join(dir, KeyTranscripts)); err != nil {
		t.Errorf("document file missing on disk: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, KeyTranscripts+".tmp")); !errors.Is(err, os.ErrNotExist) {
		t.Error("temp file left behind after write")
	}
}

func TestFilesOverwrite(t *testing.T) {
	files, err := NewFiles(t.TempDir())
	if err != nil {
		t.Fatalf("NewFiles() error = %v", err)
	}
	ctx := context.Background()

	if err := files.Put(ctx, KeyAnalyses, []byte(`[]`)); err != nil {
		t.Fatalf("first Put() error = %v", err)
	}
	if err := files.Put(ctx, KeyAnalyses, []byte(`[{"id":"an1"}]`)); err != nil {
		t.Fatalf("second Put() error = %v", err)
	}

	got, err := files.Get(ctx, KeyAnalyses)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != `[{"id":"an1"}]` {
		t.Errorf("Get() = %s, want overwritten body", got)
	}
}
