package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/webcompat/ochazuke/pkg/config"
)

func TestLocalStoragePutGetTimeline(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir)
	ctx := context.Background()

	data := []byte(`{"about":"Hourly needsdiagnosis issues count","timeline":[]}`)
	if err := s.PutTimeline(ctx, "needsdiagnosis", data); err != nil {
		t.Fatalf("PutTimeline: %v", err)
	}

	got, err := s.GetTimeline(ctx, "needsdiagnosis")
	if err != nil {
		t.Fatalf("GetTimeline: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("GetTimeline = %q, want %q", got, data)
	}

	expectedPath := filepath.Join(dir, "needsdiagnosis", "needsdiagnosis-timeline.json")
	if _, err := os.Stat(expectedPath); err != nil {
		t.Errorf("expected file at %s: %v", expectedPath, err)
	}
}

func TestLocalStorageGetNotFound(t *testing.T) {
	s := NewLocalStorage(t.TempDir())

	if _, err := s.GetTimeline(context.Background(), "needscontact"); err == nil {
		t.Fatal("expected error for missing document")
	}
}

func TestNewFromConfig(t *testing.T) {
	client, err := NewFromConfig(context.Background(), config.ArchiveConfig{
		Backend:   "local",
		LocalPath: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if _, ok := client.(*LocalStorage); !ok {
		t.Errorf("backend = %T, want *LocalStorage", client)
	}

	if _, err := NewFromConfig(context.Background(), config.ArchiveConfig{Backend: "ftp"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
