package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Repo != "webcompat/web-bugs" {
		t.Errorf("Repo = %q, want default", cfg.Repo)
	}
	if cfg.Polling.Categories["needsdiagnosis"] != 3 {
		t.Errorf("default category missing: %v", cfg.Polling.Categories)
	}
	if cfg.Archive.Backend != "local" {
		t.Errorf("Archive.Backend = %q, want local", cfg.Archive.Backend)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
repo: myorg/my-bugs
polling:
  categories:
    needsdiagnosis: 3
    needscontact: 4
  timeout_seconds: 60
archive:
  backend: s3
  bucket: metrics-archive
  region: eu-west-1
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Repo != "myorg/my-bugs" {
		t.Errorf("Repo = %q", cfg.Repo)
	}
	if got := cfg.Polling.Categories["needscontact"]; got != 4 {
		t.Errorf("needscontact = %d, want 4", got)
	}
	if cfg.Polling.TimeoutSeconds != 60 {
		t.Errorf("TimeoutSeconds = %d, want 60", cfg.Polling.TimeoutSeconds)
	}
	if cfg.Archive.Bucket != "metrics-archive" {
		t.Errorf("Bucket = %q", cfg.Archive.Bucket)
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "invalid yaml",
			content: "repo: [unterminated",
		},
		{
			name: "unknown archive backend",
			content: `
archive:
  backend: ftp
`,
		},
		{
			name: "s3 backend without bucket",
			content: `
archive:
  backend: s3
`,
		},
		{
			name:    "empty repo",
			content: `repo: ""`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.content)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
