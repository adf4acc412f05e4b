package config

import (
	"path/filepath"
	"testing"

	"github.com/recallhq/recall/testutil"
)

func TestLoad_FileAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	testutil.WriteFile(t, path, "token: from-file\nauthor: file@example.com\ntool: claude-code\n")

	t.Setenv("RECALL_TOKEN", "from-env")
	t.Setenv("RECALL_KEY_ENDPOINT", "")
	t.Setenv("RECALL_SUMMARIZE_ENDPOINT", "")
	t.Setenv("RECALL_AUTHOR", "")
	t.Setenv("RECALL_TOOL", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Token != "from-env" {
		t.Errorf("Token = %q, want env override", cfg.Token)
	}
	if cfg.Author != "file@example.com" {
		t.Errorf("Author = %q, want file value", cfg.Author)
	}
	if cfg.Tool != "claude-code" {
		t.Errorf("Tool = %q", cfg.Tool)
	}
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	t.Setenv("RECALL_TOKEN", "")
	t.Setenv("RECALL_AUTHOR", "")
	t.Setenv("RECALL_TOOL", "")
	t.Setenv("RECALL_KEY_ENDPOINT", "")
	t.Setenv("RECALL_SUMMARIZE_ENDPOINT", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Token != "" {
		t.Errorf("Token = %q, want empty", cfg.Token)
	}
}

func TestLoad_MalformedFileErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	testutil.WriteFile(t, path, "token: [unclosed\n")

	if _, err := Load(path); err == nil {
		t.Error("Load() accepted malformed YAML")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("RECALL_TOKEN", "")
	t.Setenv("RECALL_AUTHOR", "")
	t.Setenv("RECALL_TOOL", "")
	t.Setenv("RECALL_KEY_ENDPOINT", "")
	t.Setenv("RECALL_SUMMARIZE_ENDPOINT", "")

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := &Config{Token: "t", Author: "a@example.com"}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Token != "t" || loaded.Author != "a@example.com" {
		t.Errorf("round trip = %+v", loaded)
	}
}
