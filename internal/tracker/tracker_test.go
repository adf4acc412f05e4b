package tracker

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTracker_ShouldImport(t *testing.T) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	tr := &Tracker{Version: 1}
	tr.RecordImport("session-a.jsonl", base, "sessions/2026-08/alice/01-1000.md")

	tests := []struct {
		name     string
		filename string
		modTime  time.Time
		want     bool
	}{
		{"unknown file", "session-b.jsonl", base, true},
		{"same mtime", "session-a.jsonl", base, false},
		{"older mtime", "session-a.jsonl", base.Add(-time.Minute), false},
		{"strictly newer mtime", "session-a.jsonl", base.Add(time.Second), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tr.ShouldImport(tt.filename, tt.modTime); got != tt.want {
				t.Errorf("ShouldImport(%q, %v) = %v, want %v", tt.filename, tt.modTime, got, tt.want)
			}
		})
	}
}

func TestTracker_RecordImportUpserts(t *testing.T) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	tr := &Tracker{Version: 1}
	tr.RecordImport("session-a.jsonl", base, "sessions/2026-08/alice/01-1000.md")
	tr.RecordImport("session-a.jsonl", base.Add(time.Hour), "sessions/2026-08/alice/01-1100.md")

	if len(tr.Sessions) != 1 {
		t.Fatalf("tracker has %d records, want 1 (upsert, not append)", len(tr.Sessions))
	}
	if !tr.Sessions[0].ModTime.Equal(base.Add(time.Hour)) {
		t.Errorf("record mtime = %v, want updated", tr.Sessions[0].ModTime)
	}
	if tr.Sessions[0].Path != "sessions/2026-08/alice/01-1100.md" {
		t.Errorf("record path = %q, want replaced", tr.Sessions[0].Path)
	}
}

func TestTracker_Find(t *testing.T) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	tr := &Tracker{Version: 1}
	tr.RecordImport("session-a.jsonl", base, "sessions/2026-08/alice/01-1000.md")

	rec, ok := tr.Find("session-a.jsonl")
	if !ok {
		t.Fatal("Find() did not see the recorded file")
	}
	if rec.Path != "sessions/2026-08/alice/01-1000.md" {
		t.Errorf("Find() path = %q", rec.Path)
	}
	if _, ok := tr.Find("session-b.jsonl"); ok {
		t.Error("Find() matched an unknown file")
	}
}

func TestTracker_LoadSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()

	tr := &Tracker{Version: 1}
	tr.RecordImport("a.jsonl", time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC), "sessions/2026-08/alice/01-1000.md")
	tr.RecordImport("b.jsonl", time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC), "sessions/2026-08/bob/02-1000.md")
	if err := tr.Save(dir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded.Sessions) != 2 {
		t.Fatalf("Load() returned %d records, want 2", len(loaded.Sessions))
	}
	if loaded.Version != 1 {
		t.Errorf("Load() version = %d, want 1", loaded.Version)
	}
	if loaded.ShouldImport("a.jsonl", time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)) {
		t.Error("persisted record forgotten after reload")
	}
}

func TestTracker_LoadMissingFileIsEmpty(t *testing.T) {
	tr, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(tr.Sessions) != 0 {
		t.Errorf("fresh tracker has %d records", len(tr.Sessions))
	}
}

func TestTracker_LoadMalformedFileResets(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("{{{"), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	tr, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() on malformed tracker error = %v", err)
	}
	if len(tr.Sessions) != 0 {
		t.Errorf("malformed tracker returned %d records", len(tr.Sessions))
	}
}

func TestLock_AcquireRelease(t *testing.T) {
	dir := t.TempDir()

	lock, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	// Second acquisition fails as "in progress" after bounded retries.
	start := time.Now()
	_, err = Acquire(dir)
	var inProgress *InProgressError
	if !errors.As(err, &inProgress) {
		t.Fatalf("second Acquire() error = %v, want InProgressError", err)
	}
	if elapsed := time.Since(start); elapsed < (lockAttempts-1)*lockBackoff {
		t.Errorf("second Acquire() returned after %v, expected bounded retries first", elapsed)
	}

	lock.Release()
	relock, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
	relock.Release()
}
