// Package tracker records which source session files have already been
// imported, keyed by filename and modification time, so repeated import
// invocations are idempotent.
package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/recallhq/recall/internal/logging"
)

// FileName is the tracker file, stored plaintext alongside the memory store.
// It holds no session content, only filenames and times.
const FileName = "imported-sessions.json"

const trackerVersion = 1

// Record is one imported source file. Path is the session file the source
// produced, relative to the store root, so a re-import can replace it.
type Record struct {
	Filename   string    `json:"filename"`
	ImportedAt time.Time `json:"importedAt"`
	ModTime    time.Time `json:"mtime"`
	Path       string    `json:"path,omitempty"`
}

// Tracker is the keyed list of import records.
type Tracker struct {
	Version  int      `json:"version"`
	Sessions []Record `json:"sessions"`
}

// Load reads the tracker from dir. A missing file is an empty tracker; a
// malformed file is reset with a warning rather than blocking imports.
func Load(dir string) (*Tracker, error) {
	raw, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return &Tracker{Version: trackerVersion}, nil
		}
		return nil, fmt.Errorf("failed to read tracker: %w", err)
	}

	var t Tracker
	if err := json.Unmarshal(raw, &t); err != nil {
		logging.Warn("tracker file is malformed, starting fresh: %v", err)
		return &Tracker{Version: trackerVersion}, nil
	}
	if t.Version == 0 {
		t.Version = trackerVersion
	}
	return &t, nil
}

// Save writes the tracker atomically.
func (t *Tracker) Save(dir string) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tracker: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create tracker directory: %w", err)
	}
	return writeFileAtomic(filepath.Join(dir, FileName), append(data, '\n'))
}

// ShouldImport reports whether a source file needs importing: true when no
// record exists, or when the file is strictly newer than the recorded mtime.
func (t *Tracker) ShouldImport(filename string, modTime time.Time) bool {
	for _, rec := range t.Sessions {
		if rec.Filename == filename {
			return modTime.After(rec.ModTime)
		}
	}
	return true
}

// Find returns the record for filename when one exists.
func (t *Tracker) Find(filename string) (Record, bool) {
	for _, rec := range t.Sessions {
		if rec.Filename == filename {
			return rec, true
		}
	}
	return Record{}, false
}

// RecordImport upserts the record for filename. Re-importing an updated
// file replaces its entry; it never duplicates.
func (t *Tracker) RecordImport(filename string, modTime time.Time, path string) {
	now := time.Now().UTC()
	for i, rec := range t.Sessions {
		if rec.Filename == filename {
			t.Sessions[i].ModTime = modTime
			t.Sessions[i].ImportedAt = now
			t.Sessions[i].Path = path
			return
		}
	}
	t.Sessions = append(t.Sessions, Record{
		Filename:   filename,
		ImportedAt: now,
		ModTime:    modTime,
		Path:       path,
	})
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tracker-tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
