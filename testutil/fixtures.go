package testutil

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// Key returns a deterministic 32-byte key filled with b.
func Key(b byte) []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = b
	}
	return key
}

// WriteFile writes a fixture file, creating parent directories.
func WriteFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write fixture file: %v", err)
	}
}

// WriteTranscriptFixture writes a small well-formed JSONL transcript and
// returns its path.
func WriteTranscriptFixture(t *testing.T, dir, name string) string {
	t.Helper()
	lines := []string{
		`{"role":"user","content":"we need to pick a cache layer"}`,
		`{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"I'd suggest the existing store"}]}}`,
		`{"role":"user","content":"agreed, let's do that"}`,
	}
	path := filepath.Join(dir, name)
	content := ""
	for _, line := range lines {
		content += line + "\n"
	}
	WriteFile(t, path, content)
	return path
}

// CreateCursorStorageFixture creates a Cursor globalStorage database with one
// two-message conversation and returns its path.
func CreateCursorStorageFixture(t *testing.T, dir string) string {
	t.Helper()
	dbPath := filepath.Join(dir, "state.vscdb")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open fixture database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS cursorDiskKV (key TEXT PRIMARY KEY, value TEXT)`); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	now := time.Now().UnixMilli()
	rows := map[string]map[string]interface{}{
		"bubbleId:chat1:bubble1": {
			"text":      "how should we shard the tracker file?",
			"timestamp": now - 2000,
			"type":      1,
		},
		"bubbleId:chat1:bubble2": {
			"text":      "keep it single-file, it stays small",
			"timestamp": now - 1000,
			"type":      2,
		},
		"composerData:composer1": {
			"composerId":    "composer1",
			"name":          "tracker sharding",
			"createdAt":     now - 3000,
			"lastUpdatedAt": now,
			"fullConversationHeadersOnly": []map[string]interface{}{
				{"bubbleId": "bubble1", "type": 1},
				{"bubbleId": "bubble2", "type": 2},
			},
		},
	}

	for key, value := range rows {
		encoded, _ := json.Marshal(value)
		if _, err := db.Exec("INSERT INTO cursorDiskKV (key, value) VALUES (?, ?)", key, string(encoded)); err != nil {
			t.Fatalf("Failed to insert fixture row %s: %v", key, err)
		}
	}

	return dbPath
}
