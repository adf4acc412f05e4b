package cmd

import (
	"testing"
	"time"

	"github.com/recallhq/recall/internal/memory"
)

func TestDisplaySessions(t *testing.T) {
	tests := []struct {
		name  string
		files []memory.SessionFile
	}{
		{
			name:  "no sessions",
			files: []memory.SessionFile{},
		},
		{
			name: "session with status and author",
			files: []memory.SessionFile{
				{
					Path:    "sessions/2026-08/alice/14-0926.md",
					ModTime: time.Date(2026, 8, 14, 9, 26, 0, 0, time.UTC),
					Content: "# Tracker rework\n\n**Status:** blocked\n**Author:** alice@example.com\n\n## Summary\n\nWaiting on the lock change.\n",
				},
			},
		},
		{
			name: "session with long title",
			files: []memory.SessionFile{
				{
					Path:    "sessions/2026-08/bob/15-1000.md",
					ModTime: time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC),
					Content: "# This is a very long session title that should be truncated when displayed in the list view\n\n## Summary\n\nLong one.\n",
				},
			},
		},
		{
			name: "unstructured content",
			files: []memory.SessionFile{
				{
					Path:    "sessions/2026-08/bob/16-1100.md",
					ModTime: time.Date(2026, 8, 16, 11, 0, 0, 0, time.UTC),
					Content: "just some notes without any structure",
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Rendering must not panic regardless of content shape.
			displaySessions(tt.files)
		})
	}
}
