package transcript

import (
	"strings"
	"testing"
)

func TestParse_VendorShapes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     []Message
		wantSkip int
	}{
		{
			name:  "generic role and content",
			input: `{"role":"user","content":"hello"}`,
			want:  []Message{{Role: "user", Text: "hello"}},
		},
		{
			name:  "nested message with content blocks",
			input: `{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"part one"},{"type":"text","text":"part two"}]}}`,
			want:  []Message{{Role: "assistant", Text: "part one\n\npart two"}},
		},
		{
			name:  "cursor integer type",
			input: `{"type":1,"text":"from cursor"}`,
			want:  []Message{{Role: "user", Text: "from cursor"}},
		},
		{
			name: "mixed shapes preserve input order",
			input: `{"role":"user","content":"first"}
{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"second"}]}}
{"role":"user","content":"third"}`,
			want: []Message{
				{Role: "user", Text: "first"},
				{Role: "assistant", Text: "second"},
				{Role: "user", Text: "third"},
			},
		},
		{
			name:  "non-text blocks are dropped from concatenation",
			input: `{"message":{"role":"assistant","content":[{"type":"tool_use","text":"ignored"},{"type":"text","text":"kept"}]}}`,
			want:  []Message{{Role: "assistant", Text: "kept"}},
		},
		{
			name:  "human and ai aliases",
			input: "{\"role\":\"human\",\"content\":\"hi\"}\n{\"role\":\"ai\",\"content\":\"hey\"}",
			want: []Message{
				{Role: "user", Text: "hi"},
				{Role: "assistant", Text: "hey"},
			},
		},
		{
			name:     "garbage line is skipped not fatal",
			input:    "{\"role\":\"user\",\"content\":\"keep me\"}\nnot json at all{{{",
			want:     []Message{{Role: "user", Text: "keep me"}},
			wantSkip: 1,
		},
		{
			name:  "bookkeeping records parse but yield nothing",
			input: `{"type":"summary","summary":"compacted"}`,
			want:  nil,
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
		{
			name:     "entirely malformed file",
			input:    "garbage one\ngarbage two\ngarbage three",
			want:     nil,
			wantSkip: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseString(tt.input)
			if err != nil {
				t.Fatalf("ParseString() error = %v", err)
			}
			if got.SkippedLines != tt.wantSkip {
				t.Errorf("SkippedLines = %d, want %d", got.SkippedLines, tt.wantSkip)
			}
			if len(got.Messages) != len(tt.want) {
				t.Fatalf("got %d messages, want %d: %+v", len(got.Messages), len(tt.want), got.Messages)
			}
			for i, want := range tt.want {
				if got.Messages[i] != want {
					t.Errorf("message %d = %+v, want %+v", i, got.Messages[i], want)
				}
			}
		})
	}
}

func TestParse_BlankLinesNotCounted(t *testing.T) {
	input := "\n\n{\"role\":\"user\",\"content\":\"only\"}\n\n"
	got, err := ParseString(input)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	if got.MessageCount() != 1 {
		t.Errorf("MessageCount() = %d, want 1", got.MessageCount())
	}
	if got.SkippedLines != 0 {
		t.Errorf("SkippedLines = %d, want 0 for blank lines", got.SkippedLines)
	}
}

func TestTranscript_Render(t *testing.T) {
	tr := &Transcript{Messages: []Message{
		{Role: "user", Text: "how do I rotate the key?"},
		{Role: "assistant", Text: "run `recall rotate`"},
	}}

	out := tr.Render()
	userIdx := strings.Index(out, "**User:**")
	assistantIdx := strings.Index(out, "**Assistant:**")
	if userIdx == -1 || assistantIdx == -1 {
		t.Fatalf("Render() missing role labels: %q", out)
	}
	if userIdx > assistantIdx {
		t.Error("Render() did not preserve message order")
	}
	if !strings.Contains(out, "recall rotate") {
		t.Error("Render() dropped message text")
	}
}

func TestTranscript_RenderEmpty(t *testing.T) {
	tr := &Transcript{}
	if out := tr.Render(); out != "" {
		t.Errorf("Render() on empty transcript = %q, want empty", out)
	}
}
