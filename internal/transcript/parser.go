package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/recallhq/recall/internal/logging"
)

// Message is one normalized transcript message.
type Message struct {
	Role string `json:"role"` // "user", "assistant", "tool"
	Text string `json:"text"`
}

// Transcript is the result of parsing one session log.
type Transcript struct {
	Messages     []Message
	SkippedLines int
}

// MessageCount returns the number of normalized messages.
func (t *Transcript) MessageCount() int {
	return len(t.Messages)
}

// rawLine covers the message shapes the known tool vendors emit. Fields are
// raw so each shape can be probed without committing to one schema.
type rawLine struct {
	Type    json.RawMessage `json:"type,omitempty"`
	Role    string          `json:"role,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
	Text    string          `json:"text,omitempty"`
	Message *struct {
		Role    string          `json:"role,omitempty"`
		Content json.RawMessage `json:"content,omitempty"`
	} `json:"message,omitempty"`
}

// contentBlock is one element of a multi-part assistant content array.
type contentBlock struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text,omitempty"`
}

// Parse reads newline-delimited JSON and normalizes each recognizable line
// into a Message. A line that fails to parse is skipped and counted; one
// corrupt line never discards the rest of the file.
func Parse(r io.Reader) (*Transcript, error) {
	result := &Transcript{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		msg, ok := parseLine(line)
		if !ok {
			result.SkippedLines++
			logging.Debug("skipping unparseable transcript line %d", lineNo)
			continue
		}
		if msg != nil {
			result.Messages = append(result.Messages, *msg)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}

	return result, nil
}

// ParseString parses a transcript held in memory.
func ParseString(raw string) (*Transcript, error) {
	return Parse(strings.NewReader(raw))
}

// parseLine normalizes one JSONL line. The second return is false when the
// line is not valid JSON; a nil message with true means the line parsed but
// carries nothing worth keeping (tool bookkeeping records, empty content).
func parseLine(line string) (*Message, bool) {
	var raw rawLine
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return nil, false
	}

	role := normalizeRole(&raw)
	if role == "" {
		// Parsed fine but not a message record.
		return nil, true
	}

	text := extractText(&raw)
	if text == "" {
		return nil, true
	}

	return &Message{Role: role, Text: text}, true
}

// normalizeRole finds the message role wherever the vendor put it.
func normalizeRole(raw *rawLine) string {
	if raw.Message != nil && raw.Message.Role != "" {
		return canonicalRole(raw.Message.Role)
	}
	if raw.Role != "" {
		return canonicalRole(raw.Role)
	}
	if len(raw.Type) > 0 {
		// Cursor encodes the actor as an integer type: 1=user, 2=assistant.
		var n int
		if err := json.Unmarshal(raw.Type, &n); err == nil {
			switch n {
			case 1:
				return "user"
			case 2:
				return "assistant"
			}
			return ""
		}
		var s string
		if err := json.Unmarshal(raw.Type, &s); err == nil {
			return canonicalRole(s)
		}
	}
	return ""
}

func canonicalRole(role string) string {
	switch strings.ToLower(role) {
	case "user", "human":
		return "user"
	case "assistant", "ai", "model":
		return "assistant"
	case "tool", "tool_result", "function":
		return "tool"
	default:
		return ""
	}
}

// extractText pulls the message body out of whichever field carries it,
// concatenating multi-part content blocks into one text block.
func extractText(raw *rawLine) string {
	if raw.Message != nil && len(raw.Message.Content) > 0 {
		if text := textFromContent(raw.Message.Content); text != "" {
			return text
		}
	}
	if len(raw.Content) > 0 {
		if text := textFromContent(raw.Content); text != "" {
			return text
		}
	}
	return strings.TrimSpace(raw.Text)
}

// textFromContent handles both a plain string and an array of typed blocks.
func textFromContent(content json.RawMessage) string {
	var s string
	if err := json.Unmarshal(content, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var blocks []contentBlock
	if err := json.Unmarshal(content, &blocks); err == nil {
		var parts []string
		for _, block := range blocks {
			if block.Type != "" && block.Type != "text" {
				continue
			}
			if t := strings.TrimSpace(block.Text); t != "" {
				parts = append(parts, t)
			}
		}
		return strings.Join(parts, "\n\n")
	}

	return ""
}

// Render produces a role-labeled markdown transcript in input order.
func (t *Transcript) Render() string {
	var sb strings.Builder
	for i, msg := range t.Messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("**%s:**\n\n%s\n", labelFor(msg.Role), msg.Text))
	}
	return sb.String()
}

func labelFor(role string) string {
	switch role {
	case "user":
		return "User"
	case "assistant":
		return "Assistant"
	case "tool":
		return "Tool"
	default:
		return role
	}
}
