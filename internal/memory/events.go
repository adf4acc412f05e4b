package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/recallhq/recall/internal/logging"
)

const eventsFile = "events.jsonl"

// AppendEvent appends one event to the log. Missing IDs get a fresh UUID
// and the timestamp is clamped so the log stays monotonically
// non-decreasing. The whole log is rewritten atomically because the file is
// a single envelope when encrypted.
func (s *Store) AppendEvent(ev Event) error {
	if err := s.checkWritable(); err != nil {
		return err
	}

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	ev.Timestamp = ev.Timestamp.UTC()

	events, err := s.ReadEvents()
	if err != nil {
		return err
	}
	if n := len(events); n > 0 && ev.Timestamp.Before(events[n-1].Timestamp) {
		ev.Timestamp = events[n-1].Timestamp
	}
	events = append(events, ev)

	var sb strings.Builder
	for _, event := range events {
		line, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", event.ID, err)
		}
		sb.Write(line)
		sb.WriteByte('\n')
	}

	data, err := s.encode(sb.String())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	path := filepath.Join(s.root, eventsFile+s.writeSuffix())
	if err := writeFileAtomic(path, []byte(data)); err != nil {
		return fmt.Errorf("failed to write event log: %w", err)
	}
	return nil
}

// ReadEvents returns the event log in append order. Malformed lines are
// skipped; a missing log is an empty one.
func (s *Store) ReadEvents() ([]Event, error) {
	var raw []byte
	var err error
	for _, suffix := range []string{encSuffix, ""} {
		raw, err = os.ReadFile(filepath.Join(s.root, eventsFile+suffix))
		if err == nil {
			break
		}
	}
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}

	content, err := s.decode(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode event log: %w", err)
	}

	var events []Event
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			logging.Warn("skipping malformed event log line: %v", err)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}
