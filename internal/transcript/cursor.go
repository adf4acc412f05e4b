package transcript

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/recallhq/recall/internal/logging"
)

// CursorSession is one conversation read out of Cursor's globalStorage
// database, already normalized into a Transcript.
type CursorSession struct {
	ID         string
	Name       string
	UpdatedAt  time.Time
	Transcript *Transcript
}

// cursorBubble is one message record from the cursorDiskKV table.
type cursorBubble struct {
	Text      string `json:"text,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Type      int    `json:"type"` // 1=user, 2=assistant
}

// cursorComposer is one conversation record from the cursorDiskKV table.
type cursorComposer struct {
	ComposerID                  string `json:"composerId"`
	Name                        string `json:"name,omitempty"`
	CreatedAt                   int64  `json:"createdAt,omitempty"`
	LastUpdatedAt               int64  `json:"lastUpdatedAt,omitempty"`
	FullConversationHeadersOnly []struct {
		BubbleID string `json:"bubbleId"`
		Type     int    `json:"type"`
	} `json:"fullConversationHeadersOnly,omitempty"`
}

// LoadCursorSessions reads every conversation from a Cursor globalStorage
// database. Individual records that fail to parse are skipped.
func LoadCursorSessions(dbPath string) ([]*CursorSession, error) {
	db, err := sql.Open("sqlite", dbPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open cursor storage: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("cursor storage ping failed: %w", err)
	}

	bubbles, err := loadCursorBubbles(db)
	if err != nil {
		return nil, err
	}
	composers, err := loadCursorComposers(db)
	if err != nil {
		return nil, err
	}

	var sessions []*CursorSession
	for _, composer := range composers {
		session := reconstructCursorSession(composer, bubbles)
		if session == nil || session.Transcript.MessageCount() == 0 {
			continue
		}
		sessions = append(sessions, session)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.Before(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

func queryCursorDiskKV(db *sql.DB, pattern string) (map[string]string, error) {
	rows, err := db.Query("SELECT key, value FROM cursorDiskKV WHERE key LIKE ? AND value IS NOT NULL", pattern)
	if err != nil {
		return nil, fmt.Errorf("cursor storage query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	pairs := make(map[string]string)
	for rows.Next() {
		var key string
		var value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("cursor storage scan failed: %w", err)
		}
		if value.Valid {
			pairs[key] = value.String
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cursor storage iteration error: %w", err)
	}
	return pairs, nil
}

func loadCursorBubbles(db *sql.DB) (map[string]*cursorBubble, error) {
	pairs, err := queryCursorDiskKV(db, "bubbleId:%")
	if err != nil {
		return nil, err
	}

	bubbles := make(map[string]*cursorBubble)
	for key, value := range pairs {
		// Key format: bubbleId:<chatId>:<bubbleId>
		parts := strings.Split(key, ":")
		if len(parts) != 3 {
			continue
		}
		var bubble cursorBubble
		if err := json.Unmarshal([]byte(value), &bubble); err != nil {
			logging.Debug("skipping unparseable bubble %s: %v", key, err)
			continue
		}
		bubbles[parts[2]] = &bubble
	}
	return bubbles, nil
}

func loadCursorComposers(db *sql.DB) ([]*cursorComposer, error) {
	pairs, err := queryCursorDiskKV(db, "composerData:%")
	if err != nil {
		return nil, err
	}

	var composers []*cursorComposer
	for key, value := range pairs {
		var composer cursorComposer
		if err := json.Unmarshal([]byte(value), &composer); err != nil {
			logging.Debug("skipping unparseable composer %s: %v", key, err)
			continue
		}
		if composer.ComposerID == "" {
			// Key format: composerData:<composerId>
			if parts := strings.Split(key, ":"); len(parts) == 2 {
				composer.ComposerID = parts[1]
			}
		}
		composers = append(composers, &composer)
	}
	return composers, nil
}

// reconstructCursorSession stitches a composer's bubble headers back into an
// ordered transcript.
func reconstructCursorSession(composer *cursorComposer, bubbles map[string]*cursorBubble) *CursorSession {
	type timedMessage struct {
		msg Message
		ts  int64
	}

	var timed []timedMessage
	for _, header := range composer.FullConversationHeadersOnly {
		bubble, ok := bubbles[header.BubbleID]
		if !ok {
			continue
		}
		text := strings.TrimSpace(bubble.Text)
		if text == "" {
			continue
		}
		role := "assistant"
		if header.Type == 1 {
			role = "user"
		}
		timed = append(timed, timedMessage{
			msg: Message{Role: role, Text: text},
			ts:  bubble.Timestamp,
		})
	}

	sort.SliceStable(timed, func(i, j int) bool { return timed[i].ts < timed[j].ts })

	tr := &Transcript{}
	for _, tm := range timed {
		tr.Messages = append(tr.Messages, tm.msg)
	}

	updated := composer.LastUpdatedAt
	if updated == 0 {
		updated = composer.CreatedAt
	}
	return &CursorSession{
		ID:         composer.ComposerID,
		Name:       composer.Name,
		UpdatedAt:  time.Unix(0, updated*int64(time.Millisecond)).UTC(),
		Transcript: tr,
	}
}
