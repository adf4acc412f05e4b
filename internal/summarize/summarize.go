// Package summarize turns a parsed transcript into a structured session.
// A remote summarization endpoint is used when configured; any failure there
// falls back to local template generation, so summarization never blocks a
// save.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/recallhq/recall/internal/logging"
	"github.com/recallhq/recall/internal/memory"
	"github.com/recallhq/recall/internal/transcript"
)

// Client summarizes transcripts. A zero endpoint means local-only.
type Client struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewClient creates a summarization client. A nil http.Client gets a
// 30 second timeout; summarization calls large models and is slow.
func NewClient(endpoint, token string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{endpoint: endpoint, token: token, client: client}
}

// remoteResponse accepts both response shapes the service has shipped: the
// legacy {small, medium} pair and the structured-session shape.
type remoteResponse struct {
	// Legacy shape.
	Small  string `json:"small,omitempty"`
	Medium string `json:"medium,omitempty"`

	// Structured shape.
	Title        string `json:"title,omitempty"`
	ShortSummary string `json:"shortSummary,omitempty"`
	LongSummary  string `json:"longSummary,omitempty"`
	Status       string `json:"status,omitempty"`
	NextSteps    string `json:"nextSteps,omitempty"`
	Decisions    []struct {
		Title        string   `json:"title"`
		What         string   `json:"what"`
		Why          string   `json:"why"`
		Alternatives []string `json:"alternatives"`
		Confidence   string   `json:"confidence"`
	} `json:"decisions,omitempty"`
}

// Summarize produces a structured session for the transcript. It never
// returns an error: remote trouble degrades to the local template.
func (c *Client) Summarize(ctx context.Context, tr *transcript.Transcript) *memory.StructuredSession {
	if c.endpoint != "" {
		if session := c.remote(ctx, tr); session != nil {
			return session
		}
		logging.Info("remote summarization unavailable, using local summary")
	}
	return Local(tr)
}

func (c *Client) remote(ctx context.Context, tr *transcript.Transcript) *memory.StructuredSession {
	payload, err := json.Marshal(map[string]string{"transcript": tr.Render()})
	if err != nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		logging.Debug("summarization request failed: %v", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		logging.Debug("summarization service returned %d", resp.StatusCode)
		return nil
	}

	var parsed remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		logging.Debug("summarization response malformed: %v", err)
		return nil
	}

	session := sessionFromResponse(&parsed)
	if session == nil || session.IsEmpty() {
		return nil
	}
	return session
}

func sessionFromResponse(resp *remoteResponse) *memory.StructuredSession {
	session := &memory.StructuredSession{
		Title:        resp.Title,
		ShortSummary: resp.ShortSummary,
		LongSummary:  resp.LongSummary,
		NextSteps:    resp.NextSteps,
	}

	switch memory.Status(resp.Status) {
	case memory.StatusComplete, memory.StatusInProgress, memory.StatusBlocked:
		session.Status = memory.Status(resp.Status)
	}

	for _, d := range resp.Decisions {
		confidence := memory.Confidence(d.Confidence)
		if confidence != memory.ConfidenceHigh && confidence != memory.ConfidenceLow {
			confidence = memory.ConfidenceMedium
		}
		session.Decisions = append(session.Decisions, memory.Decision{
			Title:        d.Title,
			What:         d.What,
			Why:          d.Why,
			Alternatives: d.Alternatives,
			Confidence:   confidence,
		})
	}

	// Legacy shape maps onto the summary fields.
	if session.ShortSummary == "" {
		session.ShortSummary = strings.TrimSpace(resp.Small)
	}
	if session.LongSummary == "" {
		session.LongSummary = strings.TrimSpace(resp.Medium)
	}
	return session
}

// Local builds a template summary from the transcript alone. It keys the
// title and summary off the opening user message, which tends to state the
// task.
func Local(tr *transcript.Transcript) *memory.StructuredSession {
	if tr == nil || tr.MessageCount() == 0 {
		return nil
	}

	var firstUser string
	for _, msg := range tr.Messages {
		if msg.Role == "user" {
			firstUser = msg.Text
			break
		}
	}
	if firstUser == "" {
		firstUser = tr.Messages[0].Text
	}

	title := firstLine(firstUser)
	if len(title) > 80 {
		title = title[:77] + "..."
	}

	return &memory.StructuredSession{
		Title:        title,
		ShortSummary: fmt.Sprintf("Session covering: %s (%d messages)", title, tr.MessageCount()),
		LongSummary:  tr.Render(),
		Status:       memory.StatusComplete,
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
