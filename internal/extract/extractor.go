// Package extract pulls typed records out of session markdown. It is a
// best-effort heuristic parser, not a grammar: unrecognized text is ignored
// and partial or empty results are normal.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/recallhq/recall/internal/memory"
)

var (
	markerRe = regexp.MustCompile(`(?m)^\[(DECISION|FAILURE|LESSON|PROMPT_PATTERN)\][ \t]*(.*)$`)
	fieldRe  = regexp.MustCompile(`(?m)^\*\*([A-Za-z ]+):\*\*[ \t]*(.*)$`)
	titleRe  = regexp.MustCompile(`(?m)^#[ \t]+(.+)$`)
)

// Extract parses one session's markdown into a StructuredSession. It
// returns nil when the document has no recognized section markers and no
// summary section; callers treat that as "nothing to extract", not an error.
func Extract(markdown string) *memory.StructuredSession {
	session := &memory.StructuredSession{}

	markers := markerRe.FindAllStringSubmatchIndex(markdown, -1)

	headerEnd := len(markdown)
	if len(markers) > 0 {
		headerEnd = markers[0][0]
	}
	parseHeader(markdown[:headerEnd], session)

	for i, marker := range markers {
		kind := markdown[marker[2]:marker[3]]
		title := strings.TrimSpace(markdown[marker[4]:marker[5]])

		bodyStart := marker[1]
		bodyEnd := len(markdown)
		if i+1 < len(markers) {
			bodyEnd = markers[i+1][0]
		}
		fields := parseFields(markdown[bodyStart:bodyEnd])

		switch kind {
		case "DECISION":
			session.Decisions = append(session.Decisions, memory.Decision{
				Title:        title,
				What:         fields["what"],
				Why:          fields["why"],
				Alternatives: splitList(fields["alternatives"]),
				Confidence:   parseConfidence(fields["confidence"]),
			})
		case "FAILURE":
			session.Failures = append(session.Failures, memory.Failure{
				Title:        title,
				WhatTried:    fields["what tried"],
				WhatHappened: fields["what happened"],
				RootCause:    fields["root cause"],
				MinutesLost:  parseMinutes(fields["minutes lost"]),
				Resolution:   fields["resolution"],
			})
		case "LESSON":
			session.Lessons = append(session.Lessons, memory.Lesson{
				Title:              title,
				DerivedFromFailure: fields["derived from failure"],
				Lesson:             fields["lesson"],
				WhenApplies:        fields["when applies"],
			})
		case "PROMPT_PATTERN":
			session.PromptPatterns = append(session.PromptPatterns, memory.PromptPattern{
				Title:        title,
				Prompt:       fields["prompt"],
				WhyEffective: fields["why effective"],
				WhenToUse:    fields["when to use"],
			})
		}
	}

	if session.IsEmpty() {
		return nil
	}
	return session
}

// parseHeader fills title, status, provenance, and summaries from the text
// above the first section marker.
func parseHeader(header string, session *memory.StructuredSession) {
	if m := titleRe.FindStringSubmatch(header); m != nil {
		session.Title = strings.TrimSpace(m[1])
	}

	fields := parseFields(header)
	session.Status = parseStatus(fields["status"])
	session.Tool = fields["tool"]
	session.Author = fields["author"]
	session.NextSteps = fields["next steps"]
	session.BlockedBy = fields["blocked by"]
	if raw := fields["date"]; raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			session.Timestamp = ts.UTC()
		}
	}

	short, long := parseSummary(header)
	session.ShortSummary = short
	session.LongSummary = long
}

// parseSummary extracts the "## Summary" section: first paragraph becomes
// the short summary, the remainder the long one.
func parseSummary(text string) (string, string) {
	idx := strings.Index(text, "## Summary")
	if idx == -1 {
		return "", ""
	}
	body := text[idx+len("## Summary"):]
	if end := strings.Index(body, "\n## "); end != -1 {
		body = body[:end]
	}

	var paragraphs []string
	for _, block := range strings.Split(body, "\n\n") {
		block = strings.TrimSpace(block)
		// Metadata lines inside the summary belong to the header, not here.
		if block == "" || fieldRe.MatchString(block) {
			continue
		}
		paragraphs = append(paragraphs, block)
	}
	if len(paragraphs) == 0 {
		return "", ""
	}
	return paragraphs[0], strings.Join(paragraphs[1:], "\n\n")
}

// parseFields collects `**Label:** value` lines, keyed by lowercased label.
func parseFields(text string) map[string]string {
	fields := make(map[string]string)
	for _, m := range fieldRe.FindAllStringSubmatch(text, -1) {
		label := strings.ToLower(strings.TrimSpace(m[1]))
		if _, exists := fields[label]; !exists {
			fields[label] = strings.TrimSpace(m[2])
		}
	}
	return fields
}

func parseConfidence(raw string) memory.Confidence {
	switch memory.Confidence(strings.ToLower(raw)) {
	case memory.ConfidenceHigh:
		return memory.ConfidenceHigh
	case memory.ConfidenceLow:
		return memory.ConfidenceLow
	default:
		return memory.ConfidenceMedium
	}
}

func parseStatus(raw string) memory.Status {
	switch memory.Status(strings.ToLower(raw)) {
	case memory.StatusComplete, memory.StatusInProgress, memory.StatusBlocked:
		return memory.Status(strings.ToLower(raw))
	default:
		return ""
	}
}

func parseMinutes(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(raw, ";") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
