package memory

import (
	"fmt"
	"strings"
	"time"
)

// Markdown renders the structured session as the canonical session file
// format. The extractor parses this same format back, so field labels here
// and in the extractor must stay in lockstep.
func (s *StructuredSession) Markdown() string {
	var sb strings.Builder

	title := s.Title
	if title == "" {
		title = "Session"
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)

	if s.Status != "" {
		fmt.Fprintf(&sb, "**Status:** %s\n", s.Status)
	}
	if s.Tool != "" {
		fmt.Fprintf(&sb, "**Tool:** %s\n", s.Tool)
	}
	if s.Author != "" {
		fmt.Fprintf(&sb, "**Author:** %s\n", s.Author)
	}
	if !s.Timestamp.IsZero() {
		fmt.Fprintf(&sb, "**Date:** %s\n", s.Timestamp.UTC().Format(time.RFC3339))
	}
	sb.WriteString("\n")

	if s.ShortSummary != "" || s.LongSummary != "" {
		sb.WriteString("## Summary\n\n")
		if s.ShortSummary != "" {
			sb.WriteString(s.ShortSummary + "\n\n")
		}
		if s.LongSummary != "" {
			sb.WriteString(s.LongSummary + "\n\n")
		}
	}

	if s.NextSteps != "" {
		fmt.Fprintf(&sb, "**Next Steps:** %s\n\n", s.NextSteps)
	}
	if s.BlockedBy != "" {
		fmt.Fprintf(&sb, "**Blocked By:** %s\n\n", s.BlockedBy)
	}

	for _, d := range s.Decisions {
		fmt.Fprintf(&sb, "[DECISION] %s\n", d.Title)
		writeField(&sb, "What", d.What)
		writeField(&sb, "Why", d.Why)
		writeField(&sb, "Alternatives", strings.Join(d.Alternatives, "; "))
		writeField(&sb, "Confidence", string(d.Confidence))
		sb.WriteString("\n")
	}

	for _, f := range s.Failures {
		fmt.Fprintf(&sb, "[FAILURE] %s\n", f.Title)
		writeField(&sb, "What Tried", f.WhatTried)
		writeField(&sb, "What Happened", f.WhatHappened)
		writeField(&sb, "Root Cause", f.RootCause)
		if f.MinutesLost > 0 {
			writeField(&sb, "Minutes Lost", fmt.Sprintf("%d", f.MinutesLost))
		}
		writeField(&sb, "Resolution", f.Resolution)
		sb.WriteString("\n")
	}

	for _, l := range s.Lessons {
		fmt.Fprintf(&sb, "[LESSON] %s\n", l.Title)
		writeField(&sb, "Derived From Failure", l.DerivedFromFailure)
		writeField(&sb, "Lesson", l.Lesson)
		writeField(&sb, "When Applies", l.WhenApplies)
		sb.WriteString("\n")
	}

	for _, p := range s.PromptPatterns {
		fmt.Fprintf(&sb, "[PROMPT_PATTERN] %s\n", p.Title)
		writeField(&sb, "Prompt", p.Prompt)
		writeField(&sb, "Why Effective", p.WhyEffective)
		writeField(&sb, "When To Use", p.WhenToUse)
		sb.WriteString("\n")
	}

	return sb.String()
}

// ToRecord wraps the rendered markdown as a session record for the store.
func (s *StructuredSession) ToRecord() *SessionRecord {
	ts := s.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &SessionRecord{
		Author:    s.Author,
		Tool:      s.Tool,
		Timestamp: ts,
		Content:   s.Markdown(),
	}
}

func writeField(sb *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(sb, "**%s:** %s\n", label, value)
}
