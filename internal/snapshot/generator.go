// Package snapshot regenerates the two derived artifacts from the full set
// of structured sessions. Generation is deterministic for a given input set;
// only the "Last synced" stamp depends on the clock.
package snapshot

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/recallhq/recall/internal/memory"
)

// Artifacts holds both regenerated digests.
type Artifacts struct {
	CurrentContext string
	FullHistory    string
}

const (
	maxSectionBullets = 10
	timelineMonths    = 6
	timelinePerMonth  = 5
)

// Section headers in the current-context artifact. Hand-edited bullets under
// these headers survive regeneration; unknown sections pass through whole.
const (
	headerFocus     = "## Current Focus"
	headerAttention = "## Needs Attention"
	headerDecisions = "## Recent Decisions"
	headerAvoid     = "## Things to Avoid"
	headerLessons   = "## Lessons"
)

// Generate rebuilds the current-context and full-history artifacts from all
// structured sessions. prevContext is the prior current-context artifact (may
// be empty); bullets a human added under known section headers are merged in
// rather than destroyed. now feeds only the "Last synced" stamp.
func Generate(sessions []*memory.StructuredSession, prevContext string, now time.Time) *Artifacts {
	ordered := make([]*memory.StructuredSession, len(sessions))
	copy(ordered, sessions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.After(ordered[j].Timestamp)
	})

	return &Artifacts{
		CurrentContext: generateContext(ordered, prevContext, now),
		FullHistory:    generateHistory(ordered, now),
	}
}

func generateContext(newestFirst []*memory.StructuredSession, prevContext string, now time.Time) string {
	prev := parseSections(prevContext)

	var focus, attention, decisions, avoid, lessons []string
	for _, s := range newestFirst {
		if line := focusLine(s); line != "" {
			focus = append(focus, line)
		}
		if s.Status == memory.StatusBlocked {
			attention = append(attention, attentionLine(s))
		}
		for _, d := range s.Decisions {
			decisions = append(decisions, fmt.Sprintf("**%s**: %s", d.Title, d.What))
		}
		for _, f := range s.Failures {
			avoid = append(avoid, avoidLine(f))
		}
		for _, l := range s.Lessons {
			lessons = append(lessons, fmt.Sprintf("**%s**: %s", l.Title, l.Lesson))
		}
	}

	var sb strings.Builder
	sb.WriteString("# Team Context\n\n")
	fmt.Fprintf(&sb, "_Last synced: %s_\n", now.UTC().Format(time.RFC3339))

	writeSection(&sb, headerFocus, mergeBullets(nil, focus))
	writeSection(&sb, headerAttention, mergeBullets(nil, attention))
	writeSection(&sb, headerDecisions, mergeBullets(nil, decisions))
	// Failures and lessons keep hand-edited bullets from the previous run.
	writeSection(&sb, headerAvoid, mergeBullets(prev[headerAvoid], avoid))
	writeSection(&sb, headerLessons, mergeBullets(prev[headerLessons], lessons))

	for _, section := range unknownSections(prevContext) {
		sb.WriteString("\n" + section.header + "\n\n")
		sb.WriteString(section.body)
		if !strings.HasSuffix(section.body, "\n") {
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func focusLine(s *memory.StructuredSession) string {
	title := s.Title
	if title == "" {
		title = s.ShortSummary
	}
	if title == "" {
		return ""
	}
	if s.NextSteps != "" {
		return fmt.Sprintf("%s — next: %s", title, s.NextSteps)
	}
	return title
}

func attentionLine(s *memory.StructuredSession) string {
	title := s.Title
	if title == "" {
		title = s.ShortSummary
	}
	if s.BlockedBy != "" {
		return fmt.Sprintf("%s — blocked by %s", title, s.BlockedBy)
	}
	return fmt.Sprintf("%s — blocked", title)
}

func avoidLine(f memory.Failure) string {
	detail := f.RootCause
	if detail == "" {
		detail = f.WhatHappened
	}
	if detail == "" {
		return fmt.Sprintf("**%s**", f.Title)
	}
	return fmt.Sprintf("**%s**: %s", f.Title, detail)
}

// mergeBullets combines previous (hand-edited) bullets with newly generated
// ones, deduplicated, bounded at maxSectionBullets. New bullets are listed
// first and previous ones count as oldest, so trimming drops them first.
func mergeBullets(previous, generated []string) []string {
	seen := make(map[string]bool)
	var merged []string
	for _, bullet := range append(append([]string{}, generated...), previous...) {
		bullet = strings.TrimSpace(bullet)
		if bullet == "" || seen[bullet] {
			continue
		}
		seen[bullet] = true
		merged = append(merged, bullet)
	}
	if len(merged) > maxSectionBullets {
		merged = merged[:maxSectionBullets]
	}
	return merged
}

func writeSection(sb *strings.Builder, header string, bullets []string) {
	if len(bullets) == 0 {
		return
	}
	sb.WriteString("\n" + header + "\n\n")
	for _, bullet := range bullets {
		fmt.Fprintf(sb, "- %s\n", bullet)
	}
}

func generateHistory(newestFirst []*memory.StructuredSession, now time.Time) string {
	var sb strings.Builder
	sb.WriteString("# Team History\n\n")
	fmt.Fprintf(&sb, "_Last synced: %s_\n", now.UTC().Format(time.RFC3339))

	writeDecisionHistory(&sb, newestFirst)
	writeFailureHistory(&sb, newestFirst)
	writePatternHistory(&sb, newestFirst)
	writeTimeline(&sb, newestFirst)

	return sb.String()
}

func writeDecisionHistory(sb *strings.Builder, newestFirst []*memory.StructuredSession) {
	var blocks []string
	for _, s := range newestFirst {
		for _, d := range s.Decisions {
			var b strings.Builder
			fmt.Fprintf(&b, "### %s%s\n", d.Title, dateSuffix(s.Timestamp))
			writeHistoryField(&b, "What", d.What)
			writeHistoryField(&b, "Why", d.Why)
			writeHistoryField(&b, "Alternatives", strings.Join(d.Alternatives, "; "))
			writeHistoryField(&b, "Confidence", string(d.Confidence))
			blocks = append(blocks, b.String())
		}
	}
	writeHistorySection(sb, "## Decisions", blocks)
}

func writeFailureHistory(sb *strings.Builder, newestFirst []*memory.StructuredSession) {
	var blocks []string
	for _, s := range newestFirst {
		for _, f := range s.Failures {
			var b strings.Builder
			fmt.Fprintf(&b, "### %s%s\n", f.Title, dateSuffix(s.Timestamp))
			writeHistoryField(&b, "What Tried", f.WhatTried)
			writeHistoryField(&b, "What Happened", f.WhatHappened)
			writeHistoryField(&b, "Root Cause", f.RootCause)
			if f.MinutesLost > 0 {
				writeHistoryField(&b, "Minutes Lost", fmt.Sprintf("%d", f.MinutesLost))
			}
			writeHistoryField(&b, "Resolution", f.Resolution)
			blocks = append(blocks, b.String())
		}
	}
	writeHistorySection(sb, "## Failures", blocks)
}

func writePatternHistory(sb *strings.Builder, newestFirst []*memory.StructuredSession) {
	var blocks []string
	for _, s := range newestFirst {
		for _, p := range s.PromptPatterns {
			var b strings.Builder
			fmt.Fprintf(&b, "### %s%s\n", p.Title, dateSuffix(s.Timestamp))
			writeHistoryField(&b, "Prompt", p.Prompt)
			writeHistoryField(&b, "Why Effective", p.WhyEffective)
			writeHistoryField(&b, "When To Use", p.WhenToUse)
			blocks = append(blocks, b.String())
		}
	}
	writeHistorySection(sb, "## Prompt Patterns", blocks)
}

// writeTimeline groups sessions under month headings, most recent six
// months, at most five entries per month, newest first within each month.
func writeTimeline(sb *strings.Builder, newestFirst []*memory.StructuredSession) {
	type monthGroup struct {
		key     string
		entries []string
	}

	var months []monthGroup
	index := make(map[string]int)
	for _, s := range newestFirst {
		if s.Timestamp.IsZero() {
			continue
		}
		key := s.Timestamp.UTC().Format("2006-01")
		i, ok := index[key]
		if !ok {
			if len(months) == timelineMonths {
				continue
			}
			index[key] = len(months)
			i = len(months)
			months = append(months, monthGroup{key: key})
		}
		if len(months[i].entries) == timelinePerMonth {
			continue
		}
		months[i].entries = append(months[i].entries, timelineEntry(s))
	}

	if len(months) == 0 {
		return
	}
	sb.WriteString("\n## Timeline\n")
	for _, month := range months {
		fmt.Fprintf(sb, "\n### %s\n\n", month.key)
		for _, entry := range month.entries {
			fmt.Fprintf(sb, "- %s\n", entry)
		}
	}
}

func timelineEntry(s *memory.StructuredSession) string {
	title := s.Title
	if title == "" {
		title = "Session"
	}
	var parts []string
	parts = append(parts, fmt.Sprintf("%s: %s", s.Timestamp.UTC().Format("02"), title))
	if s.Author != "" {
		parts = append(parts, fmt.Sprintf("(%s)", s.Author))
	}
	if s.ShortSummary != "" {
		parts = append(parts, "— "+s.ShortSummary)
	}
	return strings.Join(parts, " ")
}

func writeHistorySection(sb *strings.Builder, header string, blocks []string) {
	if len(blocks) == 0 {
		return
	}
	sb.WriteString("\n" + header + "\n")
	for _, block := range blocks {
		sb.WriteString("\n" + block)
	}
}

func writeHistoryField(sb *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(sb, "**%s:** %s\n", label, value)
}

func dateSuffix(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return " — " + ts.UTC().Format("2006-01-02")
}

type contextSection struct {
	header string
	body   string
}

// parseSections splits a context artifact into its `## `-headed sections.
func parseSections(content string) map[string][]string {
	sections := make(map[string][]string)
	for _, section := range splitSections(content) {
		var bullets []string
		for _, line := range strings.Split(section.body, "\n") {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "- ") {
				bullets = append(bullets, strings.TrimPrefix(line, "- "))
			}
		}
		sections[section.header] = bullets
	}
	return sections
}

// unknownSections returns previous sections whose headers the generator does
// not own, preserved verbatim across regeneration.
func unknownSections(content string) []contextSection {
	known := map[string]bool{
		headerFocus:     true,
		headerAttention: true,
		headerDecisions: true,
		headerAvoid:     true,
		headerLessons:   true,
	}
	var out []contextSection
	for _, section := range splitSections(content) {
		if !known[section.header] {
			out = append(out, section)
		}
	}
	return out
}

func splitSections(content string) []contextSection {
	var sections []contextSection
	lines := strings.Split(content, "\n")
	var current *contextSection
	for _, line := range lines {
		if strings.HasPrefix(line, "## ") {
			if current != nil {
				sections = append(sections, *current)
			}
			current = &contextSection{header: strings.TrimSpace(line)}
			continue
		}
		if current != nil {
			current.body += line + "\n"
		}
	}
	if current != nil {
		sections = append(sections, *current)
	}
	for i := range sections {
		sections[i].body = strings.Trim(sections[i].body, "\n") + "\n"
	}
	return sections
}
