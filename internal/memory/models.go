package memory

import (
	"time"
)

// EventKind classifies a durable event.
type EventKind string

const (
	EventSession       EventKind = "session"
	EventDecision      EventKind = "decision"
	EventErrorResolved EventKind = "error-resolved"
)

// Event is a durable record of one observed happening.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"` // UTC
	Kind      EventKind `json:"kind"`
	Tool      string    `json:"tool,omitempty"`
	User      string    `json:"user,omitempty"`
	Summary   string    `json:"summary"`
	Files     []string  `json:"files,omitempty"`
}

// Confidence grades a decision.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Status describes where a session left off.
type Status string

const (
	StatusComplete   Status = "complete"
	StatusInProgress Status = "in-progress"
	StatusBlocked    Status = "blocked"
)

// Decision is one recorded choice and its reasoning.
type Decision struct {
	Title        string
	What         string
	Why          string
	Alternatives []string
	Confidence   Confidence
}

// Failure is one recorded dead end.
type Failure struct {
	Title        string
	WhatTried    string
	WhatHappened string
	RootCause    string
	MinutesLost  int
	Resolution   string
}

// Lesson is a rule of thumb derived from experience.
type Lesson struct {
	Title              string
	DerivedFromFailure string
	Lesson             string
	WhenApplies        string
}

// PromptPattern is a prompt that worked well enough to keep.
type PromptPattern struct {
	Title        string
	Prompt       string
	WhyEffective string
	WhenToUse    string
}

// StructuredSession is the typed decomposition of one session's narrative.
type StructuredSession struct {
	Title        string
	ShortSummary string
	LongSummary  string
	Status       Status
	NextSteps    string
	BlockedBy    string

	Decisions      []Decision
	Failures       []Failure
	Lessons        []Lesson
	PromptPatterns []PromptPattern

	// Provenance, used for session paths and the history timeline.
	Tool      string
	Author    string
	Timestamp time.Time
}

// IsEmpty reports whether the session carries nothing worth persisting.
// Empty sessions must never be written to the store.
func (s *StructuredSession) IsEmpty() bool {
	return s.ShortSummary == "" && s.LongSummary == "" &&
		len(s.Decisions) == 0 && len(s.Failures) == 0 &&
		len(s.Lessons) == 0 && len(s.PromptPatterns) == 0
}

// SessionRecord is one session file ready for the store: rendered markdown
// plus the metadata that determines its path.
type SessionRecord struct {
	Author    string
	Tool      string
	Timestamp time.Time
	Content   string
}

// SessionFile is one stored session as returned by ListSessions.
type SessionFile struct {
	Path    string // relative to the store root
	ModTime time.Time
	Content string
}

// SessionEntry describes one stored session file without loading it.
// EachSession streams these so large histories never sit in memory at once.
type SessionEntry struct {
	Path    string // relative to the store root
	ModTime time.Time
}
