// Package importer drives the save/import pipeline: parse a transcript,
// derive a structured session, persist it, and regenerate the derived
// artifacts. It is the layer the CLI calls into.
package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/recallhq/recall/internal/extract"
	"github.com/recallhq/recall/internal/logging"
	"github.com/recallhq/recall/internal/memory"
	"github.com/recallhq/recall/internal/snapshot"
	"github.com/recallhq/recall/internal/summarize"
	"github.com/recallhq/recall/internal/tracker"
	"github.com/recallhq/recall/internal/transcript"
)

// Importer owns one import/save invocation against a store.
type Importer struct {
	Store      *memory.Store
	Summarizer *summarize.Client
	Author     string
	Tool       string

	// Now is the clock for "last synced" stamps; tests pin it.
	Now func() time.Time
}

// Result reports what one import invocation did.
type Result struct {
	MessageCount int
	SessionPaths []string
	Skipped      int
}

func (im *Importer) now() time.Time {
	if im.Now != nil {
		return im.Now()
	}
	return time.Now().UTC()
}

// ImportFiles imports the given transcript files oldest-to-newest by
// modification time, skipping files the tracker has already seen at their
// current mtime. The tracker update is serialized behind the store lock.
func (im *Importer) ImportFiles(ctx context.Context, paths []string) (*Result, error) {
	lock, err := tracker.Acquire(im.Store.Root())
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	track, err := tracker.Load(im.Store.Root())
	if err != nil {
		return nil, err
	}

	type source struct {
		path    string
		modTime time.Time
	}
	var sources []source
	result := &Result{}
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		name := filepath.Base(path)
		if !track.ShouldImport(name, info.ModTime()) {
			logging.Debug("skipping already-imported %s", name)
			result.Skipped++
			continue
		}
		sources = append(sources, source{path: path, modTime: info.ModTime()})
	}

	// Oldest first so the derived artifacts reflect chronological order.
	sort.Slice(sources, func(i, j int) bool {
		return sources[i].modTime.Before(sources[j].modTime)
	})

	for _, src := range sources {
		f, err := os.Open(src.path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", src.path, err)
		}
		parsed, err := transcript.Parse(f)
		_ = f.Close()
		if err != nil {
			return nil, err
		}
		result.MessageCount += parsed.MessageCount()

		path, err := im.saveTranscript(ctx, parsed, src.modTime)
		if err != nil {
			return nil, err
		}
		name := filepath.Base(src.path)
		if path != "" {
			result.SessionPaths = append(result.SessionPaths, path)
			if err := im.replacePrior(track, name, path); err != nil {
				return nil, err
			}
		}
		track.RecordImport(name, src.modTime, path)
	}

	if err := track.Save(im.Store.Root()); err != nil {
		return nil, err
	}

	if len(result.SessionPaths) > 0 {
		if err := im.Regenerate(); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// ImportCursor imports every conversation from a Cursor globalStorage
// database, deduplicated by conversation ID and update time.
func (im *Importer) ImportCursor(ctx context.Context, dbPath string) (*Result, error) {
	lock, err := tracker.Acquire(im.Store.Root())
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	track, err := tracker.Load(im.Store.Root())
	if err != nil {
		return nil, err
	}

	sessions, err := transcript.LoadCursorSessions(dbPath)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, session := range sessions { // already oldest-to-newest
		name := "cursor:" + session.ID
		if !track.ShouldImport(name, session.UpdatedAt) {
			result.Skipped++
			continue
		}
		result.MessageCount += session.Transcript.MessageCount()

		path, err := im.saveTranscript(ctx, session.Transcript, session.UpdatedAt)
		if err != nil {
			return nil, err
		}
		if path != "" {
			result.SessionPaths = append(result.SessionPaths, path)
			if err := im.replacePrior(track, name, path); err != nil {
				return nil, err
			}
		}
		track.RecordImport(name, session.UpdatedAt, path)
	}

	if err := track.Save(im.Store.Root()); err != nil {
		return nil, err
	}
	if len(result.SessionPaths) > 0 {
		if err := im.Regenerate(); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// replacePrior removes the session a source produced on an earlier import.
// A touched source regenerates its record instead of accumulating copies.
func (im *Importer) replacePrior(track *tracker.Tracker, name, newPath string) error {
	prev, ok := track.Find(name)
	if !ok || prev.Path == "" || prev.Path == newPath {
		return nil
	}
	return im.Store.RemoveSession(prev.Path)
}

// saveTranscript derives a structured session from a parsed transcript and
// persists it. A transcript with nothing to keep saves nothing.
func (im *Importer) saveTranscript(ctx context.Context, parsed *transcript.Transcript, ts time.Time) (string, error) {
	rendered := parsed.Render()

	// Tagged sections in the transcript win over generated summaries.
	session := extract.Extract(rendered)
	if session == nil || session.IsEmpty() {
		session = im.Summarizer.Summarize(ctx, parsed)
	}
	if session == nil || session.IsEmpty() {
		return "", nil
	}

	return im.saveStructured(session, ts)
}

// SaveMarkdown persists session markdown supplied by the caller (a manual
// save rather than a transcript import).
func (im *Importer) SaveMarkdown(markdown string) (string, error) {
	session := extract.Extract(markdown)
	if session == nil || session.IsEmpty() {
		return "", errors.New("nothing to save: no tagged sections or summary found")
	}
	path, err := im.saveStructured(session, im.now())
	if err != nil {
		return "", err
	}
	if err := im.Regenerate(); err != nil {
		return "", err
	}
	return path, nil
}

func (im *Importer) saveStructured(session *memory.StructuredSession, ts time.Time) (string, error) {
	if session.Author == "" {
		session.Author = im.Author
	}
	if session.Tool == "" {
		session.Tool = im.Tool
	}
	if session.Timestamp.IsZero() {
		session.Timestamp = ts.UTC()
	}

	path, err := im.Store.WriteSession(session.ToRecord())
	if err != nil {
		return "", err
	}

	event := memory.Event{
		Timestamp: session.Timestamp,
		Kind:      memory.EventSession,
		Tool:      session.Tool,
		User:      session.Author,
		Summary:   eventSummary(session),
	}
	if err := im.Store.AppendEvent(event); err != nil {
		return "", err
	}
	return path, nil
}

func eventSummary(session *memory.StructuredSession) string {
	if session.Title != "" {
		return session.Title
	}
	return session.ShortSummary
}

// Regenerate rebuilds both artifacts from every stored session. Hand-edited
// bullets in the existing current-context artifact are carried forward; a
// corrupt artifact aborts rather than being silently regenerated over.
func (im *Importer) Regenerate() error {
	files, err := im.Store.ListSessions()
	if err != nil {
		return err
	}

	var sessions []*memory.StructuredSession
	for _, file := range files {
		session := extract.Extract(file.Content)
		if session == nil {
			continue
		}
		if session.Timestamp.IsZero() {
			session.Timestamp = file.ModTime.UTC()
		}
		sessions = append(sessions, session)
	}

	prevContext, err := im.Store.ReadArtifact(memory.ArtifactContext)
	if err != nil {
		var notFound *memory.NotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
		prevContext = ""
	}

	artifacts := snapshot.Generate(sessions, prevContext, im.now())
	if err := im.Store.WriteArtifact(memory.ArtifactContext, artifacts.CurrentContext); err != nil {
		return err
	}
	return im.Store.WriteArtifact(memory.ArtifactHistory, artifacts.FullHistory)
}

// TokenEstimate is the advisory token count for artifact content:
// ceil(length / 4). Never used for a security or correctness decision.
func TokenEstimate(content string) int {
	return (len(content) + 3) / 4
}
