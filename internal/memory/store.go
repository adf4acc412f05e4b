package memory

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/recallhq/recall/internal/envelope"
	"github.com/recallhq/recall/internal/keys"
	"github.com/recallhq/recall/internal/logging"
)

// Artifact names accepted by ReadArtifact/WriteArtifact.
const (
	ArtifactContext = "context"
	ArtifactHistory = "history"
)

const (
	sessionsDir = "sessions"
	encSuffix   = ".enc"
)

// Store owns the on-disk layout of one team memory directory: the sessions/
// tree, the two derived artifacts, and the event log. All content passes
// through the envelope codec when a team key is present; without a key the
// store reads and writes plaintext (free tier and legacy repositories).
type Store struct {
	root string
	key  *keys.TeamKey

	mu        sync.Mutex
	rotatedTo int
}

// NewStore creates a Store rooted at dir. A nil key selects plaintext mode.
func NewStore(dir string, key *keys.TeamKey) *Store {
	return &Store{root: dir, key: key}
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// Encrypted reports whether the store writes envelopes.
func (s *Store) Encrypted() bool {
	return s.key != nil
}

// IsEncrypted reports whether raw file content is an envelope. Anything else
// is treated as legacy plaintext and returned as-is by the read path.
func IsEncrypted(raw string) bool {
	return envelope.IsEnvelope(raw)
}

// MarkRotated tells the store the team key has rotated to newVersion.
// Writes under an older key version are refused until the caller resolves
// the new key; the store never re-encrypts implicitly.
func (s *Store) MarkRotated(newVersion int) {
	s.mu.Lock()
	if newVersion > s.rotatedTo {
		s.rotatedTo = newVersion
	}
	s.mu.Unlock()
}

func (s *Store) checkWritable() error {
	if s.key == nil {
		return nil
	}
	s.mu.Lock()
	rotatedTo := s.rotatedTo
	s.mu.Unlock()
	if rotatedTo > s.key.Version {
		return &StaleKeyError{HaveVersion: s.key.Version, WantVersion: rotatedTo}
	}
	return nil
}

// WriteSession encrypts and writes one session record, returning the path
// relative to the store root. The path is derived from the record's
// timestamp and author; a collision in the same minute gets a numeric
// suffix instead of overwriting.
func (s *Store) WriteSession(rec *SessionRecord) (string, error) {
	if err := s.checkWritable(); err != nil {
		return "", err
	}

	ts := rec.Timestamp.UTC()
	base := filepath.Join(
		sessionsDir,
		ts.Format("2006-01"),
		sanitizePathSegment(rec.Author),
		ts.Format("02-1504"),
	)

	relPath := s.probeSessionPath(base)
	data, err := s.encode(rec.Content)
	if err != nil {
		return "", err
	}

	absPath := filepath.Join(s.root, relPath)
	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := writeFileAtomic(absPath, []byte(data)); err != nil {
		return "", fmt.Errorf("failed to write session: %w", err)
	}

	logging.Debug("wrote session %s", relPath)
	return relPath, nil
}

// probeSessionPath finds an unused filename for the minute slot, appending
// -2, -3, ... when two sessions by the same author land in the same minute.
func (s *Store) probeSessionPath(base string) string {
	candidate := base
	for n := 2; ; n++ {
		rel := candidate + ".md" + s.writeSuffix()
		if !s.sessionExists(candidate) {
			return rel
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

// sessionExists checks both the encrypted and plaintext variant of a slot.
func (s *Store) sessionExists(base string) bool {
	for _, suffix := range []string{".md", ".md" + encSuffix} {
		if _, err := os.Stat(filepath.Join(s.root, base+suffix)); err == nil {
			return true
		}
	}
	return false
}

func (s *Store) writeSuffix() string {
	if s.key != nil {
		return encSuffix
	}
	return ""
}

// ReadSession reads and decrypts one session by its store-relative path.
func (s *Store) ReadSession(relPath string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(s.root, relPath))
	if err != nil {
		if os.IsNotExist(err) {
			return "", &NotFoundError{Path: relPath}
		}
		return "", fmt.Errorf("failed to read session %s: %w", relPath, err)
	}
	return s.decode(string(raw))
}

// EachSession streams session entries to fn without loading file contents.
// Iteration is restartable; returning an error from fn stops the walk.
func (s *Store) EachSession(fn func(SessionEntry) error) error {
	dir := filepath.Join(s.root, sessionsDir)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isSessionFile(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		return fn(SessionEntry{Path: filepath.ToSlash(rel), ModTime: info.ModTime()})
	})
}

// ListSessions reads every stored session, newest-first by modification
// time. A session that fails to decrypt is skipped with a warning; one bad
// file never aborts enumeration of the rest.
func (s *Store) ListSessions() ([]SessionFile, error) {
	var entries []SessionEntry
	err := s.EachSession(func(entry SessionEntry) error {
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate sessions: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ModTime.After(entries[j].ModTime)
	})

	files := make([]SessionFile, 0, len(entries))
	for _, entry := range entries {
		content, err := s.ReadSession(entry.Path)
		if err != nil {
			logging.Warn("skipping unreadable session %s: %v", entry.Path, err)
			continue
		}
		files = append(files, SessionFile{
			Path:    entry.Path,
			ModTime: entry.ModTime,
			Content: content,
		})
	}
	return files, nil
}

// ReadArtifact reads a derived artifact (context or history). A missing
// artifact is NotFoundError; an artifact that exists but cannot be decoded
// is CorruptArtifactError, never silently "no artifact".
func (s *Store) ReadArtifact(name string) (string, error) {
	if err := validArtifact(name); err != nil {
		return "", err
	}

	for _, suffix := range []string{".md" + encSuffix, ".md"} {
		path := filepath.Join(s.root, name+suffix)
		raw, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to read artifact %s: %w", name, err)
		}
		content, err := s.decode(string(raw))
		if err != nil {
			return "", &CorruptArtifactError{Name: name, Err: err}
		}
		return content, nil
	}
	return "", &NotFoundError{Path: name + ".md"}
}

// WriteArtifact fully replaces an artifact's content. The variant with the
// other encryption mode is removed so a stale copy cannot shadow the write.
func (s *Store) WriteArtifact(name, content string) error {
	if err := validArtifact(name); err != nil {
		return err
	}
	if err := s.checkWritable(); err != nil {
		return err
	}

	data, err := s.encode(content)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.root, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	path := filepath.Join(s.root, name+".md"+s.writeSuffix())
	if err := writeFileAtomic(path, []byte(data)); err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", name, err)
	}

	var stale string
	if s.key != nil {
		stale = filepath.Join(s.root, name+".md")
	} else {
		stale = filepath.Join(s.root, name+".md"+encSuffix)
	}
	if err := os.Remove(stale); err != nil && !os.IsNotExist(err) {
		logging.Warn("failed to remove stale artifact variant %s: %v", stale, err)
	}
	return nil
}

// RemoveSession deletes one stored session. A session that is already gone
// is not an error; re-import replacement races with nothing.
func (s *Store) RemoveSession(relPath string) error {
	if !isSessionFile(filepath.Base(relPath)) {
		return fmt.Errorf("not a session file: %s", relPath)
	}
	if err := os.Remove(filepath.Join(s.root, relPath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session %s: %w", relPath, err)
	}
	return nil
}

// ReencryptSessions rewrites every stored file encrypted under oldKey with
// the store's current key. Rotation never does this implicitly; it is an
// explicit migration step. Returns the number of rewritten files.
func (s *Store) ReencryptSessions(oldKey []byte) (int, error) {
	if s.key == nil {
		return 0, fmt.Errorf("store has no key; nothing to re-encrypt with")
	}
	if err := s.checkWritable(); err != nil {
		return 0, err
	}

	var paths []string
	err := s.EachSession(func(entry SessionEntry) error {
		paths = append(paths, entry.Path)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to enumerate sessions: %w", err)
	}
	for _, name := range []string{ArtifactContext, ArtifactHistory} {
		paths = append(paths, name+".md"+encSuffix)
	}
	paths = append(paths, eventsFile+encSuffix)

	count := 0
	for _, rel := range paths {
		abs := filepath.Join(s.root, rel)
		raw, err := os.ReadFile(abs)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return count, fmt.Errorf("failed to read %s: %w", rel, err)
		}
		if !envelope.IsEnvelope(string(raw)) {
			continue
		}

		plaintext, err := envelope.Decrypt(string(raw), oldKey)
		if err != nil {
			logging.Warn("skipping %s: not decryptable with the previous key: %v", rel, err)
			continue
		}
		sealed, err := envelope.Encrypt(plaintext, s.key.Material)
		if err != nil {
			return count, fmt.Errorf("failed to re-encrypt %s: %w", rel, err)
		}
		if err := writeFileAtomic(abs, []byte(sealed)); err != nil {
			return count, fmt.Errorf("failed to rewrite %s: %w", rel, err)
		}
		count++
	}
	return count, nil
}

// encode seals content when a key is present, otherwise passes it through.
func (s *Store) encode(content string) (string, error) {
	if s.key == nil {
		return content, nil
	}
	sealed, err := envelope.Encrypt([]byte(content), s.key.Material)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt: %w", err)
	}
	return sealed, nil
}

// decode decrypts envelopes and passes legacy plaintext through unchanged.
func (s *Store) decode(raw string) (string, error) {
	if !envelope.IsEnvelope(raw) {
		return raw, nil
	}
	if s.key == nil {
		return "", fmt.Errorf("file is encrypted but no team key is available")
	}
	plaintext, err := envelope.Decrypt(raw, s.key.Material)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func validArtifact(name string) error {
	switch name {
	case ArtifactContext, ArtifactHistory:
		return nil
	default:
		return fmt.Errorf("unknown artifact %q (want %q or %q)", name, ArtifactContext, ArtifactHistory)
	}
}

func isSessionFile(name string) bool {
	return strings.HasSuffix(name, ".md") || strings.HasSuffix(name, ".md"+encSuffix)
}

// sanitizePathSegment makes an author identifier safe as a directory name.
func sanitizePathSegment(segment string) string {
	if segment == "" {
		return "unknown"
	}
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", " ", "-")
	return replacer.Replace(segment)
}

// writeFileAtomic writes via a temp file and rename so readers never see a
// partial file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".recall-tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
