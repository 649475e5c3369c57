package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// File permissions
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)

// Layout constants
const (
	TranscriptExtension = ".txt"
	SummarySuffix       = "_summary.txt"
	ScratchDirName      = ".scratch"

	// FallbackLabel is used when sanitization leaves nothing of a label
	FallbackLabel = "untitled"
)

// DefaultScratchMaxFiles is the number of scratch entries tolerated before
// cleanup removes them
const DefaultScratchMaxFiles = 10

// ErrNotFound is returned when a requested artifact does not exist
var ErrNotFound = errors.New("artifact not found")

// illegal path-component characters, plus control characters stripped below
const illegalChars = `/\:*?"<>|`

// Store is the filesystem-backed record of per-label pipeline output.
// Layout: <root>/<sanitized-label>/<sanitized-label>.txt for transcripts,
// <root>/<sanitized-label>/<sanitized-label>_summary.txt for summaries.
// Intermediate downloads live under <root>/.scratch and are subject to
// cleanup; per-label folders are durable.
type Store struct {
	root       string
	scratchMax int
	log        *logrus.Entry
}

// LabelStatus describes one label folder and which artifacts it holds
type LabelStatus struct {
	Label         string
	HasTranscript bool
	HasSummary    bool
}

// New creates a store rooted at dir, creating the root and scratch
// directories if needed
func New(dir string, scratchMax int, log *logrus.Entry) (*Store, error) {
	if scratchMax <= 0 {
		scratchMax = DefaultScratchMaxFiles
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve store root: %w", err)
	}
	s := &Store{root: abs, scratchMax: scratchMax, log: log}
	if err := os.MkdirAll(s.ScratchDir(), DefaultDirPermissions); err != nil {
		return nil, fmt.Errorf("create store directories: %w", err)
	}
	return s, nil
}

// Root returns the absolute path of the output root
func (s *Store) Root() string {
	return s.root
}

// ScratchDir returns the directory for intermediate download artifacts
func (s *Store) ScratchDir() string {
	return filepath.Join(s.root, ScratchDirName)
}

// Sanitize converts a label into a filesystem-safe path component.
// It strips characters illegal in path components, collapses whitespace
// runs to a single space and trims leading/trailing dots and spaces.
// Sanitize is deterministic and idempotent.
func Sanitize(label string) string {
	var b strings.Builder
	for _, r := range label {
		if r < 0x20 || strings.ContainsRune(illegalChars, r) {
			continue
		}
		b.WriteRune(r)
	}
	cleaned := strings.Join(strings.Fields(b.String()), " ")
	cleaned = strings.Trim(cleaned, ". ")
	if cleaned == "" {
		return FallbackLabel
	}
	return cleaned
}

// labelDir returns the artifact folder for a label
func (s *Store) labelDir(label string) string {
	return filepath.Join(s.root, Sanitize(label))
}

// TranscriptPath returns the path a transcript for label is persisted at
func (s *Store) TranscriptPath(label string) string {
	san := Sanitize(label)
	return filepath.Join(s.root, san, san+TranscriptExtension)
}

// SummaryPath returns the path a summary for label is persisted at
func (s *Store) SummaryPath(label string) string {
	san := Sanitize(label)
	return filepath.Join(s.root, san, san+SummarySuffix)
}

// HasTranscript reports whether a transcript exists for label
func (s *Store) HasTranscript(label string) bool {
	return fileExists(s.TranscriptPath(label))
}

// HasSummary reports whether a summary exists for label
func (s *Store) HasSummary(label string) bool {
	return fileExists(s.SummaryPath(label))
}

// WriteTranscript persists the transcript for label, creating the label
// folder if needed. The write is atomic: no partial file becomes visible.
func (s *Store) WriteTranscript(label, text string) error {
	return s.writeAtomic(s.TranscriptPath(label), []byte(text))
}

// WriteSummary persists the summary for label
func (s *Store) WriteSummary(label, text string) error {
	return s.writeAtomic(s.SummaryPath(label), []byte(text))
}

// ReadTranscript returns the persisted transcript for label, or ErrNotFound
func (s *Store) ReadTranscript(label string) (string, error) {
	data, err := os.ReadFile(s.TranscriptPath(label))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("transcript for %q: %w", label, ErrNotFound)
		}
		return "", fmt.Errorf("read transcript for %q: %w", label, err)
	}
	return string(data), nil
}

// ListLabels returns the status of every label folder, sorted by label
func (s *Store) ListLabels() ([]LabelStatus, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list store root: %w", err)
	}

	statuses := make([]LabelStatus, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		statuses = append(statuses, LabelStatus{
			Label:         name,
			HasTranscript: s.HasTranscript(name),
			HasSummary:    s.HasSummary(name),
		})
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Label < statuses[j].Label
	})
	return statuses, nil
}

// AdoptMedia moves intermediate media files into the label's artifact
// folder, renaming them after the sanitized label. Missing sources are
// skipped; adoption is best effort and only returns the first hard error.
func (s *Store) AdoptMedia(label string, paths ...string) error {
	dir := s.labelDir(label)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		return fmt.Errorf("create artifact folder for %q: %w", label, err)
	}

	san := Sanitize(label)
	for _, src := range paths {
		if src == "" || !fileExists(src) {
			continue
		}
		dst := filepath.Join(dir, san+strings.ToLower(filepath.Ext(src)))
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("adopt %s for %q: %w", filepath.Base(src), label, err)
		}
	}
	return nil
}

// CleanupScratch removes intermediate files once more than scratchMax
// entries have accumulated. It never removes an entry that holds a
// persisted transcript or summary.
func (s *Store) CleanupScratch() error {
	scratch := s.ScratchDir()
	entries, err := os.ReadDir(scratch)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("list scratch: %w", err)
	}

	if len(entries) <= s.scratchMax {
		return nil
	}

	removed := 0
	for _, entry := range entries {
		path := filepath.Join(scratch, entry.Name())
		if holdsPersistedArtifacts(path) {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("remove scratch entry %s: %w", entry.Name(), err)
		}
		removed++
	}

	if s.log != nil {
		s.log.WithFields(logrus.Fields{"removed": removed, "threshold": s.scratchMax}).
			Debug("scratch cleanup finished")
	}
	return nil
}

// writeAtomic writes data to a temporary file in the destination directory
// and renames it into place
func (s *Store) writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		return fmt.Errorf("create artifact folder: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmpName, DefaultFilePermissions); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into place %s: %w", filepath.Base(path), err)
	}
	return nil
}

// holdsPersistedArtifacts reports whether path is, or contains, a
// transcript or summary file
func holdsPersistedArtifacts(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if !info.IsDir() {
		return strings.HasSuffix(path, TranscriptExtension)
	}

	found := false
	filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(p, TranscriptExtension) {
			found = true
		}
		return nil
	})
	return found
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
