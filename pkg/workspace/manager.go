package workspace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"reelgrab/pkg/errors"
)

// timestampLayout is the second-granularity suffix appended to the session
// prefix. Two runs starting within the same second share a directory; that
// collision is accepted rather than papered over with random suffixes.
const timestampLayout = "20060102_150405"

// Manager allocates and tracks the session directory for a single run.
// Each run gets a fresh timestamped directory under the base directory,
// with one numbered item folder per downloaded post inside it.
type Manager struct {
	baseDir string
	prefix  string
	current string
	mu      sync.Mutex
	now     func() time.Time
}

// NewManager creates a workspace manager rooted at baseDir. Session
// directories are named prefix + timestamp.
func NewManager(baseDir, prefix string) *Manager {
	return &Manager{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

// Create allocates the session directory for this run and returns its path.
// The first call decides the name; subsequent calls return the same path
// without touching the filesystem again. Creating a directory that already
// exists on disk is a no-op, not an error.
func (m *Manager) Create() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != "" {
		return m.current, nil
	}

	name := m.prefix + m.now().Format(timestampLayout)
	path := filepath.Join(m.baseDir, name)

	if err := os.MkdirAll(path, 0755); err != nil {
		return "", errors.Wrap(errors.ErrorTypeWorkspace, "failed to create session directory", err)
	}

	m.current = path
	return path, nil
}

// Current returns the active session directory, or "" before Create.
func (m *Manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// ItemDir ensures the numbered item folder exists inside the current session
// directory and returns its path.
func (m *Manager) ItemDir(n int) (string, error) {
	m.mu.Lock()
	current := m.current
	m.mu.Unlock()

	if current == "" {
		return "", errors.New(errors.ErrorTypeWorkspace, "no active session directory")
	}
	return EnsureItemDir(current, n)
}

// ItemDirName returns the folder name for the nth item of a run.
func ItemDirName(n int) string {
	return fmt.Sprintf("item%d", n)
}

// EnsureItemDir creates sessionDir/item{n} if absent and returns its path.
// Engines call this directly so they stay usable without a Manager.
func EnsureItemDir(sessionDir string, n int) (string, error) {
	path := filepath.Join(sessionDir, ItemDirName(n))
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", errors.Wrap(errors.ErrorTypeWorkspace, "failed to create item directory", err)
	}
	return path, nil
}

// VideoName returns the contract filename for the nth video artifact.
// The extension may be given with or without a leading dot; empty defaults
// to mp4.
func VideoName(n int, ext string) string {
	if ext == "" {
		ext = "mp4"
	}
	ext = strings.TrimPrefix(ext, ".")
	return fmt.Sprintf("video%d.%s", n, ext)
}

// ThumbnailName returns the contract filename for the nth thumbnail.
func ThumbnailName(n int) string {
	return fmt.Sprintf("thumbnail%d.jpg", n)
}

// AudioName returns the contract filename for the nth extracted audio track.
func AudioName(n int) string {
	return fmt.Sprintf("audio%d.mp3", n)
}

// CaptionName returns the contract filename for the nth caption.
func CaptionName(n int) string {
	return fmt.Sprintf("caption%d.txt", n)
}

// TranscriptName returns the contract filename for the nth transcript.
func TranscriptName(n int) string {
	return fmt.Sprintf("transcript%d.txt", n)
}

// WriteText atomically writes text to path via a temporary file and rename,
// so a crash mid-write never leaves a truncated artifact behind.
func WriteText(path, text string) error {
	return WriteFile(path, strings.NewReader(text))
}

// WriteFile atomically writes the reader's contents to path.
func WriteFile(path string, r io.Reader) error {
	tempFile := path + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeWorkspace, "failed to create temporary file", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return errors.Wrap(errors.ErrorTypeWorkspace, "failed to write artifact data", err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return errors.Wrap(errors.ErrorTypeWorkspace, "failed to close artifact file", closeErr)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return errors.Wrap(errors.ErrorTypeWorkspace, "failed to rename temporary file", err)
	}

	return nil
}
