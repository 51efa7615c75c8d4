package workspace

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reelgrab/pkg/errors"
)

func TestManagerCreate(t *testing.T) {
	tempDir := t.TempDir()

	manager := NewManager(tempDir, "session_")

	// Before Create there is no current session.
	if got := manager.Current(); got != "" {
		t.Errorf("Expected empty current before Create, got %q", got)
	}

	path, err := manager.Create()
	if err != nil {
		t.Fatalf("Failed to create session directory: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Session directory was not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("Expected session path to be a directory")
	}

	name := filepath.Base(path)
	if !strings.HasPrefix(name, "session_") {
		t.Errorf("Expected session_ prefix, got %q", name)
	}
	// The timestamp suffix is second-granularity: YYYYMMDD_HHMMSS.
	if len(name) != len("session_")+len("20060102_150405") {
		t.Errorf("Unexpected session name length: %q", name)
	}

	if got := manager.Current(); got != path {
		t.Errorf("Current() = %q, want %q", got, path)
	}
}

func TestManagerCreateIdempotent(t *testing.T) {
	tempDir := t.TempDir()

	fixed := time.Date(2025, 1, 14, 15, 30, 42, 0, time.UTC)

	manager := NewManager(tempDir, "session_")
	manager.now = func() time.Time { return fixed }

	first, err := manager.Create()
	if err != nil {
		t.Fatalf("First Create failed: %v", err)
	}

	second, err := manager.Create()
	if err != nil {
		t.Fatalf("Second Create failed: %v", err)
	}
	if first != second {
		t.Errorf("Expected same path on repeat Create, got %q then %q", first, second)
	}

	expected := filepath.Join(tempDir, "session_20250114_153042")
	if first != expected {
		t.Errorf("Session path = %q, want %q", first, expected)
	}

	// A fresh manager hitting the same timestamp lands on the existing
	// directory without an error.
	other := NewManager(tempDir, "session_")
	other.now = func() time.Time { return fixed }

	third, err := other.Create()
	if err != nil {
		t.Fatalf("Create over existing directory failed: %v", err)
	}
	if third != expected {
		t.Errorf("Expected existing path %q, got %q", expected, third)
	}
}

func TestItemDir(t *testing.T) {
	tempDir := t.TempDir()

	manager := NewManager(tempDir, "session_")

	// ItemDir before Create is a workspace error.
	if _, err := manager.ItemDir(1); err == nil {
		t.Error("Expected error for ItemDir before Create")
	} else if !errors.IsWorkspaceError(err) {
		t.Errorf("Expected workspace error, got %v", err)
	}

	session, err := manager.Create()
	if err != nil {
		t.Fatalf("Failed to create session directory: %v", err)
	}

	dir, err := manager.ItemDir(3)
	if err != nil {
		t.Fatalf("Failed to create item directory: %v", err)
	}

	expected := filepath.Join(session, "item3")
	if dir != expected {
		t.Errorf("ItemDir(3) = %q, want %q", dir, expected)
	}

	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("Item directory was not created: %v", err)
	}

	// Creating the same item directory again is a no-op.
	again, err := manager.ItemDir(3)
	if err != nil {
		t.Fatalf("Repeat ItemDir failed: %v", err)
	}
	if again != dir {
		t.Errorf("Expected same path on repeat ItemDir, got %q", again)
	}
}

func TestArtifactNames(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{VideoName(1, "mp4"), "video1.mp4"},
		{VideoName(2, ".webm"), "video2.webm"},
		{VideoName(3, ""), "video3.mp4"},
		{ThumbnailName(1), "thumbnail1.jpg"},
		{AudioName(4), "audio4.mp3"},
		{CaptionName(2), "caption2.txt"},
		{TranscriptName(7), "transcript7.txt"},
		{ItemDirName(12), "item12"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("Got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestWriteText(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "caption1.txt")

	if err := WriteText(path, "hello caption"); err != nil {
		t.Fatalf("Failed to write text: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read written file: %v", err)
	}
	if string(content) != "hello caption" {
		t.Errorf("File content = %q, want %q", content, "hello caption")
	}

	// No temporary file may survive the rename.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("Temporary file left behind after write")
	}

	// Overwriting replaces the content atomically.
	if err := WriteText(path, "replaced"); err != nil {
		t.Fatalf("Failed to overwrite: %v", err)
	}
	content, _ = os.ReadFile(path)
	if string(content) != "replaced" {
		t.Errorf("File content after overwrite = %q, want %q", content, "replaced")
	}
}

func TestWriteFile(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "video1.mp4")

	data := []byte("fake video bytes")
	if err := WriteFile(path, bytes.NewReader(data)); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read written file: %v", err)
	}
	if !bytes.Equal(content, data) {
		t.Error("File content does not match written data")
	}
}

func TestWriteFileErrorType(t *testing.T) {
	// Writing into a directory that does not exist fails with a workspace
	// typed error.
	err := WriteText(filepath.Join(t.TempDir(), "missing", "caption1.txt"), "x")
	if err == nil {
		t.Fatal("Expected error writing into missing directory")
	}
	if !errors.IsWorkspaceError(err) {
		t.Errorf("Expected workspace error, got %v", err)
	}
}
