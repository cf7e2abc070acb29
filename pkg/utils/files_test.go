package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewScratchUniquePaths(t *testing.T) {
	dir := t.TempDir()

	a, err := NewScratch(dir, "extract", "wav")
	if err != nil {
		t.Fatalf("NewScratch failed: %v", err)
	}
	b, err := NewScratch(dir, "extract", ".wav")
	if err != nil {
		t.Fatalf("NewScratch failed: %v", err)
	}

	if a.Path == b.Path {
		t.Fatalf("expected unique paths, both were %s", a.Path)
	}
	if filepath.Dir(a.Path) != dir {
		t.Errorf("scratch path %s not under %s", a.Path, dir)
	}
	if !strings.HasSuffix(a.Path, ".wav") || !strings.HasSuffix(b.Path, ".wav") {
		t.Errorf("expected .wav suffix, got %s and %s", a.Path, b.Path)
	}
}

func TestScratchRemoveIsIdempotent(t *testing.T) {
	s, err := NewScratch(t.TempDir(), "x", ".bin")
	if err != nil {
		t.Fatalf("NewScratch failed: %v", err)
	}
	if err := os.WriteFile(s.Path, []byte("data"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := s.Remove(); err != nil {
		t.Fatalf("first Remove failed: %v", err)
	}
	if err := s.Remove(); err != nil {
		t.Fatalf("second Remove should be a no-op, got %v", err)
	}
	if _, err := os.Stat(s.Path); !os.IsNotExist(err) {
		t.Error("scratch file still exists")
	}
}

func TestSaveUpload(t *testing.T) {
	dir := t.TempDir()

	s, err := SaveUpload(dir, "../../evil name.MP4", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("SaveUpload failed: %v", err)
	}
	defer s.Remove()

	if filepath.Dir(s.Path) != dir {
		t.Errorf("upload escaped scratch dir: %s", s.Path)
	}
	if filepath.Ext(s.Path) != ".MP4" {
		t.Errorf("expected original extension to be kept, got %s", s.Path)
	}
	got, err := os.ReadFile(s.Path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("unexpected content %q", got)
	}
}
