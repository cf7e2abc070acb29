package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MakeDir creates a directory with all parent directories
func MakeDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// MoveFile moves or renames a file
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to move file from %s to %s: %w", src, dst, err)
	}
	return nil
}

// Scratch is a request-scoped temporary file path. The file itself is created
// by whoever writes to Path; Remove deletes it if present and is safe to call
// more than once.
type Scratch struct {
	Path string
}

// NewScratch reserves a unique path under dir. The name is
// "<prefix>_<uuid><ext>" so concurrent processes never collide.
func NewScratch(dir, prefix, ext string) (*Scratch, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := MakeDir(dir); err != nil {
		return nil, fmt.Errorf("creating scratch dir: %w", err)
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	name := fmt.Sprintf("%s_%s%s", prefix, uuid.NewString(), ext)
	return &Scratch{Path: filepath.Join(dir, name)}, nil
}

// Remove deletes the scratch file. A missing file is not an error.
func (s *Scratch) Remove() error {
	if s == nil || s.Path == "" {
		return nil
	}
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// SaveUpload copies r into a new scratch file and returns it. The original
// file name only contributes its extension so ffprobe can sniff the container.
func SaveUpload(dir, originalName string, r io.Reader) (*Scratch, error) {
	s, err := NewScratch(dir, "upload", filepath.Ext(originalName))
	if err != nil {
		return nil, err
	}
	out, err := os.Create(s.Path)
	if err != nil {
		return nil, fmt.Errorf("creating upload file: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		s.Remove()
		return nil, fmt.Errorf("saving upload: %w", err)
	}
	if err := out.Close(); err != nil {
		s.Remove()
		return nil, fmt.Errorf("closing upload: %w", err)
	}
	return s, nil
}
