// Package reference discovers and decodes the labeled accent samples that an
// input recording is compared against.
package reference

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/himanishpuri/AccentDNA/pkg/accentdna/audio"
)

// ErrNoReferencesFound means the directory held no usable reference file.
var ErrNoReferencesFound = errors.New("no reference samples found")

// Extension is the only file type considered a reference, compared
// case-insensitively.
const Extension = ".wav"

// DecodeFunc normalizes one reference file.
type DecodeFunc func(ctx context.Context, path string) (audio.Waveform, error)

// Entry is one labeled reference sample.
type Entry struct {
	Label    string
	Path     string
	Waveform audio.Waveform
}

// Warning describes a reference file that was skipped or overridden.
type Warning struct {
	Path string
	Err  error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %v", filepath.Base(w.Path), w.Err)
}

// ErrLabelOverridden is recorded when two files map to the same label.
var ErrLabelOverridden = errors.New("label overridden by a later file")

// Set is the immutable result of a load.
type Set struct {
	dir     string
	entries []Entry
}

// Dir is the directory the set was loaded from.
func (s *Set) Dir() string { return s.dir }

// Len returns the number of usable references.
func (s *Set) Len() int { return len(s.entries) }

// Entries returns a copy of the references sorted by label.
func (s *Set) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Labels returns the reference labels in sorted order.
func (s *Set) Labels() []string {
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Label
	}
	return out
}

// LabelFor derives the label of a reference file: its base name without
// extension, lowercased.
func LabelFor(path string) string {
	base := filepath.Base(path)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}

// IsReferenceFile reports whether name has the reference extension.
func IsReferenceFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), Extension)
}

// Load scans dir (non-recursively) in lexicographic file name order and
// decodes every reference file. Files that fail to decode are skipped and
// returned as warnings. When two files share a label the later one wins.
func Load(ctx context.Context, dir string, decode DecodeFunc) (*Set, []Warning, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading reference directory %s: %w", dir, err)
	}

	var (
		warnings []Warning
		byLabel  = make(map[string]Entry)
		matched  int
	)

	// os.ReadDir returns entries sorted by file name
	for _, de := range dirEntries {
		if de.IsDir() || !IsReferenceFile(de.Name()) {
			continue
		}
		matched++

		if err := ctx.Err(); err != nil {
			return nil, warnings, err
		}

		path := filepath.Join(dir, de.Name())
		wf, err := decode(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return nil, warnings, ctx.Err()
			}
			warnings = append(warnings, Warning{Path: path, Err: err})
			continue
		}

		label := LabelFor(path)
		if prev, ok := byLabel[label]; ok {
			warnings = append(warnings, Warning{
				Path: prev.Path,
				Err:  fmt.Errorf("%w %s (label %q)", ErrLabelOverridden, filepath.Base(path), label),
			})
		}
		byLabel[label] = Entry{Label: label, Path: path, Waveform: wf}
	}

	if matched == 0 {
		return nil, warnings, fmt.Errorf("%w in %s", ErrNoReferencesFound, dir)
	}
	if len(byLabel) == 0 {
		return nil, warnings, fmt.Errorf("%w in %s: all %d files failed to decode", ErrNoReferencesFound, dir, matched)
	}

	entries := make([]Entry, 0, len(byLabel))
	for _, e := range byLabel {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Label < entries[j].Label })

	return &Set{dir: dir, entries: entries}, warnings, nil
}
