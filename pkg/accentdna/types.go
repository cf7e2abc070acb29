package accentdna

import (
	"strings"
	"time"

	"github.com/himanishpuri/AccentDNA/pkg/accentdna/audio"
	"github.com/himanishpuri/AccentDNA/pkg/accentdna/matcher"
)

// ReferenceInfo describes one loaded reference sample.
type ReferenceInfo struct {
	Label    string        // lowercased file stem
	Path     string        // source file
	Duration time.Duration // after normalization
}

// Report is the outcome of one detection request.
type Report struct {
	ID        string
	Input     string
	CreatedAt time.Time

	// Waveform is the normalized input.
	Waveform audio.Waveform

	Scores     *matcher.ScoreMap
	Prediction *matcher.MatchResult
	Failures   []*matcher.ReferenceScoringError
	// MatchErr is set when no prediction could be made at all
	// (reference.ErrNoReferencesFound, matcher.ErrNoMatch, scorer errors).
	MatchErr error

	// ReferenceWarnings lists reference files skipped or overridden at load.
	ReferenceWarnings []string

	Transcript    string
	TranscriptErr error

	Elapsed time.Duration
}

// HasPrediction reports whether a best match was found.
func (r *Report) HasPrediction() bool {
	return r != nil && r.Prediction != nil
}

// Warnings returns every non-fatal problem in display order.
func (r *Report) Warnings() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.ReferenceWarnings)+len(r.Failures))
	out = append(out, r.ReferenceWarnings...)
	for _, f := range r.Failures {
		out = append(out, f.Error())
	}
	return out
}

// DisplayLabel formats a reference label for people: "new_zealand" becomes
// "New Zealand".
func DisplayLabel(label string) string {
	words := strings.FieldsFunc(label, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(words, " ")
}
