package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/himanishpuri/AccentDNA/pkg/accentdna"
	"github.com/himanishpuri/AccentDNA/pkg/accentdna/matcher"
)

// Record is the JSON form of a Report.
type Record struct {
	ID         string          `json:"id"`
	Input      string          `json:"input"`
	CreatedAt  time.Time       `json:"created_at"`
	DurationMs int64           `json:"duration_ms"`
	Prediction *Prediction     `json:"prediction"`
	Scores     []matcher.Score `json:"scores"`
	Warnings   []string        `json:"warnings"`
	Error      string          `json:"error,omitempty"`
	Transcript string          `json:"transcript,omitempty"`
	// TranscriptError is set when transcription was attempted and failed.
	TranscriptError string `json:"transcript_error,omitempty"`
	ElapsedMs       int64  `json:"elapsed_ms"`
}

type Prediction struct {
	Label      string  `json:"label"`
	Display    string  `json:"display"`
	Confidence float64 `json:"confidence"`
}

// NewRecord converts rep. Scores are sorted by descending score.
func NewRecord(rep *accentdna.Report) Record {
	rec := Record{
		ID:         rep.ID,
		Input:      rep.Input,
		CreatedAt:  rep.CreatedAt,
		DurationMs: rep.Waveform.Duration().Milliseconds(),
		Scores:     rep.Scores.Sorted(),
		Warnings:   rep.Warnings(),
		Transcript: rep.Transcript,
		ElapsedMs:  rep.Elapsed.Milliseconds(),
	}
	if rep.HasPrediction() {
		rec.Prediction = &Prediction{
			Label:      rep.Prediction.Label,
			Display:    accentdna.DisplayLabel(rep.Prediction.Label),
			Confidence: rep.Prediction.Score,
		}
	}
	if rep.MatchErr != nil {
		rec.Error = rep.MatchErr.Error()
	}
	if rep.TranscriptErr != nil {
		rec.TranscriptError = rep.TranscriptErr.Error()
	}
	return rec
}

// WriteJSON writes rep as indented JSON.
func WriteJSON(w io.Writer, rep *accentdna.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewRecord(rep))
}
