package main

import (
	"fmt"
	"html/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/himanishpuri/AccentDNA/pkg/accentdna"
)

// ServerConfig holds server configuration
type ServerConfig struct {
	Addr           string
	TempDir        string
	ReferenceDir   string
	MaxUploadBytes int64
	AllowedOrigins []string
}

// pageData feeds the single page template. Report is nil on the bare form.
type pageData struct {
	References []referenceRow
	Warnings   []string
	Error      string
	Report     *reportView
}

type referenceRow struct {
	Label    string
	Display  string
	Duration string
}

type reportView struct {
	ID              string
	Input           string
	Duration        string
	Elapsed         string
	Prediction      string
	Confidence      string
	NoMatch         string
	Scores          []scoreRow
	Warnings        []string
	Transcript      string
	TranscriptError string
	// Spectrogram is a data: URL of the normalized input.
	Spectrogram template.URL
}

type scoreRow struct {
	Display string
	Score   string
	Percent int
	Best    bool
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string `json:"status"`
	Time       string `json:"time"`
	References int    `json:"references"`
}

func newReferenceRows(refs []accentdna.ReferenceInfo) []referenceRow {
	rows := make([]referenceRow, len(refs))
	for i, ref := range refs {
		rows[i] = referenceRow{
			Label:    ref.Label,
			Display:  accentdna.DisplayLabel(ref.Label),
			Duration: ref.Duration.Round(100 * time.Millisecond).String(),
		}
	}
	return rows
}

func newReportView(rep *accentdna.Report, spectrogram template.URL) *reportView {
	v := &reportView{
		ID:          rep.ID,
		Input:       rep.Input,
		Duration:    humanize.FtoaWithDigits(rep.Waveform.Duration().Seconds(), 2) + "s",
		Elapsed:     rep.Elapsed.Round(time.Millisecond).String(),
		Warnings:    rep.Warnings(),
		Transcript:  rep.Transcript,
		Spectrogram: spectrogram,
	}
	if rep.HasPrediction() {
		v.Prediction = accentdna.DisplayLabel(rep.Prediction.Label)
		v.Confidence = fmt.Sprintf("%.2f", rep.Prediction.Score)
	} else if rep.MatchErr != nil {
		v.NoMatch = rep.MatchErr.Error()
	}
	if rep.TranscriptErr != nil {
		v.TranscriptError = rep.TranscriptErr.Error()
	}

	for _, sc := range rep.Scores.Sorted() {
		pct := int(sc.Value*100 + 0.5)
		pct = max(0, min(pct, 100))
		v.Scores = append(v.Scores, scoreRow{
			Display: accentdna.DisplayLabel(sc.Label),
			Score:   fmt.Sprintf("%.2f", sc.Value),
			Percent: pct,
			Best:    rep.HasPrediction() && sc.Label == rep.Prediction.Label,
		})
	}
	return v
}
