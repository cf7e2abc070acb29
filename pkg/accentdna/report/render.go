// Package report presents a detection Report in the terminal, as JSON, or as
// a spectrogram image.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/himanishpuri/AccentDNA/pkg/accentdna"
)

// Theme defines the color scheme.
type Theme struct {
	Primary lipgloss.Color
	Warn    lipgloss.Color
	Dim     lipgloss.Color
}

var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Warn:    lipgloss.Color("#ffb86c"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds the styles derived from a theme.
type Styles struct {
	Title lipgloss.Style
	Label lipgloss.Style
	Value lipgloss.Style
	Bar   lipgloss.Style
	Warn  lipgloss.Style
	Help  lipgloss.Style
	Box   lipgloss.Style
}

func NewStyles(t Theme) Styles {
	return Styles{
		Title: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Label: lipgloss.NewStyle().Bold(true),
		Value: lipgloss.NewStyle().Foreground(t.Primary),
		Bar:   lipgloss.NewStyle().Foreground(t.Primary),
		Warn:  lipgloss.NewStyle().Foreground(t.Warn),
		Help:  lipgloss.NewStyle().Foreground(t.Dim),
		Box:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Primary).Padding(0, 1),
	}
}

const barWidth = 24

// Render writes the human-readable report.
func Render(w io.Writer, rep *accentdna.Report) error {
	return RenderWith(w, rep, NewStyles(DefaultTheme))
}

func RenderWith(w io.Writer, rep *accentdna.Report, st Styles) error {
	var b strings.Builder

	if rep.HasPrediction() {
		head := []string{
			st.Label.Render("Predicted Accent: ") + st.Title.Render(accentdna.DisplayLabel(rep.Prediction.Label)),
			st.Label.Render("Confidence Score: ") + st.Value.Render(fmt.Sprintf("%.2f", rep.Prediction.Score)),
		}
		b.WriteString(st.Box.Render(strings.Join(head, "\n")))
		b.WriteString("\n")
	} else {
		b.WriteString(st.Warn.Render(fmt.Sprintf("No prediction: %v", rep.MatchErr)))
		b.WriteString("\n")
	}

	if rep.Scores.Len() > 0 {
		b.WriteString("\n" + st.Label.Render("Confidence Scores") + "\n")
		sorted := rep.Scores.Sorted()
		width := 0
		for _, s := range sorted {
			width = max(width, lipgloss.Width(accentdna.DisplayLabel(s.Label)))
		}
		for _, s := range sorted {
			name := accentdna.DisplayLabel(s.Label)
			fmt.Fprintf(&b, "  %-*s %6.2f  %s\n", width, name, s.Value, st.Bar.Render(bar(s.Value)))
		}
	}

	if warnings := rep.Warnings(); len(warnings) > 0 {
		b.WriteString("\n")
		for _, warn := range warnings {
			b.WriteString(st.Warn.Render("⚠ "+warn) + "\n")
		}
	}

	if rep.Transcript != "" {
		b.WriteString("\n" + st.Label.Render("Transcript") + "\n")
		b.WriteString(lipgloss.NewStyle().Width(72).Render(rep.Transcript) + "\n")
	} else if rep.TranscriptErr != nil {
		b.WriteString("\n" + st.Warn.Render(fmt.Sprintf("Transcription failed: %v", rep.TranscriptErr)) + "\n")
	}

	b.WriteString("\n" + st.Help.Render(footer(rep)) + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// bar draws a score in [0, 1] as a block bar. Scores outside that range are
// clamped for display only.
func bar(v float64) string {
	n := int(v*barWidth + 0.5)
	n = min(max(n, 0), barWidth)
	return strings.Repeat("█", n) + strings.Repeat("░", barWidth-n)
}

func footer(rep *accentdna.Report) string {
	parts := []string{rep.Input}
	if d := rep.Waveform.Duration(); d > 0 {
		parts = append(parts, fmt.Sprintf("%s of audio", d.Round(10*time.Millisecond)))
		parts = append(parts, humanize.Bytes(uint64(len(rep.Waveform.Samples)*2))+" PCM")
	}
	if rep.Elapsed > 0 {
		parts = append(parts, "took "+rep.Elapsed.Round(time.Millisecond).String())
	}
	if !rep.CreatedAt.IsZero() {
		parts = append(parts, humanize.Time(rep.CreatedAt))
	}
	return strings.Join(parts, " · ")
}
