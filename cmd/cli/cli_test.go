package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/himanishpuri/AccentDNA/pkg/accentdna/audio"
	"github.com/himanishpuri/AccentDNA/pkg/accentdna/reference"
	"github.com/himanishpuri/AccentDNA/pkg/accentdna/report"
)

func tone(t *testing.T, path string, freq float64, rate int) {
	t.Helper()
	s := make([]int16, rate)
	for i := range s {
		s[i] = int16(10000 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	if err := audio.WriteWAV(path, audio.Waveform{Samples: s, SampleRate: rate, Channels: 1}); err != nil {
		t.Fatalf("WriteWAV %s: %v", path, err)
	}
}

// run executes the CLI from an empty working directory so no config file is
// picked up.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	base := []string{
		"--quiet",
		"--log-level", "warn",
		"--ffmpeg", filepath.Join(t.TempDir(), "no-ffmpeg"),
		"--temp", t.TempDir(),
	}
	cmd.SetArgs(append(base, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func referenceDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	tone(t, filepath.Join(dir, "low.wav"), 180, 22050)
	tone(t, filepath.Join(dir, "high.wav"), 2500, 22050)
	return dir
}

func TestDetectJSON(t *testing.T) {
	refs := referenceDir(t)
	input := filepath.Join(t.TempDir(), "me.wav")
	tone(t, input, 190, 16000)

	out, err := run(t, "--references", refs, "--scorer", "spectral", "detect", input, "--json")
	if err != nil {
		t.Fatalf("detect failed: %v\n%s", err, out)
	}

	var rec report.Record
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if rec.Prediction == nil || rec.Prediction.Label != "low" {
		t.Fatalf("expected low, got %+v", rec.Prediction)
	}
	if len(rec.Scores) != 2 || rec.Scores[0].Label != "low" {
		t.Errorf("unexpected scores %+v", rec.Scores)
	}
}

func TestDetectWithoutReferencesExitsNonZero(t *testing.T) {
	input := filepath.Join(t.TempDir(), "me.wav")
	tone(t, input, 190, 16000)

	out, err := run(t, "--references", t.TempDir(), "detect", input, "--json")
	if !errors.Is(err, errNoPrediction) {
		t.Fatalf("expected errNoPrediction, got %v", err)
	}
	if !strings.Contains(out, `"prediction": null`) {
		t.Errorf("report should still be printed:\n%s", out)
	}
}

func TestDetectArguments(t *testing.T) {
	if _, err := run(t, "detect"); err == nil {
		t.Error("expected error without file or --url")
	}
	if _, err := run(t, "detect", "a.wav", "--url", "https://example.com/v"); err == nil {
		t.Error("expected error with both file and --url")
	}
	if _, err := run(t, "--scorer", "telepathy", "detect", "a.wav"); err == nil {
		t.Error("expected error for unknown scorer backend")
	}
}

func TestDetectUnreadableInput(t *testing.T) {
	input := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(input, []byte("not really a video"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := run(t, "--references", referenceDir(t), "detect", input)
	if err == nil || errors.Is(err, errNoPrediction) {
		t.Fatalf("expected an input error, got %v", err)
	}
}

func TestReferencesCommand(t *testing.T) {
	out, err := run(t, "--references", referenceDir(t), "references")
	if err != nil {
		t.Fatalf("references failed: %v", err)
	}
	for _, want := range []string{"2 reference sample(s)", "1. High (high)", "2. Low (low)", "Duration: 0:01"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	_, err = run(t, "--references", t.TempDir(), "references")
	if !errors.Is(err, reference.ErrNoReferencesFound) {
		t.Errorf("expected ErrNoReferencesFound, got %v", err)
	}
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	refs := referenceDir(t)

	t.Setenv("ACCENT_SCORER", "verify")
	if _, err := run(t, "--references", refs, "references"); err == nil {
		t.Error("verify without a URL should be rejected")
	}
	if _, err := run(t, "--references", refs, "--scorer-url", "http://127.0.0.1:9", "references"); err != nil {
		t.Errorf("--scorer-url should complete the environment's backend: %v", err)
	}

	t.Setenv("ACCENT_SCORER", "telepathy")
	if _, err := run(t, "--references", refs, "--scorer", "spectral", "references"); err != nil {
		t.Errorf("--scorer should replace an invalid environment backend: %v", err)
	}
}

func TestTranscribeNeedsCredentials(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := run(t, "transcribe", "a.wav"); err == nil {
		t.Error("expected error without transcription credentials")
	}
}
