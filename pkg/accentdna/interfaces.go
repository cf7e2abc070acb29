package accentdna

import (
	"context"

	"github.com/himanishpuri/AccentDNA/pkg/logger"
)

type Service interface {
	// Detect normalizes the file at path and compares it against the
	// reference set. Only input-level failures are returned as errors;
	// matching and transcription problems are recorded on the Report.
	Detect(ctx context.Context, path string) (*Report, error)
	// DetectURL downloads the audio of a video page and runs Detect on it.
	DetectURL(ctx context.Context, url string) (*Report, error)
	// Transcribe normalizes the file and only transcribes it.
	Transcribe(ctx context.Context, path string) (string, error)
	References() []ReferenceInfo
	ReferenceWarnings() []string
	Close() error
}

type Logger = logger.Leveled
