package accentdna

import (
	"os"
	"path/filepath"

	"github.com/himanishpuri/AccentDNA/pkg/accentdna/scorer"
	"github.com/himanishpuri/AccentDNA/pkg/accentdna/transcribe"
)

type Config struct {
	ReferenceDir string
	TempDir      string
	FFmpegPath   string
	FFprobePath  string
	// ScorerConfig is used when no Scorer is injected.
	ScorerConfig scorer.Config
	Scorer       scorer.Scorer
	Transcriber  transcribe.Transcriber
	Logger       Logger
}

type Option func(*Config)

func WithReferenceDir(dir string) Option {
	return func(c *Config) {
		c.ReferenceDir = dir
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

func WithFFmpeg(ffmpeg, ffprobe string) Option {
	return func(c *Config) {
		c.FFmpegPath = ffmpeg
		c.FFprobePath = ffprobe
	}
}

// WithScorer injects the similarity backend. It takes precedence over
// WithScorerConfig.
func WithScorer(s scorer.Scorer) Option {
	return func(c *Config) {
		c.Scorer = s
	}
}

func WithScorerConfig(cfg scorer.Config) Option {
	return func(c *Config) {
		c.ScorerConfig = cfg
	}
}

// WithTranscriber enables transcription. Without it Detect never transcribes.
func WithTranscriber(t transcribe.Transcriber) Option {
	return func(c *Config) {
		c.Transcriber = t
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func defaultConfig() *Config {
	return &Config{
		ReferenceDir: "references",
		TempDir:      filepath.Join(os.TempDir(), "accentdna"),
		ScorerConfig: scorer.Config{Backend: scorer.BackendSpectral},
	}
}
