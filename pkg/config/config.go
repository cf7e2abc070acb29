// Package config loads settings for the command-line tool and the upload
// server: built-in defaults, then an optional YAML file, then environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/himanishpuri/AccentDNA/pkg/accentdna"
	"github.com/himanishpuri/AccentDNA/pkg/accentdna/scorer"
	"github.com/himanishpuri/AccentDNA/pkg/accentdna/transcribe"
)

type Settings struct {
	ReferenceDir string `yaml:"reference_dir" env:"ACCENT_REFERENCE_DIR"`
	TempDir      string `yaml:"temp_dir" env:"ACCENT_TEMP_DIR"`
	LogLevel     string `yaml:"log_level" env:"LOG_LEVEL"`

	FFmpeg        FFmpegSettings        `yaml:"ffmpeg"`
	Scorer        ScorerSettings        `yaml:"scorer"`
	Transcription TranscriptionSettings `yaml:"transcription"`
	Server        ServerSettings        `yaml:"server"`
}

type FFmpegSettings struct {
	Path      string `yaml:"path" env:"ACCENT_FFMPEG"`
	ProbePath string `yaml:"probe_path" env:"ACCENT_FFPROBE"`
}

type ScorerSettings struct {
	// Backend is one of verify, embedding or spectral.
	Backend  string        `yaml:"backend" env:"ACCENT_SCORER"`
	URL      string        `yaml:"url" env:"ACCENT_SCORER_URL"`
	APIKey   string        `yaml:"api_key" env:"ACCENT_SCORER_API_KEY"`
	Model    string        `yaml:"model" env:"ACCENT_EMBEDDING_MODEL"`
	CacheDSN string        `yaml:"cache_dsn" env:"ACCENT_CACHE_DSN"`
	Timeout  time.Duration `yaml:"timeout" env:"ACCENT_SCORER_TIMEOUT"`
}

type TranscriptionSettings struct {
	Enabled  bool          `yaml:"enabled" env:"ACCENT_TRANSCRIBE"`
	APIKey   string        `yaml:"api_key" env:"OPENAI_API_KEY"`
	BaseURL  string        `yaml:"base_url" env:"ACCENT_TRANSCRIBE_URL"`
	Model    string        `yaml:"model" env:"ACCENT_TRANSCRIBE_MODEL"`
	Language string        `yaml:"language" env:"ACCENT_TRANSCRIBE_LANGUAGE"`
	Timeout  time.Duration `yaml:"timeout" env:"ACCENT_TRANSCRIBE_TIMEOUT"`
}

type ServerSettings struct {
	Addr        string `yaml:"addr" env:"ACCENT_ADDR"`
	MaxUploadMB int64  `yaml:"max_upload_mb" env:"ACCENT_MAX_UPLOAD_MB"`
}

// DefaultFile is read when no path is given and it exists.
const DefaultFile = "accentdna.yaml"

func Default() *Settings {
	return &Settings{
		ReferenceDir: "references",
		TempDir:      filepath.Join(os.TempDir(), "accentdna"),
		LogLevel:     "info",
		Scorer: ScorerSettings{
			Backend: scorer.BackendSpectral,
			Model:   "ecapa-voxlingua107",
			Timeout: 60 * time.Second,
		},
		Transcription: TranscriptionSettings{
			Model:   transcribe.DefaultModel,
			Timeout: 2 * time.Minute,
		},
		Server: ServerSettings{
			Addr:        ":8080",
			MaxUploadMB: 100,
		},
	}
}

// Load reads path (or DefaultFile when path is empty and the file exists)
// over the defaults and then applies environment overrides. The result is not
// validated; callers apply their flags first and then call Validate.
func Load(path string) (*Settings, error) {
	s := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := s.decodeYAML(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// defaults only
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := env.Parse(s); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	return s, nil
}

func (s *Settings) decodeYAML(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (s *Settings) Validate() error {
	switch s.Scorer.Backend {
	case scorer.BackendSpectral:
	case scorer.BackendVerify, scorer.BackendEmbedding:
		if s.Scorer.URL == "" {
			return fmt.Errorf("scorer backend %q needs scorer.url (ACCENT_SCORER_URL)", s.Scorer.Backend)
		}
	default:
		return fmt.Errorf("unknown scorer backend %q", s.Scorer.Backend)
	}
	if s.Transcription.Enabled && s.Transcription.APIKey == "" && s.Transcription.BaseURL == "" {
		return errors.New("transcription enabled but neither OPENAI_API_KEY nor transcription.base_url is set")
	}
	return nil
}

func (s *Settings) ScorerConfig() scorer.Config {
	return scorer.Config{
		Backend: s.Scorer.Backend,
		Sidecar: scorer.SidecarConfig{
			BaseURL: s.Scorer.URL,
			APIKey:  s.Scorer.APIKey,
			Timeout: s.Scorer.Timeout,
			TempDir: s.TempDir,
		},
		EmbeddingModel: s.Scorer.Model,
		CacheDSN:       s.Scorer.CacheDSN,
	}
}

func (s *Settings) TranscribeConfig() transcribe.Config {
	return transcribe.Config{
		APIKey:   s.Transcription.APIKey,
		BaseURL:  s.Transcription.BaseURL,
		Model:    s.Transcription.Model,
		Language: s.Transcription.Language,
		Timeout:  s.Transcription.Timeout,
		TempDir:  s.TempDir,
	}
}

// ServiceOptions translates the settings into service options.
func (s *Settings) ServiceOptions(log accentdna.Logger) []accentdna.Option {
	opts := []accentdna.Option{
		accentdna.WithReferenceDir(s.ReferenceDir),
		accentdna.WithTempDir(s.TempDir),
		accentdna.WithFFmpeg(s.FFmpeg.Path, s.FFmpeg.ProbePath),
		accentdna.WithScorerConfig(s.ScorerConfig()),
		accentdna.WithLogger(log),
	}
	if s.Transcription.Enabled {
		opts = append(opts, accentdna.WithTranscriber(transcribe.NewOpenAI(s.TranscribeConfig(), log)))
	}
	return opts
}
