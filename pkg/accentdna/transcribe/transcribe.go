// Package transcribe turns the uploaded speech into text. It is optional:
// a transcription failure never changes the accent prediction.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/himanishpuri/AccentDNA/pkg/accentdna/audio"
	"github.com/himanishpuri/AccentDNA/pkg/logger"
	"github.com/himanishpuri/AccentDNA/pkg/utils"
)

// ErrDisabled is returned by Disabled.
var ErrDisabled = errors.New("transcription disabled")

// DefaultModel is the Whisper model name understood by OpenAI and most
// self-hosted compatible servers.
const DefaultModel = "whisper-1"

type Transcriber interface {
	Transcribe(ctx context.Context, w audio.Waveform) (string, error)
}

// Disabled is the transcriber used when no speech recognizer is configured.
type Disabled struct{}

func (Disabled) Transcribe(context.Context, audio.Waveform) (string, error) {
	return "", ErrDisabled
}

// Config for the OpenAI-compatible transcriber.
type Config struct {
	APIKey string
	// BaseURL points at a self-hosted Whisper-compatible server. Empty means
	// api.openai.com.
	BaseURL  string
	Model    string
	Language string
	Timeout  time.Duration
	TempDir  string
}

// OpenAI sends audio to an /audio/transcriptions endpoint.
type OpenAI struct {
	client   *openai.Client
	model    string
	language string
	tempDir  string
	log      logger.Leveled
}

func NewOpenAI(cfg Config, log logger.Leveled) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		option.WithMaxRetries(1),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	return &OpenAI{
		client:   &client,
		model:    cfg.Model,
		language: cfg.Language,
		tempDir:  cfg.TempDir,
		log:      logger.OrDefault(log),
	}
}

func (t *OpenAI) Transcribe(ctx context.Context, w audio.Waveform) (string, error) {
	scratch, err := utils.NewScratch(t.tempDir, "transcribe", ".wav")
	if err != nil {
		return "", err
	}
	defer scratch.Remove()

	if err := audio.WriteWAV(scratch.Path, w); err != nil {
		return "", fmt.Errorf("writing transcription body: %w", err)
	}
	f, err := os.Open(scratch.Path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	params := openai.AudioTranscriptionNewParams{
		File:  f,
		Model: openai.AudioModel(t.model),
	}
	if t.language != "" {
		params.Language = openai.String(t.language)
	}

	start := time.Now()
	resp, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	t.log.Debugf("transcribed %s of audio in %s", w.Duration(), time.Since(start).Round(time.Millisecond))

	return strings.TrimSpace(resp.Text), nil
}
