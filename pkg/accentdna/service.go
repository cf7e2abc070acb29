package accentdna

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/himanishpuri/AccentDNA/pkg/accentdna/audio"
	"github.com/himanishpuri/AccentDNA/pkg/accentdna/matcher"
	"github.com/himanishpuri/AccentDNA/pkg/accentdna/reference"
	"github.com/himanishpuri/AccentDNA/pkg/accentdna/scorer"
	"github.com/himanishpuri/AccentDNA/pkg/accentdna/transcribe"
	"github.com/himanishpuri/AccentDNA/pkg/logger"
)

// accentService is the default implementation of the Service interface.
type accentService struct {
	// mu serializes requests; the tool handles one upload at a time.
	mu sync.Mutex

	normalizer  *audio.Normalizer
	matcher     *matcher.Matcher
	scorer      scorer.Scorer
	transcriber transcribe.Transcriber

	refs        *reference.Set
	refsErr     error
	refWarnings []string

	log    Logger
	config *Config
}

// NewService loads the reference set once and wires the pipeline. A reference
// directory without usable samples does not fail construction: every Detect
// then reports reference.ErrNoReferencesFound in Report.MatchErr.
func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	sc := cfg.Scorer
	if sc == nil {
		lazy, err := scorer.New(cfg.ScorerConfig, cfg.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create scorer: %w", err)
		}
		sc = lazy
	}

	s := &accentService{
		normalizer: audio.NewNormalizer(audio.NormalizerConfig{
			TempDir:     cfg.TempDir,
			FFmpegPath:  cfg.FFmpegPath,
			FFprobePath: cfg.FFprobePath,
		}, cfg.Logger),
		matcher:     matcher.New(sc, cfg.Logger),
		scorer:      sc,
		transcriber: cfg.Transcriber,
		log:         cfg.Logger,
		config:      cfg,
	}

	if !s.normalizer.CanExtract() {
		s.log.Warnf("ffmpeg not found; only WAV input is accepted")
	}

	s.loadReferences(context.Background())
	return s, nil
}

func (s *accentService) loadReferences(ctx context.Context) {
	start := time.Now()
	set, warnings, err := reference.Load(ctx, s.config.ReferenceDir, s.normalizer.Normalize)

	for _, w := range warnings {
		s.log.Warnf("reference %s", w)
		s.refWarnings = append(s.refWarnings, w.String())
	}
	if err != nil {
		s.log.Errorf("reference set unavailable: %v", err)
		s.refsErr = err
		return
	}

	s.refs = set
	s.log.Infof("Loaded %d reference samples from %s in %s", set.Len(), set.Dir(), time.Since(start).Round(time.Millisecond))
}

func (s *accentService) Detect(ctx context.Context, path string) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	rep := &Report{
		ID:                uuid.NewString(),
		Input:             filepath.Base(path),
		CreatedAt:         start,
		ReferenceWarnings: append([]string(nil), s.refWarnings...),
	}
	s.log.Infof("[%s] Detecting accent: %s", rep.ID[:8], rep.Input)

	wf, err := s.normalizer.Normalize(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("normalizing %s: %w", rep.Input, err)
	}
	rep.Waveform = wf

	s.match(ctx, wf, rep)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.transcribe(ctx, wf, rep)

	rep.Elapsed = time.Since(start)
	if rep.HasPrediction() {
		s.log.Infof("[%s] Predicted %s (%.2f) in %s", rep.ID[:8], rep.Prediction.Label, rep.Prediction.Score, rep.Elapsed.Round(time.Millisecond))
	} else {
		s.log.Warnf("[%s] No prediction: %v", rep.ID[:8], rep.MatchErr)
	}
	return rep, nil
}

func (s *accentService) match(ctx context.Context, wf audio.Waveform, rep *Report) {
	if s.refsErr != nil {
		rep.MatchErr = s.refsErr
		return
	}

	res, err := s.matcher.Match(ctx, wf, s.refs.Entries())
	if err != nil {
		rep.MatchErr = err
		return
	}

	rep.Scores = res.Scores
	rep.Failures = res.Failures
	best := res.Best
	rep.Prediction = &best
}

func (s *accentService) transcribe(ctx context.Context, wf audio.Waveform, rep *Report) {
	if s.transcriber == nil {
		return
	}
	text, err := s.transcriber.Transcribe(ctx, wf)
	if errors.Is(err, transcribe.ErrDisabled) {
		return
	}
	if err != nil {
		s.log.Warnf("transcription failed: %v", err)
		rep.TranscriptErr = err
		return
	}
	rep.Transcript = text
}

func (s *accentService) DetectURL(ctx context.Context, url string) (*Report, error) {
	s.log.Infof("Downloading audio from %s", url)
	dl, err := audio.DownloadAudio(ctx, url, s.config.TempDir)
	if err != nil {
		return nil, err
	}
	defer dl.Remove()

	rep, err := s.Detect(ctx, dl.Path)
	if err != nil {
		return nil, err
	}
	rep.Input = url
	return rep, nil
}

func (s *accentService) Transcribe(ctx context.Context, path string) (string, error) {
	if s.transcriber == nil {
		return "", transcribe.ErrDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wf, err := s.normalizer.Normalize(ctx, path)
	if err != nil {
		return "", fmt.Errorf("normalizing %s: %w", filepath.Base(path), err)
	}
	return s.transcriber.Transcribe(ctx, wf)
}

func (s *accentService) References() []ReferenceInfo {
	if s.refs == nil {
		return nil
	}
	entries := s.refs.Entries()
	out := make([]ReferenceInfo, len(entries))
	for i, e := range entries {
		out[i] = ReferenceInfo{Label: e.Label, Path: e.Path, Duration: e.Waveform.Duration()}
	}
	return out
}

func (s *accentService) ReferenceWarnings() []string {
	return append([]string(nil), s.refWarnings...)
}

func (s *accentService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.scorer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
