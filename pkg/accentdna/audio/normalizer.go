package audio

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/himanishpuri/AccentDNA/pkg/logger"
	"github.com/himanishpuri/AccentDNA/pkg/utils"
)

type NormalizerConfig struct {
	// TempDir holds scratch WAVs extracted from video containers.
	TempDir string
	// FFmpegPath and FFprobePath default to a PATH lookup. When ffmpeg cannot
	// be found only WAV input is accepted.
	FFmpegPath  string
	FFprobePath string
}

// Normalizer turns an input file into a canonical Waveform.
type Normalizer struct {
	tempDir string
	ffmpeg  string
	ffprobe string
	log     logger.Leveled
}

func NewNormalizer(cfg NormalizerConfig, log logger.Leveled) *Normalizer {
	n := &Normalizer{
		tempDir: cfg.TempDir,
		log:     logger.OrDefault(log),
	}
	n.ffmpeg = lookupTool(cfg.FFmpegPath, "ffmpeg")
	if n.ffmpeg != "" {
		n.ffprobe = lookupTool(cfg.FFprobePath, "ffprobe")
	}
	return n
}

func lookupTool(configured, name string) string {
	if configured == "" {
		configured = name
	}
	path, err := exec.LookPath(configured)
	if err != nil {
		return ""
	}
	return path
}

// CanExtract reports whether non-WAV containers can be handled.
func (n *Normalizer) CanExtract() bool {
	return n.ffmpeg != ""
}

// Normalize decodes inputPath and returns it as mono 16 kHz 16-bit PCM.
func (n *Normalizer) Normalize(ctx context.Context, inputPath string) (Waveform, error) {
	if err := ctx.Err(); err != nil {
		return Waveform{}, err
	}

	wf, err := ReadWAV(inputPath)
	if err != nil {
		if !errors.Is(err, ErrUnsupportedFormat) || !n.CanExtract() {
			return Waveform{}, err
		}
		n.log.Debugf("%s is not a WAV file, extracting audio track with ffmpeg", filepath.Base(inputPath))
		wf, err = n.extract(ctx, inputPath)
		if err != nil {
			return Waveform{}, err
		}
	}

	return n.canonical(inputPath, wf)
}

// canonical checks a decoded waveform for content and converts its format.
func (n *Normalizer) canonical(inputPath string, wf Waveform) (Waveform, error) {
	if wf.Frames() == 0 {
		return Waveform{}, fmt.Errorf("%s: %w", filepath.Base(inputPath), ErrEmptyAudio)
	}
	if wf.IsCanonical() {
		return wf, nil
	}

	out, err := Canonicalize(wf)
	if err != nil {
		return Waveform{}, fmt.Errorf("%s: %w", filepath.Base(inputPath), err)
	}
	n.log.Debugf("normalized %s: %d ch @ %d Hz -> mono @ %d Hz (%s)",
		filepath.Base(inputPath), wf.Channels, wf.SampleRate, out.SampleRate, out.Duration())
	return out, nil
}

func (n *Normalizer) extract(ctx context.Context, inputPath string) (Waveform, error) {
	if n.ffprobe != "" {
		info, err := ProbeMedia(ctx, n.ffprobe, inputPath)
		if err != nil {
			return Waveform{}, err
		}
		if !info.HasAudio {
			return Waveform{}, fmt.Errorf("%w: %s has no audio stream", ErrUnsupportedFormat, filepath.Base(inputPath))
		}
		n.log.Debugf("probed %s: format=%s video=%t codec=%s", info.Filename, info.Format, info.HasVideo, info.Codec)
	}

	scratch, err := utils.NewScratch(n.tempDir, "extract", ".wav")
	if err != nil {
		return Waveform{}, err
	}
	defer scratch.Remove()

	if err := ExtractAudioTrack(ctx, n.ffmpeg, inputPath, scratch.Path); err != nil {
		if ctx.Err() != nil {
			return Waveform{}, err
		}
		return Waveform{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	return ReadWAV(scratch.Path)
}
