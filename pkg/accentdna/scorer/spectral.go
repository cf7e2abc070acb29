package scorer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"

	"github.com/himanishpuri/AccentDNA/pkg/accentdna/audio"
)

const (
	// 32 ms / 10 ms at 16 kHz
	SpectralWindowSize = 512
	SpectralHopSize    = 160

	// frames quieter than this RMS (full scale = 1) are treated as silence
	silenceRMS = 1e-3
)

// ErrTooShort means the audio is shorter than one analysis window.
var ErrTooShort = errors.New("audio shorter than analysis window")

// Spectral is a model-free baseline: it compares the long-term average
// log-magnitude spectra of the two recordings. It is deterministic and
// needs no external service, which makes it useful offline and in tests.
type Spectral struct {
	WindowSize int
	HopSize    int
}

func NewSpectral() *Spectral {
	return &Spectral{WindowSize: SpectralWindowSize, HopSize: SpectralHopSize}
}

func (s *Spectral) Score(ctx context.Context, reference, input audio.Waveform) (float64, error) {
	ref, err := s.Profile(reference)
	if err != nil {
		return 0, fmt.Errorf("reference: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	in, err := s.Profile(input)
	if err != nil {
		return 0, fmt.Errorf("input: %w", err)
	}
	return CosineSimilarity(ref, in)
}

// Profile returns the mean log(1+|X|) spectrum over the voiced frames of w.
func (s *Spectral) Profile(w audio.Waveform) ([]float64, error) {
	ws, hs := s.WindowSize, s.HopSize
	if ws <= 0 {
		ws = SpectralWindowSize
	}
	if hs <= 0 {
		hs = SpectralHopSize
	}

	samples := w.Float64()
	frames, err := STFT(samples, ws, hs, window.Hamming(ws))
	if err != nil {
		return nil, err
	}

	profile := make([]float64, ws/2)
	voiced := 0
	for i, mag := range frames {
		if frameRMS(samples, i*hs, ws) < silenceRMS {
			continue
		}
		for k, m := range mag {
			profile[k] += math.Log1p(m)
		}
		voiced++
	}
	if voiced == 0 {
		return nil, fmt.Errorf("%w: no voiced frames", ErrZeroVector)
	}
	for k := range profile {
		profile[k] /= float64(voiced)
	}
	return profile, nil
}

func frameRMS(samples []float64, start, n int) float64 {
	var sum float64
	for _, v := range samples[start : start+n] {
		sum += v * v
	}
	return math.Sqrt(sum / float64(n))
}

// STFT returns one magnitude spectrum (first windowSize/2 bins) per hop.
func STFT(samples []float64, windowSize, hopSize int, win []float64) ([][]float64, error) {
	if len(win) != windowSize {
		return nil, errors.New("window length must equal windowSize")
	}
	if len(samples) < windowSize {
		return nil, fmt.Errorf("%w: %d samples < %d", ErrTooShort, len(samples), windowSize)
	}

	spectrogram := make([][]float64, 0, (len(samples)-windowSize)/hopSize+1)
	frame := make([]float64, windowSize)
	for start := 0; start+windowSize <= len(samples); start += hopSize {
		for i := 0; i < windowSize; i++ {
			frame[i] = samples[start+i] * win[i]
		}
		spectrogram = append(spectrogram, magnitudeSpectrum(fft.FFTReal(frame)))
	}
	return spectrogram, nil
}

func magnitudeSpectrum(spectrum []complex128) []float64 {
	half := len(spectrum) / 2
	mag := make([]float64, half)
	for i := 0; i < half; i++ {
		mag[i] = cmplx.Abs(spectrum[i])
	}
	return mag
}
