package audio

import (
	"encoding/binary"
	"errors"
	"time"
)

// Canonical format expected by the speaker-embedding models.
const (
	CanonicalSampleRate = 16000
	CanonicalChannels   = 1
	CanonicalBitDepth   = 16
)

var (
	// ErrUnsupportedFormat means the input could not be decoded as audio.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrEmptyAudio means the input decoded to zero samples.
	ErrEmptyAudio = errors.New("audio has zero duration")
)

// Waveform is decoded 16-bit PCM. Samples are interleaved when Channels > 1.
type Waveform struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Frames returns the number of sample frames (samples per channel).
func (w Waveform) Frames() int {
	if w.Channels <= 0 {
		return 0
	}
	return len(w.Samples) / w.Channels
}

func (w Waveform) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(w.Frames()) * time.Second / time.Duration(w.SampleRate)
}

// IsCanonical reports whether w is mono 16 kHz.
func (w Waveform) IsCanonical() bool {
	return w.Channels == CanonicalChannels && w.SampleRate == CanonicalSampleRate
}

// Equal reports whether both waveforms carry the same format and samples.
func (w Waveform) Equal(o Waveform) bool {
	if w.SampleRate != o.SampleRate || w.Channels != o.Channels || len(w.Samples) != len(o.Samples) {
		return false
	}
	for i := range w.Samples {
		if w.Samples[i] != o.Samples[i] {
			return false
		}
	}
	return true
}

// Float64 returns mono samples scaled to [-1, 1), averaging channels.
func (w Waveform) Float64() []float64 {
	return downmix(w.Samples, w.Channels)
}

// PCM16LE returns the samples as little-endian bytes.
func (w Waveform) PCM16LE() []byte {
	out := make([]byte, len(w.Samples)*2)
	for i, s := range w.Samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
