package audio

import (
	"fmt"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"
)

// downmix averages interleaved channels into mono float samples in [-1, 1).
func downmix(samples []int16, channels int) []float64 {
	if channels <= 1 {
		out := make([]float64, len(samples))
		for i, s := range samples {
			out[i] = float64(s) / 32768.0
		}
		return out
	}

	frames := len(samples) / channels
	out := make([]float64, frames)
	for f := 0; f < frames; f++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(samples[f*channels+c])
		}
		out[f] = sum / float64(channels) / 32768.0
	}
	return out
}

// floatToInt16 is the inverse of the /32768 scaling in downmix, clamped to
// the int16 range.
func floatToInt16(v float64) int16 {
	v = math.Round(v * 32768)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// resample converts mono samples between rates. The output has exactly
// round(len(in) * to / from) samples.
//
// The resampler only emits output for full filter windows, so its output
// leads the input by GetLatency samples and the last window stays buffered.
// The input is padded with that much silence on both ends, and the trailing
// pad goes through Process because Flush only drains the final stage.
func resample(in []float64, from, to int) ([]float64, error) {
	if from == to || len(in) == 0 {
		return in, nil
	}

	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(from),
		OutputRate: float64(to),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("creating resampler %d->%d Hz: %w", from, to, err)
	}

	lead := int(math.Ceil(float64(r.GetLatency()) * float64(from) / float64(to)))
	tail := 2*lead + from/100
	padded := make([]float64, lead+len(in)+tail)
	copy(padded[lead:], in)

	out, err := r.Process(padded)
	if err != nil {
		return nil, fmt.Errorf("resampling %d->%d Hz: %w", from, to, err)
	}
	rest, err := r.Flush()
	if err != nil {
		return nil, fmt.Errorf("flushing resampler %d->%d Hz: %w", from, to, err)
	}
	out = append(out, rest...)

	want := int(math.Round(float64(len(in)) * float64(to) / float64(from)))
	switch {
	case len(out) > want:
		out = out[:want]
	case len(out) < want:
		out = append(out, make([]float64, want-len(out))...)
	}
	return out, nil
}

// Canonicalize converts w to mono 16 kHz 16-bit. A waveform that is already
// canonical is returned as-is.
func Canonicalize(w Waveform) (Waveform, error) {
	if w.IsCanonical() {
		return w, nil
	}
	if w.Channels <= 0 || w.SampleRate <= 0 {
		return Waveform{}, fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupportedFormat, w.Channels, w.SampleRate)
	}

	mono, err := resample(downmix(w.Samples, w.Channels), w.SampleRate, CanonicalSampleRate)
	if err != nil {
		return Waveform{}, err
	}

	samples := make([]int16, len(mono))
	for i, v := range mono {
		samples[i] = floatToInt16(v)
	}
	return Waveform{
		Samples:    samples,
		SampleRate: CanonicalSampleRate,
		Channels:   CanonicalChannels,
	}, nil
}
