package audio

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAV encodes w as a 16-bit PCM WAV file at path.
func WriteWAV(path string, w Waveform) error {
	if w.Channels <= 0 || w.SampleRate <= 0 {
		return fmt.Errorf("invalid waveform format: %d channels at %d Hz", w.Channels, w.SampleRate)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	enc := wav.NewEncoder(f, w.SampleRate, CanonicalBitDepth, w.Channels, 1)

	data := make([]int, len(w.Samples))
	for i, s := range w.Samples {
		data[i] = int(s)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: w.Channels, SampleRate: w.SampleRate},
		Data:           data,
		SourceBitDepth: CanonicalBitDepth,
	}

	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalizing %s: %w", path, err)
	}
	return f.Close()
}
