package report

import (
	"errors"
	"image"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/eligwz/spectrogram"

	"github.com/himanishpuri/AccentDNA/pkg/accentdna/audio"
)

// Spectrogram image geometry.
const (
	PlotWidth  = 1024
	PlotHeight = 256
)

var errNoSamples = errors.New("waveform has no samples")

// WriteSpectrogram saves a PNG spectrogram of wf at path.
func WriteSpectrogram(path string, wf audio.Waveform) error {
	img, err := drawSpectrogram(wf)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// EncodeSpectrogram writes the same image as PNG bytes to w.
func EncodeSpectrogram(w io.Writer, wf audio.Waveform) error {
	img, err := drawSpectrogram(wf)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

func drawSpectrogram(wf audio.Waveform) (image.Image, error) {
	samples := wf.Float64()
	if len(samples) == 0 {
		return nil, errNoSamples
	}

	img := spectrogram.NewImage128(image.Rect(0, 0, PlotWidth, PlotHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(spectrogram.ParseColor("000000")), image.Point{}, draw.Src)
	spectrogram.Drawfft(img, samples, uint32(wf.SampleRate), PlotHeight,
		false, // Hamming window
		false, // FFT, not DFT
		true,  // magnitude
		false, // linear scale
	)
	return img, nil
}
