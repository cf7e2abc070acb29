// Package scorer holds the speaker-similarity backends the matcher compares
// waveforms with. The heavy lifting (embedding models, verification) lives in
// external services; this package only talks to them.
package scorer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/himanishpuri/AccentDNA/pkg/accentdna/audio"
)

var (
	// ErrUnavailable means the backend could not be initialized or reached.
	ErrUnavailable = errors.New("similarity scorer unavailable")
	// ErrDimensionMismatch means two embeddings cannot be compared.
	ErrDimensionMismatch = errors.New("embedding dimensions differ")
	// ErrZeroVector means an embedding or spectrum has no energy.
	ErrZeroVector = errors.New("zero-length vector")
)

// Scorer compares a reference waveform with an input waveform. Higher means
// more similar. Argument order is always (reference, input).
type Scorer interface {
	Score(ctx context.Context, reference, input audio.Waveform) (float64, error)
}

// Func adapts a plain function to Scorer.
type Func func(ctx context.Context, reference, input audio.Waveform) (float64, error)

func (f Func) Score(ctx context.Context, reference, input audio.Waveform) (float64, error) {
	return f(ctx, reference, input)
}

// Backend names accepted by the configuration layer.
const (
	BackendVerify    = "verify"
	BackendEmbedding = "embedding"
	BackendSpectral  = "spectral"
)

// CosineSimilarity returns a·b / (|a||b|).
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, ErrZeroVector
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// ContentKey identifies a waveform by its samples and format.
func ContentKey(w audio.Waveform) string {
	h := sha256.New()
	h.Write([]byte(strconv.Itoa(w.SampleRate) + "/" + strconv.Itoa(w.Channels) + "/"))
	h.Write(w.PCM16LE())
	return hex.EncodeToString(h.Sum(nil))
}
