package scorer

import (
	"context"
	"fmt"
	"io"

	"github.com/himanishpuri/AccentDNA/pkg/accentdna/audio"
	"github.com/himanishpuri/AccentDNA/pkg/logger"
)

// Cache stores embeddings by content key and model.
type Cache interface {
	Get(key, model string) ([]float64, bool, error)
	Put(key, model string, vec []float64) error
}

// EmbeddingScorer embeds both waveforms and returns their cosine similarity.
// Reference embeddings are looked up in the cache first, so each reference
// sample reaches the model only once per cache lifetime.
type EmbeddingScorer struct {
	embedder Embedder
	cache    Cache
	log      logger.Leveled
}

// NewEmbeddingScorer builds a scorer; cache may be nil.
func NewEmbeddingScorer(embedder Embedder, cache Cache, log logger.Leveled) *EmbeddingScorer {
	return &EmbeddingScorer{embedder: embedder, cache: cache, log: logger.OrDefault(log)}
}

func (s *EmbeddingScorer) Score(ctx context.Context, reference, input audio.Waveform) (float64, error) {
	ref, err := s.embedding(ctx, reference)
	if err != nil {
		return 0, fmt.Errorf("reference embedding: %w", err)
	}
	in, err := s.embedding(ctx, input)
	if err != nil {
		return 0, fmt.Errorf("input embedding: %w", err)
	}
	return CosineSimilarity(ref, in)
}

func (s *EmbeddingScorer) embedding(ctx context.Context, w audio.Waveform) ([]float64, error) {
	if s.cache == nil {
		return s.embedder.Embed(ctx, w)
	}

	key := ContentKey(w)
	model := s.embedder.Model()

	vec, ok, err := s.cache.Get(key, model)
	if err != nil {
		s.log.Warnf("embedding cache read failed, recomputing: %v", err)
	} else if ok {
		return vec, nil
	}

	vec, err = s.embedder.Embed(ctx, w)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Put(key, model, vec); err != nil {
		s.log.Warnf("embedding cache write failed: %v", err)
	}
	return vec, nil
}

// Close closes the cache and the embedder when they hold resources.
func (s *EmbeddingScorer) Close() error {
	var firstErr error
	for _, v := range []any{s.embedder, s.cache} {
		if c, ok := v.(io.Closer); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
