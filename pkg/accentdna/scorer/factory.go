package scorer

import (
	"context"
	"fmt"

	"github.com/himanishpuri/AccentDNA/pkg/accentdna/storage"
	"github.com/himanishpuri/AccentDNA/pkg/logger"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	Sidecar SidecarConfig
	// EmbeddingModel is sent to the embedding server and scopes the cache.
	EmbeddingModel string
	// CacheDSN is the embedding cache location; empty keeps it in memory.
	CacheDSN string
}

// New returns a lazily initialized scorer for cfg.Backend. Nothing is
// contacted or opened until the first Score call.
func New(cfg Config, log logger.Leveled) (*Lazy, error) {
	log = logger.OrDefault(log)

	switch cfg.Backend {
	case BackendSpectral, "":
		return NewLazy(func(context.Context) (Scorer, error) {
			log.Debugf("using spectral baseline scorer")
			return NewSpectral(), nil
		}), nil

	case BackendVerify:
		return NewLazy(func(ctx context.Context) (Scorer, error) {
			c := NewVerifyClient(cfg.Sidecar)
			if err := c.Health(ctx); err != nil {
				return nil, err
			}
			log.Infof("verification server ready at %s", cfg.Sidecar.BaseURL)
			return c, nil
		}), nil

	case BackendEmbedding:
		return NewLazy(func(ctx context.Context) (Scorer, error) {
			e := NewHTTPEmbedder(cfg.Sidecar, cfg.EmbeddingModel)
			if err := e.Health(ctx); err != nil {
				return nil, err
			}
			cache, err := storage.Open(cfg.CacheDSN)
			if err != nil {
				return nil, err
			}
			log.Infof("embedding server ready at %s (model %q)", cfg.Sidecar.BaseURL, cfg.EmbeddingModel)
			return NewEmbeddingScorer(e, cache, log), nil
		}), nil

	default:
		return nil, fmt.Errorf("unknown scorer backend %q (want %s, %s or %s)",
			cfg.Backend, BackendVerify, BackendEmbedding, BackendSpectral)
	}
}
