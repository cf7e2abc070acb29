package scorer

import (
	"context"
	"fmt"

	"github.com/himanishpuri/AccentDNA/pkg/accentdna/audio"
)

// Embedder turns a canonical waveform into a speaker embedding.
type Embedder interface {
	Embed(ctx context.Context, w audio.Waveform) ([]float64, error)
	// Model names the embedding model; vectors from different models are
	// never compared or cached together.
	Model() string
}

// HTTPEmbedder calls an embedding server.
//
//	POST <base>/embed   multipart: audio=<wav>, model=<name>
//	200 {"embedding": [...], "model": "ecapa"}
type HTTPEmbedder struct {
	cfg   SidecarConfig
	model string
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
	Model     string    `json:"model"`
}

func NewHTTPEmbedder(cfg SidecarConfig, model string) *HTTPEmbedder {
	return &HTTPEmbedder{cfg: cfg, model: model}
}

func (e *HTTPEmbedder) Model() string { return e.model }

// Health probes the server.
func (e *HTTPEmbedder) Health(ctx context.Context) error {
	return probeHealth(ctx, e.cfg)
}

func (e *HTTPEmbedder) Embed(ctx context.Context, w audio.Waveform) ([]float64, error) {
	fields := map[string]string{}
	if e.model != "" {
		fields["model"] = e.model
	}

	var resp embedResponse
	if err := postWAVs(ctx, e.cfg, "/embed", []wavField{{name: "audio", wf: w}}, fields, &resp); err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("embed: %w", ErrZeroVector)
	}
	return resp.Embedding, nil
}
