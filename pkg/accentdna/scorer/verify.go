package scorer

import (
	"context"
	"fmt"

	"github.com/himanishpuri/AccentDNA/pkg/accentdna/audio"
)

// VerifyClient asks a speaker-verification server to compare two recordings.
//
//	POST <base>/verify   multipart: reference=<wav>, input=<wav>
//	200 {"score": 0.82}
type VerifyClient struct {
	cfg SidecarConfig
}

type verifyResponse struct {
	Score      *float64 `json:"score"`
	Prediction *bool    `json:"prediction,omitempty"`
}

func NewVerifyClient(cfg SidecarConfig) *VerifyClient {
	return &VerifyClient{cfg: cfg}
}

// Health probes the server.
func (c *VerifyClient) Health(ctx context.Context) error {
	return probeHealth(ctx, c.cfg)
}

func (c *VerifyClient) Score(ctx context.Context, reference, input audio.Waveform) (float64, error) {
	var resp verifyResponse
	err := postWAVs(ctx, c.cfg, "/verify", []wavField{
		{name: "reference", wf: reference},
		{name: "input", wf: input},
	}, nil, &resp)
	if err != nil {
		return 0, fmt.Errorf("verify: %w", err)
	}
	if resp.Score == nil {
		return 0, fmt.Errorf("verify: response has no score")
	}
	return *resp.Score, nil
}
