package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/himanishpuri/AccentDNA/pkg/accentdna/audio"
	"github.com/himanishpuri/AccentDNA/pkg/utils"
)

const defaultHTTPTimeout = 60 * time.Second

// SidecarConfig points at an HTTP model server.
type SidecarConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// TempDir holds the WAV bodies written for each request.
	TempDir string
	Client  *http.Client
}

func (c SidecarConfig) httpClient() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}

func (c SidecarConfig) endpoint(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + path
}

func (c SidecarConfig) headers() map[string]string {
	h := map[string]string{"Accept": "application/json"}
	if c.APIKey != "" {
		h["Authorization"] = "Bearer " + c.APIKey
	}
	return h
}

// wavField is one waveform sent as a multipart file part.
type wavField struct {
	name string
	wf   audio.Waveform
}

// postWAVs uploads the waveforms as multipart WAV files plus plain form
// fields and decodes the JSON response into dest.
func postWAVs(ctx context.Context, cfg SidecarConfig, path string, files []wavField, fields map[string]string, dest any) error {
	scratches := make([]*utils.Scratch, 0, len(files))
	defer func() {
		for _, s := range scratches {
			s.Remove()
		}
	}()

	for _, f := range files {
		s, err := utils.NewScratch(cfg.TempDir, "body_"+f.name, ".wav")
		if err != nil {
			return err
		}
		scratches = append(scratches, s)
		if err := audio.WriteWAV(s.Path, f.wf); err != nil {
			return fmt.Errorf("writing %s body: %w", f.name, err)
		}
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeMultipart(mw, files, scratches, fields))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.endpoint(path), pr)
	if err != nil {
		pr.Close()
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for k, v := range cfg.headers() {
		req.Header.Set(k, v)
	}

	return doJSON(cfg.httpClient(), req, dest)
}

func writeMultipart(mw *multipart.Writer, files []wavField, scratches []*utils.Scratch, fields map[string]string) error {
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	for i, f := range files {
		part, err := mw.CreateFormFile(f.name, f.name+".wav")
		if err != nil {
			return err
		}
		src, err := os.Open(scratches[i].Path)
		if err != nil {
			return err
		}
		_, err = io.Copy(part, src)
		src.Close()
		if err != nil {
			return err
		}
	}
	return mw.Close()
}

// doJSON sends req and decodes a 2xx JSON response into dest.
func doJSON(client *http.Client, req *http.Request, dest any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// probeHealth checks GET <base>/health answers 2xx.
func probeHealth(ctx context.Context, cfg SidecarConfig) error {
	if cfg.BaseURL == "" {
		return fmt.Errorf("no sidecar URL configured")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.endpoint("/health"), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range cfg.headers() {
		req.Header.Set(k, v)
	}
	if err := doJSON(cfg.httpClient(), req, nil); err != nil {
		return fmt.Errorf("health check %s: %w", cfg.BaseURL, err)
	}
	return nil
}
