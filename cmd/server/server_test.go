package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/himanishpuri/AccentDNA/pkg/accentdna"
	"github.com/himanishpuri/AccentDNA/pkg/accentdna/audio"
	"github.com/himanishpuri/AccentDNA/pkg/accentdna/matcher"
	"github.com/himanishpuri/AccentDNA/pkg/logger"
)

// fakeService answers Detect from a canned report and records the uploaded
// file's content.
type fakeService struct {
	report   *accentdna.Report
	err      error
	uploaded []byte
	urls     []string
}

func (f *fakeService) Detect(_ context.Context, path string) (*accentdna.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f.uploaded = data
	if f.err != nil {
		return nil, f.err
	}
	rep := *f.report
	return &rep, nil
}

func (f *fakeService) DetectURL(_ context.Context, url string) (*accentdna.Report, error) {
	f.urls = append(f.urls, url)
	rep := *f.report
	rep.Input = url
	return &rep, nil
}

func (f *fakeService) Transcribe(context.Context, string) (string, error) { return "", nil }

func (f *fakeService) References() []accentdna.ReferenceInfo {
	return []accentdna.ReferenceInfo{
		{Label: "american", Duration: 2 * time.Second},
		{Label: "british", Duration: 3 * time.Second},
	}
}

func (f *fakeService) ReferenceWarnings() []string { return []string{"broken.wav: empty audio"} }

func (f *fakeService) Close() error { return nil }

func britishReport() *accentdna.Report {
	samples := make([]int16, 16000)
	for i := range samples {
		samples[i] = int16(8000 * math.Sin(2*math.Pi*300*float64(i)/16000))
	}
	scores := matcher.NewScoreMap(
		matcher.Score{Label: "american", Value: 0.35},
		matcher.Score{Label: "british", Value: 0.82},
	)
	best, _ := scores.Best()
	return &accentdna.Report{
		ID:         "0000aaaa-0000-0000-0000-000000000000",
		CreatedAt:  time.Now(),
		Waveform:   audio.Waveform{Samples: samples, SampleRate: 16000, Channels: 1},
		Scores:     scores,
		Prediction: &best,
		Elapsed:    120 * time.Millisecond,
	}
}

func newTestServer(t *testing.T, svc *fakeService) http.Handler {
	t.Helper()
	s := NewServer(svc, &ServerConfig{TempDir: t.TempDir(), AllowedOrigins: []string{"*"}}, logger.Discard())
	return s.setupRoutes()
}

func uploadRequest(t *testing.T, field, name string, body []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, name)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(body)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/detect", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestRootPage(t *testing.T) {
	h := newTestServer(t, &fakeService{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`action="/detect"`, "American", "British", "broken.wav"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, &fakeService{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "healthy" || resp.References != 2 {
		t.Errorf("unexpected health %+v", resp)
	}
}

func TestDetectUpload(t *testing.T) {
	svc := &fakeService{report: britishReport()}
	h := newTestServer(t, svc)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "audio", "me.m4a", []byte("fake audio")))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if string(svc.uploaded) != "fake audio" {
		t.Errorf("service saw %q", svc.uploaded)
	}
	body := rec.Body.String()
	for _, want := range []string{"Predicted Accent", "<strong>British</strong>", "0.82", "0.35", "me.m4a", "data:image/png;base64,"} {
		if !strings.Contains(body, want) {
			t.Errorf("report missing %q", want)
		}
	}
	if strings.Index(body, "0.82") > strings.Index(body, "0.35") {
		t.Error("scores should be listed by descending value")
	}
}

func TestDetectURL(t *testing.T) {
	svc := &fakeService{report: britishReport()}
	h := newTestServer(t, svc)

	form := strings.NewReader("url=https://example.com/watch?v=1")
	req := httptest.NewRequest(http.MethodPost, "/detect", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	// url-encoded bodies are not multipart forms
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("url", "https://example.com/watch?v=1")
	mw.Close()
	req = httptest.NewRequest(http.MethodPost, "/detect", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(svc.urls) != 1 || svc.urls[0] != "https://example.com/watch?v=1" {
		t.Errorf("unexpected urls %v", svc.urls)
	}
}

func TestDetectErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unsupported", fmt.Errorf("normalizing x: %w", audio.ErrUnsupportedFormat), http.StatusUnprocessableEntity},
		{"empty", audio.ErrEmptyAudio, http.StatusUnprocessableEntity},
		{"other", io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, &fakeService{report: britishReport(), err: tt.err})

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, uploadRequest(t, "audio", "x.bin", []byte("junk")))
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), "Could not analyze the recording") {
				t.Error("error page should explain the failure")
			}
		})
	}
}

func TestDetectNeedsInput(t *testing.T) {
	h := newTestServer(t, &fakeService{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "other", "x.wav", []byte("x")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/detect", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if got := getClientIP(req); got != "10.0.0.1" {
		t.Errorf("got %s", got)
	}
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	if got := getClientIP(req); got != "1.2.3.4" {
		t.Errorf("got %s", got)
	}
}
