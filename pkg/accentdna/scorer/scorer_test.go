package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/himanishpuri/AccentDNA/pkg/accentdna/audio"
	"github.com/himanishpuri/AccentDNA/pkg/accentdna/storage"
	"github.com/himanishpuri/AccentDNA/pkg/logger"
)

func tone(freq float64, seconds float64) audio.Waveform {
	n := int(seconds * audio.CanonicalSampleRate)
	s := make([]int16, n)
	for i := range s {
		s[i] = int16(12000 * math.Sin(2*math.Pi*freq*float64(i)/audio.CanonicalSampleRate))
	}
	return audio.Waveform{Samples: s, SampleRate: audio.CanonicalSampleRate, Channels: 1}
}

func TestCosineSimilarity(t *testing.T) {
	got, err := CosineSimilarity([]float64{1, 0}, []float64{1, 0})
	if err != nil || math.Abs(got-1) > 1e-12 {
		t.Errorf("identical vectors: got %v, %v", got, err)
	}

	got, err = CosineSimilarity([]float64{1, 0}, []float64{0, 2})
	if err != nil || math.Abs(got) > 1e-12 {
		t.Errorf("orthogonal vectors: got %v, %v", got, err)
	}

	if _, err := CosineSimilarity([]float64{1}, []float64{1, 2}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if _, err := CosineSimilarity([]float64{0, 0}, []float64{1, 2}); !errors.Is(err, ErrZeroVector) {
		t.Errorf("expected ErrZeroVector, got %v", err)
	}
}

func TestContentKey(t *testing.T) {
	a := tone(200, 0.1)
	b := tone(200, 0.1)
	c := tone(300, 0.1)

	if ContentKey(a) != ContentKey(b) {
		t.Error("equal waveforms must share a key")
	}
	if ContentKey(a) == ContentKey(c) {
		t.Error("different waveforms must not share a key")
	}
}

func TestLazyInitializesOnce(t *testing.T) {
	var calls atomic.Int32
	l := NewLazy(func(context.Context) (Scorer, error) {
		calls.Add(1)
		return Func(func(context.Context, audio.Waveform, audio.Waveform) (float64, error) {
			return 0.5, nil
		}), nil
	})

	for i := 0; i < 3; i++ {
		got, err := l.Score(context.Background(), audio.Waveform{}, audio.Waveform{})
		if err != nil || got != 0.5 {
			t.Fatalf("Score = %v, %v", got, err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("init ran %d times, want 1", calls.Load())
	}
}

func TestLazyRemembersFailure(t *testing.T) {
	var calls atomic.Int32
	l := NewLazy(func(context.Context) (Scorer, error) {
		calls.Add(1)
		return nil, errors.New("model missing")
	})

	for i := 0; i < 2; i++ {
		if _, err := l.Score(context.Background(), audio.Waveform{}, audio.Waveform{}); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("init ran %d times, want 1", calls.Load())
	}
}

func TestLazyRetriesAfterCancelledInit(t *testing.T) {
	var calls atomic.Int32
	l := NewLazy(func(ctx context.Context) (Scorer, error) {
		calls.Add(1)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return Func(func(context.Context, audio.Waveform, audio.Waveform) (float64, error) {
			return 0.7, nil
		}), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Score(ctx, audio.Waveform{}, audio.Waveform{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for cancelled caller, got %v", err)
	}

	got, err := l.Score(context.Background(), audio.Waveform{}, audio.Waveform{})
	if err != nil || got != 0.7 {
		t.Fatalf("Score after cancelled init = %v, %v", got, err)
	}
	if calls.Load() != 2 {
		t.Errorf("init ran %d times, want 2", calls.Load())
	}
}

func TestFactoryVerifySurvivesCancelledFirstRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/verify":
			json.NewEncoder(w).Encode(map[string]any{"score": 0.64})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s, err := New(Config{Backend: BackendVerify, Sidecar: SidecarConfig{BaseURL: srv.URL, TempDir: t.TempDir()}}, logger.Discard())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Score(ctx, tone(200, 0.1), tone(200, 0.1)); err == nil {
		t.Fatal("expected error for cancelled request")
	}

	got, err := s.Score(context.Background(), tone(200, 0.1), tone(200, 0.1))
	if err != nil {
		t.Fatalf("Score failed after a cancelled first request: %v", err)
	}
	if got != 0.64 {
		t.Errorf("got score %v, want 0.64", got)
	}
}

func TestLazyCloseBeforeUse(t *testing.T) {
	l := NewLazy(func(context.Context) (Scorer, error) {
		t.Fatal("init must not run after Close")
		return nil, nil
	})
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := l.Score(context.Background(), audio.Waveform{}, audio.Waveform{}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable after Close, got %v", err)
	}
}

// readWAVPart decodes the named multipart file of r.
func readWAVPart(t *testing.T, r *http.Request, name string) audio.Waveform {
	t.Helper()
	f, _, err := r.FormFile(name)
	if err != nil {
		t.Errorf("missing part %q: %v", name, err)
		return audio.Waveform{}
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		t.Errorf("reading part %q: %v", name, err)
		return audio.Waveform{}
	}
	wf, err := audio.DecodeWAV(bytes.NewReader(raw))
	if err != nil {
		t.Errorf("part %q is not a WAV: %v", name, err)
	}
	return wf
}

func TestVerifyClientScore(t *testing.T) {
	ref := tone(200, 0.2)
	in := tone(400, 0.3)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/verify":
			if got := r.Header.Get("Authorization"); got != "Bearer secret" {
				t.Errorf("unexpected Authorization header %q", got)
			}
			gotRef := readWAVPart(t, r, "reference")
			gotIn := readWAVPart(t, r, "input")
			if !gotRef.Equal(ref) || !gotIn.Equal(in) {
				t.Error("reference/input parts swapped or altered")
			}
			json.NewEncoder(w).Encode(map[string]any{"score": 0.82, "prediction": true})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewVerifyClient(SidecarConfig{BaseURL: srv.URL + "/", APIKey: "secret", TempDir: t.TempDir()})
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health failed: %v", err)
	}

	got, err := c.Score(context.Background(), ref, in)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if got != 0.82 {
		t.Errorf("got score %v, want 0.82", got)
	}
}

func TestVerifyClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewVerifyClient(SidecarConfig{BaseURL: srv.URL, TempDir: t.TempDir()})
	if _, err := c.Score(context.Background(), tone(200, 0.1), tone(200, 0.1)); err == nil {
		t.Fatal("expected error from 500 response")
	}
}

func TestFactoryVerifyUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s, err := New(Config{Backend: BackendVerify, Sidecar: SidecarConfig{BaseURL: url}}, logger.Discard())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := s.Score(context.Background(), tone(200, 0.1), tone(200, 0.1)); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestFactoryUnknownBackend(t *testing.T) {
	if _, err := New(Config{Backend: "telepathy"}, logger.Discard()); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

// countingEmbedder returns [freq-ish, energy] features and counts calls.
type countingEmbedder struct {
	calls int
}

func (e *countingEmbedder) Model() string { return "test" }

func (e *countingEmbedder) Embed(_ context.Context, w audio.Waveform) ([]float64, error) {
	e.calls++
	var crossings, energy float64
	for i, s := range w.Samples {
		energy += float64(s) * float64(s)
		if i > 0 && (s >= 0) != (w.Samples[i-1] >= 0) {
			crossings++
		}
	}
	return []float64{crossings / float64(len(w.Samples)), math.Sqrt(energy) / float64(len(w.Samples))}, nil
}

func TestEmbeddingScorerUsesCache(t *testing.T) {
	cache, err := storage.Open("")
	if err != nil {
		t.Fatalf("storage.Open failed: %v", err)
	}
	emb := &countingEmbedder{}
	s := NewEmbeddingScorer(emb, cache, logger.Discard())
	defer s.Close()

	ref := tone(200, 0.2)
	in := tone(220, 0.2)

	first, err := s.Score(context.Background(), ref, in)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	second, err := s.Score(context.Background(), ref, in)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if first != second {
		t.Errorf("cached score differs: %v vs %v", first, second)
	}
	if emb.calls != 2 {
		t.Errorf("expected 2 model calls (one per distinct waveform), got %d", emb.calls)
	}
}

func TestHTTPEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed" {
			http.NotFound(w, r)
			return
		}
		wf := readWAVPart(t, r, "audio")
		if r.FormValue("model") != "ecapa" {
			t.Errorf("expected model field, got %q", r.FormValue("model"))
		}
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{float64(wf.Frames()), 1}, "model": "ecapa"})
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(SidecarConfig{BaseURL: srv.URL, TempDir: t.TempDir()}, "ecapa")
	vec, err := e.Embed(context.Background(), tone(200, 0.25))
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vec) != 2 || vec[0] != 4000 {
		t.Errorf("unexpected embedding %v", vec)
	}
}

func TestSpectralScores(t *testing.T) {
	s := NewSpectral()
	ctx := context.Background()

	a := tone(300, 0.5)
	same, err := s.Score(ctx, a, a)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if math.Abs(same-1) > 1e-9 {
		t.Errorf("identical audio should score 1, got %v", same)
	}

	near, err := s.Score(ctx, a, tone(310, 0.5))
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	far, err := s.Score(ctx, a, tone(3000, 0.5))
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if !(near > far) {
		t.Errorf("expected closer tone to score higher: near=%v far=%v", near, far)
	}
}

func TestSpectralRejectsShortAndSilentAudio(t *testing.T) {
	s := NewSpectral()
	ctx := context.Background()

	short := tone(300, 0.01) // 160 samples
	if _, err := s.Score(ctx, short, tone(300, 0.5)); !errors.Is(err, ErrTooShort) {
		t.Errorf("expected ErrTooShort, got %v", err)
	}

	silent := audio.Waveform{Samples: make([]int16, 8000), SampleRate: audio.CanonicalSampleRate, Channels: 1}
	if _, err := s.Score(ctx, tone(300, 0.5), silent); !errors.Is(err, ErrZeroVector) {
		t.Errorf("expected ErrZeroVector for silence, got %v", err)
	}
}
