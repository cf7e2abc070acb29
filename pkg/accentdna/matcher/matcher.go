// Package matcher scores an input recording against every reference sample
// and picks the closest accent.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/himanishpuri/AccentDNA/pkg/accentdna/audio"
	"github.com/himanishpuri/AccentDNA/pkg/accentdna/reference"
	"github.com/himanishpuri/AccentDNA/pkg/accentdna/scorer"
	"github.com/himanishpuri/AccentDNA/pkg/logger"
)

// ErrNoMatch means there was nothing to compare against.
var ErrNoMatch = errors.New("no references to match against")

// FailedScore is recorded for a reference whose scoring failed.
const FailedScore = 0.0

// ReferenceScoringError reports a per-reference failure. Matching continues
// past it.
type ReferenceScoringError struct {
	Label string
	Err   error
}

func (e *ReferenceScoringError) Error() string {
	return fmt.Sprintf("could not score %q: %v", e.Label, e.Err)
}

func (e *ReferenceScoringError) Unwrap() error { return e.Err }

// errNotFinite is the cause recorded when a scorer returns NaN or ±Inf.
var errNotFinite = errors.New("scorer returned a non-finite score")

// MatchResult is the predicted accent.
type MatchResult struct {
	Label string
	Score float64
}

// Result is everything one Match call produced.
type Result struct {
	Scores   *ScoreMap
	Best     MatchResult
	Failures []*ReferenceScoringError
	Elapsed  time.Duration
}

// attempt is the outcome of scoring one reference.
type attempt struct {
	score float64
	err   error
}

func (a attempt) ok() bool { return a.err == nil }

type Matcher struct {
	scorer scorer.Scorer
	log    logger.Leveled
}

func New(s scorer.Scorer, log logger.Leveled) *Matcher {
	return &Matcher{scorer: s, log: logger.OrDefault(log)}
}

// Match scores input against refs in label order. Failed references score
// FailedScore and are listed in Result.Failures; the prediction is the first
// label holding the maximum score.
func (m *Matcher) Match(ctx context.Context, input audio.Waveform, refs []reference.Entry) (*Result, error) {
	if len(refs) == 0 {
		return nil, ErrNoMatch
	}

	start := time.Now()
	ordered := orderByLabel(refs)
	scores := newScoreMap(len(ordered))
	var failures []*ReferenceScoringError

	for _, ref := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		a := m.try(ctx, ref, input)
		if !a.ok() {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failure := &ReferenceScoringError{Label: ref.Label, Err: a.err}
			m.log.Warnf("%v; recording %.1f", failure, FailedScore)
			failures = append(failures, failure)
			scores.set(ref.Label, FailedScore)
			continue
		}

		m.log.Debugf("%s: %.4f", ref.Label, a.score)
		scores.set(ref.Label, a.score)
	}

	best, _ := scores.Best()
	return &Result{
		Scores:   scores,
		Best:     best,
		Failures: failures,
		Elapsed:  time.Since(start),
	}, nil
}

func (m *Matcher) try(ctx context.Context, ref reference.Entry, input audio.Waveform) attempt {
	s, err := m.scorer.Score(ctx, ref.Waveform, input)
	if err != nil {
		return attempt{err: err}
	}
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return attempt{err: fmt.Errorf("%w (%v)", errNotFinite, s)}
	}
	return attempt{score: s}
}

// orderByLabel returns refs sorted by label. When a label appears twice the
// later entry replaces the earlier one.
func orderByLabel(refs []reference.Entry) []reference.Entry {
	latest := make(map[string]int, len(refs))
	for i, r := range refs {
		latest[r.Label] = i
	}

	out := make([]reference.Entry, 0, len(latest))
	for i, r := range refs {
		if latest[r.Label] == i {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}
