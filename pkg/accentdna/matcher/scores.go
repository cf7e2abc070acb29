package matcher

import "sort"

// Score is one label and its similarity.
type Score struct {
	Label string  `json:"label"`
	Value float64 `json:"score"`
}

// ScoreMap maps labels to scores and remembers the order they were scored in.
type ScoreMap struct {
	entries []Score
	index   map[string]int
}

func newScoreMap(capacity int) *ScoreMap {
	return &ScoreMap{
		entries: make([]Score, 0, capacity),
		index:   make(map[string]int, capacity),
	}
}

// NewScoreMap builds a map from scores in the given order. Later duplicates
// replace earlier values in place.
func NewScoreMap(scores ...Score) *ScoreMap {
	m := newScoreMap(len(scores))
	for _, s := range scores {
		m.set(s.Label, s.Value)
	}
	return m
}

func (m *ScoreMap) set(label string, v float64) {
	if i, ok := m.index[label]; ok {
		m.entries[i].Value = v
		return
	}
	m.index[label] = len(m.entries)
	m.entries = append(m.entries, Score{Label: label, Value: v})
}

func (m *ScoreMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Get returns the score recorded for label.
func (m *ScoreMap) Get(label string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	i, ok := m.index[label]
	if !ok {
		return 0, false
	}
	return m.entries[i].Value, true
}

// Labels returns the labels in scoring order.
func (m *ScoreMap) Labels() []string {
	out := make([]string, m.Len())
	for i := range out {
		out[i] = m.entries[i].Label
	}
	return out
}

// Entries returns the scores in scoring order.
func (m *ScoreMap) Entries() []Score {
	out := make([]Score, m.Len())
	if m != nil {
		copy(out, m.entries)
	}
	return out
}

// Sorted returns the scores by descending value. Equal scores keep their
// scoring order.
func (m *ScoreMap) Sorted() []Score {
	out := m.Entries()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out
}

// Best returns the first label holding the maximum score. ok is false when
// the map is empty.
func (m *ScoreMap) Best() (best MatchResult, ok bool) {
	for i, s := range m.Entries() {
		if i == 0 || s.Value > best.Score {
			best = MatchResult{Label: s.Label, Score: s.Value}
		}
	}
	return best, m.Len() > 0
}
