// Package aggregator merges the per-engine raw result lists produced by a
// fan-out search into one deduplicated, scored, sorted SearchResults.
package aggregator

import (
	"sort"

	"github.com/a3s-lab/metasearch/internal/result"
)

// Priority selects how a bucket's positions contribute to its score.
type Priority int

const (
	// PriorityNormal scores each position as weight/position (the default).
	PriorityNormal Priority = iota
	// PriorityHigh scores each position as weight, ignoring rank.
	PriorityHigh
	// PriorityLow always scores zero, regardless of positions.
	PriorityLow
)

// EngineResults is one engine's contribution: its name and its raw, ranked
// result list.
type EngineResults struct {
	EngineName string
	Results    []result.RawResult
}

// Aggregator merges EngineResults into a sorted, deduplicated SearchResults.
// It is stateless across calls; only engine weights are configuration,
// never shared mutable state. One Aggregator may be reused across many
// concurrent Aggregate calls.
type Aggregator struct {
	// Weights maps engine name to its configured ranking weight. An engine
	// absent from this map is treated as weight 1.0.
	Weights map[string]float64
	// Priority controls how positions contribute to score. Defaults to
	// PriorityNormal (the zero value).
	Priority Priority
}

// New returns an Aggregator with the given per-engine weights.
func New(weights map[string]float64) *Aggregator {
	return &Aggregator{Weights: weights}
}

type bucket struct {
	result.RawResult
	normalizedURL string
	engines       []string
	positions     []int
}

// Aggregate merges all EngineResults into a single sorted, deduplicated
// list. For identical engine ordering and identical per-engine result
// ordering, the output is bit-exact identical across calls (determinism
// invariant).
func (a *Aggregator) Aggregate(inputs []EngineResults) []result.MergedResult {
	order := make([]string, 0)
	buckets := make(map[string]*bucket)

	for _, in := range inputs {
		for i, r := range in.Results {
			pos := i + 1
			key := result.NormalizeURL(r.URL)
			b, ok := buckets[key]
			if !ok {
				b = &bucket{
					RawResult:     r,
					normalizedURL: key,
					engines:       []string{in.EngineName},
					positions:     []int{pos},
				}
				buckets[key] = b
				order = append(order, key)
				continue
			}
			mergeField(b, r)
			b.engines = append(b.engines, in.EngineName)
			b.positions = append(b.positions, pos)
		}
	}

	merged := make([]result.MergedResult, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		merged = append(merged, result.MergedResult{
			URL:           b.URL,
			Title:         b.Title,
			Content:       b.Content,
			ResultType:    b.ResultType,
			Thumbnail:     b.Thumbnail,
			PublishedDate: b.PublishedDate,
			Engines:       b.engines,
			Positions:     b.positions,
			Score:         a.score(b.engines, b.positions),
		})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		// Deterministic tiebreak: normalized URL ascending.
		return result.NormalizeURL(merged[i].URL) < result.NormalizeURL(merged[j].URL)
	})

	return merged
}

// mergeField applies the field-by-field merge policy: keep the longer of
// title/content (ties favor the existing value); fill thumbnail/published
// date only if empty; keep the URL first seen.
func mergeField(b *bucket, r result.RawResult) {
	if len(r.Title) > len(b.Title) {
		b.Title = r.Title
	}
	if len(r.Content) > len(b.Content) {
		b.Content = r.Content
	}
	if b.Thumbnail == "" && r.Thumbnail != "" {
		b.Thumbnail = r.Thumbnail
	}
	if b.PublishedDate == "" && r.PublishedDate != "" {
		b.PublishedDate = r.PublishedDate
	}
}

func (a *Aggregator) weight(engine string) float64 {
	if a.Weights == nil {
		return 1.0
	}
	if w, ok := a.Weights[engine]; ok {
		return w
	}
	return 1.0
}

// score computes the bucket weight W = (product of engine weights) *
// |engines|, then sums W/position across positions for PriorityNormal, W
// per position for PriorityHigh, or always 0 for PriorityLow.
func (a *Aggregator) score(engines []string, positions []int) float64 {
	if a.Priority == PriorityLow {
		return 0
	}

	product := 1.0
	for _, e := range engines {
		product *= a.weight(e)
	}
	w := product * float64(len(engines))

	score := 0.0
	for _, p := range positions {
		if a.Priority == PriorityHigh {
			score += w
			continue
		}
		score += w / float64(p)
	}
	return score
}
