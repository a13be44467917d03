// Package softkey sweeps candidate transpositions of a span and ranks them
// by playing difficulty, never failing hard: every offset gets a score.
package softkey

import (
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/cwbudde/algo-arrange/constraints"
	"github.com/cwbudde/algo-arrange/difficulty"
	"github.com/cwbudde/algo-arrange/instrument"
	"github.com/cwbudde/algo-arrange/phrase"
)

// KeyResult scores one transposition candidate.
type KeyResult struct {
	Offset            int     `json:"offset_semitones"`
	Difficulty        float64 `json:"difficulty"`
	TessituraDistance float64 `json:"tessitura_distance"`
	Rationale         string  `json:"rationale"`
}

// Options controls the sweep. The zero value uses the standard offsets
// [-10, +10], top 4, and one worker per CPU.
type Options struct {
	MinOffset int
	MaxOffset int
	TopK      int
	Workers   int
}

func (o Options) normalized() Options {
	if o.MinOffset == 0 && o.MaxOffset == 0 {
		o.MinOffset, o.MaxOffset = -10, 10
	}
	if o.TopK <= 0 {
		o.TopK = 4
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}

// Search evaluates every semitone offset in the configured closed range:
// the span is transposed, passed through the constraint enforcer (no
// salvage edits), and scored. Candidate evaluations run in parallel; each
// worker reads only immutable inputs, so the ranking is deterministic
// regardless of worker count. Results are sorted ascending by (difficulty,
// tessitura distance), with (|offset|, offset) breaking exact ties, and
// truncated to the top K unique offsets.
func Search(span phrase.Span, rng instrument.Range, scorer difficulty.Scorer, opts Options) []KeyResult {
	o := opts.normalized()
	count := o.MaxOffset - o.MinOffset + 1
	if count <= 0 || span.Empty() {
		return nil
	}

	tempo := constraints.NewTempoContext(scorer.BPM, span.PulsesPerQuarter())
	results := make([]KeyResult, count)

	var wg sync.WaitGroup
	jobs := make(chan int)
	for w := 0; w < o.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				offset := o.MinOffset + idx
				results[idx] = evaluateOffset(span, offset, rng, scorer, tempo)
			}
		}()
	}
	for idx := 0; idx < count; idx++ {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Difficulty != b.Difficulty {
			return a.Difficulty < b.Difficulty
		}
		if a.TessituraDistance != b.TessituraDistance {
			return a.TessituraDistance < b.TessituraDistance
		}
		if abs(a.Offset) != abs(b.Offset) {
			return abs(a.Offset) < abs(b.Offset)
		}
		return a.Offset < b.Offset
	})
	if len(results) > o.TopK {
		results = results[:o.TopK]
	}
	return results
}

func evaluateOffset(span phrase.Span, offset int, rng instrument.Range, scorer difficulty.Scorer, tempo constraints.TempoContext) KeyResult {
	candidate := span.Transpose(offset)
	enforced := constraints.EnforceSubholeSpeed(candidate, tempo, rng, nil)
	summary := scorer.Summarize(enforced.Span, rng)
	score := scorer.ScoreSummary(summary, rng)
	return KeyResult{
		Offset:            offset,
		Difficulty:        score.Value,
		TessituraDistance: summary.TessituraDistance,
		Rationale: fmt.Sprintf("offset %+d: difficulty %.3f (%s), tessitura %.2f",
			offset, score.Value, score.Label, summary.TessituraDistance),
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Offsets returns the candidate transpositions in ranked order, always
// including the identity offset so callers can fall back to the original
// key.
func Offsets(results []KeyResult) []int {
	out := make([]int, 0, len(results)+1)
	seen := make(map[int]struct{}, len(results)+1)
	for _, r := range results {
		if _, ok := seen[r.Offset]; ok {
			continue
		}
		seen[r.Offset] = struct{}{}
		out = append(out, r.Offset)
	}
	if _, ok := seen[0]; !ok {
		out = append(out, 0)
	}
	return out
}
