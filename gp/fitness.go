package gp

import (
	"math"

	"github.com/cwbudde/algo-arrange/constraints"
	"github.com/cwbudde/algo-arrange/difficulty"
	"github.com/cwbudde/algo-arrange/instrument"
	"github.com/cwbudde/algo-arrange/phrase"
)

// FitnessVector holds the per-objective costs of a candidate. Every component
// is a cost: lower is better.
type FitnessVector struct {
	Playability float64 `json:"playability"`
	Fidelity    float64 `json:"fidelity"`
	Tessitura   float64 `json:"tessitura"`
	Parsimony   float64 `json:"parsimony"`
}

// FitnessWeights scales the vector into a scalar cost. Fidelity is scaled up
// further for candidates that materially rewrite the source phrase, so heavy
// edits must earn their keep on playability.
type FitnessWeights struct {
	Playability     float64 `json:"playability"`
	Fidelity        float64 `json:"fidelity"`
	Tessitura       float64 `json:"tessitura"`
	Parsimony       float64 `json:"parsimony"`
	HeavyEditFactor float64 `json:"heavy_edit_factor"`
}

// DefaultFitnessWeights favors playable output, with fidelity close behind.
func DefaultFitnessWeights() FitnessWeights {
	return FitnessWeights{
		Playability:     1.0,
		Fidelity:        0.8,
		Tessitura:       0.3,
		Parsimony:       0.05,
		HeavyEditFactor: 3.0,
	}
}

// Evaluator scores candidate spans against the source phrase.
type Evaluator struct {
	Source  phrase.Span
	Range   instrument.Range
	Scorer  difficulty.Scorer
	Weights FitnessWeights

	sourcePitches []int
	sourceContour []int
}

// NewEvaluator builds an evaluator for one source phrase.
func NewEvaluator(source phrase.Span, rng instrument.Range, scorer difficulty.Scorer, weights FitnessWeights) *Evaluator {
	return &Evaluator{
		Source:        source,
		Range:         rng,
		Scorer:        scorer,
		Weights:       weights,
		sourcePitches: pitchSequence(source),
		sourceContour: contour(pitchSequence(source)),
	}
}

// Evaluate computes the fitness vector and weighted cost for one candidate.
func (e *Evaluator) Evaluate(program Program, candidate phrase.Span) (FitnessVector, float64) {
	vec := FitnessVector{
		Playability: e.Scorer.Score(candidate, e.Range).Value,
		Fidelity:    e.fidelityCost(candidate),
		Tessitura:   e.tessituraCost(candidate),
		Parsimony:   float64(len(program)),
	}
	return vec, e.weighted(vec, program, candidate)
}

func (e *Evaluator) weighted(vec FitnessVector, program Program, candidate phrase.Span) float64 {
	fidelityWeight := e.Weights.Fidelity
	if len(program) > 0 && !candidate.Equal(e.Source) {
		factor := e.Weights.HeavyEditFactor
		if factor < 1 {
			factor = 1
		}
		fidelityWeight *= factor
	}
	return e.Weights.Playability*vec.Playability +
		fidelityWeight*vec.Fidelity +
		e.Weights.Tessitura*vec.Tessitura +
		e.Weights.Parsimony*vec.Parsimony
}

// fidelityCost blends melodic contour agreement, longest-common-subsequence
// pitch retention, and mean absolute pitch drift.
func (e *Evaluator) fidelityCost(candidate phrase.Span) float64 {
	pitches := pitchSequence(candidate)
	if len(e.sourcePitches) == 0 {
		if len(pitches) == 0 {
			return 0
		}
		return 1
	}
	contourSim := contourSimilarity(e.sourceContour, contour(pitches))
	lcsRatio := float64(lcsLength(e.sourcePitches, pitches)) / float64(len(e.sourcePitches))
	drift := pitchDrift(e.sourcePitches, pitches) / 12.0
	if drift > 1 {
		drift = 1
	}
	cost := 0.45*(1-contourSim) + 0.45*(1-lcsRatio) + 0.10*drift
	if cost < 0 {
		return 0
	}
	return cost
}

func (e *Evaluator) tessituraCost(candidate phrase.Span) float64 {
	settings := constraints.TessituraSettings{
		ComfortCenter: e.Range.Center(),
		Tolerance:     constraints.DefaultTessituraTolerance,
		Weight:        1.0,
	}
	bias := constraints.TessituraBias(candidate, settings)
	span := float64(e.Range.Span())
	if span <= 0 {
		return bias
	}
	return bias / span
}

func pitchSequence(span phrase.Span) []int {
	notes := span.Notes()
	pitches := make([]int, 0, len(notes))
	for _, note := range notes {
		if note.HasTag(phrase.TagRest) {
			continue
		}
		pitches = append(pitches, note.MIDI)
	}
	return pitches
}

// contour maps a pitch sequence to interval signs.
func contour(pitches []int) []int {
	if len(pitches) < 2 {
		return nil
	}
	out := make([]int, len(pitches)-1)
	for i := 1; i < len(pitches); i++ {
		diff := pitches[i] - pitches[i-1]
		switch {
		case diff > 0:
			out[i-1] = 1
		case diff < 0:
			out[i-1] = -1
		}
	}
	return out
}

func contourSimilarity(a, b []int) float64 {
	if len(a) == 0 {
		if len(b) == 0 {
			return 1
		}
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	matches := 0
	for i := 0; i < n; i++ {
		if a[i] == b[i] {
			matches++
		}
	}
	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}
	return float64(matches) / float64(longer)
}

func lcsLength(a, b []int) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// pitchDrift is the mean absolute pitch difference over the aligned prefix.
func pitchDrift(a, b []int) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 12
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += math.Abs(float64(a[i] - b[i]))
	}
	return sum / float64(n)
}
