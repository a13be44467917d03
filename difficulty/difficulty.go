// Package difficulty scores a span's playability on a given instrument as a
// continuous non-negative value plus a discrete label. Scoring is pure and
// deterministic; nothing is cached across edits.
package difficulty

import (
	"math"

	"github.com/cwbudde/algo-arrange/constraints"
	"github.com/cwbudde/algo-arrange/instrument"
	"github.com/cwbudde/algo-arrange/phrase"
)

// Label is a discrete difficulty bucket.
type Label string

// Difficulty labels, from easiest to hardest.
const (
	Easy     Label = "easy"
	Medium   Label = "medium"
	Hard     Label = "hard"
	VeryHard Label = "very-hard"
)

// Thresholds maps a continuous score onto labels. Scores above VeryHard are
// still labeled VeryHard.
type Thresholds struct {
	Easy     float64
	Medium   float64
	Hard     float64
	VeryHard float64
}

// DefaultThresholds returns the standard label boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{Easy: 0.35, Medium: 0.65, Hard: 0.9, VeryHard: 1.1}
}

// Label buckets a score.
func (t Thresholds) Label(score float64) Label {
	switch {
	case score <= t.Easy:
		return Easy
	case score <= t.Medium:
		return Medium
	case score <= t.Hard:
		return Hard
	default:
		return VeryHard
	}
}

// Weights are the fixed aggregation weights of the scoring model.
type Weights struct {
	Leap       float64
	FastSwitch float64
	Subhole    float64
	Tessitura  float64
	Breath     float64
	GraceBonus float64
}

// DefaultWeights returns the tuned scoring weights.
func DefaultWeights() Weights {
	return Weights{
		Leap:       0.75,
		FastSwitch: 0.6,
		Subhole:    0.5,
		Tessitura:  0.3,
		Breath:     0.25,
		GraceBonus: 0.1,
	}
}

// LeapIntervalThreshold is the largest consecutive interval, in semitones,
// that does not count as a leap. Anything beyond a tritone is exposed.
const LeapIntervalThreshold = 6

// Summary aggregates the playability metrics of a span on one instrument.
// Durations are in pulses.
type Summary struct {
	Easy     float64
	Medium   float64
	Hard     float64
	VeryHard float64

	TessituraDistance  float64
	LeapExposure       float64
	FastSwitchExposure float64
	SubholeExposure    float64
	BreathLoad         float64
	TotalDuration      float64
	GraceDuration      float64
}

// HardAndVeryHard returns the combined duration of the two hardest buckets.
func (s Summary) HardAndVeryHard() float64 {
	return s.Hard + s.VeryHard
}

// Score is a continuous difficulty value with its derived label.
type Score struct {
	Value float64
	Label Label
}

// Scorer evaluates spans. The zero value is not usable; construct with
// NewScorer.
type Scorer struct {
	Weights    Weights
	Thresholds Thresholds
	Breath     constraints.BreathSettings
	BPM        float64
}

// NewScorer returns a scorer with default weights, thresholds, and breath
// settings at the given tempo.
func NewScorer(bpm float64) Scorer {
	if bpm <= 0 {
		bpm = 120
	}
	return Scorer{
		Weights:    DefaultWeights(),
		Thresholds: DefaultThresholds(),
		Breath:     constraints.DefaultBreathSettings(),
		BPM:        bpm,
	}
}

func classifyNote(midi int, rng instrument.Range) Label {
	if midi < rng.MinMIDI-2 || midi > rng.MaxMIDI+2 {
		return VeryHard
	}
	if midi < rng.MinMIDI || midi > rng.MaxMIDI {
		return Hard
	}
	span := float64(rng.Span())
	distance := math.Abs(float64(midi) - rng.Center())
	if distance <= span*0.2 {
		return Easy
	}
	if distance <= span*0.35 {
		return Medium
	}
	return Hard
}

func disjointWindways(a, b []int) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return false
			}
		}
	}
	return true
}

// Summarize computes the full metric set for a span. An empty span yields
// the zero summary.
func (sc Scorer) Summarize(span phrase.Span, rng instrument.Range) Summary {
	var sum Summary
	notes := span.Notes()
	if len(notes) == 0 {
		return sum
	}

	center := rng.Center()
	weightedDistance := 0.0
	for _, note := range notes {
		d := float64(note.Duration)
		sum.TotalDuration += d
		if note.HasTag(phrase.TagGrace) {
			sum.GraceDuration += d
		}
		switch classifyNote(note.MIDI, rng) {
		case Easy:
			sum.Easy += d
		case Medium:
			sum.Medium += d
		case Hard:
			sum.Hard += d
		case VeryHard:
			sum.VeryHard += d
		}
		weightedDistance += d * math.Abs(float64(note.MIDI)-center)
	}

	sixteenth := span.SixteenthDuration()
	leapWeight := 0.0
	fastSwitchWeight := 0.0
	subholeDuration := 0.0
	for i := 0; i+1 < len(notes); i++ {
		first, second := notes[i], notes[i+1]
		pairWeight := (float64(first.Duration) + float64(second.Duration)) / 2.0
		interval := second.MIDI - first.MIDI
		if interval < 0 {
			interval = -interval
		}
		if interval > LeapIntervalThreshold {
			leapWeight += pairWeight
		}

		transition := first.Duration
		if second.Duration < transition {
			transition = second.Duration
		}
		if isSubholeTransition(first, second, rng) {
			subholeDuration += float64(transition)
		}
		if disjointWindways(rng.WindwaysFor(first.MIDI), rng.WindwaysFor(second.MIDI)) {
			capped := transition
			if sixteenth < capped {
				capped = sixteenth
			}
			fastSwitchWeight += float64(capped)
		}
	}

	if sum.TotalDuration > 0 {
		sum.TessituraDistance = weightedDistance / sum.TotalDuration
		sum.LeapExposure = math.Min(1.0, leapWeight/sum.TotalDuration)
		sum.FastSwitchExposure = math.Min(1.0, fastSwitchWeight/sum.TotalDuration)
		sum.SubholeExposure = math.Min(1.0, subholeDuration/sum.TotalDuration)
	}

	tempo := constraints.NewTempoContext(sc.BPM, span.PulsesPerQuarter())
	plan := constraints.PlanBreaths(span, tempo, sc.Breath)
	if segments := len(plan.SegmentDurations); segments > 0 {
		sum.BreathLoad = math.Min(1.0, float64(len(plan.BreathPoints))/float64(segments))
	}
	return sum
}

func isSubholeTransition(first, second phrase.Note, rng instrument.Range) bool {
	if _, ok := rng.PairLimitFor(first.MIDI, second.MIDI); ok {
		return true
	}
	if first.HasTag(phrase.TagSubhole) || second.HasTag(phrase.TagSubhole) {
		return true
	}
	return rng.IsSubholePitch(first.MIDI) || rng.IsSubholePitch(second.MIDI)
}

// ScoreSummary converts a summary into the continuous score and label.
func (sc Scorer) ScoreSummary(sum Summary, rng instrument.Range) Score {
	total := sum.Easy + sum.Medium + sum.Hard + sum.VeryHard
	if total <= 0 {
		return Score{Value: 0, Label: sc.Thresholds.Label(0)}
	}
	base := sum.HardAndVeryHard() / total
	tessNorm := math.Min(1.0, sum.TessituraDistance/float64(rng.Span()))
	value := base +
		sc.Weights.Leap*math.Min(1.0, sum.LeapExposure) +
		sc.Weights.FastSwitch*math.Min(1.0, sum.FastSwitchExposure) +
		sc.Weights.Subhole*math.Min(1.0, sum.SubholeExposure) +
		sc.Weights.Tessitura*tessNorm +
		sc.Weights.Breath*math.Min(1.0, sum.BreathLoad)
	if sum.TotalDuration > 0 && sum.GraceDuration > 0 {
		graceRatio := math.Min(1.0, sum.GraceDuration/sum.TotalDuration)
		value -= graceRatio * sc.Weights.GraceBonus
	}
	if value < 0 {
		value = 0
	}
	return Score{Value: value, Label: sc.Thresholds.Label(value)}
}

// Score evaluates a span in one call. An empty span scores zero (Easy).
func (sc Scorer) Score(span phrase.Span, rng instrument.Range) Score {
	if span.Empty() {
		return Score{Value: 0, Label: sc.Thresholds.Label(0)}
	}
	return sc.ScoreSummary(sc.Summarize(span, rng), rng)
}
