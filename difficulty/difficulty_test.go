package difficulty

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-arrange/instrument"
	"github.com/cwbudde/algo-arrange/phrase"
)

func altoRange() instrument.Range {
	return instrument.Range{
		ID:            "alto-c",
		MinMIDI:       72,
		MaxMIDI:       88,
		ComfortCenter: 78,
	}
}

func span(notes ...phrase.Note) phrase.Span {
	return phrase.NewSpan("test", notes, 480, 4)
}

func TestThresholdLabels(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		score float64
		want  Label
	}{
		{0, Easy},
		{0.35, Easy},
		{0.36, Medium},
		{0.65, Medium},
		{0.66, Hard},
		{0.9, Hard},
		{0.91, VeryHard},
		{1.1, VeryHard},
		{2.5, VeryHard},
	}
	for _, c := range cases {
		if got := th.Label(c.score); got != c.want {
			t.Fatalf("Label(%f) = %q, want %q", c.score, got, c.want)
		}
	}
}

func TestScoreEmptySpan(t *testing.T) {
	sc := NewScorer(120)
	got := sc.Score(phrase.Span{}, altoRange())
	if got.Value != 0 || got.Label != Easy {
		t.Fatalf("empty span score = %+v, want 0/easy", got)
	}
}

func TestClassifyNoteBuckets(t *testing.T) {
	rng := altoRange() // span 16, center 78
	cases := []struct {
		midi int
		want Label
	}{
		{78, Easy},     // at center
		{81, Easy},     // distance 3 <= 3.2
		{82, Medium},   // distance 4 <= 5.6
		{85, Hard},     // distance 7, in range
		{89, Hard},     // one above max
		{91, VeryHard}, // beyond the overblow margin
		{69, VeryHard},
	}
	for _, c := range cases {
		if got := classifyNote(c.midi, rng); got != c.want {
			t.Fatalf("classifyNote(%d) = %q, want %q", c.midi, got, c.want)
		}
	}
}

func TestSummarizeBucketsByDuration(t *testing.T) {
	sc := NewScorer(120)
	s := span(
		phrase.Note{MIDI: 78, Onset: 0, Duration: 480},    // easy
		phrase.Note{MIDI: 85, Onset: 480, Duration: 240},  // hard, leap of 7
		phrase.Note{MIDI: 91, Onset: 720, Duration: 240},  // very hard
	)
	sum := sc.Summarize(s, altoRange())
	if sum.Easy != 480 || sum.Hard != 240 || sum.VeryHard != 240 {
		t.Fatalf("buckets = %+v", sum)
	}
	if sum.TotalDuration != 960 {
		t.Fatalf("total duration = %f", sum.TotalDuration)
	}
	// Both transitions exceed the tritone threshold.
	if sum.LeapExposure <= 0 {
		t.Fatalf("leap exposure = %f, want positive", sum.LeapExposure)
	}
	want := (0.0*480 + 7.0*240 + 13.0*240) / 960.0
	if math.Abs(sum.TessituraDistance-want) > 1e-9 {
		t.Fatalf("tessitura distance = %f, want %f", sum.TessituraDistance, want)
	}
}

func TestScoreCanExceedOne(t *testing.T) {
	sc := NewScorer(120)
	// Out-of-range leaps stack the base ratio with the leap penalty.
	s := span(
		phrase.Note{MIDI: 95, Onset: 0, Duration: 240},
		phrase.Note{MIDI: 70, Onset: 240, Duration: 240},
		phrase.Note{MIDI: 95, Onset: 480, Duration: 240},
		phrase.Note{MIDI: 70, Onset: 720, Duration: 240},
	)
	got := sc.Score(s, altoRange())
	if got.Value <= 1.0 {
		t.Fatalf("score = %f, want above 1.0", got.Value)
	}
	if got.Label != VeryHard {
		t.Fatalf("label = %q, want very-hard", got.Label)
	}
}

func TestGraceNotesReduceScore(t *testing.T) {
	sc := NewScorer(120)
	plain := span(
		phrase.Note{MIDI: 85, Onset: 0, Duration: 480},
		phrase.Note{MIDI: 86, Onset: 480, Duration: 480},
	)
	graced := span(
		phrase.Note{MIDI: 85, Onset: 0, Duration: 480, Tags: []string{phrase.TagGrace}},
		phrase.Note{MIDI: 86, Onset: 480, Duration: 480},
	)
	rng := altoRange()
	if sc.Score(graced, rng).Value >= sc.Score(plain, rng).Value {
		t.Fatalf("grace tag should lower the score: graced %f, plain %f",
			sc.Score(graced, rng).Value, sc.Score(plain, rng).Value)
	}
}

func TestFastSwitchExposureNeedsDisjointWindways(t *testing.T) {
	rng := altoRange()
	rng.Windways = map[int][]int{
		78: {0},
		84: {1},
	}
	sc := NewScorer(120)
	s := span(
		phrase.Note{MIDI: 78, Onset: 0, Duration: 240},
		phrase.Note{MIDI: 84, Onset: 240, Duration: 240},
	)
	if sum := sc.Summarize(s, rng); sum.FastSwitchExposure <= 0 {
		t.Fatalf("disjoint windways should register fast-switch exposure: %+v", sum)
	}

	rng.Windways[84] = []int{0, 1}
	if sum := sc.Summarize(s, rng); sum.FastSwitchExposure != 0 {
		t.Fatalf("shared windway must not count as fast switch: %+v", sum)
	}
}

func TestSubholeExposureFromPairLimits(t *testing.T) {
	rng := altoRange()
	rng.PairLimits = map[instrument.PitchPair]instrument.PairLimit{
		instrument.NewPitchPair(72, 74): {MaxHz: 2, Ease: 0.5},
	}
	sc := NewScorer(120)
	s := span(
		phrase.Note{MIDI: 72, Onset: 0, Duration: 480},
		phrase.Note{MIDI: 74, Onset: 480, Duration: 480},
	)
	sum := sc.Summarize(s, rng)
	if math.Abs(sum.SubholeExposure-0.5) > 1e-9 {
		t.Fatalf("subhole exposure = %f, want 0.5", sum.SubholeExposure)
	}
}

func TestNewScorerDefaultsTempo(t *testing.T) {
	sc := NewScorer(-3)
	if sc.BPM != 120 {
		t.Fatalf("bpm = %f, want 120 fallback", sc.BPM)
	}
	if sc.Weights != DefaultWeights() {
		t.Fatalf("weights = %+v", sc.Weights)
	}
}
