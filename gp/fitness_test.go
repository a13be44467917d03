package gp

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-arrange/difficulty"
	"github.com/cwbudde/algo-arrange/instrument"
)

func altoRange() instrument.Range {
	return instrument.Range{ID: "alto-c", MinMIDI: 72, MaxMIDI: 88, ComfortCenter: 78}
}

func TestEvaluateIdentityHasZeroFidelityCost(t *testing.T) {
	source := quarters(74, 76, 78, 76)
	eval := NewEvaluator(source, altoRange(), difficulty.NewScorer(120), DefaultFitnessWeights())

	vec, cost := eval.Evaluate(Program{}, source)
	if vec.Fidelity != 0 {
		t.Fatalf("identity fidelity = %f, want 0", vec.Fidelity)
	}
	if vec.Parsimony != 0 {
		t.Fatalf("identity parsimony = %f, want 0", vec.Parsimony)
	}
	if cost < 0 {
		t.Fatalf("cost = %f, want non-negative", cost)
	}
}

func TestEvaluatePenalizesHeavyEdits(t *testing.T) {
	source := quarters(74, 76, 78, 76)
	eval := NewEvaluator(source, altoRange(), difficulty.NewScorer(120), DefaultFitnessWeights())

	program := Program{GlobalTranspose{Semitones: 7}}
	candidate := program.Apply(source)
	vec, _ := eval.Evaluate(program, candidate)
	if vec.Fidelity <= 0 {
		t.Fatalf("transposed candidate fidelity = %f, want positive", vec.Fidelity)
	}

	// Same vector weighted without the edit must cost less, since the heavy
	// edit factor only fires for programs that changed the span.
	light := eval.weighted(vec, Program{}, source)
	heavy := eval.weighted(vec, program, candidate)
	if heavy <= light {
		t.Fatalf("heavy edit cost %f not above light cost %f", heavy, light)
	}
}

func TestFidelityCostGrowsWithDamage(t *testing.T) {
	source := quarters(74, 76, 78, 76, 74, 72)
	eval := NewEvaluator(source, altoRange(), difficulty.NewScorer(120), DefaultFitnessWeights())

	// Transposition keeps the contour; the scramble wrecks it.
	transposed := source.Transpose(2)
	scrambled := quarters(88, 72, 85, 73, 86, 74)

	small := eval.fidelityCost(transposed)
	large := eval.fidelityCost(scrambled)
	if small <= 0 || large <= small {
		t.Fatalf("fidelity costs: transposed %f, scrambled %f", small, large)
	}
}

func TestContourHelpers(t *testing.T) {
	got := contour([]int{70, 72, 72, 69})
	want := []int{1, 0, -1}
	if len(got) != len(want) {
		t.Fatalf("contour = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("contour = %v, want %v", got, want)
		}
	}

	if sim := contourSimilarity(want, want); sim != 1 {
		t.Fatalf("self similarity = %f, want 1", sim)
	}
	if sim := contourSimilarity(want, []int{-1, 0, 1}); math.Abs(sim-1.0/3.0) > 1e-9 {
		t.Fatalf("similarity = %f, want 1/3", sim)
	}
	if sim := contourSimilarity(nil, nil); sim != 1 {
		t.Fatalf("empty similarity = %f, want 1", sim)
	}
}

func TestLCSLength(t *testing.T) {
	if got := lcsLength([]int{72, 74, 76, 78}, []int{72, 76, 78}); got != 3 {
		t.Fatalf("lcs = %d, want 3", got)
	}
	if got := lcsLength([]int{72, 74}, nil); got != 0 {
		t.Fatalf("lcs against empty = %d, want 0", got)
	}
}

func TestPitchDrift(t *testing.T) {
	if got := pitchDrift([]int{70, 72}, []int{72, 72}); math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("drift = %f, want 1.0", got)
	}
	if got := pitchDrift([]int{70}, nil); got != 12 {
		t.Fatalf("drift against empty = %f, want 12", got)
	}
}
