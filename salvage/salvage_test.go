package salvage

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-arrange/explain"
	"github.com/cwbudde/algo-arrange/instrument"
	"github.com/cwbudde/algo-arrange/phrase"
)

func altoRange() instrument.Range {
	return instrument.Range{ID: "alto-c", MinMIDI: 72, MaxMIDI: 88, ComfortCenter: 78}
}

// highRun is a shiftable run sitting an octave too high.
func highRun() phrase.Span {
	notes := []phrase.Note{
		{MIDI: 90, Onset: 0, Duration: 480, Tags: []string{phrase.TagOctaveShiftable}},
		{MIDI: 92, Onset: 480, Duration: 480, Tags: []string{phrase.TagOctaveShiftable}},
	}
	return phrase.NewSpan("high-run", notes, 480, 4)
}

// registerScore grades purely on whether the span still tops the range.
func registerScore(above, below float64) DifficultyFn {
	return func(s phrase.Span) float64 {
		for _, note := range s.Notes() {
			if note.MIDI > 88 {
				return above
			}
		}
		return below
	}
}

func TestRunBelowCapReturnsImmediately(t *testing.T) {
	span := highRun()
	result := NewCascade().Run(span, altoRange(), DefaultBudgets(), func(phrase.Span) float64 { return 0.5 })
	if result.State != StateDone {
		t.Fatalf("state = %q, want DONE", result.State)
	}
	if !result.Recommended {
		t.Fatalf("below-cap span must be recommended")
	}
	if !result.Span.Equal(span) {
		t.Fatalf("below-cap span was edited")
	}
	if len(result.Events) != 0 || len(result.AppliedSteps) != 0 {
		t.Fatalf("below-cap run recorded steps: %+v", result)
	}
	if result.RemainingBudgets != DefaultBudgets() {
		t.Fatalf("budgets consumed without edits: %+v", result.RemainingBudgets)
	}
}

func TestRunOctaveStepReachesCap(t *testing.T) {
	result := NewCascade().Run(highRun(), altoRange(), DefaultBudgets(), registerScore(1.2, 0.85))

	if result.State != StateDone {
		t.Fatalf("state = %q, want DONE", result.State)
	}
	if !result.Recommended {
		t.Fatalf("salvaged span must be recommended")
	}
	if len(result.AppliedSteps) != 1 || result.AppliedSteps[0] != explain.ActionOctaveDownLocal {
		t.Fatalf("applied steps = %v", result.AppliedSteps)
	}
	for _, note := range result.Span.Notes() {
		if note.MIDI > 88 || !note.Ottava {
			t.Fatalf("note not shifted down: %+v", note)
		}
	}
	if result.RemainingBudgets.Octave != 0 || result.RemainingBudgets.TotalSteps != 2 {
		t.Fatalf("budgets = %+v", result.RemainingBudgets)
	}
	if result.EditsByCategory["octave"] != 1 {
		t.Fatalf("edits by category = %v", result.EditsByCategory)
	}
	if math.Abs(result.DifficultyDelta()-0.35) > 1e-9 {
		t.Fatalf("delta = %f, want 0.35", result.DifficultyDelta())
	}
	if math.Abs(explain.DeltaSum(result.Events)-result.DifficultyDelta()) > 1e-9 {
		t.Fatalf("event deltas %f do not telescope to %f",
			explain.DeltaSum(result.Events), result.DifficultyDelta())
	}
}

func TestRunNotRecommendedWhenNothingApplies(t *testing.T) {
	// Comfortable pitches and no tags: every stage is a no-op.
	span := phrase.NewSpan("stuck", []phrase.Note{
		{MIDI: 78, Onset: 0, Duration: 480},
		{MIDI: 80, Onset: 480, Duration: 480},
	}, 480, 4)
	result := NewCascade().Run(span, altoRange(), DefaultBudgets(), func(phrase.Span) float64 { return 1.5 })

	if result.State != StateNotRecommended {
		t.Fatalf("state = %q, want NOT_RECOMMENDED", result.State)
	}
	if result.Recommended {
		t.Fatalf("over-cap span must not be recommended")
	}
	if len(result.AppliedSteps) != 1 || result.AppliedSteps[0] != explain.ActionNotRecommended {
		t.Fatalf("applied steps = %v", result.AppliedSteps)
	}
	if len(result.Events) != 1 {
		t.Fatalf("events = %v", result.Events)
	}
	closing := result.Events[0]
	if closing.Action != explain.ActionNotRecommended || closing.DifficultyDelta != 0 {
		t.Fatalf("closing event = %+v", closing)
	}
	if !result.Span.Equal(span) {
		t.Fatalf("span edited by no-op stages")
	}
}

func TestRunStopsWhenTotalBudgetSpent(t *testing.T) {
	budgets := Budgets{Octave: 1, Rhythm: 1, Substitution: 1, TotalSteps: 1}
	// The octave shift improves but stays above the cap; the single step is
	// then spent and the cascade must close not-recommended.
	result := NewCascade().Run(highRun(), altoRange(), budgets, registerScore(1.2, 1.0))

	if result.State != StateNotRecommended {
		t.Fatalf("state = %q, want NOT_RECOMMENDED", result.State)
	}
	want := []string{explain.ActionOctaveDownLocal, explain.ActionNotRecommended}
	if len(result.AppliedSteps) != len(want) {
		t.Fatalf("applied steps = %v", result.AppliedSteps)
	}
	for i, step := range want {
		if result.AppliedSteps[i] != step {
			t.Fatalf("step %d = %q, want %q", i, result.AppliedSteps[i], step)
		}
	}
	if result.RemainingBudgets.TotalSteps != 0 {
		t.Fatalf("total steps = %d, want 0", result.RemainingBudgets.TotalSteps)
	}
	if math.Abs(explain.DeltaSum(result.Events)-result.DifficultyDelta()) > 1e-9 {
		t.Fatalf("event deltas %f do not telescope to %f",
			explain.DeltaSum(result.Events), result.DifficultyDelta())
	}
}

func TestRunSkipsExhaustedCategory(t *testing.T) {
	budgets := DefaultBudgets()
	budgets.Octave = 0
	result := NewCascade().Run(highRun(), altoRange(), budgets, registerScore(1.2, 0.85))

	if result.State != StateNotRecommended {
		t.Fatalf("state = %q, want NOT_RECOMMENDED", result.State)
	}
	if result.EditsByCategory["octave"] != 0 {
		t.Fatalf("octave stage ran with zero budget: %v", result.EditsByCategory)
	}
	for _, note := range result.Span.Notes() {
		if note.Ottava {
			t.Fatalf("note shifted despite exhausted octave budget: %+v", note)
		}
	}
}
