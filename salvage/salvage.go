// Package salvage applies an ordered, budget-limited ladder of fallback
// edits to a span whose difficulty exceeds the configured cap, recording
// exactly what it did and why. It never rejects a span: when budgets run out
// the best-so-far result is returned flagged not-recommended.
package salvage

import (
	"fmt"

	"github.com/cwbudde/algo-arrange/explain"
	"github.com/cwbudde/algo-arrange/instrument"
	"github.com/cwbudde/algo-arrange/microedit"
	"github.com/cwbudde/algo-arrange/phrase"
)

// State identifies a cascade stage or terminal outcome.
type State string

// Cascade states in application order.
const (
	StateStart           State = "START"
	StateTryOctave       State = "TRY_OCTAVE"
	StateTryRhythm       State = "TRY_RHYTHM"
	StateTrySubstitution State = "TRY_SUBSTITUTION"
	StateTryMicro        State = "TRY_MICRO"
	StateDone            State = "DONE"
	StateNotRecommended  State = "NOT_RECOMMENDED"
)

// Budgets caps how many edits each category may apply. It is an immutable
// value: consuming a budget returns a new value.
type Budgets struct {
	Octave       int
	Rhythm       int
	Substitution int
	TotalSteps   int
}

// DefaultBudgets returns the standard caps: one edit per category, three
// steps overall.
func DefaultBudgets() Budgets {
	return Budgets{Octave: 1, Rhythm: 1, Substitution: 1, TotalSteps: 3}
}

func (b Budgets) categoryRemaining(category string) int {
	switch category {
	case "octave":
		return b.Octave
	case "rhythm":
		return b.Rhythm
	case "substitution":
		return b.Substitution
	default:
		// Uncategorized stages draw from the total only.
		return 1
	}
}

func (b Budgets) consume(category string) Budgets {
	next := b
	switch category {
	case "octave":
		next.Octave--
	case "rhythm":
		next.Rhythm--
	case "substitution":
		next.Substitution--
	}
	next.TotalSteps--
	return next
}

// DifficultyFn scores a candidate span. Recomputed fresh after every edit.
type DifficultyFn func(phrase.Span) float64

// Result is the cascade outcome. The span is always usable; Recommended is
// false when the budgets ran out above the cap.
type Result struct {
	Span                phrase.Span
	State               State
	Recommended         bool
	StartingDifficulty  float64
	Difficulty          float64
	AppliedSteps        []string
	Events              []explain.Event
	RemainingBudgets    Budgets
	EditsByCategory     map[string]int
}

// DifficultyDelta returns the total improvement achieved by the cascade.
func (r Result) DifficultyDelta() float64 {
	return r.StartingDifficulty - r.Difficulty
}

// Cascade runs the salvage ladder against a difficulty cap.
type Cascade struct {
	Cap               float64
	Epsilon           float64
	SubstitutionLimit int
}

// NewCascade returns a cascade with the default cap of 0.9.
func NewCascade() Cascade {
	return Cascade{Cap: 0.9, Epsilon: 1e-6, SubstitutionLimit: 2}
}

type stage struct {
	state     State
	category  string
	action    string
	reason    string
	transform func(phrase.Span) phrase.Span
}

func (c Cascade) stages(rng instrument.Range) []stage {
	limit := c.SubstitutionLimit
	if limit <= 0 {
		limit = 2
	}
	return []stage{
		{
			state:    StateTryOctave,
			category: "octave",
			action:   explain.ActionOctaveDownLocal,
			reason:   "shifted phrase down an octave to reduce register load",
			transform: func(s phrase.Span) phrase.Span {
				return microedit.ShiftRunOctave(s, -1)
			},
		},
		{
			state:     StateTryRhythm,
			category:  "rhythm",
			action:    explain.ActionRhythmSimplify,
			reason:    "merged short repeated notes to ease speed constraints",
			transform: microedit.SimplifyRhythm,
		},
		{
			state:    StateTrySubstitution,
			category: "substitution",
			action:   explain.ActionSubstitution,
			reason:   "substituted a neighbor pitch for the most exposed note",
			transform: func(s phrase.Span) phrase.Span {
				return microedit.SubstituteNeighborPitch(s, rng.Center(), float64(rng.Span())*0.35, limit)
			},
		},
		{
			state:     StateTryMicro,
			category:  "",
			action:    explain.ActionDropOrnament,
			reason:    "dropped ornamental note for clearer phrasing",
			transform: microedit.DropOrnamentalEighth,
		},
	}
}

// Run walks the ladder over the span. Each stage applies at most one edit;
// a category with an exhausted budget is skipped; the cascade halts once the
// difficulty reaches the cap or the total step budget is spent.
func (c Cascade) Run(span phrase.Span, rng instrument.Range, budgets Budgets, difficulty DifficultyFn) Result {
	current := span
	score := difficulty(current)
	result := Result{
		Span:               current,
		State:              StateStart,
		Recommended:        true,
		StartingDifficulty: score,
		Difficulty:         score,
		RemainingBudgets:   budgets,
		EditsByCategory:    map[string]int{},
	}
	if score <= c.Cap {
		result.State = StateDone
		return result
	}

	for _, st := range c.stages(rng) {
		if result.Difficulty <= c.Cap {
			break
		}
		if result.RemainingBudgets.TotalSteps <= 0 {
			break
		}
		if result.RemainingBudgets.categoryRemaining(st.category) <= 0 {
			continue
		}

		candidate := st.transform(current)
		if candidate.Equal(current) {
			continue
		}
		candidateScore := difficulty(candidate)
		improves := result.Difficulty-candidateScore > c.Epsilon
		if !improves && candidateScore > c.Cap {
			continue
		}

		result.Events = append(result.Events, explain.FromStep(explain.Step{
			Action:           st.action,
			Reason:           st.reason,
			Before:           current,
			After:            candidate,
			DifficultyBefore: result.Difficulty,
			DifficultyAfter:  candidateScore,
		}))
		current = candidate
		result.Span = current
		result.Difficulty = candidateScore
		result.AppliedSteps = append(result.AppliedSteps, st.action)
		result.RemainingBudgets = result.RemainingBudgets.consume(st.category)
		category := st.category
		if category == "" {
			category = "micro"
		}
		result.EditsByCategory[category]++
		result.State = st.state
	}

	if result.Difficulty <= c.Cap {
		result.State = StateDone
		return result
	}

	result.State = StateNotRecommended
	result.Recommended = false
	result.Events = append(result.Events, explain.FromStep(explain.Step{
		Action:           explain.ActionNotRecommended,
		Reason:           fmt.Sprintf("span remains above difficulty cap (%.2f > %.2f)", result.Difficulty, c.Cap),
		ReasonCode:       "not-recommended",
		Before:           current,
		After:            current,
		DifficultyBefore: result.Difficulty,
		DifficultyAfter:  result.Difficulty,
	}))
	result.AppliedSteps = append(result.AppliedSteps, explain.ActionNotRecommended)
	return result
}
