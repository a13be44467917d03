// Package folding chooses per-note octave assignments that bring a span
// into an instrument's playable range. With the dp-slack feature enabled a
// dynamic program trades range violations against contour damage; without
// it, out-of-range notes are fixed-clamped to the nearest boundary octave.
package folding

import (
	"github.com/cwbudde/algo-arrange/explain"
	"github.com/cwbudde/algo-arrange/instrument"
	"github.com/cwbudde/algo-arrange/phrase"
)

// Settings holds the DP penalties. All values are non-negative.
type Settings struct {
	ShiftPenalty           float64
	OutOfRangeWeight       float64
	LeapThreshold          int
	LeapPenalty            float64
	ShiftTransitionPenalty float64
	PitchDeviationWeight   float64
}

// DefaultSettings returns the tuned folding penalties.
func DefaultSettings() Settings {
	return Settings{
		ShiftPenalty:           0.5,
		OutOfRangeWeight:       2.5,
		LeapThreshold:          5,
		LeapPenalty:            0.2,
		ShiftTransitionPenalty: 0.4,
		PitchDeviationWeight:   0.02,
	}
}

// Step records the DP decision for a single note.
type Step struct {
	Index             int
	OriginalMIDI      int
	MIDI              int
	Shift             int
	RegisterPenalty   float64
	TransitionPenalty float64
}

// Result is a complete octave assignment with its accumulated penalty.
type Result struct {
	Span      phrase.Span
	TotalCost float64
	Steps     []Step
}

var shiftStates = [...]int{-1, 0, 1}

func registerPenalty(midi int, rng instrument.Range, s Settings) float64 {
	if midi < rng.MinMIDI {
		return float64(rng.MinMIDI-midi) * s.OutOfRangeWeight
	}
	if midi > rng.MaxMIDI {
		return float64(midi-rng.MaxMIDI) * s.OutOfRangeWeight
	}
	return 0
}

func stateCost(note phrase.Note, shift int, rng instrument.Range, s Settings) (total, register float64) {
	midi := note.MIDI + 12*shift
	register = registerPenalty(midi, rng, s)
	deviation := float64(abs(midi-note.MIDI)) * s.PitchDeviationWeight
	shiftPen := float64(abs(shift)) * s.ShiftPenalty
	return register + deviation + shiftPen, register
}

func transitionPenalty(prevMIDI, prevShift, midi, shift int, s Settings) float64 {
	penalty := 0.0
	if prevShift != shift {
		penalty += float64(abs(prevShift-shift)) * s.ShiftTransitionPenalty
	}
	interval := abs(midi - prevMIDI)
	if interval > s.LeapThreshold {
		penalty += float64(interval-s.LeapThreshold) * s.LeapPenalty
	}
	return penalty
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

type dpCell struct {
	cost       float64
	prev       int // previous shift state index, -1 for the first note
	transition float64
	register   float64
}

// FoldWithSlack solves the forward DP over note index with state equal to
// the relative octave shift in {-1, 0, +1}, minimizing out-of-range and
// contour-discontinuity penalties, and reconstructs the assignment through
// backpointers.
func FoldWithSlack(span phrase.Span, rng instrument.Range, settings Settings) Result {
	notes := span.Notes()
	if len(notes) == 0 {
		return Result{Span: span}
	}

	table := make([][len(shiftStates)]dpCell, len(notes))
	for si, shift := range shiftStates {
		cost, register := stateCost(notes[0], shift, rng, settings)
		table[0][si] = dpCell{cost: cost, prev: -1, register: register}
	}
	for i := 1; i < len(notes); i++ {
		for si, shift := range shiftStates {
			cost, register := stateCost(notes[i], shift, rng, settings)
			midi := notes[i].MIDI + 12*shift
			best := -1
			bestCost := 0.0
			bestTransition := 0.0
			for pi, prevShift := range shiftStates {
				prevMIDI := notes[i-1].MIDI + 12*prevShift
				transition := transitionPenalty(prevMIDI, prevShift, midi, shift, settings)
				total := table[i-1][pi].cost + transition + cost
				if best == -1 || total < bestCost {
					best = pi
					bestCost = total
					bestTransition = transition
				}
			}
			table[i][si] = dpCell{cost: bestCost, prev: best, transition: bestTransition, register: register}
		}
	}

	last := len(notes) - 1
	bestState := 0
	for si := 1; si < len(shiftStates); si++ {
		if table[last][si].cost < table[last][bestState].cost {
			bestState = si
		}
	}

	steps := make([]Step, len(notes))
	updated := append([]phrase.Note(nil), notes...)
	state := bestState
	for i := last; i >= 0; i-- {
		cell := table[i][state]
		shift := shiftStates[state]
		midi := notes[i].MIDI + 12*shift
		steps[i] = Step{
			Index:             i,
			OriginalMIDI:      notes[i].MIDI,
			MIDI:              midi,
			Shift:             shift,
			RegisterPenalty:   cell.register,
			TransitionPenalty: cell.transition,
		}
		if shift != 0 {
			updated[i] = notes[i].WithMIDI(midi).WithOttava()
		}
		state = cell.prev
	}

	return Result{
		Span:      span.WithNotes(updated),
		TotalCost: table[last][bestState].cost,
		Steps:     steps,
	}
}

// ClampToRange is the baseline used when dp-slack is disabled: every
// out-of-range note is moved by whole octaves toward the range, and snapped
// to the nearest boundary when no octave lands inside. Returns whether any
// note changed.
func ClampToRange(span phrase.Span, rng instrument.Range) (phrase.Span, bool) {
	notes := span.Notes()
	if len(notes) == 0 {
		return span, false
	}
	updated := append([]phrase.Note(nil), notes...)
	changed := false
	for i, note := range notes {
		target, shifted := clampPitch(note.MIDI, rng)
		if target == note.MIDI {
			continue
		}
		adjusted := note.WithMIDI(target)
		if shifted {
			adjusted = adjusted.WithOttava()
		}
		updated[i] = adjusted
		changed = true
	}
	if !changed {
		return span, false
	}
	return span.WithNotes(updated), true
}

func clampPitch(midi int, rng instrument.Range) (target int, octaveShifted bool) {
	if rng.Contains(midi) {
		return midi, false
	}
	target = midi
	for i := 0; i < 8; i++ {
		if rng.Contains(target) {
			return target, true
		}
		if target > rng.MaxMIDI {
			target -= 12
		} else {
			target += 12
		}
	}
	// Range narrower than an octave; snap to the violated boundary.
	if midi > rng.MaxMIDI {
		return rng.MaxMIDI, false
	}
	return rng.MinMIDI, false
}

// Exceeds reports whether any note falls outside the playable range.
func Exceeds(span phrase.Span, rng instrument.Range) bool {
	for _, note := range span.Notes() {
		if !rng.Contains(note.MIDI) {
			return true
		}
	}
	return false
}

// DifficultyFn scores a span for event annotation.
type DifficultyFn func(phrase.Span) float64

// EnforceRange clamps the span when needed and emits a range-clamp event
// describing the adjustment. Returns the input unchanged when already in
// range.
func EnforceRange(span phrase.Span, rng instrument.Range, difficulty DifficultyFn) (phrase.Span, *explain.Event) {
	if !Exceeds(span, rng) {
		return span, nil
	}
	clamped, changed := ClampToRange(span, rng)
	if !changed {
		return span, nil
	}
	var db, da float64
	if difficulty != nil {
		db = difficulty(span)
		da = difficulty(clamped)
	}
	event := explain.FromStep(explain.Step{
		Action:           explain.ActionRangeClamp,
		Reason:           "clamped notes to instrument range",
		ReasonCode:       "range-clamp",
		Before:           span,
		After:            clamped,
		DifficultyBefore: db,
		DifficultyAfter:  da,
	})
	return clamped, &event
}
