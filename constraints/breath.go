package constraints

import (
	"github.com/cwbudde/algo-arrange/explain"
	"github.com/cwbudde/algo-arrange/phrase"
)

// BreathSettings parameterizes the sustain limit
//
//	T = clamp(base - tempoFactor*bpm - registerFactor*registerIndex, min, max)
//
// where registerIndex = max(0, (segmentMaxMIDI - registerReferenceMIDI)/12).
type BreathSettings struct {
	BaseLimitSeconds      float64
	TempoFactor           float64
	RegisterFactor        float64
	MinLimitSeconds       float64
	MaxLimitSeconds       float64
	RegisterReferenceMIDI int
}

// DefaultBreathSettings returns breath limits suitable for a small vessel
// flute.
func DefaultBreathSettings() BreathSettings {
	return BreathSettings{
		BaseLimitSeconds:      7.0,
		TempoFactor:           0.02,
		RegisterFactor:        1.25,
		MinLimitSeconds:       2.0,
		MaxLimitSeconds:       8.0,
		RegisterReferenceMIDI: 76,
	}
}

// Limit returns the sustainable blow time for a segment peaking at
// segmentMaxMIDI under the given tempo.
func (s BreathSettings) Limit(bpm float64, segmentMaxMIDI int) float64 {
	tempo := bpm
	if tempo < 0 {
		tempo = 0
	}
	registerIndex := (float64(segmentMaxMIDI) - float64(s.RegisterReferenceMIDI)) / 12.0
	if registerIndex < 0 {
		registerIndex = 0
	}
	limit := s.BaseLimitSeconds - s.TempoFactor*tempo - s.RegisterFactor*registerIndex
	if limit < s.MinLimitSeconds {
		return s.MinLimitSeconds
	}
	if limit > s.MaxLimitSeconds {
		return s.MaxLimitSeconds
	}
	return limit
}

// BreathPlan lists the pulse positions where a breath must be taken and the
// resulting segment durations in seconds.
type BreathPlan struct {
	BreathPoints     []int
	SegmentDurations []float64
}

// Breath candidate priority, best first: barline, repeat-pitch, rest,
// breath-candidate.
var breathPriority = []struct {
	tag      string
	priority int
}{
	{phrase.TagBarline, 0},
	{phrase.TagRepeatPitch, 1},
	{phrase.TagRest, 2},
	{phrase.TagBreathCandidate, 3},
}

func candidatePriority(note phrase.Note) (int, bool) {
	best := -1
	for _, entry := range breathPriority {
		if note.HasTag(entry.tag) {
			if best == -1 || entry.priority < best {
				best = entry.priority
			}
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

// PlanBreaths scans the span and forces a breath whenever the sustained time
// since the last breath would exceed the register- and tempo-adjusted limit,
// preferring the best candidate position seen so far. Pure; no edits.
func PlanBreaths(span phrase.Span, tempo TempoContext, settings BreathSettings) BreathPlan {
	notes := span.Notes()
	if len(notes) == 0 {
		return BreathPlan{}
	}

	var breathPoints []int
	var segments []float64

	segmentStart := notes[0].Onset
	segmentMaxMIDI := notes[0].MIDI
	haveMax := true
	candidate := -1 // best candidate onset so far
	candidatePrio := 0
	index := 0

	for index < len(notes) {
		note := notes[index]
		noteEnd := note.End()
		if !haveMax {
			segmentMaxMIDI = note.MIDI
			haveMax = true
		} else if note.MIDI > segmentMaxMIDI {
			segmentMaxMIDI = note.MIDI
		}

		limit := settings.Limit(tempo.BPM, segmentMaxMIDI)
		segmentSeconds := tempo.SecondsBetween(segmentStart, noteEnd)

		if segmentSeconds > limit {
			advance := false
			breathOnset := note.Onset
			if candidate >= 0 {
				breathOnset = candidate
			}
			if breathOnset <= segmentStart {
				breathOnset = noteEnd
				advance = true
			}
			breathPoints = append(breathPoints, breathOnset)
			segments = append(segments, tempo.SecondsBetween(segmentStart, breathOnset))
			segmentStart = breathOnset
			if advance {
				haveMax = false
				index++
			} else {
				segmentMaxMIDI = note.MIDI
			}
			candidate = -1
			continue
		}

		if prio, ok := candidatePriority(note); ok {
			if candidate < 0 || prio < candidatePrio || (prio == candidatePrio && note.Onset >= candidate) {
				candidate = note.Onset
				candidatePrio = prio
			}
		}
		index++
	}

	segments = append(segments, tempo.SecondsBetween(segmentStart, span.TotalDuration()))
	return BreathPlan{BreathPoints: breathPoints, SegmentDurations: segments}
}

// TagBreathMark marks the note sounding at the breath point, splitting it in
// two when the breath falls inside it.
const TagBreathMark = "breath-mark"

// ApplyBreathPlanning inserts the planned breaths into the span, splitting
// notes at breath points and emitting one event per inserted breath.
func ApplyBreathPlanning(span phrase.Span, tempo TempoContext, settings BreathSettings, difficulty DifficultyFn) (phrase.Span, []explain.Event) {
	plan := PlanBreaths(span, tempo, settings)
	if len(plan.BreathPoints) == 0 {
		return span, nil
	}

	current := span
	var events []explain.Event
	total := span.TotalDuration()

	for _, breathOnset := range plan.BreathPoints {
		if total > 0 && breathOnset >= total {
			continue
		}
		updated, splitPoint, ok := insertBreath(current, breathOnset)
		if !ok {
			continue
		}
		var db, da float64
		if difficulty != nil {
			db = difficulty(current)
			da = difficulty(updated)
		}
		event := explain.FromStep(explain.Step{
			Action:           explain.ActionBreathInsert,
			Reason:           "continuous blow time exceeds sustain limit",
			ReasonCode:       "breath-insert",
			Before:           current,
			After:            updated,
			DifficultyBefore: db,
			DifficultyAfter:  da,
		})
		event.SpanLabel = explain.SpanLabelForNotes(
			[]phrase.Note{{Onset: splitPoint, Duration: 1}},
			current.PulsesPerQuarter(), current.BeatsPerMeasure())
		events = append(events, event)
		current = updated
	}
	return current, events
}

func insertBreath(span phrase.Span, breathOnset int) (phrase.Span, int, bool) {
	notes := span.Notes()
	for index, note := range notes {
		start, end := note.Onset, note.End()
		if breathOnset < start || breathOnset > end {
			continue
		}
		splitPoint := breathOnset
		if splitPoint <= start || splitPoint >= end {
			splitPoint = start + note.Duration/2
			if note.Duration/2 < 1 {
				splitPoint = start + 1
			}
			if splitPoint <= start || splitPoint >= end {
				continue
			}
		}
		first := note.WithDuration(splitPoint - start).AddTag(TagBreathMark)
		second := note.WithOnset(splitPoint).WithDuration(end - splitPoint)
		next := make([]phrase.Note, 0, len(notes)+1)
		next = append(next, notes[:index]...)
		next = append(next, first, second)
		next = append(next, notes[index+1:]...)
		return span.WithNotes(next), splitPoint, true
	}
	return span, 0, false
}
