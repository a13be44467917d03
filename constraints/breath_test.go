package constraints

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-arrange/explain"
	"github.com/cwbudde/algo-arrange/phrase"
)

func TestBreathLimitFormula(t *testing.T) {
	settings := BreathSettings{
		BaseLimitSeconds:      4.0,
		TempoFactor:           0.01,
		RegisterFactor:        0.3,
		MinLimitSeconds:       1.5,
		MaxLimitSeconds:       4.0,
		RegisterReferenceMIDI: 72,
	}
	// 4.0 - 0.01*120 - 0.3*max(0, (84-72)/12) = 2.5
	if got := settings.Limit(120, 84); math.Abs(got-2.5) > 1e-9 {
		t.Fatalf("Limit(120, 84) = %f, want 2.5", got)
	}
	// Below the reference register the register term vanishes.
	if got := settings.Limit(120, 60); math.Abs(got-2.8) > 1e-9 {
		t.Fatalf("Limit(120, 60) = %f, want 2.8", got)
	}
	// Clamped at the minimum for extreme tempo.
	if got := settings.Limit(400, 84); math.Abs(got-1.5) > 1e-9 {
		t.Fatalf("Limit(400, 84) = %f, want min 1.5", got)
	}
	// Clamped at the maximum for slow tempo.
	if got := settings.Limit(0, 60); math.Abs(got-4.0) > 1e-9 {
		t.Fatalf("Limit(0, 60) = %f, want max 4.0", got)
	}
}

func flatSettings(limitSeconds float64) BreathSettings {
	return BreathSettings{
		BaseLimitSeconds:      limitSeconds,
		TempoFactor:           0,
		RegisterFactor:        0,
		MinLimitSeconds:       0.5,
		MaxLimitSeconds:       10,
		RegisterReferenceMIDI: 76,
	}
}

func TestPlanBreathsPrefersBarlineCandidate(t *testing.T) {
	notes := make([]phrase.Note, 8)
	for i := range notes {
		notes[i] = phrase.Note{MIDI: 72, Onset: i * 480, Duration: 480}
	}
	notes[2] = notes[2].WithTags(phrase.TagBarline)
	span := phrase.NewSpan("breath", notes, 480, 4)
	tempo := NewTempoContext(120, 480) // one quarter = 0.5s

	plan := PlanBreaths(span, tempo, flatSettings(2.0))
	if len(plan.BreathPoints) != 2 {
		t.Fatalf("breath points = %v, want 2", plan.BreathPoints)
	}
	if plan.BreathPoints[0] != 960 {
		t.Fatalf("first breath at %d, want barline onset 960", plan.BreathPoints[0])
	}
	wantSegments := []float64{1.0, 2.0, 1.0}
	if len(plan.SegmentDurations) != len(wantSegments) {
		t.Fatalf("segments = %v", plan.SegmentDurations)
	}
	for i, want := range wantSegments {
		if math.Abs(plan.SegmentDurations[i]-want) > 1e-9 {
			t.Fatalf("segment %d = %f, want %f", i, plan.SegmentDurations[i], want)
		}
	}
}

func TestPlanBreathsEmptySpan(t *testing.T) {
	plan := PlanBreaths(phrase.Span{}, NewTempoContext(120, 480), DefaultBreathSettings())
	if len(plan.BreathPoints) != 0 || len(plan.SegmentDurations) != 0 {
		t.Fatalf("empty span produced a plan: %+v", plan)
	}
}

func TestPlanBreathsNoBreathWhenUnderLimit(t *testing.T) {
	span := phrase.NewSpan("short", []phrase.Note{
		{MIDI: 72, Onset: 0, Duration: 480},
		{MIDI: 74, Onset: 480, Duration: 480},
	}, 480, 4)
	plan := PlanBreaths(span, NewTempoContext(120, 480), flatSettings(5.0))
	if len(plan.BreathPoints) != 0 {
		t.Fatalf("breath points = %v, want none", plan.BreathPoints)
	}
	if len(plan.SegmentDurations) != 1 {
		t.Fatalf("segments = %v, want single segment", plan.SegmentDurations)
	}
}

func TestApplyBreathPlanningSplitsNoteAndEmitsEvent(t *testing.T) {
	span := phrase.NewSpan("long", []phrase.Note{
		{MIDI: 72, Onset: 0, Duration: 1920},
		{MIDI: 74, Onset: 1920, Duration: 1920},
	}, 480, 4)
	tempo := NewTempoContext(120, 480)

	got, events := ApplyBreathPlanning(span, tempo, flatSettings(1.5), nil)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].Action != explain.ActionBreathInsert {
		t.Fatalf("action = %q", events[0].Action)
	}
	if events[0].SpanLabel == "" {
		t.Fatalf("breath event needs a span label")
	}
	notes := got.Notes()
	if len(notes) != 3 {
		t.Fatalf("notes = %d, want 3 after split", len(notes))
	}
	if !notes[0].HasTag(TagBreathMark) {
		t.Fatalf("split head must carry the breath mark")
	}
	if notes[0].Duration+notes[1].Duration != 1920 {
		t.Fatalf("split changed total duration: %d + %d", notes[0].Duration, notes[1].Duration)
	}
}

func TestApplyBreathPlanningNoOpUnderLimit(t *testing.T) {
	span := phrase.NewSpan("short", []phrase.Note{
		{MIDI: 72, Onset: 0, Duration: 480},
	}, 480, 4)
	got, events := ApplyBreathPlanning(span, NewTempoContext(120, 480), flatSettings(5.0), nil)
	if len(events) != 0 {
		t.Fatalf("events = %v, want none", events)
	}
	if !got.Equal(span) {
		t.Fatalf("span changed without breaths")
	}
}
