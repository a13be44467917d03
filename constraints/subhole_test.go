package constraints

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-arrange/explain"
	"github.com/cwbudde/algo-arrange/instrument"
	"github.com/cwbudde/algo-arrange/phrase"
)

func speedRange() instrument.Range {
	return instrument.Range{
		ID:                         "alto-c",
		MinMIDI:                    72,
		MaxMIDI:                    88,
		ComfortCenter:              78,
		MaxChangesPerSecond:        10,
		MaxSubholeChangesPerSecond: 3,
		PairLimits: map[instrument.PitchPair]instrument.PairLimit{
			instrument.NewPitchPair(72, 74): {MaxHz: 2, Ease: 0.5},
		},
		AltFingerings: map[int][]instrument.AltFingering{
			74: {{Shape: "half-hole", Ease: 0.4, Intonation: 0.9}},
		},
	}
}

func alternatingSpan(pulses int) phrase.Span {
	pitches := []int{72, 74, 72, 74, 72}
	notes := make([]phrase.Note, len(pitches))
	for i, midi := range pitches {
		notes[i] = phrase.Note{MIDI: midi, Onset: i * pulses, Duration: pulses}
	}
	return phrase.NewSpan("alternating", notes, 480, 4)
}

func TestCalculateSubholeSpeedMetrics(t *testing.T) {
	span := alternatingSpan(240) // eighths, 1.25s at 120 bpm
	metrics := CalculateSubholeSpeed(span, NewTempoContext(120, 480), speedRange())

	if math.Abs(metrics.SpanSeconds-1.25) > 1e-9 {
		t.Fatalf("span seconds = %f, want 1.25", metrics.SpanSeconds)
	}
	if math.Abs(metrics.ChangesPerSecond-3.2) > 1e-9 {
		t.Fatalf("changes/s = %f, want 3.2", metrics.ChangesPerSecond)
	}
	if math.Abs(metrics.SubholeChangesPerSecond-3.2) > 1e-9 {
		t.Fatalf("subhole changes/s = %f, want 3.2", metrics.SubholeChangesPerSecond)
	}
	rate := metrics.PairRates[instrument.NewPitchPair(72, 74)]
	if math.Abs(rate-3.2) > 1e-9 {
		t.Fatalf("pair rate = %f, want 3.2", rate)
	}
}

func TestCalculateSubholeSpeedDegenerateSpans(t *testing.T) {
	rng := speedRange()
	tempo := NewTempoContext(120, 480)
	if m := CalculateSubholeSpeed(phrase.Span{}, tempo, rng); m.ChangesPerSecond != 0 {
		t.Fatalf("empty span metrics = %+v", m)
	}
	single := phrase.NewSpan("one", []phrase.Note{{MIDI: 72, Onset: 0, Duration: 480}}, 480, 4)
	if m := CalculateSubholeSpeed(single, tempo, rng); m.ChangesPerSecond != 0 {
		t.Fatalf("single note metrics = %+v", m)
	}
}

func TestCalculateSubholeSpeedCountsTaggedNotes(t *testing.T) {
	notes := []phrase.Note{
		{MIDI: 80, Onset: 0, Duration: 480},
		{MIDI: 81, Onset: 480, Duration: 480, Tags: []string{phrase.TagSubhole}},
	}
	span := phrase.NewSpan("tagged", notes, 480, 4)
	metrics := CalculateSubholeSpeed(span, NewTempoContext(120, 480), speedRange())
	if metrics.SubholeChangesPerSecond <= 0 {
		t.Fatalf("tagged transition not counted: %+v", metrics)
	}
	if len(metrics.PairRates) != 0 {
		t.Fatalf("no pair limit covers (80,81), got rates %v", metrics.PairRates)
	}
}

func TestEnforceSubholeSpeedWithinLimits(t *testing.T) {
	span := alternatingSpan(960) // half notes, comfortably slow
	result := EnforceSubholeSpeed(span, NewTempoContext(120, 480), speedRange(), nil)
	if len(result.Events) != 0 {
		t.Fatalf("events = %v, want none", result.Events)
	}
	if !result.Span.Equal(span) {
		t.Fatalf("span edited while within limits")
	}
}

func TestEnforceSubholeSpeedSubstitutesAltFingering(t *testing.T) {
	span := alternatingSpan(240)
	result := EnforceSubholeSpeed(span, NewTempoContext(120, 480), speedRange(), nil)
	if len(result.Events) == 0 {
		t.Fatalf("expected corrective events for over-limit pair")
	}
	first := result.Events[0]
	if first.Action != explain.ActionAltFingering {
		t.Fatalf("first action = %q, want %q", first.Action, explain.ActionAltFingering)
	}
	if first.ReasonCode != "alt-fingering" {
		t.Fatalf("reason code = %q", first.ReasonCode)
	}
	substituted := false
	for _, note := range result.Span.Notes() {
		if note.MIDI == 74 && note.HasTag(phrase.TagSubstituted) {
			substituted = true
		}
	}
	if !substituted {
		t.Fatalf("no note carries the substituted-fingering tag")
	}
}

func TestEnforceSubholeSpeedAnnotatesDifficultyDelta(t *testing.T) {
	span := alternatingSpan(240)
	calls := 0
	diff := func(s phrase.Span) float64 {
		calls++
		return float64(s.Len()) * 0.1
	}
	result := EnforceSubholeSpeed(span, NewTempoContext(120, 480), speedRange(), diff)
	if len(result.Events) == 0 {
		t.Fatalf("expected events")
	}
	if calls == 0 {
		t.Fatalf("difficulty fn never consulted")
	}
}

func TestSecondsForPulses(t *testing.T) {
	tempo := NewTempoContext(120, 480)
	if got := tempo.SecondsForPulses(480); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("quarter at 120bpm = %f, want 0.5", got)
	}
	if got := tempo.SecondsForPulses(0); got != 0 {
		t.Fatalf("zero pulses = %f", got)
	}
	if got := tempo.SecondsBetween(960, 480); got != 0 {
		t.Fatalf("reversed interval = %f, want 0", got)
	}
	defaulted := NewTempoContext(0, 0)
	if defaulted.BPM != 120 || defaulted.PulsesPerQuarter != 480 {
		t.Fatalf("defaults = %+v", defaulted)
	}
}

func TestTessituraBias(t *testing.T) {
	settings := TessituraSettings{ComfortCenter: 78, Tolerance: 5, Weight: 1}
	inside := phrase.NewSpan("inside", []phrase.Note{
		{MIDI: 76, Onset: 0, Duration: 480},
		{MIDI: 80, Onset: 480, Duration: 480},
	}, 480, 4)
	if got := TessituraBias(inside, settings); got != 0 {
		t.Fatalf("inside comfort band bias = %f, want 0", got)
	}

	// One of two equal notes sits 10 above center: excess 5, half the time.
	outside := phrase.NewSpan("outside", []phrase.Note{
		{MIDI: 78, Onset: 0, Duration: 480},
		{MIDI: 88, Onset: 480, Duration: 480},
	}, 480, 4)
	if got := TessituraBias(outside, settings); math.Abs(got-2.5) > 1e-9 {
		t.Fatalf("bias = %f, want 2.5", got)
	}

	if got := TessituraBias(phrase.Span{}, settings); got != 0 {
		t.Fatalf("empty span bias = %f, want 0", got)
	}
}
