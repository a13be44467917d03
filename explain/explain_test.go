package explain

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-arrange/phrase"
)

func TestNormalizeReasonCode(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Range edge", "range-edge"},
		{"OCTAVE_DOWN_LOCAL", "octave-down-local"},
		{"  multiple   spaces  ", "multiple-spaces"},
		{"", "unspecified"},
		{"already-clean", "already-clean"},
	}
	for _, tc := range cases {
		if got := NormalizeReasonCode(tc.in); got != tc.want {
			t.Fatalf("NormalizeReasonCode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFromStepDeltaIsBeforeMinusAfter(t *testing.T) {
	before := phrase.NewSpan("s", []phrase.Note{{MIDI: 72, Onset: 0, Duration: 480}}, 480, 4)
	after := before.Transpose(-12)
	event := FromStep(Step{
		Action:           ActionOctaveDownLocal,
		Reason:           "register edge",
		Before:           before,
		After:            after,
		DifficultyBefore: 1.2,
		DifficultyAfter:  0.85,
	})
	if math.Abs(event.DifficultyDelta-0.35) > 1e-9 {
		t.Fatalf("delta = %f, want 0.35", event.DifficultyDelta)
	}
	if event.SchemaVersion != SchemaVersion {
		t.Fatalf("schema version = %d", event.SchemaVersion)
	}
	if event.ReasonCode != "register-edge" {
		t.Fatalf("reason code = %q", event.ReasonCode)
	}
	if event.NotesBefore != 1 || event.NotesAfter != 1 {
		t.Fatalf("note counts = %d/%d", event.NotesBefore, event.NotesAfter)
	}
	if event.SpanID != "s" {
		t.Fatalf("span id = %q", event.SpanID)
	}
}

func TestDeltaSumEqualsInitialMinusFinal(t *testing.T) {
	span := phrase.NewSpan("s", []phrase.Note{{MIDI: 72, Onset: 0, Duration: 480}}, 480, 4)
	scores := []float64{1.2, 0.95, 0.85, 0.82}
	var events []Event
	for i := 0; i+1 < len(scores); i++ {
		events = append(events, FromStep(Step{
			Action:           ActionRhythmSimplify,
			Before:           span,
			After:            span,
			DifficultyBefore: scores[i],
			DifficultyAfter:  scores[i+1],
		}))
	}
	want := scores[0] - scores[len(scores)-1]
	if got := DeltaSum(events); math.Abs(got-want) > 1e-9 {
		t.Fatalf("DeltaSum() = %f, want %f", got, want)
	}
}

func TestSpanLabelForNotes(t *testing.T) {
	single := []phrase.Note{{Onset: 480, Duration: 480}}
	if got := SpanLabelForNotes(single, 480, 4); got != "beat 2" {
		t.Fatalf("single = %q, want beat 2", got)
	}
	run := []phrase.Note{
		{Onset: 480, Duration: 480},
		{Onset: 960, Duration: 480},
	}
	if got := SpanLabelForNotes(run, 480, 4); got != "beats 2-3" {
		t.Fatalf("run = %q, want beats 2-3", got)
	}
	if got := SpanLabelForNotes(nil, 480, 4); got != "" {
		t.Fatalf("empty = %q, want empty string", got)
	}
}
