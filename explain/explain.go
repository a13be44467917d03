// Package explain defines the structured event stream the engine emits to
// describe every corrective edit it applied and why.
package explain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cwbudde/algo-arrange/phrase"
)

// SchemaVersion is the current event schema. The schema is additive-only;
// consumers must tolerate unknown fields.
const SchemaVersion = 1

// Canonical action labels.
const (
	ActionOctaveDownLocal = "OCTAVE_DOWN_LOCAL"
	ActionRhythmSimplify  = "rhythm-simplify"
	ActionSubstitution    = "pitch-substitution"
	ActionDropOrnament    = "drop-ornamental"
	ActionAltFingering    = "alt-fingering"
	ActionBreathInsert    = "breath-plan"
	ActionRangeClamp      = "range-clamp"
	ActionNotRecommended  = "not-recommended"
)

// Event records a single corrective edit applied to a span.
type Event struct {
	SchemaVersion   int     `json:"schema_version"`
	Bar             int     `json:"bar"`
	Action          string  `json:"action"`
	Reason          string  `json:"reason"`
	ReasonCode      string  `json:"reason_code"`
	SpanID          string  `json:"span_id"`
	KeyID           string  `json:"key_id,omitempty"`
	DifficultyDelta float64 `json:"difficulty_delta"`
	NotesBefore     int     `json:"notes_before"`
	NotesAfter      int     `json:"notes_after"`
	SpanLabel       string  `json:"span,omitempty"`
}

var reasonCodePattern = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeReasonCode lowers text into a stable machine-readable code.
func NormalizeReasonCode(text string) string {
	normalized := reasonCodePattern.ReplaceAllString(strings.ToLower(text), "-")
	normalized = strings.Trim(normalized, "-")
	if normalized == "" {
		return "unspecified"
	}
	return normalized
}

// Step captures everything needed to build an event for one edit.
type Step struct {
	Action           string
	Reason           string
	ReasonCode       string
	KeyID            string
	Before           phrase.Span
	After            phrase.Span
	DifficultyBefore float64
	DifficultyAfter  float64
}

// FromStep builds an event; DifficultyDelta is before minus after, so the
// sum of deltas over an attempt equals the initial minus final difficulty.
func FromStep(s Step) Event {
	reason := strings.TrimSpace(s.Reason)
	code := s.ReasonCode
	if code == "" {
		code = reason
	}
	if code == "" {
		code = s.Action
	}
	return Event{
		SchemaVersion:   SchemaVersion,
		Bar:             s.Before.BarNumber(),
		Action:          s.Action,
		Reason:          reason,
		ReasonCode:      NormalizeReasonCode(code),
		SpanID:          s.Before.ID(),
		KeyID:           s.KeyID,
		DifficultyDelta: s.DifficultyBefore - s.DifficultyAfter,
		NotesBefore:     s.Before.Len(),
		NotesAfter:      s.After.Len(),
	}
}

// SpanLabelForNotes renders a human-readable beat range for the given notes,
// e.g. "beat 2" or "beats 2-3", relative to the bar containing them.
func SpanLabelForNotes(notes []phrase.Note, pulsesPerQuarter, beatsPerMeasure int) string {
	if len(notes) == 0 {
		return ""
	}
	if pulsesPerQuarter < 1 {
		pulsesPerQuarter = 1
	}
	if beatsPerMeasure < 1 {
		beatsPerMeasure = 1
	}
	pulsesPerMeasure := pulsesPerQuarter * beatsPerMeasure
	start := notes[0].Onset
	end := notes[0].End()
	for _, n := range notes[1:] {
		if n.Onset < start {
			start = n.Onset
		}
		if n.End() > end {
			end = n.End()
		}
	}
	measureStart := (start / pulsesPerMeasure) * pulsesPerMeasure
	startBeat := (start-measureStart)/pulsesPerQuarter + 1
	endOnset := end - 1
	if endOnset < start {
		endOnset = start
	}
	endBeat := (endOnset-measureStart)/pulsesPerQuarter + 1
	if startBeat == endBeat {
		return fmt.Sprintf("beat %d", startBeat)
	}
	return fmt.Sprintf("beats %d-%d", startBeat, endBeat)
}

// DeltaSum returns the total difficulty delta across events.
func DeltaSum(events []Event) float64 {
	total := 0.0
	for _, e := range events {
		total += e.DifficultyDelta
	}
	return total
}
