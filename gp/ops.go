// Package gp implements the evolutionary arrangement strategy: a population
// search over small edit programs sharing the engine's phrase, difficulty,
// and explanation contracts.
package gp

import (
	"fmt"

	"github.com/cwbudde/algo-arrange/microedit"
	"github.com/cwbudde/algo-arrange/phrase"
)

// Region selects a contiguous onset window of a span. A zero region covers
// the whole phrase.
type Region struct {
	StartOnset int `json:"start_onset"`
	EndOnset   int `json:"end_onset"`
}

// WholePhrase reports whether the region covers everything.
func (r Region) WholePhrase() bool {
	return r.StartOnset == 0 && r.EndOnset == 0
}

// Resolve clamps the region to the span's bounds. ok is false for an empty
// window.
func (r Region) Resolve(span phrase.Span) (start, end int, ok bool) {
	total := span.TotalDuration()
	if total <= 0 {
		return 0, 0, false
	}
	start, end = r.StartOnset, r.EndOnset
	if r.WholePhrase() {
		return 0, total, true
	}
	if start < 0 {
		start = 0
	}
	if end <= 0 || end > total {
		end = total
	}
	if start >= end {
		return 0, 0, false
	}
	return start, end, true
}

func (r Region) label(span phrase.Span) string {
	if r.WholePhrase() {
		return "phrase"
	}
	return fmt.Sprintf("pulses %d-%d", r.StartOnset, r.EndOnset)
}

// Primitive is one pure edit in a program. The set of primitives is closed;
// programs are ordered sequences of them.
type Primitive interface {
	// Apply transforms the span, returning it unchanged when the edit has
	// no effect.
	Apply(span phrase.Span) phrase.Span
	// Action returns the telemetry action label.
	Action() string
	// ReasonCode returns the canonical explanation reason code.
	ReasonCode() string
	// Describe renders the primitive for logs.
	Describe(span phrase.Span) string
}

// Program is an ordered sequence of primitives.
type Program []Primitive

// Apply runs every primitive in order.
func (p Program) Apply(span phrase.Span) phrase.Span {
	current := span
	for _, op := range p {
		current = op.Apply(current)
	}
	return current
}

// Describe renders the whole program, "<identity>" when empty.
func (p Program) Describe(span phrase.Span) string {
	if len(p) == 0 {
		return "<identity>"
	}
	out := ""
	for i, op := range p {
		if i > 0 {
			out += " -> "
		}
		out += op.Describe(span)
	}
	return out
}

// Clone returns an independent copy of the program.
func (p Program) Clone() Program {
	return append(Program(nil), p...)
}

// Parameter bounds for primitive construction and mutation.
const (
	MaxTransposeSemitones = 12
	MaxLocalOctaves       = 2
)

// GlobalTranspose shifts the whole phrase by semitones in [-12, 12].
type GlobalTranspose struct {
	Semitones int `json:"semitones"`
}

func (g GlobalTranspose) Apply(span phrase.Span) phrase.Span {
	return span.Transpose(clampInt(g.Semitones, -MaxTransposeSemitones, MaxTransposeSemitones))
}

func (g GlobalTranspose) Action() string     { return "GP_GLOBAL_TRANSPOSE" }
func (g GlobalTranspose) ReasonCode() string { return "global-transpose" }
func (g GlobalTranspose) Describe(span phrase.Span) string {
	return fmt.Sprintf("GlobalTranspose(%+d)", g.Semitones)
}

// LocalOctave shifts a region by whole octaves in [-2, 2].
type LocalOctave struct {
	Region  Region `json:"region"`
	Octaves int    `json:"octaves"`
}

func (l LocalOctave) Apply(span phrase.Span) phrase.Span {
	octaves := clampInt(l.Octaves, -MaxLocalOctaves, MaxLocalOctaves)
	if octaves == 0 {
		return span
	}
	start, end, ok := l.Region.Resolve(span)
	if !ok {
		return span
	}
	notes := span.Notes()
	updated := append([]phrase.Note(nil), notes...)
	changed := false
	for i, note := range notes {
		if note.Onset < start || note.Onset >= end {
			continue
		}
		updated[i] = note.WithMIDI(note.MIDI + 12*octaves).WithOttava()
		changed = true
	}
	if !changed {
		return span
	}
	return span.WithNotes(updated)
}

func (l LocalOctave) Action() string     { return "GP_LOCAL_OCTAVE" }
func (l LocalOctave) ReasonCode() string { return "range-edge" }
func (l LocalOctave) Describe(span phrase.Span) string {
	return fmt.Sprintf("LocalOctave(%+d@%s)", l.Octaves, l.Region.label(span))
}

// SimplifyRhythm merges short repeated notes inside a region.
type SimplifyRhythm struct {
	Region Region `json:"region"`
	Passes int    `json:"passes"`
}

func (s SimplifyRhythm) Apply(span phrase.Span) phrase.Span {
	passes := clampInt(s.Passes, 1, 4)
	current := span
	for i := 0; i < passes; i++ {
		next := microedit.SimplifyRhythm(current)
		if next.Equal(current) {
			break
		}
		current = next
	}
	return current
}

func (s SimplifyRhythm) Action() string     { return "GP_SIMPLIFY_RHYTHM" }
func (s SimplifyRhythm) ReasonCode() string { return "rhythm-simplify" }
func (s SimplifyRhythm) Describe(span phrase.Span) string {
	return fmt.Sprintf("SimplifyRhythm(x%d@%s)", s.Passes, s.Region.label(span))
}

// DropOrnaments removes ornamental eighth notes.
type DropOrnaments struct {
	Count int `json:"count"`
}

func (d DropOrnaments) Apply(span phrase.Span) phrase.Span {
	count := clampInt(d.Count, 1, 4)
	current := span
	for i := 0; i < count; i++ {
		next := microedit.DropOrnamentalEighth(current)
		if next.Equal(current) {
			break
		}
		current = next
	}
	return current
}

func (d DropOrnaments) Action() string     { return "GP_DROP_ORNAMENTS" }
func (d DropOrnaments) ReasonCode() string { return "drop-ornamental" }
func (d DropOrnaments) Describe(span phrase.Span) string {
	return fmt.Sprintf("DropOrnaments(x%d)", d.Count)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
