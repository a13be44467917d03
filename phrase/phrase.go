// Package phrase defines the immutable note-sequence model consumed by the
// arrangement engine. Every edit produces a new value; spans are never
// mutated in place.
package phrase

import (
	"fmt"
	"sort"
)

// Well-known note tags.
const (
	TagGrace           = "grace"
	TagOrnamental      = "ornamental"
	TagPivotal         = "pivotal"
	TagBarline         = "barline"
	TagRest            = "rest"
	TagRepeatPitch     = "repeat-pitch"
	TagBreathCandidate = "breath-candidate"
	TagOctaveShiftable = "octave-shiftable"
	TagSubhole         = "subhole"
	TagSubstituted     = "substituted"
)

// Note is a single pitched event. Onset and Duration are in pulses relative
// to the span's pulses-per-quarter resolution.
type Note struct {
	MIDI     int
	Onset    int
	Duration int
	Voice    int
	Ottava   bool
	Tags     []string
}

// HasTag reports whether the note carries the given tag.
func (n Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// WithMIDI returns a copy of the note at a different pitch.
func (n Note) WithMIDI(midi int) Note {
	c := n.clone()
	c.MIDI = midi
	return c
}

// WithOnset returns a copy of the note starting at a different pulse.
func (n Note) WithOnset(onset int) Note {
	c := n.clone()
	c.Onset = onset
	return c
}

// WithDuration returns a copy of the note with a different duration.
func (n Note) WithDuration(duration int) Note {
	c := n.clone()
	c.Duration = duration
	return c
}

// WithOttava returns a copy of the note with the ottava provenance flag set,
// marking that the written pitch was produced by an octave displacement.
func (n Note) WithOttava() Note {
	c := n.clone()
	c.Ottava = true
	return c
}

// WithTags returns a copy of the note carrying exactly the given tags,
// deduplicated and sorted.
func (n Note) WithTags(tags ...string) Note {
	c := n.clone()
	c.Tags = normalizeTags(tags)
	return c
}

// AddTag returns a copy of the note with tag added to its tag set.
func (n Note) AddTag(tag string) Note {
	if n.HasTag(tag) {
		return n.clone()
	}
	c := n.clone()
	c.Tags = normalizeTags(append(append([]string(nil), n.Tags...), tag))
	return c
}

// End returns the pulse at which the note stops sounding.
func (n Note) End() int {
	return n.Onset + n.Duration
}

func (n Note) clone() Note {
	c := n
	c.Tags = append([]string(nil), n.Tags...)
	return c
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

// Span is an ordered, contiguous sequence of notes plus the timing metadata
// needed to derive bar boundaries. The zero value is an empty span.
type Span struct {
	id               string
	notes            []Note
	pulsesPerQuarter int
	beatsPerMeasure  int
}

// DefaultPulsesPerQuarter is the resolution used when none is given.
const DefaultPulsesPerQuarter = 480

// DefaultBeatsPerMeasure is the meter used when none is given.
const DefaultBeatsPerMeasure = 4

// NewSpan builds a span from notes, ordering them by (onset, midi). The input
// slice is copied; the caller keeps ownership of its notes.
func NewSpan(id string, notes []Note, pulsesPerQuarter, beatsPerMeasure int) Span {
	if pulsesPerQuarter <= 0 {
		pulsesPerQuarter = DefaultPulsesPerQuarter
	}
	if beatsPerMeasure <= 0 {
		beatsPerMeasure = DefaultBeatsPerMeasure
	}
	ordered := make([]Note, len(notes))
	for i, n := range notes {
		ordered[i] = n.clone()
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Onset != ordered[j].Onset {
			return ordered[i].Onset < ordered[j].Onset
		}
		return ordered[i].MIDI < ordered[j].MIDI
	})
	return Span{id: id, notes: ordered, pulsesPerQuarter: pulsesPerQuarter, beatsPerMeasure: beatsPerMeasure}
}

// ID returns the span identifier. Derived spans keep their parent's id.
func (s Span) ID() string {
	if s.id != "" {
		return s.id
	}
	return fmt.Sprintf("span-%d-%d", s.FirstOnset(), s.TotalDuration())
}

// Notes returns the ordered note sequence. The returned slice must not be
// modified.
func (s Span) Notes() []Note {
	return s.notes
}

// Len returns the number of notes.
func (s Span) Len() int {
	return len(s.notes)
}

// Empty reports whether the span has no notes.
func (s Span) Empty() bool {
	return len(s.notes) == 0
}

// PulsesPerQuarter returns the pulse resolution of the span.
func (s Span) PulsesPerQuarter() int {
	if s.pulsesPerQuarter <= 0 {
		return DefaultPulsesPerQuarter
	}
	return s.pulsesPerQuarter
}

// BeatsPerMeasure returns the meter used for bar boundary markers.
func (s Span) BeatsPerMeasure() int {
	if s.beatsPerMeasure <= 0 {
		return DefaultBeatsPerMeasure
	}
	return s.beatsPerMeasure
}

// WithNotes returns a span with the same identity and timing but new notes.
func (s Span) WithNotes(notes []Note) Span {
	next := NewSpan(s.id, notes, s.PulsesPerQuarter(), s.BeatsPerMeasure())
	return next
}

// Transpose returns a span with every note shifted by the given number of
// semitones. Zero semitones returns the receiver unchanged.
func (s Span) Transpose(semitones int) Span {
	if semitones == 0 {
		return s
	}
	notes := make([]Note, len(s.notes))
	for i, n := range s.notes {
		notes[i] = n.WithMIDI(n.MIDI + semitones)
	}
	return s.WithNotes(notes)
}

// TotalDuration returns the pulse at which the last note ends.
func (s Span) TotalDuration() int {
	max := 0
	for _, n := range s.notes {
		if end := n.End(); end > max {
			max = end
		}
	}
	return max
}

// FirstOnset returns the onset of the earliest note, or zero for an empty
// span.
func (s Span) FirstOnset() int {
	if len(s.notes) == 0 {
		return 0
	}
	min := s.notes[0].Onset
	for _, n := range s.notes[1:] {
		if n.Onset < min {
			min = n.Onset
		}
	}
	return min
}

// EighthDuration returns the pulse length of an eighth note, at least one
// pulse.
func (s Span) EighthDuration() int {
	d := s.PulsesPerQuarter() / 2
	if d < 1 {
		return 1
	}
	return d
}

// SixteenthDuration returns the pulse length of a sixteenth note, at least
// one pulse.
func (s Span) SixteenthDuration() int {
	d := s.PulsesPerQuarter() / 4
	if d < 1 {
		return 1
	}
	return d
}

// PulsesPerBar returns the number of pulses in one measure.
func (s Span) PulsesPerBar() int {
	p := s.PulsesPerQuarter() * s.BeatsPerMeasure()
	if p < 1 {
		return 1
	}
	return p
}

// BarNumber returns the one-based bar containing the first note.
func (s Span) BarNumber() int {
	return s.FirstOnset()/s.PulsesPerBar() + 1
}

// BarOf returns the one-based bar containing the given pulse.
func (s Span) BarOf(onset int) int {
	if onset < 0 {
		onset = 0
	}
	return onset/s.PulsesPerBar() + 1
}

// Equal reports whether two spans have identical notes and timing metadata.
func (s Span) Equal(other Span) bool {
	if len(s.notes) != len(other.notes) {
		return false
	}
	if s.PulsesPerQuarter() != other.PulsesPerQuarter() || s.BeatsPerMeasure() != other.BeatsPerMeasure() {
		return false
	}
	for i, n := range s.notes {
		o := other.notes[i]
		if n.MIDI != o.MIDI || n.Onset != o.Onset || n.Duration != o.Duration || n.Voice != o.Voice || n.Ottava != o.Ottava {
			return false
		}
		if len(n.Tags) != len(o.Tags) {
			return false
		}
		for k, t := range n.Tags {
			if o.Tags[k] != t {
				return false
			}
		}
	}
	return true
}
