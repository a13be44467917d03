// Package microedit provides small, localized, pure transformations on
// phrase spans. Every function returns the input span unchanged when it has
// nothing to do, which callers use to detect a no-op.
package microedit

import (
	"github.com/cwbudde/algo-arrange/phrase"
)

// DropOrnamentalEighth removes the first ornamental note no longer than an
// eighth, absorbing its duration into the previous note (or shifting the
// remainder left when it opened the span).
func DropOrnamentalEighth(span phrase.Span) phrase.Span {
	notes := span.Notes()
	eighth := span.EighthDuration()
	for index, note := range notes {
		if !note.HasTag(phrase.TagOrnamental) {
			continue
		}
		if note.Duration > eighth {
			continue
		}
		if len(notes) == 1 {
			return span
		}
		removed := note.Duration
		next := make([]phrase.Note, 0, len(notes)-1)
		next = append(next, notes[:index]...)
		next = append(next, notes[index+1:]...)
		if index > 0 {
			prev := next[index-1]
			next[index-1] = prev.WithDuration(prev.Duration + removed)
		} else {
			for i, n := range next {
				next[i] = n.WithOnset(n.Onset - removed)
			}
		}
		return span.WithNotes(next)
	}
	return span
}

// LengthenPivotalNote extends the first pivotal note into the silence that
// follows it, when there is any.
func LengthenPivotalNote(span phrase.Span) phrase.Span {
	notes := span.Notes()
	for index, note := range notes {
		if !note.HasTag(phrase.TagPivotal) {
			continue
		}
		nextOnset := span.TotalDuration()
		if index+1 < len(notes) {
			nextOnset = notes[index+1].Onset
		}
		slack := nextOnset - note.End()
		if slack <= 0 {
			continue
		}
		next := append([]phrase.Note(nil), notes...)
		next[index] = note.WithDuration(note.Duration + slack)
		return span.WithNotes(next)
	}
	return span
}

// ShiftRunOctave moves the best octave-shiftable run of notes by one octave
// in the given direction (+1 up, -1 down). Runs longer than a half note are
// trimmed from the front; among candidates the run ending on the highest
// pitch wins, latest onset breaking ties. Shifted notes keep an ottava
// provenance flag.
func ShiftRunOctave(span phrase.Span, direction int) phrase.Span {
	if direction != 1 && direction != -1 {
		return span
	}
	notes := span.Notes()
	maxSpan := span.PulsesPerQuarter() * 2

	var runs [][]int
	var current []int
	for idx, note := range notes {
		if note.HasTag(phrase.TagOctaveShiftable) {
			current = append(current, idx)
			continue
		}
		if len(current) > 0 {
			runs = append(runs, current)
			current = nil
		}
	}
	if len(current) > 0 {
		runs = append(runs, current)
	}

	var best []int
	for _, run := range runs {
		trimmed := append([]int(nil), run...)
		for len(trimmed) > 0 && notes[trimmed[len(trimmed)-1]].End()-notes[trimmed[0]].Onset > maxSpan {
			trimmed = trimmed[1:]
		}
		if len(trimmed) == 0 {
			continue
		}
		if best == nil {
			best = trimmed
			continue
		}
		bestEnd := notes[best[len(best)-1]].MIDI
		candEnd := notes[trimmed[len(trimmed)-1]].MIDI
		if candEnd > bestEnd || (candEnd == bestEnd && notes[trimmed[0]].Onset > notes[best[0]].Onset) {
			best = trimmed
		}
	}
	if best == nil {
		return span
	}

	next := append([]phrase.Note(nil), notes...)
	for _, idx := range best {
		next[idx] = next[idx].WithMIDI(next[idx].MIDI + 12*direction).WithOttava()
	}
	return span.WithNotes(next)
}

// SimplifyRhythm merges the first run of short repeated pitches into a
// single sustained note. Notes shorter than a sixteenth with the same pitch
// as their successor are collapsed.
func SimplifyRhythm(span phrase.Span) phrase.Span {
	notes := span.Notes()
	sixteenth := span.SixteenthDuration()
	for index := 0; index+1 < len(notes); index++ {
		first := notes[index]
		if first.Duration > sixteenth {
			continue
		}
		end := index + 1
		for end < len(notes) && notes[end].MIDI == first.MIDI && notes[end].Onset == notes[end-1].End() {
			end++
		}
		if end == index+1 {
			continue
		}
		merged := first.WithDuration(notes[end-1].End() - first.Onset)
		next := make([]phrase.Note, 0, len(notes)-(end-index)+1)
		next = append(next, notes[:index]...)
		next = append(next, merged)
		next = append(next, notes[end:]...)
		return span.WithNotes(next)
	}
	return span
}

// SubstituteNeighborPitch replaces the note farthest outside the comfort
// band with its nearest in-band neighbor at most limit semitones away. The
// substituted note is tagged.
func SubstituteNeighborPitch(span phrase.Span, center float64, tolerance float64, limit int) phrase.Span {
	if limit <= 0 {
		return span
	}
	notes := span.Notes()
	bestIdx := -1
	bestExcess := 0.0
	for idx, note := range notes {
		if note.HasTag(phrase.TagSubstituted) {
			continue
		}
		distance := note.MIDI - int(center)
		if distance < 0 {
			distance = -distance
		}
		excess := float64(distance) - tolerance
		if excess > bestExcess {
			bestExcess = excess
			bestIdx = idx
		}
	}
	if bestIdx < 0 {
		return span
	}
	note := notes[bestIdx]
	step := limit
	if bestExcess < float64(limit) {
		step = int(bestExcess)
		if step < 1 {
			step = 1
		}
	}
	target := note.MIDI
	if float64(note.MIDI) > center {
		target -= step
	} else {
		target += step
	}
	if target == note.MIDI {
		return span
	}
	next := append([]phrase.Note(nil), notes...)
	next[bestIdx] = note.WithMIDI(target).AddTag(phrase.TagSubstituted)
	return span.WithNotes(next)
}
