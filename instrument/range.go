// Package instrument describes playable ranges and fingering-cost metadata,
// and provides the registry used to look instruments up by id.
package instrument

import (
	"fmt"
	"sort"
)

// PitchPair is an unordered pair of MIDI pitches. Lo is always <= Hi.
type PitchPair struct {
	Lo int
	Hi int
}

// NewPitchPair normalizes two pitches into an unordered pair.
func NewPitchPair(a, b int) PitchPair {
	if a > b {
		a, b = b, a
	}
	return PitchPair{Lo: a, Hi: b}
}

// Contains reports whether the pair includes the given pitch.
func (p PitchPair) Contains(midi int) bool {
	return p.Lo == midi || p.Hi == midi
}

// PairLimit bounds how fast a subhole transition between two pitches may be
// played.
type PairLimit struct {
	MaxHz float64
	Ease  float64
}

// AltFingering is an alternate fingering that can substitute for the default
// one when a transition is too fast.
type AltFingering struct {
	Shape      string
	Ease       float64
	Intonation float64
}

// Range describes an instrument's playable range and fingering-cost
// metadata. Values are read-only for the engine's lifetime once registered.
type Range struct {
	ID            string
	MinMIDI       int
	MaxMIDI       int
	ComfortCenter float64

	// Subhole/speed limits.
	MaxChangesPerSecond        float64
	MaxSubholeChangesPerSecond float64
	PairLimits                 map[PitchPair]PairLimit
	AltFingerings              map[int][]AltFingering

	// Windways maps a pitch to the windway indices able to produce it.
	// Consecutive notes with disjoint windway sets force a fast switch.
	Windways map[int][]int
}

// Validate checks structural invariants shared by all construction paths.
func (r Range) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("instrument range needs an id")
	}
	if r.MinMIDI > r.MaxMIDI {
		return fmt.Errorf("instrument %q: min midi %d above max midi %d", r.ID, r.MinMIDI, r.MaxMIDI)
	}
	for pair, limit := range r.PairLimits {
		if pair.Lo == pair.Hi {
			return fmt.Errorf("instrument %q: subhole pair must contain two distinct pitches", r.ID)
		}
		if limit.MaxHz <= 0 {
			return fmt.Errorf("instrument %q: pair (%d,%d) max_hz must be positive", r.ID, pair.Lo, pair.Hi)
		}
		if limit.Ease < 0 {
			return fmt.Errorf("instrument %q: pair (%d,%d) ease must be non-negative", r.ID, pair.Lo, pair.Hi)
		}
	}
	for pitch, alts := range r.AltFingerings {
		for _, alt := range alts {
			if alt.Shape == "" {
				return fmt.Errorf("instrument %q: alternate fingering for %d needs a shape", r.ID, pitch)
			}
			if alt.Ease < 0 {
				return fmt.Errorf("instrument %q: alternate fingering for %d ease must be non-negative", r.ID, pitch)
			}
			if alt.Intonation < 0 || alt.Intonation > 1 {
				return fmt.Errorf("instrument %q: alternate fingering for %d intonation must be in [0,1]", r.ID, pitch)
			}
		}
	}
	return nil
}

// Span returns the width of the playable range in semitones, at least one.
func (r Range) Span() int {
	s := r.MaxMIDI - r.MinMIDI
	if s < 1 {
		return 1
	}
	return s
}

// Center returns the comfort center, defaulting to the middle of the range.
func (r Range) Center() float64 {
	if r.ComfortCenter != 0 {
		return r.ComfortCenter
	}
	return float64(r.MinMIDI+r.MaxMIDI) / 2.0
}

// Contains reports whether the pitch lies inside the playable range.
func (r Range) Contains(midi int) bool {
	return midi >= r.MinMIDI && midi <= r.MaxMIDI
}

// SubholePitches returns the sorted set of pitches that participate in a
// subhole pair limit.
func (r Range) SubholePitches() []int {
	seen := make(map[int]struct{}, 2*len(r.PairLimits))
	for pair := range r.PairLimits {
		seen[pair.Lo] = struct{}{}
		seen[pair.Hi] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for midi := range seen {
		out = append(out, midi)
	}
	sort.Ints(out)
	return out
}

// IsSubholePitch reports whether the pitch participates in any pair limit.
func (r Range) IsSubholePitch(midi int) bool {
	for pair := range r.PairLimits {
		if pair.Contains(midi) {
			return true
		}
	}
	return false
}

// PairLimitFor returns the limit for a transition between two pitches.
func (r Range) PairLimitFor(a, b int) (PairLimit, bool) {
	limit, ok := r.PairLimits[NewPitchPair(a, b)]
	return limit, ok
}

// WindwaysFor returns the windway indices for a pitch, or nil when the
// instrument has no windway map entry for it.
func (r Range) WindwaysFor(midi int) []int {
	if r.Windways == nil {
		return nil
	}
	return r.Windways[midi]
}
