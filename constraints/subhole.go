package constraints

import (
	"fmt"

	"github.com/cwbudde/algo-arrange/explain"
	"github.com/cwbudde/algo-arrange/instrument"
	"github.com/cwbudde/algo-arrange/microedit"
	"github.com/cwbudde/algo-arrange/phrase"
)

// SpeedMetrics summarizes how fast a span asks the player's fingers to move.
type SpeedMetrics struct {
	ChangesPerSecond        float64
	SubholeChangesPerSecond float64
	SpanSeconds             float64
	PairRates               map[instrument.PitchPair]float64
}

// SpeedResult is the outcome of enforcing subhole and speed limits.
type SpeedResult struct {
	Span    phrase.Span
	Metrics SpeedMetrics
	Events  []explain.Event
}

// DifficultyFn scores a span; the enforcer uses it only to annotate events
// with difficulty deltas.
type DifficultyFn func(phrase.Span) float64

func isSubholeNote(note phrase.Note, rng instrument.Range) bool {
	if note.HasTag(phrase.TagSubhole) {
		return true
	}
	return rng.IsSubholePitch(note.MIDI)
}

// CalculateSubholeSpeed measures transition rates against the instrument's
// pair limits. Pure; no edits.
func CalculateSubholeSpeed(span phrase.Span, tempo TempoContext, rng instrument.Range) SpeedMetrics {
	notes := span.Notes()
	if len(notes) <= 1 {
		return SpeedMetrics{}
	}
	spanSeconds := tempo.SecondsForPulses(span.TotalDuration())
	if spanSeconds <= 0 {
		return SpeedMetrics{}
	}

	transitions := len(notes) - 1
	pairCounts := make(map[instrument.PitchPair]int)
	tagged := 0
	for i := 0; i+1 < len(notes); i++ {
		current, next := notes[i], notes[i+1]
		pair := instrument.NewPitchPair(current.MIDI, next.MIDI)
		if _, ok := rng.PairLimits[pair]; ok {
			pairCounts[pair]++
		} else if isSubholeNote(current, rng) || isSubholeNote(next, rng) {
			tagged++
		}
	}

	subholeTransitions := tagged
	pairRates := make(map[instrument.PitchPair]float64, len(pairCounts))
	for pair, count := range pairCounts {
		subholeTransitions += count
		pairRates[pair] = float64(count) / spanSeconds
	}

	return SpeedMetrics{
		ChangesPerSecond:        float64(transitions) / spanSeconds,
		SubholeChangesPerSecond: float64(subholeTransitions) / spanSeconds,
		SpanSeconds:             spanSeconds,
		PairRates:               pairRates,
	}
}

func violatingPairs(metrics SpeedMetrics, rng instrument.Range) []instrument.PitchPair {
	var out []instrument.PitchPair
	for pair, rate := range metrics.PairRates {
		if limit, ok := rng.PairLimits[pair]; ok && rate > limit.MaxHz {
			out = append(out, pair)
		}
	}
	return out
}

func suggestAltFingering(pairs []instrument.PitchPair, rng instrument.Range) (int, instrument.AltFingering, bool) {
	for _, pair := range pairs {
		limit, ok := rng.PairLimits[pair]
		if !ok {
			continue
		}
		for _, pitch := range []int{pair.Lo, pair.Hi} {
			for _, alt := range rng.AltFingerings[pitch] {
				if alt.Ease <= limit.Ease {
					return pitch, alt, true
				}
			}
		}
	}
	return 0, instrument.AltFingering{}, false
}

func tagAltFingering(span phrase.Span, pitch int) phrase.Span {
	notes := span.Notes()
	for idx, note := range notes {
		if note.MIDI != pitch || note.HasTag(phrase.TagSubstituted) {
			continue
		}
		next := append([]phrase.Note(nil), notes...)
		next[idx] = note.AddTag(phrase.TagSubstituted)
		return span.WithNotes(next)
	}
	return span
}

const maxSpeedIterations = 4

// EnforceSubholeSpeed repeatedly measures the span and, while any pair
// exceeds its max change rate, substitutes an alternate fingering within the
// pair's ease tolerance or drops an ornamental grace note. Every edit emits
// an event; the span is always returned, possibly still over the limit.
func EnforceSubholeSpeed(span phrase.Span, tempo TempoContext, rng instrument.Range, difficulty DifficultyFn) SpeedResult {
	current := span
	var events []explain.Event

	emit := func(action, reason, code string, before, after phrase.Span) {
		var db, da float64
		if difficulty != nil {
			db = difficulty(before)
			da = difficulty(after)
		}
		events = append(events, explain.FromStep(explain.Step{
			Action:           action,
			Reason:           reason,
			ReasonCode:       code,
			Before:           before,
			After:            after,
			DifficultyBefore: db,
			DifficultyAfter:  da,
		}))
	}

	for i := 0; i < maxSpeedIterations; i++ {
		metrics := CalculateSubholeSpeed(current, tempo, rng)
		violating := violatingPairs(metrics, rng)
		withinLimits := metrics.ChangesPerSecond <= rng.MaxChangesPerSecond &&
			metrics.SubholeChangesPerSecond <= rng.MaxSubholeChangesPerSecond &&
			len(violating) == 0
		if withinLimits {
			return SpeedResult{Span: current, Metrics: metrics, Events: events}
		}

		if len(violating) > 0 {
			if pitch, alt, ok := suggestAltFingering(violating, rng); ok {
				updated := tagAltFingering(current, pitch)
				if !updated.Equal(current) {
					emit(explain.ActionAltFingering,
						fmt.Sprintf("substituted fingering %s for %s", alt.Shape, phrase.MIDIName(pitch)),
						"alt-fingering", current, updated)
					current = updated
					continue
				}
			}
		}

		updated := microedit.DropOrnamentalEighth(current)
		if updated.Equal(current) {
			return SpeedResult{Span: current, Metrics: metrics, Events: events}
		}
		emit(explain.ActionDropOrnament, "dropped ornamental grace note to ease finger speed", "drop-ornamental", current, updated)
		current = updated
	}

	return SpeedResult{Span: current, Metrics: CalculateSubholeSpeed(current, tempo, rng), Events: events}
}
