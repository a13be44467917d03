// Package constraints enforces physical-instrument limits on phrase spans:
// subhole finger-change speed, breath capacity, and tessitura comfort.
package constraints

// TempoContext converts pulse distances into wall-clock seconds.
type TempoContext struct {
	BPM              float64
	PulsesPerQuarter int
}

// NewTempoContext builds a context, substituting sane values for
// non-positive inputs.
func NewTempoContext(bpm float64, pulsesPerQuarter int) TempoContext {
	if bpm <= 0 {
		bpm = 120
	}
	if pulsesPerQuarter <= 0 {
		pulsesPerQuarter = 480
	}
	return TempoContext{BPM: bpm, PulsesPerQuarter: pulsesPerQuarter}
}

// SecondsForPulses returns the duration of the given number of pulses.
func (t TempoContext) SecondsForPulses(pulses int) float64 {
	if pulses <= 0 || t.BPM <= 0 || t.PulsesPerQuarter <= 0 {
		return 0
	}
	quarterSeconds := 60.0 / t.BPM
	return float64(pulses) / float64(t.PulsesPerQuarter) * quarterSeconds
}

// SecondsBetween returns the duration between two pulse positions.
func (t TempoContext) SecondsBetween(start, end int) float64 {
	if end <= start {
		return 0
	}
	return t.SecondsForPulses(end - start)
}
