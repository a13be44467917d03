package constraints

import (
	"math"

	"github.com/cwbudde/algo-arrange/phrase"
)

// TessituraSettings controls how comfort-band penalties are computed.
type TessituraSettings struct {
	ComfortCenter float64
	Tolerance     float64
	Weight        float64
}

// DefaultTessituraTolerance is the comfort band half-width in semitones.
const DefaultTessituraTolerance = 5.0

// DefaultTessituraWeight scales the normalized excess distance.
const DefaultTessituraWeight = 0.02

// TessituraBias returns a duration-weighted penalty for time spent outside
// the comfort band around the center.
func TessituraBias(span phrase.Span, settings TessituraSettings) float64 {
	total := 0
	for _, note := range span.Notes() {
		total += note.Duration
	}
	if total <= 0 {
		return 0
	}
	penalty := 0.0
	for _, note := range span.Notes() {
		distance := math.Abs(float64(note.MIDI) - settings.ComfortCenter)
		excess := distance - settings.Tolerance
		if excess <= 0 {
			continue
		}
		penalty += excess * float64(note.Duration)
	}
	return penalty / float64(total) * settings.Weight
}
