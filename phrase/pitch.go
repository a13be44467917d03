package phrase

import "fmt"

var pitchClassNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// MIDIName returns a scientific pitch name for a MIDI number, e.g. 60 -> "C4".
func MIDIName(midi int) string {
	pc := midi % 12
	if pc < 0 {
		pc += 12
	}
	octave := midi/12 - 1
	if midi < 0 && midi%12 != 0 {
		octave--
	}
	return fmt.Sprintf("%s%d", pitchClassNames[pc], octave)
}
