package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cwbudde/algo-arrange/instrument"
	"github.com/cwbudde/algo-arrange/phrase"
)

// phraseFile is the JSON input schema for one phrase.
type phraseFile struct {
	ID               string      `json:"id"`
	PulsesPerQuarter int         `json:"pulses_per_quarter"`
	BeatsPerMeasure  int         `json:"beats_per_measure"`
	Notes            []noteInput `json:"notes"`
}

type noteInput struct {
	MIDI     int      `json:"midi"`
	Onset    int      `json:"onset"`
	Duration int      `json:"duration"`
	Voice    int      `json:"voice,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// loadPhrase reads a phrase from the given path, or stdin for "-".
func loadPhrase(path string) (phrase.Span, error) {
	var data []byte
	var err error
	if path == "-" || path == "" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return phrase.Span{}, fmt.Errorf("read phrase: %w", err)
	}
	var file phraseFile
	if err := json.Unmarshal(data, &file); err != nil {
		return phrase.Span{}, fmt.Errorf("parse phrase: %w", err)
	}
	if len(file.Notes) == 0 {
		return phrase.Span{}, fmt.Errorf("phrase %q has no notes", file.ID)
	}
	notes := make([]phrase.Note, 0, len(file.Notes))
	for _, n := range file.Notes {
		notes = append(notes, phrase.Note{
			MIDI:     n.MIDI,
			Onset:    n.Onset,
			Duration: n.Duration,
			Voice:    n.Voice,
			Tags:     n.Tags,
		})
	}
	return phrase.NewSpan(file.ID, notes, file.PulsesPerQuarter, file.BeatsPerMeasure), nil
}

// loadRegistry loads the instrument definitions named by the global flag.
func loadRegistry() (*instrument.Registry, error) {
	if instrumentsPath == "" {
		return nil, fmt.Errorf("--instruments is required")
	}
	return instrument.LoadYAML(instrumentsPath)
}

func requireInstrument() error {
	if instrumentID == "" {
		return fmt.Errorf("--instrument is required")
	}
	return nil
}

// printJSON writes indented JSON to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
