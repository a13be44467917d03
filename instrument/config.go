package instrument

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/goccy/go-yaml"
)

// File is the YAML schema for instrument definition files.
type File struct {
	Instruments []Definition `yaml:"instruments"`
}

// Definition is one instrument entry in a definition file.
type Definition struct {
	ID                         string                  `yaml:"id"`
	MinMIDI                    int                     `yaml:"min_midi"`
	MaxMIDI                    int                     `yaml:"max_midi"`
	ComfortCenter              *float64                `yaml:"comfort_center"`
	MaxChangesPerSecond        *float64                `yaml:"max_changes_per_second"`
	MaxSubholeChangesPerSecond *float64                `yaml:"max_subhole_changes_per_second"`
	PairLimits                 []PairLimitSetting      `yaml:"pair_limits"`
	AltFingerings              map[string][]AltSetting `yaml:"alt_fingerings"`
	Windways                   map[string][]int        `yaml:"windways"`
}

// PairLimitSetting is a subhole pair limit entry.
type PairLimitSetting struct {
	Pitches []int   `yaml:"pitches"`
	MaxHz   float64 `yaml:"max_hz"`
	Ease    float64 `yaml:"ease"`
}

// AltSetting is an alternate fingering entry.
type AltSetting struct {
	Shape      string  `yaml:"shape"`
	Ease       float64 `yaml:"ease"`
	Intonation float64 `yaml:"intonation"`
}

// Default speed limits applied when a definition leaves them unset.
const (
	DefaultMaxChangesPerSecond        = 6.0
	DefaultMaxSubholeChangesPerSecond = 4.0
)

// LoadYAML reads an instrument definition file and registers every entry
// into a fresh registry.
func LoadYAML(path string) (*Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	reg := NewRegistry()
	if err := ApplyFile(reg, &f); err != nil {
		return nil, fmt.Errorf("apply %s: %w", path, err)
	}
	return reg, nil
}

// ApplyFile registers every definition in f into reg.
func ApplyFile(reg *Registry, f *File) error {
	if reg == nil {
		return fmt.Errorf("nil registry")
	}
	if f == nil {
		return nil
	}
	if len(f.Instruments) == 0 {
		return fmt.Errorf("no instruments defined")
	}
	for _, def := range f.Instruments {
		r, err := def.Range()
		if err != nil {
			return err
		}
		if err := reg.Register(r); err != nil {
			return err
		}
	}
	return nil
}

// Range converts a definition into a validated Range value.
func (d Definition) Range() (Range, error) {
	if d.ID == "" {
		return Range{}, fmt.Errorf("instrument entry missing id")
	}
	r := Range{
		ID:                         d.ID,
		MinMIDI:                    d.MinMIDI,
		MaxMIDI:                    d.MaxMIDI,
		MaxChangesPerSecond:        DefaultMaxChangesPerSecond,
		MaxSubholeChangesPerSecond: DefaultMaxSubholeChangesPerSecond,
	}
	if d.ComfortCenter != nil {
		r.ComfortCenter = *d.ComfortCenter
	}
	if d.MaxChangesPerSecond != nil {
		if *d.MaxChangesPerSecond <= 0 {
			return Range{}, fmt.Errorf("instrument %q: max_changes_per_second must be positive", d.ID)
		}
		r.MaxChangesPerSecond = *d.MaxChangesPerSecond
	}
	if d.MaxSubholeChangesPerSecond != nil {
		if *d.MaxSubholeChangesPerSecond <= 0 {
			return Range{}, fmt.Errorf("instrument %q: max_subhole_changes_per_second must be positive", d.ID)
		}
		r.MaxSubholeChangesPerSecond = *d.MaxSubholeChangesPerSecond
	}
	if len(d.PairLimits) > 0 {
		r.PairLimits = make(map[PitchPair]PairLimit, len(d.PairLimits))
		for _, entry := range d.PairLimits {
			if len(entry.Pitches) != 2 || entry.Pitches[0] == entry.Pitches[1] {
				return Range{}, fmt.Errorf("instrument %q: pair_limits entry needs two distinct pitches", d.ID)
			}
			pair := NewPitchPair(entry.Pitches[0], entry.Pitches[1])
			r.PairLimits[pair] = PairLimit{MaxHz: entry.MaxHz, Ease: entry.Ease}
		}
	}
	if len(d.AltFingerings) > 0 {
		r.AltFingerings = make(map[int][]AltFingering, len(d.AltFingerings))
		keys := make([]string, 0, len(d.AltFingerings))
		for k := range d.AltFingerings {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			pitch, err := strconv.Atoi(k)
			if err != nil || pitch < 0 || pitch > 127 {
				return Range{}, fmt.Errorf("instrument %q: invalid alt_fingerings key %q (expected 0..127)", d.ID, k)
			}
			alts := make([]AltFingering, 0, len(d.AltFingerings[k]))
			for _, setting := range d.AltFingerings[k] {
				alts = append(alts, AltFingering{Shape: setting.Shape, Ease: setting.Ease, Intonation: setting.Intonation})
			}
			r.AltFingerings[pitch] = alts
		}
	}
	if len(d.Windways) > 0 {
		r.Windways = make(map[int][]int, len(d.Windways))
		for k, ways := range d.Windways {
			pitch, err := strconv.Atoi(k)
			if err != nil || pitch < 0 || pitch > 127 {
				return Range{}, fmt.Errorf("instrument %q: invalid windways key %q (expected 0..127)", d.ID, k)
			}
			r.Windways[pitch] = append([]int(nil), ways...)
		}
	}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}
