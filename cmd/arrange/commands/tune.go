package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-arrange/phrase"
	"github.com/cwbudde/algo-arrange/tuning"
)

var (
	tuneSeed       int64
	tuneVariant    string
	tuneIterations int
)

var tuneCmd = &cobra.Command{
	Use:   "tune <samples.json>",
	Short: "Calibrate difficulty weights from scored samples",
	Long: `Search for difficulty weights that reproduce reviewer-assigned scores.

The samples file is a JSON array of phrases, each with the difficulty a
reviewer assigned it:

  [
    {
      "phrase": {"id": "a", "notes": [...]},
      "target": 0.42,
      "bpm": 120
    }
  ]

All samples are scored against the instrument given by --instrument.
The result is never worse than the shipped default weights.`,
	Args: cobra.ExactArgs(1),
	RunE: runTune,
}

func init() {
	tuneCmd.Flags().Int64Var(&tuneSeed, "seed", 1, "random seed")
	tuneCmd.Flags().StringVar(&tuneVariant, "variant", "desma", "mayfly variant (ma, desma, olce, eobbma, gsasma, mpma, aoblmoa)")
	tuneCmd.Flags().IntVar(&tuneIterations, "iterations", 60, "optimizer iterations")
	rootCmd.AddCommand(tuneCmd)
}

type sampleInput struct {
	Phrase phraseFile `json:"phrase"`
	Target float64    `json:"target"`
	BPM    float64    `json:"bpm,omitempty"`
}

func runTune(cmd *cobra.Command, args []string) error {
	if err := requireInstrument(); err != nil {
		return err
	}
	registry, err := loadRegistry()
	if err != nil {
		return err
	}
	rng, err := registry.Lookup(instrumentID)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read samples: %w", err)
	}
	var inputs []sampleInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		return fmt.Errorf("parse samples: %w", err)
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no samples in %s", args[0])
	}

	samples := make([]tuning.Sample, 0, len(inputs))
	for _, in := range inputs {
		notes := make([]phrase.Note, 0, len(in.Phrase.Notes))
		for _, n := range in.Phrase.Notes {
			notes = append(notes, phrase.Note{
				MIDI:     n.MIDI,
				Onset:    n.Onset,
				Duration: n.Duration,
				Voice:    n.Voice,
				Tags:     n.Tags,
			})
		}
		sampleBPM := in.BPM
		if sampleBPM <= 0 {
			sampleBPM = bpm
		}
		samples = append(samples, tuning.Sample{
			Span:   phrase.NewSpan(in.Phrase.ID, notes, in.Phrase.PulsesPerQuarter, in.Phrase.BeatsPerMeasure),
			Range:  rng,
			BPM:    sampleBPM,
			Target: in.Target,
		})
	}

	cfg := tuning.DefaultConfig(tuneSeed)
	cfg.Variant = tuneVariant
	cfg.Iterations = tuneIterations

	result, err := tuning.Calibrate(samples, cfg)
	if err != nil {
		return err
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "rmse=%.4f evals=%d elapsed=%.1fs\n",
			result.Error, result.Evals, result.Elapsed.Seconds())
	}
	return printJSON(struct {
		Weights interface{} `json:"weights"`
		Error   float64     `json:"rmse"`
		Evals   int         `json:"evals"`
	}{result.Weights, result.Error, result.Evals})
}
