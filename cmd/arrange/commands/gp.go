package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-arrange/arrange"
	"github.com/cwbudde/algo-arrange/gp"
)

var (
	gpSeed        int64
	gpGenerations int
	gpPopulation  int
	gpTimeBudget  time.Duration
	gpKeyOffset   int
	gpDPSlack     bool
	gpStarred     []string
)

var gpCmd = &cobra.Command{
	Use:   "gp [phrase.json]",
	Short: "Evolve edit programs for a phrase",
	Long: `Run the evolutionary strategy: evolve small edit programs (transpose,
local octave shifts, rhythm simplification, ornament removal) against the
difficulty and fidelity model, then finish the winner through the normal
pipeline.

The run is reproducible: the same seed on the same input yields the same
result. If no program beats the unedited phrase, the cascade-based
arrangement is returned instead; when the time budget cuts the session
short, the cascade result is attached as a separate fallback and the
output says why.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGP,
}

func init() {
	gpCmd.Flags().Int64Var(&gpSeed, "seed", 1, "random seed")
	gpCmd.Flags().IntVar(&gpGenerations, "generations", 30, "number of generations")
	gpCmd.Flags().IntVar(&gpPopulation, "population", 48, "population size")
	gpCmd.Flags().DurationVar(&gpTimeBudget, "time-budget", 5*time.Second, "wall-clock budget")
	gpCmd.Flags().IntVar(&gpKeyOffset, "key-offset", 0, "semitone offset to apply before arranging")
	gpCmd.Flags().BoolVar(&gpDPSlack, "dp-slack", false, "use dynamic-programming register folding")
	gpCmd.Flags().StringSliceVar(&gpStarred, "starred", nil, "starred instrument ids for the fallback selector")
	rootCmd.AddCommand(gpCmd)
}

func runGP(cmd *cobra.Command, args []string) error {
	if err := requireInstrument(); err != nil {
		return err
	}
	registry, err := loadRegistry()
	if err != nil {
		return err
	}
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	span, err := loadPhrase(path)
	if err != nil {
		return err
	}

	cfg := gp.DefaultConfig(gpSeed)
	cfg.Generations = gpGenerations
	cfg.PopulationSize = gpPopulation
	cfg.TimeBudget = gpTimeBudget

	engine := arrange.NewEngine(registry)
	req := arrange.Request{
		Span:         span,
		InstrumentID: instrumentID,
		StarredIDs:   gpStarred,
		BPM:          bpm,
		KeyOffset:    gpKeyOffset,
		Flags:        arrange.FeatureFlags{DPSlack: gpDPSlack},
	}
	result, err := engine.RunGP(cmd.Context(), req, cfg)
	if err != nil {
		return err
	}
	if verbose {
		if result.Hint != "" {
			fmt.Fprintf(os.Stderr, "fallback: %s\n", result.Hint)
		}
		if result.Session.FinalBest != "" {
			fmt.Fprintf(os.Stderr, "best program: %s\n", result.Session.FinalBest)
		}
	}
	out := struct {
		arrangementView
		Hint     string           `json:"hint,omitempty"`
		Fallback *arrangementView `json:"fallback,omitempty"`
		Session  gp.SessionLog    `json:"session"`
	}{
		arrangementView: arrangementOutput(result.Arrangement, result.Strategy),
		Hint:            result.Hint,
		Session:         result.Session,
	}
	if result.Fallback != nil {
		view := arrangementOutput(result.Fallback.Arrangement, result.Fallback.Strategy)
		out.Fallback = &view
	}
	return printJSON(out)
}
