package commands

import (
	"github.com/spf13/cobra"
)

var (
	instrumentsPath string
	instrumentID    string
	bpm             float64
	verbose         bool
)

var rootCmd = &cobra.Command{
	Use:   "arrange",
	Short: "Best-effort phrase arranger for limited-range instruments",
	Long: `arrange - rework phrases so a limited-range instrument can play them.

The arranger folds out-of-range notes, limits fingering and subhole speed,
plans breath points, and when a phrase is still too hard it applies a small
budgeted cascade of edits. Every edit is reported as a structured event.

Instrument definitions are loaded from a YAML file; see 'arrange run --help'
for the phrase input format.

Examples:
  # Arrange a phrase in place
  arrange run --instruments ocarinas.yaml --instrument alto-c phrase.json

  # Let the arranger pick the easiest of the current and starred instruments
  arrange run --instruments ocarinas.yaml --instrument alto-c --strategy starred-best --starred tenor-g,bass-f phrase.json

  # Rank nearby keys without arranging
  arrange keys --instruments ocarinas.yaml --instrument alto-c phrase.json`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&instrumentsPath, "instruments", "", "instrument definitions YAML file")
	rootCmd.PersistentFlags().StringVar(&instrumentID, "instrument", "", "instrument id to arrange for")
	rootCmd.PersistentFlags().Float64Var(&bpm, "bpm", 120, "tempo in beats per minute")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
