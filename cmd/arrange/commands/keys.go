package commands

import (
	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-arrange/difficulty"
	"github.com/cwbudde/algo-arrange/softkey"
)

var (
	keysMinOffset int
	keysMaxOffset int
	keysTopK      int
)

var keysCmd = &cobra.Command{
	Use:   "keys [phrase.json]",
	Short: "Rank nearby keys by difficulty",
	Long: `Transpose the phrase through nearby keys and rank each key by how
hard the result is to play. No edits are applied beyond speed enforcement;
use 'arrange run --key-offset' to arrange in the winning key, or
'arrange run --strategy starred-best --starred ...' to compare instruments
instead of keys.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runKeys,
}

func init() {
	keysCmd.Flags().IntVar(&keysMinOffset, "min-offset", -10, "lowest semitone offset to try")
	keysCmd.Flags().IntVar(&keysMaxOffset, "max-offset", 10, "highest semitone offset to try")
	keysCmd.Flags().IntVar(&keysTopK, "top", 4, "number of keys to keep")
	rootCmd.AddCommand(keysCmd)
}

func runKeys(cmd *cobra.Command, args []string) error {
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
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	span, err := loadPhrase(path)
	if err != nil {
		return err
	}

	results := softkey.Search(span, rng, difficulty.NewScorer(bpm), softkey.Options{
		MinOffset: keysMinOffset,
		MaxOffset: keysMaxOffset,
		TopK:      keysTopK,
	})
	return printJSON(results)
}
