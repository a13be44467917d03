package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-arrange/arrange"
	"github.com/cwbudde/algo-arrange/explain"
	"github.com/cwbudde/algo-arrange/phrase"
)

var (
	runStrategy  string
	runStarred   []string
	runKeyOffset int
	runDPSlack   bool
)

var runCmd = &cobra.Command{
	Use:   "run [phrase.json]",
	Short: "Arrange a phrase for an instrument",
	Long: `Arrange a phrase and print the result as JSON.

The phrase is read from the given file, or stdin when the argument is "-"
or omitted. Input format:

  {
    "id": "intro",
    "pulses_per_quarter": 480,
    "beats_per_measure": 4,
    "notes": [
      {"midi": 72, "onset": 0, "duration": 480},
      {"midi": 79, "onset": 480, "duration": 240, "tags": ["ornamental"]}
    ]
  }

Strategies:
  current       arrange on the requested instrument (default)
  starred-best  arrange on the current and all --starred instruments,
                keep the one that plays easiest
  gp            evolve edit programs; attaches the cascade result as a
                fallback when the session stops early`,
	Args: cobra.MaximumNArgs(1),
	RunE: runArrange,
}

func init() {
	runCmd.Flags().StringVar(&runStrategy, "strategy", arrange.StrategyCurrent, "arrangement strategy")
	runCmd.Flags().StringSliceVar(&runStarred, "starred", nil, "starred instrument ids for the starred-best selector")
	runCmd.Flags().IntVar(&runKeyOffset, "key-offset", 0, "semitone offset to apply before arranging")
	runCmd.Flags().BoolVar(&runDPSlack, "dp-slack", false, "use dynamic-programming register folding")
	rootCmd.AddCommand(runCmd)
}

func runArrange(cmd *cobra.Command, args []string) error {
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

	engine := arrange.NewEngine(registry)
	req := arrange.Request{
		Span:         span,
		InstrumentID: instrumentID,
		StarredIDs:   runStarred,
		BPM:          bpm,
		KeyOffset:    runKeyOffset,
		Flags:        arrange.FeatureFlags{DPSlack: runDPSlack},
	}
	result, err := engine.Run(cmd.Context(), runStrategy, req)
	if err != nil {
		return err
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "strategy=%s instrument=%s key=%+d difficulty=%.3f (%s) edits=%d\n",
			result.Strategy, result.Arrangement.InstrumentID, result.Arrangement.KeyOffset,
			result.Arrangement.Score.Value, result.Arrangement.Score.Label,
			len(result.Arrangement.Events))
	}
	return printJSON(arrangementOutput(result.Arrangement, result.Strategy))
}

// arrangementView is the JSON output schema for one arrangement.
type arrangementView struct {
	ID          string          `json:"id"`
	SpanID      string          `json:"span_id"`
	Instrument  string          `json:"instrument"`
	Strategy    string          `json:"strategy"`
	KeyOffset   int             `json:"key_offset"`
	Difficulty  float64         `json:"difficulty"`
	Label       string          `json:"label"`
	Recommended bool            `json:"recommended"`
	Notes       []noteInput     `json:"notes"`
	Events      []explain.Event `json:"events"`
	Steps       []string        `json:"applied_steps,omitempty"`
}

func arrangementOutput(a arrange.Arrangement, strategy string) arrangementView {
	view := arrangementView{
		ID:          a.ID,
		SpanID:      a.SpanID,
		Instrument:  a.InstrumentID,
		Strategy:    strategy,
		KeyOffset:   a.KeyOffset,
		Difficulty:  a.Score.Value,
		Label:       string(a.Score.Label),
		Recommended: a.Recommended,
		Notes:       notesOutput(a.Span),
		Events:      a.Events,
	}
	if a.Salvage != nil {
		view.Steps = a.Salvage.AppliedSteps
	}
	return view
}

func notesOutput(span phrase.Span) []noteInput {
	notes := span.Notes()
	out := make([]noteInput, 0, len(notes))
	for _, n := range notes {
		out = append(out, noteInput{
			MIDI:     n.MIDI,
			Onset:    n.Onset,
			Duration: n.Duration,
			Voice:    n.Voice,
			Tags:     n.Tags,
		})
	}
	return out
}
