package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-arrange/ledger"
)

var ledgerDir string

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Manage the approval ledger",
	Long: `The approval ledger records arrangements the user accepted, so future
proposals can be scored against that history and the difficulty model can
be recalibrated from it.

Records are stored in a BadgerDB directory given by --db.`,
}

var ledgerApproveCmd = &cobra.Command{
	Use:   "approve <proposal.json>",
	Short: "Record an approved proposal",
	Long: `Append one approved proposal to the ledger. Input format:

  {
    "id": "…",
    "span_id": "intro",
    "instrument_id": "alto-c",
    "key_offset": -2,
    "applied_steps": ["OCTAVE_DOWN_LOCAL"],
    "difficulty_before": 1.05,
    "difficulty_after": 0.82
  }`,
	Args: cobra.ExactArgs(1),
	RunE: runLedgerApprove,
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List approval records in insertion order",
	Args:  cobra.NoArgs,
	RunE:  runLedgerList,
}

var ledgerEvaluateCmd = &cobra.Command{
	Use:   "evaluate <proposal.json>",
	Short: "Score a proposal against the approval history",
	Args:  cobra.ExactArgs(1),
	RunE:  runLedgerEvaluate,
}

func init() {
	ledgerCmd.PersistentFlags().StringVar(&ledgerDir, "db", "", "ledger database directory")
	ledgerCmd.AddCommand(ledgerApproveCmd)
	ledgerCmd.AddCommand(ledgerListCmd)
	ledgerCmd.AddCommand(ledgerEvaluateCmd)
	rootCmd.AddCommand(ledgerCmd)
}

func openLedger() (*ledger.BadgerStore, error) {
	if ledgerDir == "" {
		return nil, fmt.Errorf("--db is required")
	}
	return ledger.OpenBadger(ledger.BadgerOptions{Dir: ledgerDir})
}

func readProposal(path string) (ledger.Proposal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ledger.Proposal{}, fmt.Errorf("read proposal: %w", err)
	}
	var proposal ledger.Proposal
	if err := json.Unmarshal(data, &proposal); err != nil {
		return ledger.Proposal{}, fmt.Errorf("parse proposal: %w", err)
	}
	return proposal, nil
}

func runLedgerApprove(cmd *cobra.Command, args []string) error {
	proposal, err := readProposal(args[0])
	if err != nil {
		return err
	}
	store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	record, err := ledger.NewLogger(store).LogApproval(cmd.Context(), proposal, nil, time.Time{})
	if err != nil {
		return err
	}
	return printJSON(record)
}

func runLedgerList(cmd *cobra.Command, args []string) error {
	store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Records(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(records)
}

func runLedgerEvaluate(cmd *cobra.Command, args []string) error {
	proposal, err := readProposal(args[0])
	if err != nil {
		return err
	}
	store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Records(cmd.Context())
	if err != nil {
		return err
	}
	report := ledger.NewEvaluator(records).Evaluate(proposal)
	return printJSON(report)
}
