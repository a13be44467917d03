// Package main is the entry point for the arrange CLI.
//
// Usage:
//
//	arrange [flags] <command> [args]
//
// Commands:
//
//	run     - Arrange a phrase for an instrument
//	keys    - Rank nearby keys by difficulty
//	gp      - Evolve edit programs for a phrase
//	tune    - Calibrate difficulty weights from scored samples
//	ledger  - Manage the approval ledger
package main

import (
	"fmt"
	"os"

	"github.com/cwbudde/algo-arrange/cmd/arrange/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
