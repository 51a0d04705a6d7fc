// Copyright (C) 2024-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command abduce drives the robust abductive-inference pipeline
// against a binary target: it generates candidate conjunctions of
// assumptions, checks them against a symbolic-execution oracle, and
// reports the necessary-and-sufficient policy it converges on.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "abduce",
	Short: "Robust abductive inference over a binary target",
	Long: `abduce drives a CEGAR search for necessary and sufficient input
conditions that make a chosen program point reachable (or, in
constant-time mode, that make a side-channel leak avoidable),
querying a BINSEC-shaped symbolic-execution oracle as it goes.`,
}

func main() {
	rootCmd.AddCommand(
		runCmd(),
		profileCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
