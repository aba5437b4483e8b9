// Package cmd is the thin cobra CLI facade wiring the core engine
// packages (introspect, calculator, differ, render, apply,
// destructive) together so the engine can be exercised end to end in
// tests and local development.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lockplane",
	Short: "lockplane computes and applies declarative database migrations.",
	Long: `lockplane introspects a live database, compiles a declarative
data model, diffs the two into an ordered migration, and applies it —
flagging destructive changes along the way.`,
}

// Execute runs the CLI, exiting non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
