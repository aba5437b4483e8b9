package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lockplane/lockplane/destructive"
	"github.com/lockplane/lockplane/differ"
	"github.com/lockplane/lockplane/schema"
)

var (
	planFrom    string
	planTo      string
	planDialect string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Diff two schemas (database connections and/or declarative model files) into an ordered migration",
	RunE:  runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().StringVar(&planFrom, "from", "", "Source: a connection string or a declarative model file")
	planCmd.Flags().StringVar(&planTo, "to", "", "Target: a connection string or a declarative model file")
	planCmd.Flags().StringVar(&planDialect, "dialect", string(schema.DialectPostgres), "Dialect to compile model files against (postgres, mysql, sqlite)")
}

func runPlan(cmd *cobra.Command, args []string) error {
	if planFrom == "" || planTo == "" {
		return fmt.Errorf("both --from and --to are required")
	}

	ctx := context.Background()
	dialect := schema.Dialect(planDialect)

	previous, err := loadSchema(ctx, planFrom, dialect)
	if err != nil {
		return fmt.Errorf("load --from: %w", err)
	}
	next, err := loadSchema(ctx, planTo, dialect)
	if err != nil {
		return fmt.Errorf("load --to: %w", err)
	}

	steps, err := differ.Diff(previous, next)
	if err != nil {
		return fmt.Errorf("diff: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(steps); err != nil {
		return err
	}

	checker := destructive.New()
	issues, err := checker.Classify(ctx, steps)
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}
	for _, issue := range issues {
		c := color.New(color.FgYellow)
		if issue.Severity == destructive.Destructive {
			c = color.New(color.FgRed)
		}
		c.Fprintf(os.Stderr, "[%s] %s: %s\n", issue.Severity, issue.Table, issue.Message)
	}

	return nil
}
