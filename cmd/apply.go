package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lockplane/lockplane/apply"
	"github.com/lockplane/lockplane/destructive"
	"github.com/lockplane/lockplane/differ"
	"github.com/lockplane/lockplane/history"
	"github.com/lockplane/lockplane/render"
	"github.com/lockplane/lockplane/schema"
)

var (
	applyTarget  string // connection string to apply against
	applyModel   string // declarative model file describing the desired schema
	applyName    string // migration name recorded in history
	applyForce   bool   // apply despite destructive warnings
	applyVerbose bool
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Diff a live database against a declarative model and apply the migration",
	RunE:  runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().StringVar(&applyTarget, "to", "", "Connection string of the database to migrate")
	applyCmd.Flags().StringVar(&applyModel, "model", "", "Declarative model file describing the desired schema")
	applyCmd.Flags().StringVar(&applyName, "name", "migration", "Name recorded for this migration in the history table")
	applyCmd.Flags().BoolVar(&applyForce, "force", false, "Apply even if destructive changes are detected")
	applyCmd.Flags().BoolVarP(&applyVerbose, "verbose", "v", false, "Print each statement as it runs")
}

func runApply(cmd *cobra.Command, args []string) error {
	if applyTarget == "" || applyModel == "" {
		return fmt.Errorf("both --to and --model are required")
	}

	ctx := context.Background()

	db, cfg, err := openConnection(applyTarget)
	if err != nil {
		return err
	}
	defer db.Close()

	describer, err := describerFor(cfg.Dialect)
	if err != nil {
		return err
	}
	previous, err := describer.Describe(ctx, db, cfg.SchemaName)
	if err != nil {
		return fmt.Errorf("describe current state: %w", err)
	}

	next, err := loadSchema(ctx, applyModel, cfg.Dialect)
	if err != nil {
		return fmt.Errorf("load --model: %w", err)
	}

	steps, err := differ.Diff(previous, next)
	if err != nil {
		return fmt.Errorf("diff: %w", err)
	}
	if len(steps) == 0 {
		fmt.Println("no changes")
		return nil
	}

	checker := destructive.New()
	checker.RowCounter = &destructive.SQLRowCounter{DB: db, Quote: render.Quote(cfg.Dialect)}
	issues, err := checker.Classify(ctx, steps)
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}

	var hasDestructive bool
	for _, issue := range issues {
		c := color.New(color.FgYellow)
		if issue.Severity == destructive.Destructive {
			c = color.New(color.FgRed)
			hasDestructive = true
		}
		c.Printf("[%s] %s: %s\n", issue.Severity, issue.Table, issue.Message)
	}
	if hasDestructive && !applyForce {
		return fmt.Errorf("refusing to apply: destructive changes detected (pass --force to override)")
	}

	statements, err := render.RenderAll(steps, cfg.Dialect, next)
	if err != nil {
		return fmt.Errorf("render migration: %w", err)
	}

	applier := &apply.Applier{Verbose: applyVerbose}
	result, err := applier.Apply(ctx, db, cfg.Dialect, statements)
	if err != nil {
		return fmt.Errorf("apply (%d/%d statements succeeded): %w", result.StatementsApplied, len(statements), err)
	}

	if err := recordHistory(ctx, db, cfg.Dialect, applyName, steps); err != nil {
		fmt.Printf("warning: migration applied but history was not recorded: %v\n", err)
	}

	color.New(color.FgGreen).Printf("applied %d statement(s)\n", result.StatementsApplied)
	return nil
}

func recordHistory(ctx context.Context, db *sql.DB, dialect schema.Dialect, name string, steps []differ.MigrationStep) error {
	stepsJSON, err := history.EncodeSteps(steps)
	if err != nil {
		return err
	}

	h := history.New(db, render.Quote(dialect))
	if err := h.Init(ctx); err != nil {
		return err
	}
	_, err = h.Record(ctx, name, history.Checksum(stepsJSON), stepsJSON)
	return err
}
