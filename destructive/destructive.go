// Package destructive classifies migration steps by data-loss risk,
// generalizing the issue-reporting shape in
// internal/sqlvalidation/validate_sql.go (ValidationIssue) from SQL
// syntax linting to post-diff safety classification. It never
// rewrites or drops a step; it only reports.
package destructive

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lockplane/lockplane/differ"
	"github.com/lockplane/lockplane/schema"
)

// Severity classifies how risky a step is.
type Severity string

const (
	Safe        Severity = "safe"
	Warning     Severity = "warning"
	Destructive Severity = "destructive"
)

// Issue reports one step's classification.
type Issue struct {
	Table    string
	Severity Severity
	Message  string
	Code     string
}

// RowCounter probes whether a table already holds rows, used to
// decide whether a Required column added without a default is safe
// (empty table, no issue) or a Warning (non-empty table).
// Implementations wrap a *sql.DB with dialect-specific quoting.
type RowCounter interface {
	CountRows(ctx context.Context, table string) (int64, error)
}

// SQLRowCounter counts rows with a plain SELECT COUNT(*), quoting the
// table identifier the way the target dialect expects.
type SQLRowCounter struct {
	DB     *sql.DB
	Quote  func(string) string
}

func (c *SQLRowCounter) CountRows(ctx context.Context, table string) (int64, error) {
	quote := c.Quote
	if quote == nil {
		quote = func(s string) string { return s }
	}
	var n int64
	row := c.DB.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", quote(table)))
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Checker classifies migration steps. RowCounter is optional; when
// nil, AddColumn Required-without-default steps are reported as
// Warning unconditionally rather than probed.
type Checker struct {
	RowCounter RowCounter
}

// New returns a Checker with no row-counting collaborator.
func New() *Checker {
	return &Checker{}
}

// Classify reports the Issue for every step that is not plainly safe.
// Steps classified as Safe are omitted from the result, matching the
// "advisory report" contract: silence means nothing to warn about.
func (c *Checker) Classify(ctx context.Context, steps []differ.MigrationStep) ([]Issue, error) {
	var issues []Issue
	for _, step := range steps {
		issue, err := c.classifyStep(ctx, step)
		if err != nil {
			return nil, err
		}
		if issue != nil {
			issues = append(issues, *issue)
		}
	}
	return issues, nil
}

func (c *Checker) classifyStep(ctx context.Context, step differ.MigrationStep) (*Issue, error) {
	switch step.Kind {
	case differ.DropTable:
		return &Issue{Table: step.Table, Severity: Destructive, Code: "drop_table",
			Message: fmt.Sprintf("table %q will be dropped and all its rows lost", step.Table)}, nil

	case differ.DropColumn:
		return &Issue{Table: step.Table, Severity: Destructive, Code: "drop_column",
			Message: fmt.Sprintf("column %q.%q will be dropped and its data lost", step.Table, step.OldColumn.Name)}, nil

	case differ.AlterColumn:
		return c.classifyAlterColumn(step)

	case differ.AlterEnum:
		if removesValue(step.OldEnum, step.Enum) {
			return &Issue{Table: step.Table, Severity: Destructive, Code: "alter_enum_remove_value",
				Message: fmt.Sprintf("enum %q drops one or more values; rows using a removed value will violate the new type", step.Enum.Name)}, nil
		}
		return nil, nil

	case differ.AddColumn:
		return c.classifyAddColumn(ctx, step)

	default:
		// AddForeignKey, DropForeignKey, CreateIndex, DropIndex,
		// AlterIndex, CreateTable, CreateEnum, DropEnum, RenameTable,
		// RawSql are all safe per spec: index/FK changes never lose
		// existing rows and CreateTable/CreateEnum/DropEnum only
		// touch structures with no rows yet.
		return nil, nil
	}
}

func (c *Checker) classifyAlterColumn(step differ.MigrationStep) (*Issue, error) {
	narrowsFamily := step.Change.FamilyChanged
	tightensNullability := step.Change.ArityChanged &&
		step.OldColumn.Arity == schema.ArityNullable &&
		step.Column.Arity == schema.ArityRequired &&
		step.Column.Default == nil

	if narrowsFamily || tightensNullability {
		return &Issue{Table: step.Table, Severity: Destructive, Code: "alter_column_narrows",
			Message: fmt.Sprintf("column %q.%q changes in a way that may not preserve existing values", step.Table, step.Column.Name)}, nil
	}

	// Default-only change, or any other facet, is safe.
	return nil, nil
}

func (c *Checker) classifyAddColumn(ctx context.Context, step differ.MigrationStep) (*Issue, error) {
	if step.Column.Arity == schema.ArityNullable {
		return nil, nil
	}
	if step.Column.Default != nil {
		return nil, nil
	}

	// Required, no default: safe only if the table is currently
	// empty. Without a row counter, report a warning unconditionally
	// rather than guessing.
	if c.RowCounter == nil {
		return &Issue{Table: step.Table, Severity: Warning, Code: "add_required_column_no_default",
			Message: fmt.Sprintf("column %q.%q is required with no default; existing rows must already be empty or this will fail", step.Table, step.Column.Name)}, nil
	}

	count, err := c.RowCounter.CountRows(ctx, step.Table)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	return &Issue{Table: step.Table, Severity: Warning, Code: "add_required_column_no_default",
		Message: fmt.Sprintf("column %q.%q is required with no default; table has %d existing row(s)", step.Table, step.Column.Name, count)}, nil
}

func removesValue(old, next schema.Enum) bool {
	have := make(map[string]bool, len(next.Values))
	for _, v := range next.Values {
		have[v] = true
	}
	for _, v := range old.Values {
		if !have[v] {
			return true
		}
	}
	return false
}
