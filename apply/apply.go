// Package apply executes rendered SQL statements against a target
// database, generalizing the transaction-per-plan loop in
// internal/executor/executor.go's ApplyPlan into a dialect-aware
// applier that knows which engines can roll a DDL batch back and
// which cannot.
package apply

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/lockplane/lockplane/engineerr"
	"github.com/lockplane/lockplane/schema"
)

// Result reports how far a migration progressed.
type Result struct {
	StatementsApplied int
	Success           bool
}

// Applier runs a sequence of rendered statements against a *sql.DB.
type Applier struct {
	Verbose bool
}

// New returns an Applier with default (non-verbose) settings.
func New() *Applier {
	return &Applier{}
}

// isTransactional reports whether a dialect's DDL can be wrapped in a
// single transaction and rolled back on failure. Postgres and SQLite
// both support transactional DDL; MySQL implicitly commits most DDL
// statements, so wrapping it in a transaction buys nothing and is
// omitted rather than offering false safety.
func isTransactional(dialect schema.Dialect) bool {
	switch dialect {
	case schema.DialectPostgres, schema.DialectSQLite:
		return true
	default:
		return false
	}
}

// Apply executes statements in order. On dialects with transactional
// DDL, every statement runs inside one transaction that is rolled
// back as a whole on the first failure; on dialects without it, each
// statement commits as it runs and a failure reports how many
// statements preceded it so the caller knows the database's state.
func (a *Applier) Apply(ctx context.Context, db *sql.DB, dialect schema.Dialect, statements []string) (*Result, error) {
	if isTransactional(dialect) {
		return a.applyTransactional(ctx, db, statements)
	}
	return a.applyDirect(ctx, db, statements)
}

func (a *Applier) applyTransactional(ctx context.Context, db *sql.DB, statements []string) (*Result, error) {
	result := &Result{}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return result, engineerr.New(engineerr.Apply, "begin transaction", err)
	}
	defer func() {
		if !result.Success {
			_ = tx.Rollback()
		}
	}()

	for i, stmt := range statements {
		if skipStatement(stmt) {
			continue
		}
		a.logStatement(i, len(statements), stmt)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return result, engineerr.New(engineerr.Apply, "execute migration", &engineerr.ApplyError{StatementIndex: i, Err: err})
		}
		result.StatementsApplied++
	}

	if err := tx.Commit(); err != nil {
		return result, engineerr.New(engineerr.Apply, "commit transaction", err)
	}
	result.Success = true
	return result, nil
}

func (a *Applier) applyDirect(ctx context.Context, db *sql.DB, statements []string) (*Result, error) {
	result := &Result{}

	for i, stmt := range statements {
		if skipStatement(stmt) {
			continue
		}
		a.logStatement(i, len(statements), stmt)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return result, engineerr.New(engineerr.Apply, "execute migration", &engineerr.ApplyError{StatementIndex: i, Err: err})
		}
		result.StatementsApplied++
	}

	result.Success = true
	return result, nil
}

func skipStatement(stmt string) bool {
	trimmed := strings.TrimSpace(stmt)
	return trimmed == "" || strings.HasPrefix(trimmed, "--")
}

func (a *Applier) logStatement(i, total int, stmt string) {
	if !a.Verbose {
		return
	}
	preview := stmt
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}
	_, _ = color.New(color.FgYellow).Fprintf(os.Stderr, "  [%d/%d] %s\n", i+1, total, preview)
}

// Describe renders a short human-readable summary of what Apply would
// run: one numbered line per statement.
func Describe(statements []string) string {
	var b strings.Builder
	for i, stmt := range statements {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(stmt))
	}
	return b.String()
}
