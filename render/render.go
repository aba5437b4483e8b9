// Package render turns a differ.MigrationStep into the ordered list
// of SQL statements that apply it on a specific dialect, generalized
// from the engine's earlier per-dialect SQLGenerator (database/postgres,
// database/sqlite) into a single step-driven renderer that also
// implements the SQLite table-rebuild expansion those generators only
// stubbed out.
package render

import (
	"fmt"
	"strings"

	"github.com/lockplane/lockplane/differ"
	"github.com/lockplane/lockplane/engineerr"
	"github.com/lockplane/lockplane/schema"
)

// Render renders one MigrationStep into the SQL statements that apply
// it against the given dialect. next is the full target schema; it is
// required (not merely the step's own fields) for SQLite's table
// rebuild, which must reconstruct a table's complete column set
//.
func Render(step differ.MigrationStep, dialect schema.Dialect, next *schema.Schema) ([]string, error) {
	switch dialect {
	case schema.DialectPostgres:
		return renderPostgres(step)
	case schema.DialectMySQL:
		return renderMySQL(step)
	case schema.DialectSQLite:
		return renderSQLite(step, next)
	default:
		return nil, engineerr.New(engineerr.Render, "render step", fmt.Errorf("unsupported dialect %q", dialect))
	}
}

// RenderAll renders a whole migration's steps in emitted order. On
// Postgres and MySQL this is just per-step rendering concatenated; on
// SQLite, where a single column/foreign-key change on a table expands
// into a full table rebuild, it also folds every other step touching
// the same table into that one rebuild so later steps don't re-add a
// column or index the rebuild's CREATE TABLE already materialized.
func RenderAll(steps []differ.MigrationStep, dialect schema.Dialect, next *schema.Schema) ([]string, error) {
	if dialect != schema.DialectSQLite {
		var out []string
		for _, step := range steps {
			rendered, err := Render(step, dialect, next)
			if err != nil {
				return nil, err
			}
			out = append(out, rendered...)
		}
		return out, nil
	}
	return renderSQLiteBatch(steps, next)
}

// Quote returns the identifier-quoting function for a dialect: double
// quotes for Postgres/SQLite, backticks for MySQL, doubling the
// internal occurrence of the quote character to escape it. Exported so callers outside this package (the history table,
// the cmd facade) quote identifiers the same way the renderer does.
func Quote(dialect schema.Dialect) func(string) string {
	q := `"`
	if dialect == schema.DialectMySQL {
		q = "`"
	}
	return func(name string) string {
		return q + strings.ReplaceAll(name, q, q+q) + q
	}
}

// onDeleteClause renders the FK action; NoAction is the SQL default
// and is omitted.
func onDeleteClause(action schema.OnDeleteAction) string {
	if action == "" || action == schema.NoAction {
		return ""
	}
	return " ON DELETE " + string(action)
}

func foreignKeyClause(fk schema.ForeignKey, quote func(string) string) string {
	var b strings.Builder
	b.WriteString("FOREIGN KEY (")
	b.WriteString(joinQuoted(fk.Columns, quote))
	b.WriteString(") REFERENCES ")
	b.WriteString(quote(fk.ReferencedTable))
	b.WriteString(" (")
	b.WriteString(joinQuoted(fk.ReferencedColumns, quote))
	b.WriteString(")")
	b.WriteString(onDeleteClause(fk.OnDelete))
	return b.String()
}

func joinQuoted(names []string, quote func(string) string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quote(n)
	}
	return strings.Join(quoted, ", ")
}

func primaryKeyClause(pk *schema.PrimaryKey, quote func(string) string) string {
	if pk == nil || len(pk.Columns) == 0 {
		return ""
	}
	return "PRIMARY KEY (" + joinQuoted(pk.Columns, quote) + ")"
}

func indexStatement(table string, idx schema.Index, quote func(string) string) string {
	kind := "INDEX"
	if idx.Type == schema.IndexUnique {
		kind = "UNIQUE INDEX"
	}
	return fmt.Sprintf("CREATE %s %s ON %s (%s)", kind, quote(idx.Name), quote(table), joinQuoted(idx.Columns, quote))
}

// dropIndexStatement renders `DROP INDEX <name>`, the Postgres/SQLite
// spelling. MySQL instead requires `DROP INDEX <name> ON <table>` and
// builds its own statement in render/mysql.go.
func dropIndexStatement(idx schema.Index, quote func(string) string) string {
	return fmt.Sprintf("DROP INDEX %s", quote(idx.Name))
}
