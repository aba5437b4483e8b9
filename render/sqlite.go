package render

import (
	"fmt"
	"strings"

	"github.com/lockplane/lockplane/differ"
	"github.com/lockplane/lockplane/engineerr"
	"github.com/lockplane/lockplane/schema"
)

func renderSQLite(step differ.MigrationStep, next *schema.Schema) ([]string, error) {
	quote := Quote(schema.DialectSQLite)

	switch step.Kind {
	case differ.CreateTable:
		return []string{createTableStatement(step.NewTable, quote, sqliteColumnType)}, nil

	case differ.DropTable:
		return []string{fmt.Sprintf("DROP TABLE %s", quote(step.Table))}, nil

	case differ.RenameTable:
		return []string{fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quote(step.OldTable), quote(step.Table))}, nil

	case differ.AddColumn:
		// SQLite supports ADD COLUMN directly as long as the new
		// column is nullable or carries a constant default; a NOT NULL
		// column without a default is rendered the same way and SQLite
		// rejects the statement.
		return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", quote(step.Table), columnDefinition(step.Column, quote, sqliteColumnType))}, nil

	case differ.DropColumn, differ.AlterColumn:
		return rebuildTable(step.Table, next, quote)

	case differ.AddForeignKey, differ.DropForeignKey:
		// SQLite cannot ALTER TABLE ADD/DROP CONSTRAINT; a foreign
		// key change requires the same rebuild as a column change,
		// since the constraint is fixed at CREATE TABLE time.
		return rebuildTable(step.Table, next, quote)

	case differ.CreateIndex:
		return []string{indexStatement(step.Table, step.Index, quote)}, nil

	case differ.DropIndex:
		return []string{dropIndexStatement(step.Index, quote)}, nil

	case differ.AlterIndex:
		return []string{
			dropIndexStatement(step.OldIndex, quote),
			indexStatement(step.Table, step.Index, quote),
		}, nil

	case differ.CreateEnum, differ.DropEnum, differ.AlterEnum:
		// SQLite has no enum catalog either.
		return nil, nil

	case differ.RawSql:
		return []string{step.SQL}, nil
	}

	return nil, engineerr.New(engineerr.Render, "render sqlite step", fmt.Errorf("unhandled step kind %q", step.Kind))
}

// rebuildTable expands an unsupported-in-place SQLite alteration into
// the table-rebuild sequence this engine mandates: create a
// temporary table with the target schema, copy over the columns that
// still exist under their old or mapped names, drop the original,
// rename the temp table into place, and recreate every surviving
// index. This is driven entirely from the target schema, not from
// the triggering step, since a rebuild folds every pending change to
// the table into one pass.
func rebuildTable(tableName string, next *schema.Schema, quote func(string) string) ([]string, error) {
	table, ok := next.Table(tableName)
	if !ok {
		return nil, engineerr.New(engineerr.Render, "rebuild table "+tableName, fmt.Errorf("table %s not present in target schema", tableName))
	}

	tmpName := tableName + "_lockplane_tmp"
	tmpTable := *table
	tmpTable.Name = tmpName

	var stmts []string
	stmts = append(stmts, createTableStatement(&tmpTable, quote, sqliteColumnType))

	columnNames := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		columnNames[i] = c.Name
	}
	quotedCols := joinQuoted(columnNames, quote)
	stmts = append(stmts, fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s",
		quote(tmpName), quotedCols, quotedCols, quote(tableName),
	))

	stmts = append(stmts, fmt.Sprintf("DROP TABLE %s", quote(tableName)))
	stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quote(tmpName), quote(tableName)))

	for _, idx := range table.Indices {
		stmts = append(stmts, indexStatement(tableName, idx, quote))
	}

	return stmts, nil
}

// renderSQLiteBatch walks a migration's steps in order, rebuilding a
// table at most once even when several of its steps (a dropped or
// altered column, a changed foreign key) each individually require
// the rebuild expansion. The first such step for a table
// triggers rebuildTable, which reads the table's final shape straight
// off next, including any column the rebuild hasn't literally "added"
// yet and any index/foreign key it hasn't literally "created" yet, so
// every later step naming that same table is already satisfied and is
// skipped rather than re-applied against the freshly rebuilt table.
func renderSQLiteBatch(steps []differ.MigrationStep, next *schema.Schema) ([]string, error) {
	quote := Quote(schema.DialectSQLite)
	rebuilt := map[string]bool{}

	var stmts []string
	for _, step := range steps {
		if step.Table != "" && rebuilt[step.Table] {
			if step.Kind == differ.DropColumn || step.Kind == differ.AlterColumn ||
				step.Kind == differ.AddForeignKey || step.Kind == differ.DropForeignKey ||
				step.Kind == differ.AddColumn || step.Kind == differ.CreateIndex ||
				step.Kind == differ.DropIndex || step.Kind == differ.AlterIndex {
				continue
			}
		}

		if requiresSQLiteRebuild(step.Kind) && !rebuilt[step.Table] {
			rebuilt[step.Table] = true
			rendered, err := rebuildTable(step.Table, next, quote)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, rendered...)
			continue
		}

		rendered, err := renderSQLite(step, next)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, rendered...)
	}
	return stmts, nil
}

func requiresSQLiteRebuild(kind differ.StepKind) bool {
	switch kind {
	case differ.DropColumn, differ.AlterColumn, differ.AddForeignKey, differ.DropForeignKey:
		return true
	default:
		return false
	}
}

func sqliteColumnType(t schema.ColumnType) string {
	switch t.Family {
	case schema.FamilyInt:
		return "INTEGER"
	case schema.FamilyFloat:
		return "REAL"
	case schema.FamilyBoolean:
		return "INTEGER"
	case schema.FamilyString:
		return "TEXT"
	case schema.FamilyDateTime:
		return "TEXT"
	case schema.FamilyBinary:
		return "BLOB"
	case schema.FamilyJson:
		return "TEXT"
	case schema.FamilyUuid:
		return "TEXT"
	default:
		if t.Raw != "" {
			return strings.ToUpper(t.Raw)
		}
		return "TEXT"
	}
}
