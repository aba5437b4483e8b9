package render

import (
	"fmt"
	"strings"

	"github.com/lockplane/lockplane/differ"
	"github.com/lockplane/lockplane/engineerr"
	"github.com/lockplane/lockplane/schema"
)

func renderPostgres(step differ.MigrationStep) ([]string, error) {
	quote := Quote(schema.DialectPostgres)

	switch step.Kind {
	case differ.CreateTable:
		return []string{createTableStatement(step.NewTable, quote, postgresColumnType)}, nil

	case differ.DropTable:
		return []string{fmt.Sprintf("DROP TABLE %s", quote(step.Table))}, nil

	case differ.RenameTable:
		return []string{fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quote(step.OldTable), quote(step.Table))}, nil

	case differ.AddColumn:
		return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", quote(step.Table), columnDefinition(step.Column, quote, postgresColumnType))}, nil

	case differ.DropColumn:
		return []string{fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", quote(step.Table), quote(step.OldColumn.Name))}, nil

	case differ.AlterColumn:
		return postgresAlterColumn(step, quote), nil

	case differ.AddForeignKey:
		return []string{fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s %s", quote(step.Table), quote(constraintName(step.ForeignKey, step.Table)), foreignKeyClause(step.ForeignKey, quote))}, nil

	case differ.DropForeignKey:
		return []string{fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", quote(step.Table), quote(constraintName(step.ForeignKey, step.Table)))}, nil

	case differ.CreateIndex:
		return []string{indexStatement(step.Table, step.Index, quote)}, nil

	case differ.DropIndex:
		return []string{dropIndexStatement(step.Index, quote)}, nil

	case differ.AlterIndex:
		return []string{fmt.Sprintf("ALTER INDEX %s RENAME TO %s", quote(step.OldIndex.Name), quote(step.Index.Name))}, nil

	case differ.CreateEnum:
		return []string{fmt.Sprintf("CREATE TYPE %s AS ENUM (%s)", quote(step.Enum.Name), joinEnumValues(step.Enum.Values))}, nil

	case differ.DropEnum:
		return []string{fmt.Sprintf("DROP TYPE %s", quote(step.Enum.Name))}, nil

	case differ.AlterEnum:
		return postgresAlterEnum(step, quote), nil

	case differ.RawSql:
		return []string{step.SQL}, nil
	}

	return nil, engineerr.New(engineerr.Render, "render postgres step", fmt.Errorf("unhandled step kind %q", step.Kind))
}

func postgresAlterColumn(step differ.MigrationStep, quote func(string) string) []string {
	var stmts []string
	table := quote(step.Table)
	col := quote(step.Column.Name)

	if step.Change.FamilyChanged {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s", table, col, postgresColumnType(step.Column.Type)))
	}
	if step.Change.ArityChanged {
		if step.Column.Arity == schema.ArityRequired {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL", table, col))
		} else {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL", table, col))
		}
	}
	if step.Change.DefaultChanged {
		if step.Column.Default == nil {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT", table, col))
		} else {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s", table, col, defaultLiteral(*step.Column.Default, step.Column.Type)))
		}
	}
	return stmts
}

// postgresAlterEnum renders an enum value-set change as one
// ALTER TYPE ... ADD VALUE statement per added value. Postgres cannot
// remove a value in place, and values removed from the set produce no
// statement: the type keeps them.
func postgresAlterEnum(step differ.MigrationStep, quote func(string) string) []string {
	existing := map[string]bool{}
	for _, v := range step.OldEnum.Values {
		existing[v] = true
	}
	var stmts []string
	for _, v := range step.Enum.Values {
		if !existing[v] {
			stmts = append(stmts, fmt.Sprintf("ALTER TYPE %s ADD VALUE %s", quote(step.Enum.Name), quoteLiteral(v)))
		}
	}
	return stmts
}

func joinEnumValues(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quoteLiteral(v)
	}
	return strings.Join(quoted, ", ")
}

func quoteLiteral(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

func constraintName(fk schema.ForeignKey, table string) string {
	if fk.ConstraintName != "" {
		return fk.ConstraintName
	}
	return fmt.Sprintf("fk_%s_%s", table, strings.Join(fk.Columns, "_"))
}

func defaultLiteral(value string, tpe schema.ColumnType) string {
	switch tpe.Family {
	case schema.FamilyInt, schema.FamilyFloat, schema.FamilyBoolean:
		return value
	default:
		return quoteLiteral(value)
	}
}

func createTableStatement(table *schema.Table, quote func(string) string, typeFn func(schema.ColumnType) string) string {
	var clauses []string
	for _, c := range table.Columns {
		clauses = append(clauses, columnDefinition(c, quote, typeFn))
	}
	if pk := primaryKeyClause(table.PrimaryKey, quote); pk != "" {
		clauses = append(clauses, pk)
	}
	for _, fk := range table.ForeignKeys {
		clauses = append(clauses, foreignKeyClause(fk, quote))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", quote(table.Name), strings.Join(clauses, ",\n  "))
}

func columnDefinition(c schema.Column, quote func(string) string, typeFn func(schema.ColumnType) string) string {
	var b strings.Builder
	b.WriteString(quote(c.Name))
	b.WriteString(" ")
	b.WriteString(typeFn(c.Type))
	if c.Arity == schema.ArityRequired {
		b.WriteString(" NOT NULL")
	}
	if c.Default != nil {
		b.WriteString(" DEFAULT ")
		b.WriteString(defaultLiteral(*c.Default, c.Type))
	}
	return b.String()
}

// postgresColumnType maps an abstract ColumnType to its Postgres
// spelling. An enum-typed column carries its enum name in Raw with
// Family String; any other Raw spelling is ignored in favor of the
// family's canonical type.
func postgresColumnType(t schema.ColumnType) string {
	if t.Family == schema.FamilyString && t.Raw != "" && t.Raw != "String" && t.Raw != "text" && t.Raw != "varchar" {
		return `"` + strings.ReplaceAll(t.Raw, `"`, `""`) + `"`
	}
	switch t.Family {
	case schema.FamilyInt:
		return "integer"
	case schema.FamilyFloat:
		return "double precision"
	case schema.FamilyBoolean:
		return "boolean"
	case schema.FamilyString:
		return "text"
	case schema.FamilyDateTime:
		return "timestamptz"
	case schema.FamilyBinary:
		return "bytea"
	case schema.FamilyJson:
		return "jsonb"
	case schema.FamilyUuid:
		return "uuid"
	case schema.FamilyGeometric:
		return "polygon"
	case schema.FamilyTextSearch:
		return "tsvector"
	case schema.FamilyLogSequenceNumber:
		return "pg_lsn"
	case schema.FamilyTransactionId:
		return "xid8"
	default:
		if t.Raw != "" {
			return t.Raw
		}
		return "text"
	}
}
