package render

import (
	"fmt"

	"github.com/lockplane/lockplane/differ"
	"github.com/lockplane/lockplane/engineerr"
	"github.com/lockplane/lockplane/schema"
)

func renderMySQL(step differ.MigrationStep) ([]string, error) {
	quote := Quote(schema.DialectMySQL)

	switch step.Kind {
	case differ.CreateTable:
		return []string{createTableStatement(step.NewTable, quote, mysqlColumnType)}, nil

	case differ.DropTable:
		return []string{fmt.Sprintf("DROP TABLE %s", quote(step.Table))}, nil

	case differ.RenameTable:
		return []string{fmt.Sprintf("RENAME TABLE %s TO %s", quote(step.OldTable), quote(step.Table))}, nil

	case differ.AddColumn:
		return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", quote(step.Table), columnDefinition(step.Column, quote, mysqlColumnType))}, nil

	case differ.DropColumn:
		return []string{fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", quote(step.Table), quote(step.OldColumn.Name))}, nil

	case differ.AlterColumn:
		return []string{fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s", quote(step.Table), columnDefinition(step.Column, quote, mysqlColumnType))}, nil

	case differ.AddForeignKey:
		return []string{fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s %s", quote(step.Table), quote(constraintName(step.ForeignKey, step.Table)), foreignKeyClause(step.ForeignKey, quote))}, nil

	case differ.DropForeignKey:
		return []string{fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", quote(step.Table), quote(constraintName(step.ForeignKey, step.Table)))}, nil

	case differ.CreateIndex:
		return []string{indexStatement(step.Table, step.Index, quote)}, nil

	case differ.DropIndex:
		return []string{fmt.Sprintf("DROP INDEX %s ON %s", quote(step.Index.Name), quote(step.Table))}, nil

	case differ.AlterIndex:
		return []string{
			fmt.Sprintf("DROP INDEX %s ON %s", quote(step.OldIndex.Name), quote(step.Table)),
			indexStatement(step.Table, step.Index, quote),
		}, nil

	case differ.CreateEnum, differ.DropEnum, differ.AlterEnum:
		// MySQL has no enum catalog: enum-typed columns are plain
		// String columns, so these steps never reach
		// this dialect's renderer.
		return nil, nil

	case differ.RawSql:
		return []string{step.SQL}, nil
	}

	return nil, engineerr.New(engineerr.Render, "render mysql step", fmt.Errorf("unhandled step kind %q", step.Kind))
}

func mysqlColumnType(t schema.ColumnType) string {
	switch t.Family {
	case schema.FamilyInt:
		return "bigint"
	case schema.FamilyFloat:
		return "double"
	case schema.FamilyBoolean:
		return "tinyint(1)"
	case schema.FamilyString:
		return "text"
	case schema.FamilyDateTime:
		return "datetime"
	case schema.FamilyBinary:
		return "blob"
	case schema.FamilyJson:
		return "json"
	case schema.FamilyUuid:
		return "char(36)"
	default:
		if t.Raw != "" {
			return t.Raw
		}
		return "text"
	}
}

