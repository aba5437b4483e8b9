package render

import (
	"strings"
	"testing"

	"github.com/lockplane/lockplane/differ"
	"github.com/lockplane/lockplane/schema"
)

func mustRender(t *testing.T, step differ.MigrationStep, dialect schema.Dialect, next *schema.Schema) []string {
	t.Helper()
	stmts, err := Render(step, dialect, next)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return stmts
}

func TestRenderCreateTablePostgres(t *testing.T) {
	table := &schema.Table{
		Name: "users",
		Columns: []schema.Column{
			{Name: "id", Type: schema.ColumnType{Family: schema.FamilyInt}, Arity: schema.ArityRequired, AutoIncrement: true},
			{Name: "email", Type: schema.ColumnType{Family: schema.FamilyString}, Arity: schema.ArityRequired},
		},
		PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
	}
	step := differ.MigrationStep{Kind: differ.CreateTable, Table: "users", NewTable: table}
	stmts := mustRender(t, step, schema.DialectPostgres, nil)
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
	if !strings.Contains(stmts[0], `CREATE TABLE "users"`) {
		t.Fatalf("unexpected statement: %s", stmts[0])
	}
	if !strings.Contains(stmts[0], `PRIMARY KEY ("id")`) {
		t.Fatalf("expected primary key clause, got: %s", stmts[0])
	}
}

func TestRenderIdentifierQuotingPerDialect(t *testing.T) {
	step := differ.MigrationStep{Kind: differ.DropTable, Table: "users"}

	pg := mustRender(t, step, schema.DialectPostgres, nil)
	if pg[0] != `DROP TABLE "users"` {
		t.Fatalf("unexpected postgres statement: %s", pg[0])
	}

	mysql := mustRender(t, step, schema.DialectMySQL, nil)
	if mysql[0] != "DROP TABLE `users`" {
		t.Fatalf("unexpected mysql statement: %s", mysql[0])
	}

	sqlite := mustRender(t, step, schema.DialectSQLite, nil)
	if sqlite[0] != `DROP TABLE "users"` {
		t.Fatalf("unexpected sqlite statement: %s", sqlite[0])
	}
}

func TestRenderForeignKeyOmitsNoAction(t *testing.T) {
	fk := schema.ForeignKey{ConstraintName: "fk_x", Columns: []string{"a"}, ReferencedTable: "b", ReferencedColumns: []string{"id"}, OnDelete: schema.NoAction}
	step := differ.MigrationStep{Kind: differ.AddForeignKey, Table: "t", ForeignKey: fk}
	stmts := mustRender(t, step, schema.DialectPostgres, nil)
	if strings.Contains(stmts[0], "ON DELETE") {
		t.Fatalf("expected NoAction to be omitted, got: %s", stmts[0])
	}
}

func TestRenderForeignKeyIncludesCascade(t *testing.T) {
	fk := schema.ForeignKey{ConstraintName: "fk_x", Columns: []string{"a"}, ReferencedTable: "b", ReferencedColumns: []string{"id"}, OnDelete: schema.Cascade}
	step := differ.MigrationStep{Kind: differ.AddForeignKey, Table: "t", ForeignKey: fk}
	stmts := mustRender(t, step, schema.DialectPostgres, nil)
	if !strings.Contains(stmts[0], "ON DELETE CASCADE") {
		t.Fatalf("expected ON DELETE CASCADE, got: %s", stmts[0])
	}
}

func TestRenderSQLiteAlterColumnExpandsToTableRebuild(t *testing.T) {
	next := &schema.Schema{Tables: []schema.Table{
		{
			Name: "posts",
			Columns: []schema.Column{
				{Name: "id", Type: schema.ColumnType{Family: schema.FamilyInt}, Arity: schema.ArityRequired},
				{Name: "title", Type: schema.ColumnType{Family: schema.FamilyString}, Arity: schema.ArityRequired},
			},
			PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
			Indices:    []schema.Index{{Name: "idx_title", Columns: []string{"title"}, Type: schema.IndexNormal}},
		},
	}}
	step := differ.MigrationStep{
		Kind:  differ.AlterColumn,
		Table: "posts",
		Column: schema.Column{Name: "title", Type: schema.ColumnType{Family: schema.FamilyString}, Arity: schema.ArityRequired},
	}

	stmts := mustRender(t, step, schema.DialectSQLite, next)
	if len(stmts) < 5 {
		t.Fatalf("expected a multi-statement rebuild, got %d: %v", len(stmts), stmts)
	}
	if !strings.Contains(stmts[0], "CREATE TABLE") {
		t.Fatalf("expected rebuild to start with CREATE TABLE, got: %s", stmts[0])
	}
	if !strings.Contains(stmts[1], "INSERT INTO") || !strings.Contains(stmts[1], "SELECT") {
		t.Fatalf("expected an INSERT INTO ... SELECT copy step, got: %s", stmts[1])
	}
	if !strings.Contains(stmts[2], "DROP TABLE") {
		t.Fatalf("expected a DROP TABLE step, got: %s", stmts[2])
	}
	if !strings.Contains(stmts[3], "RENAME TO") {
		t.Fatalf("expected a RENAME TO step, got: %s", stmts[3])
	}
	if !strings.Contains(stmts[4], "CREATE INDEX") {
		t.Fatalf("expected the index to be recreated, got: %s", stmts[4])
	}
}

func TestRenderAllFoldsMixedColumnStepsIntoOneSQLiteRebuild(t *testing.T) {
	next := &schema.Schema{Tables: []schema.Table{
		{
			Name: "posts",
			Columns: []schema.Column{
				{Name: "id", Type: schema.ColumnType{Family: schema.FamilyInt}, Arity: schema.ArityRequired},
				{Name: "title", Type: schema.ColumnType{Family: schema.FamilyInt}, Arity: schema.ArityRequired},
				{Name: "subtitle", Type: schema.ColumnType{Family: schema.FamilyString}, Arity: schema.ArityNullable},
			},
			PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
		},
	}}

	// Mirrors the differ's own per-table ordering: DropColumn/AlterColumn
	// steps are emitted before AddColumn steps for the same table.
	steps := []differ.MigrationStep{
		{Kind: differ.AlterColumn, Table: "posts", Column: next.Tables[0].Columns[1]},
		{Kind: differ.AddColumn, Table: "posts", Column: next.Tables[0].Columns[2]},
	}

	stmts, err := RenderAll(steps, schema.DialectSQLite, next)
	if err != nil {
		t.Fatalf("RenderAll: %v", err)
	}

	var creates, adds int
	for _, s := range stmts {
		if strings.Contains(s, "CREATE TABLE") {
			creates++
		}
		if strings.Contains(s, "ADD COLUMN") {
			adds++
		}
	}
	if creates != 1 {
		t.Fatalf("expected exactly one rebuild CREATE TABLE, got %d in %v", creates, stmts)
	}
	if adds != 0 {
		t.Fatalf("expected the AddColumn step to be folded into the rebuild, not re-applied, got %v", stmts)
	}
	if !strings.Contains(stmts[0], `"subtitle"`) {
		t.Fatalf("expected the rebuilt table to already include subtitle, got: %s", stmts[0])
	}
}

func TestRenderEnumStepsAreNoOpOutsidePostgres(t *testing.T) {
	step := differ.MigrationStep{Kind: differ.CreateEnum, Enum: schema.Enum{Name: "Role", Values: []string{"ADMIN"}}}
	stmts, err := Render(step, schema.DialectSQLite, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stmts) != 0 {
		t.Fatalf("expected no statements for enum step on sqlite, got %v", stmts)
	}
}

func TestRenderCreateEnumPostgres(t *testing.T) {
	step := differ.MigrationStep{Kind: differ.CreateEnum, Enum: schema.Enum{Name: "Role", Values: []string{"ADMIN", "MEMBER"}}}
	stmts := mustRender(t, step, schema.DialectPostgres, nil)
	if !strings.Contains(stmts[0], `CREATE TYPE "Role" AS ENUM`) {
		t.Fatalf("unexpected statement: %s", stmts[0])
	}
	if !strings.Contains(stmts[0], "'ADMIN'") || !strings.Contains(stmts[0], "'MEMBER'") {
		t.Fatalf("expected both enum values quoted, got: %s", stmts[0])
	}
}
