// This file contains integration tests for lockplane with SQLite/libSQL.
//
// Tests verify SQLite-specific behaviors against a real in-memory
// database: DDL generation, describe/diff/apply round trips, and
// table-rebuild expansion for column changes SQLite can't ALTER directly.
package integration_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lockplane/lockplane/apply"
	"github.com/lockplane/lockplane/calculator"
	"github.com/lockplane/lockplane/differ"
	"github.com/lockplane/lockplane/introspect/sqlite"
	"github.com/lockplane/lockplane/modelparser"
	"github.com/lockplane/lockplane/render"
	"github.com/lockplane/lockplane/schema"

	_ "modernc.org/sqlite"
)

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func migrate(t *testing.T, db *sql.DB, before, after *schema.Schema) {
	t.Helper()
	steps, err := differ.Diff(before, after)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(steps) == 0 {
		t.Fatal("expected at least one step")
	}
	for _, step := range steps {
		statements, err := render.Render(step, schema.DialectSQLite, after)
		if err != nil {
			t.Fatalf("render %s: %v", step.Kind, err)
		}
		applier := apply.New()
		if _, err := applier.Apply(context.Background(), db, schema.DialectSQLite, statements); err != nil {
			t.Fatalf("apply %s: %v", step.Kind, err)
		}
	}
}

func TestSQLiteCreateTable(t *testing.T) {
	db := openMemoryDB(t)

	doc, err := modelparser.ParseSQLDocument(`
CREATE TABLE tasks (
	id INTEGER PRIMARY KEY,
	title TEXT NOT NULL,
	completed INTEGER DEFAULT 0
);
`)
	if err != nil {
		t.Fatalf("parse model: %v", err)
	}
	after, err := calculator.Calculate(doc, schema.DialectSQLite)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}

	migrate(t, db, &schema.Schema{}, after)

	describer := sqlite.New()
	current, err := describer.Describe(context.Background(), db, "")
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	table, ok := current.Table("tasks")
	if !ok {
		t.Fatal("expected tasks table to exist after migration")
	}
	col, ok := table.Column("title")
	if !ok || col.Arity != schema.ArityRequired {
		t.Fatalf("expected title to be required, got %+v", col)
	}
}

func TestSQLiteColumnTypeChangeRebuildsTable(t *testing.T) {
	db := openMemoryDB(t)

	before := &schema.Schema{Tables: []schema.Table{{
		Name: "widgets",
		Columns: []schema.Column{
			{Name: "id", Type: schema.ColumnType{Raw: "INTEGER", Family: schema.FamilyInt}, Arity: schema.ArityRequired},
			{Name: "price", Type: schema.ColumnType{Raw: "TEXT", Family: schema.FamilyString}, Arity: schema.ArityRequired},
		},
		PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
	}}}
	migrate(t, db, &schema.Schema{}, before)

	after := &schema.Schema{Tables: []schema.Table{{
		Name: "widgets",
		Columns: []schema.Column{
			{Name: "id", Type: schema.ColumnType{Raw: "INTEGER", Family: schema.FamilyInt}, Arity: schema.ArityRequired},
			{Name: "price", Type: schema.ColumnType{Raw: "REAL", Family: schema.FamilyFloat}, Arity: schema.ArityRequired},
		},
		PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
	}}}

	steps, err := differ.Diff(before, after)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}

	var sawRebuild bool
	for _, step := range steps {
		statements, err := render.Render(step, schema.DialectSQLite, after)
		if err != nil {
			t.Fatalf("render %s: %v", step.Kind, err)
		}
		if len(statements) > 1 {
			sawRebuild = true
		}
		applier := apply.New()
		if _, err := applier.Apply(context.Background(), db, schema.DialectSQLite, statements); err != nil {
			t.Fatalf("apply %s: %v", step.Kind, err)
		}
	}
	if !sawRebuild {
		t.Fatal("expected the column type change to expand into a table-rebuild statement sequence")
	}

	describer := sqlite.New()
	current, err := describer.Describe(context.Background(), db, "")
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	table, _ := current.Table("widgets")
	col, ok := table.Column("price")
	if !ok || col.Type.Family != schema.FamilyFloat {
		t.Fatalf("expected price column to be float after rebuild, got %+v", col)
	}
}

func TestSQLiteNoChangesProduceNoSteps(t *testing.T) {
	s := &schema.Schema{Tables: []schema.Table{{
		Name: "notes",
		Columns: []schema.Column{
			{Name: "id", Type: schema.ColumnType{Raw: "INTEGER", Family: schema.FamilyInt}, Arity: schema.ArityRequired},
		},
		PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
	}}}

	steps, err := differ.Diff(s, s)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(steps) != 0 {
		t.Fatalf("expected no steps for an unchanged schema, got %d", len(steps))
	}
}
