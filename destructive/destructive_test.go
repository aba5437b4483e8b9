package destructive

import (
	"context"
	"testing"

	"github.com/lockplane/lockplane/differ"
	"github.com/lockplane/lockplane/schema"
)

func classifyOne(t *testing.T, step differ.MigrationStep) []Issue {
	t.Helper()
	c := New()
	issues, err := c.Classify(context.Background(), []differ.MigrationStep{step})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	return issues
}

func TestDropTableIsDestructive(t *testing.T) {
	issues := classifyOne(t, differ.MigrationStep{Kind: differ.DropTable, Table: "posts"})
	if len(issues) != 1 || issues[0].Severity != Destructive {
		t.Fatalf("expected one destructive issue, got %+v", issues)
	}
}

func TestDropColumnIsDestructive(t *testing.T) {
	step := differ.MigrationStep{Kind: differ.DropColumn, Table: "posts", OldColumn: schema.Column{Name: "body"}}
	issues := classifyOne(t, step)
	if len(issues) != 1 || issues[0].Severity != Destructive {
		t.Fatalf("expected one destructive issue, got %+v", issues)
	}
}

func TestAlterColumnNarrowingFamilyIsDestructive(t *testing.T) {
	step := differ.MigrationStep{
		Kind:      differ.AlterColumn,
		Table:     "posts",
		OldColumn: schema.Column{Name: "title", Type: schema.ColumnType{Family: schema.FamilyString}},
		Column:    schema.Column{Name: "title", Type: schema.ColumnType{Family: schema.FamilyInt}},
		Change:    differ.ColumnChange{FamilyChanged: true},
	}
	issues := classifyOne(t, step)
	if len(issues) != 1 || issues[0].Severity != Destructive {
		t.Fatalf("expected one destructive issue, got %+v", issues)
	}
}

func TestAlterColumnTighteningNullabilityWithoutDefaultIsDestructive(t *testing.T) {
	step := differ.MigrationStep{
		Kind:      differ.AlterColumn,
		Table:     "posts",
		OldColumn: schema.Column{Name: "title", Arity: schema.ArityNullable},
		Column:    schema.Column{Name: "title", Arity: schema.ArityRequired},
		Change:    differ.ColumnChange{ArityChanged: true},
	}
	issues := classifyOne(t, step)
	if len(issues) != 1 || issues[0].Severity != Destructive {
		t.Fatalf("expected one destructive issue, got %+v", issues)
	}
}

func TestAlterColumnDefaultOnlyIsSafe(t *testing.T) {
	step := differ.MigrationStep{
		Kind:   differ.AlterColumn,
		Table:  "posts",
		Change: differ.ColumnChange{DefaultChanged: true},
	}
	issues := classifyOne(t, step)
	if len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestAddColumnNullableIsSafe(t *testing.T) {
	step := differ.MigrationStep{Kind: differ.AddColumn, Table: "posts", Column: schema.Column{Name: "bio", Arity: schema.ArityNullable}}
	if issues := classifyOne(t, step); len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestAddColumnRequiredWithDefaultIsSafe(t *testing.T) {
	def := "0"
	step := differ.MigrationStep{Kind: differ.AddColumn, Table: "posts", Column: schema.Column{Name: "views", Arity: schema.ArityRequired, Default: &def}}
	if issues := classifyOne(t, step); len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestAddColumnRequiredWithoutDefaultIsWarningWithoutRowCounter(t *testing.T) {
	step := differ.MigrationStep{Kind: differ.AddColumn, Table: "posts", Column: schema.Column{Name: "slug", Arity: schema.ArityRequired}}
	issues := classifyOne(t, step)
	if len(issues) != 1 || issues[0].Severity != Warning {
		t.Fatalf("expected one warning, got %+v", issues)
	}
}

type fakeRowCounter struct{ count int64 }

func (f *fakeRowCounter) CountRows(ctx context.Context, table string) (int64, error) {
	return f.count, nil
}

func TestAddColumnRequiredWithoutDefaultEmptyTableIsSafe(t *testing.T) {
	c := &Checker{RowCounter: &fakeRowCounter{count: 0}}
	step := differ.MigrationStep{Kind: differ.AddColumn, Table: "posts", Column: schema.Column{Name: "slug", Arity: schema.ArityRequired}}
	issues, err := c.Classify(context.Background(), []differ.MigrationStep{step})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected no issues for empty table, got %+v", issues)
	}
}

func TestAddColumnRequiredWithoutDefaultNonEmptyTableIsWarning(t *testing.T) {
	c := &Checker{RowCounter: &fakeRowCounter{count: 42}}
	step := differ.MigrationStep{Kind: differ.AddColumn, Table: "posts", Column: schema.Column{Name: "slug", Arity: schema.ArityRequired}}
	issues, err := c.Classify(context.Background(), []differ.MigrationStep{step})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(issues) != 1 || issues[0].Severity != Warning {
		t.Fatalf("expected one warning, got %+v", issues)
	}
}

func TestAlterEnumRemovingValueIsDestructive(t *testing.T) {
	step := differ.MigrationStep{
		Kind:    differ.AlterEnum,
		Table:   "posts",
		OldEnum: schema.Enum{Name: "Status", Values: []string{"DRAFT", "PUBLISHED"}},
		Enum:    schema.Enum{Name: "Status", Values: []string{"DRAFT"}},
	}
	issues := classifyOne(t, step)
	if len(issues) != 1 || issues[0].Severity != Destructive {
		t.Fatalf("expected one destructive issue, got %+v", issues)
	}
}

func TestAlterEnumAddingValueIsSafe(t *testing.T) {
	step := differ.MigrationStep{
		Kind:    differ.AlterEnum,
		Table:   "posts",
		OldEnum: schema.Enum{Name: "Status", Values: []string{"DRAFT"}},
		Enum:    schema.Enum{Name: "Status", Values: []string{"DRAFT", "PUBLISHED"}},
	}
	if issues := classifyOne(t, step); len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestIndexAndForeignKeyChangesAreSafe(t *testing.T) {
	steps := []differ.MigrationStep{
		{Kind: differ.CreateIndex, Table: "posts", Index: schema.Index{Name: "idx_x"}},
		{Kind: differ.DropIndex, Table: "posts", Index: schema.Index{Name: "idx_x"}},
		{Kind: differ.AddForeignKey, Table: "posts", ForeignKey: schema.ForeignKey{ReferencedTable: "users"}},
		{Kind: differ.DropForeignKey, Table: "posts", ForeignKey: schema.ForeignKey{ReferencedTable: "users"}},
	}
	c := New()
	issues, err := c.Classify(context.Background(), steps)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}
