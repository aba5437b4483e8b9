package differ

import (
	"testing"

	"github.com/lockplane/lockplane/schema"
)

func col(name string, family schema.ColumnTypeFamily, arity schema.Arity) schema.Column {
	return schema.Column{Name: name, Type: schema.ColumnType{Family: family}, Arity: arity}
}

func TestDiffAddTableFromEmpty(t *testing.T) {
	next := &schema.Schema{Tables: []schema.Table{
		{
			Name:       "Blog",
			Columns:    []schema.Column{{Name: "id", Type: schema.ColumnType{Family: schema.FamilyInt}, Arity: schema.ArityRequired, AutoIncrement: true}},
			PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
		},
	}}

	steps, err := Diff(nil, next)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(steps) != 1 {
		t.Fatalf("expected exactly 1 step, got %d: %+v", len(steps), steps)
	}
	if steps[0].Kind != CreateTable || steps[0].Table != "Blog" {
		t.Fatalf("expected CreateTable Blog, got %+v", steps[0])
	}
}

func TestDiffDropTable(t *testing.T) {
	prev := &schema.Schema{Tables: []schema.Table{{Name: "Old"}}}
	steps, err := Diff(prev, nil)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(steps) != 1 || steps[0].Kind != DropTable || steps[0].Table != "Old" {
		t.Fatalf("expected single DropTable step, got %+v", steps)
	}
}

func TestDiffAddColumn(t *testing.T) {
	prev := &schema.Schema{Tables: []schema.Table{{Name: "T", Columns: []schema.Column{col("id", schema.FamilyInt, schema.ArityRequired)}}}}
	next := &schema.Schema{Tables: []schema.Table{{Name: "T", Columns: []schema.Column{
		col("id", schema.FamilyInt, schema.ArityRequired),
		col("name", schema.FamilyString, schema.ArityNullable),
	}}}}

	steps, err := Diff(prev, next)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(steps) != 1 || steps[0].Kind != AddColumn || steps[0].Column.Name != "name" {
		t.Fatalf("expected single AddColumn name step, got %+v", steps)
	}
}

func TestDiffAlterColumnFamilyChange(t *testing.T) {
	prev := &schema.Schema{Tables: []schema.Table{{Name: "T", Columns: []schema.Column{col("x", schema.FamilyInt, schema.ArityRequired)}}}}
	next := &schema.Schema{Tables: []schema.Table{{Name: "T", Columns: []schema.Column{col("x", schema.FamilyString, schema.ArityRequired)}}}}

	steps, err := Diff(prev, next)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(steps) != 1 || steps[0].Kind != AlterColumn || !steps[0].Change.FamilyChanged {
		t.Fatalf("expected single AlterColumn step with FamilyChanged, got %+v", steps)
	}
}

func TestDiffIgnoresRawTypeSpelling(t *testing.T) {
	c1 := schema.Column{Name: "x", Type: schema.ColumnType{Raw: "int4", Family: schema.FamilyInt}, Arity: schema.ArityRequired}
	c2 := schema.Column{Name: "x", Type: schema.ColumnType{Raw: "int8", Family: schema.FamilyInt}, Arity: schema.ArityRequired}
	prev := &schema.Schema{Tables: []schema.Table{{Name: "T", Columns: []schema.Column{c1}}}}
	next := &schema.Schema{Tables: []schema.Table{{Name: "T", Columns: []schema.Column{c2}}}}

	steps, err := Diff(prev, next)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(steps) != 0 {
		t.Fatalf("expected no steps when only raw type spelling differs, got %+v", steps)
	}
}

func TestDiffForeignKeyIgnoresConstraintNameAndOrder(t *testing.T) {
	prevFK := schema.ForeignKey{ConstraintName: "old_name", Columns: []string{"a", "b"}, ReferencedTable: "Other", ReferencedColumns: []string{"x", "y"}, OnDelete: schema.Cascade}
	nextFK := schema.ForeignKey{ConstraintName: "new_name", Columns: []string{"b", "a"}, ReferencedTable: "Other", ReferencedColumns: []string{"y", "x"}, OnDelete: schema.Cascade}

	added, removed := diffForeignKeys([]schema.ForeignKey{prevFK}, []schema.ForeignKey{nextFK})
	if len(added) != 0 || len(removed) != 0 {
		t.Fatalf("expected FK with different constraint name/column order to be treated as unchanged, got added=%+v removed=%+v", added, removed)
	}
}

func TestDiffIndexRenameProducesAlterIndex(t *testing.T) {
	prevIdx := schema.Index{Name: "idx_old", Columns: []string{"a"}, Type: schema.IndexNormal}
	nextIdx := schema.Index{Name: "idx_new", Columns: []string{"a"}, Type: schema.IndexNormal}

	added, removed, renamed := diffIndices([]schema.Index{prevIdx}, []schema.Index{nextIdx})
	if len(added) != 0 || len(removed) != 0 {
		t.Fatalf("expected a rename, not add+drop: added=%+v removed=%+v", added, removed)
	}
	if len(renamed) != 1 || renamed[0].prev.Name != "idx_old" || renamed[0].next.Name != "idx_new" {
		t.Fatalf("unexpected renamed indices: %+v", renamed)
	}
}

func TestDiffCreateTableTopologicalOrder(t *testing.T) {
	next := &schema.Schema{Tables: []schema.Table{
		{
			Name:        "Child",
			Columns:     []schema.Column{col("parent_id", schema.FamilyInt, schema.ArityRequired)},
			ForeignKeys: []schema.ForeignKey{{Columns: []string{"parent_id"}, ReferencedTable: "Parent", ReferencedColumns: []string{"id"}, OnDelete: schema.Cascade}},
		},
		{
			Name:       "Parent",
			Columns:    []schema.Column{col("id", schema.FamilyInt, schema.ArityRequired)},
			PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
		},
	}}

	steps, err := Diff(nil, next)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}

	var order []string
	for _, s := range steps {
		if s.Kind == CreateTable {
			order = append(order, s.Table)
		}
	}
	if len(order) != 2 || order[0] != "Parent" || order[1] != "Child" {
		t.Fatalf("expected Parent created before Child, got %v", order)
	}
}

func TestDiffOrderingPhases(t *testing.T) {
	prev := &schema.Schema{
		Tables: []schema.Table{
			{Name: "Doomed", ForeignKeys: []schema.ForeignKey{{Columns: []string{"x"}, ReferencedTable: "Other", ReferencedColumns: []string{"id"}}}},
		},
	}
	next := &schema.Schema{
		Tables: []schema.Table{
			{Name: "Fresh", Columns: []schema.Column{col("id", schema.FamilyInt, schema.ArityRequired)}, PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}}},
		},
	}

	steps, err := Diff(prev, next)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}

	var sawDropFK, sawDropTable, sawCreateTable bool
	var dropFKIndex, dropTableIndex, createTableIndex int
	for i, s := range steps {
		switch s.Kind {
		case DropForeignKey:
			sawDropFK = true
			dropFKIndex = i
		case DropTable:
			sawDropTable = true
			dropTableIndex = i
		case CreateTable:
			sawCreateTable = true
			createTableIndex = i
		}
	}
	if !sawDropFK || !sawDropTable || !sawCreateTable {
		t.Fatalf("expected DropForeignKey, DropTable and CreateTable steps, got %+v", steps)
	}
	if !(dropFKIndex < dropTableIndex && dropTableIndex < createTableIndex) {
		t.Fatalf("expected DropForeignKey < DropTable < CreateTable ordering, got indices %d %d %d", dropFKIndex, dropTableIndex, createTableIndex)
	}
}
