package schema

import "testing"

func TestTableLookup(t *testing.T) {
	s := &Schema{Tables: []Table{{Name: "users"}, {Name: "posts"}}}

	if _, ok := s.Table("users"); !ok {
		t.Fatalf("expected to find table users")
	}
	if _, ok := s.Table("missing"); ok {
		t.Fatalf("did not expect to find table missing")
	}
}

func TestPrimaryKeyColumns(t *testing.T) {
	tbl := Table{PrimaryKey: &PrimaryKey{Columns: []string{"id"}}}
	if got := tbl.PrimaryKeyColumns(); len(got) != 1 || got[0] != "id" {
		t.Fatalf("unexpected primary key columns: %v", got)
	}

	tbl2 := Table{}
	if got := tbl2.PrimaryKeyColumns(); got != nil {
		t.Fatalf("expected nil primary key columns, got %v", got)
	}
}

func TestSchemaEqualIgnoresForeignKeyAndIndexOrder(t *testing.T) {
	a := &Schema{
		Tables: []Table{
			{
				Name:    "posts",
				Columns: []Column{{Name: "id", Type: ColumnType{Family: FamilyInt}, Arity: ArityRequired}},
				ForeignKeys: []ForeignKey{
					{Columns: []string{"author_id"}, ReferencedTable: "users", ReferencedColumns: []string{"id"}, OnDelete: Cascade},
					{Columns: []string{"editor_id"}, ReferencedTable: "users", ReferencedColumns: []string{"id"}, OnDelete: SetNull},
				},
				Indices: []Index{
					{Name: "idx_a", Columns: []string{"a"}, Type: IndexNormal},
					{Name: "idx_b", Columns: []string{"b"}, Type: IndexUnique},
				},
			},
		},
	}
	b := &Schema{
		Tables: []Table{
			{
				Name:    "posts",
				Columns: []Column{{Name: "id", Type: ColumnType{Family: FamilyInt}, Arity: ArityRequired}},
				ForeignKeys: []ForeignKey{
					{Columns: []string{"editor_id"}, ReferencedTable: "users", ReferencedColumns: []string{"id"}, OnDelete: SetNull},
					{Columns: []string{"author_id"}, ReferencedTable: "users", ReferencedColumns: []string{"id"}, OnDelete: Cascade},
				},
				Indices: []Index{
					{Name: "idx_b", Columns: []string{"b"}, Type: IndexUnique},
					{Name: "idx_a", Columns: []string{"a"}, Type: IndexNormal},
				},
			},
		},
	}

	if !a.Equal(b) {
		t.Fatalf("expected schemas to be equal modulo FK/index order")
	}
}

func TestSchemaEqualRespectsColumnOrder(t *testing.T) {
	a := &Schema{Tables: []Table{{Name: "t", Columns: []Column{{Name: "a"}, {Name: "b"}}}}}
	b := &Schema{Tables: []Table{{Name: "t", Columns: []Column{{Name: "b"}, {Name: "a"}}}}}

	if a.Equal(b) {
		t.Fatalf("expected column order to matter")
	}
}
