package schema

import "sort"

// Table looks up a table by name, returning ok=false if absent.
func (s *Schema) Table(name string) (*Table, bool) {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i], true
		}
	}
	return nil, false
}

// Column looks up a column by name within a table.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// Sequence looks up a sequence by name.
func (s *Schema) Sequence(name string) (*Sequence, bool) {
	for i := range s.Sequences {
		if s.Sequences[i].Name == name {
			return &s.Sequences[i], true
		}
	}
	return nil, false
}

// Enum looks up an enum by name.
func (s *Schema) Enum(name string) (*Enum, bool) {
	for i := range s.Enums {
		if s.Enums[i].Name == name {
			return &s.Enums[i], true
		}
	}
	return nil, false
}

// PrimaryKeyColumns returns the table's primary key column names, or
// nil if the table has no primary key.
func (t *Table) PrimaryKeyColumns() []string {
	if t.PrimaryKey == nil {
		return nil
	}
	return t.PrimaryKey.Columns
}

// Equal reports whether two schemas are structurally identical:
// tables compared as an order-insensitive set keyed by name, columns
// within a table compared in order, and foreign keys/indices/enum
// values compared as order-insensitive sets. This is the identity
// used by the round-trip property (describe(apply(render(diff(...))))).
func (s *Schema) Equal(other *Schema) bool {
	if s == nil || other == nil {
		return s == other
	}
	if len(s.Tables) != len(other.Tables) {
		return false
	}
	for i := range s.Tables {
		ot, ok := other.Table(s.Tables[i].Name)
		if !ok || !s.Tables[i].equal(ot) {
			return false
		}
	}
	if !equalEnumSet(s.Enums, other.Enums) {
		return false
	}
	if !equalSequenceSet(s.Sequences, other.Sequences) {
		return false
	}
	return true
}

func (t *Table) equal(other *Table) bool {
	if len(t.Columns) != len(other.Columns) {
		return false
	}
	for i := range t.Columns {
		a, b := t.Columns[i], other.Columns[i]
		if a.Name != b.Name || a.Type != b.Type || a.Arity != b.Arity || a.AutoIncrement != b.AutoIncrement {
			return false
		}
		if (a.Default == nil) != (b.Default == nil) || (a.Default != nil && *a.Default != *b.Default) {
			return false
		}
	}
	if !equalPrimaryKey(t.PrimaryKey, other.PrimaryKey) {
		return false
	}
	if !equalFKSet(t.ForeignKeys, other.ForeignKeys) {
		return false
	}
	if !equalIndexSet(t.Indices, other.Indices) {
		return false
	}
	return true
}

func equalPrimaryKey(a, b *PrimaryKey) bool {
	if a == nil || b == nil {
		return a == b
	}
	return stringSliceEqual(a.Columns, b.Columns)
}

func equalFKSet(a, b []ForeignKey) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, fk := range a {
		found := false
		for j, other := range b {
			if used[j] {
				continue
			}
			if fkEqual(fk, other) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func fkEqual(a, b ForeignKey) bool {
	return stringSliceEqual(sortedCopy(a.Columns), sortedCopy(b.Columns)) &&
		a.ReferencedTable == b.ReferencedTable &&
		stringSliceEqual(sortedCopy(a.ReferencedColumns), sortedCopy(b.ReferencedColumns)) &&
		a.OnDelete == b.OnDelete
}

func equalIndexSet(a, b []Index) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, idx := range a {
		found := false
		for j, other := range b {
			if used[j] {
				continue
			}
			if idx.Name == other.Name && idx.Type == other.Type && stringSliceEqual(idx.Columns, other.Columns) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func equalEnumSet(a, b []Enum) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, e := range a {
		found := false
		for j, other := range b {
			if used[j] {
				continue
			}
			if e.Name == other.Name && stringSliceEqual(sortedCopy(e.Values), sortedCopy(other.Values)) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func equalSequenceSet(a, b []Sequence) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, s := range a {
		found := false
		for j, other := range b {
			if used[j] {
				continue
			}
			if s == other {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortedCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}
