// Package differ computes an ordered sequence of MigrationStep
// values between two schema.Schema values. Generalized from the
// engine's earlier table-diff map-comparison (internal/schema/diff.go)
// and its step-ordering sequence (internal/planner/planner.go), but
// corrected to a structural FK/index comparison rather than a
// name-keyed one (see DESIGN.md).
package differ

import (
	"fmt"
	"sort"

	"github.com/lockplane/lockplane/schema"
)

// StepKind identifies a MigrationStep variant.
type StepKind string

const (
	CreateTable     StepKind = "create_table"
	DropTable       StepKind = "drop_table"
	RenameTable     StepKind = "rename_table"
	AddColumn       StepKind = "add_column"
	DropColumn      StepKind = "drop_column"
	AlterColumn     StepKind = "alter_column"
	AddForeignKey   StepKind = "add_foreign_key"
	DropForeignKey  StepKind = "drop_foreign_key"
	CreateIndex     StepKind = "create_index"
	DropIndex       StepKind = "drop_index"
	AlterIndex      StepKind = "alter_index"
	CreateEnum      StepKind = "create_enum"
	DropEnum        StepKind = "drop_enum"
	AlterEnum       StepKind = "alter_enum"
	RawSql          StepKind = "raw_sql"
)

// ColumnChange records which facets of a column changed, driving both
// the renderer's ALTER clause selection and the destructive checker's
// classification.
type ColumnChange struct {
	FamilyChanged        bool `json:"familyChanged,omitempty"`
	ArityChanged         bool `json:"arityChanged,omitempty"`
	DefaultChanged       bool `json:"defaultChanged,omitempty"`
	AutoIncrementChanged bool `json:"autoIncrementChanged,omitempty"`
}

// MigrationStep is one unit of schema change. Exactly the fields
// relevant to Kind are populated; the rest are zero values. Field
// order fixes the JSON key order the persisted migration artifact
// requires.
type MigrationStep struct {
	Kind  StepKind `json:"kind"`
	Table string   `json:"table,omitempty"` // table the step applies to (or the new name for RenameTable)

	OldTable string `json:"oldTable,omitempty"` // RenameTable: the table's previous name

	Column    schema.Column `json:"column,omitempty"`    // AddColumn, or the new definition for AlterColumn
	OldColumn schema.Column `json:"oldColumn,omitempty"` // AlterColumn, DropColumn: the previous/removed definition
	Change    ColumnChange  `json:"change,omitempty"`    // AlterColumn

	ForeignKey schema.ForeignKey `json:"foreignKey,omitempty"` // AddForeignKey, DropForeignKey

	Index    schema.Index `json:"index,omitempty"`    // CreateIndex, AlterIndex (new), DropIndex
	OldIndex schema.Index `json:"oldIndex,omitempty"` // AlterIndex: previous definition (rename-only support)

	Enum    schema.Enum `json:"enum,omitempty"`    // CreateEnum, AlterEnum (new values), DropEnum
	OldEnum schema.Enum `json:"oldEnum,omitempty"` // AlterEnum: previous values

	NewTable *schema.Table `json:"newTable,omitempty"` // CreateTable: the full table being created

	SQL string `json:"sql,omitempty"` // RawSql
}

// Diff computes the ordered migration from previous to next. Both
// inputs may be nil, meaning "no schema" (e.g. diffing against an
// empty database).
func Diff(previous, next *schema.Schema) ([]MigrationStep, error) {
	if previous == nil {
		previous = &schema.Schema{}
	}
	if next == nil {
		next = &schema.Schema{}
	}

	d := &diffBuilder{previous: previous, next: next}
	return d.build()
}

type diffBuilder struct {
	previous *schema.Schema
	next     *schema.Schema
}

func (d *diffBuilder) build() ([]MigrationStep, error) {
	var steps []MigrationStep

	addedTables, removedTables, commonTables := diffTableNames(d.previous, d.next)
	tableDiffs := make(map[string]*tableDiff, len(commonTables))
	for _, name := range commonTables {
		prev, _ := d.previous.Table(name)
		nxt, _ := d.next.Table(name)
		tableDiffs[name] = diffTable(prev, nxt)
	}

	droppedTableSet := make(map[string]bool, len(removedTables))
	for _, t := range removedTables {
		droppedTableSet[t] = true
	}

	// 1. DropForeignKey: every FK of a table about to be dropped, plus
	// any FK outright removed between common tables (which covers a
	// surviving table's FK to a dropped table). An FK present unchanged
	// in both schemas is not dropped, even when a column it uses is
	// altered in phase 7.
	for _, name := range removedTables {
		table, _ := d.previous.Table(name)
		for _, fk := range table.ForeignKeys {
			steps = append(steps, MigrationStep{Kind: DropForeignKey, Table: name, ForeignKey: fk})
		}
	}
	for _, name := range commonTables {
		td := tableDiffs[name]
		for _, fk := range td.removedFKs {
			steps = append(steps, MigrationStep{Kind: DropForeignKey, Table: name, ForeignKey: fk})
		}
	}
	sortSteps(steps, func(s MigrationStep) string { return s.Table + "/" + fkSortKey(s.ForeignKey) })

	// 2. DropIndex: indices removed, or on columns about to be altered/dropped.
	var dropIndexSteps []MigrationStep
	for _, name := range removedTables {
		table, _ := d.previous.Table(name)
		for _, idx := range table.Indices {
			dropIndexSteps = append(dropIndexSteps, MigrationStep{Kind: DropIndex, Table: name, Index: idx})
		}
	}
	for _, name := range commonTables {
		td := tableDiffs[name]
		for _, idx := range td.removedIndices {
			dropIndexSteps = append(dropIndexSteps, MigrationStep{Kind: DropIndex, Table: name, Index: idx})
		}
		for _, idx := range td.keptIndicesNeedingDrop {
			dropIndexSteps = append(dropIndexSteps, MigrationStep{Kind: DropIndex, Table: name, Index: idx})
		}
	}
	sortSteps(dropIndexSteps, func(s MigrationStep) string { return s.Table + "/" + s.Index.Name })
	steps = append(steps, dropIndexSteps...)

	// 3. DropTable, alphabetical.
	sortedRemoved := append([]string{}, removedTables...)
	sort.Strings(sortedRemoved)
	for _, name := range sortedRemoved {
		steps = append(steps, MigrationStep{Kind: DropTable, Table: name})
	}

	// 4. AlterEnum widen (pre-column-alterations).
	addedEnums, removedEnums, commonEnums := diffEnumNames(d.previous, d.next)
	var widenSteps []MigrationStep
	var narrowSteps []MigrationStep
	for _, name := range commonEnums {
		prevEnum, _ := d.previous.Enum(name)
		nextEnum, _ := d.next.Enum(name)
		if equalStringSet(prevEnum.Values, nextEnum.Values) {
			continue
		}
		if isSubset(prevEnum.Values, nextEnum.Values) {
			widenSteps = append(widenSteps, MigrationStep{Kind: AlterEnum, Table: "", Enum: *nextEnum, OldEnum: *prevEnum})
		} else {
			narrowSteps = append(narrowSteps, MigrationStep{Kind: AlterEnum, Table: "", Enum: *nextEnum, OldEnum: *prevEnum})
		}
	}
	sortSteps(widenSteps, func(s MigrationStep) string { return s.Enum.Name })
	steps = append(steps, widenSteps...)

	// 5. CreateEnum, alphabetical.
	sort.Strings(addedEnums)
	for _, name := range addedEnums {
		e, _ := d.next.Enum(name)
		steps = append(steps, MigrationStep{Kind: CreateEnum, Enum: *e})
	}

	// 6. CreateTable, topological order (FK targets before dependents),
	// alphabetical among siblings.
	ordered, err := topologicalTableOrder(d.next, addedTables)
	if err != nil {
		return nil, err
	}
	for _, name := range ordered {
		t, _ := d.next.Table(name)
		steps = append(steps, MigrationStep{Kind: CreateTable, Table: name, NewTable: t})
	}

	// 7. DropColumn / AlterColumn / AddColumn, tables alphabetical; within
	// a table all drops, then all alters, then all adds, each group by
	// column name.
	sortedCommon := append([]string{}, commonTables...)
	sort.Strings(sortedCommon)
	var columnSteps []MigrationStep
	for _, name := range sortedCommon {
		td := tableDiffs[name]

		removed := append([]string{}, keys(td.removedColumns)...)
		sort.Strings(removed)
		for _, colName := range removed {
			columnSteps = append(columnSteps, MigrationStep{Kind: DropColumn, Table: name, OldColumn: td.removedColumns[colName]})
		}

		altered := append([]string{}, keys(td.alteredColumns)...)
		sort.Strings(altered)
		for _, colName := range altered {
			pair := td.alteredColumns[colName]
			columnSteps = append(columnSteps, MigrationStep{Kind: AlterColumn, Table: name, Column: pair.next, OldColumn: pair.prev, Change: pair.change})
		}

		added := append([]string{}, keys(td.addedColumns)...)
		sort.Strings(added)
		for _, colName := range added {
			columnSteps = append(columnSteps, MigrationStep{Kind: AddColumn, Table: name, Column: td.addedColumns[colName]})
		}
	}
	steps = append(steps, columnSteps...)

	// 8. AddForeignKey, CreateIndex, AlterIndex.
	var addFKSteps []MigrationStep
	for _, name := range ordered {
		t, _ := d.next.Table(name)
		for _, fk := range t.ForeignKeys {
			addFKSteps = append(addFKSteps, MigrationStep{Kind: AddForeignKey, Table: name, ForeignKey: fk})
		}
	}
	for _, name := range sortedCommon {
		td := tableDiffs[name]
		for _, fk := range td.addedFKs {
			addFKSteps = append(addFKSteps, MigrationStep{Kind: AddForeignKey, Table: name, ForeignKey: fk})
		}
	}
	sortSteps(addFKSteps, func(s MigrationStep) string { return s.Table + "/" + fkSortKey(s.ForeignKey) })
	steps = append(steps, addFKSteps...)

	var indexSteps []MigrationStep
	for _, name := range ordered {
		t, _ := d.next.Table(name)
		for _, idx := range t.Indices {
			indexSteps = append(indexSteps, MigrationStep{Kind: CreateIndex, Table: name, Index: idx})
		}
	}
	for _, name := range sortedCommon {
		td := tableDiffs[name]
		for _, idx := range td.addedIndices {
			indexSteps = append(indexSteps, MigrationStep{Kind: CreateIndex, Table: name, Index: idx})
		}
		for _, idx := range td.keptIndicesNeedingDrop {
			indexSteps = append(indexSteps, MigrationStep{Kind: CreateIndex, Table: name, Index: idx})
		}
		for _, pair := range td.renamedIndices {
			indexSteps = append(indexSteps, MigrationStep{Kind: AlterIndex, Table: name, Index: pair.next, OldIndex: pair.prev})
		}
	}
	sortSteps(indexSteps, func(s MigrationStep) string { return s.Table + "/" + s.Index.Name })
	steps = append(steps, indexSteps...)

	// AlterEnum narrowing happens after column alterations depending on
	// it have had a chance to move away from the removed values.
	sortSteps(narrowSteps, func(s MigrationStep) string { return s.Enum.Name })
	steps = append(steps, narrowSteps...)

	// 9. DropEnum, alphabetical, last.
	sort.Strings(removedEnums)
	for _, name := range removedEnums {
		e, _ := d.previous.Enum(name)
		steps = append(steps, MigrationStep{Kind: DropEnum, Enum: *e})
	}

	return steps, nil
}

type columnPair struct {
	prev   schema.Column
	next   schema.Column
	change ColumnChange
}

type indexPair struct {
	prev schema.Index
	next schema.Index
}

type tableDiff struct {
	addedColumns   map[string]schema.Column
	removedColumns map[string]schema.Column
	alteredColumns map[string]columnPair

	addedFKs   []schema.ForeignKey
	removedFKs []schema.ForeignKey

	addedIndices           []schema.Index
	removedIndices         []schema.Index
	renamedIndices         []indexPair
	keptIndicesNeedingDrop []schema.Index // indices on a column being dropped/altered, even if index itself is unchanged
}

func diffTable(prev, next *schema.Table) *tableDiff {
	td := &tableDiff{
		addedColumns:   map[string]schema.Column{},
		removedColumns: map[string]schema.Column{},
		alteredColumns: map[string]columnPair{},
	}

	prevCols := map[string]schema.Column{}
	for _, c := range prev.Columns {
		prevCols[c.Name] = c
	}
	nextCols := map[string]schema.Column{}
	for _, c := range next.Columns {
		nextCols[c.Name] = c
	}

	for name, c := range nextCols {
		if _, ok := prevCols[name]; !ok {
			td.addedColumns[name] = c
		}
	}
	for name, c := range prevCols {
		if _, ok := nextCols[name]; !ok {
			td.removedColumns[name] = c
		}
	}
	for name, nc := range nextCols {
		pc, ok := prevCols[name]
		if !ok {
			continue
		}
		if change, changed := columnChange(pc, nc); changed {
			td.alteredColumns[name] = columnPair{prev: pc, next: nc, change: change}
		}
	}

	td.addedFKs, td.removedFKs = diffForeignKeys(prev.ForeignKeys, next.ForeignKeys)
	td.addedIndices, td.removedIndices, td.renamedIndices = diffIndices(prev.Indices, next.Indices)

	alteredOrDropped := map[string]bool{}
	for name := range td.alteredColumns {
		alteredOrDropped[name] = true
	}
	for name := range td.removedColumns {
		alteredOrDropped[name] = true
	}
	for _, idx := range prev.Indices {
		if indexTouchesColumns(idx, alteredOrDropped) && !indexInRemoved(idx, td.removedIndices) {
			td.keptIndicesNeedingDrop = append(td.keptIndicesNeedingDrop, idx)
		}
	}

	return td
}

func indexTouchesColumns(idx schema.Index, touched map[string]bool) bool {
	for _, c := range idx.Columns {
		if touched[c] {
			return true
		}
	}
	return false
}

func indexInRemoved(idx schema.Index, removed []schema.Index) bool {
	for _, r := range removed {
		if r.Name == idx.Name {
			return true
		}
	}
	return false
}

// columnChange implements this engine's column-change predicate:
// family, arity, canonicalized default, and auto_increment. Raw type
// spelling never participates.
func columnChange(prev, next schema.Column) (ColumnChange, bool) {
	change := ColumnChange{
		FamilyChanged:        prev.Type.Family != next.Type.Family,
		ArityChanged:         prev.Arity != next.Arity,
		DefaultChanged:       !stringPtrEqual(prev.Default, next.Default),
		AutoIncrementChanged: prev.AutoIncrement != next.AutoIncrement,
	}
	changed := change.FamilyChanged || change.ArityChanged || change.DefaultChanged || change.AutoIncrementChanged
	return change, changed
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// diffForeignKeys matches by this engine's structural triple, ignoring
// ConstraintName, emitting an added+removed pair for anything that
// doesn't survive unchanged.
func diffForeignKeys(prev, next []schema.ForeignKey) (added, removed []schema.ForeignKey) {
	usedNext := make([]bool, len(next))
	for _, p := range prev {
		matched := false
		for j, n := range next {
			if usedNext[j] {
				continue
			}
			if fkStructurallyEqual(p, n) {
				usedNext[j] = true
				matched = true
				break
			}
		}
		if !matched {
			removed = append(removed, p)
		}
	}
	for j, n := range next {
		if !usedNext[j] {
			added = append(added, n)
		}
	}
	return added, removed
}

func fkStructurallyEqual(a, b schema.ForeignKey) bool {
	return equalStringSliceAsSet(a.Columns, b.Columns) &&
		a.ReferencedTable == b.ReferencedTable &&
		equalStringSliceAsSet(a.ReferencedColumns, b.ReferencedColumns) &&
		a.OnDelete == b.OnDelete
}

// diffIndices matches by (columns-in-order, type); a name-only
// difference on an otherwise-identical index produces an AlterIndex
// rename rather than a drop+create.
func diffIndices(prev, next []schema.Index) (added, removed []schema.Index, renamed []indexPair) {
	usedNext := make([]bool, len(next))
	for _, p := range prev {
		matched := -1
		for j, n := range next {
			if usedNext[j] {
				continue
			}
			if p.Name == n.Name && stringSliceEqual(p.Columns, n.Columns) && p.Type == n.Type {
				usedNext[j] = true
				matched = j
				break
			}
		}
		if matched >= 0 {
			continue
		}
		for j, n := range next {
			if usedNext[j] {
				continue
			}
			if stringSliceEqual(p.Columns, n.Columns) && p.Type == n.Type {
				usedNext[j] = true
				renamed = append(renamed, indexPair{prev: p, next: n})
				matched = j
				break
			}
		}
		if matched < 0 {
			removed = append(removed, p)
		}
	}
	for j, n := range next {
		if !usedNext[j] {
			added = append(added, n)
		}
	}
	return added, removed, renamed
}

func diffTableNames(prev, next *schema.Schema) (added, removed, common []string) {
	prevSet := map[string]bool{}
	for _, t := range prev.Tables {
		prevSet[t.Name] = true
	}
	nextSet := map[string]bool{}
	for _, t := range next.Tables {
		nextSet[t.Name] = true
	}
	for name := range nextSet {
		if prevSet[name] {
			common = append(common, name)
		} else {
			added = append(added, name)
		}
	}
	for name := range prevSet {
		if !nextSet[name] {
			removed = append(removed, name)
		}
	}
	return added, removed, common
}

func diffEnumNames(prev, next *schema.Schema) (added, removed, common []string) {
	prevSet := map[string]bool{}
	for _, e := range prev.Enums {
		prevSet[e.Name] = true
	}
	nextSet := map[string]bool{}
	for _, e := range next.Enums {
		nextSet[e.Name] = true
	}
	for name := range nextSet {
		if prevSet[name] {
			common = append(common, name)
		} else {
			added = append(added, name)
		}
	}
	for name := range prevSet {
		if !nextSet[name] {
			removed = append(removed, name)
		}
	}
	return added, removed, common
}

// topologicalTableOrder orders the tables named in `names` (all drawn
// from `s`) so that any table a foreign key points to is created
// before the table holding the FK, breaking ties alphabetically.
func topologicalTableOrder(s *schema.Schema, names []string) ([]string, error) {
	set := map[string]bool{}
	for _, n := range names {
		set[n] = true
	}

	var sorted []string
	visited := map[string]int{} // 0 unvisited, 1 in-progress, 2 done

	var visit func(name string) error
	visit = func(name string) error {
		switch visited[name] {
		case 2:
			return nil
		case 1:
			return fmt.Errorf("circular foreign key dependency involving table %s", name)
		}
		visited[name] = 1

		t, ok := s.Table(name)
		if ok {
			deps := make([]string, 0, len(t.ForeignKeys))
			for _, fk := range t.ForeignKeys {
				if set[fk.ReferencedTable] && fk.ReferencedTable != name {
					deps = append(deps, fk.ReferencedTable)
				}
			}
			sort.Strings(deps)
			for _, dep := range deps {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		visited[name] = 2
		sorted = append(sorted, name)
		return nil
	}

	ordered := append([]string{}, names...)
	sort.Strings(ordered)
	for _, name := range ordered {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return sorted, nil
}

func equalStringSet(a, b []string) bool {
	return equalStringSliceAsSet(a, b)
}

func equalStringSliceAsSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string{}, a...)
	bs := append([]string{}, b...)
	sort.Strings(as)
	sort.Strings(bs)
	return stringSliceEqual(as, bs)
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

// isSubset reports whether every value in `smaller` appears in `larger`.
func isSubset(smaller, larger []string) bool {
	set := map[string]bool{}
	for _, v := range larger {
		set[v] = true
	}
	for _, v := range smaller {
		if !set[v] {
			return false
		}
	}
	return true
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func fkSortKey(fk schema.ForeignKey) string {
	return fk.ReferencedTable + "/" + fmt.Sprint(fk.Columns)
}

func sortSteps(steps []MigrationStep, key func(MigrationStep) string) {
	sort.SliceStable(steps, func(i, j int) bool {
		return key(steps[i]) < key(steps[j])
	})
}
