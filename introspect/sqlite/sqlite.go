// Package sqlite introspects a live SQLite (or libSQL, which is wire
// and pragma compatible) database into a schema.Schema using the
// PRAGMA family of statements, generalized from the engine's earlier
// SQLite introspector.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lockplane/lockplane/engineerr"
	"github.com/lockplane/lockplane/introspect"
	"github.com/lockplane/lockplane/schema"
)

// Describer implements introspect.Describer for SQLite and libSQL.
type Describer struct{}

func New() *Describer { return &Describer{} }

// Describe ignores schemaName: SQLite has no schema namespace beyond
// the database file itself (ATTACHed databases are out of scope).
func (d *Describer) Describe(ctx context.Context, db *sql.DB, schemaName string) (*schema.Schema, error) {
	tableNames, err := d.tableNames(ctx, db)
	if err != nil {
		return nil, err
	}

	out := &schema.Schema{}
	for _, name := range tableNames {
		table, err := d.table(ctx, db, name)
		if err != nil {
			return nil, err
		}
		out.Tables = append(out.Tables, *table)
	}
	return out, nil
}

func (d *Describer) tableNames(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
		ORDER BY name
	`)
	if err != nil {
		return nil, engineerr.New(engineerr.Introspection, "list tables", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, engineerr.New(engineerr.Introspection, "scan table name", err)
		}
		if introspect.IsSystemTable(name) {
			continue
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (d *Describer) table(ctx context.Context, db *sql.DB, tableName string) (*schema.Table, error) {
	table := &schema.Table{Name: tableName}

	columns, pkColumns, err := d.columns(ctx, db, tableName)
	if err != nil {
		return nil, err
	}
	table.Columns = columns
	if len(pkColumns) > 0 {
		table.PrimaryKey = &schema.PrimaryKey{Columns: pkColumns}
	}

	fks, err := d.foreignKeys(ctx, db, tableName)
	if err != nil {
		return nil, err
	}
	table.ForeignKeys = fks

	indices, err := d.indices(ctx, db, tableName)
	if err != nil {
		return nil, err
	}
	table.Indices = indices

	return table, nil
}

func (d *Describer) columns(ctx context.Context, db *sql.DB, tableName string) ([]schema.Column, []string, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(tableName)))
	if err != nil {
		return nil, nil, engineerr.New(engineerr.Introspection, "list columns", err)
	}
	defer rows.Close()

	type pkEntry struct {
		name string
		seq  int
	}
	var pkEntries []pkEntry
	var columns []schema.Column

	for rows.Next() {
		var (
			cid        int
			name       string
			declared   string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &declared, &notNull, &defaultVal, &pk); err != nil {
			return nil, nil, engineerr.New(engineerr.Introspection, "scan column", err)
		}

		family := familyFromDeclaredType(declared)
		col := schema.Column{
			Name: name,
			Type: schema.ColumnType{Raw: declared, Family: family},
		}
		if notNull != 0 || pk > 0 {
			col.Arity = schema.ArityRequired
		} else {
			col.Arity = schema.ArityNullable
		}
		if defaultVal.Valid {
			normalized := canonicalizeDefault(defaultVal.String)
			col.Default = &normalized
		}

		columns = append(columns, col)
		if pk > 0 {
			pkEntries = append(pkEntries, pkEntry{name: name, seq: pk})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	for i := 0; i < len(pkEntries); i++ {
		for j := i + 1; j < len(pkEntries); j++ {
			if pkEntries[j].seq < pkEntries[i].seq {
				pkEntries[i], pkEntries[j] = pkEntries[j], pkEntries[i]
			}
		}
	}
	pkColumns := make([]string, len(pkEntries))
	for i, e := range pkEntries {
		pkColumns[i] = e.name
	}

	// A single-column INTEGER PRIMARY KEY is a rowid alias: SQLite
	// auto-assigns and increments it on insert.
	if len(pkColumns) == 1 {
		for i := range columns {
			if columns[i].Name == pkColumns[0] && columns[i].Type.Family == schema.FamilyInt {
				columns[i].AutoIncrement = true
			}
		}
	}

	return columns, pkColumns, nil
}

func (d *Describer) foreignKeys(ctx context.Context, db *sql.DB, tableName string) ([]schema.ForeignKey, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteIdent(tableName)))
	if err != nil {
		return nil, engineerr.New(engineerr.Introspection, "list foreign keys", err)
	}
	defer rows.Close()

	type partial struct {
		fk schema.ForeignKey
	}
	byID := map[int]*partial{}
	var order []int

	for rows.Next() {
		var id, seq int
		var refTable, from, to, onUpdate, onDelete, match string
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, engineerr.New(engineerr.Introspection, "scan foreign key", err)
		}
		entry, ok := byID[id]
		if !ok {
			action, err := onDeleteFromPragma(onDelete)
			if err != nil {
				return nil, engineerr.UnexpectedValue(fmt.Sprintf("%s foreign key", tableName), "on_delete", onDelete)
			}
			entry = &partial{fk: schema.ForeignKey{ReferencedTable: refTable, OnDelete: action}}
			byID[id] = entry
			order = append(order, id)
		}
		entry.fk.Columns = append(entry.fk.Columns, from)
		entry.fk.ReferencedColumns = append(entry.fk.ReferencedColumns, to)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	fks := make([]schema.ForeignKey, 0, len(order))
	for _, id := range order {
		fks = append(fks, byID[id].fk)
	}
	return fks, nil
}

func (d *Describer) indices(ctx context.Context, db *sql.DB, tableName string) ([]schema.Index, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%s)", quoteIdent(tableName)))
	if err != nil {
		return nil, engineerr.New(engineerr.Introspection, "list indices", err)
	}
	defer rows.Close()

	type candidate struct {
		name   string
		unique bool
		origin string
	}
	var candidates []candidate
	for rows.Next() {
		var seq int
		var name, origin string
		var unique, partial int
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			rows.Close()
			return nil, engineerr.New(engineerr.Introspection, "scan index", err)
		}
		candidates = append(candidates, candidate{name: name, unique: unique == 1, origin: origin})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	var indices []schema.Index
	for _, c := range candidates {
		// origin 'pk' is the implicit index backing the PRIMARY KEY,
		// already represented on Table.PrimaryKey; everything else
		// (origin 'c' for CREATE INDEX, 'u' for a UNIQUE column/table
		// constraint) is a real index.
		if c.origin == "pk" {
			continue
		}

		infoRows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(%s)", quoteIdent(c.name)))
		if err != nil {
			return nil, engineerr.New(engineerr.Introspection, "list index columns", err)
		}
		var columns []string
		for infoRows.Next() {
			var seqno, cid int
			var name sql.NullString
			if err := infoRows.Scan(&seqno, &cid, &name); err != nil {
				infoRows.Close()
				return nil, engineerr.New(engineerr.Introspection, "scan index column", err)
			}
			if name.Valid {
				columns = append(columns, name.String)
			}
		}
		infoRows.Close()

		tpe := schema.IndexNormal
		if c.unique {
			tpe = schema.IndexUnique
		}
		indices = append(indices, schema.Index{Name: c.name, Columns: columns, Type: tpe})
	}
	return indices, nil
}

// familyFromDeclaredType maps the tokens SQLite's type-affinity rules look
// for (and a handful of conventional spellings this engine's
// renderer itself emits) to the abstract ColumnTypeFamily.
func familyFromDeclaredType(declared string) schema.ColumnTypeFamily {
	upper := strings.ToUpper(declared)
	switch {
	case upper == "":
		return schema.FamilyBinary // affinity BLOB
	case strings.Contains(upper, "JSON"):
		return schema.FamilyJson
	case strings.Contains(upper, "UUID") || strings.Contains(upper, "GUID"):
		return schema.FamilyUuid
	case strings.Contains(upper, "BOOL"):
		return schema.FamilyBoolean
	case strings.Contains(upper, "DATE") || strings.Contains(upper, "TIME"):
		return schema.FamilyDateTime
	case strings.Contains(upper, "INT"):
		return schema.FamilyInt
	case strings.Contains(upper, "CHAR") || strings.Contains(upper, "CLOB") || strings.Contains(upper, "TEXT"):
		return schema.FamilyString
	case strings.Contains(upper, "BLOB"):
		return schema.FamilyBinary
	case strings.Contains(upper, "REAL") || strings.Contains(upper, "FLOA") || strings.Contains(upper, "DOUB") || strings.Contains(upper, "DECIMAL") || strings.Contains(upper, "NUMERIC"):
		return schema.FamilyFloat
	default:
		// SQLite's affinity rules fall back to NUMERIC for anything
		// unmatched; this engine treats that as Float since it is
		// stored and compared the same way.
		return schema.FamilyFloat
	}
}

func canonicalizeDefault(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 && raw[0] == '\'' && raw[len(raw)-1] == '\'' {
		return raw[1 : len(raw)-1]
	}
	return raw
}

func onDeleteFromPragma(action string) (schema.OnDeleteAction, error) {
	switch strings.ToUpper(action) {
	case "NO ACTION":
		return schema.NoAction, nil
	case "RESTRICT":
		return schema.Restrict, nil
	case "CASCADE":
		return schema.Cascade, nil
	case "SET NULL":
		return schema.SetNull, nil
	case "SET DEFAULT":
		return schema.SetDefault, nil
	}
	return "", fmt.Errorf("unrecognized foreign_key_list action %q", action)
}

// quoteIdent wraps a PRAGMA argument in double quotes; PRAGMA does not
// accept bound parameters so the table/index name must be interpolated.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
