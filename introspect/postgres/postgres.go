// Package postgres introspects a live PostgreSQL database into a
// schema.Schema via information_schema and pg_catalog, grounded on
// the same query shapes the engine's earlier Postgres driver used,
// generalized to carry column type families, auto-increment
// detection, foreign-key actions, ordered index columns, sequences
// and native enums.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lockplane/lockplane/engineerr"
	"github.com/lockplane/lockplane/introspect"
	"github.com/lockplane/lockplane/schema"
)

// Describer implements introspect.Describer for PostgreSQL.
type Describer struct{}

func New() *Describer { return &Describer{} }

func (d *Describer) Describe(ctx context.Context, db *sql.DB, schemaName string) (*schema.Schema, error) {
	if schemaName == "" {
		schemaName = "public"
	}

	sequences, err := d.sequences(ctx, db, schemaName)
	if err != nil {
		return nil, err
	}

	enums, err := d.enums(ctx, db, schemaName)
	if err != nil {
		return nil, err
	}

	tableNames, err := d.tableNames(ctx, db, schemaName)
	if err != nil {
		return nil, err
	}

	out := &schema.Schema{Enums: enums, Sequences: sequences}
	for _, name := range tableNames {
		table, err := d.table(ctx, db, schemaName, name, sequences)
		if err != nil {
			return nil, err
		}
		out.Tables = append(out.Tables, *table)
	}
	return out, nil
}

func (d *Describer) tableNames(ctx context.Context, db *sql.DB, schemaName string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`, schemaName)
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

func (d *Describer) table(ctx context.Context, db *sql.DB, schemaName, tableName string, sequences []schema.Sequence) (*schema.Table, error) {
	table := &schema.Table{Name: tableName}

	columns, pkColumns, err := d.columns(ctx, db, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	table.Columns = columns

	if len(pkColumns) > 0 {
		pk := &schema.PrimaryKey{Columns: pkColumns}
		if len(pkColumns) == 1 {
			seqName, err := d.serialSequence(ctx, db, schemaName, tableName, pkColumns[0])
			if err != nil {
				return nil, err
			}
			for i := range sequences {
				if sequences[i].Name == seqName {
					pk.Sequence = &sequences[i]
				}
			}
		}
		table.PrimaryKey = pk
	}

	fks, err := d.foreignKeys(ctx, db, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	table.ForeignKeys = fks

	indices, err := d.indices(ctx, db, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	table.Indices = indices

	return table, nil
}

func (d *Describer) columns(ctx context.Context, db *sql.DB, schemaName, tableName string) ([]schema.Column, []string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			c.column_name,
			c.udt_name,
			c.is_nullable,
			c.column_default,
			c.is_identity,
			COALESCE(
				(SELECT true
				 FROM information_schema.table_constraints tc
				 JOIN information_schema.key_column_usage kcu
				   ON tc.constraint_name = kcu.constraint_name
				   AND tc.table_schema = kcu.table_schema
				 WHERE tc.table_name = c.table_name
				   AND tc.table_schema = c.table_schema
				   AND tc.constraint_type = 'PRIMARY KEY'
				   AND kcu.column_name = c.column_name),
				false
			) AS is_primary_key,
			COALESCE(
				(SELECT kcu.ordinal_position
				 FROM information_schema.table_constraints tc
				 JOIN information_schema.key_column_usage kcu
				   ON tc.constraint_name = kcu.constraint_name
				   AND tc.table_schema = kcu.table_schema
				 WHERE tc.table_name = c.table_name
				   AND tc.table_schema = c.table_schema
				   AND tc.constraint_type = 'PRIMARY KEY'
				   AND kcu.column_name = c.column_name),
				0
			) AS pk_position
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position
	`, schemaName, tableName)
	if err != nil {
		return nil, nil, engineerr.New(engineerr.Introspection, "list columns", err)
	}
	defer rows.Close()

	type pkEntry struct {
		name     string
		position int
	}
	var pkEntries []pkEntry
	var columns []schema.Column

	for rows.Next() {
		var (
			name, udt, nullable string
			defaultVal          sql.NullString
			isIdentity          string
			isPK                bool
			pkPos               int
		)
		if err := rows.Scan(&name, &udt, &nullable, &defaultVal, &isIdentity, &isPK, &pkPos); err != nil {
			return nil, nil, engineerr.New(engineerr.Introspection, "scan column", err)
		}

		family, arity, err := familyFromUDT(udt)
		if err != nil {
			return nil, nil, engineerr.UnsupportedType(fmt.Sprintf("%s.%s", tableName, name), udt)
		}

		col := schema.Column{
			Name:  name,
			Type:  schema.ColumnType{Raw: strings.TrimPrefix(udt, "_"), Family: family},
			Arity: arity,
		}
		if nullable == "NO" {
			if col.Arity == schema.ArityList {
				// arrays stay List; required-ness is tracked separately
			} else {
				col.Arity = schema.ArityRequired
			}
		} else if col.Arity != schema.ArityList {
			col.Arity = schema.ArityNullable
		}

		autoIncrement := isIdentity == "YES"
		if defaultVal.Valid {
			normalized := canonicalizeDefault(defaultVal.String)
			if isSequenceDefault(defaultVal.String) {
				autoIncrement = true
			} else {
				col.Default = &normalized
			}
		}
		col.AutoIncrement = autoIncrement

		columns = append(columns, col)
		if isPK {
			pkEntries = append(pkEntries, pkEntry{name: name, position: pkPos})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	for i := 0; i < len(pkEntries); i++ {
		for j := i + 1; j < len(pkEntries); j++ {
			if pkEntries[j].position < pkEntries[i].position {
				pkEntries[i], pkEntries[j] = pkEntries[j], pkEntries[i]
			}
		}
	}
	pkColumns := make([]string, len(pkEntries))
	for i, e := range pkEntries {
		pkColumns[i] = e.name
	}

	return columns, pkColumns, nil
}

// serialSequence looks up the owning sequence for a single-column
// primary key via pg_get_serial_sequence, matching it against the
// schema's known sequences.
func (d *Describer) serialSequence(ctx context.Context, db *sql.DB, schemaName, tableName, columnName string) (string, error) {
	var qualified sql.NullString
	err := db.QueryRowContext(ctx, `SELECT pg_get_serial_sequence($1, $2)`,
		fmt.Sprintf("%s.%s", schemaName, tableName), columnName).Scan(&qualified)
	if err != nil {
		return "", engineerr.New(engineerr.Introspection, "serial sequence lookup", err)
	}
	if !qualified.Valid {
		return "", nil
	}
	parts := strings.Split(qualified.String, ".")
	return strings.Trim(parts[len(parts)-1], `"`), nil
}

func (d *Describer) foreignKeys(ctx context.Context, db *sql.DB, schemaName, tableName string) ([]schema.ForeignKey, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			con.oid,
			con.conname,
			att.attname AS local_column,
			ref_cls.relname AS referenced_table,
			ref_att.attname AS referenced_column,
			con.confdeltype,
			ord.ord
		FROM pg_constraint con
		JOIN pg_class cls ON cls.oid = con.conrelid
		JOIN pg_namespace ns ON ns.oid = cls.relnamespace
		JOIN pg_class ref_cls ON ref_cls.oid = con.confrelid
		CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS ord(localattnum, refattnum, ord)
		JOIN pg_attribute att ON att.attrelid = con.conrelid AND att.attnum = ord.localattnum
		JOIN pg_attribute ref_att ON ref_att.attrelid = con.confrelid AND ref_att.attnum = ord.refattnum
		WHERE con.contype = 'f'
		  AND ns.nspname = $1
		  AND cls.relname = $2
		ORDER BY con.oid, ord.ord
	`, schemaName, tableName)
	if err != nil {
		return nil, engineerr.New(engineerr.Introspection, "list foreign keys", err)
	}
	defer rows.Close()

	type partialFK struct {
		fk  schema.ForeignKey
		oid int64
	}
	byOID := map[int64]*partialFK{}
	var order []int64

	for rows.Next() {
		var (
			oid           int64
			name          string
			localColumn   string
			refTable      string
			refColumn     string
			confdeltype   string
			ord           int
		)
		if err := rows.Scan(&oid, &name, &localColumn, &refTable, &refColumn, &confdeltype, &ord); err != nil {
			return nil, engineerr.New(engineerr.Introspection, "scan foreign key", err)
		}
		entry, ok := byOID[oid]
		if !ok {
			action, err := onDeleteFromChar(confdeltype)
			if err != nil {
				return nil, engineerr.UnexpectedValue(fmt.Sprintf("%s foreign key", tableName), "confdeltype", confdeltype)
			}
			entry = &partialFK{oid: oid, fk: schema.ForeignKey{
				ConstraintName:  name,
				ReferencedTable: refTable,
				OnDelete:        action,
			}}
			byOID[oid] = entry
			order = append(order, oid)
		}
		entry.fk.Columns = append(entry.fk.Columns, localColumn)
		entry.fk.ReferencedColumns = append(entry.fk.ReferencedColumns, refColumn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	fks := make([]schema.ForeignKey, 0, len(order))
	for _, oid := range order {
		fks = append(fks, byOID[oid].fk)
	}
	return fks, nil
}

func (d *Describer) indices(ctx context.Context, db *sql.DB, schemaName, tableName string) ([]schema.Index, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			ic.relname AS index_name,
			ix.indisunique,
			att.attname AS column_name,
			ord.ord
		FROM pg_index ix
		JOIN pg_class cls ON cls.oid = ix.indrelid
		JOIN pg_namespace ns ON ns.oid = cls.relnamespace
		JOIN pg_class ic ON ic.oid = ix.indexrelid
		CROSS JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS ord(attnum, ord)
		JOIN pg_attribute att ON att.attrelid = cls.oid AND att.attnum = ord.attnum
		WHERE ns.nspname = $1
		  AND cls.relname = $2
		  AND ix.indisprimary = false
		ORDER BY ic.relname, ord.ord
	`, schemaName, tableName)
	if err != nil {
		return nil, engineerr.New(engineerr.Introspection, "list indices", err)
	}
	defer rows.Close()

	type partialIdx struct {
		idx schema.Index
	}
	byName := map[string]*partialIdx{}
	var order []string

	for rows.Next() {
		var (
			name     string
			unique   bool
			column   string
			ordinal  int
		)
		if err := rows.Scan(&name, &unique, &column, &ordinal); err != nil {
			return nil, engineerr.New(engineerr.Introspection, "scan index", err)
		}
		entry, ok := byName[name]
		if !ok {
			tpe := schema.IndexNormal
			if unique {
				tpe = schema.IndexUnique
			}
			entry = &partialIdx{idx: schema.Index{Name: name, Type: tpe}}
			byName[name] = entry
			order = append(order, name)
		}
		entry.idx.Columns = append(entry.idx.Columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	indices := make([]schema.Index, 0, len(order))
	for _, name := range order {
		indices = append(indices, byName[name].idx)
	}
	return indices, nil
}

func (d *Describer) sequences(ctx context.Context, db *sql.DB, schemaName string) ([]schema.Sequence, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT sequence_name, start_value
		FROM information_schema.sequences
		WHERE sequence_schema = $1
		ORDER BY sequence_name
	`, schemaName)
	if err != nil {
		return nil, engineerr.New(engineerr.Introspection, "list sequences", err)
	}
	defer rows.Close()

	var out []schema.Sequence
	for rows.Next() {
		var name string
		var start int64
		if err := rows.Scan(&name, &start); err != nil {
			return nil, engineerr.New(engineerr.Introspection, "scan sequence", err)
		}
		out = append(out, schema.Sequence{Name: name, InitialValue: uint32(start), AllocationSize: 1})
	}
	return out, rows.Err()
}

func (d *Describer) enums(ctx context.Context, db *sql.DB, schemaName string) ([]schema.Enum, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT t.typname, e.enumlabel
		FROM pg_type t
		JOIN pg_enum e ON e.enumtypid = t.oid
		JOIN pg_namespace ns ON ns.oid = t.typnamespace
		WHERE ns.nspname = $1
		ORDER BY t.typname, e.enumsortorder
	`, schemaName)
	if err != nil {
		return nil, engineerr.New(engineerr.Introspection, "list enums", err)
	}
	defer rows.Close()

	byName := map[string]*schema.Enum{}
	var order []string
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, engineerr.New(engineerr.Introspection, "scan enum", err)
		}
		e, ok := byName[name]
		if !ok {
			e = &schema.Enum{Name: name}
			byName[name] = e
			order = append(order, name)
		}
		e.Values = append(e.Values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]schema.Enum, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out, nil
}

// udtFamilies maps information_schema.columns.udt_name to the
// abstract ColumnTypeFamily, per the glossary's fixed mapping table.
var udtFamilies = map[string]schema.ColumnTypeFamily{
	"int2": schema.FamilyInt, "int4": schema.FamilyInt, "int8": schema.FamilyInt,
	"float4": schema.FamilyFloat, "float8": schema.FamilyFloat, "numeric": schema.FamilyFloat,
	"bool": schema.FamilyBoolean,
	"text": schema.FamilyString, "varchar": schema.FamilyString, "bpchar": schema.FamilyString,
	"date": schema.FamilyDateTime, "time": schema.FamilyDateTime, "timetz": schema.FamilyDateTime,
	"timestamp": schema.FamilyDateTime, "timestamptz": schema.FamilyDateTime, "interval": schema.FamilyDateTime,
	"bytea": schema.FamilyBinary, "bit": schema.FamilyBinary, "varbit": schema.FamilyBinary,
	"json": schema.FamilyJson, "jsonb": schema.FamilyJson,
	"uuid": schema.FamilyUuid,
	"box": schema.FamilyGeometric, "circle": schema.FamilyGeometric, "line": schema.FamilyGeometric,
	"lseg": schema.FamilyGeometric, "path": schema.FamilyGeometric, "polygon": schema.FamilyGeometric,
	"tsquery": schema.FamilyTextSearch, "tsvector": schema.FamilyTextSearch,
	"pg_lsn":         schema.FamilyLogSequenceNumber,
	"txid_snapshot":  schema.FamilyTransactionId,
}

// familyFromUDT resolves udt_name to (family, arity), handling the
// leading-underscore array convention.
func familyFromUDT(udt string) (schema.ColumnTypeFamily, schema.Arity, error) {
	arity := schema.ArityRequired
	base := udt
	if strings.HasPrefix(udt, "_") {
		arity = schema.ArityList
		base = strings.TrimPrefix(udt, "_")
	}
	family, ok := udtFamilies[base]
	if !ok {
		return "", "", fmt.Errorf("unmapped udt_name %q", udt)
	}
	return family, arity, nil
}

func isSequenceDefault(raw string) bool {
	return strings.HasPrefix(raw, "nextval(")
}

// canonicalizeDefault strips surrounding quotes and a trailing
// dialect cast (e.g. '{}'::jsonb -> {}), the single normalization
// function this engine requires as the source of truth for default
// comparison.
func canonicalizeDefault(raw string) string {
	if idx := strings.LastIndex(raw, "::"); idx > 0 {
		before := raw[:idx]
		if strings.Count(before, "'")%2 == 0 {
			raw = before
		}
	}
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 && raw[0] == '\'' && raw[len(raw)-1] == '\'' {
		raw = raw[1 : len(raw)-1]
	}
	return raw
}

// onDeleteFromChar maps pg_constraint.confdeltype to the abstract
// OnDeleteAction.
func onDeleteFromChar(c string) (schema.OnDeleteAction, error) {
	switch c {
	case "a":
		return schema.NoAction, nil
	case "r":
		return schema.Restrict, nil
	case "c":
		return schema.Cascade, nil
	case "n":
		return schema.SetNull, nil
	case "d":
		return schema.SetDefault, nil
	}
	return "", fmt.Errorf("unrecognized confdeltype %q", c)
}
