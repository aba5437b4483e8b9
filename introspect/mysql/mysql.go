// Package mysql introspects a live MySQL/MariaDB database into a
// schema.Schema via information_schema, following the same
// information_schema-driven shape as the Postgres describer but
// adapted for MySQL's lack of a sequence/enum catalog: AUTO_INCREMENT
// lives on the column itself and enumerated values live inline on the
// column type string.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lockplane/lockplane/engineerr"
	"github.com/lockplane/lockplane/introspect"
	"github.com/lockplane/lockplane/schema"
)

// Describer implements introspect.Describer for MySQL and MariaDB.
type Describer struct{}

func New() *Describer { return &Describer{} }

func (d *Describer) Describe(ctx context.Context, db *sql.DB, schemaName string) (*schema.Schema, error) {
	if schemaName == "" {
		return nil, engineerr.New(engineerr.Introspection, "describe", fmt.Errorf("mysql requires an explicit schema (database) name"))
	}

	tableNames, err := d.tableNames(ctx, db, schemaName)
	if err != nil {
		return nil, err
	}

	out := &schema.Schema{}
	for _, name := range tableNames {
		table, err := d.table(ctx, db, schemaName, name)
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
		WHERE table_schema = ?
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

func (d *Describer) table(ctx context.Context, db *sql.DB, schemaName, tableName string) (*schema.Table, error) {
	table := &schema.Table{Name: tableName}

	columns, pkColumns, err := d.columns(ctx, db, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	table.Columns = columns
	if len(pkColumns) > 0 {
		table.PrimaryKey = &schema.PrimaryKey{Columns: pkColumns}
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
			column_name,
			data_type,
			column_type,
			is_nullable,
			column_default,
			extra,
			column_key
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position
	`, schemaName, tableName)
	if err != nil {
		return nil, nil, engineerr.New(engineerr.Introspection, "list columns", err)
	}
	defer rows.Close()

	var columns []schema.Column
	var pkColumns []string

	for rows.Next() {
		var (
			name, dataType, fullType, nullable, extra, key string
			defaultVal                                     sql.NullString
		)
		if err := rows.Scan(&name, &dataType, &fullType, &nullable, &defaultVal, &extra, &key); err != nil {
			return nil, nil, engineerr.New(engineerr.Introspection, "scan column", err)
		}

		family, err := familyFromDataType(dataType)
		if err != nil {
			return nil, nil, engineerr.UnsupportedType(fmt.Sprintf("%s.%s", tableName, name), dataType)
		}

		col := schema.Column{
			Name:          name,
			Type:          schema.ColumnType{Raw: fullType, Family: family},
			AutoIncrement: strings.Contains(extra, "auto_increment"),
		}
		if nullable == "NO" {
			col.Arity = schema.ArityRequired
		} else {
			col.Arity = schema.ArityNullable
		}
		if defaultVal.Valid {
			normalized := canonicalizeDefault(defaultVal.String)
			col.Default = &normalized
		}

		columns = append(columns, col)
		if key == "PRI" {
			pkColumns = append(pkColumns, name)
		}
	}
	return columns, pkColumns, rows.Err()
}

func (d *Describer) foreignKeys(ctx context.Context, db *sql.DB, schemaName, tableName string) ([]schema.ForeignKey, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			kcu.constraint_name,
			kcu.column_name,
			kcu.referenced_table_name,
			kcu.referenced_column_name,
			rc.delete_rule,
			kcu.ordinal_position
		FROM information_schema.key_column_usage kcu
		JOIN information_schema.referential_constraints rc
		  ON rc.constraint_name = kcu.constraint_name
		  AND rc.constraint_schema = kcu.constraint_schema
		WHERE kcu.table_schema = ?
		  AND kcu.table_name = ?
		  AND kcu.referenced_table_name IS NOT NULL
		ORDER BY kcu.constraint_name, kcu.ordinal_position
	`, schemaName, tableName)
	if err != nil {
		return nil, engineerr.New(engineerr.Introspection, "list foreign keys", err)
	}
	defer rows.Close()

	type partial struct {
		fk schema.ForeignKey
	}
	byName := map[string]*partial{}
	var order []string

	for rows.Next() {
		var constraintName, column, refTable, refColumn, deleteRule string
		var ordinal int
		if err := rows.Scan(&constraintName, &column, &refTable, &refColumn, &deleteRule, &ordinal); err != nil {
			return nil, engineerr.New(engineerr.Introspection, "scan foreign key", err)
		}
		entry, ok := byName[constraintName]
		if !ok {
			action, err := onDeleteFromRule(deleteRule)
			if err != nil {
				return nil, engineerr.UnexpectedValue(fmt.Sprintf("%s foreign key", tableName), "delete_rule", deleteRule)
			}
			entry = &partial{fk: schema.ForeignKey{
				ConstraintName:  constraintName,
				ReferencedTable: refTable,
				OnDelete:        action,
			}}
			byName[constraintName] = entry
			order = append(order, constraintName)
		}
		entry.fk.Columns = append(entry.fk.Columns, column)
		entry.fk.ReferencedColumns = append(entry.fk.ReferencedColumns, refColumn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	fks := make([]schema.ForeignKey, 0, len(order))
	for _, name := range order {
		fks = append(fks, byName[name].fk)
	}
	return fks, nil
}

func (d *Describer) indices(ctx context.Context, db *sql.DB, schemaName, tableName string) ([]schema.Index, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT index_name, non_unique, column_name, seq_in_index
		FROM information_schema.statistics
		WHERE table_schema = ?
		  AND table_name = ?
		  AND index_name != 'PRIMARY'
		ORDER BY index_name, seq_in_index
	`, schemaName, tableName)
	if err != nil {
		return nil, engineerr.New(engineerr.Introspection, "list indices", err)
	}
	defer rows.Close()

	type partial struct {
		idx schema.Index
	}
	byName := map[string]*partial{}
	var order []string

	for rows.Next() {
		var name, column string
		var nonUnique, seq int
		if err := rows.Scan(&name, &nonUnique, &column, &seq); err != nil {
			return nil, engineerr.New(engineerr.Introspection, "scan index", err)
		}
		entry, ok := byName[name]
		if !ok {
			tpe := schema.IndexNormal
			if nonUnique == 0 {
				tpe = schema.IndexUnique
			}
			entry = &partial{idx: schema.Index{Name: name, Type: tpe}}
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

// familyDataTypes maps information_schema.columns.data_type to the
// abstract ColumnTypeFamily.
var familyDataTypes = map[string]schema.ColumnTypeFamily{
	"tinyint": schema.FamilyInt, "smallint": schema.FamilyInt, "mediumint": schema.FamilyInt,
	"int": schema.FamilyInt, "bigint": schema.FamilyInt, "year": schema.FamilyInt,
	"float": schema.FamilyFloat, "double": schema.FamilyFloat, "decimal": schema.FamilyFloat,
	"bit":  schema.FamilyBoolean,
	"char": schema.FamilyString, "varchar": schema.FamilyString,
	"tinytext": schema.FamilyString, "text": schema.FamilyString, "mediumtext": schema.FamilyString, "longtext": schema.FamilyString,
	"enum": schema.FamilyString, "set": schema.FamilyString,
	"date": schema.FamilyDateTime, "datetime": schema.FamilyDateTime, "timestamp": schema.FamilyDateTime, "time": schema.FamilyDateTime,
	"binary": schema.FamilyBinary, "varbinary": schema.FamilyBinary,
	"tinyblob": schema.FamilyBinary, "blob": schema.FamilyBinary, "mediumblob": schema.FamilyBinary, "longblob": schema.FamilyBinary,
	"json": schema.FamilyJson,
}

func familyFromDataType(dataType string) (schema.ColumnTypeFamily, error) {
	family, ok := familyDataTypes[strings.ToLower(dataType)]
	if !ok {
		return "", fmt.Errorf("unmapped data_type %q", dataType)
	}
	return family, nil
}

// canonicalizeDefault strips the surrounding quotes MySQL 8's
// information_schema reports on string/enum defaults.
func canonicalizeDefault(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 && raw[0] == '\'' && raw[len(raw)-1] == '\'' {
		return raw[1 : len(raw)-1]
	}
	return raw
}

func onDeleteFromRule(rule string) (schema.OnDeleteAction, error) {
	switch strings.ToUpper(rule) {
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
	return "", fmt.Errorf("unrecognized delete_rule %q", rule)
}
