// Package schema defines the dialect-neutral SqlSchema value that
// flows between the describer, calculator, differ and renderer.
package schema

// Dialect identifies which backend a schema or migration step targets.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite"
)

// ColumnTypeFamily is the coarse, abstract type bucket the differ reasons
// about. Two columns with the same family but different raw spellings
// (e.g. int4 vs int8) do not trigger a migration; different families do.
type ColumnTypeFamily string

const (
	FamilyInt                ColumnTypeFamily = "int"
	FamilyFloat              ColumnTypeFamily = "float"
	FamilyBoolean            ColumnTypeFamily = "boolean"
	FamilyString             ColumnTypeFamily = "string"
	FamilyDateTime           ColumnTypeFamily = "datetime"
	FamilyBinary             ColumnTypeFamily = "binary"
	FamilyJson               ColumnTypeFamily = "json"
	FamilyUuid               ColumnTypeFamily = "uuid"
	FamilyGeometric          ColumnTypeFamily = "geometric"
	FamilyTextSearch         ColumnTypeFamily = "textsearch"
	FamilyLogSequenceNumber  ColumnTypeFamily = "lsn"
	FamilyTransactionId      ColumnTypeFamily = "txid"
	FamilyUnknown            ColumnTypeFamily = "unknown"
)

// Arity describes how many values a column holds.
type Arity string

const (
	ArityRequired Arity = "required"
	ArityNullable Arity = "nullable"
	ArityList     Arity = "list"
)

// OnDeleteAction mirrors the SQL standard referential actions.
type OnDeleteAction string

const (
	NoAction   OnDeleteAction = "NO ACTION"
	Restrict   OnDeleteAction = "RESTRICT"
	Cascade    OnDeleteAction = "CASCADE"
	SetNull    OnDeleteAction = "SET NULL"
	SetDefault OnDeleteAction = "SET DEFAULT"
)

// IndexType distinguishes unique from non-unique indices.
type IndexType string

const (
	IndexUnique IndexType = "unique"
	IndexNormal IndexType = "normal"
)

// ColumnType preserves the dialect's native spelling alongside the
// abstract family used for diffing.
type ColumnType struct {
	Raw    string           `json:"raw"`
	Family ColumnTypeFamily `json:"family"`
}

// Column is one field of a Table.
type Column struct {
	Name          string     `json:"name"`
	Type          ColumnType `json:"type"`
	Arity         Arity      `json:"arity"`
	Default       *string    `json:"default,omitempty"`
	AutoIncrement bool       `json:"autoIncrement,omitempty"`
}

// PrimaryKey is an ordered, non-empty list of column names, optionally
// backed by a Sequence for auto-increment.
type PrimaryKey struct {
	Columns  []string  `json:"columns"`
	Sequence *Sequence `json:"sequence,omitempty"`
}

// ForeignKey references an equal-length list of columns on another
// table. ConstraintName is absent for dialects (SQLite) that cannot
// reference foreign keys by name after creation.
type ForeignKey struct {
	ConstraintName    string         `json:"constraintName,omitempty"`
	Columns           []string       `json:"columns"`
	ReferencedTable   string         `json:"referencedTable"`
	ReferencedColumns []string       `json:"referencedColumns"`
	OnDelete          OnDeleteAction `json:"onDelete"`
}

// Index is a named, ordered column list.
type Index struct {
	Name    string    `json:"name"`
	Columns []string  `json:"columns"`
	Type    IndexType `json:"type"`
}

// Sequence backs an auto-increment primary key. AllocationSize is
// fixed at 1 for every dialect this engine supports.
type Sequence struct {
	Name           string `json:"name"`
	InitialValue   uint32 `json:"initialValue"`
	AllocationSize uint32 `json:"allocationSize"`
}

// Enum is a native enumerated type (Postgres only; empty elsewhere).
type Enum struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Table is a single relation: an ordered column list, an optional
// primary key, an unordered set of foreign keys, and an unordered set
// of non-primary-key indices.
type Table struct {
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	PrimaryKey  *PrimaryKey  `json:"primaryKey,omitempty"`
	ForeignKeys []ForeignKey `json:"foreignKeys,omitempty"`
	Indices     []Index      `json:"indices,omitempty"`
}

// Schema is the canonical, immutable, dialect-neutral representation
// of one logical database. Values are built fresh by the describer or
// calculator and never mutated in place.
type Schema struct {
	Tables    []Table    `json:"tables"`
	Enums     []Enum     `json:"enums,omitempty"`
	Sequences []Sequence `json:"sequences,omitempty"`
}
