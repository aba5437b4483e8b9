// Package modelparser parses a user-authored declarative data model
// into an intermediate representation the calculator package compiles
// into a schema.Schema. Three source formats are supported: a JSON
// document (validated against a JSON Schema, mirroring the engine's
// earlier JSON schema file), a compact Prisma-style text DSL
// (`model Blog { id Int @id }`), and Postgres DDL (sql.go).
package modelparser

// Arity mirrors schema.Arity but at the model layer, before a List
// field has been lowered into its own side table.
type Arity string

const (
	ArityRequired Arity = "required"
	ArityNullable Arity = "nullable"
	ArityList     Arity = "list"
)

// RelationKind distinguishes the two relation shapes the calculator
// understands.
type RelationKind string

const (
	RelationNone       RelationKind = ""
	RelationInline     RelationKind = "inline"
	RelationManyToMany RelationKind = "many_to_many"
)

// Relation annotates a Field whose Type names another Model.
type Relation struct {
	Kind       RelationKind `json:"kind"`
	References []string     `json:"references,omitempty"`
	Name       string       `json:"name,omitempty"`
}

// Field is one member of a Model: either a scalar (Type is one of the
// fixed scalar type names) or a relation (Type names another Model).
type Field struct {
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	Arity    Arity     `json:"arity"`
	Id       bool      `json:"id,omitempty"`
	Unique   bool      `json:"unique,omitempty"`
	Map      string    `json:"map,omitempty"`
	Default  *string   `json:"default,omitempty"`
	Relation *Relation `json:"relation,omitempty"`
}

// ColumnName returns the field's storage name: @map(name: ...) when
// present, else the field name itself.
func (f Field) ColumnName() string {
	if f.Map != "" {
		return f.Map
	}
	return f.Name
}

// ScalarTypes are the fixed set of non-relation field types the
// calculator recognizes; anything else is taken to reference a Model.
var ScalarTypes = map[string]bool{
	"Int":      true,
	"Float":    true,
	"Boolean":  true,
	"String":   true,
	"DateTime": true,
	"Json":     true,
	"Uuid":     true,
	"Bytes":    true,
}

// IsScalar reports whether typeName is a built-in scalar rather than
// the name of another Model.
func IsScalar(typeName string) bool {
	return ScalarTypes[typeName]
}

// Model is one declarative entity; it becomes exactly one table
// unless one of its fields expands into a side table (scalar list) or
// join table (many-to-many relation).
type Model struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// IdField returns the model's single `@id` field, if any.
func (m Model) IdField() (Field, bool) {
	for _, f := range m.Fields {
		if f.Id {
			return f, true
		}
	}
	return Field{}, false
}

// Document is the top-level parsed unit: a flat list of models plus
// optional enum declarations.
type Document struct {
	Models []Model `json:"models"`
	Enums  []Enum  `json:"enums,omitempty"`
}

// Enum is a user-declared enumerated type, native on Postgres and
// lowered to an unconstrained String elsewhere.
type Enum struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Model looks up a model by name.
func (d *Document) Model(name string) (Model, bool) {
	for _, m := range d.Models {
		if m.Name == name {
			return m, true
		}
	}
	return Model{}, false
}

// Enum looks up an enum declaration by name.
func (d *Document) Enum(name string) (Enum, bool) {
	for _, e := range d.Enums {
		if e.Name == name {
			return e, true
		}
	}
	return Enum{}, false
}
