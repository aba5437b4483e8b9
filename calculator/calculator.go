// Package calculator compiles a parsed declarative data model
// (modelparser.Document) into the same dialect-neutral schema.Schema
// the introspect package produces, so the differ can diff a live
// database against a desired model without knowing which one
// produced either side. Generalized from the
// CREATE-TABLE-at-a-time walk the engine's SQL DDL parser performed
// into a full declarative-model compiler.
package calculator

import (
	"fmt"
	"sort"

	"github.com/lockplane/lockplane/engineerr"
	"github.com/lockplane/lockplane/modelparser"
	"github.com/lockplane/lockplane/schema"
)

// scalarFamilies maps modelparser's fixed scalar type names to the
// abstract ColumnTypeFamily.
var scalarFamilies = map[string]schema.ColumnTypeFamily{
	"Int":      schema.FamilyInt,
	"Float":    schema.FamilyFloat,
	"Boolean":  schema.FamilyBoolean,
	"String":   schema.FamilyString,
	"DateTime": schema.FamilyDateTime,
	"Json":     schema.FamilyJson,
	"Uuid":     schema.FamilyUuid,
	"Bytes":    schema.FamilyBinary,
}

// rawSpellings gives each scalar family a dialect-neutral "Raw" label;
// the renderer is responsible for the dialect-specific spelling.
var rawSpellings = map[string]string{
	"Int": "Int", "Float": "Float", "Boolean": "Boolean", "String": "String",
	"DateTime": "DateTime", "Json": "Json", "Uuid": "Uuid", "Bytes": "Bytes",
}

// Calculate compiles a Document into a Schema for the given dialect.
// Enum-typed fields create a native Postgres enum; on MySQL/SQLite
// they lower to an unconstrained String column.
func Calculate(doc *modelparser.Document, dialect schema.Dialect) (*schema.Schema, error) {
	out := &schema.Schema{}

	if dialect == schema.DialectPostgres {
		for _, e := range doc.Enums {
			out.Enums = append(out.Enums, schema.Enum{Name: e.Name, Values: append([]string{}, e.Values...)})
		}
	}

	joinTables := map[string]schema.Table{}

	for _, model := range doc.Models {
		table, sideTables, err := compileModel(doc, model, dialect)
		if err != nil {
			return nil, err
		}
		out.Tables = append(out.Tables, *table)
		out.Tables = append(out.Tables, sideTables...)

		for _, field := range model.Fields {
			if field.Arity != modelparser.ArityList || modelparser.IsScalar(field.Type) {
				continue
			}
			if _, isEnum := doc.Enum(field.Type); isEnum {
				continue
			}
			other, ok := doc.Model(field.Type)
			if !ok {
				return nil, engineerr.New(engineerr.DataModel, "compile model", fmt.Errorf("model %s references unknown model %s", model.Name, field.Type))
			}
			// A list on one side only is the back side of a one-to-many
			// relation, already lowered to an FK column by compileModel.
			backList := false
			for _, f := range other.Fields {
				if f.Type == model.Name && f.Arity == modelparser.ArityList {
					backList = true
				}
			}
			if field.Relation == nil && !backList {
				continue
			}
			jt, err := manyToManyJoinTable(model, other, field)
			if err != nil {
				return nil, err
			}
			if _, exists := joinTables[jt.Name]; !exists {
				joinTables[jt.Name] = *jt
			}
		}
	}

	names := make([]string, 0, len(joinTables))
	for name := range joinTables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out.Tables = append(out.Tables, joinTables[name])
	}

	return out, nil
}

// compileModel lowers one Model into its primary table plus any
// scalar-list side tables its List-arity scalar fields produce.
func compileModel(doc *modelparser.Document, model modelparser.Model, dialect schema.Dialect) (*schema.Table, []schema.Table, error) {
	table := &schema.Table{Name: model.Name}
	var sideTables []schema.Table
	var pkColumns []string

	idField, hasID := model.IdField()
	var idColumnType schema.ColumnType
	if hasID {
		idColumnType = scalarColumnType(idField.Type, dialect)
	}

	for _, field := range model.Fields {
		_, isEnum := doc.Enum(field.Type)
		switch {
		case modelparser.IsScalar(field.Type) && field.Arity == modelparser.ArityList:
			side := scalarListTable(model, field, idField, idColumnType)
			sideTables = append(sideTables, side)
			continue

		case modelparser.IsScalar(field.Type) || (isEnum && field.Arity != modelparser.ArityList):
			col, err := compileScalarColumn(field, doc, dialect)
			if err != nil {
				return nil, nil, err
			}
			table.Columns = append(table.Columns, col)
			if field.Id {
				pkColumns = append(pkColumns, col.Name)
			}
			if field.Unique {
				table.Indices = append(table.Indices, schema.Index{
					Name:    fmt.Sprintf("%s_%s_key", model.Name, col.Name),
					Columns: []string{col.Name},
					Type:    schema.IndexUnique,
				})
			}

		case field.Arity == modelparser.ArityList:
			// Many-to-many side: handled by the caller once both
			// models in the relation have been compiled.
			continue

		default:
			// Inline relation: a single nullable FK column.
			col := schema.Column{
				Name:  field.ColumnName(),
				Type:  idColumnTypeFor(doc, field.Type, dialect),
				Arity: schema.ArityNullable,
			}
			table.Columns = append(table.Columns, col)

			references := []string{"id"}
			if field.Relation != nil && len(field.Relation.References) > 0 {
				references = field.Relation.References
			}
			table.ForeignKeys = append(table.ForeignKeys, schema.ForeignKey{
				ConstraintName:    fmt.Sprintf("fk_%s_%s", model.Name, field.Name),
				Columns:           []string{col.Name},
				ReferencedTable:   field.Type,
				ReferencedColumns: references,
				OnDelete:          schema.SetNull,
			})
		}
	}

	if len(pkColumns) > 0 {
		table.PrimaryKey = &schema.PrimaryKey{Columns: pkColumns}
	}

	return table, sideTables, nil
}

// compileScalarColumn lowers one scalar field to a Column, resolving
// enum-typed fields per dialect (native enum on Postgres, String
// elsewhere).
func compileScalarColumn(field modelparser.Field, doc *modelparser.Document, dialect schema.Dialect) (schema.Column, error) {
	col := schema.Column{Name: field.ColumnName(), Default: field.Default}

	if enum, ok := doc.Enum(field.Type); ok {
		if dialect == schema.DialectPostgres {
			col.Type = schema.ColumnType{Raw: enum.Name, Family: schema.FamilyString}
		} else {
			col.Type = schema.ColumnType{Raw: "String", Family: schema.FamilyString}
		}
	} else {
		family, ok := scalarFamilies[field.Type]
		if !ok {
			return schema.Column{}, engineerr.New(engineerr.DataModel, "compile field "+field.Name, fmt.Errorf("unrecognized scalar type %q", field.Type))
		}
		col.Type = schema.ColumnType{Raw: rawSpellings[field.Type], Family: family}
	}

	switch field.Arity {
	case modelparser.ArityNullable:
		col.Arity = schema.ArityNullable
	default:
		col.Arity = schema.ArityRequired
	}

	if field.Id && field.Type == "Int" {
		col.AutoIncrement = true
	}

	return col, nil
}

func scalarColumnType(typeName string, dialect schema.Dialect) schema.ColumnType {
	family, ok := scalarFamilies[typeName]
	if !ok {
		family = schema.FamilyUnknown
	}
	return schema.ColumnType{Raw: rawSpellings[typeName], Family: family}
}

func idColumnTypeFor(doc *modelparser.Document, modelName string, dialect schema.Dialect) schema.ColumnType {
	other, ok := doc.Model(modelName)
	if !ok {
		return schema.ColumnType{Family: schema.FamilyUnknown}
	}
	idField, ok := other.IdField()
	if !ok {
		return schema.ColumnType{Family: schema.FamilyUnknown}
	}
	return scalarColumnType(idField.Type, dialect)
}

// scalarListTable builds the `<Model>_<field>` side table for a
// scalar-list field: compound PK (nodeId, position), cascading FK
// back to the owner.
func scalarListTable(model modelparser.Model, field modelparser.Field, idField modelparser.Field, idColumnType schema.ColumnType) schema.Table {
	family, ok := scalarFamilies[field.Type]
	if !ok {
		family = schema.FamilyUnknown
	}

	tableName := fmt.Sprintf("%s_%s", model.Name, field.Name)
	return schema.Table{
		Name: tableName,
		Columns: []schema.Column{
			{Name: "nodeId", Type: idColumnType, Arity: schema.ArityRequired},
			{Name: "position", Type: schema.ColumnType{Raw: "Int", Family: schema.FamilyInt}, Arity: schema.ArityRequired},
			{Name: "value", Type: schema.ColumnType{Raw: rawSpellings[field.Type], Family: family}, Arity: schema.ArityRequired},
		},
		PrimaryKey: &schema.PrimaryKey{Columns: []string{"nodeId", "position"}},
		ForeignKeys: []schema.ForeignKey{
			{
				ConstraintName:    fmt.Sprintf("fk_%s_nodeId", tableName),
				Columns:           []string{"nodeId"},
				ReferencedTable:   model.Name,
				ReferencedColumns: []string{idField.ColumnName()},
				OnDelete:          schema.Cascade,
			},
		},
	}
}

// manyToManyJoinTable builds the `_<A>To<B>` join table for a
// many-to-many relation, naming the two sides alphabetically unless
// the field carries an explicit @relation name.
func manyToManyJoinTable(a, b modelparser.Model, field modelparser.Field) (*schema.Table, error) {
	aIdField, ok := a.IdField()
	if !ok {
		return nil, engineerr.New(engineerr.DataModel, "compile many-to-many relation", fmt.Errorf("model %s has no @id field", a.Name))
	}
	bIdField, ok := b.IdField()
	if !ok {
		return nil, engineerr.New(engineerr.DataModel, "compile many-to-many relation", fmt.Errorf("model %s has no @id field", b.Name))
	}

	name := fmt.Sprintf("_%sTo%s", a.Name, b.Name)
	first, second := a.Name, b.Name
	firstID, secondID := aIdField, bIdField
	if second < first {
		first, second = second, first
		firstID, secondID = secondID, firstID
		name = fmt.Sprintf("_%sTo%s", first, second)
	}
	if field.Relation != nil && field.Relation.Name != "" {
		name = "_" + field.Relation.Name
	}

	idType := func(f modelparser.Field) schema.ColumnType {
		family, ok := scalarFamilies[f.Type]
		if !ok {
			family = schema.FamilyUnknown
		}
		return schema.ColumnType{Raw: rawSpellings[f.Type], Family: family}
	}

	return &schema.Table{
		Name: name,
		Columns: []schema.Column{
			{Name: "A", Type: idType(firstID), Arity: schema.ArityRequired},
			{Name: "B", Type: idType(secondID), Arity: schema.ArityRequired},
		},
		PrimaryKey: &schema.PrimaryKey{Columns: []string{"A", "B"}},
		ForeignKeys: []schema.ForeignKey{
			{ConstraintName: fmt.Sprintf("fk_%s_A", name), Columns: []string{"A"}, ReferencedTable: first, ReferencedColumns: []string{firstID.ColumnName()}, OnDelete: schema.Cascade},
			{ConstraintName: fmt.Sprintf("fk_%s_B", name), Columns: []string{"B"}, ReferencedTable: second, ReferencedColumns: []string{secondID.ColumnName()}, OnDelete: schema.Cascade},
		},
	}, nil
}
