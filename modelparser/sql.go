// Postgres-flavored DDL as a declarative-model source: a user may
// author `CREATE TABLE`/`CREATE TYPE ... AS ENUM` statements instead
// of the JSON or DSL formats, and ParseSQLDocument compiles them into
// the same Document the calculator consumes. Grounded directly on the
// engine's internal/schema/parser.go pg_query_go walk, generalized
// from "parse one CREATE TABLE into a database.Table" to "parse a
// whole file into a modelparser.Document" — NOT NULL/DEFAULT/PRIMARY
// KEY column constraints carry over unchanged; CREATE TYPE ... AS ENUM
// support is new (the CREATE-TABLE-only walk it's grounded on never
// handled enum types).
package modelparser

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// sqlTypeToScalar maps the type spellings pg_query_go's parser
// normalizes Postgres types to (see internal/schema/parser.go's
// typeMap) onto modelparser's fixed scalar type names.
var sqlTypeToScalar = map[string]string{
	"smallint":                  "Int",
	"integer":                   "Int",
	"bigint":                    "Int",
	"int2":                      "Int",
	"int4":                      "Int",
	"int8":                      "Int",
	"serial":                    "Int",
	"smallserial":               "Int",
	"bigserial":                 "Int",
	"real":                      "Float",
	"double precision":          "Float",
	"numeric":                   "Float",
	"decimal":                   "Float",
	"float4":                    "Float",
	"float8":                    "Float",
	"boolean":                   "Boolean",
	"bool":                      "Boolean",
	"text":                      "String",
	"varchar":                   "String",
	"char":                      "String",
	"bpchar":                    "String",
	"uuid":                      "Uuid",
	"json":                      "Json",
	"jsonb":                     "Json",
	"bytea":                     "Bytes",
	"timestamp":                 "DateTime",
	"timestamp with time zone":  "DateTime",
	"timestamptz":               "DateTime",
	"date":                      "DateTime",
	"time":                      "DateTime",
	"time with time zone":       "DateTime",
	"timetz":                    "DateTime",
}

// ParseSQLDocument parses a buffer of Postgres DDL (`CREATE TABLE`,
// `CREATE TYPE ... AS ENUM`) into a Document.
func ParseSQLDocument(sql string) (*Document, error) {
	tree, err := pg_query.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("modelparser: parse SQL: %w", err)
	}

	doc := &Document{}
	for _, stmt := range tree.Stmts {
		if stmt.Stmt == nil {
			continue
		}
		switch node := stmt.Stmt.Node.(type) {
		case *pg_query.Node_CreateStmt:
			model, err := sqlCreateTableToModel(node.CreateStmt)
			if err != nil {
				return nil, err
			}
			doc.Models = append(doc.Models, *model)
		case *pg_query.Node_CreateEnumStmt:
			doc.Enums = append(doc.Enums, sqlCreateEnumToEnum(node.CreateEnumStmt))
		}
	}
	return doc, nil
}

func sqlCreateTableToModel(stmt *pg_query.CreateStmt) (*Model, error) {
	if stmt.Relation == nil {
		return nil, fmt.Errorf("modelparser: CREATE TABLE missing relation")
	}
	model := &Model{Name: stmt.Relation.Relname}

	for _, elt := range stmt.TableElts {
		if elt.Node == nil {
			continue
		}
		colDef, ok := elt.Node.(*pg_query.Node_ColumnDef)
		if !ok {
			continue
		}
		field, err := sqlColumnDefToField(colDef.ColumnDef)
		if err != nil {
			return nil, err
		}
		model.Fields = append(model.Fields, *field)
	}
	return model, nil
}

func sqlColumnDefToField(colDef *pg_query.ColumnDef) (*Field, error) {
	if colDef.Colname == "" {
		return nil, fmt.Errorf("modelparser: column missing name")
	}

	field := &Field{Name: colDef.Colname, Arity: ArityNullable}

	if colDef.TypeName != nil {
		field.Type = sqlFormatTypeName(colDef.TypeName)
	}

	for _, constraint := range colDef.Constraints {
		cons, ok := constraint.Node.(*pg_query.Node_Constraint)
		if !ok {
			continue
		}
		switch cons.Constraint.Contype {
		case pg_query.ConstrType_CONSTR_NOTNULL:
			field.Arity = ArityRequired
		case pg_query.ConstrType_CONSTR_NULL:
			field.Arity = ArityNullable
		case pg_query.ConstrType_CONSTR_PRIMARY:
			field.Id = true
			field.Arity = ArityRequired
		case pg_query.ConstrType_CONSTR_UNIQUE:
			field.Unique = true
		case pg_query.ConstrType_CONSTR_DEFAULT:
			if cons.Constraint.RawExpr != nil {
				value := sqlFormatExpr(cons.Constraint.RawExpr)
				field.Default = &value
			}
		}
	}
	return field, nil
}

func sqlFormatTypeName(typeName *pg_query.TypeName) string {
	var parts []string
	for _, name := range typeName.Names {
		if n, ok := name.Node.(*pg_query.Node_String_); ok {
			parts = append(parts, n.String_.Sval)
		}
	}
	raw := strings.Join(parts, ".")
	if len(parts) > 1 && parts[0] == "pg_catalog" {
		raw = parts[len(parts)-1]
	}
	if scalar, ok := sqlTypeToScalar[strings.ToLower(raw)]; ok {
		return scalar
	}
	return raw
}

func sqlFormatExpr(node *pg_query.Node) string {
	if node == nil {
		return ""
	}
	if expr, ok := node.Node.(*pg_query.Node_AConst); ok {
		if ival := expr.AConst.GetIval(); ival != nil {
			return fmt.Sprintf("%d", ival.Ival)
		}
		if fval := expr.AConst.GetFval(); fval != nil {
			return fval.Fval
		}
		if sval := expr.AConst.GetSval(); sval != nil {
			return sval.Sval
		}
	}
	return ""
}

func sqlCreateEnumToEnum(stmt *pg_query.CreateEnumStmt) Enum {
	e := Enum{}
	if len(stmt.TypeName) > 0 {
		if n, ok := stmt.TypeName[len(stmt.TypeName)-1].Node.(*pg_query.Node_String_); ok {
			e.Name = n.String_.Sval
		}
	}
	for _, v := range stmt.Vals {
		if n, ok := v.Node.(*pg_query.Node_String_); ok {
			e.Values = append(e.Values, n.String_.Sval)
		}
	}
	return e
}
