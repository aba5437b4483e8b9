package modelparser

import "testing"

func TestParseDSLDocumentSimpleModel(t *testing.T) {
	doc, err := ParseDSLDocument(`
model Blog {
  id Int @id
  title String
}
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Models) != 1 {
		t.Fatalf("expected 1 model, got %d", len(doc.Models))
	}
	m := doc.Models[0]
	if m.Name != "Blog" {
		t.Fatalf("expected model name Blog, got %q", m.Name)
	}
	if len(m.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(m.Fields))
	}
	if !m.Fields[0].Id || m.Fields[0].Type != "Int" {
		t.Fatalf("expected first field to be Int @id, got %+v", m.Fields[0])
	}
	if m.Fields[1].Arity != ArityRequired {
		t.Fatalf("expected title to default to required arity")
	}
}

func TestParseDSLDocumentInlineRelation(t *testing.T) {
	doc, err := ParseDSLDocument(`
model A {
  id Int @id
  b B @relation(references: [id])
}
model B {
  id Int @id
}
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a, ok := doc.Model("A")
	if !ok {
		t.Fatalf("expected model A")
	}
	var bField Field
	for _, f := range a.Fields {
		if f.Name == "b" {
			bField = f
		}
	}
	if bField.Relation == nil {
		t.Fatalf("expected b field to carry a relation")
	}
	if len(bField.Relation.References) != 1 || bField.Relation.References[0] != "id" {
		t.Fatalf("unexpected relation references: %+v", bField.Relation.References)
	}
}

func TestParseDSLDocumentMapAndList(t *testing.T) {
	doc, err := ParseDSLDocument(`
model Post {
  id Int @id
  authorName String @map(name: "author_name")
  tags String[]
}
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, _ := doc.Model("Post")
	var mapped, list Field
	for _, f := range m.Fields {
		switch f.Name {
		case "authorName":
			mapped = f
		case "tags":
			list = f
		}
	}
	if mapped.ColumnName() != "author_name" {
		t.Fatalf("expected @map override, got %q", mapped.ColumnName())
	}
	if list.Arity != ArityList || list.Type != "String" {
		t.Fatalf("expected tags to be a String list, got %+v", list)
	}
}

func TestParseDSLDocumentEnum(t *testing.T) {
	doc, err := ParseDSLDocument(`
enum Role {
  ADMIN
  MEMBER
}
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e, ok := doc.Enum("Role")
	if !ok {
		t.Fatalf("expected enum Role")
	}
	if len(e.Values) != 2 || e.Values[0] != "ADMIN" || e.Values[1] != "MEMBER" {
		t.Fatalf("unexpected enum values: %v", e.Values)
	}
}

func TestParseDSLDocumentRejectsUnknownDeclaration(t *testing.T) {
	if _, err := ParseDSLDocument("widget Foo { }"); err == nil {
		t.Fatalf("expected an error for an unrecognized declaration")
	}
}
