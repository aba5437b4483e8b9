package sqlite

import (
	"testing"

	"github.com/lockplane/lockplane/schema"
)

func TestFamilyFromDeclaredType(t *testing.T) {
	cases := map[string]schema.ColumnTypeFamily{
		"INTEGER":         schema.FamilyInt,
		"VARCHAR(255)":    schema.FamilyString,
		"TEXT":            schema.FamilyString,
		"REAL":            schema.FamilyFloat,
		"NUMERIC(10,2)":   schema.FamilyFloat,
		"BLOB":            schema.FamilyBinary,
		"":                schema.FamilyBinary,
		"BOOLEAN":         schema.FamilyBoolean,
		"DATETIME":        schema.FamilyDateTime,
		"JSON":            schema.FamilyJson,
		"UUID":            schema.FamilyUuid,
		"made_up_type_xy": schema.FamilyFloat,
	}
	for declared, want := range cases {
		if got := familyFromDeclaredType(declared); got != want {
			t.Fatalf("familyFromDeclaredType(%q) = %v, want %v", declared, got, want)
		}
	}
}

func TestCanonicalizeDefault(t *testing.T) {
	if got := canonicalizeDefault("'active'"); got != "active" {
		t.Fatalf("canonicalizeDefault: got %q, want %q", got, "active")
	}
	if got := canonicalizeDefault("0"); got != "0" {
		t.Fatalf("canonicalizeDefault: got %q, want %q", got, "0")
	}
}

func TestOnDeleteFromPragma(t *testing.T) {
	cases := map[string]schema.OnDeleteAction{
		"NO ACTION":  schema.NoAction,
		"RESTRICT":   schema.Restrict,
		"CASCADE":    schema.Cascade,
		"SET NULL":   schema.SetNull,
		"SET DEFAULT": schema.SetDefault,
	}
	for action, want := range cases {
		got, err := onDeleteFromPragma(action)
		if err != nil {
			t.Fatalf("onDeleteFromPragma(%q): unexpected error %v", action, err)
		}
		if got != want {
			t.Fatalf("onDeleteFromPragma(%q) = %v, want %v", action, got, want)
		}
	}
	if _, err := onDeleteFromPragma("bogus"); err == nil {
		t.Fatalf("expected error for unrecognized action")
	}
}

func TestQuoteIdent(t *testing.T) {
	if got := quoteIdent(`weird"name`); got != `"weird""name"` {
		t.Fatalf("quoteIdent: got %q", got)
	}
}
