package mysql

import (
	"testing"

	"github.com/lockplane/lockplane/schema"
)

func TestFamilyFromDataType(t *testing.T) {
	cases := map[string]schema.ColumnTypeFamily{
		"int":       schema.FamilyInt,
		"bigint":    schema.FamilyInt,
		"decimal":   schema.FamilyFloat,
		"varchar":   schema.FamilyString,
		"enum":      schema.FamilyString,
		"datetime":  schema.FamilyDateTime,
		"longblob":  schema.FamilyBinary,
		"json":      schema.FamilyJson,
	}
	for dataType, want := range cases {
		got, err := familyFromDataType(dataType)
		if err != nil {
			t.Fatalf("familyFromDataType(%q): unexpected error %v", dataType, err)
		}
		if got != want {
			t.Fatalf("familyFromDataType(%q) = %v, want %v", dataType, got, want)
		}
	}
}

func TestFamilyFromDataTypeUnmapped(t *testing.T) {
	if _, err := familyFromDataType("geometry"); err == nil {
		t.Fatalf("expected error for unmapped data_type")
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

func TestOnDeleteFromRule(t *testing.T) {
	cases := map[string]schema.OnDeleteAction{
		"NO ACTION":   schema.NoAction,
		"RESTRICT":    schema.Restrict,
		"CASCADE":     schema.Cascade,
		"SET NULL":    schema.SetNull,
		"SET DEFAULT": schema.SetDefault,
	}
	for rule, want := range cases {
		got, err := onDeleteFromRule(rule)
		if err != nil {
			t.Fatalf("onDeleteFromRule(%q): unexpected error %v", rule, err)
		}
		if got != want {
			t.Fatalf("onDeleteFromRule(%q) = %v, want %v", rule, got, want)
		}
	}
	if _, err := onDeleteFromRule("bogus"); err == nil {
		t.Fatalf("expected error for unrecognized delete_rule")
	}
}
