package postgres

import (
	"testing"

	"github.com/lockplane/lockplane/schema"
)

func TestFamilyFromUDT(t *testing.T) {
	cases := []struct {
		udt    string
		family schema.ColumnTypeFamily
		arity  schema.Arity
	}{
		{"int4", schema.FamilyInt, schema.ArityRequired},
		{"_int4", schema.FamilyInt, schema.ArityList},
		{"varchar", schema.FamilyString, schema.ArityRequired},
		{"jsonb", schema.FamilyJson, schema.ArityRequired},
		{"uuid", schema.FamilyUuid, schema.ArityRequired},
		{"tsvector", schema.FamilyTextSearch, schema.ArityRequired},
		{"pg_lsn", schema.FamilyLogSequenceNumber, schema.ArityRequired},
	}
	for _, c := range cases {
		family, arity, err := familyFromUDT(c.udt)
		if err != nil {
			t.Fatalf("familyFromUDT(%q): unexpected error %v", c.udt, err)
		}
		if family != c.family || arity != c.arity {
			t.Fatalf("familyFromUDT(%q) = (%v, %v), want (%v, %v)", c.udt, family, arity, c.family, c.arity)
		}
	}
}

func TestFamilyFromUDTUnmapped(t *testing.T) {
	if _, _, err := familyFromUDT("some_unknown_type"); err == nil {
		t.Fatalf("expected error for unmapped udt_name")
	}
}

func TestIsSequenceDefault(t *testing.T) {
	if !isSequenceDefault("nextval('users_id_seq'::regclass)") {
		t.Fatalf("expected nextval(...) default to be recognized as a sequence default")
	}
	if isSequenceDefault("'active'::text") {
		t.Fatalf("did not expect a literal default to be recognized as a sequence default")
	}
}

func TestCanonicalizeDefault(t *testing.T) {
	cases := map[string]string{
		"'active'::status":  "active",
		"'{}'::jsonb":        "{}",
		"0":                  "0",
		"true":               "true",
	}
	for raw, want := range cases {
		if got := canonicalizeDefault(raw); got != want {
			t.Fatalf("canonicalizeDefault(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestOnDeleteFromChar(t *testing.T) {
	cases := map[string]schema.OnDeleteAction{
		"a": schema.NoAction,
		"r": schema.Restrict,
		"c": schema.Cascade,
		"n": schema.SetNull,
		"d": schema.SetDefault,
	}
	for c, want := range cases {
		got, err := onDeleteFromChar(c)
		if err != nil {
			t.Fatalf("onDeleteFromChar(%q): unexpected error %v", c, err)
		}
		if got != want {
			t.Fatalf("onDeleteFromChar(%q) = %v, want %v", c, got, want)
		}
	}
	if _, err := onDeleteFromChar("z"); err == nil {
		t.Fatalf("expected error for unrecognized confdeltype")
	}
}
