package apply

import (
	"strings"
	"testing"

	"github.com/lockplane/lockplane/schema"
)

func TestIsTransactionalPostgresAndSQLite(t *testing.T) {
	if !isTransactional(schema.DialectPostgres) {
		t.Fatalf("expected postgres to be transactional")
	}
	if !isTransactional(schema.DialectSQLite) {
		t.Fatalf("expected sqlite to be transactional")
	}
}

func TestIsTransactionalMySQL(t *testing.T) {
	if isTransactional(schema.DialectMySQL) {
		t.Fatalf("expected mysql not to be transactional")
	}
}

func TestSkipStatementBlanksAndComments(t *testing.T) {
	cases := map[string]bool{
		"":                      true,
		"   ":                   true,
		"-- a comment":          true,
		"CREATE TABLE t (id)":   false,
		"  SELECT 1  ":          false,
	}
	for stmt, want := range cases {
		if got := skipStatement(stmt); got != want {
			t.Fatalf("skipStatement(%q) = %v, want %v", stmt, got, want)
		}
	}
}

func TestDescribeNumbersStatements(t *testing.T) {
	out := Describe([]string{"CREATE TABLE a (id int)", "DROP TABLE b"})
	if !strings.Contains(out, "1. CREATE TABLE a (id int)") {
		t.Fatalf("expected numbered first statement, got: %s", out)
	}
	if !strings.Contains(out, "2. DROP TABLE b") {
		t.Fatalf("expected numbered second statement, got: %s", out)
	}
}

func TestNewDefaultsToNonVerbose(t *testing.T) {
	a := New()
	if a.Verbose {
		t.Fatalf("expected default Applier to be non-verbose")
	}
}
