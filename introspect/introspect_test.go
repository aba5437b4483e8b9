package introspect

import (
	"testing"

	"github.com/lockplane/lockplane/history"
)

func TestIsSystemTableFiltersHistoryTable(t *testing.T) {
	if !IsSystemTable(history.TableName) {
		t.Fatalf("expected %q to be filtered as a system table", history.TableName)
	}
}

func TestIsSystemTableFiltersSQLiteBookkeeping(t *testing.T) {
	for _, name := range []string{"sqlite_sequence", "sqlite_stat1", "sqlite_stat2", "sqlite_stat3", "sqlite_stat4"} {
		if !IsSystemTable(name) {
			t.Fatalf("expected %q to be filtered as a system table", name)
		}
	}
}

func TestIsSystemTableDoesNotFilterOrdinaryTables(t *testing.T) {
	if IsSystemTable("users") {
		t.Fatalf("did not expect an ordinary table name to be filtered")
	}
}
