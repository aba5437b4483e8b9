// Package introspect describes a live database into a schema.Schema.
// Each dialect lives in its own sub-package; this package only holds
// the shared contract.
package introspect

import (
	"context"
	"database/sql"

	"github.com/lockplane/lockplane/history"
	"github.com/lockplane/lockplane/schema"
)

// Describer introspects a live database connection into a
// dialect-neutral schema.Schema. Implementations must be pure with
// respect to the database: no writes, ever.
type Describer interface {
	Describe(ctx context.Context, db *sql.DB, schemaName string) (*schema.Schema, error)
}

// systemTables lists names filtered out of every dialect's result:
// database-owned bookkeeping tables (SQLite's stats/sequence tables)
// plus the engine's own migration-history table. Scalar-list side
// tables the calculator emits are not filtered here or elsewhere: they
// are described and diffed as ordinary tables.
var systemTables = map[string]bool{
	"sqlite_sequence": true,
	"sqlite_stat1":    true,
	"sqlite_stat2":    true,
	"sqlite_stat3":    true,
	"sqlite_stat4":    true,
	history.TableName: true,
}

// IsSystemTable reports whether a table name is an engine- or
// database-owned internal table that must never appear in a described
// schema.
func IsSystemTable(name string) bool {
	return systemTables[name]
}
