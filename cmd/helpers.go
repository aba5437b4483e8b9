package cmd

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"

	"github.com/lockplane/lockplane/dsn"
	"github.com/lockplane/lockplane/introspect"
	"github.com/lockplane/lockplane/introspect/mysql"
	"github.com/lockplane/lockplane/introspect/postgres"
	"github.com/lockplane/lockplane/introspect/sqlite"
	"github.com/lockplane/lockplane/schema"
)

// openConnection parses a connection string and opens the
// corresponding *sql.DB, converting the URL into whatever shape each
// driver expects (lib/pq and modernc.org/sqlite both accept the raw
// URL; go-sql-driver/mysql needs dsn.MySQLDriverDSN's rewrite).
func openConnection(connString string) (*sql.DB, *dsn.ConnectionConfig, error) {
	cfg, err := dsn.Parse(connString)
	if err != nil {
		return nil, nil, err
	}

	driverDSN := cfg.Raw
	if cfg.Dialect == schema.DialectMySQL {
		driverDSN, err = dsn.MySQLDriverDSN(cfg.Raw)
		if err != nil {
			return nil, nil, err
		}
	}

	db, err := sql.Open(cfg.SQLDriver, driverDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s connection: %w", cfg.Dialect, err)
	}
	return db, cfg, nil
}

// describerFor returns the introspect.Describer for a dialect.
func describerFor(dialect schema.Dialect) (introspect.Describer, error) {
	switch dialect {
	case schema.DialectPostgres:
		return postgres.New(), nil
	case schema.DialectMySQL:
		return mysql.New(), nil
	case schema.DialectSQLite:
		return sqlite.New(), nil
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
}

// describeConnection opens a connection string and introspects it.
func describeConnection(ctx context.Context, connString string) (*schema.Schema, schema.Dialect, error) {
	db, cfg, err := openConnection(connString)
	if err != nil {
		return nil, "", err
	}
	defer db.Close()

	describer, err := describerFor(cfg.Dialect)
	if err != nil {
		return nil, "", err
	}

	s, err := describer.Describe(ctx, db, cfg.SchemaName)
	if err != nil {
		return nil, "", err
	}
	return s, cfg.Dialect, nil
}
