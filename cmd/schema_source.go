package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/lockplane/lockplane/calculator"
	"github.com/lockplane/lockplane/modelparser"
	"github.com/lockplane/lockplane/schema"
)

// loadSchema resolves one side of a `plan`/`apply` comparison: a
// connection string is introspected live; anything else is read as a
// declarative model file (JSON, the Prisma-style DSL, or Postgres DDL,
// selected by extension) and compiled by the calculator.
func loadSchema(ctx context.Context, source string, dialect schema.Dialect) (*schema.Schema, error) {
	if looksLikeConnectionString(source) {
		s, _, err := describeConnection(ctx, source)
		return s, err
	}

	doc, err := loadModelDocument(source)
	if err != nil {
		return nil, err
	}
	return calculator.Calculate(doc, dialect)
}

func looksLikeConnectionString(s string) bool {
	for _, prefix := range []string{"postgres://", "postgresql://", "mysql://", "libsql://", "sqlite://", "file:", ":memory:"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

func loadModelDocument(path string) (*modelparser.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file %s: %w", path, err)
	}

	switch {
	case strings.HasSuffix(path, ".json"):
		return modelparser.ParseJSONDocument(data)
	case strings.HasSuffix(path, ".sql"):
		return modelparser.ParseSQLDocument(string(data))
	default:
		return modelparser.ParseDSLDocument(string(data))
	}
}
