// Package history tracks applied migrations as an external
// append-only log: Init/Record/Last keyed by migration name and
// checksum. Grounded on internal/state/state.go's atomic JSON
// persistence of migration progress, generalized from a local
// .lockplane-state.json file tracking multi-phase plan progress to a
// database table recording every migration the engine has ever
// applied, with github.com/google/uuid minting the run identifier
// each record carries alongside its checksum.
package history

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TableName is the engine's own migration-history table. Describers
// must filter it out of any live schema they introspect.
const TableName = "_lockplane_migrations"

// Record is one applied migration as stored in the history table.
type Record struct {
	ID        string
	Name      string
	Checksum  string
	StepsJSON string
	AppliedAt time.Time
}

// Checksum computes the hex SHA-256 checksum of a migration's encoded
// step sequence (see EncodeSteps), keyed into the history table
// alongside its name. The bytes are hashed exactly as given.
func Checksum(stepsJSON []byte) string {
	sum := sha256.Sum256(stepsJSON)
	return hex.EncodeToString(sum[:])
}

// History records applied migrations in TableName. The quoting
// function is dialect-specific (e.g. render.Quote(dialect)); History
// never goes through the differ/render packages itself, since its own
// table is intentionally out of scope for the engine's schema diffing.
type History struct {
	db    *sql.DB
	quote func(string) string
}

// New wraps a *sql.DB with the identifier-quoting function for the
// target dialect (e.g. render.Quote(schema.DialectPostgres)).
func New(db *sql.DB, quote func(string) string) *History {
	if quote == nil {
		quote = func(s string) string { return s }
	}
	return &History{db: db, quote: quote}
}

// Init creates the history table if it does not already exist.
func (h *History) Init(ctx context.Context) error {
	ddl := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			checksum TEXT NOT NULL,
			steps_json TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL
		)`, h.quote(TableName))
	_, err := h.db.ExecContext(ctx, ddl)
	if err != nil {
		return fmt.Errorf("history: init: %w", err)
	}
	return nil
}

// Record appends a completed migration to the history table.
func (h *History) Record(ctx context.Context, name, checksum string, stepsJSON []byte) (*Record, error) {
	rec := &Record{
		ID:        uuid.NewString(),
		Name:      name,
		Checksum:  checksum,
		StepsJSON: string(stepsJSON),
		AppliedAt: time.Now().UTC(),
	}

	stmt := fmt.Sprintf(
		`INSERT INTO %s (id, name, checksum, steps_json, applied_at) VALUES (?, ?, ?, ?, ?)`,
		h.quote(TableName))
	if _, err := h.db.ExecContext(ctx, stmt, rec.ID, rec.Name, rec.Checksum, rec.StepsJSON, rec.AppliedAt); err != nil {
		return nil, fmt.Errorf("history: record %q: %w", name, err)
	}
	return rec, nil
}

// Last returns the most recently applied migration, or nil if the
// history table is empty.
func (h *History) Last(ctx context.Context) (*Record, error) {
	q := fmt.Sprintf(
		`SELECT id, name, checksum, steps_json, applied_at FROM %s ORDER BY applied_at DESC LIMIT 1`,
		h.quote(TableName))
	row := h.db.QueryRowContext(ctx, q)

	var rec Record
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Checksum, &rec.StepsJSON, &rec.AppliedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("history: last: %w", err)
	}
	return &rec, nil
}

// EncodeSteps marshals any JSON-serializable step slice with
// deterministic key order, matching this engine's "stable ordering of
// keys" requirement for the persisted migration artifact.
func EncodeSteps(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("history: encode steps: %w", err)
	}
	return data, nil
}
