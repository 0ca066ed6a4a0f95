// Package store implements the per-gate ticket store described in spec.md
// §4.B: a SQLite-backed table of tickets plus an append-only scan history,
// with race-free per-gate admission accounting.
//
// Grounded on the teacher's internal/infrastructure/db (connection pooling,
// PingContext on open, a thin Manager wrapper) and
// internal/persistence/postgres/trades_repo.go (per-call context timeout,
// QueryRowxContext/QueryxContext, %w-wrapped errors). The driver is
// mattn/go-sqlite3 rather than the teacher's lib/pq — see DESIGN.md.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/edgegate/ticketgate/internal/model"
)

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

const schema = `
CREATE TABLE IF NOT EXISTS tickets (
	reference_no TEXT PRIMARY KEY,
	booking_date TEXT NOT NULL,
	pax_a INTEGER NOT NULL DEFAULT 0,
	used_a INTEGER NOT NULL DEFAULT 0,
	pax_b INTEGER NOT NULL DEFAULT 0,
	used_b INTEGER NOT NULL DEFAULT 0,
	pax_c INTEGER NOT NULL DEFAULT 0,
	used_c INTEGER NOT NULL DEFAULT 0,
	is_synced INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	last_scan DATETIME
);

CREATE TABLE IF NOT EXISTS scan_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ticket_ref TEXT NOT NULL,
	scan_time DATETIME NOT NULL,
	result TEXT NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scan_history_ref ON scan_history(ticket_ref);
CREATE INDEX IF NOT EXISTS idx_tickets_unsynced ON tickets(is_synced, last_scan, created_at);
`

// Config configures one gate's store.
type Config struct {
	// GateName is the human-facing gate letter this store instance serves
	// (e.g. "A"). It determines which pax_*/used_* columns TryAdmit mutates.
	GateName model.GateID
	// DBPath is the SQLite file backing this gate, e.g. "AttractionA.db".
	DBPath string
	// QueryTimeout bounds every individual store operation.
	QueryTimeout time.Duration
}

// Store is a single gate's ticket store.
type Store struct {
	db      *sqlx.DB
	gate    model.GateID
	dbPath  string
	timeout time.Duration
	log     zerolog.Logger
}

// Open opens (creating if needed) the SQLite file at cfg.DBPath, applies the
// schema, and configures WAL journaling with NORMAL synchronous durability
// per spec.md §4.B's "commit before fsync is acceptable" note.
func Open(cfg Config, logger zerolog.Logger) (*Store, error) {
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = 30 * time.Second
	}

	db, err := sqlx.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.DBPath, err)
	}
	db.SetMaxOpenConns(1) // SQLite: a single writer connection avoids SQLITE_BUSY under WAL

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping store %s: %w", cfg.DBPath, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema to %s: %w", cfg.DBPath, err)
	}

	return &Store{
		db:      db,
		gate:    cfg.GateName,
		dbPath:  cfg.DBPath,
		timeout: cfg.QueryTimeout,
		log:     logger.With().Str("store", cfg.DBPath).Logger(),
	}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Gate returns the gate this store instance serves.
func (s *Store) Gate() model.GateID { return s.gate }

// Path returns the SQLite file path backing this store.
func (s *Store) Path() string { return s.dbPath }

func (s *Store) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.timeout)
}

// gateColumns returns the pax/used column names for gate g. TryAdmit calls
// it with s.gate; operations that touch all three gates (upsert, snapshot)
// name the columns directly or go through model.Ticket.AsGateMap instead.
func gateColumns(g model.GateID) (paxCol, usedCol string, ok bool) {
	switch g {
	case model.GateA:
		return "pax_a", "used_a", true
	case model.GateB:
		return "pax_b", "used_b", true
	case model.GateC:
		return "pax_c", "used_c", true
	default:
		return "", "", false
	}
}
