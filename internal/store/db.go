// Package store provides the durable record store for the authoritative
// DNS service: zones, records, DDNS credentials and DDNS audit history,
// all backed by SQLite in WAL mode.
//
// Record values are kept in a textual grammar rather than raw wire bytes
// so they can be edited through the control-plane and inspected with
// ordinary SQL tools. valuecodec.go validates that grammar and decodes it
// into the wire types in internal/dnswire.
package store

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite connection and the prepared statements the query
// paths need. Statements are recreated whenever the underlying connection
// is reopened.
type Store struct {
	conn *sql.DB
	mu   sync.RWMutex

	stmtLookupByName  *sql.Stmt
	stmtResolveZone   *sql.Stmt
	stmtAuthority     *sql.Stmt
	stmtHealthTargets *sql.Stmt
	stmtUpdateHealth  *sql.Stmt
}

// Open opens or creates a SQLite database at path and brings it to the
// latest schema version.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_foreign_keys=on", path)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)

	s := &Store{conn: conn}

	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if err := s.prepare(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	dbDriver, err := sqlite.WithInstance(s.conn, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (s *Store) prepare() error {
	var err error
	s.stmtLookupByName, err = s.conn.Prepare(lookupByNameQuery)
	if err != nil {
		return fmt.Errorf("prepare lookup_by_name: %w", err)
	}
	s.stmtResolveZone, err = s.conn.Prepare(resolveZoneQuery)
	if err != nil {
		return fmt.Errorf("prepare resolve_zone: %w", err)
	}
	s.stmtAuthority, err = s.conn.Prepare(authorityQuery)
	if err != nil {
		return fmt.Errorf("prepare authority: %w", err)
	}
	s.stmtHealthTargets, err = s.conn.Prepare(healthTargetsQuery)
	if err != nil {
		return fmt.Errorf("prepare health_targets: %w", err)
	}
	s.stmtUpdateHealth, err = s.conn.Prepare(updateHealthQuery)
	if err != nil {
		return fmt.Errorf("prepare update_health: %w", err)
	}
	return nil
}

// Reopen closes and re-establishes the connection and prepared statements.
// Used after a migration or when recovering from a connection error.
func (s *Store) Reopen(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		s.conn.Close()
	}
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_foreign_keys=on", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("reopen database: %w", err)
	}
	s.conn = conn
	if err := s.migrate(); err != nil {
		return err
	}
	return s.prepare()
}

// Close releases the connection and any prepared statements.
func (s *Store) Close() error {
	for _, stmt := range []*sql.Stmt{s.stmtLookupByName, s.stmtResolveZone, s.stmtAuthority, s.stmtHealthTargets, s.stmtUpdateHealth} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.conn.Close()
}

// Health reports whether the underlying connection is reachable.
func (s *Store) Health() error {
	return s.conn.Ping()
}

// BeginTx starts a transaction for multi-statement writes (ingest, DDNS update).
func (s *Store) BeginTx() (*sql.Tx, error) {
	return s.conn.Begin()
}
