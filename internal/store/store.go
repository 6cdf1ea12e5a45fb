package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/bingen/internal/ir"
)

//go:embed schema.sql
var schemaSQL string

// keyFormat names the hash domains cached rows were written under. A
// compilation is only valid for the ModuleHash that keyed it and the
// generator that produced its program, so a database written under
// another keyFormat is emptied on open.
const keyFormat = ir.DomainModule + " " + ir.DomainProgram

// Store caches generated programs across bingen invocations.
type Store struct {
	db        *sql.DB
	runID     IDGenerator
	discarded int64
}

// Open creates or opens the cache database at path and brings it to the
// current key format.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	// SQLite has one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, runID: UUIDv7Generator{}}
	if err := s.init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// SetIDGenerator replaces the run ID generator. Tests use it for
// reproducible run listings.
func (s *Store) SetIDGenerator(g IDGenerator) {
	s.runID = g
}

// Discarded reports how many compilations Open dropped because they were
// cached under an older key format.
func (s *Store) Discarded() int64 {
	return s.discarded
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

func (s *Store) init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	for _, p := range pragmas {
		if _, err := s.db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("open cache: %s: %w", p, err)
		}
	}
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("open cache: schema: %w", err)
	}
	n, err := s.adoptKeyFormat(ctx, keyFormat)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	s.discarded = n
	return nil
}

// adoptKeyFormat records format as the key format of the cache. When the
// database was written under a different one, its compilations (and with
// them their runs) are deleted first.
func (s *Store) adoptKeyFormat(ctx context.Context, format string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("key format: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT value FROM cache_meta WHERE key = 'key_format'`).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return 0, fmt.Errorf("key format: %w", err)
	case current == format:
		return 0, nil
	}

	var discarded int64
	if current != "" {
		res, err := tx.ExecContext(ctx, `DELETE FROM compilations`)
		if err != nil {
			return 0, fmt.Errorf("discard stale compilations: %w", err)
		}
		if discarded, err = res.RowsAffected(); err != nil {
			return 0, fmt.Errorf("discard stale compilations: %w", err)
		}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO cache_meta (key, value) VALUES ('key_format', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, format)
	if err != nil {
		return 0, fmt.Errorf("key format: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("key format: %w", err)
	}
	return discarded, nil
}
