// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database — it lives inside your Go binary as a single file.
// No separate database server to install, configure, or manage. It's the default
// backend (DB_DRIVER=sqlite); internal/repository/postgres covers the case where
// a managed database is preferred.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code — no C compiler needed, works everywhere Go works.
//
// DATABASE/SQL OVERVIEW:
// Go's standard library provides "database/sql" — a generic interface for SQL databases.
// Key types:
//   - sql.DB      — a connection pool (NOT a single connection!)
//   - sql.Row     — a single result row
//   - sql.Rows    — multiple result rows (must be closed!)
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	// DRIVER REGISTRATION:
	// The sqlite package's init() registers itself with database/sql as a
	// driver named "sqlite". We also use its Error type, so this isn't a
	// blank import; sqlite3 holds the result-code constants.
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/todo-tracker/internal/repository"
	"github.com/sakif/todo-tracker/internal/repository/migrations"
)

// compile-time check that *DB implements repository.Store
var _ repository.Store = (*DB)(nil)

// timeLayout is how timestamps are stored. Fixed width and always UTC, so
// ORDER BY created_at on the TEXT column sorts chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// DB wraps a sql.DB connection pool and hands out the repositories that share it.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// New opens (creating if needed) the SQLite database at path and runs
// migrations.
//
// PRAGMAS IN THE DSN:
// sql.DB is a pool. A plain conn.Exec("PRAGMA foreign_keys=ON") only configures
// whichever connection happened to run it. Passing the pragmas as _pragma DSN
// parameters makes the driver apply them to every connection it opens:
//   - foreign_keys(1)     — SQLite ships with FK enforcement OFF
//   - journal_mode(WAL)   — readers don't block on a writer
//   - busy_timeout(5000)  — wait up to 5s for a lock instead of failing
func New(ctx context.Context, path string, logger *slog.Logger) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: creating data directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Ping verifies the connection actually works.
	// Without this, a bad path or permissions issue would only surface
	// on the first query — which is much harder to debug.
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if err := migrations.Up(ctx, conn, "sqlite", logger); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return &DB{conn: conn, now: time.Now}, nil
}

func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "busy_timeout(5000)")
	return "file:" + path + "?" + q.Encode()
}

// Users returns the user repository backed by this database.
func (db *DB) Users() repository.UserRepository {
	return &userRepo{db: db}
}

// Todos returns the ownership-scoped todo repository backed by this database.
func (db *DB) Todos() repository.TodoRepository {
	return &todoRepo{db: db}
}

// Ping checks the database is reachable. Used by /healthz.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// Close closes the database connection pool.
//
// ALWAYS DEFER CLOSE:
//
//	db, err := sqlite.New(ctx, "data/todo.db", logger)
//	if err != nil { ... }
//	defer db.Close()
func (db *DB) Close() error {
	return db.conn.Close()
}

// timestamp returns the current time in the stored representation.
func (db *DB) timestamp() (time.Time, string) {
	t := db.now().UTC()
	return t, t.Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// isUniqueViolation reports whether err is SQLite's UNIQUE constraint failure.
//
// modernc.org/sqlite turns on extended result codes, so the specific
// SQLITE_CONSTRAINT_UNIQUE code normally arrives; the primary-code check
// covers builds where it doesn't.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	if se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")
}
