// Package postgres implements the repository interfaces on PostgreSQL through
// pgx's database/sql driver. Selected with DB_DRIVER=postgres.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver

	"github.com/sakif/todo-tracker/internal/repository"
	"github.com/sakif/todo-tracker/internal/repository/migrations"
)

var _ repository.Store = (*DB)(nil)

// uniqueViolation is PostgreSQL's SQLSTATE for a UNIQUE constraint failure.
const uniqueViolation = "23505"

// DBTX is the subset of database/sql the repositories use.
// *sql.DB and *sql.Tx both satisfy it, and so does the *sql.DB sqlmock hands
// out in tests.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB owns the connection pool and both repositories built on it.
type DB struct {
	conn  *sql.DB
	users *UserRepository
	todos *TodoRepository
}

// New connects to dsn, verifies the connection and applies migrations.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*DB, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	if err := migrations.Up(ctx, conn, "postgres", logger); err != nil {
		conn.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}

	return &DB{
		conn:  conn,
		users: NewUserRepository(conn),
		todos: NewTodoRepository(conn),
	}, nil
}

// Users returns the user repository backed by this pool.
func (db *DB) Users() repository.UserRepository { return db.users }

// Todos returns the ownership-scoped todo repository backed by this pool.
func (db *DB) Todos() repository.TodoRepository { return db.todos }

// Ping checks the database is reachable. Used by /healthz.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// stamp is the current time at the precision TIMESTAMPTZ stores, so the value
// a write returns is the value a later read gets back.
func stamp(now func() time.Time) time.Time {
	return now().UTC().Truncate(time.Microsecond)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
