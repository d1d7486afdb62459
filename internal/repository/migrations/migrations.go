// Package migrations embeds the goose SQL migrations for each supported
// database. The two dialects are kept in separate directories because the
// column types differ (INTEGER PRIMARY KEY AUTOINCREMENT vs BIGSERIAL,
// fixed-width TEXT timestamps vs TIMESTAMPTZ).
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

// Up applies every pending migration for dialect ("sqlite" or "postgres")
// to db and logs each one that ran.
func Up(ctx context.Context, db *sql.DB, dialect string, logger *slog.Logger) error {
	var gooseDialect goose.Dialect
	switch dialect {
	case "sqlite":
		gooseDialect = goose.DialectSQLite3
	case "postgres":
		gooseDialect = goose.DialectPostgres
	default:
		return fmt.Errorf("migrations: unsupported dialect %q", dialect)
	}

	dir, err := fs.Sub(files, dialect)
	if err != nil {
		return fmt.Errorf("migrations: opening %s directory: %w", dialect, err)
	}

	provider, err := goose.NewProvider(gooseDialect, db, dir)
	if err != nil {
		return fmt.Errorf("migrations: creating provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrations: applying: %w", err)
	}

	for _, r := range results {
		logger.Info("migration applied",
			slog.Int64("version", r.Source.Version),
			slog.String("file", r.Source.Path),
			slog.Duration("duration", r.Duration),
		)
	}
	return nil
}
