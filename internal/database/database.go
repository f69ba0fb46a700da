package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/tursodatabase/go-libsql"
)

// Open connects to the SQLite database at path (":memory:" works for
// tests) and applies the pragmas the game server relies on: WAL for
// concurrent readers, a busy timeout instead of immediate SQLITE_BUSY,
// and enforced foreign keys.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("libsql", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := configure(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func configure(ctx context.Context, db *sql.DB) error {
	// Some PRAGMAs return a row and some return nothing; libsql rejects
	// Exec for the row-returning kind. Query-and-drain covers both.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		rows, err := db.QueryContext(ctx, pragma)
		if err != nil {
			return fmt.Errorf("executing %s: %w", pragma, err)
		}
		rows.Close()
	}
	return db.PingContext(ctx)
}
