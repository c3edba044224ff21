package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	_ "modernc.org/sqlite"

	"gitea.kood.tech/petrkubec/match-me/matchradar/config"
	"gitea.kood.tech/petrkubec/match-me/matchradar/logger"
	"gitea.kood.tech/petrkubec/match-me/matchradar/store"
)

// openDB connects to the configured profile database and checks it is reachable.
func openDB(ctx context.Context, cfg config.DatabaseConfig, log logger.Logger) (*sql.DB, store.Dialect, error) {
	var dialect store.Dialect
	switch cfg.Driver {
	case "postgres":
		dialect = store.Postgres
	case "sqlite":
		dialect = store.SQLite
	default:
		return nil, "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if dialect == store.SQLite {
		// one writer; in-memory databases are per connection otherwise
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("cannot reach the database: %w", err)
	}

	log.Info("Database connection established", map[string]interface{}{"driver": cfg.Driver})
	return db, dialect, nil
}
