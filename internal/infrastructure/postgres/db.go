package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schema string

// Options controls how the connection is established
type Options struct {
	PingAttempts int
	PingDelay    time.Duration
}

// Open connects to Postgres, waits for it to accept connections and creates the tables
func Open(ctx context.Context, dsn string, opts Options) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := waitForPing(ctx, db, opts); err != nil {
		db.Close()
		return nil, err
	}

	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// waitForPing retries Ping until the database answers or attempts run out
func waitForPing(ctx context.Context, db *sql.DB, opts Options) error {
	attempts := opts.PingAttempts
	if attempts <= 0 {
		attempts = 20
	}
	delay := opts.PingDelay
	if delay <= 0 {
		delay = time.Second
	}

	var err error
	for i := 1; i <= attempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		log.Printf("[DB] Waiting for database... (%d/%d)", i, attempts)

		select {
		case <-ctx.Done():
			return fmt.Errorf("connect database: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("connect database: %w", err)
}

// InitSchema creates the price_cache and request_log tables if missing
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
