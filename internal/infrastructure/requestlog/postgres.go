package requestlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastlane/backend/internal/domain"
)

const (
	insertRequestSQL = `INSERT INTO request_log (ip, requested_at) VALUES ($1, $2)`
	countSinceSQL    = `SELECT COUNT(*) FROM request_log WHERE requested_at >= $1`
)

// PostgresRepository persists requests in the request_log table
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a request log backed by Postgres
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Record stores a request
func (r *PostgresRepository) Record(ctx context.Context, ip string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, insertRequestSQL, ip, at); err != nil {
		return fmt.Errorf("%w: insert request: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// CountSince returns how many requests were recorded at or after since
func (r *PostgresRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, countSinceSQL, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count requests: %v", domain.ErrStoreUnavailable, err)
	}
	return count, nil
}
