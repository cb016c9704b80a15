package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fastlane/backend/internal/domain"
)

const (
	selectCurrentSQL = `SELECT value, observed_at FROM price_cache WHERE key = $1 AND expires_at > $2`
	upsertCurrentSQL = `INSERT INTO price_cache (key, value, observed_at, expires_at) VALUES ($1, $2, $3, $4) ` +
		`ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, observed_at = EXCLUDED.observed_at, expires_at = EXCLUDED.expires_at`
)

// PostgresPriceCache stores the current price in a single keyed row.
// Rows past expires_at are treated as absent; the upsert is a single statement so readers
// always see a whole record.
type PostgresPriceCache struct {
	db         *sql.DB
	purgeAfter time.Duration
	now        func() time.Time
}

// NewPostgresPriceCache creates a price cache backed by the price_cache table
func NewPostgresPriceCache(db *sql.DB, purgeAfter time.Duration) *PostgresPriceCache {
	if purgeAfter <= 0 {
		purgeAfter = DefaultPurgeAfter
	}
	return &PostgresPriceCache{
		db:         db,
		purgeAfter: purgeAfter,
		now:        time.Now,
	}
}

// ReadCurrent returns the current price record
func (c *PostgresPriceCache) ReadCurrent(ctx context.Context) (*domain.PriceRecord, error) {
	var record domain.PriceRecord
	err := c.db.QueryRowContext(ctx, selectCurrentSQL, domain.CurrentPriceKey, c.now()).
		Scan(&record.Value, &record.ObservedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheRead, err)
	}
	return &record, nil
}

// WriteCurrent upserts the current price record
func (c *PostgresPriceCache) WriteCurrent(ctx context.Context, price int, observedAt time.Time) error {
	_, err := c.db.ExecContext(ctx, upsertCurrentSQL,
		domain.CurrentPriceKey, price, observedAt, c.now().Add(c.purgeAfter))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCacheWrite, err)
	}
	return nil
}
