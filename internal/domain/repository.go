package domain

import (
	"context"
	"time"
)

// PriceCache holds the single current price record.
// ReadCurrent returns ErrCacheMiss when nothing has been stored.
// WriteCurrent replaces the record atomically: a concurrent read sees the old or the new record.
type PriceCache interface {
	ReadCurrent(ctx context.Context) (*PriceRecord, error)
	WriteCurrent(ctx context.Context, price int, observedAt time.Time) error
}

// PageFetcher retrieves the visible text of the toll price page.
// Implementations must bound the call with a timeout.
type PageFetcher interface {
	FetchPageText(ctx context.Context) (string, error)
}

// RequestLogRepository records incoming price requests for statistics
type RequestLogRepository interface {
	Record(ctx context.Context, ip string, at time.Time) error
	CountSince(ctx context.Context, since time.Time) (int, error)
}
