package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/fastlane/backend/internal/domain"
)

// StatsService reports request counts and cache state
type StatsService struct {
	requests       domain.RequestLogRepository
	cache          domain.PriceCache
	validityWindow time.Duration
	now            func() time.Time
}

// NewStatsService creates a new stats service.
// A zero validity window falls back to DefaultValidityWindow and a nil clock to time.Now.
func NewStatsService(
	requests domain.RequestLogRepository,
	cache domain.PriceCache,
	validityWindow time.Duration,
	now func() time.Time,
) *StatsService {
	if validityWindow <= 0 {
		validityWindow = DefaultValidityWindow
	}
	if now == nil {
		now = time.Now
	}
	return &StatsService{
		requests:       requests,
		cache:          cache,
		validityWindow: validityWindow,
		now:            now,
	}
}

// RecordRequest logs a price request. Failures are logged and swallowed.
func (s *StatsService) RecordRequest(ctx context.Context, ip string) {
	if err := s.requests.Record(ctx, ip, s.now()); err != nil {
		log.Printf("[STATS] Failed to record request from %s: %v", ip, err)
	}
}

// Snapshot returns today's request count and the state of the cache slot
func (s *StatsService) Snapshot(ctx context.Context) (*domain.Stats, error) {
	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	count, err := s.requests.CountSince(ctx, startOfDay)
	if err != nil {
		return nil, fmt.Errorf("count requests: %w", err)
	}

	stats := &domain.Stats{RequestsToday: count}

	record, err := s.cache.ReadCurrent(ctx)
	switch {
	case errors.Is(err, domain.ErrCacheMiss):
	case err != nil:
		return nil, fmt.Errorf("read cache: %w", err)
	case record != nil:
		age := record.Age(now)
		stats.Cache = &domain.CacheInfo{
			Price:      record.Value,
			AgeSeconds: int(age.Seconds()),
			Valid:      record.FreshAt(now, s.validityWindow),
		}
	}

	return stats, nil
}
