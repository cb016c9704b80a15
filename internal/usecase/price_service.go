package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/fastlane/backend/internal/domain"
	"golang.org/x/sync/singleflight"
)

// DefaultValidityWindow is how long a cached price is served before re-fetching
const DefaultValidityWindow = 300 * time.Second

// PriceServiceConfig holds configuration for the price service
type PriceServiceConfig struct {
	ValidityWindow time.Duration
	// SingleFlight collapses concurrent fetches after expiry into one source request
	SingleFlight bool
	// Now is the clock; defaults to time.Now
	Now func() time.Time
}

// PriceService serves the current toll price, fetching it from the source site
// only when the cached record is missing or stale.
type PriceService struct {
	cache          domain.PriceCache
	fetcher        domain.PageFetcher
	validityWindow time.Duration
	singleFlight   bool
	now            func() time.Time
	group          singleflight.Group
}

// NewPriceService creates a new price service with dependencies
func NewPriceService(
	cache domain.PriceCache,
	fetcher domain.PageFetcher,
	config PriceServiceConfig,
) *PriceService {
	window := config.ValidityWindow
	if window <= 0 {
		window = DefaultValidityWindow
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &PriceService{
		cache:          cache,
		fetcher:        fetcher,
		validityWindow: window,
		singleFlight:   config.SingleFlight,
		now:            now,
	}
}

// ValidityWindow returns the configured cache validity window
func (s *PriceService) ValidityWindow() time.Duration {
	return s.validityWindow
}

// CurrentPrice runs one cycle: cache lookup, then fetch, extract, validate and write back.
// It always returns a result; failures are reported as an Unavailable outcome.
func (s *PriceService) CurrentPrice(ctx context.Context) (result domain.FetchResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[PRICE] Recovered from panic: %v", r)
			result = domain.Unavailable(fmt.Errorf("price cycle panicked: %v", r))
		}
	}()

	if record, ok := s.freshRecord(ctx); ok {
		return domain.Hit(*record)
	}

	if !s.singleFlight {
		return s.fetchFresh(ctx)
	}

	// The shared fetch outlives the caller that started it; the client timeout still bounds it.
	shared := context.WithoutCancel(ctx)
	v, _, joined := s.group.Do(domain.CurrentPriceKey, func() (interface{}, error) {
		return s.fetchFresh(shared), nil
	})
	if joined {
		log.Printf("[PRICE] Shared in-flight fetch result")
	}
	return v.(domain.FetchResult)
}

// freshRecord returns the cached record if it is inside the validity window.
// Read failures degrade to a miss.
func (s *PriceService) freshRecord(ctx context.Context) (*domain.PriceRecord, bool) {
	record, err := s.cache.ReadCurrent(ctx)
	switch {
	case errors.Is(err, domain.ErrCacheMiss):
		log.Printf("[PRICE] Cache miss")
		return nil, false
	case err != nil:
		log.Printf("[PRICE] Cache read error: %v", err)
		return nil, false
	case record == nil:
		return nil, false
	case !domain.IsValidPrice(record.Value):
		log.Printf("[PRICE] Ignoring cached price %d outside plausible range", record.Value)
		return nil, false
	}

	age := record.Age(s.now())
	if !record.FreshAt(s.now(), s.validityWindow) {
		log.Printf("[PRICE] Cache expired - %.0fs old", age.Seconds())
		return nil, false
	}

	log.Printf("[PRICE] Cache hit - price %d is %.0fs old", record.Value, age.Seconds())
	return record, true
}

// fetchFresh performs the single source fetch of a cycle and writes the price through.
func (s *PriceService) fetchFresh(ctx context.Context) domain.FetchResult {
	log.Printf("[PRICE] Fetching fresh price")

	text, err := s.fetcher.FetchPageText(ctx)
	if err != nil {
		log.Printf("[PRICE] Fetch error: %v", err)
		if !errors.Is(err, domain.ErrFetchFailure) {
			err = fmt.Errorf("%w: %v", domain.ErrFetchFailure, err)
		}
		return domain.Unavailable(err)
	}

	price, ok := ExtractPrice(text)
	if !ok || !domain.IsValidPrice(price) {
		log.Printf("[PRICE] Could not extract price from page")
		return domain.Unavailable(domain.ErrExtractionFailure)
	}

	observedAt := s.now()
	if err := s.cache.WriteCurrent(ctx, price, observedAt); err != nil {
		// The fetched price is still served when caching fails
		log.Printf("[PRICE] Cache write error: %v", err)
	}

	log.Printf("[PRICE] Fresh price fetched: %d NIS", price)
	return domain.Fresh(price, observedAt)
}
