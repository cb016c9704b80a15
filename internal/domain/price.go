package domain

import "time"

// Plausibility bound for a toll price, in shekels.
const (
	MinPrice = 1
	MaxPrice = 100
)

// Currency is the ISO code every price is reported in
const Currency = "ILS"

// CurrentPriceKey identifies the single cache slot holding the current price
const CurrentPriceKey = "current_price"

// PriceRecord is the cached observation of the toll price
type PriceRecord struct {
	Value      int       `json:"value"`
	ObservedAt time.Time `json:"observedAt"`
}

// Age returns how old the record is at the given instant
func (r PriceRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.ObservedAt)
}

// FreshAt reports whether the record is still inside the validity window at now
func (r PriceRecord) FreshAt(now time.Time, window time.Duration) bool {
	return r.Age(now) < window
}

// Outcome is the kind of result produced by one price cycle
type Outcome int

const (
	// OutcomeUnavailable means no price could be served
	OutcomeUnavailable Outcome = iota
	// OutcomeHit means the price came from a fresh cache record
	OutcomeHit
	// OutcomeFresh means the price was just fetched from the source site
	OutcomeFresh
)

// String returns the outcome name
func (o Outcome) String() string {
	switch o {
	case OutcomeHit:
		return "hit"
	case OutcomeFresh:
		return "fresh"
	default:
		return "unavailable"
	}
}

// FetchResult is the outcome of a single price cycle.
// Price and ObservedAt are only meaningful when Outcome is Hit or Fresh.
// Err holds the failure cause of an Unavailable result and is meant for logs only.
type FetchResult struct {
	Outcome    Outcome
	Price      int
	ObservedAt time.Time
	Err        error
}

// Hit builds a cache-hit result
func Hit(record PriceRecord) FetchResult {
	return FetchResult{Outcome: OutcomeHit, Price: record.Value, ObservedAt: record.ObservedAt}
}

// Fresh builds a result for a newly fetched price
func Fresh(price int, observedAt time.Time) FetchResult {
	return FetchResult{Outcome: OutcomeFresh, Price: price, ObservedAt: observedAt}
}

// Unavailable builds a failed result carrying its cause
func Unavailable(err error) FetchResult {
	return FetchResult{Outcome: OutcomeUnavailable, Err: err}
}

// Available reports whether the result carries a price
func (r FetchResult) Available() bool {
	return r.Outcome == OutcomeHit || r.Outcome == OutcomeFresh
}

// Cached reports whether the price was served from the cache
func (r FetchResult) Cached() bool {
	return r.Outcome == OutcomeHit
}

// IsValidPrice reports whether v is an integer-typed value inside the plausibility bound.
// Values of any other type are rejected even when they hold a number in range.
func IsValidPrice(v any) bool {
	var n int64
	switch p := v.(type) {
	case int:
		n = int64(p)
	case int8:
		n = int64(p)
	case int16:
		n = int64(p)
	case int32:
		n = int64(p)
	case int64:
		n = p
	default:
		return false
	}
	return n >= MinPrice && n <= MaxPrice
}

// CacheInfo describes the current cache slot for the statistics endpoint
type CacheInfo struct {
	Price      int  `json:"price"`
	AgeSeconds int  `json:"age_seconds"`
	Valid      bool `json:"valid"`
}

// Stats is a snapshot of service usage
type Stats struct {
	RequestsToday int        `json:"requests_today"`
	Cache         *CacheInfo `json:"cache"`
}
