package domain

import "errors"

var (
	// ErrCacheMiss is returned when the cache holds no record
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheRead is returned when the cache could not be read
	ErrCacheRead = errors.New("cache read failed")

	// ErrCacheWrite is returned when the cache could not be written
	ErrCacheWrite = errors.New("cache write failed")

	// ErrFetchFailure is returned when the source page could not be retrieved
	ErrFetchFailure = errors.New("price page fetch failed")

	// ErrExtractionFailure is returned when no plausible price was found in the page
	ErrExtractionFailure = errors.New("no plausible price found")

	// ErrStoreUnavailable is returned when the backing store cannot be reached
	ErrStoreUnavailable = errors.New("store unavailable")
)
