package requestlog

import (
	"context"
	"sync"
	"time"
)

// entry is a single logged request
type entry struct {
	IP string
	At time.Time
}

// MemoryRepository keeps request timestamps in process, bounded by a retention horizon
type MemoryRepository struct {
	entries   []entry
	mutex     sync.Mutex
	retention time.Duration
}

// NewMemoryRepository creates an in-memory request log.
// Entries older than retention are dropped on write; zero keeps two days.
func NewMemoryRepository(retention time.Duration) *MemoryRepository {
	if retention <= 0 {
		retention = 48 * time.Hour
	}
	return &MemoryRepository{retention: retention}
}

// Record stores a request
func (r *MemoryRepository) Record(ctx context.Context, ip string, at time.Time) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	cutoff := at.Add(-r.retention)
	kept := r.entries[:0]
	for _, e := range r.entries {
		if !e.At.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	r.entries = append(kept, entry{IP: ip, At: at})
	return nil
}

// CountSince returns how many requests were recorded at or after since
func (r *MemoryRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	count := 0
	for _, e := range r.entries {
		if !e.At.Before(since) {
			count++
		}
	}
	return count, nil
}
