package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsValidPrice(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  bool
	}{
		{"typical price", 8, true},
		{"lower bound", 1, true},
		{"upper bound", 100, true},
		{"zero", 0, false},
		{"above upper bound", 101, false},
		{"negative", -8, false},
		{"nil", nil, false},
		{"numeral as text", "8", false},
		{"float in range", 8.0, false},
		{"int64 in range", int64(42), true},
		{"int32 out of range", int32(500), false},
		{"unsigned in range", uint(8), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidPrice(tt.input))
		})
	}
}

func TestPriceRecord_FreshAt(t *testing.T) {
	observed := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	record := PriceRecord{Value: 8, ObservedAt: observed}
	window := 300 * time.Second

	assert.True(t, record.FreshAt(observed, window))
	assert.True(t, record.FreshAt(observed.Add(299*time.Second), window))
	assert.False(t, record.FreshAt(observed.Add(300*time.Second), window))
	assert.False(t, record.FreshAt(observed.Add(301*time.Second), window))
	assert.Equal(t, 90*time.Second, record.Age(observed.Add(90*time.Second)))
}

func TestFetchResult(t *testing.T) {
	observed := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	hit := Hit(PriceRecord{Value: 8, ObservedAt: observed})
	assert.Equal(t, OutcomeHit, hit.Outcome)
	assert.True(t, hit.Available())
	assert.True(t, hit.Cached())
	assert.Equal(t, observed, hit.ObservedAt)

	fresh := Fresh(9, observed)
	assert.Equal(t, OutcomeFresh, fresh.Outcome)
	assert.True(t, fresh.Available())
	assert.False(t, fresh.Cached())

	failed := Unavailable(ErrFetchFailure)
	assert.False(t, failed.Available())
	assert.False(t, failed.Cached())
	assert.True(t, errors.Is(failed.Err, ErrFetchFailure))

	assert.Equal(t, "hit", OutcomeHit.String())
	assert.Equal(t, "fresh", OutcomeFresh.String())
	assert.Equal(t, "unavailable", OutcomeUnavailable.String())
}
