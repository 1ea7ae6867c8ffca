package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	for _, bad := range []string{"", "2025-13", "2025-00", "2025-6", "25-06", "2025/06", "2025-06-01"} {
		_, err := ParsePeriod(bad)
		assert.ErrorIs(t, err, ErrInvalidPeriod, bad)
	}

	p, err := ParsePeriod(" 2024-02 ")
	require.NoError(t, err)
	assert.Equal(t, "2024-02", p.String())
	assert.Equal(t, "202402", p.Compact())
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), p.Start())
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), p.End())
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), p.LastDay())
}

func TestPeriodBoundsAreHalfOpen(t *testing.T) {
	p, err := ParsePeriod("2025-06")
	require.NoError(t, err)

	assert.True(t, p.Contains(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, p.Contains(time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC)))
	assert.False(t, p.Contains(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, p.Contains(time.Date(2025, 5, 31, 23, 59, 59, 0, time.UTC)))
}

func TestPreviousPeriodUsesUTC(t *testing.T) {
	paris := time.FixedZone("CEST", 2*60*60)
	// 01:30 in Paris on July 1st is still June 30th in UTC.
	now := time.Date(2025, 7, 1, 1, 30, 0, 0, paris)
	assert.Equal(t, "2025-05", PreviousPeriod(now).String())

	assert.Equal(t, "2024-12", PreviousPeriod(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)).String())
	assert.Equal(t, "2025-02", PeriodOf(time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)).Next().String())
}
