package guard

import (
	"testing"
	"time"

	settlementdomain "github.com/smallbiznis/partnerdesk/internal/settlement/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsurePeriodClosable(t *testing.T) {
	june, err := settlementdomain.ParsePeriod("2025-06")
	require.NoError(t, err)

	assert.ErrorIs(t, EnsurePeriodClosable(june, time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC)), ErrPeriodNotEnded)
	assert.NoError(t, EnsurePeriodClosable(june, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)))
	assert.ErrorIs(t, EnsurePeriodClosable(settlementdomain.Period{}, time.Now()), ErrInvalidClosePeriod)
}

func TestEnsureCloseDayReached(t *testing.T) {
	assert.ErrorIs(t, EnsureCloseDayReached(time.Date(2025, 7, 2, 10, 0, 0, 0, time.UTC), 3), ErrBeforeCloseDay)
	assert.NoError(t, EnsureCloseDayReached(time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC), 3))
}
