package guard

import (
	"errors"
	"time"

	settlementdomain "github.com/smallbiznis/partnerdesk/internal/settlement/domain"
)

var (
	ErrPeriodNotEnded     = errors.New("period_not_ended")
	ErrBeforeCloseDay     = errors.New("before_close_day")
	ErrInvalidClosePeriod = errors.New("invalid_close_period")
)

// EnsurePeriodClosable rejects periods whose half-open window has not ended at now.
func EnsurePeriodClosable(period settlementdomain.Period, now time.Time) error {
	if period.IsZero() {
		return ErrInvalidClosePeriod
	}
	if now.UTC().Before(period.End()) {
		return ErrPeriodNotEnded
	}
	return nil
}

func EnsureCloseDayReached(now time.Time, closeDay int) error {
	if now.UTC().Day() < closeDay {
		return ErrBeforeCloseDay
	}
	return nil
}
