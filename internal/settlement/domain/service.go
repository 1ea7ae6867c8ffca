package domain

import "context"

type Service interface {
	SettlePeriod(ctx context.Context, req SettleRequest) (*Result, error)
	// CloseMonth settles every partner for period and keeps going past
	// individual failures.
	CloseMonth(ctx context.Context, period string) (*CloseMonthResult, error)
}
