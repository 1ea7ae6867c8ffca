package ratelimit

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallbiznis/partnerdesk/internal/config"
)

const keySettlementPartner = "partnerdesk:settlement:partner:%d"

// SettlementLimiter throttles persisted settlements per partner.
type SettlementLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewSettlementLimiter(cfg config.Config, bucket *TokenBucket) (*SettlementLimiter, error) {
	if !cfg.RateLimit.Enabled {
		return nil, nil
	}
	if bucket == nil {
		return nil, errors.New("settlement rate limit requires REDIS_ADDR")
	}
	if cfg.RateLimit.SettlementRate <= 0 || cfg.RateLimit.SettlementBurst <= 0 {
		return nil, errors.New("settlement rate limit must be positive")
	}
	return &SettlementLimiter{
		bucket: bucket,
		rate:   cfg.RateLimit.SettlementRate,
		burst:  cfg.RateLimit.SettlementBurst,
	}, nil
}

func (l *SettlementLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// AllowPartner always allows when the limiter is disabled.
func (l *SettlementLimiter) AllowPartner(ctx context.Context, partnerID int64) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keySettlementPartner, partnerID), l.rate, l.burst)
}
