package server

import (
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/partnerdesk/internal/observability/logger"
	"go.uber.org/zap"
)

const rateLimitReasonPartnerSettlement = "partner-settlement-rate"

// allowSettlement aborts the request and returns false when the partner has
// exhausted its persisted-settlement budget.
func (s *Server) allowSettlement(c *gin.Context, partnerID int64) bool {
	if s.settlementLimiter == nil || !s.settlementLimiter.Enabled() {
		return true
	}

	ctx := c.Request.Context()
	result, err := s.settlementLimiter.AllowPartner(ctx, partnerID)
	if err != nil {
		logger.FromContext(ctx).Warn("settlement rate limit check failed", zap.Error(err))
		AbortWithError(c, ErrServiceUnavailable)
		return false
	}
	if result.Allowed {
		return true
	}

	logger.FromContext(ctx).Warn("settlement rate limit exceeded",
		zap.String("reason", rateLimitReasonPartnerSettlement),
		zap.Int64("partner_id", partnerID),
		zap.String("endpoint", normalizeRateLimitEndpoint(c)),
	)
	c.Header("Retry-After", retryAfterSeconds(result.RetryAfter))
	c.Header("X-Rate-Limited-Reason", rateLimitReasonPartnerSettlement)
	AbortWithError(c, ErrRateLimited)
	return false
}

func retryAfterSeconds(d time.Duration) string {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	if endpoint := c.FullPath(); endpoint != "" {
		return endpoint
	}
	if c.Request != nil && c.Request.URL.Path != "" {
		return c.Request.URL.Path
	}
	return "unknown"
}
