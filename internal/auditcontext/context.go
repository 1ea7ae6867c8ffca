// Package auditcontext holds the attribution data written with audit log entries.
package auditcontext

import "context"

type key int

const (
	requestIDKey key = iota
	ipAddressKey
	userAgentKey
	actorTypeKey
	actorIDKey
	partnerIDKey
	periodKey
)

func withString(ctx context.Context, k key, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, k, value)
}

func stringFrom(ctx context.Context, k key) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(k).(string); ok {
		return v
	}
	return ""
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withString(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, requestIDKey)
}

func WithIPAddress(ctx context.Context, ip string) context.Context {
	return withString(ctx, ipAddressKey, ip)
}

func IPAddressFromContext(ctx context.Context) string {
	return stringFrom(ctx, ipAddressKey)
}

func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return withString(ctx, userAgentKey, userAgent)
}

func UserAgentFromContext(ctx context.Context) string {
	return stringFrom(ctx, userAgentKey)
}

func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	ctx = withString(ctx, actorTypeKey, actorType)
	return withString(ctx, actorIDKey, actorID)
}

func ActorFromContext(ctx context.Context) (string, string) {
	return stringFrom(ctx, actorTypeKey), stringFrom(ctx, actorIDKey)
}

// WithSettlement tags the context with the partner and period being settled.
func WithSettlement(ctx context.Context, partnerID, period string) context.Context {
	ctx = withString(ctx, partnerIDKey, partnerID)
	return withString(ctx, periodKey, period)
}

func PartnerIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, partnerIDKey)
}

func PeriodFromContext(ctx context.Context) string {
	return stringFrom(ctx, periodKey)
}
