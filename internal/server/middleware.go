package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	auditcontext "github.com/smallbiznis/partnerdesk/internal/auditcontext"
	obscontext "github.com/smallbiznis/partnerdesk/internal/observability/context"
)

const (
	HeaderActorType = "X-Actor-Type"
	HeaderActorID   = "X-Actor-Id"

	maxActorFieldLen = 64
)

// AuditContext copies caller attribution into the request context for audit
// rows and logs. The actor headers are trusted as-is and never authorize anything.
func AuditContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		ctx = auditcontext.WithIPAddress(ctx, c.ClientIP())
		ctx = auditcontext.WithUserAgent(ctx, c.Request.UserAgent())

		actorType := actorHeader(c, HeaderActorType)
		actorID := actorHeader(c, HeaderActorID)
		if actorType != "" || actorID != "" {
			if actorType == "" {
				actorType = "operator"
			}
			ctx = auditcontext.WithActor(ctx, strings.ToLower(actorType), actorID)
			ctx = obscontext.WithActor(ctx, strings.ToLower(actorType), actorID)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func actorHeader(c *gin.Context, name string) string {
	value := strings.TrimSpace(c.GetHeader(name))
	if len(value) > maxActorFieldLen {
		value = value[:maxActorFieldLen]
	}
	return value
}
