package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "fatture/internal/core/context"
)

const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorName = "X-Actor-Name"
)

// Actor middleware extracts the acting user from request headers and puts it
// into the context for audit fields and log enrichment. The engine trusts the
// gateway in front of it to have authenticated the caller.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := c.GetHeader(HeaderActorID)
		if actorID == "" {
			c.Next()
			return
		}

		actor := &appctx.ActorContext{
			ActorID: actorID,
			Name:    c.GetHeader(HeaderActorName),
		}

		ctx := appctx.WithActor(c.Request.Context(), actor)
		c.Request = c.Request.WithContext(ctx)
		c.Set("actor_id", actorID)

		c.Next()
	}
}
