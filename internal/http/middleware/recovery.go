package middleware

import (
	"io"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Recovery turns a panic into a 500 and logs it with the route and
// agreement it happened on.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		event := log.Error().
			Interface("panic", recovered).
			Str("operation", c.Request.Method+" "+c.FullPath()).
			Str("stack", string(debug.Stack()))
		if id := c.Param("id"); id != "" {
			event = event.Str("agreement", id)
		}
		if principal, ok := MustPrincipal(c); ok {
			event = event.Str("user_id", principal.UserID.String())
		}
		event.Msg("request panicked")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	})
}
