// README: Request-id middleware: honour the inbound header or mint a uuid.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const ctxKeyRequestID = "request.id"

const requestIDHeader = "X-Request-ID"

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxKeyRequestID, id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

func RequestID(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyRequestID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
