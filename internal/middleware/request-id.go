package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const headerRequestID = "X-Request-ID"

const contextKeyRequestID = "request_id"

// RequestID tags every request with an identifier, minting one when the
// client did not send its own, and echoes it back in the response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(contextKeyRequestID, requestID)
		c.Header(headerRequestID, requestID)

		c.Next()
	}
}

// RequestIDFrom returns the identifier RequestID stored for this request.
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(contextKeyRequestID)
}
