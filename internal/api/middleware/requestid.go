package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/modforge/scriptbox/internal/shared/id"
)

// RequestIDKey is the gin context key the request ID is stored under.
const RequestIDKey = "request_id"

// RequestIDHeader is the response header carrying the request ID.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns a ULID to every request and echoes it in the response,
// so one API call can be traced through logs and execution results.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(RequestIDHeader)
		if !id.IsValid(reqID, id.RequestPrefix) {
			reqID = id.NewRequestID().String()
		}
		c.Set(RequestIDKey, reqID)
		c.Header(RequestIDHeader, reqID)
		c.Next()
	}
}
