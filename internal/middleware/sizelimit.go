package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DefaultMaxBodySize bounds webhook payloads. Event callbacks are small JSON
// documents; anything near this limit is not a legitimate webhook.
const DefaultMaxBodySize int64 = 1 << 20

// SizeLimit rejects requests whose body exceeds maxBytes. The body reader is
// also capped so a missing Content-Length cannot bypass the limit.
func SizeLimit(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodySize
	}
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "Request body too large",
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
