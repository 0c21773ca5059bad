package requestid

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	header     = "X-Request-ID"
	contextKey = "request_id"

	maxInboundLength = 64
)

// Middleware tags every request with an id, honoring a sane inbound
// X-Request-ID and minting a fresh one otherwise. The id is echoed on
// the response so clients can correlate logs.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := inboundID(c)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(contextKey, id)
		c.Writer.Header().Set(header, id)

		c.Next()
	}
}

func inboundID(c *gin.Context) string {
	id := strings.TrimSpace(c.GetHeader(header))
	if len(id) > maxInboundLength {
		return ""
	}
	return id
}

// Value returns the id assigned to the request, or "" outside the
// middleware.
func Value(c *gin.Context) string {
	id, _ := c.Value(contextKey).(string)
	return id
}
