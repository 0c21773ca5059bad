package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// Context keys carrying per-request response metadata.
const (
	metaStartedAtKey = "meta_started_at"
	metaCacheHitKey  = "meta_cache_hit"
)

// WithResponseMeta stamps the request with its arrival time so that
// handlers can report processing duration in their envelopes.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(metaStartedAtKey, time.Now())
		c.Next()
	}
}

// SetCacheHit records whether the handler answered from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	c.Set(metaCacheHitKey, hit)
}

// ExtractMeta assembles the metadata gathered while handling the
// request. Processing time is measured up to the moment of the call,
// so handlers extract right before writing the response.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	meta := make(map[string]interface{})
	if v, ok := c.Get(metaStartedAtKey); ok {
		if startedAt, ok := v.(time.Time); ok {
			meta["processing_time_ms"] = time.Since(startedAt).Milliseconds()
		}
	}
	if v, ok := c.Get(metaCacheHitKey); ok {
		if hit, ok := v.(bool); ok {
			meta["cache_hit"] = hit
		}
	}
	return meta
}
