package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/campusctl/edt-api/internal/service"
	appErrors "github.com/campusctl/edt-api/pkg/errors"
	"github.com/campusctl/edt-api/pkg/response"
)

// RateLimitConfig tunes the per-client request limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	ClientTTL         time.Duration
}

// RateLimit throttles requests per client IP with a token bucket.
// Limiter state lives in an expiring registry so idle clients get
// dropped instead of accumulating.
func RateLimit(cfg RateLimitConfig, metrics *service.MetricsService) gin.HandlerFunc {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	if cfg.ClientTTL <= 0 {
		cfg.ClientTTL = 10 * time.Minute
	}
	clients := gocache.New(cfg.ClientTTL, 2*cfg.ClientTTL)

	return func(c *gin.Context) {
		key := c.ClientIP()
		var limiter *rate.Limiter
		if cached, ok := clients.Get(key); ok {
			limiter = cached.(*rate.Limiter)
		} else {
			limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
		}
		clients.SetDefault(key, limiter)

		if !limiter.Allow() {
			if metrics != nil {
				metrics.RecordRateLimited()
			}
			response.Error(c, appErrors.ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}
