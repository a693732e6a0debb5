package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/metahkg/metahkg-redirect/internal/metrics"
	"github.com/metahkg/metahkg-redirect/internal/model"
)

const requestIDHeader = "X-Request-Id"

// RequestID assigns each request a UUID unless the client already sent one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// RequestLogger logs one line per request after it completes.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			"id", c.GetString("request_id"),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"client", c.ClientIP(),
			"duration", time.Since(start),
		)
	}
}

// RateLimit rejects a client once its request count in the current window
// reaches max. A nil limiter or non-positive max disables limiting.
func RateLimit(limiter Admitter, max int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || max <= 0 {
			c.Next()
			return
		}
		count := limiter.Admit(c.Request.Context(), c.ClientIP())
		if count >= max {
			metrics.RateLimited.Inc()
			c.AbortWithStatusJSON(model.ErrRateLimited.Code, model.ErrRateLimited)
			return
		}
		c.Next()
	}
}
