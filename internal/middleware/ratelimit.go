package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	limiter "github.com/ulule/limiter/v3"
	memory "github.com/ulule/limiter/v3/drivers/store/memory"
)

// RateLimit caps requests per client IP. The period string uses the limiter
// "<count>-<unit>" format, e.g. "100-S" for 100 requests per second. An
// unparsable period disables the limit.
func RateLimit(period string) gin.HandlerFunc {
	rate, err := limiter.NewRateFromFormatted(period)
	if err != nil {
		log.WithError(err).WithField("rate", period).Warn("rate limit disabled")
		return func(c *gin.Context) { c.Next() }
	}
	instance := limiter.New(memory.NewStore(), rate)

	return func(c *gin.Context) {
		lctx, err := instance.Get(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.WithError(err).Error("rate limiter check failed")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
