package middleware

import (
	"context"                         // Redis call timeout
	"net/http"                        // HTTP status codes
	"storefront_api/internal/config"  // Bucket limits
	"storefront_api/internal/metrics" // Rejection counter
	"strconv"                         // Header values
	"time"                            // Window arithmetic

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// Rate limit bucket names
const (
	BucketGlobal = "global"
	BucketAuth   = "auth"
	BucketUpload = "upload"
	BucketSearch = "search"
	BucketOrder  = "order"
)

// RateLimitMiddleware counts requests per client IP in fixed windows stored
// in Redis. Redis failures let the request through.
func RateLimitMiddleware(rdb *redis.Client, bucket string, limit config.RateLimit) gin.HandlerFunc {
	return rateLimit(rdb, bucket, limit, time.Now)
}

func rateLimit(rdb *redis.Client, bucket string, limit config.RateLimit, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		t := now()
		windowStart := t.Truncate(limit.Window) // Fixed window the request falls in
		key := "ratelimit:" + bucket + ":" + c.ClientIP() + ":" + strconv.FormatInt(windowStart.Unix(), 10)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 200*time.Millisecond) // A slow Redis must not stall requests
		defer cancel()
		pipe := rdb.TxPipeline()            // Count and expiry in one round trip
		incr := pipe.Incr(ctx, key)         // Count this request
		pipe.Expire(ctx, key, limit.Window) // Old windows clean themselves up
		if _, err := pipe.Exec(ctx); err != nil {
			// Fail open
			LoggerFrom(c).WithFields(logrus.Fields{"bucket": bucket, "error": err.Error()}).Warn("Rate limiter unavailable")
			c.Next()
			return
		}

		count := int(incr.Val()) // Requests seen in this window
		remaining := limit.Limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if count > limit.Limit {
			retryAfter := int(windowStart.Add(limit.Window).Sub(t).Seconds()) + 1 // Seconds until the window rolls over
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			metrics.RateLimitRejections.WithLabelValues(bucket).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, please try again later"})
			return
		}
		c.Next()
	}
}
