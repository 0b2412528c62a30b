package middlewares

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/geocoder89/tasklist/internal/ratelimit"
	"github.com/gin-gonic/gin"
)

type RateLimiter struct {
	limiter   ratelimit.Limiter
	log       *slog.Logger
	onLimited func(route string)
}

func NewRateLimiter(limiter ratelimit.Limiter, log *slog.Logger, onLimited func(route string)) *RateLimiter {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimiter{limiter: limiter, log: log, onLimited: onLimited}
}

// Middleware enforces the limit for a derived key. A limiter backend error
// lets the request through, an outage must not lock everybody out of login.
func (rl *RateLimiter) Middleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)

		if key == "" {
			// fallback to IP if key cannot be derived
			key = clientIP(c)
		}

		res, err := rl.limiter.Allow(c.Request.Context(), key)

		if err != nil {
			rl.log.WarnContext(c.Request.Context(), "rate limiter unavailable", "err", err)
			c.Next()
			return
		}

		if !res.Allowed {
			retryAfter := int(math.Ceil(res.RetryAfter.Seconds()))

			if retryAfter < 1 {
				retryAfter = 1
			}

			if rl.onLimited != nil {
				rl.onLimited(c.FullPath())
			}

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			abortWithError(c, http.StatusTooManyRequests, "rate_limited", "Too many requests. Please try again shortly.")
			return
		}

		c.Next()
	}
}

// for unauthenticated endpoints: rate limit by IP
func KeyByIP(c *gin.Context) string {
	return "ip:" + clientIP(c)
}

func clientIP(c *gin.Context) string {
	// gin's ClientIP respects X-Forwarded-For / X-Real-IP only for trusted proxies
	ip := c.ClientIP()

	host, _, err := net.SplitHostPort(ip)

	if err == nil && host != "" {
		return host
	}

	return ip
}
