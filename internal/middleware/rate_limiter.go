package middleware

import (
	"fmt"
	"net/http"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"InternHub-backend/internal/utilities"
)

func keyFunc(c *gin.Context) string {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		return "ip: " + c.ClientIP()
	}
	return "user: " + user.ID.String()
}

func errorHandler(c *gin.Context, info ratelimit.Info) {
	c.Header("Retry-After", fmt.Sprintf("%.0f", time.Until(info.ResetTime).Seconds()))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, utilities.ErrorResponse{
		Error: "Too many requests. Please try again later.",
	})
}

// NewRateLimitStore returns a Redis backed store when redisURL is set so that
// every replica shares the same budget, and an in-memory store otherwise.
func NewRateLimitStore(redisURL string, reqPerSec uint) (ratelimit.Store, error) {
	if reqPerSec == 0 {
		reqPerSec = 5
	}
	if redisURL == "" {
		return ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
			Rate:  time.Second,
			Limit: reqPerSec,
		}), nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return ratelimit.RedisStore(&ratelimit.RedisOptions{
		RedisClient: redis.NewClient(opts),
		Rate:        time.Second,
		Limit:       reqPerSec,
	}), nil
}

// RateLimiterMiddleware limits requests per user, or per client IP before authentication.
func RateLimiterMiddleware(store ratelimit.Store) gin.HandlerFunc {
	return ratelimit.RateLimiter(store, &ratelimit.Options{
		KeyFunc:      keyFunc,
		ErrorHandler: errorHandler,
	})
}
