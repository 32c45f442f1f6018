package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"

	"github.com/astrobyab/consult-backend/internal/logger"
)

// RateLimitMiddleware ограничивает число запросов с одного IP в группе маршрутов.
// Счётчик хранится в store (память процесса или общий Redis).
func RateLimitMiddleware(store limiter.Store, scope string, limit int64, period time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		limit = 10
	}
	if period <= 0 {
		period = 1 * time.Minute
	}

	rate := limiter.Rate{
		Period: period,
		Limit:  limit,
	}
	instance := limiter.New(store, rate)

	return func(c *gin.Context) {
		key := scope + ":" + c.ClientIP()
		context, err := instance.Get(c.Request.Context(), key)
		if err != nil {
			// Недоступный счётчик не должен блокировать вход и оплату.
			logger.Entry(logrus.Fields{"scope": scope, "error": err.Error()}).Error("Rate limit store failed")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", context.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", context.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", context.Reset))

		if context.Reached {
			retryAfter := int(math.Max(1, math.Ceil(time.Until(time.Unix(context.Reset, 0)).Seconds())))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests. Please try again later.",
				"code":        "RATE_LIMITED",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}
