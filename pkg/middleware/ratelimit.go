package middleware

import (
	"net/http"

	"github.com/code-100-precent/maitri/pkg/response"
	"github.com/gin-gonic/gin"
	limiter "github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RateLimiterMiddleware 按客户端 IP 限流，rate 形如 "60-M"。超限时返回 429
func RateLimiterMiddleware(rate string) (gin.HandlerFunc, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}
	instance := limiter.New(memory.NewStore(), r)
	return mgin.NewMiddleware(instance,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			response.Fail(c, http.StatusTooManyRequests, "Rate limit exceeded",
				"Too many requests. Please wait a moment and try again.")
		}),
	), nil
}
