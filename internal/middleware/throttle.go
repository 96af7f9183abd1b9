package middleware

import (
	"fmt"
	"net/http"
	"time"

	"tablebook/internal/api"
	"tablebook/internal/cache"

	"github.com/labstack/echo/v4"
)

// LoginThrottle 以固定時間窗限制同一來源對同一路徑的嘗試次數，
// 超過上限回 429，計數器異常時放行。
func LoginThrottle(cch cache.Cache, limit int64, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := fmt.Sprintf("throttle:%s:%s", c.Path(), c.RealIP())
			count, err := cch.Incr(c.Request().Context(), key).Result()
			if err != nil {
				return next(c)
			}
			if count == 1 {
				cch.Expire(c.Request().Context(), key, window)
			}
			if count > limit {
				return c.JSON(http.StatusTooManyRequests, api.ErrorResponse{
					Error:   api.ErrKindRateLimited,
					Message: "too many attempts, retry later",
				})
			}
			return next(c)
		}
	}
}
