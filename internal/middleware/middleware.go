package middleware

import (
	"errors"
	"net/http"
	"strings"

	"tablebook/internal/api"
	"tablebook/internal/cache"
	"tablebook/internal/database"
	"tablebook/internal/service"

	"github.com/labstack/echo/v4"
)

const ContextUserKey = "user"

var validateToken = service.ValidateToken

// extractToken 從 Authorization 標頭取出 bearer 令牌明文。
func extractToken(c echo.Context) (string, bool) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// RequireAuth 驗證 bearer 令牌並將呼叫者身分放入 context。
// 缺少或無效的令牌一律回 401，不會進入後續 handler。
func RequireAuth(db database.DB, cch cache.Cache) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := extractToken(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, api.ErrorResponse{
					Error:   api.ErrKindUnauthenticated,
					Message: "missing or malformed bearer token",
				})
			}
			ident, err := validateToken(c.Request().Context(), db, cch, token)
			if err != nil {
				if errors.Is(err, service.ErrInvalidToken) {
					return c.JSON(http.StatusUnauthorized, api.ErrorResponse{
						Error:   api.ErrKindUnauthenticated,
						Message: "invalid or revoked token",
					})
				}
				return c.JSON(http.StatusInternalServerError, api.ErrorResponse{
					Error:   api.ErrKindInternal,
					Message: "token validation failed",
				})
			}
			c.Set(ContextUserKey, ident)
			return next(c)
		}
	}
}

// RequireAdmin 在 RequireAuth 之上再要求管理員權限。
func RequireAdmin(db database.DB, cch cache.Cache) echo.MiddlewareFunc {
	auth := RequireAuth(db, cch)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return auth(func(c echo.Context) error {
			ident := c.Get(ContextUserKey).(*service.Identity)
			if !ident.IsAdmin {
				return c.JSON(http.StatusForbidden, api.ErrorResponse{
					Error:   api.ErrKindForbidden,
					Message: "admin privileges required",
				})
			}
			return next(c)
		})
	}
}
