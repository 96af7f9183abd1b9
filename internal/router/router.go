// File: internal/router/router.go
package router

import (
	"time"

	"github.com/labstack/echo/v4"

	"tablebook/internal/cache"
	"tablebook/internal/database"
	"tablebook/internal/events"
	"tablebook/internal/handler"
	"tablebook/internal/handler/auth"
	"tablebook/internal/handler/reservations"
	"tablebook/internal/handler/users"
	"tablebook/internal/middleware"
	"tablebook/internal/worker"
)

// 登入嘗試的頻率上限，固定視窗計數
const (
	loginRateLimit  = 10
	loginRateWindow = time.Minute
)

// Setup 註冊所有路由與中介層
func Setup(e *echo.Echo, db database.DB, cch cache.Cache, pub events.Publisher, pool worker.Pool) {
	api := e.Group("/api")

	// 健康檢查（需登入）
	api.GET("/ping", handler.PingHandler(db, cch), middleware.RequireAuth(db, cch))

	// 註冊與登入為公開端點，登入另設頻率限制
	api.POST("/auth/register", auth.RegisterHandler(db))
	api.POST("/auth/login", auth.LoginHandler(db, cch), middleware.LoginThrottle(cch, loginRateLimit, loginRateWindow))
	api.POST("/auth/logout", auth.LogoutHandler(db, cch), middleware.RequireAuth(db, cch))

	// 管理員專屬 Users CRUD
	apiUsers := api.Group("/users", middleware.RequireAdmin(db, cch))
	apiUsers.POST("", users.CreateUserHandler(db))
	apiUsers.GET("", users.ListUsersHandler(db))
	apiUsers.GET("/:id", users.GetUserHandler(db))
	apiUsers.PUT("/:id", users.UpdateUserHandler(db, cch))
	apiUsers.DELETE("/:id", users.DeleteUserHandler(db, cch))

	// 取得、更新、刪除當前使用者個人資料
	apiUsersMe := api.Group("/users/me", middleware.RequireAuth(db, cch))
	apiUsersMe.GET("", users.GetMyUserHandler(db))
	apiUsersMe.PUT("", users.UpdateMyUserHandler(db))
	apiUsersMe.DELETE("", users.DeleteMyUserHandler(db, cch))
	apiUsersMe.PATCH("/password", users.UpdateMyUserPasswordHandler(db))

	// 預約 CRUD，全部需登入；PUT 與 PATCH 共用部分更新語意
	apiReservations := api.Group("/reservations", middleware.RequireAuth(db, cch))
	apiReservations.POST("", reservations.CreateReservationHandler(db, pub, pool))
	apiReservations.GET("", reservations.ListReservationsHandler(db))
	apiReservations.GET("/:id", reservations.GetReservationHandler(db))
	apiReservations.PUT("/:id", reservations.UpdateReservationHandler(db, pub, pool))
	apiReservations.PATCH("/:id", reservations.UpdateReservationHandler(db, pub, pool))
	apiReservations.DELETE("/:id", reservations.DeleteReservationHandler(db, pub, pool))
}
