// File: internal/handler/auth/auth.go
package auth

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"tablebook/internal/api"
	"tablebook/internal/cache"
	"tablebook/internal/database"
	"tablebook/internal/middleware"
	"tablebook/internal/model"
	"tablebook/internal/service"
	"tablebook/internal/store"

	"github.com/labstack/echo/v4"
)

var (
	hashPassword     = service.HashPassword
	authenticateUser = service.AuthenticateUser
	issueToken       = service.IssueToken
	revokeUserTokens = service.RevokeUserTokens
	createUser       = store.CreateUser
	getUserByEmail   = store.GetUserByEmail
)

// @Summary     Register a new account
// @Description 建立新帳號 (Email 會自動轉小寫)，註冊不發放令牌，請再呼叫登入
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body api.RegisterRequest true "註冊資料"
// @Success     201 {object} api.UserResponse
// @Failure     422 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Router      /auth/register [post]
func RegisterHandler(db database.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req api.RegisterRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{Error: api.ErrKindValidation, Message: "invalid request body"})
		}
		if err := c.Validate(&req); err != nil {
			return c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{Error: api.ErrKindValidation, Message: "request validation failed", Fields: api.ValidationFields(err)})
		}

		req.Email = strings.ToLower(req.Email)
		if _, err := mail.ParseAddress(req.Email); err != nil {
			return c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{
				Error:   api.ErrKindValidation,
				Message: "request validation failed",
				Fields:  map[string]string{"email": "must be a valid email address"},
			})
		}

		hash, err := hashPassword(req.Password)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrKindInternal, Message: "failed to hash password"})
		}

		user, err := createUser(c.Request().Context(), db, &model.User{
			Name:         req.Name,
			Email:        req.Email,
			PasswordHash: hash,
		})
		if err != nil {
			if errors.Is(err, store.ErrDuplicateEmail) {
				return c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{Error: api.ErrKindDuplicateEmail, Message: "email already registered"})
			}
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrKindInternal, Message: err.Error()})
		}

		return c.JSON(http.StatusCreated, api.UserResponse{
			ID:        user.ID,
			Name:      user.Name,
			Email:     user.Email,
			CreatedAt: user.CreatedAt,
			IsAdmin:   user.IsAdmin,
		})
	}
}

// @Summary     Log in with email and password
// @Description 驗證 Email 與密碼，簽發不透明存取令牌
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body api.LoginRequest true "登入資料"
// @Success     200 {object} api.TokenResponse
// @Failure     401 {object} api.ErrorResponse
// @Failure     422 {object} api.ErrorResponse
// @Failure     429 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Router      /auth/login [post]
func LoginHandler(db database.DB, cch cache.Cache) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req api.LoginRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{Error: api.ErrKindValidation, Message: "invalid request body"})
		}
		if err := c.Validate(&req); err != nil {
			return c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{Error: api.ErrKindValidation, Message: "request validation failed", Fields: api.ValidationFields(err)})
		}

		// 查無帳號與密碼錯誤回同一句話，避免洩漏哪些 Email 已註冊
		user, err := getUserByEmail(c.Request().Context(), db, strings.ToLower(req.Email))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: api.ErrKindInvalidCredentials, Message: "invalid email or password"})
			}
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrKindInternal, Message: err.Error()})
		}

		if err := authenticateUser(c.Request().Context(), *user, req.Password); err != nil {
			return c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: api.ErrKindInvalidCredentials, Message: "invalid email or password"})
		}

		token, err := issueToken(c.Request().Context(), db, cch, user)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrKindInternal, Message: "failed to issue token"})
		}

		return c.JSON(http.StatusOK, api.TokenResponse{AccessToken: token, TokenType: "Bearer"})
	}
}

// @Summary     Log out everywhere
// @Description 撤銷當前使用者名下所有存取令牌
// @Tags        auth
// @Produce     json
// @Success     204 "No Content"
// @Failure     401 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Security    BearerAuth
// @Router      /auth/logout [post]
func LogoutHandler(db database.DB, cch cache.Cache) echo.HandlerFunc {
	return func(c echo.Context) error {
		ident, ok := c.Get(middleware.ContextUserKey).(*service.Identity)
		if !ok || ident.UserID == 0 {
			return c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: api.ErrKindUnauthenticated, Message: "invalid or missing token"})
		}
		if err := revokeUserTokens(c.Request().Context(), db, cch, ident.UserID); err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrKindInternal, Message: err.Error()})
		}
		return c.NoContent(http.StatusNoContent)
	}
}
