package users

import (
	"errors"
	"net/http"
	"net/mail"
	"strconv"
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
	hashPassword       = service.HashPassword
	authenticateUser   = service.AuthenticateUser
	revokeUserTokens   = service.RevokeUserTokens
	createUser         = store.CreateUser
	getUserByID        = store.GetUserByID
	listUsers          = store.ListUsers
	updateUser         = store.UpdateUser
	updateUserPassword = store.UpdateUserPassword
	deleteUser         = store.DeleteUser
)

// @Summary     Create a new user
// @Description 管理員建立帳號 (Email 會自動轉小寫)，可直接指定管理員身分
// @Tags        users
// @Accept      json
// @Produce     json
// @Param       request body api.CreateUserRequest true "使用者資料"
// @Success     201 {object} api.UserResponse
// @Failure     401 {object} api.ErrorResponse
// @Failure     403 {object} api.ErrorResponse
// @Failure     422 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Security    BearerAuth
// @Router      /users [post]
func CreateUserHandler(db database.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req api.CreateUserRequest
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
			IsAdmin:      req.IsAdmin,
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

// @Summary     List users
// @Description 管理員列出全部使用者
// @Tags        users
// @Produce     json
// @Success     200 {array}  api.UserResponse
// @Failure     401 {object} api.ErrorResponse
// @Failure     403 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Security    BearerAuth
// @Router      /users [get]
func ListUsersHandler(db database.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		users, err := listUsers(c.Request().Context(), db)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrKindInternal, Message: err.Error()})
		}
		resp := make([]api.UserResponse, 0, len(users))
		for i := range users {
			u := &users[i]
			resp = append(resp, api.UserResponse{
				ID:        u.ID,
				Name:      u.Name,
				Email:     u.Email,
				CreatedAt: u.CreatedAt,
				IsAdmin:   u.IsAdmin,
			})
		}
		return c.JSON(http.StatusOK, resp)
	}
}

// @Summary     Get a user by ID
// @Description 管理員透過 ID 查詢使用者詳細資料
// @Tags        users
// @Produce     json
// @Param       id path int true "使用者 ID"
// @Success     200 {object} api.UserResponse
// @Failure     401 {object} api.ErrorResponse
// @Failure     403 {object} api.ErrorResponse
// @Failure     404 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Security    BearerAuth
// @Router      /users/{id} [get]
func GetUserHandler(db database.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: api.ErrKindNotFound, Message: "user not found"})
		}
		user, err := getUserByID(c.Request().Context(), db, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: api.ErrKindNotFound, Message: "user not found"})
			}
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrKindInternal, Message: err.Error()})
		}
		return c.JSON(http.StatusOK, api.UserResponse{
			ID:        user.ID,
			Name:      user.Name,
			Email:     user.Email,
			CreatedAt: user.CreatedAt,
			IsAdmin:   user.IsAdmin,
		})
	}
}

// @Summary     Update a user by ID
// @Description 管理員更新使用者姓名、Email 及管理員身分；身分變動時撤銷其所有令牌
// @Tags        users
// @Accept      json
// @Produce     json
// @Param       id      path int                   true "使用者 ID"
// @Param       request body api.UpdateUserRequest true "更新資料"
// @Success     204 "No Content"
// @Failure     401 {object} api.ErrorResponse
// @Failure     403 {object} api.ErrorResponse
// @Failure     404 {object} api.ErrorResponse
// @Failure     422 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Security    BearerAuth
// @Router      /users/{id} [put]
func UpdateUserHandler(db database.DB, cch cache.Cache) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: api.ErrKindNotFound, Message: "user not found"})
		}

		var req api.UpdateUserRequest
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

		user, err := getUserByID(c.Request().Context(), db, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: api.ErrKindNotFound, Message: "user not found"})
			}
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrKindInternal, Message: err.Error()})
		}

		if err := updateUser(c.Request().Context(), db, &model.User{
			ID:      id,
			Name:    req.Name,
			Email:   req.Email,
			IsAdmin: req.IsAdmin,
		}); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: api.ErrKindNotFound, Message: "user not found"})
			}
			if errors.Is(err, store.ErrDuplicateEmail) {
				return c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{Error: api.ErrKindDuplicateEmail, Message: "email already registered"})
			}
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrKindInternal, Message: err.Error()})
		}

		// 身分變動後快取中的舊身分最長可再存活一個 TTL，直接撤銷令牌讓其重新登入
		if user.IsAdmin != req.IsAdmin {
			if err := revokeUserTokens(c.Request().Context(), db, cch, id); err != nil {
				return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrKindInternal, Message: err.Error()})
			}
		}

		return c.NoContent(http.StatusNoContent)
	}
}

// @Summary     Delete a user by ID
// @Description 管理員刪除使用者帳號，先撤銷其所有令牌再刪除
// @Tags        users
// @Param       id path int true "使用者 ID"
// @Success     204 "No Content"
// @Failure     401 {object} api.ErrorResponse
// @Failure     403 {object} api.ErrorResponse
// @Failure     404 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Security    BearerAuth
// @Router      /users/{id} [delete]
func DeleteUserHandler(db database.DB, cch cache.Cache) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: api.ErrKindNotFound, Message: "user not found"})
		}
		if _, err := getUserByID(c.Request().Context(), db, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: api.ErrKindNotFound, Message: "user not found"})
			}
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrKindInternal, Message: err.Error()})
		}
		if err := revokeUserTokens(c.Request().Context(), db, cch, id); err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrKindInternal, Message: err.Error()})
		}
		if err := deleteUser(c.Request().Context(), db, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: api.ErrKindNotFound, Message: "user not found"})
			}
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrKindInternal, Message: err.Error()})
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// @Summary     Get current user info
// @Description 以令牌身分取得自己的詳細資料
// @Tags        users
// @Produce     json
// @Success     200 {object} api.UserResponse
// @Failure     401 {object} api.ErrorResponse
// @Failure     404 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Security    BearerAuth
// @Router      /users/me [get]
func GetMyUserHandler(db database.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		ident, ok := c.Get(middleware.ContextUserKey).(*service.Identity)
		if !ok || ident.UserID == 0 {
			return c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: api.ErrKindUnauthenticated, Message: "invalid or missing token"})
		}
		user, err := getUserByID(c.Request().Context(), db, ident.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: api.ErrKindNotFound, Message: "user not found"})
			}
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrKindInternal, Message: err.Error()})
		}
		return c.JSON(http.StatusOK, api.UserResponse{
			ID:        user.ID,
			Name:      user.Name,
			Email:     user.Email,
			CreatedAt: user.CreatedAt,
			IsAdmin:   user.IsAdmin,
		})
	}
}

// @Summary     Update current user info
// @Description 更新自己的姓名和 Email，管理員身分不受影響
// @Tags        users
// @Accept      json
// @Produce     json
// @Param       request body api.UpdateMeRequest true "更新資料"
// @Success     204 "No Content"
// @Failure     401 {object} api.ErrorResponse
// @Failure     404 {object} api.ErrorResponse
// @Failure     422 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Security    BearerAuth
// @Router      /users/me [put]
func UpdateMyUserHandler(db database.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		ident, ok := c.Get(middleware.ContextUserKey).(*service.Identity)
		if !ok || ident.UserID == 0 {
			return c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: api.ErrKindUnauthenticated, Message: "invalid or missing token"})
		}

		var req api.UpdateMeRequest
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

		user, err := getUserByID(c.Request().Context(), db, ident.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: api.ErrKindNotFound, Message: "user not found"})
			}
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrKindInternal, Message: err.Error()})
		}

		// 自行更新不得變動管理員身分
		if err := updateUser(c.Request().Context(), db, &model.User{
			ID:      ident.UserID,
			Name:    req.Name,
			Email:   req.Email,
			IsAdmin: user.IsAdmin,
		}); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: api.ErrKindNotFound, Message: "user not found"})
			}
			if errors.Is(err, store.ErrDuplicateEmail) {
				return c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{Error: api.ErrKindDuplicateEmail, Message: "email already registered"})
			}
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrKindInternal, Message: err.Error()})
		}

		return c.NoContent(http.StatusNoContent)
	}
}

// @Summary     Update own password
// @Description 驗證舊密碼並更新為新密碼
// @Tags        users
// @Accept      json
// @Produce     json
// @Param       request body api.UpdateMyPasswordRequest true "新舊密碼"
// @Success     204 "No Content"
// @Failure     401 {object} api.ErrorResponse
// @Failure     422 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Security    BearerAuth
// @Router      /users/me/password [patch]
func UpdateMyUserPasswordHandler(db database.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		ident, ok := c.Get(middleware.ContextUserKey).(*service.Identity)
		if !ok || ident.UserID == 0 {
			return c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: api.ErrKindUnauthenticated, Message: "invalid or missing token"})
		}

		var req api.UpdateMyPasswordRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{Error: api.ErrKindValidation, Message: "invalid request body"})
		}
		if err := c.Validate(&req); err != nil {
			return c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{Error: api.ErrKindValidation, Message: "request validation failed", Fields: api.ValidationFields(err)})
		}

		user, err := getUserByID(c.Request().Context(), db, ident.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: api.ErrKindNotFound, Message: "user not found"})
			}
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrKindInternal, Message: err.Error()})
		}

		if err := authenticateUser(c.Request().Context(), *user, req.OldPassword); err != nil {
			return c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: api.ErrKindInvalidCredentials, Message: "invalid current password"})
		}

		hash, err := hashPassword(req.NewPassword)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrKindInternal, Message: "failed to hash new password"})
		}

		if err := updateUserPassword(c.Request().Context(), db, ident.UserID, hash); err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrKindInternal, Message: err.Error()})
		}

		return c.NoContent(http.StatusNoContent)
	}
}

// @Summary     Delete own account
// @Description 撤銷自己所有令牌後刪除帳號，名下預約一併移除
// @Tags        users
// @Success     204 "No Content"
// @Failure     401 {object} api.ErrorResponse
// @Failure     404 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Security    BearerAuth
// @Router      /users/me [delete]
func DeleteMyUserHandler(db database.DB, cch cache.Cache) echo.HandlerFunc {
	return func(c echo.Context) error {
		ident, ok := c.Get(middleware.ContextUserKey).(*service.Identity)
		if !ok || ident.UserID == 0 {
			return c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: api.ErrKindUnauthenticated, Message: "invalid or missing token"})
		}
		if err := revokeUserTokens(c.Request().Context(), db, cch, ident.UserID); err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrKindInternal, Message: err.Error()})
		}
		if err := deleteUser(c.Request().Context(), db, ident.UserID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: api.ErrKindNotFound, Message: "user not found"})
			}
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrKindInternal, Message: err.Error()})
		}
		return c.NoContent(http.StatusNoContent)
	}
}
