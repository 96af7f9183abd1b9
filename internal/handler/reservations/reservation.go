// File: internal/handler/reservations/reservation.go
package reservations

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"tablebook/internal/api"
	"tablebook/internal/database"
	"tablebook/internal/events"
	"tablebook/internal/middleware"
	"tablebook/internal/model"
	"tablebook/internal/service"
	"tablebook/internal/store"
	"tablebook/internal/worker"

	"github.com/labstack/echo/v4"
)

var (
	createReservation      = store.CreateReservation
	getReservationByID     = store.GetReservationByID
	listReservations       = store.ListReservations
	listReservationsByUser = store.ListReservationsByUser
	updateReservation      = store.UpdateReservation
	deleteReservation      = store.DeleteReservation
)

// publishEvent 把事件排入背景 worker 發佈，排不進或發佈失敗只記 log，
// 不影響已完成的寫入回應。
func publishEvent(c echo.Context, pub events.Publisher, pool worker.Pool, action string, r *model.Reservation) {
	ev := events.ReservationEvent{
		Action:          action,
		ReservationID:   r.ID,
		UserID:          r.UserID,
		ReservationTime: r.ReservationTime,
		Guests:          r.Guests,
		OccurredAt:      time.Now().UTC(),
	}
	logger := c.Logger()
	ok := pool.TrySubmit(func() {
		// 回應送出後 request context 隨即取消，發佈改用背景 context
		if err := pub.Publish(context.Background(), ev); err != nil {
			logger.Warnf("publish reservation event: %v", err)
		}
	})
	if !ok {
		logger.Warn("worker queue full, reservation event dropped")
	}
}

// @Summary     Create a reservation
// @Description 以當前使用者身分建立預約，擁有者一律為呼叫者本人
// @Tags        reservations
// @Accept      json
// @Produce     json
// @Param       request body api.CreateReservationRequest true "預約資料"
// @Success     201 {object} api.ReservationResponse
// @Failure     401 {object} api.ErrorResponse
// @Failure     422 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Security    BearerAuth
// @Router      /reservations [post]
func CreateReservationHandler(db database.DB, pub events.Publisher, pool worker.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ident, ok := c.Get(middleware.ContextUserKey).(*service.Identity)
		if !ok || ident.UserID == 0 {
			return c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: api.ErrKindUnauthenticated, Message: "invalid or missing token"})
		}

		var req api.CreateReservationRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{Error: api.ErrKindValidation, Message: "invalid request body"})
		}
		if err := c.Validate(&req); err != nil {
			return c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{Error: api.ErrKindValidation, Message: "request validation failed", Fields: api.ValidationFields(err)})
		}

		r, err := createReservation(c.Request().Context(), db, &model.Reservation{
			UserID:          ident.UserID,
			ReservationTime: req.ReservationTime,
			Guests:          req.Guests,
			Note:            req.Note,
		})
		if err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrKindInternal, Message: err.Error()})
		}

		publishEvent(c, pub, pool, events.ActionCreated, r)

		return c.JSON(http.StatusCreated, api.ReservationResponse{
			ID:              r.ID,
			UserID:          r.UserID,
			ReservationTime: r.ReservationTime,
			Guests:          r.Guests,
			Note:            r.Note,
			CreatedAt:       r.CreatedAt,
			UpdatedAt:       r.UpdatedAt,
		})
	}
}

// @Summary     List reservations
// @Description 一般使用者列出自己的預約，管理員列出全部
// @Tags        reservations
// @Produce     json
// @Success     200 {array}  api.ReservationResponse
// @Failure     401 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Security    BearerAuth
// @Router      /reservations [get]
func ListReservationsHandler(db database.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		ident, ok := c.Get(middleware.ContextUserKey).(*service.Identity)
		if !ok || ident.UserID == 0 {
			return c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: api.ErrKindUnauthenticated, Message: "invalid or missing token"})
		}

		var (
			list []model.Reservation
			err  error
		)
		if ident.IsAdmin {
			list, err = listReservations(c.Request().Context(), db)
		} else {
			list, err = listReservationsByUser(c.Request().Context(), db, ident.UserID)
		}
		if err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrKindInternal, Message: err.Error()})
		}

		resp := make([]api.ReservationResponse, 0, len(list))
		for i := range list {
			r := &list[i]
			resp = append(resp, api.ReservationResponse{
				ID:              r.ID,
				UserID:          r.UserID,
				ReservationTime: r.ReservationTime,
				Guests:          r.Guests,
				Note:            r.Note,
				CreatedAt:       r.CreatedAt,
				UpdatedAt:       r.UpdatedAt,
			})
		}
		return c.JSON(http.StatusOK, resp)
	}
}

// @Summary     Get a reservation by ID
// @Description 取得單筆預約，僅擁有者或管理員可見
// @Tags        reservations
// @Produce     json
// @Param       id path int true "預約 ID"
// @Success     200 {object} api.ReservationResponse
// @Failure     401 {object} api.ErrorResponse
// @Failure     403 {object} api.ErrorResponse
// @Failure     404 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Security    BearerAuth
// @Router      /reservations/{id} [get]
func GetReservationHandler(db database.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		ident, ok := c.Get(middleware.ContextUserKey).(*service.Identity)
		if !ok || ident.UserID == 0 {
			return c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: api.ErrKindUnauthenticated, Message: "invalid or missing token"})
		}

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: api.ErrKindNotFound, Message: "reservation not found"})
		}

		r, err := getReservationByID(c.Request().Context(), db, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: api.ErrKindNotFound, Message: "reservation not found"})
			}
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrKindInternal, Message: err.Error()})
		}

		if !service.CanAccess(*ident, r.UserID) {
			return c.JSON(http.StatusForbidden, api.ErrorResponse{Error: api.ErrKindForbidden, Message: "not the owner of this reservation"})
		}

		return c.JSON(http.StatusOK, api.ReservationResponse{
			ID:              r.ID,
			UserID:          r.UserID,
			ReservationTime: r.ReservationTime,
			Guests:          r.Guests,
			Note:            r.Note,
			CreatedAt:       r.CreatedAt,
			UpdatedAt:       r.UpdatedAt,
		})
	}
}

// @Summary     Update a reservation
// @Description 更新預約，僅擁有者或管理員可改；缺漏的欄位保持原值
// @Tags        reservations
// @Accept      json
// @Produce     json
// @Param       id      path int                          true "預約 ID"
// @Param       request body api.UpdateReservationRequest true "欲更新的欄位"
// @Success     200 {object} api.ReservationResponse
// @Failure     401 {object} api.ErrorResponse
// @Failure     403 {object} api.ErrorResponse
// @Failure     404 {object} api.ErrorResponse
// @Failure     422 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Security    BearerAuth
// @Router      /reservations/{id} [put]
func UpdateReservationHandler(db database.DB, pub events.Publisher, pool worker.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ident, ok := c.Get(middleware.ContextUserKey).(*service.Identity)
		if !ok || ident.UserID == 0 {
			return c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: api.ErrKindUnauthenticated, Message: "invalid or missing token"})
		}

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: api.ErrKindNotFound, Message: "reservation not found"})
		}

		// 先查再驗身分，無權限者看不到資源存在與否以外的細節
		r, err := getReservationByID(c.Request().Context(), db, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: api.ErrKindNotFound, Message: "reservation not found"})
			}
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrKindInternal, Message: err.Error()})
		}
		if !service.CanAccess(*ident, r.UserID) {
			return c.JSON(http.StatusForbidden, api.ErrorResponse{Error: api.ErrKindForbidden, Message: "not the owner of this reservation"})
		}

		var req api.UpdateReservationRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{Error: api.ErrKindValidation, Message: "invalid request body"})
		}
		if err := c.Validate(&req); err != nil {
			return c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{Error: api.ErrKindValidation, Message: "request validation failed", Fields: api.ValidationFields(err)})
		}

		if req.ReservationTime != nil {
			r.ReservationTime = *req.ReservationTime
		}
		if req.Guests != nil {
			r.Guests = *req.Guests
		}
		if req.Note != nil {
			r.Note = req.Note
		}

		if err := updateReservation(c.Request().Context(), db, r); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: api.ErrKindNotFound, Message: "reservation not found"})
			}
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrKindInternal, Message: err.Error()})
		}

		publishEvent(c, pub, pool, events.ActionUpdated, r)

		return c.JSON(http.StatusOK, api.ReservationResponse{
			ID:              r.ID,
			UserID:          r.UserID,
			ReservationTime: r.ReservationTime,
			Guests:          r.Guests,
			Note:            r.Note,
			CreatedAt:       r.CreatedAt,
			UpdatedAt:       r.UpdatedAt,
		})
	}
}

// @Summary     Delete a reservation
// @Description 刪除預約，僅擁有者或管理員可刪
// @Tags        reservations
// @Param       id path int true "預約 ID"
// @Success     204 "No Content"
// @Failure     401 {object} api.ErrorResponse
// @Failure     403 {object} api.ErrorResponse
// @Failure     404 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Security    BearerAuth
// @Router      /reservations/{id} [delete]
func DeleteReservationHandler(db database.DB, pub events.Publisher, pool worker.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ident, ok := c.Get(middleware.ContextUserKey).(*service.Identity)
		if !ok || ident.UserID == 0 {
			return c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: api.ErrKindUnauthenticated, Message: "invalid or missing token"})
		}

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: api.ErrKindNotFound, Message: "reservation not found"})
		}

		r, err := getReservationByID(c.Request().Context(), db, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: api.ErrKindNotFound, Message: "reservation not found"})
			}
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrKindInternal, Message: err.Error()})
		}
		if !service.CanAccess(*ident, r.UserID) {
			return c.JSON(http.StatusForbidden, api.ErrorResponse{Error: api.ErrKindForbidden, Message: "not the owner of this reservation"})
		}

		if err := deleteReservation(c.Request().Context(), db, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: api.ErrKindNotFound, Message: "reservation not found"})
			}
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrKindInternal, Message: err.Error()})
		}

		publishEvent(c, pub, pool, events.ActionDeleted, r)

		return c.NoContent(http.StatusNoContent)
	}
}
