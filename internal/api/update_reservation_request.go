package api

import "time"

// UpdateReservationRequest 的欄位皆為選填，僅更新有帶值的欄位。
// swagger:model api.UpdateReservationRequest
type UpdateReservationRequest struct {
	ReservationTime *time.Time `json:"reservation_time,omitempty" example:"2024-01-01T10:00:00Z"`
	Guests          *int       `json:"guests,omitempty" validate:"omitempty,min=1" example:"4"`
	Note            *string    `json:"note,omitempty" validate:"omitempty,max=500" example:"birthday dinner"`
}
