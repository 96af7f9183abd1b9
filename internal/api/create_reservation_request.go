package api

import "time"

// swagger:model api.CreateReservationRequest
type CreateReservationRequest struct {
	ReservationTime time.Time `json:"reservation_time" validate:"required" example:"2024-01-01T10:00:00Z"`
	Guests          int       `json:"guests" validate:"required,min=1" example:"2"`
	Note            *string   `json:"note,omitempty" validate:"omitempty,max=500" example:"window seat"`
}
