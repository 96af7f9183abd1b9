package api

import "time"

// swagger:model api.ReservationResponse
type ReservationResponse struct {
	ID              int       `json:"id" example:"10"`
	UserID          int       `json:"user_id" example:"1"`
	ReservationTime time.Time `json:"reservation_time" example:"2024-01-01T10:00:00Z"`
	Guests          int       `json:"guests" example:"2"`
	Note            *string   `json:"note,omitempty" example:"window seat"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
