// File: internal/model/reservation.go
package model

import "time"

type Reservation struct {
	ID              int       `db:"id" json:"id"`
	UserID          int       `db:"user_id" json:"user_id"`
	ReservationTime time.Time `db:"reservation_time" json:"reservation_time"`
	Guests          int       `db:"guests" json:"guests"`
	Note            *string   `db:"note" json:"note,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
