package store

import (
	"context"
	"errors"
	"fmt"

	"tablebook/internal/database"
	"tablebook/internal/model"

	"github.com/jackc/pgx/v5"
)

func CreateReservation(ctx context.Context, db database.DB, r *model.Reservation) (*model.Reservation, error) {
	row := db.QueryRow(ctx,
		`INSERT INTO reservations (user_id, reservation_time, guests, note)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		r.UserID,
		r.ReservationTime,
		r.Guests,
		r.Note,
	)
	if err := row.Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, fmt.Errorf("CreateReservation: %w", err)
	}
	return r, nil
}

func GetReservationByID(ctx context.Context, db database.DB, id int) (*model.Reservation, error) {
	row := db.QueryRow(ctx,
		`SELECT id, user_id, reservation_time, guests, note, created_at, updated_at
		 FROM reservations WHERE id = $1`,
		id,
	)
	r := &model.Reservation{}
	if err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.ReservationTime,
		&r.Guests,
		&r.Note,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("GetReservationByID: %w", err)
	}
	return r, nil
}

func ListReservations(ctx context.Context, db database.DB) ([]model.Reservation, error) {
	rows, err := db.Query(ctx,
		`SELECT id, user_id, reservation_time, guests, note, created_at, updated_at
		 FROM reservations ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("ListReservations: %w", err)
	}
	return scanReservations(rows, "ListReservations")
}

func ListReservationsByUser(ctx context.Context, db database.DB, userID int) ([]model.Reservation, error) {
	rows, err := db.Query(ctx,
		`SELECT id, user_id, reservation_time, guests, note, created_at, updated_at
		 FROM reservations WHERE user_id = $1 ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListReservationsByUser: %w", err)
	}
	return scanReservations(rows, "ListReservationsByUser")
}

func scanReservations(rows pgx.Rows, op string) ([]model.Reservation, error) {
	defer rows.Close()

	var list []model.Reservation
	for rows.Next() {
		var r model.Reservation
		if err := rows.Scan(
			&r.ID,
			&r.UserID,
			&r.ReservationTime,
			&r.Guests,
			&r.Note,
			&r.CreatedAt,
			&r.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// UpdateReservation 以 RETURNING 取回新的 updated_at，查無列即回報 ErrNotFound。
func UpdateReservation(ctx context.Context, db database.DB, r *model.Reservation) error {
	row := db.QueryRow(ctx,
		`UPDATE reservations
		 SET reservation_time = $1, guests = $2, note = $3, updated_at = now()
		 WHERE id = $4
		 RETURNING updated_at`,
		r.ReservationTime,
		r.Guests,
		r.Note,
		r.ID,
	)
	if err := row.Scan(&r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("UpdateReservation: %w", err)
	}
	return nil
}

func DeleteReservation(ctx context.Context, db database.DB, id int) error {
	tag, err := db.Exec(ctx,
		`DELETE FROM reservations WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("DeleteReservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
