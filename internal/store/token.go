package store

import (
	"context"
	"errors"
	"fmt"

	"tablebook/internal/database"
	"tablebook/internal/model"

	"github.com/jackc/pgx/v5"
)

func CreateToken(ctx context.Context, db database.DB, t *model.Token) (*model.Token, error) {
	row := db.QueryRow(ctx,
		`INSERT INTO tokens (user_id, token_hash)
		 VALUES ($1, $2)
		 RETURNING id, created_at`,
		t.UserID,
		t.TokenHash,
	)
	if err := row.Scan(&t.ID, &t.CreatedAt); err != nil {
		return nil, fmt.Errorf("CreateToken: %w", err)
	}
	return t, nil
}

// GetUserByTokenHash 以令牌摘要反查持有者，查無即視為已撤銷。
func GetUserByTokenHash(ctx context.Context, db database.DB, tokenHash string) (*model.User, error) {
	row := db.QueryRow(ctx,
		`SELECT u.id, u.name, u.email, u.password_hash, u.created_at, u.is_admin
		 FROM users u
		 JOIN tokens t ON t.user_id = u.id
		 WHERE t.token_hash = $1`,
		tokenHash,
	)
	u := &model.User{}
	if err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.IsAdmin,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("GetUserByTokenHash: %w", err)
	}
	return u, nil
}

func ListTokenHashesByUser(ctx context.Context, db database.DB, userID int) ([]string, error) {
	rows, err := db.Query(ctx,
		`SELECT token_hash FROM tokens WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListTokenHashesByUser: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("ListTokenHashesByUser: %w", err)
		}
		hashes = append(hashes, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListTokenHashesByUser: %w", err)
	}
	return hashes, nil
}

// DeleteTokensByUser 刪除該使用者所有令牌，無令牌可刪仍視為成功。
func DeleteTokensByUser(ctx context.Context, db database.DB, userID int) error {
	_, err := db.Exec(ctx,
		`DELETE FROM tokens WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("DeleteTokensByUser: %w", err)
	}
	return nil
}
