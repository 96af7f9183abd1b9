// File: internal/model/token.go
package model

import "time"

// Token 僅保存存取令牌的 SHA-256 摘要，明文只在簽發當下回傳一次。
type Token struct {
	ID        int       `db:"id" json:"-"`
	UserID    int       `db:"user_id" json:"user_id"`
	TokenHash string    `db:"token_hash" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
