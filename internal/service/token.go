package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tablebook/internal/cache"
	"tablebook/internal/database"
	"tablebook/internal/model"
	"tablebook/internal/store"
)

// ErrInvalidToken 表示令牌不存在或已被撤銷。
var ErrInvalidToken = errors.New("invalid or revoked token")

// Identity 為通過令牌驗證後的呼叫者身分。
type Identity struct {
	UserID  int  `json:"user_id"`
	IsAdmin bool `json:"is_admin"`
}

const (
	tokenBytes    = 32
	tokenCacheTTL = 5 * time.Minute
)

var (
	randRead      = rand.Read
	jsonMarshal   = json.Marshal
	jsonUnmarshal = json.Unmarshal
)

func tokenCacheKey(tokenHash string) string {
	return fmt.Sprintf("token:%s", tokenHash)
}

// HashToken 回傳令牌明文的 SHA-256 十六進位摘要，持久層只保存摘要。
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// IssueToken 產生隨機令牌並保存摘要，明文只在這裡回傳一次。
func IssueToken(ctx context.Context, db database.DB, cch cache.Cache, user *model.User) (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := randRead(buf); err != nil {
		return "", fmt.Errorf("IssueToken: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	hash := HashToken(token)

	if _, err := store.CreateToken(ctx, db, &model.Token{UserID: user.ID, TokenHash: hash}); err != nil {
		return "", err
	}

	data, err := jsonMarshal(Identity{UserID: user.ID, IsAdmin: user.IsAdmin})
	if err != nil {
		return "", fmt.Errorf("IssueToken: %w", err)
	}
	if err := cch.Set(ctx, tokenCacheKey(hash), data, tokenCacheTTL).Err(); err != nil {
		return "", fmt.Errorf("IssueToken: %w", err)
	}
	return token, nil
}

// ValidateToken 驗證令牌明文，快取未命中時回源資料庫並回填。
// 查無摘要即回報 ErrInvalidToken，不區分「從未簽發」與「已撤銷」。
func ValidateToken(ctx context.Context, db database.DB, cch cache.Cache, token string) (*Identity, error) {
	hash := HashToken(token)
	key := tokenCacheKey(hash)

	if val, err := cch.Get(ctx, key).Result(); err == nil {
		var ident Identity
		if jsonUnmarshal([]byte(val), &ident) == nil {
			return &ident, nil
		}
	}

	user, err := store.GetUserByTokenHash(ctx, db, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	ident := Identity{UserID: user.ID, IsAdmin: user.IsAdmin}
	if data, err := jsonMarshal(ident); err == nil {
		// 回填失敗不影響本次驗證結果
		cch.Set(ctx, key, data, tokenCacheTTL)
	}
	return &ident, nil
}

// RevokeUserTokens 撤銷該使用者的全部令牌，效果等同登出所有裝置。
// 先刪資料庫再清快取，重複呼叫仍回傳成功。
func RevokeUserTokens(ctx context.Context, db database.DB, cch cache.Cache, userID int) error {
	hashes, err := store.ListTokenHashesByUser(ctx, db, userID)
	if err != nil {
		return err
	}
	if err := store.DeleteTokensByUser(ctx, db, userID); err != nil {
		return err
	}
	if len(hashes) == 0 {
		return nil
	}
	keys := make([]string, len(hashes))
	for i, h := range hashes {
		keys[i] = tokenCacheKey(h)
	}
	if err := cch.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("RevokeUserTokens: %w", err)
	}
	return nil
}
