package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"tablebook/internal/cache"
	"tablebook/internal/database"
	"tablebook/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// fakeRow 實作 pgx.Row，依 dest 數量模擬不同查詢的掃描。
type fakeRow struct {
	scanErr error
	token   *model.Token
	user    *model.User
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	switch len(dest) {
	case 2:
		*dest[0].(*int) = r.token.ID
		*dest[1].(*time.Time) = r.token.CreatedAt
	case 6:
		u := r.user
		*dest[0].(*int) = u.ID
		*dest[1].(*string) = u.Name
		*dest[2].(*string) = u.Email
		*dest[3].(*string) = u.PasswordHash
		*dest[4].(*time.Time) = u.CreatedAt
		*dest[5].(*bool) = u.IsAdmin
	default:
		panic("fakeRow.Scan: unexpected number of dest")
	}
	return nil
}

// fakeHashRows 實作 pgx.Rows，逐筆回傳 token_hash 字串。
type fakeHashRows struct {
	data []string
	idx  int
}

func (r *fakeHashRows) Close()                                       {}
func (r *fakeHashRows) Err() error                                   { return nil }
func (r *fakeHashRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeHashRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeHashRows) Next() bool                                   { return r.idx < len(r.data) }
func (r *fakeHashRows) Scan(dest ...any) error {
	*dest[0].(*string) = r.data[r.idx]
	r.idx++
	return nil
}
func (r *fakeHashRows) Values() ([]any, error) { return nil, nil }
func (r *fakeHashRows) RawValues() [][]byte    { return nil }
func (r *fakeHashRows) Conn() *pgx.Conn        { return nil }

func TestHashToken(t *testing.T) {
	h1 := HashToken("a")
	h2 := HashToken("a")
	h3 := HashToken("b")
	require.Equal(t, h1, h2)
	require.NotEqual(t, h1, h3)
	require.Len(t, h1, 64)
}

func TestIssueToken(t *testing.T) {
	t.Cleanup(restoreGlobals)
	ctx := context.Background()
	user := &model.User{ID: 1, IsAdmin: true}

	t.Run("rand fails", func(t *testing.T) {
		randRead = func([]byte) (int, error) { return 0, errors.New("rand") }
		defer restoreGlobals()
		_, err := IssueToken(ctx, &database.FakeDB{}, &cache.FakeCache{}, user)
		require.Error(t, err)
	})

	t.Run("insert fails", func(t *testing.T) {
		db := &database.FakeDB{
			QueryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row {
				return &fakeRow{scanErr: errors.New("insert")}
			},
		}
		_, err := IssueToken(ctx, db, &cache.FakeCache{}, user)
		require.Error(t, err)
	})

	t.Run("marshal fails", func(t *testing.T) {
		jsonMarshal = func(any) ([]byte, error) { return nil, errors.New("json") }
		defer restoreGlobals()
		db := &database.FakeDB{
			QueryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row {
				return &fakeRow{token: &model.Token{ID: 1}}
			},
		}
		_, err := IssueToken(ctx, db, &cache.FakeCache{}, user)
		require.Error(t, err)
	})

	t.Run("cache set fails", func(t *testing.T) {
		db := &database.FakeDB{
			QueryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row {
				return &fakeRow{token: &model.Token{ID: 1}}
			},
		}
		c := &cache.FakeCache{
			SetFn: func(context.Context, string, any, time.Duration) *redis.StatusCmd {
				return redis.NewStatusResult("", errors.New("set"))
			},
		}
		_, err := IssueToken(ctx, db, c, user)
		require.Error(t, err)
	})

	t.Run("success", func(t *testing.T) {
		var storedHash string
		db := &database.FakeDB{
			QueryRowFn: func(_ context.Context, _ string, args ...any) pgx.Row {
				storedHash = args[1].(string)
				return &fakeRow{token: &model.Token{ID: 1}}
			},
		}
		var cacheKey string
		var cacheVal []byte
		c := &cache.FakeCache{
			SetFn: func(_ context.Context, key string, val any, _ time.Duration) *redis.StatusCmd {
				cacheKey = key
				cacheVal = val.([]byte)
				return redis.NewStatusResult("OK", nil)
			},
		}

		token, err := IssueToken(ctx, db, c, user)
		require.NoError(t, err)

		decoded, err := base64.RawURLEncoding.DecodeString(token)
		require.NoError(t, err)
		require.Len(t, decoded, 32)

		// 資料庫只保存摘要，不保存明文
		require.Equal(t, HashToken(token), storedHash)
		require.NotContains(t, storedHash, token)
		require.Equal(t, tokenCacheKey(storedHash), cacheKey)

		var ident Identity
		require.NoError(t, json.Unmarshal(cacheVal, &ident))
		require.Equal(t, 1, ident.UserID)
		require.True(t, ident.IsAdmin)
	})
}

func TestValidateToken(t *testing.T) {
	t.Cleanup(restoreGlobals)
	ctx := context.Background()
	user := &model.User{ID: 2, Name: "Bob", Email: "bob@example.com", PasswordHash: "h", IsAdmin: false}

	t.Run("cache hit skips the database", func(t *testing.T) {
		data, _ := json.Marshal(Identity{UserID: 2, IsAdmin: true})
		c := &cache.FakeCache{
			GetFn: func(context.Context, string) *redis.StringCmd {
				return redis.NewStringResult(string(data), nil)
			},
		}
		ident, err := ValidateToken(ctx, &database.FakeDB{}, c, "tok")
		require.NoError(t, err)
		require.Equal(t, 2, ident.UserID)
		require.True(t, ident.IsAdmin)
	})

	t.Run("cache miss falls back to the database", func(t *testing.T) {
		c := &cache.FakeCache{
			GetFn: func(context.Context, string) *redis.StringCmd {
				return redis.NewStringResult("", redis.Nil)
			},
			SetFn: func(context.Context, string, any, time.Duration) *redis.StatusCmd {
				return redis.NewStatusResult("OK", nil)
			},
		}
		db := &database.FakeDB{
			QueryRowFn: func(_ context.Context, _ string, args ...any) pgx.Row {
				require.Equal(t, HashToken("tok"), args[0].(string))
				return &fakeRow{user: user}
			},
		}
		ident, err := ValidateToken(ctx, db, c, "tok")
		require.NoError(t, err)
		require.Equal(t, 2, ident.UserID)
		require.False(t, ident.IsAdmin)
	})

	t.Run("corrupt cache entry falls back to the database", func(t *testing.T) {
		c := &cache.FakeCache{
			GetFn: func(context.Context, string) *redis.StringCmd {
				return redis.NewStringResult("not json", nil)
			},
			SetFn: func(context.Context, string, any, time.Duration) *redis.StatusCmd {
				return redis.NewStatusResult("OK", nil)
			},
		}
		db := &database.FakeDB{
			QueryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row {
				return &fakeRow{user: user}
			},
		}
		ident, err := ValidateToken(ctx, db, c, "tok")
		require.NoError(t, err)
		require.Equal(t, 2, ident.UserID)
	})

	t.Run("revoked token", func(t *testing.T) {
		c := &cache.FakeCache{
			GetFn: func(context.Context, string) *redis.StringCmd {
				return redis.NewStringResult("", redis.Nil)
			},
		}
		db := &database.FakeDB{
			QueryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row {
				return &fakeRow{scanErr: pgx.ErrNoRows}
			},
		}
		_, err := ValidateToken(ctx, db, c, "tok")
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("database error", func(t *testing.T) {
		c := &cache.FakeCache{
			GetFn: func(context.Context, string) *redis.StringCmd {
				return redis.NewStringResult("", redis.Nil)
			},
		}
		db := &database.FakeDB{
			QueryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row {
				return &fakeRow{scanErr: errors.New("boom")}
			},
		}
		_, err := ValidateToken(ctx, db, c, "tok")
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrInvalidToken)
	})
}

func TestRevokeUserTokens(t *testing.T) {
	ctx := context.Background()

	t.Run("list fails", func(t *testing.T) {
		db := &database.FakeDB{
			QueryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
				return nil, errors.New("query")
			},
		}
		require.Error(t, RevokeUserTokens(ctx, db, &cache.FakeCache{}, 1))
	})

	t.Run("delete fails", func(t *testing.T) {
		db := &database.FakeDB{
			QueryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
				return &fakeHashRows{data: []string{"h"}}, nil
			},
			ExecFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
				return pgconn.CommandTag{}, errors.New("delete")
			},
		}
		require.Error(t, RevokeUserTokens(ctx, db, &cache.FakeCache{}, 1))
	})

	t.Run("cache del fails", func(t *testing.T) {
		db := &database.FakeDB{
			QueryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
				return &fakeHashRows{data: []string{"h"}}, nil
			},
			ExecFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
				return pgconn.NewCommandTag("DELETE 1"), nil
			},
		}
		c := &cache.FakeCache{
			DelFn: func(context.Context, ...string) *redis.IntCmd {
				return redis.NewIntResult(0, errors.New("del"))
			},
		}
		require.Error(t, RevokeUserTokens(ctx, db, c, 1))
	})

	t.Run("revokes rows and cache keys", func(t *testing.T) {
		db := &database.FakeDB{
			QueryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
				return &fakeHashRows{data: []string{"h1", "h2"}}, nil
			},
			ExecFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
				return pgconn.NewCommandTag("DELETE 2"), nil
			},
		}
		var deleted []string
		c := &cache.FakeCache{
			DelFn: func(_ context.Context, keys ...string) *redis.IntCmd {
				deleted = keys
				return redis.NewIntResult(int64(len(keys)), nil)
			},
		}
		require.NoError(t, RevokeUserTokens(ctx, db, c, 1))
		require.Equal(t, []string{tokenCacheKey("h1"), tokenCacheKey("h2")}, deleted)
	})

	t.Run("second revoke is a no-op", func(t *testing.T) {
		db := &database.FakeDB{
			QueryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
				return &fakeHashRows{}, nil
			},
			ExecFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
				return pgconn.NewCommandTag("DELETE 0"), nil
			},
		}
		// 無鍵可清時不應呼叫 Del，FakeCache 未設定 DelFn 會 panic
		require.NoError(t, RevokeUserTokens(ctx, db, &cache.FakeCache{}, 1))
	})
}

func TestIssueThenValidateRoundTrip(t *testing.T) {
	t.Cleanup(restoreGlobals)
	ctx := context.Background()
	user := &model.User{ID: 7, IsAdmin: false}

	// 模擬持久層：簽發時記下摘要，驗證時比對同一摘要
	var storedHash string
	db := &database.FakeDB{
		QueryRowFn: func(_ context.Context, sql string, args ...any) pgx.Row {
			if len(args) == 2 {
				storedHash = args[1].(string)
				return &fakeRow{token: &model.Token{ID: 1}}
			}
			if args[0].(string) == storedHash {
				return &fakeRow{user: &model.User{ID: 7}}
			}
			return &fakeRow{scanErr: pgx.ErrNoRows}
		},
	}
	c := &cache.FakeCache{
		GetFn: func(context.Context, string) *redis.StringCmd {
			return redis.NewStringResult("", redis.Nil)
		},
		SetFn: func(context.Context, string, any, time.Duration) *redis.StatusCmd {
			return redis.NewStatusResult("OK", nil)
		},
	}

	token, err := IssueToken(ctx, db, c, user)
	require.NoError(t, err)

	ident, err := ValidateToken(ctx, db, c, token)
	require.NoError(t, err)
	require.Equal(t, 7, ident.UserID)

	_, err = ValidateToken(ctx, db, c, "some-other-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}
