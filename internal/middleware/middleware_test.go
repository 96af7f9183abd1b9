package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"tablebook/internal/cache"
	"tablebook/internal/database"
	"tablebook/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func restore() {
	validateToken = service.ValidateToken
}

func newContext(auth string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestExtractToken(t *testing.T) {
	ctx, _ := newContext("")
	_, ok := extractToken(ctx)
	require.False(t, ok)

	ctx, _ = newContext("BadHeader")
	_, ok = extractToken(ctx)
	require.False(t, ok)

	ctx, _ = newContext("Basic abc")
	_, ok = extractToken(ctx)
	require.False(t, ok)

	ctx, _ = newContext("Bearer tok123")
	tok, ok := extractToken(ctx)
	require.True(t, ok)
	require.Equal(t, "tok123", tok)

	// 大小寫不敏感
	ctx, _ = newContext("bearer tok123")
	tok, ok = extractToken(ctx)
	require.True(t, ok)
	require.Equal(t, "tok123", tok)
}

func TestRequireAuth(t *testing.T) {
	t.Cleanup(restore)
	db := &database.FakeDB{}
	cch := &cache.FakeCache{}

	t.Run("missing token", func(t *testing.T) {
		ctx, rec := newContext("")
		called := false
		err := RequireAuth(db, cch)(func(echo.Context) error { called = true; return nil })(ctx)
		require.NoError(t, err)
		require.False(t, called)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "unauthenticated")
	})

	t.Run("revoked token", func(t *testing.T) {
		validateToken = func(context.Context, database.DB, cache.Cache, string) (*service.Identity, error) {
			return nil, service.ErrInvalidToken
		}
		defer restore()

		ctx, rec := newContext("Bearer revoked")
		called := false
		err := RequireAuth(db, cch)(func(echo.Context) error { called = true; return nil })(ctx)
		require.NoError(t, err)
		require.False(t, called)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "unauthenticated")
	})

	t.Run("validation infrastructure failure", func(t *testing.T) {
		validateToken = func(context.Context, database.DB, cache.Cache, string) (*service.Identity, error) {
			return nil, errors.New("db down")
		}
		defer restore()

		ctx, rec := newContext("Bearer tok")
		err := RequireAuth(db, cch)(func(echo.Context) error { return nil })(ctx)
		require.NoError(t, err)
		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("valid token puts identity into context", func(t *testing.T) {
		validateToken = func(_ context.Context, _ database.DB, _ cache.Cache, token string) (*service.Identity, error) {
			require.Equal(t, "good", token)
			return &service.Identity{UserID: 2}, nil
		}
		defer restore()

		ctx, rec := newContext("Bearer good")
		called := false
		handler := RequireAuth(db, cch)(func(c echo.Context) error {
			called = true
			ident := c.Get(ContextUserKey).(*service.Identity)
			require.Equal(t, 2, ident.UserID)
			return c.String(http.StatusOK, "ok")
		})
		require.NoError(t, handler(ctx))
		require.True(t, called)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	t.Cleanup(restore)
	db := &database.FakeDB{}
	cch := &cache.FakeCache{}

	t.Run("admin passes", func(t *testing.T) {
		validateToken = func(context.Context, database.DB, cache.Cache, string) (*service.Identity, error) {
			return &service.Identity{UserID: 3, IsAdmin: true}, nil
		}
		defer restore()

		ctx, rec := newContext("Bearer admin")
		called := false
		err := RequireAdmin(db, cch)(func(c echo.Context) error {
			called = true
			return c.String(http.StatusOK, "admin")
		})(ctx)
		require.NoError(t, err)
		require.True(t, called)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		validateToken = func(context.Context, database.DB, cache.Cache, string) (*service.Identity, error) {
			return &service.Identity{UserID: 4}, nil
		}
		defer restore()

		ctx, rec := newContext("Bearer user")
		called := false
		err := RequireAdmin(db, cch)(func(echo.Context) error { called = true; return nil })(ctx)
		require.NoError(t, err)
		require.False(t, called)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Contains(t, rec.Body.String(), "forbidden")
	})

	t.Run("unauthenticated never reaches the admin check", func(t *testing.T) {
		ctx, rec := newContext("")
		called := false
		err := RequireAdmin(db, cch)(func(echo.Context) error { called = true; return nil })(ctx)
		require.NoError(t, err)
		require.False(t, called)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
