package router

import (
	"net/http"
	"testing"

	"tablebook/internal/cache"
	"tablebook/internal/database"
	"tablebook/internal/events"
	"tablebook/internal/worker"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func TestSetupRoutes(t *testing.T) {
	e := echo.New()
	pool := worker.NewPool(1, 0)
	defer pool.Stop()
	Setup(e, &database.FakeDB{}, &cache.FakeCache{}, events.NopPublisher{}, pool)

	got := map[string]struct{}{}
	for _, r := range e.Routes() {
		got[r.Method+" "+r.Path] = struct{}{}
	}

	expected := []string{
		http.MethodGet + " /api/ping",
		http.MethodPost + " /api/auth/register",
		http.MethodPost + " /api/auth/login",
		http.MethodPost + " /api/auth/logout",
		http.MethodPost + " /api/users",
		http.MethodGet + " /api/users",
		http.MethodGet + " /api/users/:id",
		http.MethodPut + " /api/users/:id",
		http.MethodDelete + " /api/users/:id",
		http.MethodGet + " /api/users/me",
		http.MethodPut + " /api/users/me",
		http.MethodDelete + " /api/users/me",
		http.MethodPatch + " /api/users/me/password",
		http.MethodPost + " /api/reservations",
		http.MethodGet + " /api/reservations",
		http.MethodGet + " /api/reservations/:id",
		http.MethodPut + " /api/reservations/:id",
		http.MethodPatch + " /api/reservations/:id",
		http.MethodDelete + " /api/reservations/:id",
	}

	require.Equal(t, len(expected), len(got))
	for _, k := range expected {
		_, ok := got[k]
		require.True(t, ok, "missing route %s", k)
	}
}
