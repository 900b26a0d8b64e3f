package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	rec := httptest.NewRecorder()
	HealthLive(cfg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dev", rec.Header().Get("X-Storefront-Env"))
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}

	t.Run("all dependencies up", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HealthReady(cfg, nil,
			Dependency{Name: "database", Pinger: stubPinger{}},
			Dependency{Name: "redis", Pinger: stubPinger{}},
		).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("redis down", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HealthReady(cfg, nil,
			Dependency{Name: "database", Pinger: stubPinger{}},
			Dependency{Name: "redis", Pinger: stubPinger{err: errors.New("connection refused")}},
		).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		env := decodeError(t, rec)
		assert.Equal(t, "redis", env.Error.Details.(map[string]any)["dependency"])
	})
}
