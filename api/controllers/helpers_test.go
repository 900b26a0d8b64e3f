package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.ErrorEnvelope {
	t.Helper()
	var env types.ErrorEnvelope
	body := rec.Body.String()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env), body)
	return env
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var env struct {
		Data T `json:"data"`
	}
	body := rec.Body.String()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env), body)
	return env.Data
}

func withCart(r *http.Request, cartID uuid.UUID) *http.Request {
	return r.WithContext(middleware.WithCartID(r.Context(), cartID))
}

func withUser(r *http.Request, userID uuid.UUID, role string) *http.Request {
	return r.WithContext(middleware.WithIdentity(r.Context(), userID.String(), role, "token-"+userID.String()))
}
