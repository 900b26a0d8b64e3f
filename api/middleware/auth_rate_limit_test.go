package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
	ttls   map[string]time.Duration
	err    error
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRateStore) IncrWithTTL(_ context.Context, key string, ttl time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	f.ttls[key] = ttl
	return f.counts[key], nil
}

func loginRequest(email, remote string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"`+email+`","password":"secret"}`))
	req.RemoteAddr = remote
	return req
}

func TestAuthRateLimitRestoresBodyForHandler(t *testing.T) {
	store := newFakeRateStore()
	var seen string
	handler := AuthRateLimit(NewAuthRateLimitPolicy("Login", time.Minute, 2, 2), store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen = string(body)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("Tester@Example.com ", "1.2.3.4:5678"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, seen, `"email":"Tester@Example.com "`)
	assert.Contains(t, store.counts, "sf:rate_limit:login:ip:1.2.3.4")
	for key, ttl := range store.ttls {
		assert.Equal(t, time.Minute, ttl, key)
	}
}

func TestAuthRateLimitEmailLimit(t *testing.T) {
	store := newFakeRateStore()
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", time.Minute, 0, 2), store, nil)(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		// Different IPs and casing still share the email counter.
		handler.ServeHTTP(rec, loginRequest([]string{"a@x.io", "A@X.io", " a@x.io"}[i], "10.0.0."+string(rune('1'+i))+":1"))
		codes = append(codes, rec.Code)
		if i == 2 {
			var payload struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
			assert.Equal(t, string(pkgerrors.CodeRateLimit), payload.Error.Code)
			assert.Equal(t, "60", rec.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestAuthRateLimitIPLimit(t *testing.T) {
	handler := AuthRateLimit(NewAuthRateLimitPolicy("register", time.Minute, 1, 0), newFakeRateStore(), nil)(okHandler())

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, loginRequest("foo@example.com", "5.6.7.8:1234"))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, loginRequest("bar@example.com", "5.6.7.8:4321"))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestAuthRateLimitStoreFailureIsDependencyError(t *testing.T) {
	store := newFakeRateStore()
	store.err = errors.New("redis down")
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", time.Minute, 5, 5), store, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("a@x.io", "1.1.1.1:1"))
	assert.Equal(t, pkgerrors.PolicyFor(pkgerrors.CodeDependency).Status, rec.Code)
}

func TestAuthRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	store := newFakeRateStore()
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", 0, 1, 1), store, nil)(okHandler())
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest("a@x.io", "1.1.1.1:1"))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Empty(t, store.counts)
}
