package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payment"
	"github.com/angelmondragon/storefront-backend/internal/shipping"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type memRedis struct {
	mu   sync.Mutex
	data map[string]string
	hits map[string]int64
}

func newMemRedis() *memRedis {
	return &memRedis{data: map[string]string{}, hits: map[string]int64{}}
}

func (m *memRedis) Ping(context.Context) error { return nil }

func (m *memRedis) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memRedis) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	switch v := value.(type) {
	case string:
		m.data[key] = v
	case []byte:
		m.data[key] = string(v)
	}
	return true, nil
}

func (m *memRedis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key], _ = value.(string)
	return nil
}

func (m *memRedis) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memRedis) IdempotencyKey(scope, id string) string { return "test:idem:" + scope + ":" + id }

func (m *memRedis) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits[key]++
	return m.hits[key], nil
}

type stubSessions struct{}

func (stubSessions) HasSession(ctx context.Context, accessID string) (bool, error) { return true, nil }

type stubCart struct {
	cart.Service
}

func (stubCart) Get(ctx context.Context, cartID uuid.UUID) (*cart.View, error) {
	return &cart.View{CartID: cartID}, nil
}

type countingCheckout struct {
	checkoutsvc.Service
	mu   sync.Mutex
	pays int
	sess *payment.Session
}

func (c *countingCheckout) Pay(ctx context.Context, cartID uuid.UUID, sess *payment.Session) (*checkoutsvc.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pays++
	c.sess = sess
	return &checkoutsvc.Snapshot{CartID: cartID, LoginRequired: sess == nil}, nil
}

type stubProfiles struct {
	address.Service
}

func (stubProfiles) Load(ctx context.Context, userID uuid.UUID) (*address.Draft, error) {
	return nil, nil
}

type stubOrders struct {
	orders.Service
}

func (stubOrders) List(ctx context.Context, params pagination.Params, filters orders.ListFilters) (*orders.OrderList, error) {
	return &orders.OrderList{Orders: []orders.OrderDTO{}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev"},
		JWT: config.JWTConfig{
			Secret:            "router-secret",
			Issuer:            "storefront",
			ExpirationMinutes: 30,
		},
	}
}

func testParams(cfg *config.Config) Params {
	return Params{
		Config:   cfg,
		Logger:   logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard}),
		DB:       stubPinger{},
		Redis:    newMemRedis(),
		Sessions: stubSessions{},
		Gatherer: prometheus.NewRegistry(),
		Cart:     stubCart{},
		Shipping: shipping.NewCatalog(),
		Checkout: &countingCheckout{},
		Profiles: stubProfiles{},
		Orders:   stubOrders{},
	}
}

func buildToken(t *testing.T, cfg *config.Config, userID uuid.UUID, role enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: userID,
		Email:  "user@example.com",
		Role:   role,
		JTI:    uuid.NewString(),
	})
	require.NoError(t, err)
	return token
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMetrics(t *testing.T) {
	router := NewRouter(testParams(testConfig()))

	assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/health/live", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/health/ready", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/metrics", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/shipping-methods", nil)).Code)
}

func TestCartRoutesRequireCartHeader(t *testing.T) {
	router := NewRouter(testParams(testConfig()))

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(middleware.CartIDHeader, uuid.NewString())
	rec = serve(router, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPaymentRequiresIdempotencyKeyAndReplays(t *testing.T) {
	cfg := testConfig()
	params := testParams(cfg)
	checkout := &countingCheckout{}
	params.Checkout = checkout
	router := NewRouter(params)
	cartID := uuid.NewString()

	missing := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/payment", nil)
	missing.Header.Set(middleware.CartIDHeader, cartID)
	assert.Equal(t, http.StatusBadRequest, serve(router, missing).Code)
	assert.Zero(t, checkout.pays)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/payment", strings.NewReader(""))
		req.Header.Set(middleware.CartIDHeader, cartID)
		req.Header.Set("Idempotency-Key", "pay-1")
		rec := serve(router, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	assert.Equal(t, 1, checkout.pays)
}

func TestCheckoutCarriesOptionalIdentity(t *testing.T) {
	cfg := testConfig()
	params := testParams(cfg)
	checkout := &countingCheckout{}
	params.Checkout = checkout
	router := NewRouter(params)
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/payment", nil)
	req.Header.Set(middleware.CartIDHeader, uuid.NewString())
	req.Header.Set("Idempotency-Key", "pay-2")
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, userID, enums.RoleCustomer))
	rec := serve(router, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, checkout.sess)
	assert.Equal(t, userID, checkout.sess.UserID)
}

func TestProfileRequiresAuth(t *testing.T) {
	cfg := testConfig()
	router := NewRouter(testParams(cfg))

	assert.Equal(t, http.StatusUnauthorized, serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/profile/address", nil)).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile/address", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, uuid.New(), enums.RoleCustomer))
	assert.Equal(t, http.StatusOK, serve(router, req).Code)
}

func TestAdminOrdersRequireCapability(t *testing.T) {
	cfg := testConfig()
	router := NewRouter(testParams(cfg))

	assert.Equal(t, http.StatusUnauthorized, serve(router, httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)).Code)

	customer := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, uuid.New(), enums.RoleCustomer))
	assert.Equal(t, http.StatusForbidden, serve(router, customer).Code)

	admin := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, uuid.New(), enums.RoleAdmin))
	assert.Equal(t, http.StatusOK, serve(router, admin).Code)
}

func TestOptionalRoutesAreNotMountedWithoutDependencies(t *testing.T) {
	router := NewRouter(testParams(testConfig()))

	assert.Equal(t, http.StatusNotFound, serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", nil)).Code)
	assert.Equal(t, http.StatusNotFound, serve(router, httptest.NewRequest(http.MethodPost, "/api/admin/v1/auth/register", nil)).Code)
}

func TestCORSPreflight(t *testing.T) {
	router := NewRouter(testParams(testConfig()))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/cart", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", middleware.CartIDHeader)
	rec := serve(router, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
