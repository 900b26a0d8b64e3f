package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/webhooks"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/shipping"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

// redisStore is the slice of the Redis client the HTTP layer needs.
type redisStore interface {
	Ping(context.Context) error
	Get(context.Context, string) (string, error)
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	Set(context.Context, string, any, time.Duration) error
	Del(context.Context, ...string) error
	IdempotencyKey(scope, id string) string
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

type pinger interface {
	Ping(context.Context) error
}

type eventVerifier interface {
	VerifyEvent(payload []byte, signature string) (stripe.Event, error)
}

type webhookGuard interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// Params carries everything the router mounts. AdminRegister and the Stripe
// fields are optional; their routes are only mounted when set.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       pinger
	Redis    redisStore
	Sessions session.AccessSessionChecker
	Gatherer prometheus.Gatherer

	Auth          auth.Service
	Register      auth.RegisterService
	AdminRegister auth.RegisterService
	Cart          cart.Service
	Shipping      shipping.Catalog
	Checkout      checkoutsvc.Service
	Profiles      address.Service
	Orders        orders.Service

	StripeWebhook  webhookcontrollers.StripeWebhookService
	StripeVerifier eventVerifier
	WebhookGuard   webhookGuard
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.AccessLog(logg),
		middleware.Recoverer(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	idempotent := middleware.Idempotency(p.Redis, middleware.IdempotencyTTL, logg)
	paymentIdempotent := middleware.Idempotency(p.Redis, middleware.PaymentIdempotencyTTL, logg)
	optionalAuth := middleware.OptionalAuth(cfg.JWT, p.Sessions, logg)
	throttle := middleware.NewIPRateLimiter(cfg.APIRateLimit.RPS, cfg.APIRateLimit.Burst).Middleware

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg,
			controllers.Dependency{Name: "database", Pinger: p.DB},
			controllers.Dependency{Name: "redis", Pinger: p.Redis},
		))
	})

	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(p.Gatherer))
	}

	if p.StripeWebhook != nil && p.StripeVerifier != nil && p.WebhookGuard != nil {
		r.Post("/api/v1/webhooks/stripe", webhookcontrollers.StripeWebhook(p.StripeWebhook, p.StripeVerifier, p.WebhookGuard, logg))
	}

	// Health, metrics and the Stripe webhook stay outside the per-IP limiter.
	r.Group(func(r chi.Router) {
		r.Use(throttle)

		r.Route("/api/v1/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/login", controllers.AuthLogin(p.Auth, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, p.Redis, logg), idempotent).Post("/register", controllers.AuthRegister(p.Register, p.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(p.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(p.Auth, cfg.JWT, logg))
		})

		r.Get("/api/v1/shipping-methods", controllers.ShippingMethods(p.Shipping, logg))

		r.Route("/api/v1/cart", func(r chi.Router) {
			r.Use(optionalAuth, middleware.CartID(logg))
			r.Get("/", controllers.CartFetch(p.Cart, logg))
			r.With(idempotent).Post("/items", controllers.CartAddItem(p.Cart, logg))
			r.Patch("/items/{productId}", controllers.CartSetQuantity(p.Cart, logg))
			r.Delete("/items/{productId}", controllers.CartRemoveItem(p.Cart, logg))
		})

		r.Route("/api/v1/checkout", func(r chi.Router) {
			r.Use(optionalAuth, middleware.CartID(logg))
			r.Get("/", controllers.CheckoutSnapshot(p.Checkout, logg))
			r.Put("/address", controllers.CheckoutSetAddress(p.Checkout, logg))
			r.Put("/shipping", controllers.CheckoutSelectShipping(p.Checkout, logg))
			r.Post("/steps/{step}/open", controllers.CheckoutOpenStep(p.Checkout, logg))
			r.With(paymentIdempotent).Post("/payment", controllers.CheckoutPay(p.Checkout, logg))
			r.With(paymentIdempotent).Post("/payment/retry", controllers.CheckoutRetry(p.Checkout, logg))
			r.With(paymentIdempotent).Post("/return", controllers.CheckoutReturn(p.Checkout, logg))
		})

		r.Route("/api/v1/profile", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))
			r.Get("/address", controllers.ProfileAddress(p.Profiles, logg))
		})

		r.Route("/api/admin/v1", func(r chi.Router) {
			if p.AdminRegister != nil {
				r.With(middleware.AuthRateLimit(registerPolicy, p.Redis, logg)).Post("/auth/register", controllers.AuthRegister(p.AdminRegister, p.Auth, logg))
			}
			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))
				r.Use(middleware.RequireCapability(enums.CapabilityOrdersManage, logg))
				r.Get("/orders", controllers.AdminOrders(p.Orders, logg))
			})
		})
	})

	return r
}
