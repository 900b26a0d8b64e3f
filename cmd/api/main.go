package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payment"
	"github.com/angelmondragon/storefront-backend/internal/shipping"
	"github.com/angelmondragon/storefront-backend/internal/users"
	stripewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/instance"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	pkgstripe "github.com/angelmondragon/storefront-backend/pkg/stripe"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)

	err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient)
	requireResource(ctx, logg, "dev migrations", err)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(reg)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(ctx, logg, "session manager", err)

	userRepo := users.NewRepository(dbClient.DB())
	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	requireResource(ctx, logg, "auth service", err)

	registerParams := auth.RegisterServiceParams{DB: dbClient, PasswordConfig: cfg.Password}
	registerService, err := auth.NewRegisterService(registerParams)
	requireResource(ctx, logg, "register service", err)

	var adminRegisterService auth.RegisterService
	if cfg.App.IsDev() {
		adminRegisterService, err = auth.NewAdminRegisterService(registerParams)
		requireResource(ctx, logg, "admin register service", err)
	}

	profiles, err := address.NewService(userRepo, logg)
	requireResource(ctx, logg, "profile service", err)

	policy, err := cart.PolicyFromConfig(cfg.Checkout)
	requireResource(ctx, logg, "pricing policy", err)
	cartService, err := cart.NewService(cart.NewRepository(dbClient.DB()), policy, logg)
	requireResource(ctx, logg, "cart service", err)

	ordersService, err := orders.NewService(
		orders.NewRepository(dbClient.DB()),
		dbClient,
		outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		logg,
	)
	requireResource(ctx, logg, "orders service", err)

	params := routes.Params{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Redis:         redisClient,
		Sessions:      sessionManager,
		Gatherer:      reg,
		Auth:          authService,
		Register:      registerService,
		AdminRegister: adminRegisterService,
		Cart:          cartService,
		Shipping:      shipping.NewCatalog(),
		Profiles:      profiles,
		Orders:        ordersService,
	}

	var gateway payment.Gateway
	switch cfg.Payment.Kind() {
	case config.PaymentGatewayStripe:
		stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
		requireResource(ctx, logg, "stripe client", err)
		gateway, err = payment.NewStripeGateway(pkgstripe.NewCheckoutSessionClient(stripeClient), cfg.Checkout.SiteURL)
		requireResource(ctx, logg, "stripe gateway", err)

		webhookService, err := stripewebhook.NewService(ordersService, logg)
		requireResource(ctx, logg, "stripe webhook service", err)
		guard, err := stripewebhook.NewIdempotencyGuard(redisClient, 0)
		requireResource(ctx, logg, "stripe webhook guard", err)

		params.StripeWebhook = webhookService
		params.StripeVerifier = stripeClient
		params.WebhookGuard = guard
	default:
		gateway = payment.NewDemoGateway(cfg.Checkout.SiteURL)
	}

	orchestrator, err := payment.NewOrchestrator(gateway, payment.Options{
		MaxAttempts: cfg.Checkout.MaxPaymentAttempts,
		Currency:    cfg.Checkout.Currency,
		Runner:      payment.NewTaskRunner(cfg.Checkout.PaymentTimeout),
		Metrics:     checkoutMetrics,
	}, logg)
	requireResource(ctx, logg, "payment orchestrator", err)

	sessionStore, err := checkout.NewRedisStore(redisClient, cfg.Checkout.SessionTTL)
	requireResource(ctx, logg, "checkout session store", err)

	params.Checkout, err = checkout.NewService(checkout.Deps{
		Store:        sessionStore,
		Carts:        cartService,
		Catalog:      params.Shipping,
		Profiles:     profiles,
		Orchestrator: orchestrator,
		Orders:       ordersService,
		GatewayName:  cfg.Payment.Kind(),
		Currency:     cfg.Checkout.Currency,
		Metrics:      checkoutMetrics,
		Logger:       logg,
	})
	requireResource(ctx, logg, "checkout service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID(),
		"gateway":  cfg.Payment.Kind(),
	})
	logg.Info(runCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(params),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := multierr.Combine(
			server.Shutdown(shutdownCtx),
			redisClient.Close(),
			dbClient.Close(),
		)
		if err != nil {
			logg.Error(ctx, "api shutdown incomplete", err)
			os.Exit(1)
		}
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
