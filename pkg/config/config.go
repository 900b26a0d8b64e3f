package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/money"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	APIRateLimit  APIRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Checkout      CheckoutConfig
	Payment       PaymentConfig
	Stripe        StripeConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Outbox        OutboxConfig
	Maintenance   MaintenanceConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Payment.validate(cfg.App); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`

	// CORSOrigins is a comma separated allow list; empty means the local dev origins.
	CORSOrigins []string `envconfig:"STOREFRONT_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind        string `envconfig:"STOREFRONT_SERVICE_KIND" default:"api"`
	MetricsAddr string `envconfig:"STOREFRONT_METRICS_ADDR"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// SlowQueryThreshold logs statements slower than this at warn. Zero disables it.
	SlowQueryThreshold time.Duration `envconfig:"STOREFRONT_DB_SLOW_QUERY_THRESHOLD" default:"200ms"`
}

// IsSQLite reports whether the configured driver targets the embedded sqlite database.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"STOREFRONT_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"STOREFRONT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"STOREFRONT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"STOREFRONT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"STOREFRONT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"STOREFRONT_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// APIRateLimitConfig is the per-replica token bucket for each client IP.
// RPS of zero disables it.
type APIRateLimitConfig struct {
	RPS   float64 `envconfig:"STOREFRONT_API_RATE_LIMIT_RPS" default:"20"`
	Burst int     `envconfig:"STOREFRONT_API_RATE_LIMIT_BURST" default:"40"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

// CheckoutConfig holds the pricing policy and payment limits applied during checkout.
type CheckoutConfig struct {
	SessionTTL            time.Duration `envconfig:"STOREFRONT_CHECKOUT_SESSION_TTL" default:"24h"`
	FreeShippingThreshold string        `envconfig:"STOREFRONT_CHECKOUT_FREE_SHIPPING_THRESHOLD" default:"100"`
	FallbackShippingFee   string        `envconfig:"STOREFRONT_CHECKOUT_FALLBACK_SHIPPING_FEE" default:"9.99"`
	TaxRate               string        `envconfig:"STOREFRONT_CHECKOUT_TAX_RATE" default:"0.10"`
	MaxPaymentAttempts    int           `envconfig:"STOREFRONT_CHECKOUT_MAX_PAYMENT_ATTEMPTS" default:"3"`
	PaymentTimeout        time.Duration `envconfig:"STOREFRONT_CHECKOUT_PAYMENT_TIMEOUT" default:"15s"`
	Currency              string        `envconfig:"STOREFRONT_CHECKOUT_CURRENCY" default:"BRL"`
	SiteURL               string        `envconfig:"STOREFRONT_SITE_URL" default:"http://localhost:3000"`
}

// PricingDecimals parses the textual pricing knobs into exact decimals.
// Negative values are rejected.
func (c CheckoutConfig) PricingDecimals() (threshold, fallback, taxRate decimal.Decimal, err error) {
	knobs := []struct {
		env string
		raw string
		out *decimal.Decimal
	}{
		{EnvCheckoutFreeShippingThreshold, c.FreeShippingThreshold, &threshold},
		{EnvCheckoutFallbackShippingFee, c.FallbackShippingFee, &fallback},
		{EnvCheckoutTaxRate, c.TaxRate, &taxRate},
	}
	for _, k := range knobs {
		if *k.out, err = money.Parse(k.raw); err != nil {
			return decimal.Zero, decimal.Zero, decimal.Zero, fmt.Errorf("parsing %s: %w", k.env, err)
		}
	}
	return threshold, fallback, taxRate, nil
}

type PaymentConfig struct {
	Gateway string `envconfig:"STOREFRONT_PAYMENT_GATEWAY" default:"demo"`
}

// Kind returns the normalized gateway name.
func (p PaymentConfig) Kind() string {
	kind := strings.ToLower(strings.TrimSpace(p.Gateway))
	if kind == "" {
		return PaymentGatewayDemo
	}
	return kind
}

func (p PaymentConfig) validate(app AppConfig) error {
	switch p.Kind() {
	case PaymentGatewayStripe:
		return nil
	case PaymentGatewayDemo:
		if app.IsProd() {
			return fmt.Errorf("%s=%s is not allowed in production", EnvPaymentGateway, PaymentGatewayDemo)
		}
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q", EnvPaymentGateway, PaymentGatewayStripe, PaymentGatewayDemo)
	}
}

type StripeConfig struct {
	APIKey string `envconfig:"STOREFRONT_STRIPE_API_KEY"`
	Secret string `envconfig:"STOREFRONT_STRIPE_SECRET"`
	Env    string `envconfig:"STOREFRONT_STRIPE_ENV" default:"test"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"STOREFRONT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"STOREFRONT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"STOREFRONT_PUBSUB_ORDERS_TOPIC" default:"sf-order-events"`
	OrdersSubscription string `envconfig:"STOREFRONT_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type BigQueryConfig struct {
	DatasetID        string `envconfig:"STOREFRONT_BIGQUERY_DATASET"`
	OrderEventsTable string `envconfig:"STOREFRONT_BIGQUERY_ORDER_EVENTS_TABLE" default:"order_events"`
	ProjectID        string `envconfig:"STOREFRONT_BIGQUERY_PROJECT_ID"`
}

// Enabled reports whether order events should be mirrored to BigQuery.
func (b BigQueryConfig) Enabled() bool {
	return strings.TrimSpace(b.DatasetID) != ""
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"STOREFRONT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"STOREFRONT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"STOREFRONT_OUTBOX_MAX_ATTEMPTS" default:"10"`
	IdempotencyTTL time.Duration `envconfig:"STOREFRONT_OUTBOX_IDEMPOTENCY_TTL" default:"168h"`
}

// MaintenanceConfig drives the cron worker.
type MaintenanceConfig struct {
	Interval        time.Duration `envconfig:"STOREFRONT_MAINTENANCE_INTERVAL" default:"1h"`
	OutboxRetention time.Duration `envconfig:"STOREFRONT_MAINTENANCE_OUTBOX_RETENTION" default:"720h"`
	PendingOrderTTL time.Duration `envconfig:"STOREFRONT_MAINTENANCE_PENDING_ORDER_TTL" default:"48h"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DBDriverSQLite
		if db.DSN == "" {
			db.DSN = defaultSQLiteDSN
		}
		return nil
	}
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
