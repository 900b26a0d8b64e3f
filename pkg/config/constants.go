package config

// EnvPrefix is passed to envconfig; every field carries its full variable name.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	PaymentGatewayStripe = "stripe"
	PaymentGatewayDemo   = "demo"

	defaultSQLiteDSN = "file:storefront.db?_foreign_keys=on"
)

const (
	EnvAppEnv                  = "STOREFRONT_APP_ENV"
	EnvPort                    = "STOREFRONT_APP_PORT"
	EnvDBDSN                   = "STOREFRONT_DB_DSN"
	EnvDBHost                  = "STOREFRONT_DB_HOST"
	EnvDBUser                  = "STOREFRONT_DB_USER"
	EnvDBName                  = "STOREFRONT_DB_NAME"
	EnvRedisURL                = "STOREFRONT_REDIS_URL"
	EnvJWTSecret               = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer               = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins              = "STOREFRONT_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes  = "STOREFRONT_REFRESH_TOKEN_TTL_MINUTES"
	EnvUseSQLite               = "STOREFRONT_USE_SQLITE"
	EnvPaymentGateway          = "STOREFRONT_PAYMENT_GATEWAY"
	EnvCheckoutMaxAttempts     = "STOREFRONT_CHECKOUT_MAX_PAYMENT_ATTEMPTS"
	EnvCheckoutPaymentTimeout  = "STOREFRONT_CHECKOUT_PAYMENT_TIMEOUT"
	EnvCheckoutTaxRate         = "STOREFRONT_CHECKOUT_TAX_RATE"
	EnvStripeAPIKey            = "STOREFRONT_STRIPE_API_KEY"
	EnvPubSubOrdersTopic       = "STOREFRONT_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrderSubscription = "STOREFRONT_PUBSUB_ORDERS_SUBSCRIPTION"

	EnvCheckoutFreeShippingThreshold = "STOREFRONT_CHECKOUT_FREE_SHIPPING_THRESHOLD"
	EnvCheckoutFallbackShippingFee   = "STOREFRONT_CHECKOUT_FALLBACK_SHIPPING_FEE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
