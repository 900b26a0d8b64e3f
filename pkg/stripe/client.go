// Package stripe configures stripe-go for the storefront and exposes the
// Checkout Session and webhook calls the payment flow makes.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Environment is the Stripe account mode a key belongs to.
type Environment string

const (
	EnvTest Environment = "test"
	EnvLive Environment = "live"
)

func parseEnvironment(raw string) (Environment, error) {
	switch env := Environment(strings.ToLower(strings.TrimSpace(raw))); env {
	case "", EnvTest:
		return EnvTest, nil
	case EnvLive:
		return EnvLive, nil
	default:
		return "", fmt.Errorf("stripe environment must be %q or %q, got %q", EnvTest, EnvLive, raw)
	}
}

// acceptsKey is true for secret (sk_) and restricted (rk_) keys of the mode.
func (e Environment) acceptsKey(key string) bool {
	for _, kind := range []string{"sk_", "rk_"} {
		if strings.HasPrefix(key, kind+string(e)+"_") {
			return true
		}
	}
	return false
}

// Client carries the webhook secret. stripe-go's package-level resources
// read the API key from stripe.Key, which NewClient sets.
type Client struct {
	env           Environment
	webhookSecret string
}

func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := parseEnvironment(cfg.Env)
	if err != nil {
		return nil, err
	}
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errors.New("stripe api key is required")
	}
	if !env.acceptsKey(key) {
		return nil, fmt.Errorf("stripe %s environment needs a sk_%s_ or rk_%s_ key", env, env, env)
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("stripe webhook secret is required")
	}

	stripe.Key = key
	stripe.SetAppInfo(&stripe.AppInfo{Name: "storefront-backend"})

	if logg != nil {
		logg.Info(logg.WithField(ctx, "stripe_env", string(env)), "stripe client initialized")
	}
	return &Client{env: env, webhookSecret: secret}, nil
}

func (c *Client) Environment() Environment {
	if c == nil {
		return ""
	}
	return c.env
}

// VerifyEvent checks the Stripe-Signature header against the webhook secret
// and decodes the event. Events rendered for another API version are still
// accepted; handlers only read fields stable across versions.
func (c *Client) VerifyEvent(payload []byte, signature string) (stripe.Event, error) {
	if c == nil {
		return stripe.Event{}, errors.New("stripe client not initialized")
	}
	return webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}
