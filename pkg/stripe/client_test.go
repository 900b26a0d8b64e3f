package stripe

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func TestNewClientValidatesKeys(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.StripeConfig
		wantEnv Environment
		wantErr bool
	}{
		{name: "test key", cfg: config.StripeConfig{APIKey: "sk_test_123", Secret: "whsec_1", Env: "test"}, wantEnv: EnvTest},
		{name: "env defaults to test", cfg: config.StripeConfig{APIKey: "rk_test_123", Secret: "whsec_1"}, wantEnv: EnvTest},
		{name: "restricted live key", cfg: config.StripeConfig{APIKey: "rk_live_123", Secret: "whsec_1", Env: " LIVE "}, wantEnv: EnvLive},
		{name: "live key in test env", cfg: config.StripeConfig{APIKey: "sk_live_123", Secret: "whsec_1", Env: "test"}, wantErr: true},
		{name: "publishable key", cfg: config.StripeConfig{APIKey: "pk_test_123", Secret: "whsec_1"}, wantErr: true},
		{name: "missing secret", cfg: config.StripeConfig{APIKey: "sk_test_123", Env: "test"}, wantErr: true},
		{name: "missing key", cfg: config.StripeConfig{Secret: "whsec_1"}, wantErr: true},
		{name: "unknown env", cfg: config.StripeConfig{APIKey: "sk_test_123", Secret: "whsec_1", Env: "staging"}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, err := NewClient(context.Background(), tc.cfg, nil)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantEnv, client.Environment())
			assert.Equal(t, "whsec_1", client.webhookSecret)
		})
	}
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "", ErrorMessage(nil))
	assert.Equal(t, "boom", ErrorMessage(errors.New("boom")))

	declined := &stripe.Error{Msg: "card declined", Code: stripe.ErrorCodeCardDeclined}
	assert.Equal(t, "card declined", ErrorMessage(fmt.Errorf("create session: %w", declined)))
}

func TestVerifyEventRejectsBadSignature(t *testing.T) {
	client := &Client{webhookSecret: "whsec_test"}
	_, err := client.VerifyEvent([]byte(`{"id":"evt_1"}`), "t=1,v1=bad")
	assert.Error(t, err)

	var nilClient *Client
	_, err = nilClient.VerifyEvent(nil, "")
	assert.Error(t, err)
}

func TestCheckoutSessionClientNeedsConfiguredClient(t *testing.T) {
	assert.Nil(t, NewCheckoutSessionClient(nil))
	_, err := NewCheckoutSessionClient(&Client{}).Create(context.Background(), nil)
	assert.Error(t, err)
}
