package stripe

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
)

// CheckoutSessionClient is the slice of the Checkout Sessions API the
// payment gateway uses.
type CheckoutSessionClient interface {
	Create(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(ctx context.Context, id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type checkoutSessions struct{}

// NewCheckoutSessionClient needs an initialized client so stripe.Key is set.
func NewCheckoutSessionClient(client *Client) CheckoutSessionClient {
	if client == nil {
		return nil
	}
	return checkoutSessions{}
}

func (checkoutSessions) Create(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params == nil {
		return nil, errors.New("checkout session params are required")
	}
	params.Context = ctx
	return session.New(params)
}

func (checkoutSessions) Get(ctx context.Context, id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params == nil {
		params = &stripe.CheckoutSessionParams{}
	}
	params.Context = ctx
	return session.Get(id, params)
}

// ErrorMessage prefers the message Stripe wrote for the customer.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	return err.Error()
}
