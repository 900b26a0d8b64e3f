package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/pkg/money"
	pkgstripe "github.com/angelmondragon/storefront-backend/pkg/stripe"
)

const (
	StripeGatewayName = "stripe"

	MetadataUserID          = "user_id"
	MetadataCartID          = "cart_id"
	MetadataShippingAddress = "shipping_address"
	MetadataShippingMethod  = "shipping_method"
)

type stripeGateway struct {
	sessions pkgstripe.CheckoutSessionClient
	siteURL  string
}

// NewStripeGateway creates Stripe Checkout Sessions as payment preferences.
func NewStripeGateway(sessions pkgstripe.CheckoutSessionClient, siteURL string) (Gateway, error) {
	if sessions == nil {
		return nil, fmt.Errorf("stripe checkout session client required")
	}
	siteURL = strings.TrimRight(strings.TrimSpace(siteURL), "/")
	if siteURL == "" {
		return nil, fmt.Errorf("site url required")
	}
	return &stripeGateway{sessions: sessions, siteURL: siteURL}, nil
}

func (g *stripeGateway) Name() string {
	return StripeGatewayName
}

func (g *stripeGateway) CreatePreference(ctx context.Context, req PreferenceRequest, _ string) (Preference, error) {
	params := g.sessionParams(req)
	sess, err := g.sessions.Create(ctx, params)
	if err != nil {
		return Preference{}, errors.New(pkgstripe.ErrorMessage(err))
	}
	if sess == nil {
		return Preference{}, nil
	}
	return Preference{ID: sess.ID, RedirectURL: sess.URL}, nil
}

func (g *stripeGateway) sessionParams(req PreferenceRequest) *stripe.CheckoutSessionParams {
	currency := strings.ToLower(req.Currency)

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items)+1)
	for _, item := range req.Items {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name:     stripe.String(item.Name),
			Metadata: map[string]string{"product_id": item.ProductID},
		}
		if item.ImageRef != nil && *item.ImageRef != "" {
			product.Images = stripe.StringSlice([]string{*item.ImageRef})
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				UnitAmount:  stripe.Int64(money.ToMinorUnits(item.UnitPrice)),
				ProductData: product,
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}
	if tax := money.ToMinorUnits(req.Totals.Tax); tax > 0 {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(tax),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Tax (10%)"),
				},
			},
			Quantity: stripe.Int64(1),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(g.siteURL + "/checkout/success"),
		CancelURL:         stripe.String(g.siteURL + "/checkout/failure"),
		ClientReferenceID: stripe.String(req.UserID.String()),
		LineItems:         lineItems,
		ShippingOptions: []*stripe.CheckoutSessionShippingOptionParams{
			{
				ShippingRateData: &stripe.CheckoutSessionShippingOptionShippingRateDataParams{
					DisplayName: stripe.String(req.ShippingMethod.Name),
					Type:        stripe.String("fixed_amount"),
					FixedAmount: &stripe.CheckoutSessionShippingOptionShippingRateDataFixedAmountParams{
						Amount:   stripe.Int64(money.ToMinorUnits(req.ShippingMethod.Price)),
						Currency: stripe.String(currency),
					},
				},
			},
		},
	}
	params.AddMetadata(MetadataUserID, req.UserID.String())
	params.AddMetadata(MetadataCartID, req.CartID.String())
	params.AddMetadata(MetadataShippingAddress, shippingLine(req.ShippingAddress))
	params.AddMetadata(MetadataShippingMethod, string(req.ShippingMethod.ID))
	return params
}

func shippingLine(a address.Address) string {
	return fmt.Sprintf("%s, %s, %s, %s", address.Format(a), a.City, a.State, a.ZipCode)
}
