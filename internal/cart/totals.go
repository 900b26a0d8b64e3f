package cart

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/shipping"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

// Policy holds the pricing knobs applied when totals are derived.
type Policy struct {
	FreeShippingThreshold decimal.Decimal
	FallbackShippingFee   decimal.Decimal
	TaxRate               decimal.Decimal
}

// DefaultPolicy is free shipping strictly above 100, otherwise 9.99, and a flat 10% tax.
func DefaultPolicy() Policy {
	return Policy{
		FreeShippingThreshold: decimal.NewFromInt(100),
		FallbackShippingFee:   money.MustParse("9.99"),
		TaxRate:               money.MustParse("0.10"),
	}
}

// Totals are always derived from the items, never stored.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// DisplayTotals are the totals rounded to two places for rendering.
type DisplayTotals struct {
	Subtotal string `json:"subtotal"`
	Shipping string `json:"shipping"`
	Tax      string `json:"tax"`
	Total    string `json:"total"`
}

// ComputeTotals applies the default policy.
func ComputeTotals(items []Item, method *shipping.Method) Totals {
	return DefaultPolicy().ComputeTotals(items, method)
}

// ComputeTotals derives subtotal, shipping, tax and total at full precision.
func (p Policy) ComputeTotals(items []Item, method *shipping.Method) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}

	shippingCost := p.FallbackShippingFee
	switch {
	case method != nil:
		shippingCost = method.Price
	case subtotal.GreaterThan(p.FreeShippingThreshold):
		shippingCost = decimal.Zero
	}

	tax := subtotal.Mul(p.TaxRate)
	return Totals{
		Subtotal: subtotal,
		Shipping: shippingCost,
		Tax:      tax,
		Total:    subtotal.Add(shippingCost).Add(tax),
	}
}

// Display rounds every amount half-up to two decimal places.
func (t Totals) Display() DisplayTotals {
	return DisplayTotals{
		Subtotal: money.Display(t.Subtotal),
		Shipping: money.Display(t.Shipping),
		Tax:      money.Display(t.Tax),
		Total:    money.Display(t.Total),
	}
}

// PolicyFromConfig reads the pricing knobs from checkout configuration.
func PolicyFromConfig(cfg config.CheckoutConfig) (Policy, error) {
	threshold, fallback, taxRate, err := cfg.PricingDecimals()
	if err != nil {
		return Policy{}, err
	}
	return Policy{
		FreeShippingThreshold: threshold,
		FallbackShippingFee:   fallback,
		TaxRate:               taxRate,
	}, nil
}
