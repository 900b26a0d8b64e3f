package shipping

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

// Method is an entry of the shipping catalog.
type Method struct {
	ID            enums.ShippingMethodID `json:"id"`
	Name          string                 `json:"name"`
	Price         decimal.Decimal        `json:"price"`
	EstimatedDays string                 `json:"estimated_days"`
}

// Catalog lists the shipping methods offered at checkout.
type Catalog interface {
	List() []Method
	Select(id string) (Method, error)
}

type catalog struct {
	methods []Method
}

// DefaultMethods returns the fixed standard/express/same-day catalog.
func DefaultMethods() []Method {
	return []Method{
		{
			ID:            enums.ShippingMethodStandard,
			Name:          "Standard delivery",
			Price:         money.MustParse("9.99"),
			EstimatedDays: "5-7 business days",
		},
		{
			ID:            enums.ShippingMethodExpress,
			Name:          "Express delivery",
			Price:         money.MustParse("19.99"),
			EstimatedDays: "2-3 business days",
		},
		{
			ID:            enums.ShippingMethodSameDay,
			Name:          "Same-day delivery",
			Price:         money.MustParse("29.99"),
			EstimatedDays: "Today (orders until 12h)",
		},
	}
}

// NewCatalog returns the default catalog.
func NewCatalog() Catalog {
	return &catalog{methods: DefaultMethods()}
}

// List returns a copy of the catalog in display order.
func (c *catalog) List() []Method {
	out := make([]Method, len(c.methods))
	copy(out, c.methods)
	return out
}

// Select resolves a method by id. An empty id means nothing was chosen yet.
func (c *catalog) Select(id string) (Method, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return Method{}, ErrNoMethodSelected()
	}
	for _, method := range c.methods {
		if string(method.ID) == trimmed {
			return method, nil
		}
	}
	return Method{}, pkgerrors.New(pkgerrors.CodeNotFound, "shipping method not found").
		WithDetails(map[string]any{"shipping_method_id": trimmed})
}

// ErrNoMethodSelected blocks the proceed action until a method is chosen.
func ErrNoMethodSelected() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeValidation, "select a shipping method to continue").
		WithDetails(map[string]string{"shipping_method_id": "required"})
}
