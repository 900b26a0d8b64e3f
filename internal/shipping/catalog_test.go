package shipping

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func TestCatalogList(t *testing.T) {
	methods := NewCatalog().List()
	if len(methods) != 3 {
		t.Fatalf("expected 3 methods, got %d", len(methods))
	}

	want := map[enums.ShippingMethodID]string{
		enums.ShippingMethodStandard: "9.99",
		enums.ShippingMethodExpress:  "19.99",
		enums.ShippingMethodSameDay:  "29.99",
	}
	for _, method := range methods {
		price, ok := want[method.ID]
		if !ok {
			t.Fatalf("unexpected method %q", method.ID)
		}
		if !method.Price.Equal(decimal.RequireFromString(price)) {
			t.Fatalf("method %s: expected price %s got %s", method.ID, price, method.Price)
		}
		if method.EstimatedDays == "" {
			t.Fatalf("method %s missing ETA", method.ID)
		}
	}
}

func TestCatalogListReturnsCopy(t *testing.T) {
	c := NewCatalog()
	methods := c.List()
	methods[0].Price = decimal.Zero

	if c.List()[0].Price.IsZero() {
		t.Fatalf("mutating the listed slice changed the catalog")
	}
}

func TestCatalogSelect(t *testing.T) {
	c := NewCatalog()

	method, err := c.Select(" express ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if method.ID != enums.ShippingMethodExpress {
		t.Fatalf("expected express, got %s", method.ID)
	}

	if _, err := c.Select(""); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty selection, got %v", err)
	}
	if _, err := c.Select("drone"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for unknown method, got %v", err)
	}
}
