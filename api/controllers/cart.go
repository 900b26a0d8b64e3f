package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/validators"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type setQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

func cartIDFromRequest(r *http.Request) (uuid.UUID, error) {
	if id := middleware.CartIDFromContext(r.Context()); id != uuid.Nil {
		return id, nil
	}
	return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id required").
		WithDetails(map[string]string{"header": middleware.CartIDHeader})
}

type cartCall func(r *http.Request, cartID uuid.UUID) (*cartsvc.View, error)

// cartHandler resolves the cart id, then renders the view call returns.
func cartHandler(svc cartsvc.Service, logg *logger.Logger, status int, call cartCall) http.HandlerFunc {
	if svc == nil {
		return serve(logg, status, unavailable("cart"))
	}
	return serve(logg, status, func(_ http.ResponseWriter, r *http.Request) (any, error) {
		cartID, err := cartIDFromRequest(r)
		if err != nil {
			return nil, err
		}
		return call(r, cartID)
	})
}

// withProduct adds the {productId} path parameter to a cart call.
func withProduct(call func(r *http.Request, cartID uuid.UUID, productID string) (*cartsvc.View, error)) cartCall {
	return func(r *http.Request, cartID uuid.UUID) (*cartsvc.View, error) {
		productID := strings.TrimSpace(chi.URLParam(r, "productId"))
		if productID == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		return call(r, cartID, productID)
	}
}

func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, func(r *http.Request, cartID uuid.UUID) (*cartsvc.View, error) {
		return svc.Get(r.Context(), cartID)
	})
}

// CartAddItem merges quantities when the product is already in the cart.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusCreated, func(r *http.Request, cartID uuid.UUID) (*cartsvc.View, error) {
		var in cartsvc.AddItemInput
		if err := validators.DecodeJSONBody(r, &in); err != nil {
			return nil, err
		}
		return svc.AddItem(r.Context(), cartID, in)
	})
}

// CartSetQuantity removes the item when the quantity drops below one.
func CartSetQuantity(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, withProduct(func(r *http.Request, cartID uuid.UUID, productID string) (*cartsvc.View, error) {
		var body setQuantityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.SetQuantity(r.Context(), cartID, productID, *body.Quantity)
	}))
}

func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, withProduct(func(r *http.Request, cartID uuid.UUID, productID string) (*cartsvc.View, error) {
		return svc.RemoveItem(r.Context(), cartID, productID)
	}))
}
