package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/address"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/payment"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type selectShippingRequest struct {
	MethodID string `json:"method_id" validate:"required,max=64"`
}

// paymentSession returns nil for guests. The identity itself was verified by
// the auth middleware.
func paymentSession(r *http.Request) (*payment.Session, error) {
	ctx := r.Context()
	raw := middleware.UserIDFromContext(ctx)
	if raw == "" {
		return nil, nil
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return &payment.Session{
		UserID:      userID,
		Role:        enums.Role(middleware.RoleFromContext(ctx)),
		AccessToken: middleware.AccessTokenFromContext(ctx),
	}, nil
}

type checkoutCall func(r *http.Request, cartID uuid.UUID, sess *payment.Session) (*checkoutsvc.Snapshot, error)

// checkoutHandler resolves the cart and caller, then renders the snapshot the call returns.
func checkoutHandler(svc checkoutsvc.Service, logg *logger.Logger, call checkoutCall) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		cartID, err := cartIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess, err := paymentSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := call(r, cartID, sess)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

// CheckoutSnapshot renders the current checkout of the cart.
func CheckoutSnapshot(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return checkoutHandler(svc, logg, func(r *http.Request, cartID uuid.UUID, sess *payment.Session) (*checkoutsvc.Snapshot, error) {
		return svc.Snapshot(r.Context(), cartID, sess)
	})
}

// CheckoutSetAddress validates the shipping address and advances to the shipping step.
func CheckoutSetAddress(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return checkoutHandler(svc, logg, func(r *http.Request, cartID uuid.UUID, sess *payment.Session) (*checkoutsvc.Snapshot, error) {
		var draft address.Draft
		if err := validators.DecodeJSON(r, &draft); err != nil {
			return nil, err
		}
		return svc.SetAddress(r.Context(), cartID, sess, draft)
	})
}

func CheckoutSelectShipping(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return checkoutHandler(svc, logg, func(r *http.Request, cartID uuid.UUID, sess *payment.Session) (*checkoutsvc.Snapshot, error) {
		var body selectShippingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.SelectShipping(r.Context(), cartID, sess, strings.TrimSpace(body.MethodID))
	})
}

// CheckoutOpenStep expands a step already reached without touching its data.
func CheckoutOpenStep(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return checkoutHandler(svc, logg, func(r *http.Request, cartID uuid.UUID, sess *payment.Session) (*checkoutsvc.Snapshot, error) {
		step := enums.CheckoutStep(strings.ToLower(strings.TrimSpace(chi.URLParam(r, "step"))))
		return svc.OpenStep(r.Context(), cartID, sess, step)
	})
}

// CheckoutPay requests a payment preference. Gateway failures come back as
// part of the snapshot, not as an error status.
func CheckoutPay(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return checkoutHandler(svc, logg, func(r *http.Request, cartID uuid.UUID, sess *payment.Session) (*checkoutsvc.Snapshot, error) {
		return svc.Pay(r.Context(), cartID, sess)
	})
}

func CheckoutRetry(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return checkoutHandler(svc, logg, func(r *http.Request, cartID uuid.UUID, sess *payment.Session) (*checkoutsvc.Snapshot, error) {
		return svc.Retry(r.Context(), cartID, sess)
	})
}

// CheckoutReturn records the outcome reported by the payment page redirect.
func CheckoutReturn(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return checkoutHandler(svc, logg, func(r *http.Request, cartID uuid.UUID, sess *payment.Session) (*checkoutsvc.Snapshot, error) {
		var body checkoutsvc.ReturnInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.RecordReturn(r.Context(), cartID, sess, body)
	})
}
