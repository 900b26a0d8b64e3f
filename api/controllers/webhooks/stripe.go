// Package webhooks holds handlers called by third parties rather than by the
// storefront.
package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	maxWebhookBody  = 64 << 10
	signatureHeader = "Stripe-Signature"
)

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type deliveryGuard interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

type eventVerifier interface {
	VerifyEvent(payload []byte, signature string) (stripe.Event, error)
}

type stripeHook struct {
	svc      StripeWebhookService
	verifier eventVerifier
	guard    deliveryGuard
	logg     *logger.Logger
}

// StripeWebhook verifies a Stripe delivery and hands it to svc once per
// event id. A failed delivery releases its id so Stripe's retry is handled.
// Without its collaborators the endpoint answers 503 and Stripe keeps
// retrying.
func StripeWebhook(svc StripeWebhookService, verifier eventVerifier, guard deliveryGuard, logg *logger.Logger) http.HandlerFunc {
	h := stripeHook{svc: svc, verifier: verifier, guard: guard, logg: logg}
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := h.handle(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": status})
	}
}

func (h stripeHook) handle(r *http.Request) (string, error) {
	if h.svc == nil || h.verifier == nil || h.guard == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "stripe webhook not configured")
	}
	ctx := r.Context()

	signature := r.Header.Get(signatureHeader)
	if signature == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing")
	}
	payload, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "webhook body too large")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read webhook body")
	}
	event, err := h.verifier.VerifyEvent(payload, signature)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stripe signature")
	}

	if h.logg != nil {
		ctx = h.logg.WithFields(ctx, map[string]any{"stripe_event_id": event.ID, "stripe_event_type": string(event.Type)})
	}
	seen, err := h.guard.Seen(ctx, event.ID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim stripe event")
	}
	if seen {
		if h.logg != nil {
			h.logg.Debug(ctx, "stripe event already handled")
		}
		return "duplicate", nil
	}

	if err := h.svc.HandleEvent(ctx, &event); err != nil {
		if ferr := h.guard.Forget(ctx, event.ID); ferr != nil && h.logg != nil {
			h.logg.Warn(h.logg.WithField(ctx, "error", ferr.Error()), "stripe event claim not released")
		}
		return "", err
	}
	if h.logg != nil {
		h.logg.Info(ctx, "stripe event handled")
	}
	return "processed", nil
}
