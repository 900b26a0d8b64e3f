package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const webhookSource = "stripe_webhook"

type outcomeApplier interface {
	ApplyOutcome(ctx context.Context, input orders.OutcomeInput) (*models.Order, error)
}

// Service turns Stripe Checkout events into order outcomes.
type Service struct {
	orders outcomeApplier
	logg   *logger.Logger
}

func NewService(ordersSvc outcomeApplier, logg *logger.Logger) (*Service, error) {
	if ordersSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	return &Service{orders: ordersSvc, logg: logg}, nil
}

// HandleEvent ignores event types it does not map. Unknown sessions and
// orders that already settled are acknowledged, not retried.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	var outcome enums.PaymentOutcome
	var message string
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		outcome = enums.PaymentOutcomePending
	case stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		outcome = enums.PaymentOutcomeSuccess
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		outcome, message = enums.PaymentOutcomeFailure, "payment failed"
	case stripe.EventTypeCheckoutSessionExpired:
		outcome, message = enums.PaymentOutcomeFailure, "checkout session expired"
	default:
		return nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session event")
	}
	if cs.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session id missing")
	}
	if event.Type == stripe.EventTypeCheckoutSessionCompleted {
		switch cs.PaymentStatus {
		case stripe.CheckoutSessionPaymentStatusPaid, stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
			outcome = enums.PaymentOutcomeSuccess
		}
	}

	logCtx := ctx
	if s.logg != nil {
		logCtx = s.logg.WithFields(ctx, map[string]any{
			"stripe_event_id": event.ID,
			"event_type":      string(event.Type),
			"preference_id":   cs.ID,
			"cart_id":         cs.Metadata["cart_id"],
		})
	}

	_, err := s.orders.ApplyOutcome(ctx, orders.OutcomeInput{
		PreferenceID: cs.ID,
		Outcome:      outcome,
		Message:      message,
		Source:       webhookSource,
	})
	switch {
	case err == nil:
		s.info(logCtx, "stripe.webhook.applied")
		return nil
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound), pkgerrors.IsCode(err, pkgerrors.CodeStateConflict):
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(logCtx, "reason", err.Error()), "stripe.webhook.skipped")
		}
		return nil
	default:
		return err
	}
}

func (s *Service) info(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Info(ctx, msg)
	}
}
