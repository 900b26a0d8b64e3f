package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/shipping"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

const (
	DefaultMaxAttempts = 3

	timeoutMessage   = "payment request timed out"
	malformedMessage = "payment gateway returned no preference id"
)

// Session is the authenticated caller, passed explicitly rather than read from
// ambient state. A nil session means a guest.
type Session struct {
	UserID      uuid.UUID
	Role        enums.Role
	AccessToken string
}

// Input is everything the orchestrator looks at for one invocation.
type Input struct {
	CartID   uuid.UUID
	Items    []cart.Item
	Totals   cart.Totals
	Address  *address.Address
	Shipping *shipping.Method
	Session  *Session
	Status   Status
}

// Decision is the outcome of the precondition checks. Request is nil when no
// gateway call must be made; Status is what the session should record now.
type Decision struct {
	Status  Status
	Request *PreferenceRequest
}

// Orchestrator drives the payment state machine of a checkout session:
// idle → requesting → ready | failed, with awaiting_login when no session is present.
type Orchestrator interface {
	// Prepare runs the precondition checks for a proceed (retry=false) or an explicit retry.
	Prepare(in Input, retry bool) (Decision, error)
	// Execute sends the prepared request and returns the settled status.
	Execute(ctx context.Context, in Input, decision Decision) (Status, error)
	CreatePreference(ctx context.Context, in Input) (Status, error)
	Retry(ctx context.Context, in Input) (Status, error)
	MaxAttempts() int
}

// Options configures the orchestrator.
type Options struct {
	MaxAttempts int
	Currency    string
	Runner      *TaskRunner
	Metrics     *metrics.CheckoutMetrics
	Now         func() time.Time
}

type orchestrator struct {
	gateway     Gateway
	runner      *TaskRunner
	maxAttempts int
	currency    string
	metrics     *metrics.CheckoutMetrics
	now         func() time.Time
	logg        *logger.Logger
}

func NewOrchestrator(gateway Gateway, opts Options, logg *logger.Logger) (Orchestrator, error) {
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Runner == nil {
		opts.Runner = NewTaskRunner(0)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if strings.TrimSpace(opts.Currency) == "" {
		opts.Currency = "BRL"
	}
	return &orchestrator{
		gateway:     gateway,
		runner:      opts.Runner,
		maxAttempts: opts.MaxAttempts,
		currency:    strings.ToUpper(opts.Currency),
		metrics:     opts.Metrics,
		now:         opts.Now,
		logg:        logg,
	}, nil
}

func (o *orchestrator) MaxAttempts() int {
	return o.maxAttempts
}

// Prepare checks, in order: cart, session, capability, address, shipping.
func (o *orchestrator) Prepare(in Input, retry bool) (Decision, error) {
	status := in.Status.normalized()

	if len(in.Items) == 0 {
		return Decision{}, preconditionError("cart", "cart is empty")
	}
	if in.Session == nil || in.Session.UserID == uuid.Nil {
		status.State = enums.PaymentStateAwaitingLogin
		return Decision{Status: status}, nil
	}
	if !auth.Can(in.Session.Role, enums.CapabilityCheckoutPay) {
		return Decision{}, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot pay for checkouts")
	}
	if in.Address == nil {
		return Decision{}, preconditionError(string(enums.CheckoutStepAddress), "shipping address required")
	}
	if in.Shipping == nil {
		return Decision{}, preconditionError(string(enums.CheckoutStepShipping), "shipping method required")
	}

	if status.State == enums.PaymentStateAwaitingLogin {
		status.State = enums.PaymentStateIdle
	}
	key := RequestKey(in.Items, *in.Address, *in.Shipping)
	now := o.now()

	if retry {
		if status.State != enums.PaymentStateFailed {
			return Decision{}, pkgerrors.New(pkgerrors.CodeStateConflict, "only a failed payment can be retried").
				WithDetails(map[string]any{"step": string(enums.CheckoutStepPayment), "state": string(status.State)})
		}
	} else {
		switch status.State {
		case enums.PaymentStateRequesting:
			if status.RequestKey == key && status.inFlight(now, o.runner.Timeout()) {
				return Decision{Status: status}, nil
			}
		case enums.PaymentStateReady:
			if status.RequestKey == key {
				return Decision{Status: status}, nil
			}
		case enums.PaymentStateFailed:
			// Leaving failed takes an explicit retry.
			return Decision{Status: status}, nil
		}
	}

	if status.AttemptCount >= o.maxAttempts {
		return Decision{}, pkgerrors.New(pkgerrors.CodeRateLimit, "payment attempt limit reached").
			WithDetails(map[string]any{"attempts": status.AttemptCount, "max_attempts": o.maxAttempts})
	}

	requestedAt := now
	status.State = enums.PaymentStateRequesting
	status.AttemptCount++
	status.PreferenceID = nil
	status.RedirectURL = nil
	status.Error = nil
	status.Outcome = nil
	status.RequestKey = key
	status.RequestedAt = &requestedAt

	req := PreferenceRequest{
		CartID:          in.CartID,
		UserID:          in.Session.UserID,
		Items:           in.Items,
		ShippingAddress: *in.Address,
		ShippingMethod:  *in.Shipping,
		Totals:          in.Totals,
		Currency:        o.currency,
	}
	return Decision{Status: status, Request: &req}, nil
}

// Execute returns ErrSuperseded when a request with different inputs replaced this one.
func (o *orchestrator) Execute(ctx context.Context, in Input, decision Decision) (Status, error) {
	if decision.Request == nil {
		return decision.Status, nil
	}
	status := decision.Status
	req := *decision.Request
	token := ""
	if in.Session != nil {
		token = in.Session.AccessToken
	}

	logCtx := ctx
	if o.logg != nil {
		logCtx = o.logg.WithCartID(ctx, req.CartID.String())
		logCtx = o.logg.WithFields(logCtx, map[string]any{
			"gateway":       o.gateway.Name(),
			"attempt_count": status.AttemptCount,
		})
		o.logg.Info(logCtx, "payment.requesting")
	}

	started := o.now()
	preference, err := o.runner.Do(ctx, req.CartID.String(), status.RequestKey, func(taskCtx context.Context) (Preference, error) {
		pref, err := o.gateway.CreatePreference(taskCtx, req, token)
		if err != nil && taskCtx.Err() != nil {
			return Preference{}, taskCtx.Err()
		}
		return pref, err
	})
	elapsed := o.now().Sub(started)

	switch {
	case errors.Is(err, ErrSuperseded):
		o.observe("superseded", elapsed)
		o.info(logCtx, "payment.superseded")
		return status, err
	case err != nil && errors.Is(err, ctx.Err()):
		// The caller went away; the shared request may still finish for others.
		return status, err
	case errors.Is(err, context.DeadlineExceeded):
		status = status.failed(timeoutMessage)
	case err != nil:
		status = status.failed(err.Error())
	case strings.TrimSpace(preference.ID) == "":
		status = status.failed(malformedMessage)
	default:
		status = status.ready(preference)
	}

	o.observe(string(status.State), elapsed)
	if o.logg != nil {
		if status.State == enums.PaymentStateFailed {
			o.logg.Warn(o.logg.WithField(logCtx, "payment_error", *status.Error), "payment.failed")
		} else {
			o.logg.Info(o.logg.WithField(logCtx, "preference_id", preference.ID), "payment.ready")
		}
	}
	return status, nil
}

func (o *orchestrator) CreatePreference(ctx context.Context, in Input) (Status, error) {
	decision, err := o.Prepare(in, false)
	if err != nil {
		return in.Status, err
	}
	return o.Execute(ctx, in, decision)
}

// Retry clears the failed attempt and asks the gateway again with the same inputs.
func (o *orchestrator) Retry(ctx context.Context, in Input) (Status, error) {
	decision, err := o.Prepare(in, true)
	if err != nil {
		return in.Status, err
	}
	return o.Execute(ctx, in, decision)
}

func (o *orchestrator) observe(outcome string, elapsed time.Duration) {
	o.metrics.ObservePayment(o.gateway.Name(), outcome, elapsed)
}

func (o *orchestrator) info(ctx context.Context, msg string) {
	if o.logg == nil {
		return
	}
	o.logg.Info(ctx, msg)
}

func preconditionError(step, message string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, message).
		WithDetails(map[string]any{"step": step})
}
