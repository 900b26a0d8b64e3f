package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payment"
	"github.com/angelmondragon/storefront-backend/internal/shipping"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

const orderNotRecordedMessage = "payment could not be registered, please retry"

type cartReader interface {
	Items(ctx context.Context, cartID uuid.UUID) ([]cart.Item, error)
}

type orderRecorder interface {
	CreatePending(ctx context.Context, input orders.PendingOrder) (*models.Order, error)
	ApplyOutcome(ctx context.Context, input orders.OutcomeInput) (*models.Order, error)
}

// Snapshot is the checkout as the client renders it.
type Snapshot struct {
	CartID         uuid.UUID           `json:"cart_id"`
	CurrentStep    enums.CheckoutStep  `json:"current_step"`
	OpenStep       enums.CheckoutStep  `json:"open_step"`
	Steps          []StepView          `json:"steps"`
	Items          []cart.Item         `json:"items"`
	Address        *address.Address    `json:"address,omitempty"`
	ShippingMethod *shipping.Method    `json:"shipping_method,omitempty"`
	Totals         cart.Totals         `json:"totals"`
	Display        cart.DisplayTotals  `json:"display"`
	Payment        payment.Status      `json:"payment"`
	PaymentBlocked *Blocked            `json:"payment_blocked,omitempty"`
	LoginRequired  bool                `json:"login_required"`
	AddressSave    *address.SaveResult `json:"address_save,omitempty"`
}

// ReturnInput is the outcome reported by the hosted payment page redirect.
type ReturnInput struct {
	Outcome      enums.PaymentOutcome `json:"outcome" validate:"required,oneof=success failure pending"`
	PreferenceID string               `json:"preference_id" validate:"required"`
}

// Service coordinates the checkout session of a cart. A nil *payment.Session is a guest.
type Service interface {
	Snapshot(ctx context.Context, cartID uuid.UUID, sess *payment.Session) (*Snapshot, error)
	SetAddress(ctx context.Context, cartID uuid.UUID, sess *payment.Session, draft address.Draft) (*Snapshot, error)
	SelectShipping(ctx context.Context, cartID uuid.UUID, sess *payment.Session, methodID string) (*Snapshot, error)
	OpenStep(ctx context.Context, cartID uuid.UUID, sess *payment.Session, step enums.CheckoutStep) (*Snapshot, error)
	Pay(ctx context.Context, cartID uuid.UUID, sess *payment.Session) (*Snapshot, error)
	Retry(ctx context.Context, cartID uuid.UUID, sess *payment.Session) (*Snapshot, error)
	RecordReturn(ctx context.Context, cartID uuid.UUID, sess *payment.Session, input ReturnInput) (*Snapshot, error)
	Discard(ctx context.Context, cartID uuid.UUID) error
}

type service struct {
	store        SessionStore
	carts        cartReader
	catalog      shipping.Catalog
	profiles     address.Service
	orchestrator payment.Orchestrator
	orders       orderRecorder
	gatewayName  string
	currency     string
	steps        StepController
	metrics      *metrics.CheckoutMetrics
	logg         *logger.Logger
}

// Deps groups the collaborators of the checkout service.
type Deps struct {
	Store        SessionStore
	Carts        cartReader
	Catalog      shipping.Catalog
	Profiles     address.Service
	Orchestrator payment.Orchestrator
	Orders       orderRecorder
	GatewayName  string
	Currency     string
	Metrics      *metrics.CheckoutMetrics
	Logger       *logger.Logger
}

// NewService builds the checkout service.
func NewService(deps Deps) (Service, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("session store required")
	}
	if deps.Carts == nil {
		return nil, fmt.Errorf("cart reader required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("shipping catalog required")
	}
	if deps.Profiles == nil {
		return nil, fmt.Errorf("address profile service required")
	}
	if deps.Orchestrator == nil {
		return nil, fmt.Errorf("payment orchestrator required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("order recorder required")
	}
	if deps.Currency == "" {
		deps.Currency = "BRL"
	}
	return &service{
		store:        deps.Store,
		carts:        deps.Carts,
		catalog:      deps.Catalog,
		profiles:     deps.Profiles,
		orchestrator: deps.Orchestrator,
		orders:       deps.Orders,
		gatewayName:  deps.GatewayName,
		currency:     deps.Currency,
		metrics:      deps.Metrics,
		logg:         deps.Logger,
	}, nil
}

func (s *service) Snapshot(ctx context.Context, cartID uuid.UUID, sess *payment.Session) (*Snapshot, error) {
	if err := requireCart(cartID); err != nil {
		return nil, err
	}
	session, err := s.store.Load(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, session, sess)
}

// SetAddress validates the draft, saves it to the profile when the caller is
// signed in and moves the checkout to the shipping step.
func (s *service) SetAddress(ctx context.Context, cartID uuid.UUID, sess *payment.Session, draft address.Draft) (*Snapshot, error) {
	if err := requireCart(cartID); err != nil {
		return nil, err
	}
	addr, fieldErrs := address.Validate(draft)
	if fieldErrs != nil {
		return nil, fieldErrs.Err()
	}

	var saved *address.SaveResult
	snapshot, err := s.mutate(ctx, cartID, sess, func(session *Session) error {
		from := session.CurrentStep
		s.steps.CompleteAddress(session, addr)
		s.transition(from, session.CurrentStep)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if sess != nil {
		result := s.profiles.Save(ctx, addr, sess.UserID)
		saved = &result
	}
	snapshot.AddressSave = saved
	return snapshot, nil
}

func (s *service) SelectShipping(ctx context.Context, cartID uuid.UUID, sess *payment.Session, methodID string) (*Snapshot, error) {
	if err := requireCart(cartID); err != nil {
		return nil, err
	}
	method, err := s.catalog.Select(methodID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, cartID, sess, func(session *Session) error {
		from := session.CurrentStep
		if err := s.steps.CompleteShipping(session, method); err != nil {
			return err
		}
		s.transition(from, session.CurrentStep)
		return nil
	})
}

func (s *service) OpenStep(ctx context.Context, cartID uuid.UUID, sess *payment.Session, step enums.CheckoutStep) (*Snapshot, error) {
	if err := requireCart(cartID); err != nil {
		return nil, err
	}
	return s.mutate(ctx, cartID, sess, func(session *Session) error {
		return s.steps.Open(session, step)
	})
}

func (s *service) Pay(ctx context.Context, cartID uuid.UUID, sess *payment.Session) (*Snapshot, error) {
	return s.requestPayment(ctx, cartID, sess, false)
}

func (s *service) Retry(ctx context.Context, cartID uuid.UUID, sess *payment.Session) (*Snapshot, error) {
	return s.requestPayment(ctx, cartID, sess, true)
}

// requestPayment records the requesting state before calling the gateway so
// a concurrent proceed sees the request in flight, then settles the result
// only if no newer request replaced it meanwhile.
func (s *service) requestPayment(ctx context.Context, cartID uuid.UUID, sess *payment.Session, retry bool) (*Snapshot, error) {
	if err := requireCart(cartID); err != nil {
		return nil, err
	}

	var (
		in       payment.Input
		decision payment.Decision
	)
	_, err := s.mutate(ctx, cartID, sess, func(session *Session) error {
		var err error
		in, err = s.paymentInput(ctx, session, sess)
		if err != nil {
			return err
		}
		decision, err = s.orchestrator.Prepare(in, retry)
		if err != nil {
			return err
		}
		session.Payment = decision.Status
		return nil
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			return nil, s.persistFocus(ctx, cartID, err)
		}
		return nil, err
	}
	if decision.Request == nil {
		return s.Snapshot(ctx, cartID, sess)
	}

	// The gateway call is already out, so it settles even if the caller goes away.
	settleCtx := context.WithoutCancel(ctx)
	status, err := s.orchestrator.Execute(settleCtx, in, decision)
	switch {
	case errors.Is(err, payment.ErrSuperseded):
		return s.Snapshot(settleCtx, cartID, sess)
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "payment request interrupted")
	}

	return s.mutate(settleCtx, cartID, sess, func(session *Session) error {
		current := session.Payment
		if current.RequestKey != status.RequestKey || current.AttemptCount != status.AttemptCount {
			return nil
		}
		key, err := s.currentKey(settleCtx, session)
		if err != nil {
			return err
		}
		if key != status.RequestKey {
			// The cart or address changed while the gateway was working.
			return nil
		}
		if status.State == enums.PaymentStateReady {
			if err := s.recordOrder(settleCtx, in, status); err != nil {
				if s.logg != nil {
					s.logg.Error(s.logg.WithCartID(settleCtx, cartID.String()), "checkout.order_record_failed", err)
				}
				failed := orderNotRecordedMessage
				status.State = enums.PaymentStateFailed
				status.PreferenceID = nil
				status.RedirectURL = nil
				status.Error = &failed
			}
		}
		session.Payment = status
		return nil
	})
}

// RecordReturn stores the redirect outcome and moves the order accordingly.
// A failure outcome leaves the payment retryable.
func (s *service) RecordReturn(ctx context.Context, cartID uuid.UUID, sess *payment.Session, input ReturnInput) (*Snapshot, error) {
	if err := requireCart(cartID); err != nil {
		return nil, err
	}
	if !input.Outcome.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment outcome")
	}
	session, err := s.store.Load(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if session.Payment.PreferenceID == nil || *session.Payment.PreferenceID != input.PreferenceID {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "preference does not belong to this checkout").
			WithDetails(map[string]any{"step": string(enums.CheckoutStepPayment)})
	}
	key, err := s.currentKey(ctx, session)
	if err != nil {
		return nil, err
	}
	if session.Payment.Superseded(key) {
		// Persist the reset so the client sees an idle payment on its next read.
		if _, err := s.mutate(ctx, cartID, sess, func(*Session) error { return nil }); err != nil {
			return nil, err
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout changed after the payment was prepared").
			WithDetails(map[string]any{"step": string(enums.CheckoutStepPayment)})
	}

	message := ""
	if input.Outcome == enums.PaymentOutcomeFailure {
		message = "payment was not completed"
	}
	if _, err := s.orders.ApplyOutcome(ctx, orders.OutcomeInput{
		PreferenceID: input.PreferenceID,
		Outcome:      input.Outcome,
		Message:      message,
		Source:       "redirect",
	}); err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		return nil, err
	}

	return s.mutate(ctx, cartID, sess, func(session *Session) error {
		if session.Payment.PreferenceID == nil || *session.Payment.PreferenceID != input.PreferenceID {
			return nil
		}
		outcome := input.Outcome
		session.Payment.Outcome = &outcome
		if outcome == enums.PaymentOutcomeFailure {
			msg := message
			session.Payment.State = enums.PaymentStateFailed
			session.Payment.PreferenceID = nil
			session.Payment.RedirectURL = nil
			session.Payment.Error = &msg
		}
		return nil
	})
}

// Discard drops the checkout session of a cart.
func (s *service) Discard(ctx context.Context, cartID uuid.UUID) error {
	if err := requireCart(cartID); err != nil {
		return err
	}
	return s.store.Delete(ctx, cartID)
}

func (s *service) mutate(ctx context.Context, cartID uuid.UUID, sess *payment.Session, fn func(*Session) error) (*Snapshot, error) {
	unlock, err := s.store.Lock(ctx, cartID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, err := s.store.Load(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if err := fn(session); err != nil {
		return nil, err
	}
	before := session.Payment
	snapshot, err := s.render(ctx, session, sess)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	if before.PreferenceID != nil && session.Payment.PreferenceID == nil && s.logg != nil {
		s.logg.Info(s.logg.WithFields(s.logg.WithCartID(ctx, cartID.String()), map[string]any{
			"preference_id": *before.PreferenceID,
		}), "checkout.payment_superseded")
	}
	return snapshot, nil
}

// currentKey hashes the checkout inputs as they are now.
func (s *service) currentKey(ctx context.Context, session *Session) (string, error) {
	items, err := s.carts.Items(ctx, session.CartID)
	if err != nil {
		return "", err
	}
	method, _ := s.shippingMethod(session)
	return payment.CheckoutKey(items, session.Address, method), nil
}

func (s *service) paymentInput(ctx context.Context, session *Session, sess *payment.Session) (payment.Input, error) {
	items, err := s.carts.Items(ctx, session.CartID)
	if err != nil {
		return payment.Input{}, err
	}
	method, err := s.shippingMethod(session)
	if err != nil {
		return payment.Input{}, err
	}
	return payment.Input{
		CartID:   session.CartID,
		Items:    items,
		Totals:   cart.ComputeTotals(items, method),
		Address:  session.Address,
		Shipping: method,
		Session:  sess,
		Status:   session.Payment,
	}, nil
}

func (s *service) shippingMethod(session *Session) (*shipping.Method, error) {
	if session.ShippingMethodID == nil {
		return nil, nil
	}
	method, err := s.catalog.Select(string(*session.ShippingMethodID))
	if err != nil {
		// The catalog changed under a stored session; make the customer choose again.
		session.ShippingMethodID = nil
		return nil, nil
	}
	return &method, nil
}

func (s *service) recordOrder(ctx context.Context, in payment.Input, status payment.Status) error {
	role := enums.RoleCustomer
	if in.Session != nil && in.Session.Role != "" {
		role = in.Session.Role
	}
	_, err := s.orders.CreatePending(ctx, orders.PendingOrder{
		UserID:           in.Session.UserID,
		CartID:           in.CartID,
		PreferenceID:     *status.PreferenceID,
		Gateway:          s.gatewayName,
		Currency:         s.currency,
		Items:            in.Items,
		Totals:           in.Totals,
		ShippingMethodID: in.Shipping.ID,
		Address:          *in.Address,
		ActorRole:        role,
	})
	return err
}

// focusMissingStep opens the step named by a precondition error.
func (s *service) focusMissingStep(session *Session, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		return
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		return
	}
	raw, _ := details["step"].(string)
	step, parseErr := enums.ParseCheckoutStep(raw)
	if parseErr != nil {
		return
	}
	if step.Index() <= session.CurrentStep.Index() {
		session.OpenStep = step
	}
}

// persistFocus saves the step focus chosen while rejecting a payment, then
// returns the original rejection.
func (s *service) persistFocus(ctx context.Context, cartID uuid.UUID, cause error) error {
	unlock, err := s.store.Lock(ctx, cartID)
	if err != nil {
		return cause
	}
	defer unlock()
	session, err := s.store.Load(ctx, cartID)
	if err != nil {
		return cause
	}
	s.focusMissingStep(session, cause)
	if err := s.store.Save(ctx, session); err != nil && s.logg != nil {
		logCtx := s.logg.WithCartID(ctx, cartID.String())
		logCtx = s.logg.WithField(logCtx, "error", err.Error())
		s.logg.Warn(logCtx, "checkout.focus_save_failed")
	}
	return cause
}

func (s *service) render(ctx context.Context, session *Session, sess *payment.Session) (*Snapshot, error) {
	items, err := s.carts.Items(ctx, session.CartID)
	if err != nil {
		return nil, err
	}
	method, _ := s.shippingMethod(session)
	totals := cart.ComputeTotals(items, method)

	if session.Payment.Superseded(payment.CheckoutKey(items, session.Address, method)) {
		session.Payment = session.Payment.Invalidated()
	}
	status := session.Payment
	if status.State == "" || (sess != nil && status.LoginRequired()) {
		// A signed-in caller resumes from idle on the next proceed.
		status.State = enums.PaymentStateIdle
	}
	return &Snapshot{
		CartID:         session.CartID,
		CurrentStep:    session.CurrentStep,
		OpenStep:       session.OpenStep,
		Steps:          s.steps.Views(session),
		Items:          items,
		Address:        session.Address,
		ShippingMethod: method,
		Totals:         totals,
		Display:        totals.Display(),
		Payment:        status,
		PaymentBlocked: s.steps.PaymentBlocked(session),
		LoginRequired:  sess == nil && (status.LoginRequired() || session.CurrentStep == enums.CheckoutStepPayment),
	}, nil
}

func (s *service) transition(from, to enums.CheckoutStep) {
	if from == to {
		return
	}
	s.metrics.IncStepTransition(string(from), string(to))
}

func requireCart(cartID uuid.UUID) error {
	if cartID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	return nil
}
