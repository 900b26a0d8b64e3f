package checkout

import (
	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/internal/shipping"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// StepController sequences address → shipping → payment. It never clears the
// data of a later step when an earlier one is reopened or resubmitted.
type StepController struct{}

// StepView is one panel of the wizard as the client renders it.
type StepView struct {
	Step     enums.CheckoutStep `json:"step"`
	Complete bool               `json:"complete"`
	Enabled  bool               `json:"enabled"`
	Open     bool               `json:"open"`
}

// Blocked explains why payment content is disabled.
type Blocked struct {
	Step    enums.CheckoutStep `json:"step"`
	Message string             `json:"message"`
}

// CompleteAddress stores a validated address and advances to shipping.
func (StepController) CompleteAddress(s *Session, addr address.Address) {
	s.Address = &addr
	s.CurrentStep = maxStep(s.CurrentStep, enums.CheckoutStepShipping)
	s.OpenStep = enums.CheckoutStepShipping
}

// CompleteShipping stores the method and advances to payment. It requires an address.
func (StepController) CompleteShipping(s *Session, method shipping.Method) error {
	if s.Address == nil {
		return stepRequired(enums.CheckoutStepAddress, "shipping address required")
	}
	id := method.ID
	s.ShippingMethodID = &id
	s.CurrentStep = enums.CheckoutStepPayment
	s.OpenStep = enums.CheckoutStepPayment
	return nil
}

// Open expands a step that has already been reached, leaving all data in place.
func (StepController) Open(s *Session, step enums.CheckoutStep) error {
	if !step.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown checkout step").
			WithDetails(map[string]any{"step": string(step)})
	}
	if step.Index() > s.CurrentStep.Index() {
		return stepRequired(s.CurrentStep, "complete the current step first")
	}
	s.OpenStep = step
	return nil
}

// Advance moves the current step to `to`, refusing any move whose
// prerequisites are missing.
func (c StepController) Advance(s *Session, to enums.CheckoutStep) error {
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown checkout step")
	}
	if to.Index() >= enums.CheckoutStepShipping.Index() && s.Address == nil {
		return stepRequired(enums.CheckoutStepAddress, "shipping address required")
	}
	if to == enums.CheckoutStepPayment && s.ShippingMethodID == nil {
		return stepRequired(enums.CheckoutStepShipping, "shipping method required")
	}
	s.CurrentStep = to
	s.OpenStep = to
	return nil
}

// PaymentBlocked reports the first missing prerequisite of the payment panel,
// regardless of what CurrentStep claims.
func (StepController) PaymentBlocked(s *Session) *Blocked {
	switch {
	case s.Address == nil:
		return &Blocked{Step: enums.CheckoutStepAddress, Message: "fill in the shipping address first"}
	case s.ShippingMethodID == nil:
		return &Blocked{Step: enums.CheckoutStepShipping, Message: "choose a shipping method first"}
	}
	return nil
}

// Repair pulls CurrentStep back to the furthest step the stored data supports.
func (StepController) Repair(s *Session) {
	if !s.CurrentStep.IsValid() {
		s.CurrentStep = enums.CheckoutStepAddress
	}
	if s.CurrentStep == enums.CheckoutStepPayment && (s.ShippingMethodID == nil || s.Address == nil) {
		s.CurrentStep = enums.CheckoutStepShipping
	}
	if s.CurrentStep == enums.CheckoutStepShipping && s.Address == nil {
		s.CurrentStep = enums.CheckoutStepAddress
	}
	if !s.OpenStep.IsValid() || s.OpenStep.Index() > s.CurrentStep.Index() {
		s.OpenStep = s.CurrentStep
	}
}

// Holds reports whether the session satisfies the step-gating invariant.
func (StepController) Holds(s *Session) bool {
	switch s.CurrentStep {
	case enums.CheckoutStepAddress:
		return true
	case enums.CheckoutStepShipping:
		return s.Address != nil
	case enums.CheckoutStepPayment:
		return s.Address != nil && s.ShippingMethodID != nil
	}
	return false
}

// Views renders the three panels.
func (StepController) Views(s *Session) []StepView {
	views := make([]StepView, 0, 3)
	for _, step := range enums.CheckoutSteps() {
		complete := false
		switch step {
		case enums.CheckoutStepAddress:
			complete = s.Address != nil
		case enums.CheckoutStepShipping:
			complete = s.ShippingMethodID != nil
		case enums.CheckoutStepPayment:
			complete = s.Payment.State == enums.PaymentStateReady
		}
		views = append(views, StepView{
			Step:     step,
			Complete: complete,
			Enabled:  step.Index() <= s.CurrentStep.Index(),
			Open:     step == s.OpenStep,
		})
	}
	return views
}

func maxStep(a, b enums.CheckoutStep) enums.CheckoutStep {
	if a.Index() >= b.Index() {
		return a
	}
	return b
}

func stepRequired(step enums.CheckoutStep, message string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, message).
		WithDetails(map[string]any{"step": string(step)})
}
