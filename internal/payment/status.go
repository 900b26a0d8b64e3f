package payment

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Status is the payment state of one checkout session.
// PreferenceID and Error are never both set.
type Status struct {
	State        enums.PaymentState    `json:"state"`
	PreferenceID *string               `json:"preference_id"`
	RedirectURL  *string               `json:"redirect_url,omitempty"`
	Error        *string               `json:"error"`
	AttemptCount int                   `json:"attempt_count"`
	RequestKey   string                `json:"request_key,omitempty"`
	RequestedAt  *time.Time            `json:"requested_at,omitempty"`
	Outcome      *enums.PaymentOutcome `json:"outcome,omitempty"`
}

// IdleStatus is the status of a session that never asked for a preference.
func IdleStatus() Status {
	return Status{State: enums.PaymentStateIdle}
}

// LoginRequired reports whether the customer must authenticate before paying.
func (s Status) LoginRequired() bool {
	return s.State == enums.PaymentStateAwaitingLogin
}

// Superseded reports whether a ready or in-flight preference was built from
// checkout inputs other than the ones hashing to key. A completed payment is final.
func (s Status) Superseded(key string) bool {
	if s.Outcome != nil && *s.Outcome == enums.PaymentOutcomeSuccess {
		return false
	}
	switch s.State {
	case enums.PaymentStateReady, enums.PaymentStateRequesting:
		return s.RequestKey != key
	}
	return false
}

// Invalidated drops the preference of a superseded request. Attempts are kept
// so the cap still applies across input changes.
func (s Status) Invalidated() Status {
	return Status{State: enums.PaymentStateIdle, AttemptCount: s.AttemptCount}
}

// normalized fills in the zero state of a session created before payment was touched.
func (s Status) normalized() Status {
	if s.State == "" {
		s.State = enums.PaymentStateIdle
	}
	return s
}

func (s Status) inFlight(now time.Time, timeout time.Duration) bool {
	if s.State != enums.PaymentStateRequesting || s.RequestedAt == nil {
		return false
	}
	return now.Sub(*s.RequestedAt) < timeout
}

func (s Status) ready(preference Preference) Status {
	id := preference.ID
	s.State = enums.PaymentStateReady
	s.PreferenceID = &id
	s.RedirectURL = nil
	if preference.RedirectURL != "" {
		url := preference.RedirectURL
		s.RedirectURL = &url
	}
	s.Error = nil
	return s
}

func (s Status) failed(message string) Status {
	s.State = enums.PaymentStateFailed
	s.PreferenceID = nil
	s.RedirectURL = nil
	s.Error = &message
	return s
}
