package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
)

const whsec = "whsec_test"

type recordingService struct {
	events []string
	err    error
}

func (s *recordingService) HandleEvent(_ context.Context, event *stripe.Event) error {
	s.events = append(s.events, event.ID)
	return s.err
}

type hmacVerifier struct{}

func (hmacVerifier) VerifyEvent(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, signature, whsec)
}

// claimSet mimics the Redis SETNX guard.
type claimSet struct {
	claimed map[string]bool
	err     error
}

func (c *claimSet) Seen(_ context.Context, id string) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	if c.claimed == nil {
		c.claimed = map[string]bool{}
	}
	seen := c.claimed[id]
	c.claimed[id] = true
	return seen, nil
}

func (c *claimSet) Forget(_ context.Context, id string) error {
	delete(c.claimed, id)
	return nil
}

func signedDelivery(t *testing.T) (string, []byte, string) {
	t.Helper()
	sess, err := json.Marshal(stripe.CheckoutSession{
		ID:            "cs_test_" + uuid.NewString(),
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		Metadata:      map[string]string{"cart_id": uuid.NewString()},
	})
	require.NoError(t, err)
	id := "evt_" + uuid.NewString()
	payload, err := json.Marshal(stripe.Event{
		ID:         id,
		Object:     "event",
		Type:       stripe.EventTypeCheckoutSessionCompleted,
		APIVersion: stripe.APIVersion,
		Data:       &stripe.EventData{Raw: sess},
	})
	require.NoError(t, err)
	return id, payload, sign(payload, time.Now())
}

func sign(payload []byte, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(whsec))
	fmt.Fprintf(mac, "%d.%s", at.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func deliver(h http.Handler, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set(signatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStripeWebhookHandlesEachEventOnce(t *testing.T) {
	id, payload, sig := signedDelivery(t)
	svc := &recordingService{}
	h := StripeWebhook(svc, hmacVerifier{}, &claimSet{}, nil)

	first := deliver(h, payload, sig)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	assert.Contains(t, first.Body.String(), `"processed"`)

	again := deliver(h, payload, sig)
	require.Equal(t, http.StatusOK, again.Code)
	assert.Contains(t, again.Body.String(), `"duplicate"`)
	assert.Equal(t, []string{id}, svc.events)
}

func TestStripeWebhookRejectsBadDeliveries(t *testing.T) {
	_, payload, sig := signedDelivery(t)
	cases := map[string]struct {
		payload   []byte
		signature string
	}{
		"no signature":     {payload, ""},
		"forged signature": {payload, "t=1,v1=deadbeef"},
		"stale signature":  {payload, sign(payload, time.Now().Add(-time.Hour))},
		"tampered body":    {append(bytes.Clone(payload), ' '), sig},
		"oversized body":   {[]byte(strings.Repeat("x", maxWebhookBody+1)), sig},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &recordingService{}
			rec := deliver(StripeWebhook(svc, hmacVerifier{}, &claimSet{}, nil), tc.payload, tc.signature)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, svc.events)
		})
	}
}

func TestStripeWebhookReleasesClaimOnFailure(t *testing.T) {
	id, payload, sig := signedDelivery(t)
	svc := &recordingService{err: errors.New("db down")}
	guard := &claimSet{}
	h := StripeWebhook(svc, hmacVerifier{}, guard, nil)

	assert.Equal(t, http.StatusInternalServerError, deliver(h, payload, sig).Code)
	assert.NotContains(t, guard.claimed, id)

	svc.err = nil
	assert.Equal(t, http.StatusOK, deliver(h, payload, sig).Code)
	assert.Equal(t, []string{id, id}, svc.events)
}

func TestStripeWebhookDependencyFailures(t *testing.T) {
	_, payload, sig := signedDelivery(t)

	unconfigured := deliver(StripeWebhook(nil, nil, nil, nil), payload, sig)
	assert.Equal(t, http.StatusServiceUnavailable, unconfigured.Code)

	svc := &recordingService{}
	guardDown := deliver(StripeWebhook(svc, hmacVerifier{}, &claimSet{err: errors.New("redis down")}, nil), payload, sig)
	assert.Equal(t, http.StatusServiceUnavailable, guardDown.Code)
	assert.Empty(t, svc.events)
}
