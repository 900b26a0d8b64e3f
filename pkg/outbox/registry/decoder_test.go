package registry

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

func TestDecodersAreKeyedByVersion(t *testing.T) {
	d := Decoders{}
	d.Register(enums.EventOrderFailed, 1, JSON[map[string]string]())

	out, err := d.Decode(enums.EventOrderFailed, 1, json.RawMessage(`{"status":"failed"}`))
	require.NoError(t, err)
	assert.Equal(t, &map[string]string{"status": "failed"}, out)

	_, err = d.Decode(enums.EventOrderFailed, 2, json.RawMessage(`{}`))
	assert.ErrorContains(t, err, "no decoder for")
}

func TestOrderDecoders(t *testing.T) {
	d := NewOrderDecoders()
	orderID, cartID := uuid.New(), uuid.New()

	out, err := d.Decode(enums.EventOrderPaid, 1, mustMarshal(t, payloads.OrderPaidEvent{OrderID: orderID, CartID: cartID, PreferenceID: "pref-1"}))
	require.NoError(t, err)
	paid, ok := out.(*payloads.OrderPaidEvent)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, orderID, paid.OrderID)
	assert.Equal(t, cartID, paid.CartID)
	assert.Equal(t, "pref-1", paid.PreferenceID)

	_, err = d.Decode(enums.EventOrderCreated, 1, json.RawMessage(`{"order_id":`))
	assert.Error(t, err)
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}
