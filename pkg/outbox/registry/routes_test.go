package registry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

func testRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{OrdersTopic: "orders-topic"})
	require.NoError(t, err)
	return reg
}

func sealed(t *testing.T, data any) json.RawMessage {
	t.Helper()
	env, err := outbox.Seal(data, nil, 1, time.Now())
	require.NoError(t, err)
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	return raw
}

func TestResolveDecodesOrderCreated(t *testing.T) {
	orderID := uuid.New()
	total := decimal.RequireFromString("1659.968")
	row := models.OutboxEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload: sealed(t, payloads.OrderCreatedEvent{
			OrderID:      orderID,
			PreferenceID: "pref-123",
			Gateway:      "demo",
			Total:        total,
			Currency:     "BRL",
		}),
	}

	resolved, err := testRegistry(t).Resolve(row)
	require.NoError(t, err)
	assert.Equal(t, "orders-topic", resolved.Descriptor.Topic)
	assert.NotEmpty(t, resolved.Envelope.EventID)
	assert.False(t, resolved.Envelope.OccurredAt.IsZero())

	created, ok := resolved.Payload.(*payloads.OrderCreatedEvent)
	require.True(t, ok, "payload type %T", resolved.Payload)
	assert.Equal(t, orderID, created.OrderID)
	assert.True(t, created.Total.Equal(total))
}

func TestResolveRejectsBadRows(t *testing.T) {
	nullData := outbox.PayloadEnvelope{Version: 1, EventID: uuid.NewString(), Data: json.RawMessage("null")}
	nullRaw, err := json.Marshal(nullData)
	require.NoError(t, err)

	cases := map[string]models.OutboxEvent{
		"unknown event": {
			EventType:     "order_refunded",
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       sealed(t, map[string]string{"reason": "none"}),
		},
		"aggregate mismatch": {
			EventType:     enums.EventOrderCreated,
			AggregateType: "cart",
			AggregateID:   uuid.New(),
			Payload:       sealed(t, map[string]string{}),
		},
		"missing aggregate id": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			Payload:       sealed(t, map[string]string{}),
		},
		"null data": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       nullRaw,
		},
		"garbage envelope": {
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`"nope"`),
		},
	}
	reg := testRegistry(t)
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(row)
			require.Error(t, err)
			assert.True(t, IsNonRetryable(err), "got %T", err)
		})
	}
}

func TestNewEventRegistryRequiresOrdersTopic(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{OrdersTopic: "  "})
	assert.Error(t, err)
}

func TestTopicsAreDistinct(t *testing.T) {
	assert.Equal(t, []string{"orders-topic"}, testRegistry(t).Topics())
}
