package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/consumers/dispatch"
	"github.com/angelmondragon/storefront-backend/pkg/bigquery"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

type fakeInserter struct {
	table     string
	rows      []any
	insertIDs []string
	err       error
}

func (f *fakeInserter) InsertRows(_ context.Context, table string, rows []bigquery.Row) error {
	if f.err != nil {
		return f.err
	}
	f.table = table
	for _, row := range rows {
		f.rows = append(f.rows, row.Value)
		f.insertIDs = append(f.insertIDs, row.InsertID)
	}
	return nil
}

func mustConsumer(t *testing.T, inserter tableInserter) *Consumer {
	t.Helper()
	consumer, err := NewConsumer(inserter, "order_events", logger.New(logger.Options{ServiceName: "analytics-test", Output: io.Discard}))
	require.NoError(t, err)
	return consumer
}

func envelopeFor(t *testing.T, eventType enums.OutboxEventType, orderID uuid.UUID, payload any) dispatch.Envelope {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return dispatch.Envelope{
		EventID:       uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		OccurredAt:    time.Date(2026, 4, 2, 10, 30, 0, 0, time.UTC),
		Data:          data,
		Payload:       payload,
	}
}

func TestConsumerWritesPaidOrder(t *testing.T) {
	inserter := &fakeInserter{}
	consumer := mustConsumer(t, inserter)

	orderID, userID, cartID := uuid.New(), uuid.New(), uuid.New()
	env := envelopeFor(t, enums.EventOrderPaid, orderID, &payloads.OrderPaidEvent{
		OrderID:      orderID,
		UserID:       userID,
		CartID:       cartID,
		PreferenceID: "pref-7",
		Total:        decimal.RequireFromString("1659.968"),
		Currency:     "BRL",
	})

	require.NoError(t, consumer.Handle(context.Background(), env))
	require.Len(t, inserter.rows, 1)
	assert.Equal(t, "order_events", inserter.table)
	assert.Equal(t, []string{env.EventID.String()}, inserter.insertIDs)

	row, ok := inserter.rows[0].(*orderEventRow)
	require.True(t, ok)
	assert.Equal(t, env.EventID.String(), row.EventID)
	assert.Equal(t, "order_paid", row.EventType)
	assert.Equal(t, orderID.String(), row.OrderID)
	assert.Equal(t, userID.String(), *row.UserID)
	assert.Equal(t, cartID.String(), *row.CartID)
	assert.Equal(t, "1659.97", *row.Total)
	assert.Equal(t, "paid", *row.Status)
	assert.True(t, row.Payload.Valid)
}

func TestConsumerWritesFailedOrderWithoutAmount(t *testing.T) {
	inserter := &fakeInserter{}
	consumer := mustConsumer(t, inserter)

	orderID := uuid.New()
	env := envelopeFor(t, enums.EventOrderFailed, orderID, &payloads.OrderFailedEvent{
		OrderID: orderID,
		Status:  enums.OrderStatusFailed,
		Reason:  "card declined",
	})

	require.NoError(t, consumer.Handle(context.Background(), env))
	row := inserter.rows[0].(*orderEventRow)
	assert.Nil(t, row.Total)
	assert.Nil(t, row.UserID)
	assert.Nil(t, row.PreferenceID)
	assert.Equal(t, "failed", *row.Status)
}

func TestConsumerReturnsInsertErrors(t *testing.T) {
	inserter := &fakeInserter{err: errors.New("quota exceeded")}
	consumer := mustConsumer(t, inserter)
	orderID := uuid.New()
	env := envelopeFor(t, enums.EventOrderCreated, orderID, &payloads.OrderCreatedEvent{OrderID: orderID})

	err := consumer.Handle(context.Background(), env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestConsumerRejectsUnknownPayload(t *testing.T) {
	consumer := mustConsumer(t, &fakeInserter{})
	env := dispatch.Envelope{EventID: uuid.New(), EventType: enums.EventOrderPaid, Payload: map[string]any{}}
	require.Error(t, consumer.Handle(context.Background(), env))
}

func TestConsumerHandlesOrderEvents(t *testing.T) {
	consumer := mustConsumer(t, &fakeInserter{})
	for _, eventType := range []enums.OutboxEventType{enums.EventOrderCreated, enums.EventOrderPaid, enums.EventOrderFailed} {
		assert.True(t, consumer.Handles(eventType), eventType)
	}
	assert.False(t, consumer.Handles("order_shipped"))
}

func TestNewConsumerValidates(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "analytics-test", Output: io.Discard})
	_, err := NewConsumer(nil, "order_events", logg)
	assert.Error(t, err)
	_, err = NewConsumer(&fakeInserter{}, "  ", logg)
	assert.Error(t, err)
	_, err = NewConsumer(&fakeInserter{}, "order_events", nil)
	assert.Error(t, err)
}
