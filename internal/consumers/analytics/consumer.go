package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/consumers/dispatch"
	"github.com/angelmondragon/storefront-backend/pkg/bigquery"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

const consumerName = "analytics"

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []bigquery.Row) error
}

// Consumer streams order lifecycle events into the BigQuery order_events table.
type Consumer struct {
	client tableInserter
	table  string
	logg   *logger.Logger
}

// NewConsumer builds a new analytics consumer.
func NewConsumer(client tableInserter, table string, logg *logger.Logger) (*Consumer, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("bigquery table name required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		client: client,
		table:  strings.TrimSpace(table),
		logg:   logg,
	}, nil
}

var _ dispatch.Handler = (*Consumer)(nil)

func (c *Consumer) Name() string { return consumerName }

func (c *Consumer) Handles(eventType enums.OutboxEventType) bool {
	switch eventType {
	case enums.EventOrderCreated, enums.EventOrderPaid, enums.EventOrderFailed:
		return true
	}
	return false
}

// Handle inserts one row per event.
func (c *Consumer) Handle(ctx context.Context, envelope dispatch.Envelope) error {
	row, err := buildRow(envelope)
	if err != nil {
		return err
	}
	if err := c.client.InsertRows(ctx, c.table, []bigquery.Row{{InsertID: row.EventID, Value: row}}); err != nil {
		return fmt.Errorf("insert order event row: %w", err)
	}
	return nil
}

type orderEventRow struct {
	EventID      string             `bigquery:"event_id"`
	EventType    string             `bigquery:"event_type"`
	OccurredAt   time.Time          `bigquery:"occurred_at"`
	OrderID      string             `bigquery:"order_id"`
	UserID       *string            `bigquery:"user_id"`
	CartID       *string            `bigquery:"cart_id"`
	PreferenceID *string            `bigquery:"preference_id"`
	Total        *string            `bigquery:"total"`
	Currency     *string            `bigquery:"currency"`
	Status       *string            `bigquery:"status"`
	Payload      cbigquery.NullJSON `bigquery:"payload"`
}

func buildRow(envelope dispatch.Envelope) (*orderEventRow, error) {
	row := &orderEventRow{
		EventID:    envelope.EventID.String(),
		EventType:  string(envelope.EventType),
		OccurredAt: envelope.OccurredAt,
		OrderID:    envelope.AggregateID.String(),
	}
	if len(envelope.Data) > 0 {
		row.Payload = cbigquery.NullJSON{JSONVal: string(envelope.Data), Valid: true}
	}

	switch p := envelope.Payload.(type) {
	case *payloads.OrderCreatedEvent:
		row.UserID = idValue(p.UserID)
		row.CartID = idValue(p.CartID)
		row.PreferenceID = stringValue(p.PreferenceID)
		row.Total = amountValue(p.Total)
		row.Currency = stringValue(p.Currency)
		row.Status = stringValue(string(enums.OrderStatusPending))
	case *payloads.OrderPaidEvent:
		row.UserID = idValue(p.UserID)
		row.CartID = idValue(p.CartID)
		row.PreferenceID = stringValue(p.PreferenceID)
		row.Total = amountValue(p.Total)
		row.Currency = stringValue(p.Currency)
		row.Status = stringValue(string(enums.OrderStatusPaid))
	case *payloads.OrderFailedEvent:
		row.UserID = idValue(p.UserID)
		row.CartID = idValue(p.CartID)
		row.PreferenceID = stringValue(p.PreferenceID)
		row.Status = stringValue(string(p.Status))
	default:
		return nil, fmt.Errorf("unsupported payload %T for %s", envelope.Payload, envelope.EventType)
	}
	return row, nil
}

func idValue(id uuid.UUID) *string {
	if id == uuid.Nil {
		return nil
	}
	s := id.String()
	return &s
}

func amountValue(d decimal.Decimal) *string {
	s := d.StringFixed(2)
	return &s
}

func stringValue(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
