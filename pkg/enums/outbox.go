package enums

import "fmt"

// OutboxAggregateType maps to outbox_events.aggregate_type.
type OutboxAggregateType string

const AggregateOrder OutboxAggregateType = "order"

// OutboxEventType maps to outbox_events.event_type.
type OutboxEventType string

const (
	EventOrderCreated OutboxEventType = "order_created"
	EventOrderPaid    OutboxEventType = "order_paid"
	EventOrderFailed  OutboxEventType = "order_failed"
)

// eventAggregates pairs every publishable event with the aggregate that owns it.
var eventAggregates = map[OutboxEventType]OutboxAggregateType{
	EventOrderCreated: AggregateOrder,
	EventOrderPaid:    AggregateOrder,
	EventOrderFailed:  AggregateOrder,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	_, ok := eventAggregates[e]
	return ok
}

// Aggregate returns the aggregate type the event is written against.
func (e OutboxEventType) Aggregate() (OutboxAggregateType, bool) {
	agg, ok := eventAggregates[e]
	return agg, ok
}

// IsValid reports whether any event is owned by the aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, owner := range eventAggregates {
		if owner == a {
			return true
		}
	}
	return false
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	if e := OutboxEventType(value); e.IsValid() {
		return e, nil
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	if a := OutboxAggregateType(value); a.IsValid() {
		return a, nil
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OrderEventForStatus returns the event emitted when an order enters status.
func OrderEventForStatus(status OrderStatus) (OutboxEventType, bool) {
	switch status {
	case OrderStatusPending:
		return EventOrderCreated, true
	case OrderStatusPaid:
		return EventOrderPaid, true
	case OrderStatusFailed:
		return EventOrderFailed, true
	}
	return "", false
}

// OutboxDLQErrorReason records why an event was parked in outbox_dlq.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts means retries ran out on a transient failure.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable means the event could never publish as written.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
