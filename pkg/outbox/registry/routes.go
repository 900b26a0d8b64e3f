package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

// EventDescriptor is the publish route for one event type.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
}

// ResolvedEvent is an outbox row that passed validation and is ready to publish.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks a row that will fail the same way on every attempt.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

// IsNonRetryable reports whether err carries a NonRetryableError.
func IsNonRetryable(err error) bool {
	var target NonRetryableError
	return errors.As(err, &target)
}

func nonRetryable(format string, args ...any) error {
	return NonRetryableError{Err: fmt.Errorf(format, args...)}
}

// EventRegistry routes outbox rows to topics and validates their payloads
// with the same decoders subscribers use.
type EventRegistry struct {
	routes   map[enums.OutboxEventType]EventDescriptor
	decoders Decoders
}

// NewEventRegistry routes every order event to the orders topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	topic := strings.TrimSpace(cfg.OrdersTopic)
	if topic == "" {
		return nil, errors.New("orders topic is required")
	}
	reg := &EventRegistry{
		routes:   make(map[enums.OutboxEventType]EventDescriptor),
		decoders: NewOrderDecoders(),
	}
	for _, eventType := range []enums.OutboxEventType{enums.EventOrderCreated, enums.EventOrderPaid, enums.EventOrderFailed} {
		aggregate, _ := eventType.Aggregate()
		reg.routes[eventType] = EventDescriptor{EventType: eventType, AggregateType: aggregate, Topic: topic}
	}
	return reg, nil
}

// Topics lists the distinct topics, sorted.
func (r *EventRegistry) Topics() []string {
	set := make(map[string]struct{}, len(r.routes))
	for _, route := range r.routes {
		set[route.Topic] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for topic := range set {
		out = append(out, topic)
	}
	sort.Strings(out)
	return out
}

// Resolve checks the row against its route and decodes the payload.
// Every failure is non-retryable: the row never changes between attempts.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	route, ok := r.routes[event.EventType]
	switch {
	case !ok:
		return nil, nonRetryable("unsupported event type %s", event.EventType)
	case route.AggregateType != event.AggregateType:
		return nil, nonRetryable("aggregate mismatch: expected %s got %s", route.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, nonRetryable("missing aggregate_id")
	}

	envelope, err := outbox.Open(event.Payload)
	if err != nil {
		return nil, nonRetryable("%s: %w", event.EventType, err)
	}
	version := envelope.Version
	if version <= 0 {
		version = 1
	}
	payload, err := r.decoders.Decode(event.EventType, version, envelope.Data)
	if err != nil {
		return nil, nonRetryable("decode %s payload: %w", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: route, Envelope: envelope, Payload: payload}, nil
}
