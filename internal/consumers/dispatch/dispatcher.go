package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

// Envelope is an order event as delivered to handlers. Payload holds the typed
// struct from pkg/outbox/payloads.
type Envelope struct {
	EventID       uuid.UUID
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	OccurredAt    time.Time
	Actor         *outbox.ActorRef
	Data          json.RawMessage
	Payload       any
}

// Handler processes the events it declares interest in. Name scopes its idempotency keys.
type Handler interface {
	Name() string
	Handles(eventType enums.OutboxEventType) bool
	Handle(ctx context.Context, envelope Envelope) error
}

type payloadDecoder interface {
	Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error)
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

// Dispatcher fans every message of the orders subscription out to its handlers.
type Dispatcher struct {
	subscription receiver
	decoder      payloadDecoder
	handlers     []Handler
	manager      idempotencyChecker
	logg         *logger.Logger
}

// NewDispatcher wires a subscription to handlers.
func NewDispatcher(subscription receiver, decoder payloadDecoder, manager idempotencyChecker, logg *logger.Logger, handlers ...Handler) (*Dispatcher, error) {
	if subscription == nil {
		return nil, errors.New("orders subscription is required")
	}
	if decoder == nil {
		return nil, errors.New("payload decoder is required")
	}
	if manager == nil {
		return nil, errors.New("idempotency manager is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	if len(handlers) == 0 {
		return nil, errors.New("at least one handler is required")
	}
	return &Dispatcher{
		subscription: subscription,
		decoder:      decoder,
		handlers:     handlers,
		manager:      manager,
		logg:         logg,
	}, nil
}

// Run consumes messages until the context is canceled.
func (d *Dispatcher) Run(ctx context.Context) error {
	return d.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if d.Process(innerCtx, msg.ID, msg.Data, msg.Attributes) {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Process handles one message and reports whether it should be redelivered.
// Malformed messages are acked and dropped. A handler that already succeeded
// for the event is skipped on redelivery.
func (d *Dispatcher) Process(ctx context.Context, messageID string, data []byte, attrs map[string]string) (nack bool) {
	logCtx := d.logg.WithField(ctx, "message_id", messageID)

	envelope, err := d.buildEnvelope(data, attrs)
	if err != nil {
		d.logg.Warn(d.logg.WithField(logCtx, "error", err.Error()), "invalid order event")
		return false
	}
	logCtx = d.logg.WithFields(logCtx, map[string]any{
		"event_id":     envelope.EventID.String(),
		"event_type":   string(envelope.EventType),
		"aggregate_id": envelope.AggregateID.String(),
	})

	for _, handler := range d.handlers {
		if !handler.Handles(envelope.EventType) {
			continue
		}
		hCtx := d.logg.WithField(logCtx, "consumer", handler.Name())

		already, err := d.manager.CheckAndMarkProcessed(hCtx, handler.Name(), envelope.EventID)
		if err != nil {
			d.logg.Error(hCtx, "idempotency check failed", err)
			nack = true
			continue
		}
		if already {
			d.logg.Debug(hCtx, "event already processed")
			continue
		}
		if err := handler.Handle(hCtx, *envelope); err != nil {
			d.logg.Error(hCtx, "handler error", err)
			_ = d.manager.Delete(hCtx, handler.Name(), envelope.EventID)
			nack = true
			continue
		}
		d.logg.Info(hCtx, "order event handled")
	}
	return nack
}

func (d *Dispatcher) buildEnvelope(data []byte, attrs map[string]string) (*Envelope, error) {
	stored, err := outbox.Open(data)
	if err != nil {
		return nil, err
	}

	eventType, err := enums.ParseOutboxEventType(strings.TrimSpace(attrs["event_type"]))
	if err != nil {
		return nil, fmt.Errorf("event_type: %w", err)
	}
	aggregateType, err := enums.ParseOutboxAggregateType(strings.TrimSpace(attrs["aggregate_type"]))
	if err != nil {
		return nil, fmt.Errorf("aggregate_type: %w", err)
	}
	aggregateID, err := uuid.Parse(strings.TrimSpace(attrs["aggregate_id"]))
	if err != nil {
		return nil, fmt.Errorf("aggregate_id: %w", err)
	}

	rawID := strings.TrimSpace(stored.EventID)
	if rawID == "" {
		rawID = strings.TrimSpace(attrs["event_id"])
	}
	eventID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("event_id: %w", err)
	}

	occurredAt := stored.OccurredAt
	if occurredAt.IsZero() {
		if created := strings.TrimSpace(attrs["created_at"]); created != "" {
			if parsed, err := time.Parse(time.RFC3339Nano, created); err == nil {
				occurredAt = parsed
			}
		}
	}

	version := stored.Version
	if version == 0 {
		version = 1
	}
	payload, err := d.decoder.Decode(eventType, version, stored.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", eventType, err)
	}

	return &Envelope{
		EventID:       eventID,
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		OccurredAt:    occurredAt.UTC(),
		Actor:         stored.Actor,
		Data:          stored.Data,
		Payload:       payload,
	}, nil
}
