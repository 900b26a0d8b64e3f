package registry

import (
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

// Decoder turns a stored envelope's data into its typed payload.
type Decoder func(data json.RawMessage) (any, error)

type schema struct {
	event   enums.OutboxEventType
	version int
}

// Decoders maps (event type, version) to a decoder. It is built once at
// startup and only read afterwards, so it carries no lock.
type Decoders map[schema]Decoder

func (d Decoders) Register(event enums.OutboxEventType, version int, dec Decoder) {
	d[schema{event, version}] = dec
}

func (d Decoders) Decode(event enums.OutboxEventType, version int, data json.RawMessage) (any, error) {
	dec, ok := d[schema{event, version}]
	if !ok {
		return nil, fmt.Errorf("no decoder for %s v%d", event, version)
	}
	return dec(data)
}

// JSON decodes into a fresh *T.
func JSON[T any]() Decoder {
	return func(data json.RawMessage) (any, error) {
		out := new(T)
		if err := json.Unmarshal(data, out); err != nil {
			return nil, fmt.Errorf("decode %T: %w", out, err)
		}
		return out, nil
	}
}

// NewOrderDecoders knows the v1 payload of every order event.
func NewOrderDecoders() Decoders {
	d := Decoders{}
	d.Register(enums.EventOrderCreated, 1, JSON[payloads.OrderCreatedEvent]())
	d.Register(enums.EventOrderPaid, 1, JSON[payloads.OrderPaidEvent]())
	d.Register(enums.EventOrderFailed, 1, JSON[payloads.OrderFailedEvent]())
	return d
}
