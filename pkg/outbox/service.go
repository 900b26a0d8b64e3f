package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const uniqueEventAggIndex = "ux_outbox_events_event_aggregate"

var errTxRequired = errors.New("transaction required")

// DomainEvent is a state change waiting to be written to the outbox.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

// OrderEvent builds the event describing an order lifecycle change.
func OrderEvent(eventType enums.OutboxEventType, orderID uuid.UUID, actor *ActorRef, data any) DomainEvent {
	return DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Actor:         actor,
		Data:          data,
	}
}

// row checks the event against its registered aggregate and seals the payload.
func (e DomainEvent) row() (models.OutboxEvent, PayloadEnvelope, error) {
	owner, ok := e.EventType.Aggregate()
	if !ok {
		return models.OutboxEvent{}, PayloadEnvelope{}, fmt.Errorf("unknown outbox event type %q", e.EventType)
	}
	if e.AggregateType == "" {
		e.AggregateType = owner
	}
	if e.AggregateType != owner {
		return models.OutboxEvent{}, PayloadEnvelope{}, fmt.Errorf("event %s belongs to %s, not %s", e.EventType, owner, e.AggregateType)
	}
	if e.AggregateID == uuid.Nil {
		return models.OutboxEvent{}, PayloadEnvelope{}, errors.New("aggregate id required")
	}
	env, err := Seal(e.Data, e.Actor, e.Version, e.OccurredAt)
	if err != nil {
		return models.OutboxEvent{}, PayloadEnvelope{}, err
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return models.OutboxEvent{}, PayloadEnvelope{}, err
	}
	return models.OutboxEvent{
		EventType:     e.EventType,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		Payload:       raw,
	}, env, nil
}

// Service queues domain events in the caller's transaction.
type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

// Emit writes the event inside tx so it commits with the state change it describes.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errTxRequired
	}
	row, env, err := event.row()
	if err != nil {
		return err
	}
	if err := s.repo.Insert(tx, row); err != nil {
		return err
	}
	s.logQueued(ctx, row, env.EventID)
	return nil
}

// EmitIfNotExists queues the event at most once per (type, aggregate).
func (s *Service) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errTxRequired
	}
	aggregate := event.AggregateType
	if aggregate == "" {
		aggregate, _ = event.EventType.Aggregate()
	}
	exists, err := s.repo.ExistsTx(tx, event.EventType, aggregate, event.AggregateID)
	if err != nil || exists {
		return err
	}
	err = s.Emit(ctx, tx, event)
	if dbpkg.IsUniqueViolation(err, uniqueEventAggIndex) {
		return nil
	}
	return err
}

func (s *Service) logQueued(ctx context.Context, row models.OutboxEvent, eventID string) {
	if s.logg == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"event_id":       eventID,
		"event_type":     row.EventType,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID.String(),
	}), "outbox event queued")
}
