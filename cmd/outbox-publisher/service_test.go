package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

func orderRow(t *testing.T, eventType enums.OutboxEventType, attempts int) models.OutboxEvent {
	t.Helper()
	env, err := outbox.Seal(map[string]string{"note": "x"}, nil, 1, time.Now())
	require.NoError(t, err)
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       raw,
		AttemptCount:  attempts,
		CreatedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func newTestService(t *testing.T, repo *fakeRepo, topics *fakeTopics, resolver registryResolver, dlq *fakeDLQRepo, maxAttempts int) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Config:        config.OutboxConfig{BatchSize: 2, PollIntervalMS: 10, MaxAttempts: maxAttempts},
		Logger:        logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:            fakeDB{},
		Topics:        topics,
		Repository:    repo,
		Registry:      resolver,
		DLQRepository: dlq,
	})
	require.NoError(t, err)
	return svc
}

func TestProcessBatchContinuesAfterTransientFailure(t *testing.T) {
	first, second := orderRow(t, enums.EventOrderCreated, 0), orderRow(t, enums.EventOrderCreated, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{first, second}}
	topics := &fakeTopics{errs: []error{errors.New("transient"), nil}}
	svc := newTestService(t, repo, topics, staticResolver{payload: &payloads.OrderCreatedEvent{}}, &fakeDLQRepo{}, 5)

	handled, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, handled)
	assert.Equal(t, []uuid.UUID{first.ID}, repo.failed)
	assert.Equal(t, []uuid.UUID{second.ID}, repo.published)
	assert.Empty(t, repo.terminal)
}

func TestProcessBatchCountsResults(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{
		orderRow(t, enums.EventOrderPaid, 0),
		orderRow(t, enums.EventOrderPaid, 0),
	}}
	topics := &fakeTopics{errs: []error{nil, errors.New("transient")}}
	svc := newTestService(t, repo, topics, staticResolver{payload: &payloads.OrderPaidEvent{}}, &fakeDLQRepo{}, 5)
	reg := prometheus.NewRegistry()
	svc.metrics = metrics.NewOutboxMetrics(reg)

	_, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float64(1), counterValue(t, reg, metrics.OutboxResultPublished))
	assert.Equal(t, float64(1), counterValue(t, reg, metrics.OutboxResultRetry))
}

func TestRelaySendsEnvelopeWithRoutingAttributes(t *testing.T) {
	row := orderRow(t, enums.EventOrderCreated, 0)
	topics := &fakeTopics{}
	svc := newTestService(t, &fakeRepo{events: []models.OutboxEvent{row}}, topics, staticResolver{}, &fakeDLQRepo{}, 5)

	_, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, topics.sent, 1)

	sent := topics.sent[0]
	assert.Equal(t, "orders-topic", sent.topic)
	assert.JSONEq(t, string(row.Payload), string(sent.msg.Data))
	assert.Equal(t, map[string]string{
		"event_id":       row.ID.String(),
		"event_type":     "order_created",
		"aggregate_type": "order",
		"aggregate_id":   row.AggregateID.String(),
		"created_at":     "2026-03-01T12:00:00Z",
	}, sent.msg.Attributes)
}

func TestResolveFailureParksRow(t *testing.T) {
	row := orderRow(t, enums.EventOrderCreated, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{row}}
	dlq := &fakeDLQRepo{}
	topics := &fakeTopics{}
	svc := newTestService(t, repo, topics, staticResolver{err: errors.New("invalid payload")}, dlq, 5)

	_, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, topics.sent)
	require.Len(t, dlq.entries, 1)
	entry := dlq.entries[0]
	assert.Equal(t, row.ID, entry.EventID)
	assert.Equal(t, []byte(row.Payload), []byte(entry.Payload))
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, entry.ErrorReason)
	assert.Equal(t, []uuid.UUID{row.ID}, repo.terminal)
}

func TestLastAttemptParksRow(t *testing.T) {
	row := orderRow(t, enums.EventOrderCreated, 1)
	repo := &fakeRepo{events: []models.OutboxEvent{row}}
	dlq := &fakeDLQRepo{}
	topics := &fakeTopics{errs: []error{errors.New("transient")}}
	svc := newTestService(t, repo, topics, staticResolver{}, dlq, 2)

	_, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, dlq.entries, 1)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, dlq.entries[0].ErrorReason)
	assert.Equal(t, []uuid.UUID{row.ID}, repo.terminal)
	assert.Empty(t, repo.failed)
}

func TestNonRetryablePublishErrorParksRow(t *testing.T) {
	row := orderRow(t, enums.EventOrderPaid, 0)
	dlq := &fakeDLQRepo{}
	topics := &fakeTopics{errs: []error{registry.NewNonRetryableError(errors.New("no publisher"))}}
	svc := newTestService(t, &fakeRepo{events: []models.OutboxEvent{row}}, topics, staticResolver{}, dlq, 5)

	_, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, dlq.entries, 1)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, dlq.entries[0].ErrorReason)
}

func TestBookkeepingFailureAbortsBatch(t *testing.T) {
	repo := &fakeRepo{
		events:     []models.OutboxEvent{orderRow(t, enums.EventOrderPaid, 0)},
		publishErr: errors.New("db gone"),
	}
	svc := newTestService(t, repo, &fakeTopics{}, staticResolver{}, &fakeDLQRepo{}, 5)

	_, err := svc.processBatch(context.Background())
	assert.ErrorContains(t, err, "mark published")
}

func TestRunStopsWhenContextCanceled(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, &fakeTopics{}, staticResolver{}, &fakeDLQRepo{}, 5)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := svc.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: logger.New(logger.Options{Output: io.Discard})})
	assert.Error(t, err)
}

type fakeRepo struct {
	events     []models.OutboxEvent
	published  []uuid.UUID
	failed     []uuid.UUID
	terminal   []uuid.UUID
	publishErr error
}

func (f *fakeRepo) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDB struct{}

func (fakeDB) Ping(context.Context) error { return nil }

func (fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type sentMessage struct {
	topic string
	msg   *gcppubsub.Message
}

// fakeTopics returns errs in order, then nil.
type fakeTopics struct {
	errs []error
	sent []sentMessage
}

func (f *fakeTopics) Ping(context.Context) error { return nil }

func (f *fakeTopics) Publish(_ context.Context, topic string, msg *gcppubsub.Message) error {
	f.sent = append(f.sent, sentMessage{topic: topic, msg: msg})
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

type staticResolver struct {
	payload any
	err     error
}

func (r staticResolver) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{EventType: event.EventType, AggregateType: event.AggregateType, Topic: "orders-topic"},
		Envelope:   outbox.PayloadEnvelope{EventID: event.ID.String(), OccurredAt: time.Now()},
		Payload:    r.payload,
	}, nil
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQRepo) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}

func counterValue(t *testing.T, reg *prometheus.Registry, result string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "outbox_publish_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "result" && label.GetValue() == result {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	require.Failf(t, "missing sample", "no outbox_publish_total sample for %q", result)
	return 0
}
