package main

import (
	"context"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

const defaultPublishTimeout = 15 * time.Second

type pubSubClient interface {
	Ping(context.Context) error
	OrdersPublisher() *gcppubsub.Publisher
	Publisher(name string) *gcppubsub.Publisher
}

// pubsubTopics publishes through the shared client, reusing the orders
// publisher so its batching settings apply.
type pubsubTopics struct {
	client      pubSubClient
	ordersTopic string
	timeout     time.Duration
}

func newPubSubTopics(client pubSubClient, ordersTopic string) *pubsubTopics {
	return &pubsubTopics{client: client, ordersTopic: ordersTopic, timeout: defaultPublishTimeout}
}

func (p *pubsubTopics) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

func (p *pubsubTopics) Publish(ctx context.Context, topic string, msg *gcppubsub.Message) error {
	pub := p.publisher(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	_, err := pub.Publish(ctx, msg).Get(ctx)
	return err
}

func (p *pubsubTopics) publisher(topic string) *gcppubsub.Publisher {
	if topic == p.ordersTopic {
		return p.client.OrdersPublisher()
	}
	return p.client.Publisher(topic)
}
