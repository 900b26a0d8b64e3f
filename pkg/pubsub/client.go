package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/gcp"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var (
	errNotInitialized       = errors.New("pubsub client not initialized")
	errTopicRequired        = errors.New("pubsub orders topic is required")
	errSubscriptionRequired = errors.New("pubsub orders subscription is required")
)

// Options says which resources the caller needs. Publishers only need the
// topic; the worker also needs its subscription.
type Options struct {
	RequireSubscription bool
}

// Client wraps the v2 client with the storefront's orders topic and
// subscription resolved to full resource names.
type Client struct {
	client       *pubsub.Client
	project      string
	topic        string
	subscription string
}

func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.PubSubConfig, opts Options, logg *logger.Logger) (*Client, error) {
	project, err := gcp.ProjectID(gcpCfg.ProjectID)
	if err != nil {
		return nil, err
	}
	topic := strings.TrimSpace(cfg.OrdersTopic)
	if topic == "" {
		return nil, errTopicRequired
	}
	subscription := strings.TrimSpace(cfg.OrdersSubscription)
	if subscription == "" && opts.RequireSubscription {
		return nil, errSubscriptionRequired
	}

	psClient, err := pubsub.NewClient(ctx, project, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{
		client:       psClient,
		project:      project,
		topic:        gcp.ResourceName(project, "topics", topic),
		subscription: gcp.ResourceName(project, "subscriptions", subscription),
	}
	if err := c.Ping(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"topic":        c.topic,
			"subscription": c.subscription,
		}), "pubsub client initialized")
	}
	return c, nil
}

// Ping checks that the topic, and the subscription when one is set, exist.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	if _, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topic}); err != nil {
		return lookupError("topic", c.topic, err)
	}
	if c.subscription == "" {
		return nil
	}
	_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: c.subscription})
	if err != nil {
		return lookupError("subscription", c.subscription, err)
	}
	return nil
}

func lookupError(kind, name string, err error) error {
	if gcp.IsNotFound(err) {
		return fmt.Errorf("%s %q does not exist", kind, name)
	}
	return fmt.Errorf("checking %s %q: %w", kind, name, err)
}

// Subscription returns a subscriber for a short id or full resource name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	full := gcp.ResourceName(c.project, "subscriptions", name)
	if full == "" {
		return nil
	}
	return c.client.Subscriber(full)
}

func (c *Client) OrdersSubscription() *pubsub.Subscriber {
	if c == nil {
		return nil
	}
	return c.Subscription(c.subscription)
}

// Publisher returns a publisher for a short id or full resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	full := gcp.ResourceName(c.project, "topics", name)
	if full == "" {
		return nil
	}
	return c.client.Publisher(full)
}

func (c *Client) OrdersPublisher() *pubsub.Publisher {
	if c == nil {
		return nil
	}
	return c.Publisher(c.topic)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
