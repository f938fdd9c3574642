package pubsub

import (
	"context"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/tollwatch-backend/pkg/config"
	"github.com/angelmondragon/tollwatch-backend/pkg/gcp"
	"github.com/angelmondragon/tollwatch-backend/pkg/logger"
)

var (
	errClientNotInitialized = errors.New("pubsub client not initialized")
	errSubscriptionMissing  = errors.New("position and account subscriptions are required")
)

// Client owns the Pub/Sub connection used by the alert worker.
type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
}

// Subscribers are the two feeds the alert worker consumes.
type Subscribers struct {
	Positions *pubsub.Subscriber
	Accounts  *pubsub.Subscriber
}

// NewClient connects and fails fast when a configured subscription is
// missing on the server.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID, err := gcp.ProjectID(gcpCfg)
	if err != nil {
		return nil, err
	}
	raw, err := pubsub.NewClient(ctx, projectID, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{client: raw, projectID: projectID, cfg: cfg}
	if err := c.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "subscriptions", c.resourceNames()), "pubsub client initialized")
	}
	return c, nil
}

// Subscribers resolves both feeds with the configured flow control.
func (c *Client) Subscribers() (Subscribers, error) {
	if c == nil || c.client == nil {
		return Subscribers{}, errClientNotInitialized
	}
	positions := c.subscriber(c.cfg.PositionSubscription)
	accounts := c.subscriber(c.cfg.AccountSubscription)
	if positions == nil || accounts == nil {
		return Subscribers{}, errSubscriptionMissing
	}
	return Subscribers{Positions: positions, Accounts: accounts}, nil
}

func (c *Client) subscriber(id string) *pubsub.Subscriber {
	name := gcp.ResourceName(c.projectID, "subscriptions", id)
	if name == "" {
		return nil
	}
	sub := c.client.Subscriber(name)
	if c.cfg.MaxOutstanding > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = c.cfg.MaxOutstanding
	}
	if c.cfg.ReceiveGoroutines > 0 {
		sub.ReceiveSettings.NumGoroutines = c.cfg.ReceiveGoroutines
	}
	return sub
}

// Ping checks that every configured subscription exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errClientNotInitialized
	}
	names := c.resourceNames()
	if len(names) == 0 {
		return errSubscriptionMissing
	}
	for _, name := range names {
		_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: name})
		switch {
		case status.Code(err) == codes.NotFound:
			return fmt.Errorf("subscription %s does not exist", name)
		case err != nil:
			return fmt.Errorf("checking subscription %s: %w", name, err)
		}
	}
	return nil
}

// Close releases the connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) resourceNames() []string {
	var names []string
	for _, id := range []string{c.cfg.PositionSubscription, c.cfg.AccountSubscription} {
		if name := gcp.ResourceName(c.projectID, "subscriptions", id); name != "" {
			names = append(names, name)
		}
	}
	return names
}
