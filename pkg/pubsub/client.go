// Package pubsub wraps the Pub/Sub v2 client used to deliver domain events.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/ttml-backend/pkg/config"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
)

var ErrTopicMissing = errors.New("pubsub topic does not exist")

type Client struct {
	client   *pubsub.Client
	topic    string
	settings pubsub.PublishSettings
}

// NewClient connects to Pub/Sub and refuses to start if the domain topic is
// missing; topics are provisioned outside the service.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	topic, err := TopicResourceName(gcp.ProjectID, cfg.DomainTopic)
	if err != nil {
		return nil, err
	}

	raw, err := pubsub.NewClient(ctx, strings.TrimSpace(gcp.ProjectID))
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	settings := pubsub.DefaultPublishSettings
	if cfg.PublishDelay > 0 {
		settings.DelayThreshold = cfg.PublishDelay
	}
	if cfg.PublishCount > 0 {
		settings.CountThreshold = cfg.PublishCount
	}
	c := &Client{client: raw, topic: topic, settings: settings}

	if err := c.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", topic), "pubsub client ready")
	}
	return c, nil
}

// DomainPublisher returns a publisher for the domain topic with the configured
// batching. The caller must Stop it to flush pending messages.
func (c *Client) DomainPublisher() *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	p := c.client.Publisher(c.topic)
	p.PublishSettings = c.settings
	return p
}

// Ping looks the domain topic up through the admin API.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topic})
	return classify(c.topic, err)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func classify(topic string, err error) error {
	switch status.Code(err) {
	case codes.OK:
		return nil
	case codes.NotFound:
		return fmt.Errorf("%w: %s", ErrTopicMissing, topic)
	case codes.PermissionDenied, codes.Unauthenticated:
		return fmt.Errorf("pubsub credentials cannot read %s: %w", topic, err)
	}
	return fmt.Errorf("checking topic %s: %w", topic, err)
}

// TopicResourceName turns a topic id into projects/<project>/topics/<id>.
// Full resource names pass through unchanged.
func TopicResourceName(projectID, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", errors.New("pubsub domain topic is required")
	}
	if rest, ok := strings.CutPrefix(topic, "projects/"); ok {
		if project, id, ok := strings.Cut(rest, "/topics/"); ok && project != "" && id != "" {
			return topic, nil
		}
		return "", fmt.Errorf("malformed topic resource name %q", topic)
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return "", errors.New("gcp project id is required")
	}
	return "projects/" + projectID + "/topics/" + topic, nil
}
