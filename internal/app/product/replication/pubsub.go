package replication

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
)

// RoutingKeyAttribute carries the routing key of a message.
const RoutingKeyAttribute = "routing_key"

// PubSubPublisher publishes every routing key on one Pub/Sub topic and
// lets subscribers filter on the routing key attribute.
type PubSubPublisher struct {
	topic *pubsub.Topic
}

// NewPubSubPublisher creates a publisher on topic.
func NewPubSubPublisher(topic *pubsub.Topic) (*PubSubPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub publisher: topic is required")
	}
	return &PubSubPublisher{topic: topic}, nil
}

// Publish sends payload and waits for the server to acknowledge it.
func (p *PubSubPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       payload,
		Attributes: map[string]string{RoutingKeyAttribute: routingKey},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

// Stop flushes pending messages.
func (p *PubSubPublisher) Stop() {
	p.topic.Stop()
}
