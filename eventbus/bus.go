package eventbus

import "context"

// Message is a single published record. Key carries the partitioning hint
// (the recipient ID for lifecycle events); implementations that cannot use
// it still deliver messages for one topic in publish order per subscriber.
type Message struct {
	Topic   string `json:"topic"`
	Key     string `json:"key,omitempty"`
	Payload []byte `json:"payload"`
}

// Handler consumes a message. Returning nil acknowledges it; returning an
// error triggers redelivery up to the bus's redelivery limit.
type Handler func(ctx context.Context, msg Message) error

// Subscription represents an active topic subscription.
type Subscription interface {
	// Unsubscribe stops delivery and releases the subscription's resources.
	// It is idempotent.
	Unsubscribe() error
}

// Bus is a topic-based publish/subscribe transport for event payloads.
type Bus interface {
	Publish(ctx context.Context, msg Message) error
	Subscribe(ctx context.Context, topic string, h Handler) (Subscription, error)
	Close() error
}
