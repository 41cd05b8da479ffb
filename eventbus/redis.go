package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBus is a Bus backed by Redis Pub/Sub. Messages are wrapped in a JSON
// envelope so the partitioning key survives the wire. Redis Pub/Sub is
// fire-and-forget: messages published while no subscriber is connected are
// lost, which the reconciliation sweep compensates for on the consuming side.
type RedisBus struct {
	client *redis.Client
	cfg    Config
	log    *slog.Logger
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// RedisBusOption configures a RedisBus.
type RedisBusOption func(*RedisBus)

// WithRedisLogger sets the logger used for consume loop reporting.
func WithRedisLogger(log *slog.Logger) RedisBusOption {
	return func(b *RedisBus) {
		if log != nil {
			b.log = log
		}
	}
}

// NewRedisBus creates a bus over an already connected client.
func NewRedisBus(client *redis.Client, cfg Config, opts ...RedisBusOption) *RedisBus {
	b := &RedisBus{
		client: client,
		cfg:    cfg.withDefaults(),
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *RedisBus) Publish(ctx context.Context, msg Message) error {
	if msg.Topic == "" {
		return ErrEmptyTopic
	}

	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrBusClosed
	}

	envelope, err := json.Marshal(msg)
	if err != nil {
		return errors.Join(ErrPublishFailed, err)
	}
	if err := b.client.Publish(ctx, msg.Topic, envelope).Err(); err != nil {
		return errors.Join(ErrPublishFailed, err)
	}
	return nil
}

type redisSub struct {
	pubsub *redis.PubSub
	once   sync.Once
}

func (s *redisSub) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		err = s.pubsub.Close()
	})
	return err
}

func (b *RedisBus) Subscribe(ctx context.Context, topic string, h Handler) (Subscription, error) {
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	if h == nil {
		return nil, ErrNilHandler
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBusClosed
	}
	pubsub := b.client.Subscribe(ctx, topic)
	b.mu.Unlock()

	// Force the subscription onto the wire before returning, so callers can
	// publish immediately after Subscribe without losing messages.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	sub := &redisSub{pubsub: pubsub}

	b.wg.Add(1)
	go b.consume(ctx, sub, h)

	return sub, nil
}

func (b *RedisBus) consume(ctx context.Context, sub *redisSub, h Handler) {
	defer b.wg.Done()

	for raw := range sub.pubsub.Channel() {
		var msg Message
		if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
			b.log.ErrorContext(ctx, "skipping undecodable message",
				slog.String("topic", raw.Channel),
				slog.Any("error", errors.Join(ErrDecodeEnvelope, err)),
			)
			continue
		}
		b.deliver(ctx, msg, h)
	}
}

func (b *RedisBus) deliver(ctx context.Context, msg Message, h Handler) {
	var lastErr error
	for attempt := 0; attempt <= b.cfg.MaxRedeliveries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(b.cfg.RedeliveryDelay):
			}
		}

		hctx, cancel := context.WithTimeout(ctx, b.cfg.HandlerTimeout)
		lastErr = h(hctx, msg)
		cancel()
		if lastErr == nil {
			return
		}
	}

	b.log.ErrorContext(ctx, "dropping message after redelivery attempts exhausted",
		slog.String("topic", msg.Topic),
		slog.String("key", msg.Key),
		slog.Int("redeliveries", b.cfg.MaxRedeliveries),
		slog.Any("error", lastErr),
	)
}

// Close marks the bus closed and waits for consume loops to finish. Open
// subscriptions must be unsubscribed by their owners; closing the shared
// Redis client is the caller's responsibility.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}
