package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MemoryBus is an in-process Bus for development and tests. Each subscriber
// owns a buffered channel drained by a single goroutine, so messages for a
// topic are handled in publish order per subscriber. Publish blocks when a
// subscriber's buffer is full rather than dropping lifecycle events.
type MemoryBus struct {
	cfg    Config
	log    *slog.Logger
	mu     sync.RWMutex
	topics map[string]map[*memorySub]struct{}
	closed bool
	wg     sync.WaitGroup
}

// MemoryBusOption configures a MemoryBus.
type MemoryBusOption func(*MemoryBus)

// WithMemoryLogger sets the logger used for redelivery reporting.
func WithMemoryLogger(log *slog.Logger) MemoryBusOption {
	return func(b *MemoryBus) {
		if log != nil {
			b.log = log
		}
	}
}

// NewMemoryBus creates an in-process bus with the given config.
func NewMemoryBus(cfg Config, opts ...MemoryBusOption) *MemoryBus {
	b := &MemoryBus{
		cfg:    cfg.withDefaults(),
		log:    slog.Default(),
		topics: make(map[string]map[*memorySub]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type memorySub struct {
	bus     *MemoryBus
	topic   string
	ch      chan Message
	done    chan struct{}
	closeMu sync.Mutex
	closed  bool
}

func (s *memorySub) Unsubscribe() error {
	s.bus.removeSub(s)
	return nil
}

func (s *memorySub) close() {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.done)
	}
}

func (b *MemoryBus) Publish(ctx context.Context, msg Message) error {
	if msg.Topic == "" {
		return ErrEmptyTopic
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	subs := make([]*memorySub, 0, len(b.topics[msg.Topic]))
	for sub := range b.topics[msg.Topic] {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.ch <- msg:
		case <-sub.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, topic string, h Handler) (Subscription, error) {
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

	sub := &memorySub{
		bus:   b,
		topic: topic,
		ch:    make(chan Message, b.cfg.BufferSize),
		done:  make(chan struct{}),
	}
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[*memorySub]struct{})
	}
	b.topics[topic][sub] = struct{}{}
	b.mu.Unlock()

	b.wg.Add(1)
	go b.drain(ctx, sub, h)

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				b.removeSub(sub)
			case <-sub.done:
			}
		}()
	}

	return sub, nil
}

// drain invokes the handler for each message, redelivering failures up to
// the configured limit before dropping the message with an error log.
func (b *MemoryBus) drain(ctx context.Context, sub *memorySub, h Handler) {
	defer b.wg.Done()

	for {
		select {
		case <-sub.done:
			return
		case msg := <-sub.ch:
			b.deliver(ctx, sub, h, msg)
		}
	}
}

func (b *MemoryBus) deliver(ctx context.Context, sub *memorySub, h Handler, msg Message) {
	var lastErr error
	for attempt := 0; attempt <= b.cfg.MaxRedeliveries; attempt++ {
		if attempt > 0 {
			select {
			case <-sub.done:
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

func (b *MemoryBus) removeSub(sub *memorySub) {
	b.mu.Lock()
	if subs, ok := b.topics[sub.topic]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.topics, sub.topic)
		}
	}
	b.mu.Unlock()

	sub.close()
}

// Close shuts the bus down and waits for in-flight handlers to return.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for _, subs := range b.topics {
		for sub := range subs {
			sub.close()
		}
	}
	clear(b.topics)
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}
