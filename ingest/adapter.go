package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/studentsystem/notify/eventbus"
	"github.com/studentsystem/notify/notification"
	"github.com/studentsystem/notify/pkg/logger"
)

// Creator is the engine operation the adapter drives.
type Creator interface {
	Create(ctx context.Context, params notification.CreateParams) (*notification.Notification, error)
}

// Adapter turns upstream service events into notifications. It subscribes
// to the ingest topics and acknowledges a message only after the resulting
// notification is stored, so create failures are redelivered by the bus.
// Unknown event types are logged and acknowledged; they are not errors.
type Adapter struct {
	engine Creator
	dedup  Deduplicator
	log    *slog.Logger

	subs []eventbus.Subscription
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithDeduplicator enables suppression of redelivered events by event ID.
func WithDeduplicator(d Deduplicator) AdapterOption {
	return func(a *Adapter) {
		a.dedup = d
	}
}

// WithAdapterLogger sets the adapter's logger.
func WithAdapterLogger(log *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		if log != nil {
			a.log = log
		}
	}
}

// NewAdapter creates an ingest adapter over the given engine.
func NewAdapter(engine Creator, opts ...AdapterOption) (*Adapter, error) {
	if engine == nil {
		return nil, ErrEngineNil
	}

	a := &Adapter{
		engine: engine,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Run subscribes the adapter to every ingest topic on the bus. Subscriptions
// stay active until Stop or context cancellation.
func (a *Adapter) Run(ctx context.Context, bus eventbus.Bus) error {
	if bus == nil {
		return ErrBusNil
	}

	for _, topic := range Topics() {
		sub, err := bus.Subscribe(ctx, topic, a.Handle)
		if err != nil {
			a.Stop()
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		a.subs = append(a.subs, sub)
	}
	return nil
}

// Stop unsubscribes from all topics.
func (a *Adapter) Stop() {
	for _, sub := range a.subs {
		_ = sub.Unsubscribe()
	}
	a.subs = nil
}

// Handle processes one inbound message. A nil return acknowledges the
// message; errors trigger bus redelivery.
func (a *Adapter) Handle(ctx context.Context, msg eventbus.Message) error {
	var event InboundEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		// Malformed payloads never become parseable; ack and move on.
		a.log.ErrorContext(ctx, "skipping malformed inbound event",
			logger.Topic(msg.Topic),
			logger.Error(errors.Join(ErrMalformedEvent, err)),
		)
		return nil
	}

	params, ok := mapEvent(event)
	if !ok {
		a.log.InfoContext(ctx, "skipping unhandled event type",
			logger.Topic(msg.Topic),
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
	if params.RecipientID == "" {
		a.log.ErrorContext(ctx, "skipping event without recipient id",
			logger.Topic(msg.Topic),
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
			logger.Error(ErrMissingRecipient),
		)
		return nil
	}

	// Dedup only events that carry an ID; ID-less events cannot be told
	// apart from genuine repeats.
	if a.dedup != nil && event.EventID != "" {
		seen, err := a.dedup.Seen(ctx, event.EventID)
		if err != nil {
			return err
		}
		if seen {
			a.log.DebugContext(ctx, "suppressing duplicate event",
				slog.String("event_id", event.EventID),
			)
			return nil
		}
	}

	n, err := a.engine.Create(ctx, params)
	if err != nil {
		return errors.Join(ErrCreateFailed, err)
	}

	// Mark only after the create committed. A failed mark risks one
	// duplicate on redelivery; marking earlier would turn a failed create
	// into a suppressed redelivery and lose the notification.
	if a.dedup != nil && event.EventID != "" {
		if err := a.dedup.Mark(ctx, event.EventID); err != nil {
			a.log.WarnContext(ctx, "failed to record processed event id",
				slog.String("event_id", event.EventID),
				logger.Error(err),
			)
		}
	}

	a.log.InfoContext(ctx, "notification created from event",
		logger.NotificationID(n.ID),
		logger.RecipientID(n.RecipientID),
		slog.String("event_type", event.EventType),
		slog.String("category", n.Category),
	)
	return nil
}
