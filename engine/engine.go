package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/studentsystem/notify/dispatch"
	"github.com/studentsystem/notify/eventbus"
	"github.com/studentsystem/notify/notification"
	"github.com/studentsystem/notify/pkg/logger"
)

// Engine drives the notification lifecycle: creation, delivery attempts,
// recipient acknowledgements and terminal transitions. All state changes go
// through the storage's compare-and-swap Update, so the first committed
// write wins and a delivery attempt that loses a race (for example against
// Cancel) discards its result. Delivery attempts for one notification are
// additionally serialized with a per-ID lock so the same notification is
// never dispatched twice concurrently; other transitions deliberately skip
// that lock, as an in-flight sender must not delay a cancel or an expiry.
type Engine struct {
	store      notification.Storage
	dispatcher *dispatch.Dispatcher
	bus        eventbus.Bus
	backoff    BackoffStrategy
	log        *slog.Logger
	cfg        Config

	locks *keyedMutex
	sem   chan struct{}
	wg    sync.WaitGroup
	now   func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithBackoff replaces the retry backoff strategy.
func WithBackoff(b BackoffStrategy) Option {
	return func(e *Engine) {
		if b != nil {
			e.backoff = b
		}
	}
}

// WithBus sets the event bus lifecycle events are published to. Without a
// bus the engine runs silently.
func WithBus(bus eventbus.Bus) Option {
	return func(e *Engine) {
		e.bus = bus
	}
}

// WithClock overrides the engine's time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates a lifecycle engine over the given storage and dispatcher.
func New(store notification.Storage, dispatcher *dispatch.Dispatcher, cfg Config, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, ErrStorageNil
	}
	if dispatcher == nil {
		return nil, ErrDispatcherNil
	}

	cfg = cfg.withDefaults()
	e := &Engine{
		store:      store,
		dispatcher: dispatcher,
		backoff:    DefaultBackoffStrategy(),
		log:        slog.Default(),
		cfg:        cfg,
		locks:      newKeyedMutex(),
		sem:        make(chan struct{}, cfg.MaxConcurrentDeliveries),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Create stores a new pending notification, announces it and kicks off the
// first delivery attempt in the background. The notification is returned as
// stored; its delivery state evolves asynchronously.
func (e *Engine) Create(ctx context.Context, params notification.CreateParams) (*notification.Notification, error) {
	n, err := notification.New(params)
	if err != nil {
		return nil, err
	}
	if err := e.store.Create(ctx, n); err != nil {
		return nil, err
	}

	e.publish(ctx, notification.EventCreated, n)

	// The caller's context may end with its request; the detached attempt
	// gets its own deadline. A failed or skipped attempt is retried by the
	// reconciler via NextRetryAt.
	detached := context.WithoutCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		e.sem <- struct{}{}
		defer func() { <-e.sem }()

		actx, cancel := context.WithTimeout(detached, e.cfg.DeliveryTimeout)
		defer cancel()

		if err := e.AttemptDelivery(actx, n.ID); err != nil {
			e.log.ErrorContext(actx, "initial delivery attempt failed",
				logger.NotificationID(n.ID),
				logger.Error(err),
			)
		}
	}()

	return n, nil
}

// AttemptDelivery runs one delivery attempt for a pending notification.
// Non-pending notifications are skipped without error. Send failures are
// recorded in the notification's retry state rather than returned: the
// error return reports storage and lookup problems only.
func (e *Engine) AttemptDelivery(ctx context.Context, id string) error {
	e.locks.Lock(id)
	defer e.locks.Unlock(id)

	n, err := e.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if n.Status != notification.StatusPending {
		e.log.DebugContext(ctx, "skipping delivery attempt, notification is not pending",
			logger.NotificationID(n.ID),
			slog.String("status", string(n.Status)),
		)
		return nil
	}

	now := e.now()
	if n.Expired(now) {
		return e.expireLocked(ctx, n, now)
	}

	res := e.dispatcher.Dispatch(ctx, n)

	n.DeliveryAttempts++
	n.UpdatedAt = now

	if res.OK {
		n.Status = notification.StatusSent
		n.SentAt = &now
		n.NextRetryAt = nil
		n.LastError = ""
		n.ExternalID = res.ExternalID

		if err := e.store.Update(ctx, n, notification.StatusPending); err != nil {
			return e.discardOnConflict(ctx, n, err)
		}
		e.publish(ctx, notification.EventSent, n)
		return nil
	}

	n.LastError = res.Err.Error()

	if n.AttemptsExhausted() {
		n.Status = notification.StatusFailed
		n.NextRetryAt = nil

		if err := e.store.Update(ctx, n, notification.StatusPending); err != nil {
			return e.discardOnConflict(ctx, n, err)
		}
		e.publish(ctx, notification.EventFailed, n)
		e.log.WarnContext(ctx, "notification failed permanently",
			logger.NotificationID(n.ID),
			slog.Int("attempts", n.DeliveryAttempts),
			slog.String("last_error", n.LastError),
		)
		return nil
	}

	retryAt := now.Add(e.backoff.NextInterval(n.DeliveryAttempts))
	n.NextRetryAt = &retryAt

	if err := e.store.Update(ctx, n, notification.StatusPending); err != nil {
		return e.discardOnConflict(ctx, n, err)
	}
	return nil
}

// MarkDelivered records channel-level delivery confirmation. Only SENT
// notifications can be marked delivered.
func (e *Engine) MarkDelivered(ctx context.Context, id string) (*notification.Notification, error) {
	return e.transition(ctx, id, notification.StatusSent, notification.StatusDelivered,
		func(n *notification.Notification, now time.Time) {
			n.DeliveredAt = &now
		})
}

// MarkRead records the recipient opening the notification. Only DELIVERED
// notifications can be marked read.
func (e *Engine) MarkRead(ctx context.Context, id string) (*notification.Notification, error) {
	return e.transition(ctx, id, notification.StatusDelivered, notification.StatusRead,
		func(n *notification.Notification, now time.Time) {
			n.ReadAt = &now
		})
}

// Cancel withdraws a pending notification before delivery. In-flight
// delivery attempts that committed first win the race; their result stands
// and Cancel reports an invalid transition.
func (e *Engine) Cancel(ctx context.Context, id string) (*notification.Notification, error) {
	return e.transition(ctx, id, notification.StatusPending, notification.StatusCancelled,
		func(n *notification.Notification, now time.Time) {
			n.NextRetryAt = nil
		})
}

// Expire moves a pending notification past its expiry to EXPIRED. Calling
// it on a non-pending or not-yet-expired notification is a no-op.
func (e *Engine) Expire(ctx context.Context, id string) error {
	n, err := e.store.Get(ctx, id)
	if err != nil {
		return err
	}
	now := e.now()
	if n.Status != notification.StatusPending || !n.Expired(now) {
		return nil
	}
	return e.expireLocked(ctx, n, now)
}

// Delete removes a notification in any state without emitting an event.
// Deletion is an administrative action, not a lifecycle transition.
func (e *Engine) Delete(ctx context.Context, id string) error {
	return e.store.Delete(ctx, id)
}

// Get returns a notification by ID.
func (e *Engine) Get(ctx context.Context, id string) (*notification.Notification, error) {
	return e.store.Get(ctx, id)
}

// ListByRecipient returns a recipient's notifications, newest first.
func (e *Engine) ListByRecipient(ctx context.Context, recipientID string, opts notification.ListOptions) ([]notification.Notification, error) {
	return e.store.ListByRecipient(ctx, recipientID, opts)
}

// CountPending returns the recipient's number of pending notifications.
func (e *Engine) CountPending(ctx context.Context, recipientID string) (int, error) {
	return e.store.CountPending(ctx, recipientID)
}

// CountUnread returns the recipient's number of delivered-but-unread
// notifications.
func (e *Engine) CountUnread(ctx context.Context, recipientID string) (int, error) {
	return e.store.CountUnread(ctx, recipientID)
}

// Wait blocks until all background delivery attempts spawned by Create have
// finished. Call during shutdown after request traffic has stopped.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// transition moves a notification from one status to another, applying
// mutate before the CAS write and publishing the matching lifecycle event
// after it commits. A CAS conflict means another writer moved the status
// between the read and the write; it surfaces as ErrStatusConflict.
func (e *Engine) transition(ctx context.Context, id string, from, to notification.Status, mutate func(*notification.Notification, time.Time)) (*notification.Notification, error) {
	n, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Status != from {
		return nil, fmt.Errorf("%w: cannot move %s notification to %s", ErrInvalidTransition, n.Status, to)
	}

	now := e.now()
	n.Status = to
	n.UpdatedAt = now
	mutate(n, now)

	if err := e.store.Update(ctx, n, from); err != nil {
		return nil, err
	}

	if et, ok := notification.EventTypeForStatus(to); ok {
		e.publish(ctx, et, n)
	}
	return n, nil
}

func (e *Engine) expireLocked(ctx context.Context, n *notification.Notification, now time.Time) error {
	n.Status = notification.StatusExpired
	n.NextRetryAt = nil
	n.UpdatedAt = now

	if err := e.store.Update(ctx, n, notification.StatusPending); err != nil {
		return e.discardOnConflict(ctx, n, err)
	}
	e.publish(ctx, notification.EventExpired, n)
	return nil
}

// discardOnConflict swallows CAS conflicts: another writer committed first
// and its transition stands. Anything else is a real storage error.
func (e *Engine) discardOnConflict(ctx context.Context, n *notification.Notification, err error) error {
	if errors.Is(err, notification.ErrStatusConflict) || errors.Is(err, notification.ErrNotFound) {
		e.log.InfoContext(ctx, "discarding stale lifecycle write",
			logger.NotificationID(n.ID),
			logger.Error(err),
		)
		return nil
	}
	return err
}

// publish announces a lifecycle event. Event delivery is best effort: the
// state change is already committed, so a publish failure is logged and the
// operation still succeeds.
func (e *Engine) publish(ctx context.Context, eventType notification.EventType, n *notification.Notification) {
	if e.bus == nil {
		return
	}

	ev := notification.NewEvent(eventType, n)
	payload, err := json.Marshal(ev)
	if err != nil {
		e.log.ErrorContext(ctx, "failed to encode lifecycle event",
			logger.NotificationID(n.ID),
			logger.Error(err),
		)
		return
	}

	err = e.bus.Publish(ctx, eventbus.Message{
		Topic:   notification.EventsTopic,
		Key:     n.RecipientID,
		Payload: payload,
	})
	if err != nil {
		e.log.ErrorContext(ctx, "failed to publish lifecycle event",
			logger.NotificationID(n.ID),
			logger.Topic(notification.EventsTopic),
			logger.Error(err),
		)
	}
}
