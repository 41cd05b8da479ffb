package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/studentsystem/notify/notification"
	"github.com/studentsystem/notify/pkg/logger"
)

// Sender delivers one notification over a single channel and returns the
// provider's reference for the delivery (message ID, delivery ID).
type Sender interface {
	Send(ctx context.Context, n *notification.Notification) (externalID string, err error)
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, n *notification.Notification) (string, error)

func (f SenderFunc) Send(ctx context.Context, n *notification.Notification) (string, error) {
	return f(ctx, n)
}

// Result is the outcome of a single dispatch attempt.
type Result struct {
	OK         bool
	ExternalID string
	Err        error
}

// Dispatcher routes notifications to channel senders. Every attempt is
// bounded by a timeout and shielded from sender panics, so one misbehaving
// provider cannot take the delivery loop down.
type Dispatcher struct {
	senders map[notification.Channel]Sender
	timeout time.Duration
	log     *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTimeout bounds a single send attempt. Default is 10 seconds.
func WithTimeout(d time.Duration) Option {
	return func(dp *Dispatcher) {
		if d > 0 {
			dp.timeout = d
		}
	}
}

// WithLogger sets the dispatcher's logger.
func WithLogger(log *slog.Logger) Option {
	return func(dp *Dispatcher) {
		if log != nil {
			dp.log = log
		}
	}
}

// WithSender registers a sender for a channel.
func WithSender(ch notification.Channel, s Sender) Option {
	return func(dp *Dispatcher) {
		dp.senders[ch] = s
	}
}

// New creates a dispatcher. Senders can be supplied via WithSender or
// registered later with Register.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		senders: make(map[notification.Channel]Sender),
		timeout: 10 * time.Second,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register adds or replaces the sender for a channel. Not safe for use
// concurrently with Dispatch; wire senders during startup.
func (d *Dispatcher) Register(ch notification.Channel, s Sender) {
	d.senders[ch] = s
}

// Dispatch performs a single delivery attempt. It never panics and never
// returns an error: failures are reported inside the Result so the caller's
// retry accounting has one code path.
func (d *Dispatcher) Dispatch(ctx context.Context, n *notification.Notification) Result {
	sender, ok := d.senders[n.Channel]
	if !ok {
		return Result{Err: fmt.Errorf("%w: %s", ErrNoSenderForChannel, n.Channel)}
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	externalID, err := d.send(ctx, sender, n)
	if err != nil {
		d.log.WarnContext(ctx, "delivery attempt failed",
			logger.NotificationID(n.ID),
			logger.Channel(string(n.Channel)),
			logger.Error(err),
		)
		return Result{Err: err}
	}

	return Result{OK: true, ExternalID: externalID}
}

func (d *Dispatcher) send(ctx context.Context, sender Sender, n *notification.Notification) (externalID string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrSenderPanicked, r)
		}
	}()
	return sender.Send(ctx, n)
}
