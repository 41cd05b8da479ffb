package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/studentsystem/notify/notification"
	"github.com/studentsystem/notify/pkg/logger"
)

// Lifecycle is the engine surface the reconciler drives.
type Lifecycle interface {
	AttemptDelivery(ctx context.Context, id string) error
	Expire(ctx context.Context, id string) error
}

// Finder is the storage surface the reconciler scans.
type Finder interface {
	DueForRetry(ctx context.Context, now time.Time) ([]notification.Notification, error)
	ExpiredPending(ctx context.Context, now time.Time) ([]notification.Notification, error)
}

// Scheduler periodically reconciles stored state with reality: pending
// notifications past their retry checkpoint get another delivery attempt,
// and pending notifications past their expiry are expired. This sweep is
// what makes delivery self-healing after crashes or missed async attempts.
type Scheduler struct {
	engine Lifecycle
	store  Finder
	cfg    Config
	log    *slog.Logger
	now    func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler's logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Scheduler) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the scheduler's time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a reconciliation scheduler.
func New(engine Lifecycle, store Finder, cfg Config, opts ...Option) (*Scheduler, error) {
	if engine == nil {
		return nil, ErrEngineNil
	}
	if store == nil {
		return nil, ErrStorageNil
	}

	s := &Scheduler{
		engine: engine,
		store:  store,
		cfg:    cfg.withDefaults(),
		log:    slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run sweeps on the configured interval until the context is cancelled.
// It always returns the context's error.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	s.log.InfoContext(ctx, "reconciliation scheduler started",
		slog.Duration("interval", s.cfg.SweepInterval),
	)

	for {
		select {
		case <-ctx.Done():
			s.log.InfoContext(ctx, "reconciliation scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one reconciliation pass. Expiry runs before retries so a
// notification that is both due and expired is expired, not re-sent.
func (s *Scheduler) Sweep(ctx context.Context) {
	now := s.now()

	expired, err := s.store.ExpiredPending(ctx, now)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to scan for expired notifications", logger.Error(err))
	} else {
		for _, n := range expired {
			if ctx.Err() != nil {
				return
			}
			if err := s.engine.Expire(ctx, n.ID); err != nil {
				s.log.ErrorContext(ctx, "failed to expire notification",
					logger.NotificationID(n.ID),
					logger.Error(err),
				)
			}
		}
	}

	due, err := s.store.DueForRetry(ctx, now)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to scan for due retries", logger.Error(err))
		return
	}
	if len(due) > 0 {
		s.log.InfoContext(ctx, "retrying due notifications", slog.Int("count", len(due)))
	}
	for _, n := range due {
		if ctx.Err() != nil {
			return
		}
		if err := s.engine.AttemptDelivery(ctx, n.ID); err != nil {
			s.log.ErrorContext(ctx, "retry attempt failed",
				logger.NotificationID(n.ID),
				logger.Error(err),
			)
		}
	}
}
