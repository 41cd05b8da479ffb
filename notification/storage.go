package notification

import (
	"context"
	"time"
)

// ListOptions filters and paginates recipient listings.
type ListOptions struct {
	Status Status // zero value means all statuses
	Limit  int    // zero means no limit
	Offset int
}

// Storage persists notifications. Update performs a compare-and-swap on
// status: the write applies only if the stored status equals expected,
// otherwise ErrStatusConflict is returned. This is the concurrency guard
// that keeps racing writers (delivery attempts, cancels, the reconciler)
// from clobbering each other's transitions.
type Storage interface {
	Create(ctx context.Context, n *Notification) error
	Get(ctx context.Context, id string) (*Notification, error)
	Update(ctx context.Context, n *Notification, expected Status) error
	Delete(ctx context.Context, id string) error

	ListByRecipient(ctx context.Context, recipientID string, opts ListOptions) ([]Notification, error)
	DueForRetry(ctx context.Context, now time.Time) ([]Notification, error)
	ExpiredPending(ctx context.Context, now time.Time) ([]Notification, error)

	CountPending(ctx context.Context, recipientID string) (int, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)
}
