package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studentsystem/notify/dispatch"
	"github.com/studentsystem/notify/engine"
	"github.com/studentsystem/notify/notification"
	"github.com/studentsystem/notify/scheduler"
)

func pendingNotification(t *testing.T, store *notification.MemoryStorage, mutate func(n *notification.Notification)) *notification.Notification {
	t.Helper()

	n, err := notification.New(notification.CreateParams{
		RecipientID: "student-1",
		Title:       "T",
		Body:        "B",
		Channel:     notification.ChannelEmail,
	})
	require.NoError(t, err)
	if mutate != nil {
		mutate(n)
	}
	require.NoError(t, store.Create(context.Background(), n))
	return n
}

func newEngine(t *testing.T, store *notification.MemoryStorage, sender dispatch.SenderFunc) *engine.Engine {
	t.Helper()

	d := dispatch.New(dispatch.WithSender(notification.ChannelEmail, sender))
	eng, err := engine.New(store, d, engine.Config{})
	require.NoError(t, err)
	return eng
}

func TestScheduler_Sweep_RetriesDue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := notification.NewMemoryStorage()
	eng := newEngine(t, store, func(ctx context.Context, n *notification.Notification) (string, error) {
		return "ext-1", nil
	})

	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	due := pendingNotification(t, store, func(n *notification.Notification) { n.NextRetryAt = &past })
	notYet := pendingNotification(t, store, func(n *notification.Notification) { n.NextRetryAt = &future })

	sched, err := scheduler.New(eng, store, scheduler.Config{})
	require.NoError(t, err)

	sched.Sweep(ctx)

	got, err := store.Get(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusSent, got.Status)

	got, err = store.Get(ctx, notYet.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusPending, got.Status)
	assert.Zero(t, got.DeliveryAttempts)
}

func TestScheduler_Sweep_ExpiresBeforeRetrying(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := notification.NewMemoryStorage()

	sends := 0
	eng := newEngine(t, store, func(ctx context.Context, n *notification.Notification) (string, error) {
		sends++
		return "ext-1", nil
	})

	now := time.Now().UTC()
	past := now.Add(-time.Minute)

	// Due for retry AND past expiry: must expire, never send.
	both := pendingNotification(t, store, func(n *notification.Notification) {
		n.NextRetryAt = &past
		n.ExpiresAt = now.Add(-time.Second)
	})

	sched, err := scheduler.New(eng, store, scheduler.Config{})
	require.NoError(t, err)

	sched.Sweep(ctx)

	got, err := store.Get(ctx, both.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusExpired, got.Status)
	assert.Zero(t, sends)
}

func TestScheduler_Sweep_FailedRetryKeepsState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := notification.NewMemoryStorage()
	eng := newEngine(t, store, func(ctx context.Context, n *notification.Notification) (string, error) {
		return "", errors.New("gateway down")
	})

	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	due := pendingNotification(t, store, func(n *notification.Notification) { n.NextRetryAt = &past })

	sched, err := scheduler.New(eng, store, scheduler.Config{})
	require.NoError(t, err)

	sched.Sweep(ctx)

	got, err := store.Get(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusPending, got.Status)
	assert.Equal(t, 1, got.DeliveryAttempts)
	assert.Equal(t, "gateway down", got.LastError)
	require.NotNil(t, got.NextRetryAt)
	assert.True(t, got.NextRetryAt.After(now))
}

func TestScheduler_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	store := notification.NewMemoryStorage()
	eng := newEngine(t, store, func(ctx context.Context, n *notification.Notification) (string, error) {
		return "ext", nil
	})

	sched, err := scheduler.New(eng, store, scheduler.Config{SweepInterval: 10 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = sched.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestScheduler_New_Validation(t *testing.T) {
	t.Parallel()

	store := notification.NewMemoryStorage()
	eng := newEngine(t, store, func(ctx context.Context, n *notification.Notification) (string, error) {
		return "", nil
	})

	_, err := scheduler.New(nil, store, scheduler.Config{})
	assert.ErrorIs(t, err, scheduler.ErrEngineNil)

	_, err = scheduler.New(eng, nil, scheduler.Config{})
	assert.ErrorIs(t, err, scheduler.ErrStorageNil)
}
