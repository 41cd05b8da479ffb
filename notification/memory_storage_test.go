package notification_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studentsystem/notify/notification"
)

func newTestNotification(t *testing.T, recipientID string) *notification.Notification {
	t.Helper()

	n, err := notification.New(notification.CreateParams{
		RecipientID: recipientID,
		Title:       "Test",
		Body:        "Test body",
		Channel:     notification.ChannelEmail,
	})
	require.NoError(t, err)
	return n
}

func TestMemoryStorage_CreateAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := notification.NewMemoryStorage()
	n := newTestNotification(t, "student-1")

	require.NoError(t, store.Create(ctx, n))

	got, err := store.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, n.ID, got.ID)
	assert.Equal(t, notification.StatusPending, got.Status)

	// Duplicate IDs are rejected.
	assert.ErrorIs(t, store.Create(ctx, n), notification.ErrAlreadyExists)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, notification.ErrNotFound)
}

func TestMemoryStorage_UpdateCAS(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := notification.NewMemoryStorage()
	n := newTestNotification(t, "student-1")
	require.NoError(t, store.Create(ctx, n))

	t.Run("matching expected status applies", func(t *testing.T) {
		upd := n.Clone()
		upd.Status = notification.StatusSent
		require.NoError(t, store.Update(ctx, upd, notification.StatusPending))

		got, err := store.Get(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusSent, got.Status)
	})

	t.Run("stale expected status conflicts", func(t *testing.T) {
		upd := n.Clone()
		upd.Status = notification.StatusCancelled
		err := store.Update(ctx, upd, notification.StatusPending)
		assert.ErrorIs(t, err, notification.ErrStatusConflict)

		// Stored row is untouched.
		got, err := store.Get(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusSent, got.Status)
	})

	t.Run("missing row", func(t *testing.T) {
		ghost := newTestNotification(t, "student-1")
		err := store.Update(ctx, ghost, notification.StatusPending)
		assert.ErrorIs(t, err, notification.ErrNotFound)
	})
}

func TestMemoryStorage_Delete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := notification.NewMemoryStorage()
	n := newTestNotification(t, "student-1")
	require.NoError(t, store.Create(ctx, n))

	require.NoError(t, store.Delete(ctx, n.ID))
	_, err := store.Get(ctx, n.ID)
	assert.ErrorIs(t, err, notification.ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, n.ID), notification.ErrNotFound)
}

func TestMemoryStorage_ListByRecipient(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := notification.NewMemoryStorage()

	var ids []string
	for range 3 {
		n := newTestNotification(t, "student-1")
		require.NoError(t, store.Create(ctx, n))
		ids = append(ids, n.ID)
	}
	other := newTestNotification(t, "student-2")
	require.NoError(t, store.Create(ctx, other))

	list, err := store.ListByRecipient(ctx, "student-1", notification.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, list, 3)
	for _, n := range list {
		assert.Equal(t, "student-1", n.RecipientID)
	}

	t.Run("status filter", func(t *testing.T) {
		sent, err := store.Get(ctx, ids[0])
		require.NoError(t, err)
		sent.Status = notification.StatusSent
		require.NoError(t, store.Update(ctx, sent, notification.StatusPending))

		list, err := store.ListByRecipient(ctx, "student-1", notification.ListOptions{
			Status: notification.StatusSent,
		})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, ids[0], list[0].ID)
	})

	t.Run("pagination", func(t *testing.T) {
		list, err := store.ListByRecipient(ctx, "student-1", notification.ListOptions{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, list, 2)

		list, err = store.ListByRecipient(ctx, "student-1", notification.ListOptions{Offset: 2})
		require.NoError(t, err)
		assert.Len(t, list, 1)

		list, err = store.ListByRecipient(ctx, "student-1", notification.ListOptions{Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestMemoryStorage_DueForRetry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := notification.NewMemoryStorage()
	now := time.Now().UTC()

	due := newTestNotification(t, "student-1")
	past := now.Add(-time.Minute)
	due.NextRetryAt = &past
	require.NoError(t, store.Create(ctx, due))

	notYet := newTestNotification(t, "student-1")
	future := now.Add(time.Hour)
	notYet.NextRetryAt = &future
	require.NoError(t, store.Create(ctx, notYet))

	expired := newTestNotification(t, "student-1")
	expired.NextRetryAt = &past
	expired.ExpiresAt = now.Add(-time.Second)
	require.NoError(t, store.Create(ctx, expired))

	sent := newTestNotification(t, "student-1")
	sent.NextRetryAt = &past
	sent.Status = notification.StatusSent
	require.NoError(t, store.Create(ctx, sent))

	got, err := store.DueForRetry(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, due.ID, got[0].ID)
}

func TestMemoryStorage_ExpiredPending(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := notification.NewMemoryStorage()
	now := time.Now().UTC()

	expired := newTestNotification(t, "student-1")
	expired.ExpiresAt = now.Add(-time.Second)
	require.NoError(t, store.Create(ctx, expired))

	alive := newTestNotification(t, "student-1")
	require.NoError(t, store.Create(ctx, alive))

	expiredButSent := newTestNotification(t, "student-1")
	expiredButSent.ExpiresAt = now.Add(-time.Second)
	expiredButSent.Status = notification.StatusSent
	require.NoError(t, store.Create(ctx, expiredButSent))

	got, err := store.ExpiredPending(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, expired.ID, got[0].ID)
}

func TestMemoryStorage_Counts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := notification.NewMemoryStorage()

	pending := newTestNotification(t, "student-1")
	require.NoError(t, store.Create(ctx, pending))

	delivered := newTestNotification(t, "student-1")
	delivered.Status = notification.StatusDelivered
	require.NoError(t, store.Create(ctx, delivered))

	otherRecipient := newTestNotification(t, "student-2")
	require.NoError(t, store.Create(ctx, otherRecipient))

	count, err := store.CountPending(ctx, "student-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.CountUnread(ctx, "student-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.CountPending(ctx, "student-3")
	require.NoError(t, err)
	assert.Zero(t, count)
}
