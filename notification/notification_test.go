package notification_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studentsystem/notify/notification"
)

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	before := time.Now().UTC()
	n, err := notification.New(notification.CreateParams{
		RecipientID: "student-1",
		Title:       "Welcome",
		Body:        "Your account is ready.",
		Channel:     notification.ChannelEmail,
	})
	require.NoError(t, err)
	after := time.Now().UTC()

	assert.NotEmpty(t, n.ID)
	assert.Equal(t, notification.StatusPending, n.Status)
	assert.Equal(t, notification.PriorityMedium, n.Priority)
	assert.Equal(t, 0, n.DeliveryAttempts)
	assert.Equal(t, notification.DefaultMaxDeliveryAttempts, n.MaxDeliveryAttempts)

	require.NotNil(t, n.NextRetryAt)
	assert.WithinRange(t, *n.NextRetryAt,
		before.Add(notification.FirstRetryDelay), after.Add(notification.FirstRetryDelay))
	assert.WithinRange(t, n.ExpiresAt,
		before.Add(notification.DefaultTTL), after.Add(notification.DefaultTTL))
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	valid := notification.CreateParams{
		RecipientID: "student-1",
		Title:       "Title",
		Body:        "Body",
		Channel:     notification.ChannelPush,
	}

	tests := []struct {
		name    string
		mutate  func(p *notification.CreateParams)
		wantErr error
	}{
		{
			name:    "missing recipient",
			mutate:  func(p *notification.CreateParams) { p.RecipientID = "" },
			wantErr: notification.ErrMissingRecipient,
		},
		{
			name:    "missing title",
			mutate:  func(p *notification.CreateParams) { p.Title = "" },
			wantErr: notification.ErrEmptyContent,
		},
		{
			name:    "missing body",
			mutate:  func(p *notification.CreateParams) { p.Body = "" },
			wantErr: notification.ErrEmptyContent,
		},
		{
			name:    "missing channel",
			mutate:  func(p *notification.CreateParams) { p.Channel = "" },
			wantErr: notification.ErrMissingChannel,
		},
		{
			name:    "unknown channel",
			mutate:  func(p *notification.CreateParams) { p.Channel = "PIGEON" },
			wantErr: notification.ErrUnknownChannel,
		},
		{
			name:    "unknown priority",
			mutate:  func(p *notification.CreateParams) { p.Priority = "WHENEVER" },
			wantErr: notification.ErrUnknownPriority,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := valid
			tt.mutate(&p)
			_, err := notification.New(p)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestStatus_CanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from    notification.Status
		to      notification.Status
		allowed bool
	}{
		{notification.StatusPending, notification.StatusSent, true},
		{notification.StatusPending, notification.StatusFailed, true},
		{notification.StatusPending, notification.StatusExpired, true},
		{notification.StatusPending, notification.StatusCancelled, true},
		{notification.StatusPending, notification.StatusDelivered, false},
		{notification.StatusPending, notification.StatusRead, false},
		{notification.StatusSent, notification.StatusDelivered, true},
		{notification.StatusSent, notification.StatusRead, false},
		{notification.StatusSent, notification.StatusCancelled, false},
		{notification.StatusDelivered, notification.StatusRead, true},
		{notification.StatusDelivered, notification.StatusSent, false},
		{notification.StatusRead, notification.StatusPending, false},
		{notification.StatusFailed, notification.StatusSent, false},
		{notification.StatusExpired, notification.StatusPending, false},
		{notification.StatusCancelled, notification.StatusSent, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestStatus_Terminal(t *testing.T) {
	t.Parallel()

	terminal := []notification.Status{
		notification.StatusRead,
		notification.StatusFailed,
		notification.StatusExpired,
		notification.StatusCancelled,
	}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "%s should be terminal", s)
	}

	active := []notification.Status{
		notification.StatusPending,
		notification.StatusSent,
		notification.StatusDelivered,
	}
	for _, s := range active {
		assert.False(t, s.Terminal(), "%s should not be terminal", s)
	}
}

func TestNotification_RetryDue(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	n := &notification.Notification{Status: notification.StatusPending, NextRetryAt: &past}
	assert.True(t, n.RetryDue(now))

	n.NextRetryAt = &future
	assert.False(t, n.RetryDue(now))

	n.NextRetryAt = nil
	assert.False(t, n.RetryDue(now))

	n.NextRetryAt = &past
	n.Status = notification.StatusSent
	assert.False(t, n.RetryDue(now))
}

func TestNewEvent(t *testing.T) {
	t.Parallel()

	n, err := notification.New(notification.CreateParams{
		RecipientID:   "student-7",
		Title:         "Grade Published",
		Body:          "Your grade for MATH-101 is available.",
		Channel:       notification.ChannelInApp,
		CorrelationID: "corr-42",
	})
	require.NoError(t, err)

	ev := notification.NewEvent(notification.EventCreated, n)
	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, notification.EventCreated, ev.EventType)
	assert.Equal(t, "student-7", ev.RecipientID)
	assert.Equal(t, notification.EventSource, ev.Source)
	assert.Equal(t, "corr-42", ev.CorrelationID)
	assert.False(t, ev.Timestamp.IsZero())

	// The snapshot is detached from the source notification.
	require.NotNil(t, ev.Notification)
	n.Title = "mutated"
	assert.Equal(t, "Grade Published", ev.Notification.Title)
}

func TestEventTypeForStatus(t *testing.T) {
	t.Parallel()

	et, ok := notification.EventTypeForStatus(notification.StatusSent)
	require.True(t, ok)
	assert.Equal(t, notification.EventSent, et)

	_, ok = notification.EventTypeForStatus(notification.StatusPending)
	assert.False(t, ok)
}
