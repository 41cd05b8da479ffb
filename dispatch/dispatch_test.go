package dispatch_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/studentsystem/notify/dispatch"
	"github.com/studentsystem/notify/notification"
	"github.com/studentsystem/notify/pkg/email"
	"github.com/studentsystem/notify/pkg/webhook"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, n *notification.Notification) (string, error) {
	args := m.Called(ctx, n)
	return args.String(0), args.Error(1)
}

func testNotification(t *testing.T, channel notification.Channel, metadata map[string]string) *notification.Notification {
	t.Helper()

	n, err := notification.New(notification.CreateParams{
		RecipientID: "student-1",
		Title:       "Course Updated",
		Body:        "Your course schedule changed.",
		Channel:     channel,
		Metadata:    metadata,
	})
	require.NoError(t, err)
	return n
}

func TestDispatcher_Dispatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("successful send", func(t *testing.T) {
		t.Parallel()

		sender := new(mockSender)
		sender.On("Send", mock.Anything, mock.Anything).Return("ext-123", nil)

		d := dispatch.New(dispatch.WithSender(notification.ChannelEmail, sender))
		res := d.Dispatch(ctx, testNotification(t, notification.ChannelEmail, nil))

		assert.True(t, res.OK)
		assert.Equal(t, "ext-123", res.ExternalID)
		assert.NoError(t, res.Err)
		sender.AssertExpectations(t)
	})

	t.Run("failed send", func(t *testing.T) {
		t.Parallel()

		sender := new(mockSender)
		sender.On("Send", mock.Anything, mock.Anything).Return("", errors.New("provider down"))

		d := dispatch.New(dispatch.WithSender(notification.ChannelSMS, sender))
		res := d.Dispatch(ctx, testNotification(t, notification.ChannelSMS, nil))

		assert.False(t, res.OK)
		assert.Error(t, res.Err)
	})

	t.Run("unknown channel fails the attempt", func(t *testing.T) {
		t.Parallel()

		d := dispatch.New()
		res := d.Dispatch(ctx, testNotification(t, notification.ChannelPush, nil))

		assert.False(t, res.OK)
		assert.ErrorIs(t, res.Err, dispatch.ErrNoSenderForChannel)
	})

	t.Run("panicking sender is contained", func(t *testing.T) {
		t.Parallel()

		d := dispatch.New(dispatch.WithSender(notification.ChannelEmail,
			dispatch.SenderFunc(func(ctx context.Context, n *notification.Notification) (string, error) {
				panic("boom")
			})))
		res := d.Dispatch(ctx, testNotification(t, notification.ChannelEmail, nil))

		assert.False(t, res.OK)
		assert.ErrorIs(t, res.Err, dispatch.ErrSenderPanicked)
	})

	t.Run("timeout bounds the attempt", func(t *testing.T) {
		t.Parallel()

		d := dispatch.New(
			dispatch.WithTimeout(50*time.Millisecond),
			dispatch.WithSender(notification.ChannelEmail,
				dispatch.SenderFunc(func(ctx context.Context, n *notification.Notification) (string, error) {
					<-ctx.Done()
					return "", ctx.Err()
				})),
		)

		start := time.Now()
		res := d.Dispatch(ctx, testNotification(t, notification.ChannelEmail, nil))

		assert.False(t, res.OK)
		assert.Less(t, time.Since(start), time.Second)
	})
}

func TestEmailSender_Send(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	sender := dispatch.NewEmailSender(email.NewDevSender(dir))

	t.Run("delivers with address from metadata", func(t *testing.T) {
		n := testNotification(t, notification.ChannelEmail, map[string]string{
			dispatch.MetadataEmailKey: "student@example.com",
		})
		externalID, err := sender.Send(ctx, n)
		require.NoError(t, err)
		assert.NotEmpty(t, externalID)
	})

	t.Run("missing address", func(t *testing.T) {
		n := testNotification(t, notification.ChannelEmail, nil)
		_, err := sender.Send(ctx, n)
		assert.ErrorIs(t, err, dispatch.ErrMissingAddress)
	})
}

func TestSMSSender_Send(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req map[string]string
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "+123456789", req["to"])
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(map[string]string{"message_id": "sms-42"})
	}))
	defer srv.Close()

	sender, err := dispatch.NewSMSSender(srv.URL, "key-1")
	require.NoError(t, err)

	n := testNotification(t, notification.ChannelSMS, map[string]string{
		dispatch.MetadataPhoneKey: "+123456789",
	})
	externalID, err := sender.Send(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, "sms-42", externalID)

	t.Run("gateway error", func(t *testing.T) {
		failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer failing.Close()

		sender, err := dispatch.NewSMSSender(failing.URL, "")
		require.NoError(t, err)

		_, err = sender.Send(ctx, n)
		assert.ErrorIs(t, err, dispatch.ErrSendFailed)
	})

	t.Run("missing phone", func(t *testing.T) {
		_, err := sender.Send(ctx, testNotification(t, notification.ChannelSMS, nil))
		assert.ErrorIs(t, err, dispatch.ErrMissingAddress)
	})
}

func TestPushSender_Send(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "device-abc", req["device_token"])

		_ = json.NewEncoder(w).Encode(map[string]string{"id": "push-42"})
	}))
	defer srv.Close()

	sender, err := dispatch.NewPushSender(srv.URL, "")
	require.NoError(t, err)

	n := testNotification(t, notification.ChannelPush, map[string]string{
		dispatch.MetadataDeviceTokenKey: "device-abc",
	})
	externalID, err := sender.Send(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, "push-42", externalID)
}

func TestInAppSender_Send(t *testing.T) {
	t.Parallel()

	sender := dispatch.NewInAppSender()
	n := testNotification(t, notification.ChannelInApp, nil)

	externalID, err := sender.Send(context.Background(), n)
	require.NoError(t, err)
	assert.Equal(t, "inapp-"+n.ID, externalID)
}

func TestWebhookSender_Send(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("X-Webhook-Signature"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "student-1", payload["recipient_id"])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := dispatch.NewWebhookSender(webhook.NewSender(webhook.WithSigningSecret("secret")))

	n := testNotification(t, notification.ChannelWebhook, map[string]string{
		dispatch.MetadataWebhookURLKey: srv.URL,
	})
	externalID, err := sender.Send(ctx, n)
	require.NoError(t, err)
	assert.NotEmpty(t, externalID)

	t.Run("missing url", func(t *testing.T) {
		_, err := sender.Send(ctx, testNotification(t, notification.ChannelWebhook, nil))
		assert.ErrorIs(t, err, dispatch.ErrMissingAddress)
	})
}
