package eventbus_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studentsystem/notify/eventbus"
)

func TestMemoryBus_PublishSubscribe(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bus := eventbus.NewMemoryBus(eventbus.Config{})
	t.Cleanup(func() { _ = bus.Close() })

	received := make(chan eventbus.Message, 10)
	sub, err := bus.Subscribe(ctx, "topic-a", func(ctx context.Context, msg eventbus.Message) error {
		received <- msg
		return nil
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Unsubscribe() })

	require.NoError(t, bus.Publish(ctx, eventbus.Message{
		Topic:   "topic-a",
		Key:     "recipient-1",
		Payload: []byte("hello"),
	}))

	select {
	case msg := <-received:
		assert.Equal(t, "topic-a", msg.Topic)
		assert.Equal(t, "recipient-1", msg.Key)
		assert.Equal(t, []byte("hello"), msg.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestMemoryBus_OrderPreserved(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bus := eventbus.NewMemoryBus(eventbus.Config{BufferSize: 16})
	t.Cleanup(func() { _ = bus.Close() })

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})

	_, err := bus.Subscribe(ctx, "ordered", func(ctx context.Context, msg eventbus.Message) error {
		mu.Lock()
		got = append(got, string(msg.Payload))
		if len(got) == 5 {
			close(done)
		}
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	want := []string{"1", "2", "3", "4", "5"}
	for _, p := range want {
		require.NoError(t, bus.Publish(ctx, eventbus.Message{Topic: "ordered", Payload: []byte(p)}))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for messages")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, want, got)
}

func TestMemoryBus_RedeliveryOnHandlerError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bus := eventbus.NewMemoryBus(eventbus.Config{
		MaxRedeliveries: 2,
		RedeliveryDelay: 10 * time.Millisecond,
	})
	t.Cleanup(func() { _ = bus.Close() })

	var mu sync.Mutex
	calls := 0
	done := make(chan struct{})

	_, err := bus.Subscribe(ctx, "flaky", func(ctx context.Context, msg eventbus.Message) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls < 3 {
			return errors.New("transient failure")
		}
		close(done)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, eventbus.Message{Topic: "flaky", Payload: []byte("x")}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not redelivered")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, calls)
}

func TestMemoryBus_TopicsAreIsolated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bus := eventbus.NewMemoryBus(eventbus.Config{})
	t.Cleanup(func() { _ = bus.Close() })

	received := make(chan eventbus.Message, 1)
	_, err := bus.Subscribe(ctx, "topic-a", func(ctx context.Context, msg eventbus.Message) error {
		received <- msg
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, eventbus.Message{Topic: "topic-b", Payload: []byte("other")}))

	select {
	case msg := <-received:
		t.Fatalf("unexpected message on topic-a: %q", msg.Payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMemoryBus_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bus := eventbus.NewMemoryBus(eventbus.Config{})
	t.Cleanup(func() { _ = bus.Close() })

	assert.ErrorIs(t, bus.Publish(ctx, eventbus.Message{}), eventbus.ErrEmptyTopic)

	_, err := bus.Subscribe(ctx, "", func(ctx context.Context, msg eventbus.Message) error { return nil })
	assert.ErrorIs(t, err, eventbus.ErrEmptyTopic)

	_, err = bus.Subscribe(ctx, "topic", nil)
	assert.ErrorIs(t, err, eventbus.ErrNilHandler)
}

func TestMemoryBus_Close(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bus := eventbus.NewMemoryBus(eventbus.Config{})

	_, err := bus.Subscribe(ctx, "topic", func(ctx context.Context, msg eventbus.Message) error { return nil })
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(ctx, eventbus.Message{Topic: "topic"}), eventbus.ErrBusClosed)

	_, err = bus.Subscribe(ctx, "topic", func(ctx context.Context, msg eventbus.Message) error { return nil })
	assert.ErrorIs(t, err, eventbus.ErrBusClosed)
}
