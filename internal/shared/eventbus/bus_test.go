package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_SubscribePublish(t *testing.T) {
	bus := NewEventBus(nil)
	var called bool
	bus.Subscribe(EventTypeAuthorizationDenied, func(ctx context.Context, event Event) error {
		called = true
		assert.Equal(t, EventTypeAuthorizationDenied, event.Type())
		assert.Equal(t, "api", event.Source())
		return nil
	})

	err := bus.Publish(context.Background(), NewBasicEventWithSource(EventTypeAuthorizationDenied, nil, "api"))
	require.NoError(t, err)
	assert.True(t, called)
}

func TestEventBus_PublishWithoutHandlers(t *testing.T) {
	bus := NewEventBus(nil)
	assert.NoError(t, bus.Publish(context.Background(), NewBasicEvent("nobody.listens", nil)))
}

func TestEventBus_HandlersRunInOrderAndAllRunOnFailure(t *testing.T) {
	bus := NewEventBus(nil)
	var order []int
	bus.Subscribe("ev", func(ctx context.Context, event Event) error {
		order = append(order, 1)
		return errors.New("first failed")
	})
	bus.Subscribe("ev", func(ctx context.Context, event Event) error {
		order = append(order, 2)
		return nil
	})

	err := bus.Publish(context.Background(), NewBasicEvent("ev", nil))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "first failed")
	assert.Equal(t, []int{1, 2}, order)
}

func TestEventBus_Retries(t *testing.T) {
	bus := NewEventBusWithConfig(nil, BusConfig{MaxRetries: 2, RetryDelay: time.Millisecond})
	attempts := 0
	bus.Subscribe("flaky", func(ctx context.Context, event Event) error {
		attempts++
		if attempts < 3 {
			return errors.New("not yet")
		}
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), NewBasicEvent("flaky", nil)))
	assert.Equal(t, 3, attempts)
}

func TestEventBus_AsyncPublish(t *testing.T) {
	bus := NewEventBusWithConfig(nil, BusConfig{AsyncProcessing: true})
	ch := make(chan struct{}, 1)
	bus.Subscribe("async", func(ctx context.Context, event Event) error {
		ch <- struct{}{}
		return nil
	})
	require.NoError(t, bus.Publish(context.Background(), NewBasicEvent("async", nil)))
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for async event")
	}
}

func TestEventBus_Cancel(t *testing.T) {
	bus := NewEventBus(nil)
	first := bus.Subscribe("ev", func(ctx context.Context, event Event) error { return nil })
	bus.Subscribe("ev", func(ctx context.Context, event Event) error { return nil })
	assert.Equal(t, 2, bus.GetSubscriberCount("ev"))

	bus.Cancel(first)
	assert.Equal(t, 1, bus.GetSubscriberCount("ev"))
	bus.Cancel(first)
	assert.Equal(t, 1, bus.GetSubscriberCount("ev"))
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus(nil)
	bus.Subscribe("ev", func(ctx context.Context, event Event) error { return nil })
	assert.Equal(t, 1, bus.GetSubscriberCount("ev"))
	bus.Unsubscribe("ev")
	assert.Equal(t, 0, bus.GetSubscriberCount("ev"))
}

func TestEventBus_PublishAndForget(t *testing.T) {
	bus := NewEventBus(nil)
	var wg sync.WaitGroup
	wg.Add(1)
	bus.Subscribe("forget", func(ctx context.Context, event Event) error {
		wg.Done()
		return nil
	})
	bus.PublishAndForget(context.Background(), NewBasicEvent("forget", nil))
	wait := make(chan struct{})
	go func() {
		wg.Wait()
		close(wait)
	}()
	select {
	case <-wait:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for PublishAndForget")
	}
}
