package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netguard/internal/models"
	"netguard/internal/structures"
	"netguard/internal/testutil"
)

func newEventService(queueSize int) (EventServiceInterface, *testutil.MockMetrics, *testutil.MockLogger) {
	conf := &structures.Config{}
	conf.Monitor.EventQueueSize = queueSize
	metrics := testutil.NewMockMetrics()
	logger := &testutil.MockLogger{}
	return NewEventService(conf, logger, metrics), metrics, logger
}

func waitFor(t *testing.T, ch <-chan models.Event) models.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return models.Event{}
	}
}

func TestPublish_DeliversToSubscriber(t *testing.T) {
	es, metrics, _ := newEventService(0)
	got := make(chan models.Event, 1)
	es.Subscribe(models.EventLimitExceeded, func(ev models.Event) { got <- ev })
	es.Start()
	defer es.Stop()

	es.Publish(models.Event{Kind: models.EventLimitExceeded, DeviceID: "aabbccddeeff"})

	ev := waitFor(t, got)
	assert.Equal(t, "aabbccddeeff", ev.DeviceID)
	assert.False(t, ev.Timestamp.IsZero())
	assert.Equal(t, 1, metrics.EventKinds[string(models.EventLimitExceeded)])
}

func TestPublish_KindFilter(t *testing.T) {
	es, _, _ := newEventService(0)
	var mu sync.Mutex
	var seen []models.EventKind
	done := make(chan struct{}, 2)

	es.Subscribe(models.EventDeviceBlocked, func(ev models.Event) {
		mu.Lock()
		seen = append(seen, ev.Kind)
		mu.Unlock()
		done <- struct{}{}
	})
	es.Start()
	defer es.Stop()

	es.Publish(models.Event{Kind: models.EventDeviceBlocked})
	es.Publish(models.Event{Kind: models.EventDeviceUnblocked})
	es.Publish(models.Event{Kind: models.EventDeviceBlocked})

	<-done
	<-done
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []models.EventKind{models.EventDeviceBlocked, models.EventDeviceBlocked}, seen)
}

func TestPublish_WildcardSubscriber(t *testing.T) {
	es, _, _ := newEventService(0)
	got := make(chan models.Event, 2)
	es.Subscribe(models.EventAny, func(ev models.Event) { got <- ev })
	es.Start()
	defer es.Stop()

	es.Publish(models.Event{Kind: models.EventLimitExceeded})
	es.Publish(models.Event{Kind: models.EventAccessBlocked})

	first := waitFor(t, got)
	second := waitFor(t, got)
	assert.Equal(t, models.EventLimitExceeded, first.Kind)
	assert.Equal(t, models.EventAccessBlocked, second.Kind)
}

func TestUnsubscribe(t *testing.T) {
	es, _, _ := newEventService(0)
	got := make(chan models.Event, 2)
	id := es.Subscribe(models.EventAny, func(ev models.Event) { got <- ev })
	es.Start()

	es.Publish(models.Event{Kind: models.EventLimitExceeded})
	waitFor(t, got)

	es.Unsubscribe(id)
	es.Publish(models.Event{Kind: models.EventLimitExceeded})
	es.Stop()

	select {
	case <-got:
		t.Fatal("received event after unsubscribe")
	default:
	}
}

func TestStop_DrainsQueue(t *testing.T) {
	es, _, _ := newEventService(8)
	var count int
	var mu sync.Mutex
	es.Subscribe(models.EventAny, func(models.Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	// Enqueue before the dispatcher starts, then stop immediately.
	for i := 0; i < 5; i++ {
		es.Publish(models.Event{Kind: models.EventLimitExceeded})
	}
	es.Start()
	es.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 5, count)
}

func TestPublish_FullQueueDrops(t *testing.T) {
	es, _, logger := newEventService(1)

	// Never started: the queue fills and the overflow publish gives up
	// after the bounded retry.
	es.Publish(models.Event{Kind: models.EventLimitExceeded})
	es.Publish(models.Event{Kind: models.EventLimitExceeded})

	assert.Equal(t, 1, es.QueueDepth())
	require.True(t, logger.HasLevel("warn"))
}
