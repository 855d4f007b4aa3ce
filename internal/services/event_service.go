package services

import (
	"sync"
	"time"

	"netguard/internal/models"
	"netguard/internal/providers"
	"netguard/internal/structures"
)

const defaultEventQueueSize = 256

// publishRetry bounds how long a producer may wait on a full event queue
// before the event is dropped with a warning.
const publishRetry = 50 * time.Millisecond

type EventServiceInterface interface {
	Publish(ev models.Event)
	Subscribe(kind models.EventKind, handler func(models.Event)) int
	Unsubscribe(id int)
	QueueDepth() int
	Start()
	Stop()
}

type subscriber struct {
	kind    models.EventKind
	handler func(models.Event)
}

// EventService fans events out to registered handlers from a single
// dispatcher goroutine. Delivery is at-least-once while the service runs;
// handlers must tolerate being called after Unsubscribe returns.
type EventService struct {
	logger  providers.Logger
	metrics providers.MetricsProviderInterface

	mu     sync.RWMutex
	subs   map[int]subscriber
	nextID int

	queue chan models.Event
	stop  chan struct{}
	wg    sync.WaitGroup
}

func NewEventService(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface) EventServiceInterface {
	size := conf.Monitor.EventQueueSize
	if size <= 0 {
		size = defaultEventQueueSize
	}
	return &EventService{
		logger:  logger,
		metrics: metrics,
		subs:    make(map[int]subscriber),
		queue:   make(chan models.Event, size),
		stop:    make(chan struct{}),
	}
}

func (es *EventService) Start() {
	es.wg.Add(1)
	go func() {
		defer es.wg.Done()
		for {
			select {
			case <-es.stop:
				// Drain what producers managed to enqueue before Stop.
				for {
					select {
					case ev := <-es.queue:
						es.dispatch(ev)
					default:
						return
					}
				}
			case ev := <-es.queue:
				es.dispatch(ev)
			}
		}
	}()
}

func (es *EventService) Stop() {
	close(es.stop)
	es.wg.Wait()
}

func (es *EventService) Publish(ev models.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	es.metrics.IncEventsEmitted(string(ev.Kind))

	select {
	case es.queue <- ev:
		return
	default:
	}
	select {
	case es.queue <- ev:
	case <-time.After(publishRetry):
		es.logger.Warnf(providers.TypeApp, "Event queue full, dropping %s for %s", ev.Kind, ev.DeviceID)
	}
}

func (es *EventService) Subscribe(kind models.EventKind, handler func(models.Event)) int {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.nextID++
	es.subs[es.nextID] = subscriber{kind: kind, handler: handler}
	return es.nextID
}

func (es *EventService) Unsubscribe(id int) {
	es.mu.Lock()
	defer es.mu.Unlock()
	delete(es.subs, id)
}

func (es *EventService) QueueDepth() int {
	return len(es.queue)
}

func (es *EventService) dispatch(ev models.Event) {
	es.mu.RLock()
	handlers := make([]func(models.Event), 0, len(es.subs))
	for _, sub := range es.subs {
		if sub.kind == models.EventAny || sub.kind == ev.Kind {
			handlers = append(handlers, sub.handler)
		}
	}
	es.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}
