package events

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jaja2302/Palm-counting-AI/internal/logger"
)

// EventBusStats tracks event bus performance metrics
type EventBusStats struct {
	EventsReceived  uint64
	EventsProcessed uint64
	EventsDropped   uint64
	ConsumerErrors  uint64
}

// EventBus fans events out to registered consumers in registration order.
// Emit runs consumers on the caller's goroutine, so events from one producer
// reach every consumer in the order they were emitted.
type EventBus struct {
	mu        sync.RWMutex
	consumers []EventConsumer
	stats     EventBusStats
	logger    logger.Logger
	now       func() time.Time
}

// NewEventBus creates an empty bus. A nil logger falls back to the global one.
func NewEventBus(log logger.Logger) *EventBus {
	if log == nil {
		log = logger.Global().Module("events")
	}
	return &EventBus{logger: log, now: time.Now}
}

// RegisterConsumer adds a new event consumer
func (eb *EventBus) RegisterConsumer(consumer EventConsumer) error {
	if eb == nil {
		return fmt.Errorf("event bus not initialized")
	}
	if consumer == nil {
		return fmt.Errorf("nil consumer")
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	for _, existing := range eb.consumers {
		if existing.Name() == consumer.Name() {
			return fmt.Errorf("consumer %s already registered", consumer.Name())
		}
	}

	eb.consumers = append(eb.consumers, consumer)
	eb.logger.Debug("registered event consumer", logger.String("consumer", consumer.Name()))
	return nil
}

// UnregisterConsumer removes the named consumer. Unknown names are ignored.
func (eb *EventBus) UnregisterConsumer(name string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for i, c := range eb.consumers {
		if c.Name() == name {
			eb.consumers = append(eb.consumers[:i:i], eb.consumers[i+1:]...)
			return
		}
	}
}

// Emit delivers the event to every consumer. It never fails: the front end
// may have detached at any time.
func (eb *EventBus) Emit(name string, payload any) {
	if eb == nil {
		return
	}

	eb.mu.RLock()
	consumers := make([]EventConsumer, len(eb.consumers))
	copy(consumers, eb.consumers)
	eb.mu.RUnlock()

	atomic.AddUint64(&eb.stats.EventsReceived, 1)
	if len(consumers) == 0 {
		atomic.AddUint64(&eb.stats.EventsDropped, 1)
		return
	}

	event := Event{Name: name, Payload: payload, Time: eb.now()}
	for _, consumer := range consumers {
		eb.deliver(consumer, event)
	}
}

// deliver runs one consumer behind a recovery wrapper.
func (eb *EventBus) deliver(consumer EventConsumer, event Event) {
	defer func() {
		if r := recover(); r != nil {
			atomic.AddUint64(&eb.stats.ConsumerErrors, 1)
			eb.logger.Error("consumer panicked",
				logger.String("consumer", consumer.Name()),
				logger.String("event", event.Name),
				logger.Any("panic", r))
		}
	}()

	if err := consumer.ProcessEvent(event); err != nil {
		atomic.AddUint64(&eb.stats.ConsumerErrors, 1)
		eb.logger.Debug("consumer error",
			logger.String("consumer", consumer.Name()),
			logger.String("event", event.Name),
			logger.Error(err))
		return
	}
	atomic.AddUint64(&eb.stats.EventsProcessed, 1)
}

// GetStats returns current event bus statistics
func (eb *EventBus) GetStats() EventBusStats {
	if eb == nil {
		return EventBusStats{}
	}

	return EventBusStats{
		EventsReceived:  atomic.LoadUint64(&eb.stats.EventsReceived),
		EventsProcessed: atomic.LoadUint64(&eb.stats.EventsProcessed),
		EventsDropped:   atomic.LoadUint64(&eb.stats.EventsDropped),
		ConsumerErrors:  atomic.LoadUint64(&eb.stats.ConsumerErrors),
	}
}
