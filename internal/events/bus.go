// Package events carries progress, status and error notifications from the
// batch pipeline to whatever front end is listening (CLI today, a GUI
// tomorrow). Handlers for one event are invoked in subscription order, and
// events are dispatched in the order they were published.
package events

import (
	"fmt"
	"sync"
	"time"
)

// subscription pairs a handler with its ID so it can be removed later.
type subscription struct {
	id      SubscriptionID
	handler Handler
}

// Bus is an in-process pub/sub dispatcher. Publish queues the event; a single
// dispatcher goroutine delivers it, so handlers never run concurrently with
// each other and see events in publish order.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]subscription
	nextSubID   SubscriptionID

	queue  chan Event
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewBus creates a bus with the given queue capacity and starts its
// dispatcher.
func NewBus(bufferSize int) *Bus {
	bus := &Bus{
		subscribers: make(map[EventType][]subscription),
		nextSubID:   1,
		queue:       make(chan Event, bufferSize),
		stopCh:      make(chan struct{}),
	}

	bus.wg.Add(1)
	go bus.dispatchLoop()

	return bus
}

// Subscribe registers a handler for one event type and returns its
// subscription ID.
func (b *Bus) Subscribe(eventType EventType, handler Handler) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextSubID
	b.nextSubID++

	b.subscribers[eventType] = append(b.subscribers[eventType], subscription{
		id:      id,
		handler: handler,
	})
	return id
}

// SubscribeAll registers a handler for every event type and returns the
// subscription IDs.
func (b *Bus) SubscribeAll(handler Handler) []SubscriptionID {
	ids := make([]SubscriptionID, 0, len(AllTypes()))
	for _, eventType := range AllTypes() {
		ids = append(ids, b.Subscribe(eventType, handler))
	}
	return ids
}

// Unsubscribe removes a subscription by ID.
func (b *Bus) Unsubscribe(id SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.subscribers {
		for i, sub := range subs {
			if sub.id == id {
				b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish queues an event for dispatch, blocking if the queue is full. Events
// published after Stop are dropped.
func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.queue <- event:
	case <-b.stopCh:
	}
}

// Stop shuts down the dispatcher after draining already-queued events.
func (b *Bus) Stop() {
	close(b.stopCh)
	b.wg.Wait()
}

func (b *Bus) dispatchLoop() {
	defer b.wg.Done()

	for {
		select {
		case event := <-b.queue:
			b.dispatch(event)
		case <-b.stopCh:
			for {
				select {
				case event := <-b.queue:
					b.dispatch(event)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) dispatch(event Event) {
	b.mu.RLock()
	subs := b.subscribers[event.Type]
	handlers := make([]Handler, len(subs))
	for i, sub := range subs {
		handlers[i] = sub.handler
	}
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.safeCall(handler, event)
	}
}

func (b *Bus) safeCall(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[events] handler panic for %v: %v\n", event.Type, r)
		}
	}()
	handler(event)
}

// SubscriberCount returns the number of subscribers for an event type.
func (b *Bus) SubscriberCount(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[eventType])
}
