// Package eventbus is an in-memory publish/subscribe bus. The request
// orchestrator publishes lifecycle events here after a dispatch finishes;
// out-of-band consumers (the audit recorder) subscribe at bootstrap.
//
// Design:
//   - Buffered channel per subscriber (buffer=128).
//   - Publish never blocks: the event is dropped if a subscriber lags.
//   - No persistence; events are fire-and-forget.
package eventbus

import "sync"

// Well-known topics published by the dispatch orchestrator.
const (
	TopicRequestCompleted = "request.completed"
	TopicRequestFailed    = "request.failed"
)

// Event is a single published message.
type Event struct {
	Topic   string
	Payload any
}

// EventBus is the interface for publishing and subscribing to topics.
type EventBus interface {
	Publish(topic string, payload any)
	Subscribe(topic string) <-chan Event
}

const subscriberBuffer = 128

// Bus is the in-memory implementation of EventBus.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Event
}

// New returns a new in-memory Bus.
func New() *Bus {
	return &Bus{subscribers: make(map[string][]chan Event)}
}

// Subscribe registers a subscriber for topic and returns a read-only channel.
// The caller owns the consumption loop; an unconsumed channel causes later
// events for that subscriber to be dropped, never a blocked publisher.
func (b *Bus) Subscribe(topic string) <-chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends an Event to all subscribers of topic, dropping per-subscriber
// when a buffer is full.
func (b *Bus) Publish(topic string, payload any) {
	evt := Event{Topic: topic, Payload: payload}
	b.mu.RLock()
	subs := b.subscribers[topic]
	b.mu.RUnlock()
	for _, ch := range subs {
		select {
		case ch <- evt:
		default:
			// subscriber lagging — drop
		}
	}
}
