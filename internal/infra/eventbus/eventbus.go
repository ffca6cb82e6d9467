// Package eventbus is an in-memory publish/subscribe bus. The chat handler
// publishes request outcomes on it and the request-log writer consumes them,
// keeping log persistence off the streaming hot path.
//
// Publish is non-blocking: when a subscriber's buffer is full the event is
// dropped. Events are fire-and-forget; there is no persistence or replay.
package eventbus

import "sync"

// Event is a single published message.
type Event struct {
	Topic   string
	Payload any
}

// EventBus is the publish/subscribe contract. The in-memory Bus implements
// it; tests substitute their own.
type EventBus interface {
	Publish(topic string, payload any)
	Subscribe(topic string) <-chan Event
}

const subscriberBuffer = 64

// Bus is the in-memory EventBus implementation.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]chan Event
}

// New returns an empty in-memory Bus.
func New() *Bus {
	return &Bus{subs: make(map[string][]chan Event)}
}

// Subscribe registers a subscriber for topic. The caller owns the
// consumption loop and must keep draining the channel, or Publish starts
// dropping its events.
func (b *Bus) Subscribe(topic string) <-chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], ch)
	b.mu.Unlock()
	return ch
}

// Publish delivers the payload to every subscriber of topic without
// blocking; slow subscribers lose events rather than stalling the caller.
func (b *Bus) Publish(topic string, payload any) {
	evt := Event{Topic: topic, Payload: payload}
	b.mu.RLock()
	subs := b.subs[topic]
	b.mu.RUnlock()
	for _, ch := range subs {
		select {
		case ch <- evt:
		default:
			// subscriber buffer full — drop
		}
	}
}
