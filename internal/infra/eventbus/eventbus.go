// Package eventbus is an in-memory publish/subscribe bus used to move work
// off the request path.
//
// Design:
//   - Buffered channel per subscriber (size set at construction).
//   - Publish never blocks: a full subscriber drops the event and the drop is counted.
//   - Close closes every subscriber channel so consumers can drain and exit.
//   - No persistence: events live only in memory.
package eventbus

import (
	"sync"
	"sync/atomic"
)

// Event is a single published message.
type Event struct {
	Topic   string
	Payload any
}

// EventBus is the interface for publishing and subscribing to topics.
type EventBus interface {
	Publish(topic string, payload any) bool
	Subscribe(topic string) <-chan Event
}

// DefaultBufferSize is the per-subscriber buffer used by New.
const DefaultBufferSize = 256

// Bus is the in-memory implementation of EventBus.
type Bus struct {
	buffer int

	mu          sync.RWMutex
	subscribers map[string][]chan Event
	closed      bool

	dropped atomic.Uint64
}

// New returns a Bus with DefaultBufferSize per subscriber.
func New() *Bus { return NewWithBuffer(DefaultBufferSize) }

// NewWithBuffer returns a Bus whose subscribers buffer size events.
func NewWithBuffer(size int) *Bus {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Bus{buffer: size, subscribers: make(map[string][]chan Event)}
}

// Subscribe registers a subscriber for topic. The channel is closed by Close;
// subscribing to a closed bus returns an already closed channel.
func (b *Bus) Subscribe(topic string) <-chan Event {
	ch := make(chan Event, b.buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	return ch
}

// Publish delivers payload to every subscriber of topic. It reports false if
// any subscriber dropped the event or the bus is closed.
func (b *Bus) Publish(topic string, payload any) bool {
	evt := Event{Topic: topic, Payload: payload}

	// The read lock is held across the sends so Close cannot close a
	// channel mid-send.
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.dropped.Add(1)
		return false
	}

	delivered := true
	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- evt:
		default:
			b.dropped.Add(1)
			delivered = false
		}
	}
	return delivered
}

// Dropped returns the number of events lost to full buffers or a closed bus.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }

// Close closes all subscriber channels. Buffered events remain readable.
// Calling Close more than once has no effect.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}
	b.subscribers = nil
	return nil
}
