// Package sse implements the server-sent-events plumbing shared by the demo
// apps: a cross-connection broadcast manager, an event dispatcher that maps
// event names to HTML fragment renderers, and an http streaming adapter.
package sse

import (
	"sync"

	"github.com/golang-collections/collections/queue"
	"github.com/google/uuid"

	"github.com/pulseboard/pulseboard/logger"
)

// Default buffer sizes.
const (
	// DefaultQueueSize is the per-subscriber message buffer capacity.
	DefaultQueueSize = 100
	// DefaultHistorySize is the number of recent messages replayed to new
	// subscribers.
	DefaultHistorySize = 50
)

// Message is a single event delivered to subscribers. Data is usually a
// pre-rendered HTML fragment.
type Message struct {
	// ID is a monotonically increasing sequence number assigned by the
	// broadcaster.
	ID uint64

	// Event is the SSE event name clients subscribe to (sse-swap targets).
	Event string

	// Data is the payload, typically one or more HTML fragments.
	Data string
}

// Broadcaster fans messages out to every subscribed connection. Publish
// never blocks: a subscriber whose buffer is full loses its oldest message.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[uuid.UUID]*Subscriber
	history     *queue.Queue
	historyLen  int
	historySize int
	queueSize   int
	nextID      uint64
	closed      bool
	logger      logger.Logger
}

// BroadcasterOption configures a Broadcaster.
type BroadcasterOption func(*Broadcaster)

// WithQueueSize overrides the per-subscriber buffer capacity.
func WithQueueSize(n int) BroadcasterOption {
	return func(b *Broadcaster) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

// WithHistorySize overrides the replay history length. Zero disables replay.
func WithHistorySize(n int) BroadcasterOption {
	return func(b *Broadcaster) {
		if n >= 0 {
			b.historySize = n
		}
	}
}

// WithLogger sets the broadcaster logger.
func WithLogger(l logger.Logger) BroadcasterOption {
	return func(b *Broadcaster) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBroadcaster creates a Broadcaster with the default buffer sizes.
func NewBroadcaster(opts ...BroadcasterOption) *Broadcaster {
	b := &Broadcaster{
		subscribers: make(map[uuid.UUID]*Subscriber),
		history:     queue.New(),
		historySize: DefaultHistorySize,
		queueSize:   DefaultQueueSize,
		logger:      logger.NopLogger{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscriber is a single connection's view of the broadcaster.
type Subscriber struct {
	id   uuid.UUID
	ch   chan Message
	b    *Broadcaster
	once sync.Once
}

// Messages returns the subscriber's message channel. The channel is closed
// when the subscriber or the broadcaster is closed.
func (s *Subscriber) Messages() <-chan Message {
	return s.ch
}

// Close unsubscribes from the broadcaster.
func (s *Subscriber) Close() {
	s.b.unsubscribe(s)
}

// Subscribe registers a new subscriber and replays the recent history into
// its buffer.
func (b *Broadcaster) Subscribe() *Subscriber {
	s := &Subscriber{
		id: uuid.New(),
		ch: make(chan Message, b.queueSize),
		b:  b,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		s.once.Do(func() { close(s.ch) })
		return s
	}

	// Replay history. The queue has no iterator, so drain and rebuild.
	replay := make([]Message, 0, b.historyLen)
	for b.history.Len() > 0 {
		replay = append(replay, b.history.Dequeue().(Message))
	}
	for _, m := range replay {
		b.history.Enqueue(m)
	}
	for _, m := range replay {
		s.offer(m)
	}

	b.subscribers[s.id] = s
	return s
}

func (b *Broadcaster) unsubscribe(s *Subscriber) {
	b.mu.Lock()
	delete(b.subscribers, s.id)
	b.mu.Unlock()
	s.once.Do(func() { close(s.ch) })
}

// offer places a message on the subscriber buffer, dropping the oldest
// buffered message when full so the publisher never blocks.
func (s *Subscriber) offer(m Message) {
	select {
	case s.ch <- m:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- m:
	default:
	}
}

// Publish assigns a sequence number, records the message in the history
// buffer and fans it out to all current subscribers.
func (b *Broadcaster) Publish(event, data string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	b.nextID++
	m := Message{ID: b.nextID, Event: event, Data: data}

	if b.historySize > 0 {
		b.history.Enqueue(m)
		b.historyLen++
		for b.historyLen > b.historySize {
			b.history.Dequeue()
			b.historyLen--
		}
	}

	for _, s := range b.subscribers {
		s.offer(m)
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// Close shuts the broadcaster down and closes every subscriber channel.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, s := range b.subscribers {
		s.once.Do(func() { close(s.ch) })
		delete(b.subscribers, id)
	}
}
