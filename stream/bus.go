// Package stream implements the run event bus: an in-process broadcast of
// lifecycle events to any number of subscribers. Publishing never blocks on a
// slow consumer; each subscriber has a bounded buffer and the oldest queued
// event is dropped when it overflows. A bounded history ring lets late
// subscribers replay what they missed.
package stream

import (
	"sync"

	"github.com/google/uuid"

	"github.com/planloop/planloop/core"
	"github.com/planloop/planloop/logging"
)

// BusOptions configure a Bus.
type BusOptions struct {
	// SubscriberBuffer is each subscriber's channel capacity. Defaults to 64.
	SubscriberBuffer int
	// HistorySize bounds the replay ring. Defaults to 256.
	HistorySize int
	// Logger receives drop notices. Defaults to a no-op logger.
	Logger logging.Logger
}

// Subscription is one consumer's view of the bus. Events arrive on the
// channel returned by Events; Close detaches the subscription and closes it.
type Subscription struct {
	id  string
	ch  chan core.StreamEvent
	bus *Bus
}

// Events returns the subscription's receive channel. The channel is closed
// when the subscription or the bus is closed.
func (s *Subscription) Events() <-chan core.StreamEvent { return s.ch }

// Close detaches the subscription from the bus.
func (s *Subscription) Close() { s.bus.unsubscribe(s.id) }

// Bus is a bounded multi-subscriber broadcast of run events. It assigns each
// published event a monotonically increasing sequence number starting at
// zero, appends it to the history ring and fans it out. Safe for concurrent
// use by publishers and subscribers.
type Bus struct {
	mu      sync.Mutex
	opts    BusOptions
	seq     uint64
	history []core.StreamEvent
	subs    map[string]*Subscription
	closed  bool
	logger  logging.Logger
}

// NewBus creates an event bus.
func NewBus(optFns ...func(o *BusOptions)) *Bus {
	opts := BusOptions{
		SubscriberBuffer: 64,
		HistorySize:      256,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.SubscriberBuffer <= 0 {
		opts.SubscriberBuffer = 64
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = 256
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Bus{
		opts:   opts,
		subs:   map[string]*Subscription{},
		logger: logger,
	}
}

// Subscribe attaches a new consumer and replays the history ring into its
// buffer. When the history exceeds the buffer only the newest events survive
// the replay; ordering is preserved either way.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		id:  uuid.New().String(),
		ch:  make(chan core.StreamEvent, b.opts.SubscriberBuffer),
		bus: b,
	}
	if b.closed {
		close(sub.ch)
		return sub
	}

	for _, event := range b.history {
		b.send(sub, event)
	}
	b.subs[sub.id] = sub
	return sub
}

// Emit implements core.EventSink. The event is stamped with the next
// sequence number, recorded in history and broadcast to all subscribers.
func (b *Bus) Emit(eventType core.EventType, data map[string]any) core.StreamEvent {
	event := core.NewStreamEvent(eventType, data)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return event
	}

	event.Sequence = b.seq
	b.seq++

	b.history = append(b.history, event)
	if len(b.history) > b.opts.HistorySize {
		b.history = b.history[len(b.history)-b.opts.HistorySize:]
	}

	for _, sub := range b.subs {
		b.send(sub, event)
	}
	return event
}

// send delivers without blocking, dropping the subscriber's oldest queued
// event on overflow. Callers hold b.mu, so sends are serialized.
func (b *Bus) send(sub *Subscription, event core.StreamEvent) {
	select {
	case sub.ch <- event:
		return
	default:
	}

	select {
	case dropped := <-sub.ch:
		b.logger.Debug("dropped event for slow subscriber",
			"subscriber", sub.id, "sequence", dropped.Sequence, "type", dropped.Type)
	default:
	}

	select {
	case sub.ch <- event:
	default:
	}
}

// History returns a copy of the retained events in sequence order.
func (b *Bus) History() []core.StreamEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]core.StreamEvent, len(b.history))
	copy(out, b.history)
	return out
}

// SubscriberCount returns the number of attached subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close detaches and closes every subscription. Further Emit calls are
// dropped silently.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}

func (b *Bus) unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(sub.ch)
}

var _ core.EventSink = (*Bus)(nil)
