package broadcast

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrBusClosed is returned when operations are attempted on a closed bus.
	ErrBusClosed = errors.New("broadcast: bus is closed")

	// ErrSubscriberExists is returned when Subscribe is called with a duplicate id.
	ErrSubscriberExists = errors.New("broadcast: subscriber id already exists")

	// ErrSubscriberNotFound is returned for an unknown subscriber id.
	ErrSubscriberNotFound = errors.New("broadcast: subscriber id not found")

	// ErrNilChannel is returned when SubscribeChan gets a nil channel.
	ErrNilChannel = errors.New("broadcast: subscriber channel cannot be nil")

	// ErrNilHandler is returned when Subscribe gets a nil handler.
	ErrNilHandler = errors.New("broadcast: subscriber handler cannot be nil")
)

// Handler receives emitted payloads on the flushing goroutine.
type Handler func(Payload)

// SubscriberStats tracks delivery for one subscriber.
type SubscriberStats struct {
	Sent    uint64
	Dropped uint64
}

// BusStats is a point-in-time snapshot of the bus counters.
type BusStats struct {
	TotalPublished uint64
	TotalSent      uint64
	TotalDropped   uint64
	Pending        int
	Subscribers    map[string]SubscriberStats
}

type subscriber struct {
	fn      Handler
	ch      chan<- Payload
	sent    atomic.Uint64
	dropped atomic.Uint64
}

// Bus is a subscribe/unsubscribe fan-out with a dispatch queue.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]*subscriber
	order  []string
	queue  []Payload
	closed bool

	flushMu   sync.Mutex
	published atomic.Uint64
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string]*subscriber)}
}

// Subscribe registers a handler called synchronously by Flush.
func (b *Bus) Subscribe(id string, fn Handler) error {
	if fn == nil {
		return ErrNilHandler
	}
	return b.add(id, &subscriber{fn: fn})
}

// SubscribeChan registers a channel. Payloads that do not fit are dropped.
func (b *Bus) SubscribeChan(id string, ch chan<- Payload) error {
	if ch == nil {
		return ErrNilChannel
	}
	return b.add(id, &subscriber{ch: ch})
}

func (b *Bus) add(id string, s *subscriber) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	if _, exists := b.subs[id]; exists {
		return ErrSubscriberExists
	}
	b.subs[id] = s
	b.order = append(b.order, id)
	return nil
}

func (b *Bus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	if _, exists := b.subs[id]; !exists {
		return ErrSubscriberNotFound
	}
	delete(b.subs, id)
	for i, o := range b.order {
		if o == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return nil
}

// Publish enqueues a payload for the next Flush.
func (b *Bus) Publish(p Payload) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	b.queue = append(b.queue, p)
	b.published.Add(1)
	return nil
}

// Flush delivers every queued payload in publish order and returns how many
// were dispatched. Handlers run without the bus lock held, so they may
// subscribe or unsubscribe.
func (b *Bus) Flush() int {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.mu.Lock()
	queue := b.queue
	b.queue = nil
	b.mu.Unlock()

	for _, p := range queue {
		b.mu.RLock()
		targets := make([]*subscriber, 0, len(b.order))
		for _, id := range b.order {
			targets = append(targets, b.subs[id])
		}
		b.mu.RUnlock()

		for _, s := range targets {
			b.deliver(s, p)
		}
	}
	return len(queue)
}

func (b *Bus) deliver(s *subscriber, p Payload) {
	cp := p.Clone()
	if s.fn != nil {
		s.fn(cp)
		s.sent.Add(1)
		return
	}
	select {
	case s.ch <- cp:
		s.sent.Add(1)
	default:
		s.dropped.Add(1)
	}
}

// Stats returns the delivery counters of one subscriber.
func (b *Bus) Stats(id string) (SubscriberStats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.subs[id]
	if !ok {
		return SubscriberStats{}, ErrSubscriberNotFound
	}
	return SubscriberStats{Sent: s.sent.Load(), Dropped: s.dropped.Load()}, nil
}

// Snapshot returns global and per-subscriber counters.
func (b *Bus) Snapshot() BusStats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st := BusStats{
		TotalPublished: b.published.Load(),
		Pending:        len(b.queue),
		Subscribers:    make(map[string]SubscriberStats, len(b.subs)),
	}
	for id, s := range b.subs {
		ss := SubscriberStats{Sent: s.sent.Load(), Dropped: s.dropped.Load()}
		st.Subscribers[id] = ss
		st.TotalSent += ss.Sent
		st.TotalDropped += ss.Dropped
	}
	return st
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close drops pending payloads and rejects further use. Closing twice is
// a no-op.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.queue = nil
	b.subs = make(map[string]*subscriber)
	b.order = nil
	return nil
}
