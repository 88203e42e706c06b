package events

import (
	"sync"

	"github.com/photon-ccm/photon/types"
)

// DefaultSubscriptionBuffer is channel buffer size of subscriptions.
const DefaultSubscriptionBuffer = 128

/*
Bus fans out events to subscribers. A subscriber which doesn't keep up
(its buffer is full) is dropped, ie its channel is closed, emitting never
blocks on subscribers.
*/
type Bus struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	bufLen int
}

type Subscription struct {
	c    chan types.Event
	bus  *Bus
	once sync.Once
}

func NewBus(bufLen int) *Bus {
	if bufLen <= 0 {
		bufLen = DefaultSubscriptionBuffer
	}
	return &Bus{subs: make(map[*Subscription]struct{}), bufLen: bufLen}
}

// Subscribe registers new subscriber, it must be released with Close.
func (b *Bus) Subscribe() *Subscription {
	s := &Subscription{c: make(chan types.Event, b.bufLen), bus: b}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

func (b *Bus) Publish(events ...types.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		for _, e := range events {
			select {
			case s.c <- e:
			default:
				b.drop(s)
			}
			if _, ok := b.subs[s]; !ok {
				break
			}
		}
	}
}

func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// drop must be called while holding the lock.
func (b *Bus) drop(s *Subscription) {
	delete(b.subs, s)
	s.once.Do(func() { close(s.c) })
}

// Events returns channel of events, closed when the subscription ends.
func (s *Subscription) Events() <-chan types.Event { return s.c }

func (s *Subscription) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	s.bus.drop(s)
}
