/*
Package keylock implements per record read-write locks.

An endpoint instruction declares all the records it reads and writes up
front, Acquire takes the locks in key order so instructions touching
overlapping record sets can't deadlock.
*/
package keylock

import (
	"slices"
	"strings"
	"sync"
)

type (
	Locker struct {
		mu    sync.Mutex
		locks map[string]*entry
	}

	entry struct {
		lock sync.RWMutex
		refs int
	}

	// Request is a lock request for a single key.
	Request struct {
		Key       string
		Exclusive bool
	}

	// Release releases all the locks taken by Acquire.
	Release func()
)

func New() *Locker {
	return &Locker{locks: make(map[string]*entry)}
}

// Read requests shared lock on the key.
func Read(key []byte) Request { return Request{Key: string(key)} }

// Write requests exclusive lock on the key.
func Write(key []byte) Request { return Request{Key: string(key), Exclusive: true} }

/*
Acquire blocks until all the requested locks have been taken. When the same
key is requested more than once the lock is exclusive if any of the requests
is exclusive.
*/
func (l *Locker) Acquire(reqs ...Request) Release {
	reqs = normalize(reqs)
	held := make([]func(), 0, len(reqs))
	for _, r := range reqs {
		e := l.ref(r.Key)
		if r.Exclusive {
			e.lock.Lock()
			held = append(held, func() { e.lock.Unlock(); l.unref(r.Key) })
		} else {
			e.lock.RLock()
			held = append(held, func() { e.lock.RUnlock(); l.unref(r.Key) })
		}
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(held) - 1; i >= 0; i-- {
				held[i]()
			}
		})
	}
}

func (l *Locker) ref(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{}
		l.locks[key] = e
	}
	e.refs++
	return e
}

func (l *Locker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e := l.locks[key]; e != nil {
		if e.refs--; e.refs == 0 {
			delete(l.locks, key)
		}
	}
}

// size returns number of keys currently referenced.
func (l *Locker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func normalize(reqs []Request) []Request {
	reqs = slices.Clone(reqs)
	slices.SortFunc(reqs, func(a, b Request) int {
		if c := strings.Compare(a.Key, b.Key); c != 0 {
			return c
		}
		// exclusive first so that Compact keeps it
		switch {
		case a.Exclusive == b.Exclusive:
			return 0
		case a.Exclusive:
			return -1
		default:
			return 1
		}
	})
	return slices.CompactFunc(reqs, func(a, b Request) bool { return a.Key == b.Key })
}
