// Package memory is an in-process fan-out events.Sink, grounded on the
// teacher's pubsub/memory.Events: subscribers are plain callbacks invoked
// on their own goroutine so a slow subscriber never slows down the
// publisher.
package memory

import (
	"sync"
	"sync/atomic"

	"github.com/f0mster/rmi/pkg/events"
)

type Sink struct {
	mu        sync.Mutex
	lastID    int64
	callbacks map[int64]func(events.Event)
}

func New() *Sink {
	return &Sink{callbacks: map[int64]func(events.Event){}}
}

func (s *Sink) Publish(evt events.Event) {
	s.mu.Lock()
	cbs := make([]func(events.Event), 0, len(s.callbacks))
	for _, cb := range s.callbacks {
		cbs = append(cbs, cb)
	}
	s.mu.Unlock()

	for _, cb := range cbs {
		f := cb
		go f(evt)
	}
}

// CancelFunc unsubscribes a previously registered callback.
type CancelFunc func()

// Subscribe registers a callback invoked for every published event, until
// the returned CancelFunc is called.
func (s *Sink) Subscribe(callback func(events.Event)) CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := atomic.AddInt64(&s.lastID, 1)
	s.callbacks[id] = callback
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.callbacks, id)
	}
}
