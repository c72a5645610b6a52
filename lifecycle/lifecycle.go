package lifecycle

import (
	"sync"
	"sync/atomic"
)

type Event uint8

const (
	// BeforeStart is fired when transports are bound, but nothing is accepted yet.
	BeforeStart Event = iota
	// Start is fired as soon as all the transports are accepting connections.
	Start
	// Stop is fired when all the transports are down and all the connections are closed.
	Stop
	// ConnOpen is fired for every accepted connection. The data is its remote address.
	ConnOpen
	// ConnClose is fired when the connection is done. The data is its remote address.
	ConnClose
)

func (e Event) String() string {
	switch e {
	case BeforeStart:
		return "before start"
	case Start:
		return "start"
	case Stop:
		return "stop"
	case ConnOpen:
		return "connection open"
	case ConnClose:
		return "connection close"
	default:
		return "unknown"
	}
}

type Listener func(event Event, data any)

// Handle identifies a registered listener, so the very same listener can be removed later.
type Handle uint64

type entry struct {
	handle   Handle
	listener Listener
}

// Support is a registry of lifecycle listeners. The zero value is ready to use.
//
// Listeners are stored as an immutable snapshot, replaced on every change. Firing iterates
// over the snapshot taken at its beginning, so listeners added or removed meanwhile (including
// by the listeners themselves) don't affect an ongoing dispatch.
type Support struct {
	mu        sync.Mutex
	next      Handle
	listeners atomic.Pointer[[]entry]
}

// Add registers the listener. Adding the same function twice results in two registrations.
func (s *Support) Add(listener Listener) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	current := s.load()
	updated := make([]entry, len(current), len(current)+1)
	copy(updated, current)
	updated = append(updated, entry{handle: s.next, listener: listener})
	s.listeners.Store(&updated)

	return s.next
}

// Remove unregisters the listener. Returns false if there's no such handle.
func (s *Support) Remove(handle Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.load()
	for i, e := range current {
		if e.handle != handle {
			continue
		}

		updated := make([]entry, 0, len(current)-1)
		updated = append(updated, current[:i]...)
		updated = append(updated, current[i+1:]...)
		s.listeners.Store(&updated)

		return true
	}

	return false
}

// Len returns the number of registered listeners.
func (s *Support) Len() int {
	return len(s.load())
}

// Fire calls every listener synchronously, in order of their registration.
func (s *Support) Fire(event Event, data any) {
	for _, e := range s.load() {
		e.listener(event, data)
	}
}

func (s *Support) load() []entry {
	if listeners := s.listeners.Load(); listeners != nil {
		return *listeners
	}

	return nil
}
