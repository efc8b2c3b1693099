package paging

import (
	"context"
	"sync"
)

// Store holds the current ListState and publishes every change to subscribers.
type Store[T any] struct {
	mu     sync.Mutex
	state  ListState[T]
	subs   map[uint64]chan ListState[T]
	nextID uint64
	done   chan struct{}
	closed bool
}

// NewStore creates a store holding initial.
func NewStore[T any](initial ListState[T]) *Store[T] {
	return &Store[T]{
		state: initial,
		subs:  make(map[uint64]chan ListState[T]),
		done:  make(chan struct{}),
	}
}

// Snapshot returns the current state.
func (s *Store[T]) Snapshot() ListState[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update applies fn to a copy of the current state, stores the result and
// publishes it. fn must assign fresh slices and maps rather than mutate the
// ones already in the state.
func (s *Store[T]) Update(fn func(*ListState[T])) ListState[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state
	fn(&next)
	s.state = next

	for _, ch := range s.subs {
		offer(ch, next)
	}
	return next
}

// Subscribe returns a channel that receives the current state immediately and
// then every published state. Slow subscribers only see the latest state.
// The channel is closed when ctx is done or the store is closed.
func (s *Store[T]) Subscribe(ctx context.Context) <-chan ListState[T] {
	ch := make(chan ListState[T], 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	ch <- s.state
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-s.done:
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}()

	return ch
}

// Close closes every subscription. Updates after Close are still stored but
// no longer published.
func (s *Store[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// offer replaces any undelivered state in ch with state. Only the store
// sends on ch, and always under its lock, so the second send cannot block.
func offer[T any](ch chan ListState[T], state ListState[T]) {
	select {
	case ch <- state:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- state:
	default:
	}
}
