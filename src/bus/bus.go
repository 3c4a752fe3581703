// Package bus is a synchronous publish/subscribe mechanism.
// Handlers run on the publisher's goroutine in the order they subscribed.
package bus

import (
	"errors"
	"sync"
)

type Handler[T any] func(T) error

type subscription[T any] struct {
	id      int
	handler Handler[T]
}

type Bus[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   []subscription[T]
}

func New[T any]() *Bus[T] {
	return &Bus[T]{}
}

// Subscribe registers handler and returns an id for Unsubscribe.
func (b *Bus[T]) Subscribe(handler Handler[T]) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.subs = append(b.subs, subscription[T]{id: b.nextID, handler: handler})
	return b.nextID
}

// Unsubscribe reports whether id was registered.
func (b *Bus[T]) Unsubscribe(id int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Publish delivers value to every handler registered when Publish was called.
//   - handlers may subscribe or unsubscribe while being called
//   - returns the handler errors joined, nil if all succeeded
func (b *Bus[T]) Publish(value T) error {
	b.mu.Lock()
	subs := b.subs
	b.mu.Unlock()

	var errs []error
	for _, s := range subs {
		if err := s.handler(value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
