// Package transaction provides correlation of request/response pairs
// over an unordered message stream.
//
// The package provides:
//   - Single-use callback registry keyed by transaction id
//   - Unique transaction id generation
//
// Both the gateway signaling path and the data channel sub-protocol
// carry their own registry; the id spaces are independent.
package transaction

import "sync"

// Callback receives the message that resolved a transaction.
type Callback[T any] func(T)

// Registry tracks pending transactions. Each entry is single use:
// Take removes the entry while returning its callback, so a second
// message with the same id finds nothing.
type Registry[T any] struct {
	mu      sync.Mutex
	entries map[string]Callback[T]
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		entries: make(map[string]Callback[T]),
	}
}

// Put registers a callback under id. The id must not already be
// pending.
func (r *Registry[T]) Put(id string, cb Callback[T]) error {
	if cb == nil {
		return ErrNilCallback
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[id]; exists {
		return ErrDuplicateTransaction
	}
	r.entries[id] = cb
	return nil
}

// Take removes and returns the callback registered under id.
// The removal happens under the same lock as the lookup, so at most
// one caller observes the entry.
func (r *Registry[T]) Take(id string) (Callback[T], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cb, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	return cb, ok
}

// Drop removes the entry registered under id without invoking it.
// It reports whether an entry was removed.
func (r *Registry[T]) Drop(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	return ok
}

// Clear discards every pending entry without invoking the callbacks
// and returns the number discarded.
func (r *Registry[T]) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.entries)
	r.entries = make(map[string]Callback[T])
	return n
}

// Len returns the number of pending entries.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
