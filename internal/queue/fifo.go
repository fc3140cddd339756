// Package queue provides the FIFO backing every subscriber's pending discharges.
//
// A FIFO is written to by any number of publishers and drained by exactly one
// consumer. Each operation takes the queue's own lock for the duration of a
// single push or pop, so a publisher never waits behind a delivery in progress.
package queue

import (
	"sync"

	list "github.com/bahlo/generic-list-go"
)

// FIFO is a mutex guarded first-in first-out queue.
// The zero value is not usable, use New.
type FIFO[T any] struct {
	mu    sync.Mutex
	items *list.List[T]
}

// New creates an empty FIFO.
func New[T any]() *FIFO[T] {
	return &FIFO[T]{items: list.New[T]()}
}

// Push appends v at the tail.
func (q *FIFO[T]) Push(v T) {
	q.mu.Lock()
	q.items.PushBack(v)
	q.mu.Unlock()
}

// Pop removes and returns the head. The boolean is false when the queue was
// empty at the moment of the call.
func (q *FIFO[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	front := q.items.Front()
	if front == nil {
		var zero T
		return zero, false
	}
	return q.items.Remove(front), true
}

// Len returns the number of queued items.
func (q *FIFO[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}
