package tidings

import (
	"context"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Event is an event source that handlers subscribe to and publishers fire.
// The payload of every firing has type T.
//
// The zero value is ready to use, so an Event is usually embedded as a field
// of the publishing type:
//
//	type Thermometer struct {
//	    Changed tidings.Event[float64]
//	}
//
// Event is safe for concurrent use.
type Event[T any] struct {
	mu       sync.Mutex
	handlers *orderedmap.OrderedMap[string, *Handler[T]]
}

// NewEvent creates an event source without subscribers.
func NewEvent[T any]() *Event[T] {
	return &Event[T]{}
}

// Subscribe adds h to the subscribers. Nil handlers and handlers that are
// already subscribed are ignored.
func (e *Event[T]) Subscribe(h *Handler[T]) {
	if h == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlers == nil {
		e.handlers = orderedmap.New[string, *Handler[T]]()
	}
	if _, present := e.handlers.Get(h.ID()); present {
		return
	}
	e.handlers.Set(h.ID(), h)
}

// Unsubscribe removes h from the subscribers. Unknown handlers are ignored.
// Discharges already queued for h by FireAsync may still be delivered.
func (e *Event[T]) Unsubscribe(h *Handler[T]) {
	if h == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlers == nil {
		return
	}
	e.handlers.Delete(h.ID())
}

// Subscribed reports whether h is currently subscribed.
func (e *Event[T]) Subscribed(h *Handler[T]) bool {
	if h == nil {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlers == nil {
		return false
	}
	_, present := e.handlers.Get(h.ID())
	return present
}

// Len returns the number of subscribers.
func (e *Event[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlers == nil {
		return 0
	}
	return e.handlers.Len()
}

// FireSync calls every subscriber with sender and payload on the calling
// goroutine and returns once they all returned. The first receiver error stops
// the delivery to the remaining subscribers and is returned as is; a receiver
// panic propagates to the caller.
//
// Receivers run on a snapshot of the subscribers, so they may subscribe or
// unsubscribe handlers on this event; the change applies to the next firing.
func (e *Event[T]) FireSync(ctx context.Context, sender any, payload T) error {
	d := NewDischarge(sender, payload)
	for _, h := range e.snapshot() {
		if err := h.deliver(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// FireSyncSender is FireSync with the zero value of T as payload.
func (e *Event[T]) FireSyncSender(ctx context.Context, sender any) error {
	var payload T
	return e.FireSync(ctx, sender, payload)
}

// FireAsync queues the event for every subscriber and returns immediately.
// Each subscriber receives its discharges in the order they were queued; there
// is no ordering between subscribers, nor between concurrent publishers.
func (e *Event[T]) FireAsync(sender any, payload T) {
	for _, h := range e.snapshot() {
		h.AddToQueue(sender, payload)
	}
}

// FireAsyncSender is FireAsync with the zero value of T as payload.
func (e *Event[T]) FireAsyncSender(sender any) {
	var payload T
	e.FireAsync(sender, payload)
}

func (e *Event[T]) snapshot() []*Handler[T] {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlers == nil || e.handlers.Len() == 0 {
		return nil
	}

	handlers := make([]*Handler[T], 0, e.handlers.Len())
	for pair := e.handlers.Oldest(); pair != nil; pair = pair.Next() {
		handlers = append(handlers, pair.Value)
	}
	return handlers
}
