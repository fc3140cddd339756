package tidings

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/casualjim/tidings/dispatch"
	"github.com/casualjim/tidings/internal/queue"
	"github.com/casualjim/tidings/pkg/slogx"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// Receiver handles the events delivered to a Handler.
type Receiver[T any] interface {
	HandleEvent(ctx context.Context, sender any, payload T) error
}

// HandlerFunc adapts a plain function to a Receiver.
type HandlerFunc[T any] func(ctx context.Context, sender any, payload T) error

// HandleEvent calls f.
func (f HandlerFunc[T]) HandleEvent(ctx context.Context, sender any, payload T) error {
	return f(ctx, sender, payload)
}

var _ dispatch.Forwarder = (*Handler[int])(nil)

// Handler subscribes a Receiver to events. It keeps a private queue of
// discharges fired asynchronously, which the dispatcher drains on its own goroutine.
//
// Handlers are compared by identity: subscribing the same *Handler twice to an
// Event has no effect.
type Handler[T any] struct {
	id         string
	receiver   Receiver[T]
	dispatcher *dispatch.Dispatcher
	queue      *queue.FIFO[Discharge[T]]

	// dispatcher generation this handler registered under, 0 until first use
	registered atomic.Uint64

	warnNoDispatcher sync.Once
}

// NewHandler creates a Handler delivering to r. Asynchronous events are drained by d.
// With a nil dispatcher the handler only receives synchronous events.
// It panics when r is nil.
func NewHandler[T any](d *dispatch.Dispatcher, r Receiver[T]) *Handler[T] {
	if r == nil {
		panic("tidings: a receiver is required")
	}
	return &Handler[T]{
		id:         uuid.Must(uuid.NewV7()).String(),
		receiver:   r,
		dispatcher: d,
		queue:      queue.New[Discharge[T]](),
	}
}

// HandleFunc creates a Handler delivering to fn.
func HandleFunc[T any](d *dispatch.Dispatcher, fn func(ctx context.Context, sender any, payload T) error) *Handler[T] {
	if fn == nil {
		panic("tidings: a handler func is required")
	}
	return NewHandler[T](d, HandlerFunc[T](fn))
}

// ID returns the unique id of this handler.
func (h *Handler[T]) ID() string {
	return h.id
}

// Pending returns how many discharges wait for the dispatcher.
func (h *Handler[T]) Pending() int {
	return h.queue.Len()
}

// AddToQueue queues a discharge for asynchronous delivery and wakes the dispatcher.
// The first call registers the handler with the dispatcher. Once the dispatcher
// run it registered with has stopped, new discharges are dropped.
func (h *Handler[T]) AddToQueue(sender any, payload T) {
	if h.dispatcher == nil {
		h.warnNoDispatcher.Do(func() {
			slog.Warn("dropping asynchronous events for a handler without dispatcher", slogx.SubscriberID(h.id))
		})
		return
	}

	gen := h.registered.Load()
	if gen == 0 {
		// two goroutines can both get here, the dispatcher merges duplicate registrations
		gen = h.dispatcher.Register(h)
		h.registered.CompareAndSwap(0, gen)
	}
	d := NewDischarge(sender, payload)
	if gen != h.dispatcher.Generation() {
		slog.Debug("dropping asynchronous event, the dispatcher was stopped",
			slogx.SubscriberID(h.id),
			slog.Any("discharge", d),
		)
		return
	}

	h.queue.Push(d)
	h.dispatcher.Wakeup()
}

// ForwardEvents delivers queued discharges one at a time, oldest first, until the
// queue is seen empty or ctx is cancelled. Receiver errors don't stop the drain,
// neither do receiver panics: those are recovered and returned as *dispatch.PanicError.
// It is called by the dispatcher goroutine.
func (h *Handler[T]) ForwardEvents(ctx context.Context) (int, error) {
	var (
		delivered int
		errs      error
	)
	for ctx.Err() == nil {
		d, ok := h.queue.Pop()
		if !ok {
			break
		}
		if err := h.deliverRecover(ctx, d); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		delivered++
	}
	return delivered, errs
}

func (h *Handler[T]) deliver(ctx context.Context, d Discharge[T]) error {
	return h.receiver.HandleEvent(ctx, d.Sender(), d.Payload())
}

func (h *Handler[T]) deliverRecover(ctx context.Context, d Discharge[T]) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &dispatch.PanicError{Value: rec, Stack: debug.Stack()}
		}
	}()
	return h.deliver(ctx, d)
}
