package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/tidings/pkg/slogx"
	"github.com/fogfish/opts"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

// Forwarder is a subscriber the dispatcher drains.
type Forwarder interface {
	// ID identifies the subscriber; registrations with the same id are merged.
	ID() string
	// ForwardEvents delivers everything queued for the subscriber. It returns the
	// number of successful deliveries and the combined receiver errors. A receiver
	// panic it recovered is reported as a *PanicError among them.
	ForwardEvents(ctx context.Context) (int, error)
}

// PanicHandler is called on the worker goroutine after a subscriber panic was recovered.
type PanicHandler func(subscriberID string, panicValue any, stack []byte)

// Dispatcher owns the worker goroutine delivering asynchronous events.
// Create it with New and share the instance between handlers.
type Dispatcher struct {
	logger       *slog.Logger
	stopGrace    time.Duration
	abandonGrace time.Duration
	idleInterval time.Duration
	panicHandler PanicHandler
	registerer   prometheus.Registerer

	metrics *Metrics

	lifecycle  sync.Mutex // serializes start and stop
	current    atomic.Pointer[run]
	generation atomic.Uint64
}

// New creates a stopped Dispatcher. The worker starts on the first Register.
func New(options ...Option) *Dispatcher {
	d := &Dispatcher{
		logger:       slog.Default().With(slogx.LoggerName("tidings.dispatcher")),
		stopGrace:    defaultStopGrace,
		abandonGrace: defaultAbandonGrace,
	}
	if err := opts.Apply(d, options); err != nil {
		panic(err)
	}
	if err := d.validate(); err != nil {
		panic(err)
	}
	d.metrics = newMetrics(d.registerer)
	return d
}

// Metrics returns the collectors updated by this dispatcher.
func (d *Dispatcher) Metrics() *Metrics {
	return d.metrics
}

// IsRunning reports whether a worker is currently running.
func (d *Dispatcher) IsRunning() bool {
	return d.current.Load() != nil
}

// Generation changes every time the worker starts or stops.
// A registration is only valid for the generation Register returned.
func (d *Dispatcher) Generation() uint64 {
	return d.generation.Load()
}

// Len returns the number of subscribers in the active set of the current run.
func (d *Dispatcher) Len() int {
	r := d.current.Load()
	if r == nil {
		return 0
	}
	return int(r.active.Len())
}

// Register queues f for the active set, starting the worker when stopped, and
// asks the worker for a pass right away. It returns the generation of the run
// that will drain f.
func (d *Dispatcher) Register(f Forwarder) uint64 {
	r := d.ensureRunning()
	r.pendingMu.Lock()
	r.pending = append(r.pending, f)
	r.pendingMu.Unlock()
	r.signal()
	return r.generation
}

// Wakeup asks the worker to start a pass now. Wake-ups issued before the next
// pass begins coalesce into that single pass. It is a no-op when stopped.
func (d *Dispatcher) Wakeup() {
	if r := d.current.Load(); r != nil {
		r.signal()
	}
}

// Stop halts asynchronous delivery. It waits for the worker up to the stop grace
// or until ctx is done, then cancels the context handed to subscribers and waits
// up to the abandon grace. When the worker still has not exited it is abandoned
// and ErrWorkerAbandoned is returned. Either way the run state is dropped, so a
// later Register starts a fresh worker.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.lifecycle.Lock()
	r := d.current.Swap(nil)
	if r != nil {
		d.generation.Add(1)
	}
	d.lifecycle.Unlock()

	if r == nil {
		return nil
	}

	d.logger.Info("stopping the event dispatcher")
	r.halt()

	if d.await(ctx, r, d.stopGrace) {
		d.stopped(r)
		return nil
	}

	r.cancel()
	if d.await(context.Background(), r, d.abandonGrace) {
		d.stopped(r)
		return nil
	}

	d.metrics.Abandoned.Inc()
	d.logger.Warn("abandoning the event dispatcher worker",
		slog.Duration("stop_grace", d.stopGrace),
		slog.Duration("abandon_grace", d.abandonGrace),
	)
	return fmt.Errorf("%w: still running after %s", ErrWorkerAbandoned, d.stopGrace+d.abandonGrace)
}

func (d *Dispatcher) stopped(r *run) {
	d.logger.Info("event dispatcher stopped", slog.Int("subscribers", int(r.active.Len())))
}

// await waits for the worker of r to exit, at most for timeout.
func (d *Dispatcher) await(ctx context.Context, r *run, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-r.done:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		select {
		case <-r.done:
			return true
		default:
			return false
		}
	}
}

func (d *Dispatcher) ensureRunning() *run {
	if r := d.current.Load(); r != nil {
		return r
	}

	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()
	if r := d.current.Load(); r != nil {
		return r
	}

	r := newRun(d.generation.Add(1))
	d.current.Store(r)
	go d.loop(r)
	return r
}

func (d *Dispatcher) loop(r *run) {
	defer close(r.done)
	// the gauge is shared with other dispatchers on the same registry
	defer func() { d.metrics.Subscribers.Sub(float64(r.active.Len())) }()
	defer r.cancel()
	d.logger.Info("event dispatcher started", slog.Uint64("generation", r.generation))

	var idle *time.Timer
	var idleC <-chan time.Time
	if d.idleInterval > 0 {
		idle = time.NewTimer(d.idleInterval)
		defer idle.Stop()
		idleC = idle.C
	}

	for {
		if !d.pass(r) {
			return
		}
		if d.merge(r) > 0 {
			// new subscribers may have queued discharges before they became active
			r.signal()
		}
		if r.halted.Load() {
			return
		}

		select {
		case <-r.stop:
			return
		case <-r.wake:
		case <-idleC:
		}

		if idle != nil {
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(d.idleInterval)
		}
	}
}

// pass drains every active subscriber once. It returns false when a stop was
// requested before the pass could complete.
func (d *Dispatcher) pass(r *run) bool {
	d.metrics.Passes.Inc()

	completed := true
	r.active.ForEach(func(_ string, f Forwarder) bool {
		if r.halted.Load() {
			completed = false
			return false
		}
		d.forward(r, f)
		return true
	})
	return completed && !r.halted.Load()
}

// forward drains one subscriber. A panic is contained here so it can't end the loop.
func (d *Dispatcher) forward(r *run, f Forwarder) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		d.panicked(f.ID(), rec, debug.Stack())
		// whatever is still queued behind the faulty discharge goes out next pass
		r.signal()
	}()

	delivered, err := f.ForwardEvents(r.ctx)
	d.metrics.delivered(delivered)
	if err == nil {
		return
	}

	var failures []error
	for _, e := range multierr.Errors(err) {
		var pe *PanicError
		if errors.As(e, &pe) {
			d.panicked(f.ID(), pe.Value, pe.Stack)
			continue
		}
		failures = append(failures, e)
	}
	if len(failures) == 0 {
		return
	}
	d.metrics.failed(len(failures))
	d.logger.Error("subscriber failed to handle events",
		slogx.SubscriberID(f.ID()),
		slog.Int("failures", len(failures)),
		slogx.Error(multierr.Combine(failures...)),
	)
}

// panicked records a recovered subscriber panic and hands it to the panic handler.
func (d *Dispatcher) panicked(id string, value any, stack []byte) {
	d.metrics.Panics.Inc()
	d.metrics.failed(1)
	d.logger.Error("subscriber panicked during delivery",
		slogx.SubscriberID(id),
		slogx.Panic(value, stack),
	)
	if d.panicHandler == nil {
		return
	}
	defer func() { _ = recover() }()
	d.panicHandler(id, value, stack)
}

// merge moves pending registrations into the active set, skipping ids that are
// already active, and returns how many subscribers it added. Only the worker
// goroutine calls it.
func (d *Dispatcher) merge(r *run) int {
	r.pendingMu.Lock()
	pending := r.pending
	r.pending = nil
	r.pendingMu.Unlock()

	added := 0
	for _, f := range pending {
		if _, ok := r.active.Get(f.ID()); ok {
			continue
		}
		r.active.Set(f.ID(), f)
		added++
	}
	d.metrics.Subscribers.Add(float64(added))
	return added
}

// run is the state of one worker lifetime, from start to stop.
type run struct {
	generation uint64

	ctx    context.Context
	cancel context.CancelFunc

	wake     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	halted   atomic.Bool
	done     chan struct{}

	pendingMu sync.Mutex
	pending   []Forwarder

	// written by the worker goroutine only
	active *haxmap.Map[string, Forwarder]
}

func newRun(generation uint64) *run {
	ctx, cancel := context.WithCancel(context.Background())
	return &run{
		generation: generation,
		ctx:        ctx,
		cancel:     cancel,
		wake:       make(chan struct{}, 1),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		active:     haxmap.New[string, Forwarder](),
	}
}

func (r *run) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *run) halt() {
	r.stopOnce.Do(func() {
		r.halted.Store(true)
		close(r.stop)
	})
}
