package dispatch

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fogfish/opts"
	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Dispatcher.
type Option = opts.Option[Dispatcher]

const (
	defaultStopGrace    = 300 * time.Millisecond
	defaultAbandonGrace = 10 * time.Millisecond
)

var (
	// WithLogger sets the logger used for lifecycle and delivery failure records.
	WithLogger = opts.ForName[Dispatcher, *slog.Logger]("logger")

	// WithStopGrace sets how long Stop waits for the worker to exit on its own.
	WithStopGrace = opts.ForName[Dispatcher, time.Duration]("stopGrace")

	// WithAbandonGrace sets how long Stop waits after cancelling the subscriber
	// context before it abandons the worker.
	WithAbandonGrace = opts.ForName[Dispatcher, time.Duration]("abandonGrace")

	// WithIdleInterval enables a safety-net pass every interval while idle.
	// Zero, the default, disables it: the worker only wakes when signalled.
	WithIdleInterval = opts.ForName[Dispatcher, time.Duration]("idleInterval")

	// WithPanicHandler sets a callback invoked after a subscriber panic was recovered.
	WithPanicHandler = opts.ForName[Dispatcher, PanicHandler]("panicHandler")
)

// WithRegisterer registers the dispatcher metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return opts.Type[Dispatcher](func(d *Dispatcher) error {
		if reg == nil {
			return fmt.Errorf("registerer is required")
		}
		d.registerer = reg
		return nil
	})
}

func (d *Dispatcher) validate() error {
	if d.stopGrace < 0 {
		return fmt.Errorf("stop grace must not be negative, got %s", d.stopGrace)
	}
	if d.abandonGrace < 0 {
		return fmt.Errorf("abandon grace must not be negative, got %s", d.abandonGrace)
	}
	if d.idleInterval < 0 {
		return fmt.Errorf("idle interval must not be negative, got %s", d.idleInterval)
	}
	if d.logger == nil {
		return fmt.Errorf("logger is required")
	}
	return nil
}
