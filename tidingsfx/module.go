// Package tidingsfx provides a tidings dispatcher to an fx application.
package tidingsfx

import (
	"context"
	"log/slog"

	"github.com/casualjim/tidings/dispatch"
	"github.com/casualjim/tidings/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Params are the optional dependencies the dispatcher picks up from the graph.
type Params struct {
	fx.In

	Logger     *slog.Logger          `optional:"true"`
	Registerer prometheus.Registerer `optional:"true"`
}

// Module provides a *dispatch.Dispatcher and stops it when the application stops.
// Options given here are applied after the ones derived from Params.
func Module(options ...dispatch.Option) fx.Option {
	return fx.Module("tidings",
		fx.Provide(func(p Params) *dispatch.Dispatcher {
			return New(p, options...)
		}),
		fx.Invoke(registerLifecycle),
	)
}

// New builds the dispatcher from the graph dependencies and options.
func New(p Params, options ...dispatch.Option) *dispatch.Dispatcher {
	var derived []dispatch.Option
	if p.Logger != nil {
		derived = append(derived, dispatch.WithLogger(p.Logger.With(slogx.LoggerName("tidings.dispatcher"))))
	}
	if p.Registerer != nil {
		derived = append(derived, dispatch.WithRegisterer(p.Registerer))
	}
	return dispatch.New(append(derived, options...)...)
}

func registerLifecycle(lc fx.Lifecycle, d *dispatch.Dispatcher) {
	lc.Append(fx.Hook{
		// the worker starts on the first subscription, nothing to do on start
		OnStop: func(ctx context.Context) error {
			return d.Stop(ctx)
		},
	})
}
