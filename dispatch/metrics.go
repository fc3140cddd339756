package dispatch

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "tidings"
	metricsSubsystem = "dispatcher"

	outcomeDelivered = "delivered"
	outcomeFailed    = "failed"
)

// Metrics are the collectors a Dispatcher updates while it runs.
type Metrics struct {
	Discharges  *prometheus.CounterVec
	Panics      prometheus.Counter
	Passes      prometheus.Counter
	Abandoned   prometheus.Counter
	Subscribers prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Discharges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "discharges_total",
			Help:      "Discharges handed to subscribers, by outcome.",
		}, []string{"outcome"}),
		Panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "panics_total",
			Help:      "Subscriber panics recovered during delivery.",
		}),
		Passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "passes_total",
			Help:      "Delivery passes over the active subscribers.",
		}),
		Abandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "abandoned_total",
			Help:      "Workers abandoned because they did not exit within the stop bounds.",
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "subscribers",
			Help:      "Subscribers in the active set of the current run.",
		}),
	}
	if reg == nil {
		return m
	}

	m.Discharges = register(reg, m.Discharges)
	m.Panics = register(reg, m.Panics)
	m.Passes = register(reg, m.Passes)
	m.Abandoned = register(reg, m.Abandoned)
	m.Subscribers = register(reg, m.Subscribers)
	return m
}

// register returns the collector already present in reg when an identical one
// was registered before, so several dispatchers can share a registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *Metrics) delivered(n int) {
	if n > 0 {
		m.Discharges.WithLabelValues(outcomeDelivered).Add(float64(n))
	}
}

func (m *Metrics) failed(n int) {
	if n > 0 {
		m.Discharges.WithLabelValues(outcomeFailed).Add(float64(n))
	}
}
