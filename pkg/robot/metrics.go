package robot

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts loop activity. A nil *Metrics records nothing.
type Metrics struct {
	cycles           *prometheus.CounterVec
	exits            *prometheus.CounterVec
	overruns         prometheus.Counter
	callbackDuration prometheus.Histogram
}

// NewMetrics creates loop metrics and registers them with reg.
// Pass nil to create unregistered metrics.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "franka",
			Name:      "cycles_total",
			Help:      "Control and read cycles completed, by loop.",
		}, []string{"loop"}),
		exits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "franka",
			Name:      "loop_exits_total",
			Help:      "Loop terminations, by loop and reason.",
		}, []string{"loop", "reason"}),
		overruns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "franka",
			Name:      "callback_overruns_total",
			Help:      "Callback invocations that exceeded the cycle budget.",
		}),
		callbackDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "franka",
			Name:      "callback_duration_seconds",
			Help:      "Time spent in control callbacks per cycle.",
			Buckets:   []float64{25e-6, 50e-6, 100e-6, 250e-6, 500e-6, 1e-3, 2.5e-3, 5e-3, 10e-3},
		}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.cycles, m.exits, m.overruns, m.callbackDuration} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) cycle(loop string) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(loop).Inc()
}

func (m *Metrics) exit(loop, reason string) {
	if m == nil {
		return
	}
	m.exits.WithLabelValues(loop, reason).Inc()
}

func (m *Metrics) callback(d time.Duration, overrun bool) {
	if m == nil {
		return
	}
	m.callbackDuration.Observe(d.Seconds())
	if overrun {
		m.overruns.Inc()
	}
}
