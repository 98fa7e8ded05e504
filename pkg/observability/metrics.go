package observability

import (
	"strconv"
	"time"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors of one runner process.
type Metrics struct {
	nodeEnters       *prometheus.CounterVec
	nodeTerminations *prometheus.CounterVec
	ticks            *prometheus.CounterVec
	tickDuration     *prometheus.HistogramVec
	entities         *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		nodeEnters: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "canopy",
				Name:      "node_enters_total",
				Help:      "Total number of rounds started per node.",
			},
			[]string{"tree", "node_id", "node"},
		),
		nodeTerminations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "canopy",
				Name:      "node_terminations_total",
				Help:      "Total number of rounds finished per node and status.",
			},
			[]string{"tree", "node_id", "node", "status"},
		),
		ticks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "canopy",
				Name:      "ticks_total",
				Help:      "Total number of entity ticks by root status.",
			},
			[]string{"tree", "status"},
		),
		tickDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "canopy",
				Name:      "tick_duration_seconds",
				Help:      "Wall time of one pass over every entity.",
				Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
			},
			[]string{"tree"},
		),
		entities: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "canopy",
				Name:      "entities",
				Help:      "Number of entities driven by a tree.",
			},
			[]string{"tree"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Collectors()...)
	}
	return m
}

// Collectors returns every collector, for custom registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.nodeEnters, m.nodeTerminations, m.ticks, m.tickDuration, m.entities}
}

// Hooks returns lifecycle hooks that count node rounds of the named tree.
func (m *Metrics) Hooks(tree string) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(e domain.NodeEvent) {
			m.nodeEnters.WithLabelValues(tree, strconv.FormatUint(uint64(e.NodeID), 10), e.Name).Inc()
		},
		OnNodeTerminate: func(e domain.NodeEvent) {
			m.nodeTerminations.WithLabelValues(tree, strconv.FormatUint(uint64(e.NodeID), 10), e.Name, e.Status.String()).Inc()
		},
	}
}

// ObserveTick records the root status of one entity tick.
func (m *Metrics) ObserveTick(tree string, s domain.Status) {
	m.ticks.WithLabelValues(tree, s.String()).Inc()
}

// ObservePass records how long one pass over all entities took.
func (m *Metrics) ObservePass(tree string, d time.Duration) {
	m.tickDuration.WithLabelValues(tree).Observe(d.Seconds())
}

// SetEntities reports the number of entities of a tree.
func (m *Metrics) SetEntities(tree string, n int) {
	m.entities.WithLabelValues(tree).Set(float64(n))
}
