package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fbellom/parking-rfid-sim/core/model"
)

// Config defines the metrics exposure settings.
type Config struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusAddr    string `json:"prometheus_addr"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.PrometheusAddr == "" {
		c.PrometheusAddr = ":9090"
	}
}

// PromSink records simulation activity in Prometheus metrics.
type PromSink struct {
	events    *prometheus.CounterVec
	tick      prometheus.Histogram
	inUse     prometheus.Gauge
	available prometheus.Gauge
	usageRate prometheus.Gauge
}

// NewPromSink registers simulation metrics on the default Prometheus
// registerer. The metrics server is started separately.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_activity_events_total",
		Help: "Total number of vehicle activity events by kind",
	}, []string{"event"})
	tick := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "parking_tick_duration_seconds",
		Help:    "Wall time spent inside one simulation tick",
		Buckets: prometheus.DefBuckets,
	})
	inUse := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "parking_spots_in_use",
		Help: "Number of occupied parking spots",
	})
	available := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "parking_spots_available",
		Help: "Number of free parking spots",
	})
	usageRate := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "parking_usage_rate_percent",
		Help: "Occupied share of the lot in percent",
	})

	if err := reg.Register(events); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			events = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	for _, c := range []prometheus.Collector{tick, inUse, available, usageRate} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}

	return &PromSink{events: events, tick: tick, inUse: inUse, available: available, usageRate: usageRate}, nil
}

// RecordEvent increments the counter for one activity event kind.
func (s *PromSink) RecordEvent(kind string) {
	s.events.WithLabelValues(kind).Inc()
}

// ObserveTick records the duration of one tick.
func (s *PromSink) ObserveTick(seconds float64) {
	s.tick.Observe(seconds)
}

// SetOccupancy updates the occupancy gauges from a ledger aggregate.
func (s *PromSink) SetOccupancy(occ model.Occupancy) {
	s.inUse.Set(float64(occ.SpotsInUse))
	s.available.Set(float64(occ.SpotsAvail))
	s.usageRate.Set(occ.UsageRate)
}
