package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Publish kinds used as the "kind" label.
const (
	KindState     = "state"
	KindDiscovery = "discovery"
)

// Metrics groups the bridge's Prometheus collectors.
type Metrics struct {
	ReadingsIngested prometheus.Counter
	BufferLength     prometheus.Gauge
	Published        *prometheus.CounterVec
	PublishFailures  *prometheus.CounterVec
	FlushedRows      prometheus.Counter
	FlushFailures    prometheus.Counter
	ReadingsLost     prometheus.Counter
	ExtraFields      prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReadingsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weather_bridge_readings_ingested_total",
			Help: "Readings accepted from the station.",
		}),
		BufferLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "weather_bridge_buffer_length",
			Help: "Readings waiting for the next flush.",
		}),
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_bridge_published_total",
			Help: "Messages published to the broker.",
		}, []string{"kind"}),
		PublishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_bridge_publish_failures_total",
			Help: "Publishes that failed.",
		}, []string{"kind"}),
		FlushedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weather_bridge_flushed_rows_total",
			Help: "Rows appended to daily CSV files.",
		}),
		FlushFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weather_bridge_flush_failures_total",
			Help: "Flush attempts that failed to write.",
		}),
		ReadingsLost: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weather_bridge_readings_lost_total",
			Help: "Drained readings discarded because the write failed.",
		}),
		ExtraFields: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weather_bridge_flush_extra_fields_total",
			Help: "Field keys written as key=value cells because the day's header has no column for them.",
		}),
	}

	reg.MustRegister(
		m.ReadingsIngested,
		m.BufferLength,
		m.Published,
		m.PublishFailures,
		m.FlushedRows,
		m.FlushFailures,
		m.ReadingsLost,
		m.ExtraFields,
	)
	return m
}
