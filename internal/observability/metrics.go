package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// talent-flow refresh pipeline.
type Metrics struct {
	// Census fetch metrics.
	FetchRequests *prometheus.CounterVec   // labels: table={b07009,b07409,b15003,b20004}, outcome={success,error}
	FetchDuration *prometheus.HistogramVec // labels: table
	CacheLookups  *prometheus.CounterVec   // labels: table, result={hit,miss}

	// Snapshot refresh metrics.
	RefreshTotal      *prometheus.CounterVec // labels: outcome={success,error}
	RefreshDuration   prometheus.Histogram
	StatesJoined      prometheus.Gauge
	StatesDropped     prometheus.Gauge
	SnapshotTimestamp prometheus.Gauge // unix seconds of the current snapshot
	RefresherRunning  prometheus.Gauge

	// Publisher and alert metrics.
	RecordsPublished prometheus.Counter
	PublishErrors    prometheus.Counter
	AlertsFired      *prometheus.CounterVec // labels: severity={critical,info}
	AlertErrors      prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchDuration,
		m.CacheLookups,
		m.RefreshTotal,
		m.RefreshDuration,
		m.StatesJoined,
		m.StatesDropped,
		m.SnapshotTimestamp,
		m.RefresherRunning,
		m.RecordsPublished,
		m.PublishErrors,
		m.AlertsFired,
		m.AlertErrors,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "talent_flow",
			Name:      "census_fetch_requests_total",
			Help:      "Census API table fetches by table and outcome.",
		}, []string{"table", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "talent_flow",
			Name:      "census_fetch_duration_seconds",
			Help:      "Census API request duration per table.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"table"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "talent_flow",
			Name:      "census_cache_lookups_total",
			Help:      "Census fetch cache lookups by table and result.",
		}, []string{"table", "result"}),
		RefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "talent_flow",
			Name:      "snapshot_refresh_total",
			Help:      "Snapshot refresh attempts by outcome.",
		}, []string{"outcome"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "talent_flow",
			Name:      "snapshot_refresh_duration_seconds",
			Help:      "Duration of a complete fetch-join-derive refresh cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		StatesJoined: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "talent_flow",
			Name:      "snapshot_states_joined",
			Help:      "States present in all four tables of the current snapshot.",
		}),
		StatesDropped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "talent_flow",
			Name:      "snapshot_states_dropped",
			Help:      "States excluded from the current snapshot by the inner join.",
		}),
		SnapshotTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "talent_flow",
			Name:      "snapshot_fetched_at_seconds",
			Help:      "Unix time of the current snapshot's fetch.",
		}),
		RefresherRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "talent_flow",
			Name:      "refresher_running",
			Help:      "1 when the refresh loop is active, 0 when shut down.",
		}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "talent_flow",
			Name:      "records_published_total",
			Help:      "State records published to the sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "talent_flow",
			Name:      "publish_errors_total",
			Help:      "Failed snapshot publishes.",
		}),
		AlertsFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "talent_flow",
			Name:      "alerts_fired_total",
			Help:      "Segment-transition alerts fired by severity.",
		}, []string{"severity"}),
		AlertErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "talent_flow",
			Name:      "alert_delivery_errors_total",
			Help:      "Webhook deliveries that failed.",
		}),
	}
}
