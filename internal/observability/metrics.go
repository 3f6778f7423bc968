package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics is the Prometheus view of the sync domain. A nil *SyncMetrics
// is valid and records nothing, so callers never branch on whether metrics
// are enabled.
type SyncMetrics struct {
	recordsIngested  *prometheus.CounterVec
	recordsRejected  *prometheus.CounterVec
	recordsServed    prometheus.Counter
	sessionsStarted  *prometheus.CounterVec
	connectedDevices prometheus.Gauge
}

// NewSyncMetrics creates and registers the domain collectors with the
// default registry.
func NewSyncMetrics() *SyncMetrics {
	m := &SyncMetrics{
		recordsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vitalsync",
			Subsystem: "sync",
			Name:      "records_ingested_total",
			Help:      "Accepted health records by data type.",
		}, []string{"data_type"}),
		recordsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vitalsync",
			Subsystem: "sync",
			Name:      "records_rejected_total",
			Help:      "Rejected health records by failing check.",
		}, []string{"reason"}),
		recordsServed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vitalsync",
			Subsystem: "sync",
			Name:      "records_served_total",
			Help:      "Records returned to readers.",
		}),
		sessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vitalsync",
			Subsystem: "sync",
			Name:      "sessions_started_total",
			Help:      "Sync sessions opened by carrier kind.",
		}, []string{"kind"}),
		connectedDevices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vitalsync",
			Subsystem: "presence",
			Name:      "connected_devices",
			Help:      "Devices currently counted as connected.",
		}),
	}

	prometheus.MustRegister(
		m.recordsIngested,
		m.recordsRejected,
		m.recordsServed,
		m.sessionsStarted,
		m.connectedDevices,
	)
	return m
}

func (m *SyncMetrics) AddIngested(dataType string, n int) {
	if m == nil {
		return
	}
	m.recordsIngested.WithLabelValues(dataType).Add(float64(n))
}

func (m *SyncMetrics) IncRejected(reason string) {
	if m == nil {
		return
	}
	m.recordsRejected.WithLabelValues(reason).Inc()
}

func (m *SyncMetrics) AddServed(n int) {
	if m == nil {
		return
	}
	m.recordsServed.Add(float64(n))
}

func (m *SyncMetrics) IncSessionStarted(kind string) {
	if m == nil {
		return
	}
	m.sessionsStarted.WithLabelValues(kind).Inc()
}

func (m *SyncMetrics) SetConnectedDevices(n int) {
	if m == nil {
		return
	}
	m.connectedDevices.Set(float64(n))
}
