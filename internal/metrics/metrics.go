package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Delivery result labels.
const (
	ResultSent             = "sent"
	ResultNotFound         = "not_found"
	ResultPermissionDenied = "permission_denied"
	ResultTransient        = "transient"
)

// Submission result labels.
const (
	SubmitAccepted     = "accepted"
	SubmitInvalid      = "invalid"
	SubmitUnauthorized = "unauthorized"
	SubmitStoreError   = "store_error"
	SubmitLimited      = "rate_limited"
	SubmitCancelled    = "cancelled"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Deliveries         *prometheus.CounterVec
	Ticks              prometheus.Counter
	DeleteErrors       prometheus.Counter
	DueItems           prometheus.Gauge
	DirectoryRefreshes *prometheus.CounterVec
	DirectoryEntries   *prometheus.GaugeVec
	Submissions        *prometheus.CounterVec
}

// New registers all instruments with reg. Using a custom registry keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schedbot_deliveries_total",
			Help: "Delivery attempts by result. Every attempt removes the item from the queue.",
		}, []string{"result"}),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "schedbot_ticks_total",
			Help: "Completed dispatch ticks.",
		}),
		DeleteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "schedbot_queue_delete_errors_total",
			Help: "Items that could not be removed after a delivery attempt (possible duplicate send).",
		}),
		DueItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "schedbot_due_items",
			Help: "Number of due items selected by the last tick.",
		}),
		DirectoryRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schedbot_directory_refresh_total",
			Help: "Directory refresh cycles by result.",
		}, []string{"result"}),
		DirectoryEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "schedbot_directory_entries",
			Help: "Entries in the published directory snapshot.",
		}, []string{"kind"}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schedbot_submissions_total",
			Help: "Web form submissions by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.Deliveries,
		m.Ticks,
		m.DeleteErrors,
		m.DueItems,
		m.DirectoryRefreshes,
		m.DirectoryEntries,
		m.Submissions,
	)
	return m
}

func (m *Metrics) ObserveDelivery(result string) {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveTick(due int) {
	if m == nil {
		return
	}
	m.Ticks.Inc()
	m.DueItems.Set(float64(due))
}

func (m *Metrics) ObserveDeleteError() {
	if m == nil {
		return
	}
	m.DeleteErrors.Inc()
}

func (m *Metrics) ObserveRefresh(ok bool, channels, roles int) {
	if m == nil {
		return
	}
	if !ok {
		m.DirectoryRefreshes.WithLabelValues("error").Inc()
		return
	}
	m.DirectoryRefreshes.WithLabelValues("ok").Inc()
	m.DirectoryEntries.WithLabelValues("channel").Set(float64(channels))
	m.DirectoryEntries.WithLabelValues("role").Set(float64(roles))
}

func (m *Metrics) ObserveSubmission(result string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(result).Inc()
}
