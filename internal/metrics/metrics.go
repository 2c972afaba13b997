package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the bot's collectors. A nil *Metrics records nothing.
type Metrics struct {
	jobDuration   *prometheus.HistogramVec
	jobSuccess    *prometheus.CounterVec
	jobFailure    *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	conflicts     *prometheus.CounterVec
	notifyFailure prometheus.Counter
	ledgerFailure prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	m := &Metrics{
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tulips_job_duration_seconds",
			Help:    "Duration of background jobs in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		jobSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tulips_job_success_total",
			Help: "Successful background job runs.",
		}, []string{"job"}),
		jobFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tulips_job_failure_total",
			Help: "Failed background job runs.",
		}, []string{"job"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tulips_order_transitions_total",
			Help: "Applied order status transitions.",
		}, []string{"to"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tulips_order_conflicts_total",
			Help: "Order actions that lost a race or found the order already resolved.",
		}, []string{"action"}),
		notifyFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tulips_notification_failures_total",
			Help: "Chat notifications that could not be delivered.",
		}),
		ledgerFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tulips_ledger_failures_total",
			Help: "Ledger exports that failed.",
		}),
	}
	reg.MustRegister(m.jobDuration, m.jobSuccess, m.jobFailure, m.transitions, m.conflicts, m.notifyFailure, m.ledgerFailure)
	return m
}

func (m *Metrics) ObserveJob(job string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	job = normalizeLabel(job)
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
	if err != nil {
		m.jobFailure.WithLabelValues(job).Inc()
		return
	}
	m.jobSuccess.WithLabelValues(job).Inc()
}

func (m *Metrics) IncTransition(to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(to)).Inc()
}

func (m *Metrics) IncConflict(action string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(normalizeLabel(action)).Inc()
}

func (m *Metrics) IncNotifyFailure() {
	if m == nil {
		return
	}
	m.notifyFailure.Inc()
}

func (m *Metrics) IncLedgerFailure() {
	if m == nil {
		return
	}
	m.ledgerFailure.Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
