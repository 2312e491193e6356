package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "nftickets"

// Metrics 进程内全部 prometheus 指标。方法对 nil 接收者安全，未启用指标时可直接传 nil。
type Metrics struct {
	Registry *prometheus.Registry

	submissions    *prometheus.CounterVec
	confirmLatency *prometheus.HistogramVec
	signals        *prometheus.CounterVec
	reconciled     *prometheus.CounterVec
	pending        prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_submissions_total",
			Help:      "Ledger submissions by operation and outcome.",
		}, []string{"op", "outcome"}),
		confirmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_confirm_seconds",
			Help:      "Time from send to confirmation.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}, []string{"op"}),
		signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_signals_total",
			Help:      "Reconciliation signals emitted after a confirmed transaction failed to persist.",
		}, []string{"kind"}),
		reconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_results_total",
			Help:      "Reconciliation attempts by result.",
		}, []string{"result"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconcile_queue_depth",
			Help:      "Signals waiting in the reconciliation queue at the last scan.",
		}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.submissions,
		m.confirmLatency,
		m.signals,
		m.reconciled,
		m.pending,
	)
	return m
}

func (m *Metrics) ObserveSubmission(op, outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) ObserveConfirmLatency(op string, d time.Duration) {
	if m == nil {
		return
	}
	m.confirmLatency.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) ObserveSignal(kind string) {
	if m == nil {
		return
	}
	m.signals.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveReconcile(result string) {
	if m == nil {
		return
	}
	m.reconciled.WithLabelValues(result).Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(n))
}
