package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DispatchMetrics tracks notification creation and channel outcomes.
type DispatchMetrics struct {
	created      *prometheus.CounterVec
	smsOutcomes  *prometheus.CounterVec
	pushes       prometheus.Counter
	scanDuration prometheus.Histogram
}

// NewDispatchMetrics registers the dispatch metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return &DispatchMetrics{}
	}
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tollwatch_notifications_created_total",
		Help: "Notifications committed to the ledger.",
	}, []string{"type"})
	smsOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tollwatch_sms_outcomes_total",
		Help: "Terminal SMS outcomes recorded on notifications.",
	}, []string{"status"})
	pushes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tollwatch_push_deliveries_total",
		Help: "Payloads handed to live sessions.",
	})
	scanDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tollwatch_scan_duration_seconds",
		Help:    "Duration of proximity scans in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(created, smsOutcomes, pushes, scanDuration)
	return &DispatchMetrics{
		created:      created,
		smsOutcomes:  smsOutcomes,
		pushes:       pushes,
		scanDuration: scanDuration,
	}
}

// IncCreated counts a committed notification of the given type.
func (d *DispatchMetrics) IncCreated(notificationType string) {
	if d == nil || d.created == nil {
		return
	}
	d.created.WithLabelValues(labelOr(notificationType, "unknown")).Inc()
}

// IncSMSOutcome counts a recorded SMS status.
func (d *DispatchMetrics) IncSMSOutcome(status string) {
	if d == nil || d.smsOutcomes == nil {
		return
	}
	d.smsOutcomes.WithLabelValues(labelOr(status, "unknown")).Inc()
}

// AddPushDeliveries counts payloads delivered to sessions.
func (d *DispatchMetrics) AddPushDeliveries(n int) {
	if d == nil || d.pushes == nil || n <= 0 {
		return
	}
	d.pushes.Add(float64(n))
}

// ObserveScan records the duration of one scan.
func (d *DispatchMetrics) ObserveScan(duration time.Duration) {
	if d == nil || d.scanDuration == nil {
		return
	}
	d.scanDuration.Observe(duration.Seconds())
}
