package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// SagaMetrics records the outcome of each booking saga step per form.
type SagaMetrics struct {
	auditWrites   *prometheus.CounterVec
	intents       *prometheus.CounterVec
	intentLatency *prometheus.HistogramVec
	voids         *prometheus.CounterVec
	confirmations *prometheus.CounterVec
	onboarding    *prometheus.CounterVec
}

// NewSagaMetrics registers the saga metrics on the provided registerer.
func NewSagaMetrics(reg prometheus.Registerer) *SagaMetrics {
	if reg == nil {
		return &SagaMetrics{}
	}
	m := &SagaMetrics{
		auditWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_audit_writes_total",
			Help: "Audit sink writes by form and result.",
		}, []string{"form", "result"}),
		intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_payment_intents_total",
			Help: "Payment intent creations by form and result.",
		}, []string{"form", "result"}),
		intentLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "booking_payment_intent_duration_seconds",
			Help:    "Latency of payment intent creation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"form"}),
		voids: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_payment_intent_voids_total",
			Help: "Abandoned payment intents voided on back-navigation or resubmission.",
		}, []string{"form", "result"}),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_confirmations_total",
			Help: "Confirmation outcomes reported by the browser.",
		}, []string{"form", "outcome"}),
		onboarding: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_onboarding_submissions_total",
			Help: "Onboarding handoff submissions by form and result.",
		}, []string{"form", "result"}),
	}
	reg.MustRegister(m.auditWrites, m.intents, m.intentLatency, m.voids, m.confirmations, m.onboarding)
	return m
}

func (m *SagaMetrics) AuditWrite(form string, ok bool) {
	if m == nil || m.auditWrites == nil {
		return
	}
	m.auditWrites.WithLabelValues(normalizeLabel(form), result(ok)).Inc()
}

func (m *SagaMetrics) IntentCreated(form string, ok bool, duration time.Duration) {
	if m == nil || m.intents == nil {
		return
	}
	m.intents.WithLabelValues(normalizeLabel(form), result(ok)).Inc()
	m.intentLatency.WithLabelValues(normalizeLabel(form)).Observe(duration.Seconds())
}

func (m *SagaMetrics) IntentVoided(form string, ok bool) {
	if m == nil || m.voids == nil {
		return
	}
	m.voids.WithLabelValues(normalizeLabel(form), result(ok)).Inc()
}

func (m *SagaMetrics) Confirmation(form, outcome string) {
	if m == nil || m.confirmations == nil {
		return
	}
	m.confirmations.WithLabelValues(normalizeLabel(form), normalizeLabel(outcome)).Inc()
}

func (m *SagaMetrics) OnboardingSubmitted(form string, ok bool) {
	if m == nil || m.onboarding == nil {
		return
	}
	m.onboarding.WithLabelValues(normalizeLabel(form), result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return ResultOK
	}
	return ResultFailed
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
