package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records service operations and reconciliation outcomes. One
// instance is shared by every module; the service label tells them apart.
type Metrics struct {
	OperationAttempts  *prometheus.CounterVec
	OperationSuccesses *prometheus.CounterVec
	OperationFailures  *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
	MemberEdits        *prometheus.CounterVec
	GateDrops          *prometheus.CounterVec
	HandlerMessages    *prometheus.CounterVec
	HandlerDuration    *prometheus.HistogramVec
}

// NewMetrics registers all metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OperationAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clansync_operation_attempts_total",
			Help: "Service operations started",
		}, []string{"service", "operation"}),
		OperationSuccesses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clansync_operation_successes_total",
			Help: "Service operations that completed without error",
		}, []string{"service", "operation"}),
		OperationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clansync_operation_failures_total",
			Help: "Service operations that returned an error or panicked",
		}, []string{"service", "operation"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clansync_operation_duration_seconds",
			Help:    "Duration of service operations",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120, 600, 1800},
		}, []string{"service", "operation"}),
		MemberEdits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clansync_member_edits_total",
			Help: "Member edits by outcome (applied, dry_run, failed, forbidden)",
		}, []string{"outcome"}),
		GateDrops: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clansync_gate_drops_total",
			Help: "Reconciliation triggers dropped by the dedup gate",
		}, []string{"trigger"}),
		HandlerMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clansync_handler_messages_total",
			Help: "Messages handled by event handlers, by result",
		}, []string{"handler", "result"}),
		HandlerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clansync_handler_duration_seconds",
			Help:    "Duration of event handlers",
			Buckets: prometheus.DefBuckets,
		}, []string{"handler"}),
	}
}

func (m *Metrics) RecordOperationAttempt(_ context.Context, operation, service string) {
	m.OperationAttempts.WithLabelValues(service, operation).Inc()
}

func (m *Metrics) RecordOperationSuccess(_ context.Context, operation, service string) {
	m.OperationSuccesses.WithLabelValues(service, operation).Inc()
}

func (m *Metrics) RecordOperationFailure(_ context.Context, operation, service string) {
	m.OperationFailures.WithLabelValues(service, operation).Inc()
}

func (m *Metrics) RecordOperationDuration(_ context.Context, operation, service string, duration time.Duration) {
	m.OperationDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

func (m *Metrics) RecordMemberEdit(_ context.Context, outcome string) {
	m.MemberEdits.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordGateDrop(_ context.Context, trigger string) {
	m.GateDrops.WithLabelValues(trigger).Inc()
}

func (m *Metrics) RecordHandlerResult(_ context.Context, handler, result string, duration time.Duration) {
	m.HandlerMessages.WithLabelValues(handler, result).Inc()
	m.HandlerDuration.WithLabelValues(handler).Observe(duration.Seconds())
}
