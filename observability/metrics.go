package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"clearhold/core/events"
	"clearhold/native/escrow"
	"clearhold/native/multisig"
)

// LedgerMetrics records escrow and governance activity for Prometheus
// scraping.
type LedgerMetrics struct {
	escrowsCreated     prometheus.Counter
	milestonesReleased prometheus.Counter
	releaseVolume      prometheus.Counter
	disputesFiled      prometheus.Counter
	proposalsExecuted  prometheus.Counter
	rpcRequests        *prometheus.CounterVec
	rpcLatency         *prometheus.HistogramVec
}

var (
	ledgerMetricsOnce sync.Once
	ledgerRegistry    *LedgerMetrics
)

// LedgerMetricsRegistry returns the lazily-initialised process-wide metrics
// registry.
func LedgerMetricsRegistry() *LedgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			escrowsCreated: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "clearhold",
				Subsystem: "escrow",
				Name:      "created_total",
				Help:      "Total escrows created.",
			}),
			milestonesReleased: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "clearhold",
				Subsystem: "escrow",
				Name:      "milestones_released_total",
				Help:      "Total milestone fund releases.",
			}),
			releaseVolume: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "clearhold",
				Subsystem: "escrow",
				Name:      "release_volume_base_units",
				Help:      "Cumulative released amount in token base units.",
			}),
			disputesFiled: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "clearhold",
				Subsystem: "escrow",
				Name:      "disputes_total",
				Help:      "Total milestone disputes filed.",
			}),
			proposalsExecuted: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "clearhold",
				Subsystem: "multisig",
				Name:      "proposals_executed_total",
				Help:      "Total governance proposals executed.",
			}),
			rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "clearhold",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			rpcLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "clearhold",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
		}
		prometheus.MustRegister(
			ledgerRegistry.escrowsCreated,
			ledgerRegistry.milestonesReleased,
			ledgerRegistry.releaseVolume,
			ledgerRegistry.disputesFiled,
			ledgerRegistry.proposalsExecuted,
			ledgerRegistry.rpcRequests,
			ledgerRegistry.rpcLatency,
		)
	})
	return ledgerRegistry
}

// AddReleaseVolume records released base units. Callers convert the big.Int
// amount; precision loss above 2^53 only affects the gauge, not the ledger.
func (m *LedgerMetrics) AddReleaseVolume(units float64) {
	if m == nil || units <= 0 {
		return
	}
	m.releaseVolume.Add(units)
}

// ObserveRPC records a completed RPC call.
func (m *LedgerMetrics) ObserveRPC(method, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.rpcRequests.WithLabelValues(method, outcome).Inc()
	m.rpcLatency.WithLabelValues(method).Observe(seconds)
}

// EmitterHook wraps an events.Emitter and bumps counters as engine events
// flow through it.
type EmitterHook struct {
	next    events.Emitter
	metrics *LedgerMetrics
}

// NewEmitterHook decorates the emitter with metric recording. A nil next
// emitter discards events after counting.
func NewEmitterHook(next events.Emitter, metrics *LedgerMetrics) *EmitterHook {
	if next == nil {
		next = events.NoopEmitter{}
	}
	return &EmitterHook{next: next, metrics: metrics}
}

// Emit implements the events.Emitter interface.
func (h *EmitterHook) Emit(evt events.Event) {
	if h == nil {
		return
	}
	if h.metrics != nil {
		switch evt.EventType() {
		case escrow.EventTypeCreated:
			h.metrics.escrowsCreated.Inc()
		case escrow.EventTypeMilestoneReleased:
			h.metrics.milestonesReleased.Inc()
		case escrow.EventTypeMilestoneDisputed:
			h.metrics.disputesFiled.Inc()
		case multisig.EventTypeProposalExecuted:
			h.metrics.proposalsExecuted.Inc()
		}
	}
	h.next.Emit(evt)
}
