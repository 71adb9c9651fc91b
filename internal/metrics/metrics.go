// Package metrics centralizes the Prometheus registry shared across the
// core's pipeline stages: MDD stage latency, USCP sub-layer budgets, and
// the dropped-signal/anomaly counters the error taxonomy requires.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry holds every metric the core publishes.
type Registry struct {
	MDDStageLatency  *prometheus.HistogramVec
	MDDBudgetBreach  *prometheus.CounterVec
	MDDDroppedTicks  prometheus.Counter
	MDDBufferOccupancy prometheus.Gauge

	OPCRPCFailures  *prometheus.CounterVec
	OPCFailoverState *prometheus.GaugeVec

	USCPPassLatency  *prometheus.HistogramVec
	USCPDropped      *prometheus.CounterVec
	USCPDeduped      prometheus.Counter
	USCPEmitted      prometheus.Counter

	AnomalyCount *prometheus.CounterVec
}

// NewRegistry builds every metric with the signalcore_ namespace prefix.
func NewRegistry() *Registry {
	return &Registry{
		MDDStageLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalcore_mdd_stage_duration_seconds",
				Help:    "Duration of each market-data-driver pipeline stage",
				Buckets: []float64{0.0005, 0.001, 0.002, 0.003, 0.005, 0.01, 0.02, 0.05},
			},
			[]string{"stage"},
		),
		MDDBudgetBreach: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalcore_mdd_budget_breach_total",
				Help: "Count of stage-latency budget breaches by stage",
			},
			[]string{"stage"},
		),
		MDDDroppedTicks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "signalcore_mdd_dropped_ticks_total",
				Help: "Ticks dropped from the ring buffer on overflow",
			},
		),
		MDDBufferOccupancy: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "signalcore_mdd_buffer_occupancy_ratio",
				Help: "Current ring buffer occupancy as a fraction of capacity",
			},
		),
		OPCRPCFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalcore_opc_rpc_failures_total",
				Help: "RPC read failures by symbol",
			},
			[]string{"symbol"},
		),
		OPCFailoverState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signalcore_opc_failover_state",
				Help: "1 if the symbol is in FALLBACK, 0 if ONCHAIN_PRIMARY",
			},
			[]string{"symbol"},
		),
		USCPPassLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalcore_uscp_pass_duration_seconds",
				Help:    "Duration of each USCP scoring sub-layer",
				Buckets: []float64{0.001, 0.002, 0.003, 0.005, 0.008, 0.012, 0.02, 0.028, 0.05},
			},
			[]string{"sublayer"},
		),
		USCPDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalcore_uscp_dropped_total",
				Help: "Candidates dropped by reason",
			},
			[]string{"reason"},
		),
		USCPDeduped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "signalcore_uscp_deduped_total",
				Help: "Candidates removed by de-duplication",
			},
		),
		USCPEmitted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "signalcore_uscp_emitted_total",
				Help: "Candidates emitted after the full pipeline",
			},
		),
		AnomalyCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalcore_anomaly_total",
				Help: "Flagged data anomalies by type",
			},
			[]string{"anomaly_type"},
		),
	}
}

// MustRegister registers every metric against the given registerer,
// panicking on a duplicate registration (a programmer error, not a runtime
// condition).
func (r *Registry) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		r.MDDStageLatency, r.MDDBudgetBreach, r.MDDDroppedTicks, r.MDDBufferOccupancy,
		r.OPCRPCFailures, r.OPCFailoverState,
		r.USCPPassLatency, r.USCPDropped, r.USCPDeduped, r.USCPEmitted,
		r.AnomalyCount,
	)
}
