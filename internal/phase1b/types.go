// Package phase1b implements the Phase-1B Volatility Filter (C5): computes
// volatility and signal-continuity metrics, then re-weights and gates
// inbound signal confidence by the current volatility regime.
package phase1b

import "time"

// VolatilityMetrics is the per-symbol volatility snapshot (§4.5).
type VolatilityMetrics struct {
	Symbol              string
	CurrentVolatility   float64 // [0,1]
	VolatilityTrend     float64 // [-1,1]
	VolatilityPercentile float64 // [0,1]
	RegimeStability     float64 // [0,1]
	MicroVolatility     float64 // [0,1]
	IntradayVolatility  float64 // [0,1]
	ComputedAt          time.Time
}

// SignalContinuityMetrics tracks how consistently upstream signals agree
// over time (§4.5).
type SignalContinuityMetrics struct {
	Symbol                  string
	SignalPersistence       float64 // [0,1]
	SignalDivergence        float64 // [0,1]
	ConsensusStrength       float64 // [0,1]
	TemporalConsistency     float64 // [0,1]
	CrossModuleCorrelation  float64 // [0,1]
	SignalDecayRate         float64 // [0,1]
}

// Adjustment is the result of filtering one inbound signal's confidence
// through the current volatility regime.
type Adjustment struct {
	OriginalConfidence float64
	AdjustedConfidence float64
	RegimeFactor       float64
	Passed             bool
}
