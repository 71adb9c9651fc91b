// Package uscp implements the Unified Signal Candidate Pool (C6): fuses
// upstream signal streams, scores them along seven dimensions with a
// learned per-source weight, de-duplicates, and emits a ranked, capped
// candidate list formatted for downstream execution-policy consumption.
package uscp

import "time"

// RawSignal is the common shape every upstream source (C3, C4, C5, and the
// indicator-driven detectors) is normalized into before L1 fusion.
type RawSignal struct {
	Symbol       string
	SignalType   string // e.g. PRICE_BREAKOUT, RSI, VOLATILITY_BREAKOUT
	Source       string // phase1a, indicators, phase1b, phase1c, ite
	Strength     float64
	Confidence   float64
	SecondaryMetric float64 // quality / stability / tier-weight, validator-specific
	ObservedAt   time.Time
}

// SevenDimensionalScore holds each scoring dimension plus the AI
// enhancement term (§4.6).
type SevenDimensionalScore struct {
	SignalStrength     float64
	Confidence         float64
	DataQuality        float64
	MarketConsistency  float64
	TimeEffect         float64
	LiquidityFactor    float64
	HistoricalAccuracy float64
	AIEnhancement      float64 // [-0.1, +0.1]
	Composite          float64
}

// ExecutionPriority is 1 (highest) .. 5 (lowest).
type ExecutionPriority int

// StandardizedSignal is the public output record (§3).
type StandardizedSignal struct {
	SignalID           string
	Symbol             string
	SignalType         string
	SignalStrength     float64 // [0,1]
	Confidence         float64 // [0,1]
	Source             string
	EPLPassProbability float64 // [0,1]
	MarketContext      string
	ProcessingMetadata map[string]interface{}
	RiskAssessment     float64 // [0,1]
	ExecutionPriority  ExecutionPriority
	SuggestedSizing    float64 // (0, 0.1]
	StopLoss           float64
	TakeProfit         [3]float64
	CreatedAt          time.Time
	ExpiresAt          time.Time

	Score         SevenDimensionalScore
	FastTrack     bool
	EmergencyFlag bool
}

// MarketRegimeState is refreshed once per L0 sub-layer pass.
type MarketRegimeState struct {
	Regime           string // "trending", "ranging", "volatile"
	IsExtremeMarket  bool
	FiveMinChangePct float64
	VolumeSurgeRatio float64
	SyncedAt         time.Time
}

// EPLDecision is one feedback record from the execution policy layer (§6).
type EPLDecision struct {
	SignalID        string
	SignalSource    string
	EPLPassed       bool
	FinalPerformance float64
	Timestamp       time.Time
}

// PerformanceReport is returned by get_performance_report().
type PerformanceReport struct {
	TotalCandidatesEmitted int
	TotalDeduped           int
	TotalDropped           int
	SourceWeights          map[string]float64
	SourceAccuracy         map[string]float64
	LastRelearnAt          time.Time
}
