package uscp

import "time"

// regimePreference maps a market regime to the sources it favors and the
// multiplier applied to their confidence (§4.6 L1 re-weighting table).
var regimePreference = map[string]struct {
	sources    map[string]bool
	multiplier float64
}{
	"trending": {sources: setOf2("phase1b", "phase1a"), multiplier: 1.1},
	"ranging":  {sources: setOf2("ite", "indicators"), multiplier: 1.15},
	"volatile": {sources: setOf2("phase1a", "phase1b"), multiplier: 1.25},
}

func setOf2(a, b string) map[string]bool { return map[string]bool{a: true, b: true} }

// regimeWeightedConfidence applies the source-contribution weight and the
// regime-preference multiplier to a raw signal's confidence.
func regimeWeightedConfidence(sig RawSignal, regime string, sourceWeight float64) float64 {
	confidence := sig.Confidence * sourceWeight
	if pref, ok := regimePreference[regime]; ok && pref.sources[sig.Source] {
		confidence *= pref.multiplier
	}
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}

// ScoreInputs bundles the context the 7-D scoring function needs beyond the
// raw signal itself.
type ScoreInputs struct {
	BTCCorrelation     float64
	SentimentAlignment float64
	Volume24h          float64
	OrderbookDepth     float64
	SessionRegion      string // "asian", "american", "other"
	HistoricalAccuracy float64
}

// sevenDimensionalScore computes the weighted composite and AI enhancement
// term per §4.6.
func sevenDimensionalScore(sig RawSignal, weightedConfidence float64, in ScoreInputs, weights IndicatorDimensionWeights) SevenDimensionalScore {
	dataQuality := meanOf3(1.0, clamp01(sig.SecondaryMetric), boolToFloat(sig.Strength >= 0 && sig.Strength <= 1))
	marketConsistency := (in.BTCCorrelation + in.SentimentAlignment) / 2

	timeEffect := 0.8
	switch {
	case sig.Source == "indicators" && in.SessionRegion == "asian":
		timeEffect = 1.0
	case sig.Source == "phase1a" && sig.SignalType == "VOLUME_SURGE" && in.SessionRegion == "american":
		timeEffect = 1.0
	}

	liquidityFactor := 0.0
	if in.OrderbookDepth > 0 {
		liquidityFactor = clamp01(in.Volume24h / in.OrderbookDepth / 10000)
	}
	if liquidityFactor < 0.3 {
		liquidityFactor *= 0.8
	}

	historicalAccuracy := in.HistoricalAccuracy
	accuracyFactor := 1.0
	switch {
	case historicalAccuracy > 0.8:
		accuracyFactor = 1.15
	case historicalAccuracy < 0.6:
		accuracyFactor = 0.75
	}
	historicalAccuracy = clamp01(historicalAccuracy * accuracyFactor)

	composite := sig.Strength*weights.SignalStrength +
		weightedConfidence*weights.Confidence +
		dataQuality*weights.DataQuality +
		marketConsistency*weights.MarketConsistency +
		timeEffect*weights.TimeEffect +
		liquidityFactor*weights.LiquidityFactor +
		historicalAccuracy*weights.HistoricalAccuracy

	var aiEnhancement float64
	switch {
	case sig.Strength > 0.8 && weightedConfidence > 0.8:
		aiEnhancement = 0.1
	case sig.Strength < 0.4 || weightedConfidence < 0.4:
		aiEnhancement = -0.1
	}

	composite = clamp01(composite + aiEnhancement)

	return SevenDimensionalScore{
		SignalStrength:     sig.Strength,
		Confidence:         weightedConfidence,
		DataQuality:        dataQuality,
		MarketConsistency:  marketConsistency,
		TimeEffect:         timeEffect,
		LiquidityFactor:    liquidityFactor,
		HistoricalAccuracy: historicalAccuracy,
		AIEnhancement:      aiEnhancement,
		Composite:          composite,
	}
}

// IndicatorDimensionWeights holds the 7-D scoring weights (§4.6 defaults).
type IndicatorDimensionWeights struct {
	SignalStrength     float64
	Confidence         float64
	DataQuality        float64
	MarketConsistency  float64
	TimeEffect         float64
	LiquidityFactor    float64
	HistoricalAccuracy float64
}

// DefaultDimensionWeights returns the spec's default 7-D weighting.
func DefaultDimensionWeights() IndicatorDimensionWeights {
	return IndicatorDimensionWeights{
		SignalStrength:     0.25,
		Confidence:         0.20,
		DataQuality:        0.15,
		MarketConsistency:  0.12,
		TimeEffect:         0.10,
		LiquidityFactor:    0.10,
		HistoricalAccuracy: 0.08,
	}
}

func meanOf3(a, b, c float64) float64 { return (a + b + c) / 3 }

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// sessionRegionFor maps a wall-clock time to the coarse session tag the
// time_effect dimension keys off of. UTC hours 0-8 are treated as Asian
// session, 13-21 as American session, the rest as neutral.
func sessionRegionFor(t time.Time) string {
	h := t.UTC().Hour()
	switch {
	case h >= 0 && h < 8:
		return "asian"
	case h >= 13 && h < 21:
		return "american"
	default:
		return "other"
	}
}
