package ite

import "github.com/sawpanic/signalcore/internal/config"

// baseWinRate gives each trigger type's historical base rate (§4.3).
var baseWinRate = map[TriggerType]float64{
	TriggerMomentum1m:    0.65,
	TriggerMomentum5m:    0.72,
	TriggerMomentum15m:   0.58,
	TriggerConvergence:   0.78,
	TriggerVolumeConfirm: 0.62,
	TriggerSupportResist: 0.70,
	TriggerPeriodic:      0.50,
}

// predictWinRate adjusts a trigger type's base rate by confidence and
// overall convergence, clamped to [0.30, 0.95].
func predictWinRate(t TriggerType, confidence, overallConvergence float64) (winRate, ciHalfWidth float64) {
	base, ok := baseWinRate[t]
	if !ok {
		base = 0.5
	}
	winRate = base + (confidence-0.5)*0.2 + overallConvergence*0.15
	if winRate < 0.30 {
		winRate = 0.30
	}
	if winRate > 0.95 {
		winRate = 0.95
	}
	ciHalfWidth = 0.1 * (1 - confidence)
	return winRate, ciHalfWidth
}

// classify assigns the three-band verdict from §4.3.
func classify(cfg config.Classifier, winRate, confidence float64) Classification {
	if winRate >= cfg.HighPriorityWinRateThreshold && confidence >= cfg.HighPriorityMinConfidence {
		return ClassHighPriority
	}
	if winRate >= cfg.ObservationWinRateRange[0] && winRate <= cfg.ObservationWinRateRange[1] && confidence >= 0.60 {
		return ClassObservation
	}
	if winRate >= 0.40 {
		return ClassLowPriority
	}
	return ClassNone
}

// assessRisk computes the base-plus-penalties risk score (§4.3). Penalties
// are intentionally coarse: the engine has no dedicated risk model, so it
// leans on volatility and liquidity proxies already available from the
// indicator state and trigger context.
func assessRisk(volatility, liquidityRatio float64, t TriggerType) (score float64, dims map[string]float64) {
	base := 0.5
	volPenalty := clamp01(volatility) * 0.2
	liqPenalty := (1 - clamp01(liquidityRatio)) * 0.15

	var typeAdj float64
	switch t {
	case TriggerMomentum15m, TriggerPeriodic:
		typeAdj = 0.05
	case TriggerConvergence, TriggerSupportResist:
		typeAdj = -0.05
	}

	score = base + volPenalty + liqPenalty + typeAdj
	if score < 0.1 {
		score = 0.1
	}
	if score > 0.9 {
		score = 0.9
	}

	dims = map[string]float64{
		"base":          base,
		"volatility":    volPenalty,
		"liquidity":     liqPenalty,
		"type_adjust":   typeAdj,
	}
	return score, dims
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
