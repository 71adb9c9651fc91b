package uscp

// validator gates a raw signal at L1 entry by its source's required type
// tags and a minimum secondary metric (§4.6 "Signal-type validators").
type validator struct {
	requiredTypes map[string]bool
	minSecondary  float64
}

var validatorsBySource = map[string]validator{
	"phase1a": {
		requiredTypes: setOf("PRICE_BREAKOUT", "VOLUME_SURGE", "MOMENTUM_SHIFT", "EXTREME_EVENT"),
		minSecondary:  0.6, // quality
	},
	"indicators": {
		requiredTypes: setOf("RSI", "MACD", "BB", "Volume"),
		minSecondary:  0.65, // confidence, checked separately too
	},
	"phase1b": {
		requiredTypes: setOf("VOLATILITY_BREAKOUT", "REGIME_CHANGE", "MEAN_REVERSION"),
		minSecondary:  0.7, // stability
	},
	"phase1c": {
		requiredTypes: setOf("LIQUIDITY_SHOCK", "INSTITUTIONAL_FLOW", "SENTIMENT_DIVERGENCE", "LIQUIDITY_REGIME_CHANGE"),
		minSecondary:  0, // tier membership checked via SecondaryMetric encoding below
	},
}

func setOf(values ...string) map[string]bool {
	s := make(map[string]bool, len(values))
	for _, v := range values {
		s[v] = true
	}
	return s
}

// tierCriticalOrImportant encodes phase1c's {critical, important} tier gate
// as a numeric floor: callers populate RawSignal.SecondaryMetric with 1.0
// for critical, 0.7 for important, 0 otherwise.
const tierImportantFloor = 0.7

// validate reports whether a raw signal passes its source's L1 gate, and
// whether strength is within the universal [0,1] bound.
func validate(sig RawSignal) bool {
	if sig.Strength < 0 || sig.Strength > 1 {
		return false
	}
	v, ok := validatorsBySource[sig.Source]
	if !ok {
		return false
	}
	if !v.requiredTypes[sig.SignalType] {
		return false
	}
	switch sig.Source {
	case "indicators":
		return sig.Confidence >= v.minSecondary
	case "phase1c":
		return sig.SecondaryMetric >= tierImportantFloor
	default:
		return sig.SecondaryMetric >= v.minSecondary
	}
}
