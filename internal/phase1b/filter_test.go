package phase1b

import (
	"math"
	"testing"
	"time"
)

func TestVolatilityMetricsFor_DefaultsBeforeTwentyReturns(t *testing.T) {
	f := NewFilter(0)
	now := time.Now()

	price := 100.0
	for i := 0; i < 15; i++ {
		price += 1
		f.OnPrice("BTC-USD", price, now.Add(time.Duration(i)*time.Minute))
	}

	vm := f.VolatilityMetricsFor("BTC-USD", now)
	if vm.RegimeStability != 0.7 {
		t.Errorf("expected the default RegimeStability of 0.7 with fewer than 20 returns, got %f", vm.RegimeStability)
	}
	if vm.CurrentVolatility != 0 || vm.VolatilityPercentile != 0 {
		t.Errorf("expected all other fields to remain zero-valued, got %+v", vm)
	}
}

func TestVolatilityMetricsFor_PopulatesAfterTwentyReturns(t *testing.T) {
	f := NewFilter(0)
	now := time.Now()

	price := 100.0
	for i := 0; i < 40; i++ {
		if i%2 == 0 {
			price *= 1.01
		} else {
			price *= 0.995
		}
		f.OnPrice("ETH-USD", price, now.Add(time.Duration(i)*time.Minute))
	}

	vm := f.VolatilityMetricsFor("ETH-USD", now)
	if vm.CurrentVolatility <= 0 {
		t.Errorf("expected a positive current volatility with 40 ticks of movement, got %f", vm.CurrentVolatility)
	}
	if vm.CurrentVolatility > 1 || vm.VolatilityPercentile > 1 || vm.RegimeStability > 1 {
		t.Errorf("all clamp01 outputs must stay within [0,1], got %+v", vm)
	}
}

func TestSignalContinuityFor_DefaultsWithNoDecisionHistory(t *testing.T) {
	f := NewFilter(0)
	sc := f.SignalContinuityFor("BTC-USD")
	if sc.SignalPersistence != 0.5 || sc.ConsensusStrength != 0.5 {
		t.Errorf("expected neutral 0.5 defaults before any gate decision, got %+v", sc)
	}
}

func TestApplyGate_RecordsDecisionHistoryAndAffectsContinuity(t *testing.T) {
	f := NewFilter(0.6)
	vm := VolatilityMetrics{RegimeStability: 1.0, CurrentVolatility: 0, VolatilityTrend: 0}

	for i := 0; i < 5; i++ {
		f.ApplyGate("BTC-USD", 0.9, vm)
	}

	sc := f.SignalContinuityFor("BTC-USD")
	if sc.SignalPersistence != 1.0 {
		t.Errorf("five consecutive passing decisions should yield persistence 1.0, got %f", sc.SignalPersistence)
	}
}

func TestApplyGate_DropsBelowConfidenceGate(t *testing.T) {
	f := NewFilter(0.9)
	vm := VolatilityMetrics{RegimeStability: 0, CurrentVolatility: 1.0, VolatilityTrend: 1.0}

	adj := f.ApplyGate("BTC-USD", 0.5, vm)
	if adj.Passed {
		t.Errorf("a low confidence combined with a damped regime factor must fail the 0.9 gate, got %+v", adj)
	}
}

func TestRegimeFactor_StaysWithinDocumentedBounds(t *testing.T) {
	calm := VolatilityMetrics{RegimeStability: 1.0, CurrentVolatility: 0, VolatilityTrend: 0}
	choppy := VolatilityMetrics{RegimeStability: 0, CurrentVolatility: 1.0, VolatilityTrend: 1.0}

	if f := regimeFactor(calm); math.Abs(f-1.25) > 1e-9 {
		t.Errorf("a maximally calm regime should hit the 1.25 ceiling, got %f", f)
	}
	if f := regimeFactor(choppy); f != 0.7 {
		t.Errorf("a maximally choppy regime should hit the 0.7 floor, got %f", f)
	}
}
