package ite

import (
	"testing"
	"time"

	"github.com/sawpanic/signalcore/internal/config"
)

func testTriggerConfig() config.Trigger {
	return config.Trigger{
		ScanIntervalSeconds:   1,
		MaxConcurrentTriggers: 10,
		MomentumThresholds: config.MomentumThresholds{
			OneMin: 0.005, FiveMin: 0.02, FifteenMin: 0.05,
		},
		MinimumIndicators:      3,
		ConvergenceScoreThresh: 0.75,
		IndicatorWeights: config.IndicatorWeights{
			RSI: 0.25, MACD: 0.25, BB: 0.20, Volume: 0.15, SR: 0.15,
		},
		Classifier: config.Classifier{
			HighPriorityWinRateThreshold: 0.75,
			HighPriorityMinConfidence:    0.80,
			ObservationWinRateRange:      [2]float64{0.40, 0.75},
		},
		MaxSignalsPerHourHigh:    5,
		MaxSignalsPerHourObserve: 15,
	}
}

func TestOnPriceUpdate_MomentumTriggerFires(t *testing.T) {
	var emitted []IntelligentSignal
	engine := NewEngine(testTriggerConfig(), func(sig IntelligentSignal) {
		emitted = append(emitted, sig)
	})

	base := time.Now()
	engine.OnPriceUpdate("BTC-USD", 50000, 1000, 0.5, base)
	// A 3% move in under a minute clears the one-minute momentum threshold (0.5%).
	engine.OnPriceUpdate("BTC-USD", 51500, 1200, 0.5, base.Add(30*time.Second))

	if len(emitted) == 0 {
		t.Fatal("expected a momentum trigger to fire on a sharp one-minute move")
	}
	found := false
	for _, sig := range emitted {
		if sig.TriggerType == TriggerMomentum1m {
			found = true
			if sig.Confidence <= 0 || sig.Confidence > 1 {
				t.Errorf("confidence must be within (0,1], got %f", sig.Confidence)
			}
		}
	}
	if !found {
		t.Errorf("expected a %s trigger among emitted signals, got %+v", TriggerMomentum1m, emitted)
	}
}

func TestOnPriceUpdate_NoMoveNoTrigger(t *testing.T) {
	var emitted []IntelligentSignal
	engine := NewEngine(testTriggerConfig(), func(sig IntelligentSignal) {
		emitted = append(emitted, sig)
	})

	base := time.Now()
	engine.OnPriceUpdate("ETH-USD", 3000, 500, 0.5, base)
	engine.OnPriceUpdate("ETH-USD", 3000.5, 500, 0.5, base.Add(30*time.Second))

	if len(emitted) != 0 {
		t.Errorf("a negligible price move should not fire any trigger, got %+v", emitted)
	}
}

func TestCheckMomentum_ZeroThresholdDisablesCheck(t *testing.T) {
	var emitted []IntelligentSignal
	cfg := testTriggerConfig()
	cfg.MomentumThresholds.OneMin = 0
	engine := NewEngine(cfg, func(sig IntelligentSignal) { emitted = append(emitted, sig) })

	base := time.Now()
	engine.OnPriceUpdate("BTC-USD", 50000, 1000, 0.5, base)
	engine.OnPriceUpdate("BTC-USD", 60000, 1000, 0.5, base.Add(30*time.Second))

	for _, sig := range emitted {
		if sig.TriggerType == TriggerMomentum1m {
			t.Error("momentum_1m must never fire when its threshold is configured to zero")
		}
	}
}
