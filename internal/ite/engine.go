package ite

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sawpanic/signalcore/internal/config"
	"github.com/sawpanic/signalcore/internal/logging"
	"github.com/sawpanic/signalcore/internal/net/ratelimit"
)

// Engine evaluates trigger conditions per symbol as price updates arrive,
// and runs the periodic sweep on its own ticker.
type Engine struct {
	cfg config.Trigger
	log zerolog.Logger

	mu      sync.Mutex
	symbols map[string]*symbolState

	criticalHighLimiter *ratelimit.SlidingHourLimiter
	observationLimiter  *ratelimit.SlidingHourLimiter

	onSignal func(IntelligentSignal)

	cancel func()
}

func NewEngine(cfg config.Trigger, onSignal func(IntelligentSignal)) *Engine {
	return &Engine{
		cfg:                 cfg,
		log:                 logging.Component("ite.engine"),
		symbols:             make(map[string]*symbolState),
		criticalHighLimiter: ratelimit.NewSlidingHourLimiter(cfg.MaxSignalsPerHourHigh, time.Hour, signalHistoryCapacity),
		observationLimiter:  ratelimit.NewSlidingHourLimiter(cfg.MaxSignalsPerHourObserve, time.Hour, signalHistoryCapacity),
		onSignal:            onSignal,
	}
}

func (e *Engine) stateFor(symbol string) *symbolState {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.symbols[symbol]
	if !ok {
		s = newSymbolState()
		e.symbols[symbol] = s
	}
	return s
}

// Start launches the periodic background sweep (§4.3 check 5); the caller
// drives per-tick evaluation directly through OnPriceUpdate.
func (e *Engine) Start(stop <-chan struct{}) {
	interval := time.Duration(e.cfg.ScanIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case now := <-ticker.C:
				e.periodicSweep(now)
			}
		}
	}()
}

// OnPriceUpdate feeds one price tick and evaluates the four realtime
// trigger checks in order (§4.3).
func (e *Engine) OnPriceUpdate(symbol string, price, volume, liquidityRatio float64, at time.Time) {
	s := e.stateFor(symbol)

	s.mu.Lock()
	s.push(price, volume, at)
	ind := s.refreshIndicators(symbol, at, e.cfg.IndicatorWeights)

	change1m, ok1m := s.priceChangeOver(time.Minute)
	change5m, ok5m := s.priceChangeOver(5 * time.Minute)
	change15m, ok15m := s.priceChangeOver(15 * time.Minute)
	s.mu.Unlock()

	if ok1m {
		e.checkMomentum(symbol, TriggerMomentum1m, PriorityHigh, change1m, e.cfg.MomentumThresholds.OneMin, ind, liquidityRatio, at)
	}
	if ok5m {
		e.checkMomentum(symbol, TriggerMomentum5m, PriorityCritical, change5m, e.cfg.MomentumThresholds.FiveMin, ind, liquidityRatio, at)
	}
	if ok15m {
		e.checkMomentum(symbol, TriggerMomentum15m, PriorityMedium, change15m, e.cfg.MomentumThresholds.FifteenMin, ind, liquidityRatio, at)
	}

	if !ind.Ready {
		return
	}

	if ind.OverallConvergence >= e.cfg.ConvergenceScoreThresh {
		e.emit(symbol, TriggerConvergence, PriorityHigh, ind.OverallConvergence, ind, liquidityRatio, at)
	}
	if ind.VolumeRatio >= 2.0 {
		e.emit(symbol, TriggerVolumeConfirm, PriorityMedium, minF(1, ind.VolumeRatio/3), ind, liquidityRatio, at)
	}
	if ind.SRConvergence >= 0.7 {
		e.emit(symbol, TriggerSupportResist, PriorityHigh, ind.SRConvergence, ind, liquidityRatio, at)
	}
}

func (e *Engine) checkMomentum(symbol string, t TriggerType, priority Priority, change, threshold float64, ind IndicatorState, liquidityRatio float64, at time.Time) {
	if threshold == 0 {
		return
	}
	absChange := change
	if absChange < 0 {
		absChange = -absChange
	}
	if absChange < threshold {
		return
	}
	confidence := minF(1, absChange/threshold)
	e.emit(symbol, t, priority, confidence, ind, liquidityRatio, at)
}

// periodicSweep fires the LOW-priority periodic check for every symbol
// whose overall convergence exceeds 0.3 (§4.3 check 5).
func (e *Engine) periodicSweep(at time.Time) {
	e.mu.Lock()
	symbols := make([]string, 0, len(e.symbols))
	for sym := range e.symbols {
		symbols = append(symbols, sym)
	}
	e.mu.Unlock()

	for _, sym := range symbols {
		s := e.stateFor(sym)
		s.mu.Lock()
		ind := s.indicator
		s.mu.Unlock()
		if ind.Ready && ind.OverallConvergence > 0.3 {
			e.emit(sym, TriggerPeriodic, PriorityLow, 0.5, ind, 1.0, at)
		}
	}
}

// emit runs win-rate prediction, classification, risk assessment, and rate
// limiting, then delivers the signal via onSignal if it survives all of
// them.
func (e *Engine) emit(symbol string, t TriggerType, priority Priority, confidence float64, ind IndicatorState, liquidityRatio float64, at time.Time) {
	if !e.rateLimiterFor(priority).Allow(rateLimitKey(symbol, priority), at) {
		e.log.Debug().Str("symbol", symbol).Str("trigger", string(t)).Str("priority", string(priority)).Msg("signal rejected by rate limiter")
		return
	}

	winRate, ci := predictWinRate(t, confidence, ind.OverallConvergence)
	class := classify(e.cfg.Classifier, winRate, confidence)
	if class == ClassNone {
		return
	}

	volatility := 0.0 // the engine has no direct volatility input; C5 refines confidence downstream
	riskScore, riskDims := assessRisk(volatility, liquidityRatio, t)

	sig := IntelligentSignal{
		Symbol:             symbol,
		TriggerType:        t,
		Priority:           priority,
		Confidence:         confidence,
		OverallConvergence: ind.OverallConvergence,
		PredictedWinRate:   winRate,
		ConfidenceInterval: ci,
		Classification:     class,
		RiskScore:          riskScore,
		RiskDimensions:     riskDims,
		EmittedAt:          at,
	}
	if e.onSignal != nil {
		e.onSignal(sig)
	}
}

func (e *Engine) rateLimiterFor(p Priority) *ratelimit.SlidingHourLimiter {
	if p == PriorityCritical || p == PriorityHigh {
		return e.criticalHighLimiter
	}
	return e.observationLimiter
}

func rateLimitKey(symbol string, p Priority) string {
	return fmt.Sprintf("%s:%s", symbol, p)
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
