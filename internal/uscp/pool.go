package uscp

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sawpanic/signalcore/internal/config"
	"github.com/sawpanic/signalcore/internal/logging"
)

// SourceCollector gathers the raw signals one upstream source currently has
// available for a symbol. C3/C4/C5/indicator adapters each implement this.
type SourceCollector interface {
	Name() string
	Collect(symbol string) []RawSignal
}

// MarketContext supplies the data L0/L1 need beyond the raw signals
// themselves: regime classification and the scoring side-inputs.
type MarketContext interface {
	RegimeState(symbol string) MarketRegimeState
	ScoreInputs(symbol string) ScoreInputs
}

// Pool implements the Unified Signal Candidate Pool (C6).
type Pool struct {
	cfg        config.USCP
	weights    IndicatorDimensionWeights
	collectors []SourceCollector
	market     MarketContext
	learner    *Learner
	log        zerolog.Logger

	mu          sync.RWMutex
	bySymbol    map[string][]StandardizedSignal
	totalEmitted int
	totalDeduped int
	totalDropped int

	priceLookup func(symbol string) (float64, bool)
}

func NewPool(cfg config.USCP, collectors []SourceCollector, market MarketContext) *Pool {
	return &Pool{
		cfg:        cfg,
		weights:    DefaultDimensionWeights(),
		collectors: collectors,
		market:     market,
		learner:    NewLearner(),
		log:        logging.Component("uscp.pool"),
		bySymbol:   make(map[string][]StandardizedSignal),
	}
}

// SetPriceLookup wires a live reference-price source used to anchor
// stop-loss/take-profit levels. Without one, formatStandardized falls back
// to a neutral unit price.
func (p *Pool) SetPriceLookup(lookup func(symbol string) (float64, bool)) {
	p.priceLookup = lookup
}

// GenerateCandidates runs the full L0→L-AI pipeline for one symbol, within
// the 28ms per-pass budget (logged, never aborted, on breach).
func (p *Pool) GenerateCandidates(symbol string) []StandardizedSignal {
	start := time.Now()
	budget := time.Duration(p.cfg.PerPassBudgetMS) * time.Millisecond

	regime := p.l0Synchronize(symbol)
	fused := p.l1Fusion(symbol, regime)
	candidates := p.l2EPLPreprocessing(symbol, fused, regime)
	candidates = p.lAIAdaptiveLearning(candidates)

	p.mu.Lock()
	p.bySymbol[symbol] = candidates
	p.totalEmitted += len(candidates)
	p.mu.Unlock()

	if elapsed := time.Since(start); elapsed > budget {
		p.log.Warn().Str("symbol", symbol).Dur("elapsed", elapsed).Dur("budget", budget).Msg("uscp pass exceeded budget")
	}
	return candidates
}

// l0Synchronize takes a unified timestamp and refreshes the regime state;
// extreme-market flagging lives on MarketContext, computed once per pass.
func (p *Pool) l0Synchronize(symbol string) MarketRegimeState {
	if p.market == nil {
		return MarketRegimeState{Regime: "ranging", SyncedAt: time.Now()}
	}
	return p.market.RegimeState(symbol)
}

// l1Fusion collects from every source in parallel, validates, and
// re-weights confidence by source contribution × regime preference.
func (p *Pool) l1Fusion(symbol string, regime MarketRegimeState) []RawSignal {
	type collected struct {
		sigs []RawSignal
	}
	results := make([]collected, len(p.collectors))

	var wg sync.WaitGroup
	for i, c := range p.collectors {
		wg.Add(1)
		go func(i int, c SourceCollector) {
			defer wg.Done()
			results[i] = collected{sigs: c.Collect(symbol)}
		}(i, c)
	}
	wg.Wait()

	var fused []RawSignal
	for _, r := range results {
		for _, sig := range r.sigs {
			if !validate(sig) {
				p.mu.Lock()
				p.totalDropped++
				p.mu.Unlock()
				continue
			}
			weight := p.learner.WeightFor(sig.Source)
			sig.Confidence = regimeWeightedConfidence(sig, regime.Regime, weight)
			fused = append(fused, sig)
		}
	}
	return fused
}

// l2EPLPreprocessing drops low-EPL-probability signals, dedups, caps per
// symbol, enforces the minimum composite score, and formats the survivors
// as StandardizedSignal, flagging emergency fast-track in extreme markets.
func (p *Pool) l2EPLPreprocessing(symbol string, fused []RawSignal, regime MarketRegimeState) []StandardizedSignal {
	now := time.Now()
	inputs := ScoreInputs{SessionRegion: sessionRegionFor(now)}
	if p.market != nil {
		inputs = p.market.ScoreInputs(symbol)
		inputs.SessionRegion = sessionRegionFor(now)
	}

	candidates := make([]StandardizedSignal, 0, len(fused))
	for _, sig := range fused {
		inputs.HistoricalAccuracy = p.learner.AccuracyFor(sig.Source)
		score := sevenDimensionalScore(sig, sig.Confidence, inputs, p.weights)

		eplProb := estimateEPLPassProbability(score)
		if eplProb < p.cfg.EPLPassProbability {
			p.mu.Lock()
			p.totalDropped++
			p.mu.Unlock()
			continue
		}
		if score.Composite < p.cfg.MinCompositeScore {
			p.mu.Lock()
			p.totalDropped++
			p.mu.Unlock()
			continue
		}

		entry := 1.0
		if p.priceLookup != nil {
			if px, ok := p.priceLookup(symbol); ok && px > 0 {
				entry = px
			}
		}
		candidates = append(candidates, formatStandardized(symbol, sig, score, eplProb, regime, now, entry))
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].CreatedAt.Before(candidates[j].CreatedAt) })
	window := time.Duration(p.cfg.DedupWindowSeconds) * time.Second
	deduped, dedupCount := deduplicate(candidates, window, p.cfg.DedupSimThreshold)

	p.mu.Lock()
	p.totalDeduped += dedupCount
	p.mu.Unlock()

	sort.Slice(deduped, func(i, j int) bool { return deduped[i].Score.Composite > deduped[j].Score.Composite })
	if len(deduped) > p.cfg.MaxPerSymbol {
		dropped := len(deduped) - p.cfg.MaxPerSymbol
		p.mu.Lock()
		p.totalDropped += dropped
		p.mu.Unlock()
		deduped = deduped[:p.cfg.MaxPerSymbol]
	}
	return deduped
}

// lAIAdaptiveLearning finalizes confidence using the current learner
// snapshot; the relearn trigger itself runs inside LearnFromEPLFeedback so
// a scoring pass always sees a consistent weight snapshot (§5 concurrency
// policy).
func (p *Pool) lAIAdaptiveLearning(candidates []StandardizedSignal) []StandardizedSignal {
	for i := range candidates {
		candidates[i].Confidence = clamp01(candidates[i].Confidence)
	}
	return candidates
}

// estimateEPLPassProbability derives a pass-probability estimate from the
// composite score; the learner's finer-grained accuracy adjustment has
// already influenced the composite by this point.
func estimateEPLPassProbability(score SevenDimensionalScore) float64 {
	return clamp01(0.3 + score.Composite*0.7)
}

func formatStandardized(symbol string, sig RawSignal, score SevenDimensionalScore, eplProb float64, regime MarketRegimeState, now time.Time, entry float64) StandardizedSignal {
	priority := executionPriorityFor(score.Composite)
	sizing := suggestedSizing(score.Composite, score.HistoricalAccuracy)
	stopLoss, targets := stopsAndTargets(entry, sig.Strength)

	fastTrack := regime.IsExtremeMarket && (sig.Strength >= 0.8 || priority <= 2)

	return StandardizedSignal{
		SignalID:           uuid.NewString(),
		Symbol:             symbol,
		SignalType:         sig.SignalType,
		SignalStrength:     sig.Strength,
		Confidence:         score.Confidence,
		Source:             sig.Source,
		EPLPassProbability: eplProb,
		MarketContext:      regime.Regime,
		ProcessingMetadata: map[string]interface{}{
			"data_quality":        score.DataQuality,
			"market_consistency":  score.MarketConsistency,
			"time_effect":         score.TimeEffect,
			"liquidity_factor":    score.LiquidityFactor,
			"historical_accuracy": score.HistoricalAccuracy,
			"ai_enhancement":      score.AIEnhancement,
		},
		RiskAssessment:    1 - clamp01(score.Composite),
		ExecutionPriority: priority,
		SuggestedSizing:   sizing,
		StopLoss:          stopLoss,
		TakeProfit:        targets,
		CreatedAt:         now,
		ExpiresAt:         now.Add(15 * time.Minute),
		Score:             score,
		FastTrack:         fastTrack,
		EmergencyFlag:     fastTrack,
	}
}

func executionPriorityFor(composite float64) ExecutionPriority {
	switch {
	case composite >= 0.9:
		return 1
	case composite >= 0.8:
		return 2
	case composite >= 0.7:
		return 3
	case composite >= 0.6:
		return 4
	default:
		return 5
	}
}

func suggestedSizing(composite, historicalAccuracy float64) float64 {
	sizing := 0.1 * clamp01(composite) * (0.5 + 0.5*clamp01(historicalAccuracy))
	if sizing <= 0 {
		sizing = 0.001
	}
	if sizing > 0.1 {
		sizing = 0.1
	}
	return sizing
}

// stopsAndTargets derives a stop-loss and an ordered take-profit triple
// from a reference entry price scaled by signal strength.
func stopsAndTargets(entry, strength float64) (stopLoss float64, targets [3]float64) {
	stopDistance := 0.01 + 0.02*(1-strength)
	stopLoss = entry * (1 - stopDistance)
	targets = [3]float64{
		entry * (1 + stopDistance*1.5),
		entry * (1 + stopDistance*2.5),
		entry * (1 + stopDistance*4.0),
	}
	return stopLoss, targets
}

// LearnFromEPLFeedback feeds a batch of EPL decisions into the learner.
func (p *Pool) LearnFromEPLFeedback(decisions []EPLDecision) {
	p.learner.LearnFromEPLFeedback(decisions, time.Now())
}

// GetPerformanceReport reports pool-wide counters plus the learner's
// current per-source weight and accuracy snapshot (the supplemented
// "per-source contribution snapshot" feature).
func (p *Pool) GetPerformanceReport() PerformanceReport {
	p.mu.RLock()
	emitted, deduped, dropped := p.totalEmitted, p.totalDeduped, p.totalDropped
	p.mu.RUnlock()

	weights, accuracy, lastRelearn := p.learner.Snapshot()
	return PerformanceReport{
		TotalCandidatesEmitted: emitted,
		TotalDeduped:           deduped,
		TotalDropped:           dropped,
		SourceWeights:          weights,
		SourceAccuracy:         accuracy,
		LastRelearnAt:          lastRelearn,
	}
}

// GetCandidatesForSymbol returns the most recent generate_candidates result
// held for one symbol.
func (p *Pool) GetCandidatesForSymbol(symbol string) []StandardizedSignal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]StandardizedSignal(nil), p.bySymbol[symbol]...)
}

// GetCandidatesByPriority returns every currently held candidate across all
// symbols whose execution priority is at least as urgent as minPriority
// (lower number = more urgent).
func (p *Pool) GetCandidatesByPriority(minPriority ExecutionPriority) []StandardizedSignal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []StandardizedSignal
	for _, sigs := range p.bySymbol {
		for _, s := range sigs {
			if s.ExecutionPriority <= minPriority {
				out = append(out, s)
			}
		}
	}
	return out
}

// ClearExpired drops candidates older than maxAge (or past ExpiresAt when
// maxAge is 0), retaining everything else (§8 "clear_expired(0) retains
// only signals with expires_at > now").
func (p *Pool) ClearExpired(maxAge time.Duration) int {
	now := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()

	removed := 0
	for symbol, sigs := range p.bySymbol {
		kept := sigs[:0:0]
		for _, s := range sigs {
			expired := s.ExpiresAt.Before(now) || s.ExpiresAt.Equal(now)
			if maxAge > 0 {
				expired = expired || now.Sub(s.CreatedAt) > maxAge
			}
			if expired {
				removed++
				continue
			}
			kept = append(kept, s)
		}
		p.bySymbol[symbol] = kept
	}
	return removed
}

// RunExpirySweeper is the supplemented background task that periodically
// calls ClearExpired so candidates never linger past expiry between
// explicit generate_candidates calls.
func (p *Pool) RunExpirySweeper(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if n := p.ClearExpired(0); n > 0 {
				p.log.Debug().Int("removed", n).Msg("expiry sweep removed stale candidates")
			}
		}
	}
}
