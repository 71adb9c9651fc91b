// Package app assembles C1-C6 into a running process: it owns the
// collector adapters that translate each component's native output into
// uscp.RawSignal, and the Core type that wires every subsystem together.
package app

import (
	"math"
	"sync"
	"time"

	"github.com/sawpanic/signalcore/internal/indicators"
	"github.com/sawpanic/signalcore/internal/ite"
	"github.com/sawpanic/signalcore/internal/phase1a"
	"github.com/sawpanic/signalcore/internal/phase1b"
	"github.com/sawpanic/signalcore/internal/uscp"
)

// bufferedSource is the shared drain-on-collect buffer every adapter below
// uses: signals accumulate as upstream components produce them and are
// handed to USCP's next L1 fusion pass, then cleared.
type bufferedSource struct {
	mu   sync.Mutex
	byOn map[string][]uscp.RawSignal
}

func newBufferedSource() *bufferedSource {
	return &bufferedSource{byOn: make(map[string][]uscp.RawSignal)}
}

func (b *bufferedSource) push(symbol string, sig uscp.RawSignal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byOn[symbol] = append(b.byOn[symbol], sig)
}

func (b *bufferedSource) drain(symbol string) []uscp.RawSignal {
	b.mu.Lock()
	defer b.mu.Unlock()
	sigs := b.byOn[symbol]
	delete(b.byOn, symbol)
	return sigs
}

// ITECollector adapts the Intelligent Trigger Engine's callback-style
// output into a pollable uscp.SourceCollector.
type ITECollector struct {
	*bufferedSource
}

func NewITECollector() *ITECollector {
	return &ITECollector{bufferedSource: newBufferedSource()}
}

func (c *ITECollector) Name() string { return "ite" }

func (c *ITECollector) Collect(symbol string) []uscp.RawSignal { return c.drain(symbol) }

// OnIntelligentSignal is wired as the ite.Engine's onSignal callback.
func (c *ITECollector) OnIntelligentSignal(sig ite.IntelligentSignal) {
	c.push(sig.Symbol, uscp.RawSignal{
		Symbol:          sig.Symbol,
		SignalType:      string(sig.TriggerType),
		Source:          "ite",
		Strength:        sig.PredictedWinRate,
		Confidence:      sig.Confidence,
		SecondaryMetric: sig.OverallConvergence,
		ObservedAt:      sig.EmittedAt,
	})
}

// Phase1ACollector drives phase1a.Generator from raw ticks and buffers its
// detector output.
type Phase1ACollector struct {
	*bufferedSource
	gen *phase1a.Generator
}

func NewPhase1ACollector() *Phase1ACollector {
	return &Phase1ACollector{bufferedSource: newBufferedSource(), gen: phase1a.NewGenerator()}
}

func (c *Phase1ACollector) Name() string { return "phase1a" }

func (c *Phase1ACollector) Collect(symbol string) []uscp.RawSignal { return c.drain(symbol) }

func (c *Phase1ACollector) OnTick(symbol string, price, volume float64, at time.Time) {
	for _, sig := range c.gen.OnTick(symbol, price, volume, at) {
		c.push(symbol, uscp.RawSignal{
			Symbol:          symbol,
			SignalType:      string(sig.Type),
			Source:          "phase1a",
			Strength:        sig.SignalStrength,
			Confidence:      sig.Confidence,
			SecondaryMetric: sig.QualityScore,
			ObservedAt:      sig.EmittedAt,
		})
	}
}

// Phase1BCollector drives phase1b.Filter from raw ticks, and derives
// discrete volatility-regime signals from the rolling metrics it computes
// (the filter itself exposes continuous metrics, not discrete events; this
// turns regime shifts into the VOLATILITY_BREAKOUT / REGIME_CHANGE /
// MEAN_REVERSION signal types the C6 validator table expects from phase1b).
type Phase1BCollector struct {
	*bufferedSource
	filter *phase1b.Filter

	mu        sync.Mutex
	prevTrend map[string]float64
}

func NewPhase1BCollector(confidenceGate float64) *Phase1BCollector {
	return &Phase1BCollector{
		bufferedSource: newBufferedSource(),
		filter:         phase1b.NewFilter(confidenceGate),
		prevTrend:      make(map[string]float64),
	}
}

func (c *Phase1BCollector) Name() string { return "phase1b" }

func (c *Phase1BCollector) Collect(symbol string) []uscp.RawSignal { return c.drain(symbol) }

func (c *Phase1BCollector) Filter() *phase1b.Filter { return c.filter }

func (c *Phase1BCollector) OnTick(symbol string, price float64, at time.Time) {
	c.filter.OnPrice(symbol, price, at)
	vm := c.filter.VolatilityMetricsFor(symbol, at)

	c.mu.Lock()
	prevTrend, hadTrend := c.prevTrend[symbol]
	c.prevTrend[symbol] = vm.VolatilityTrend
	c.mu.Unlock()

	if vm.VolatilityPercentile >= 0.9 {
		c.push(symbol, uscp.RawSignal{
			Symbol: symbol, SignalType: "VOLATILITY_BREAKOUT", Source: "phase1b",
			Strength: vm.CurrentVolatility, Confidence: vm.RegimeStability,
			SecondaryMetric: vm.RegimeStability, ObservedAt: at,
		})
	}
	if hadTrend && math.Abs(vm.VolatilityTrend-prevTrend) > 0.5 {
		c.push(symbol, uscp.RawSignal{
			Symbol: symbol, SignalType: "REGIME_CHANGE", Source: "phase1b",
			Strength: math.Min(1, math.Abs(vm.VolatilityTrend)), Confidence: vm.RegimeStability,
			SecondaryMetric: vm.RegimeStability, ObservedAt: at,
		})
	}
	if vm.RegimeStability >= 0.8 && vm.CurrentVolatility < 0.2 {
		c.push(symbol, uscp.RawSignal{
			Symbol: symbol, SignalType: "MEAN_REVERSION", Source: "phase1b",
			Strength: vm.RegimeStability, Confidence: vm.RegimeStability,
			SecondaryMetric: vm.RegimeStability, ObservedAt: at,
		})
	}
}

// IndicatorsCollector runs the raw technical-indicator crossing detectors
// independently of the trigger engine, matching the "indicator_graph_feed"
// route the market data driver exposes as its own upstream source.
type IndicatorsCollector struct {
	*bufferedSource

	mu      sync.Mutex
	symbols map[string]*indicatorState
}

type indicatorState struct {
	prices, volumes []float64
	prevRSI         float64
	haveRSI         bool
	prevMACD        float64
	prevSignal      float64
	haveMACD        bool
}

const indicatorHistoryCap = 200

func NewIndicatorsCollector() *IndicatorsCollector {
	return &IndicatorsCollector{bufferedSource: newBufferedSource(), symbols: make(map[string]*indicatorState)}
}

func (c *IndicatorsCollector) Name() string { return "indicators" }

func (c *IndicatorsCollector) Collect(symbol string) []uscp.RawSignal { return c.drain(symbol) }

func (c *IndicatorsCollector) OnTick(symbol string, price, volume float64, at time.Time) {
	c.mu.Lock()
	s, ok := c.symbols[symbol]
	if !ok {
		s = &indicatorState{}
		c.symbols[symbol] = s
	}
	s.prices = append(s.prices, price)
	s.volumes = append(s.volumes, volume)
	if len(s.prices) > indicatorHistoryCap {
		s.prices = s.prices[len(s.prices)-indicatorHistoryCap:]
		s.volumes = s.volumes[len(s.volumes)-indicatorHistoryCap:]
	}
	prices, volumes := append([]float64(nil), s.prices...), append([]float64(nil), s.volumes...)
	c.mu.Unlock()

	c.checkRSI(symbol, prices, at)
	c.checkMACD(symbol, prices, at)
	c.checkBollinger(symbol, prices, at)
	c.checkVolume(symbol, volumes, at)
}

func (c *IndicatorsCollector) checkRSI(symbol string, prices []float64, at time.Time) {
	rsi, ok := indicators.RSI(prices, 14)
	if !ok {
		return
	}
	c.mu.Lock()
	s := c.symbols[symbol]
	prev, had := s.prevRSI, s.haveRSI
	s.prevRSI, s.haveRSI = rsi, true
	c.mu.Unlock()
	if !had {
		return
	}

	switch {
	case prev >= 30 && rsi < 30:
		c.push(symbol, uscp.RawSignal{
			Symbol: symbol, SignalType: "RSI", Source: "indicators",
			Strength: math.Min(1, (30-rsi)/30), Confidence: 0.7, SecondaryMetric: 0.7, ObservedAt: at,
		})
	case prev <= 70 && rsi > 70:
		c.push(symbol, uscp.RawSignal{
			Symbol: symbol, SignalType: "RSI", Source: "indicators",
			Strength: math.Min(1, (rsi-70)/30), Confidence: 0.7, SecondaryMetric: 0.7, ObservedAt: at,
		})
	}
}

func (c *IndicatorsCollector) checkMACD(symbol string, prices []float64, at time.Time) {
	macd := indicators.ComputeMACD(prices)
	if !macd.Valid {
		return
	}
	c.mu.Lock()
	s := c.symbols[symbol]
	prevValue, prevSignal, had := s.prevMACD, s.prevSignal, s.haveMACD
	s.prevMACD, s.prevSignal, s.haveMACD = macd.Value, macd.Signal, true
	c.mu.Unlock()
	if !had {
		return
	}

	wasBelow := prevValue < prevSignal
	isBelow := macd.Value < macd.Signal
	if wasBelow == isBelow {
		return
	}
	confidence := 0.65 + math.Min(0.3, math.Abs(macd.Histogram))
	c.push(symbol, uscp.RawSignal{
		Symbol: symbol, SignalType: "MACD", Source: "indicators",
		Strength: math.Min(1, math.Abs(macd.Histogram)*10), Confidence: confidence,
		SecondaryMetric: confidence, ObservedAt: at,
	})
}

func (c *IndicatorsCollector) checkBollinger(symbol string, prices []float64, at time.Time) {
	bb := indicators.ComputeBollinger(prices, 20, 2.0)
	if !bb.Valid || len(prices) == 0 {
		return
	}
	last := prices[len(prices)-1]
	switch {
	case last >= bb.Upper:
		c.push(symbol, uscp.RawSignal{
			Symbol: symbol, SignalType: "BB", Source: "indicators",
			Strength: 0.8, Confidence: 0.7, SecondaryMetric: 0.7, ObservedAt: at,
		})
	case last <= bb.Lower:
		c.push(symbol, uscp.RawSignal{
			Symbol: symbol, SignalType: "BB", Source: "indicators",
			Strength: 0.8, Confidence: 0.7, SecondaryMetric: 0.7, ObservedAt: at,
		})
	}
}

func (c *IndicatorsCollector) checkVolume(symbol string, volumes []float64, at time.Time) {
	_, ratio, ok := indicators.VolumeSMA(volumes, 20)
	if !ok || ratio < 2.0 {
		return
	}
	confidence := math.Min(1, ratio/3)
	c.push(symbol, uscp.RawSignal{
		Symbol: symbol, SignalType: "Volume", Source: "indicators",
		Strength: math.Min(1, ratio/4), Confidence: confidence,
		SecondaryMetric: confidence, ObservedAt: at,
	})
}
