package mdd

import (
	"math"
	"sync"
	"time"
)

// symbolHistory holds the bounded rolling state Layer 2 needs per symbol:
// recent prices for outlier/volatility/momentum, recent volumes for
// trend/anomaly detection, a 24h window for min-max normalization, and the
// last few (timestamp) pairs seen for de-duplication.
type symbolHistory struct {
	prices      []float64 // newest last, bounded to 64
	volumes     []float64
	dedupRecent []int64 // last 5 timestamps seen, for dedup-on-(symbol,timestamp)
	dayMin      float64
	dayMax      float64
	lastClose   float64 // for kline missing-value fill
	lastBook    *OrderBookSnapshot
}

const (
	historyWindow    = 64
	momentumLag      = 5
	volatilityWindow = 20
	volumeFastWindow = 5
	volumeSlowWindow = 20
	dedupDepth       = 5
)

// Processor implements Layer 2: outlier detection, missing-value fill,
// de-duplication, standardization, and basic computation (§4.1 L2).
type Processor struct {
	mu      sync.Mutex
	history map[string]*symbolHistory
}

func NewProcessor() *Processor {
	return &Processor{history: make(map[string]*symbolHistory)}
}

func (p *Processor) stateFor(symbol string) *symbolHistory {
	h, ok := p.history[symbol]
	if !ok {
		h = &symbolHistory{dayMin: math.Inf(1), dayMax: math.Inf(-1)}
		p.history[symbol] = h
	}
	return h
}

// Process enriches an ingestTick into a full MarketDataSnapshot, applying
// outlier detection, de-dup, and basic computation. isDuplicate reports a
// (symbol,timestamp) collision within the last 5 messages, per §4.1.
func (p *Processor) Process(t ingestTick, quality float64, latency time.Duration) (snap MarketDataSnapshot, isDuplicate bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := p.stateFor(t.Symbol)

	for _, ts := range h.dedupRecent {
		if ts == t.TimestampMS {
			isDuplicate = true
		}
	}
	h.dedupRecent = append(h.dedupRecent, t.TimestampMS)
	if len(h.dedupRecent) > dedupDepth {
		h.dedupRecent = h.dedupRecent[len(h.dedupRecent)-dedupDepth:]
	}

	price := t.Price
	if price <= 0 && h.lastClose > 0 {
		price = h.lastClose // missing-value fill: previous close
	}

	anomaly := t.Anomaly
	if len(h.prices) >= 5 {
		if zScoreOutlier(h.prices, price) || iqrOutlier(h.prices, price) {
			if anomaly == AnomalyNone {
				anomaly = AnomalyOutlierZScore
			}
		}
	}

	h.prices = append(h.prices, price)
	if len(h.prices) > historyWindow {
		h.prices = h.prices[len(h.prices)-historyWindow:]
	}
	h.volumes = append(h.volumes, t.Volume)
	if len(h.volumes) > historyWindow {
		h.volumes = h.volumes[len(h.volumes)-historyWindow:]
	}
	h.lastClose = price
	if price < h.dayMin {
		h.dayMin = price
	}
	if price > h.dayMax {
		h.dayMax = price
	}

	snap = MarketDataSnapshot{
		Symbol:           t.Symbol,
		TimestampMS:      t.TimestampMS,
		Price:            price,
		Volume:           t.Volume,
		BestBid:          t.BestBid,
		BestAsk:          t.BestAsk,
		SourceExchange:   t.Exchange,
		IngestionLatency: latency,
		DataQuality:      quality,
		AnomalyType:      anomaly,
		IsAnomaly:        anomaly != AnomalyNone,
	}

	p.enrich(&snap, h)
	return snap, isDuplicate
}

func (p *Processor) enrich(snap *MarketDataSnapshot, h *symbolHistory) {
	n := len(h.prices)

	if n > momentumLag {
		prev := h.prices[n-1-momentumLag]
		if prev != 0 {
			snap.PriceMomentum = (snap.Price - prev) / prev
			snap.PriceChangePct = snap.PriceMomentum
		}
	}

	if n >= volatilityWindow {
		snap.Volatility = stdDevOfReturns(h.prices[n-volatilityWindow:])
	}

	if h.dayMax > h.dayMin {
		snap.PriceChangePct = (snap.Price - h.dayMin) / (h.dayMax - h.dayMin)
	}

	if avg20 := mean(last(h.volumes, 20)); avg20 > 0 {
		snap.VolumeRatio = snap.Volume / avg20
		snap.VolumeAnomaly = snap.Volume > 3*avg20
	}
	if fast := mean(last(h.volumes, volumeFastWindow)); fast > 0 {
		if slow := mean(last(h.volumes, volumeSlowWindow)); slow > 0 {
			snap.VolumeTrend = fast - slow
		}
	}

	snap.MoneyFlow = snap.PriceChangePct * snap.Volume

	if snap.BestBid > 0 && snap.BestAsk > snap.BestBid {
		spread := snap.BestAsk - snap.BestBid
		mid := (snap.BestAsk + snap.BestBid) / 2
		if mid > 0 {
			snap.LiquidityRatio = 1 - (spread / mid)
		}
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func last(xs []float64, n int) []float64 {
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}

func stdDevOfReturns(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns = append(returns, math.Log(prices[i]/prices[i-1]))
		}
	}
	if len(returns) == 0 {
		return 0
	}
	m := mean(returns)
	var variance float64
	for _, r := range returns {
		d := r - m
		variance += d * d
	}
	variance /= float64(len(returns))
	return math.Sqrt(variance)
}

// zScoreOutlier flags candidate if its z-score against the rolling history
// exceeds 3 (§4.1 "z-score > 3 or IQR rule").
func zScoreOutlier(history []float64, candidate float64) bool {
	m := mean(history)
	var variance float64
	for _, x := range history {
		d := x - m
		variance += d * d
	}
	variance /= float64(len(history))
	sd := math.Sqrt(variance)
	if sd == 0 {
		return false
	}
	z := math.Abs(candidate-m) / sd
	return z > 3
}

// iqrOutlier flags candidate outside [Q1-1.5*IQR, Q3+1.5*IQR].
func iqrOutlier(history []float64, candidate float64) bool {
	sorted := append([]float64(nil), history...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	q1 := percentile(sorted, 0.25)
	q3 := percentile(sorted, 0.75)
	iqr := q3 - q1
	if iqr == 0 {
		return false
	}
	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr
	return candidate < lower || candidate > upper
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := p * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
