package ite

import (
	"math"
	"sync"
	"time"

	"github.com/sawpanic/signalcore/internal/config"
	"github.com/sawpanic/signalcore/internal/indicators"
)

const (
	priceDequeCapacity   = 1000
	minPointsForIndicators = 50
	signalHistoryCapacity  = 100
)

// pricePoint is one timestamped sample in a symbol's rolling deque.
type pricePoint struct {
	price  float64
	volume float64
	at     time.Time
}

// symbolState holds everything the engine tracks per symbol: the bounded
// price deque, the last computed IndicatorState, and the memoized indicator
// cache keyed by deque length (the supplemented "indicator cache
// memoization" feature — recomputing on every tick when the deque hasn't
// grown since the last computation is wasted work).
type symbolState struct {
	mu        sync.Mutex
	points    []pricePoint
	indicator IndicatorState
	cachedLen int
}

func newSymbolState() *symbolState {
	return &symbolState{}
}

// push appends a new point, evicting the oldest once the deque is full.
func (s *symbolState) push(price, volume float64, at time.Time) {
	s.points = append(s.points, pricePoint{price: price, volume: volume, at: at})
	if len(s.points) > priceDequeCapacity {
		s.points = s.points[len(s.points)-priceDequeCapacity:]
	}
}

func (s *symbolState) prices() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.price
	}
	return out
}

func (s *symbolState) volumes() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.volume
	}
	return out
}

// priceChangeOver returns the fractional price change between the latest
// point and the latest point at least `lag` old, or (0, false) if there
// isn't enough history yet.
func (s *symbolState) priceChangeOver(lag time.Duration) (float64, bool) {
	if len(s.points) == 0 {
		return 0, false
	}
	latest := s.points[len(s.points)-1]
	target := latest.at.Add(-lag)

	idx := -1
	for i := len(s.points) - 1; i >= 0; i-- {
		if !s.points[i].at.After(target) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, false
	}
	base := s.points[idx].price
	if base == 0 {
		return 0, false
	}
	return (latest.price - base) / base, true
}

// refreshIndicators recomputes IndicatorState if the deque has grown since
// the last computation, per-indicator convergence scores per §4.3.
func (s *symbolState) refreshIndicators(symbol string, now time.Time, weights config.IndicatorWeights) IndicatorState {
	if len(s.points) < minPointsForIndicators {
		s.indicator = IndicatorState{Symbol: symbol, UpdatedAt: now, Ready: false}
		return s.indicator
	}
	if s.cachedLen == len(s.points) {
		return s.indicator
	}

	prices := s.prices()
	volumes := s.volumes()

	rsi, _ := indicators.RSI(prices, 14)
	macd := indicators.ComputeMACD(prices)
	bb := indicators.ComputeBollinger(prices, 20, 2.0)
	_, volRatio, _ := indicators.VolumeSMA(volumes, 20)
	sr := indicators.ComputeSupportResistance(prices, 100)

	st := IndicatorState{
		Symbol:      symbol,
		UpdatedAt:   now,
		RSI:         rsi,
		MACDValue:   macd.Value,
		MACDSignal:  macd.Signal,
		BBUpper:     bb.Upper,
		BBLower:     bb.Lower,
		VolumeRatio: volRatio,
		Support:     sr.Support,
		Resistance:  sr.Resistance,
		Ready:       true,
	}

	st.RSIConvergence = rsiConvergence(rsi)
	st.MACDConvergence = macdConvergence(macd.Value, macd.Signal)
	st.BBConvergence = bollingerConvergence(prices[len(prices)-1], bb)
	st.VolumeConvergence = volumeConvergence(volRatio)
	st.SRConvergence = supportResistanceConvergence(prices[len(prices)-1], sr)
	st.OverallConvergence = weightedConvergenceMean(weights,
		st.RSIConvergence, st.MACDConvergence, st.BBConvergence,
		st.VolumeConvergence, st.SRConvergence,
	)

	s.indicator = st
	s.cachedLen = len(s.points)
	return st
}

func rsiConvergence(rsi float64) float64 {
	if rsi > 30 && rsi < 70 {
		return 0
	}
	if rsi <= 30 {
		return math.Min(1, (30-rsi)/20)
	}
	return math.Min(1, (rsi-70)/20)
}

func macdConvergence(macd, signal float64) float64 {
	diff := math.Abs(macd - signal)
	switch {
	case diff < 0.001:
		return 0.8
	case diff < 0.005:
		return 0.6
	case diff < 0.01:
		return 0.4
	default:
		return 0
	}
}

func bollingerConvergence(price float64, bb indicators.Bollinger) float64 {
	if !bb.Valid || price == 0 {
		return 0
	}
	distUpper := math.Abs(bb.Upper-price) / price
	distLower := math.Abs(price-bb.Lower) / price
	dist := math.Min(distUpper, distLower)
	switch {
	case dist < 0.005:
		return 0.9
	case dist < 0.01:
		return 0.7
	case dist < 0.02:
		return 0.5
	default:
		return 0
	}
}

func volumeConvergence(ratio float64) float64 {
	switch {
	case ratio >= 2.5:
		return math.Min(1, ratio/3)
	case ratio <= 0.5:
		return math.Min(1, (0.5-ratio)*2)
	default:
		return 0
	}
}

func supportResistanceConvergence(price float64, sr indicators.SupportResistance) float64 {
	if !sr.Valid || price == 0 {
		return 0
	}
	distSupport := math.Abs(price-sr.Support) / price
	distResistance := math.Abs(sr.Resistance-price) / price
	dist := math.Min(distSupport, distResistance)
	switch {
	case dist < 0.002:
		return 0.9
	case dist < 0.005:
		return 0.7
	case dist < 0.01:
		return 0.5
	default:
		return 0
	}
}

// weightedConvergenceMean combines the five indicator convergence scores
// using the configured indicator_weights (§3, §6), normalized over only
// the indicators with a positive convergence score so that a quiet
// indicator doesn't dilute the average with a weighted zero.
func weightedConvergenceMean(weights config.IndicatorWeights, rsi, macd, bb, volume, sr float64) float64 {
	type weighted struct {
		score, weight float64
	}
	contributions := []weighted{
		{rsi, weights.RSI},
		{macd, weights.MACD},
		{bb, weights.BB},
		{volume, weights.Volume},
		{sr, weights.SR},
	}

	var sumWeighted, sumWeights float64
	for _, c := range contributions {
		if c.score > 0 {
			sumWeighted += c.score * c.weight
			sumWeights += c.weight
		}
	}
	if sumWeights == 0 {
		return 0
	}
	return sumWeighted / sumWeights
}
