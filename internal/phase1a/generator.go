package phase1a

import (
	"math"
	"sync"
	"time"
)

const (
	historyCapacity = 64
	shortMAPeriod   = 5
	longMAPeriod    = 20
)

type symbolHistory struct {
	prices  []float64
	volumes []float64

	// prevShortMA/prevLongMA let MOMENTUM_SHIFT detect a cross rather than
	// just a relative ordering, which would fire on every tick once the
	// short MA settles above or below the long MA.
	prevShortMA float64
	prevLongMA  float64
	haveCross   bool
}

// Generator runs the four Phase-1A detectors over a per-symbol bounded
// history.
type Generator struct {
	mu      sync.Mutex
	symbols map[string]*symbolHistory
}

func NewGenerator() *Generator {
	return &Generator{symbols: make(map[string]*symbolHistory)}
}

func (g *Generator) stateFor(symbol string) *symbolHistory {
	s, ok := g.symbols[symbol]
	if !ok {
		s = &symbolHistory{}
		g.symbols[symbol] = s
	}
	return s
}

// OnTick appends one price/volume sample and returns every signal the four
// detectors fire for it.
func (g *Generator) OnTick(symbol string, price, volume float64, at time.Time) []Signal {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := g.stateFor(symbol)
	s.prices = append(s.prices, price)
	s.volumes = append(s.volumes, volume)
	if len(s.prices) > historyCapacity {
		s.prices = s.prices[len(s.prices)-historyCapacity:]
		s.volumes = s.volumes[len(s.volumes)-historyCapacity:]
	}

	var signals []Signal
	if sig, ok := detectPriceBreakout(symbol, s.prices, at); ok {
		signals = append(signals, sig)
	}
	if sig, ok := detectVolumeSurge(symbol, s.volumes, at); ok {
		signals = append(signals, sig)
	}
	if sig, ok := detectMomentumShift(symbol, s, at); ok {
		signals = append(signals, sig)
	}
	if sig, ok := detectExtremeEvent(symbol, s.prices, s.volumes, at); ok {
		signals = append(signals, sig)
	}
	return signals
}

func sma(values []float64, period int) (float64, bool) {
	if len(values) < period {
		return 0, false
	}
	tail := values[len(values)-period:]
	var sum float64
	for _, v := range tail {
		sum += v
	}
	return sum / float64(period), true
}

// detectPriceBreakout fires when the latest price deviates from SMA10 by
// at least 2% (§4.4).
func detectPriceBreakout(symbol string, prices []float64, at time.Time) (Signal, bool) {
	avg, ok := sma(prices, 10)
	if !ok || avg == 0 {
		return Signal{}, false
	}
	last := prices[len(prices)-1]
	dev := math.Abs(last-avg) / avg
	if dev < 0.02 {
		return Signal{}, false
	}
	strength := math.Min(1, dev/0.05)
	return Signal{
		Symbol:         symbol,
		Type:           PriceBreakout,
		SignalStrength: strength,
		Confidence:     math.Min(1, dev/0.02),
		QualityScore:   qualityScore(len(prices)),
		EmittedAt:      at,
	}, true
}

// detectVolumeSurge fires when current volume exceeds 2x the SMA10 of
// volume (§4.4).
func detectVolumeSurge(symbol string, volumes []float64, at time.Time) (Signal, bool) {
	avg, ok := sma(volumes, 10)
	if !ok || avg == 0 {
		return Signal{}, false
	}
	current := volumes[len(volumes)-1]
	ratio := current / avg
	if ratio <= 2.0 {
		return Signal{}, false
	}
	return Signal{
		Symbol:         symbol,
		Type:           VolumeSurge,
		SignalStrength: math.Min(1, ratio/5),
		Confidence:     math.Min(1, ratio/4),
		QualityScore:   qualityScore(len(volumes)),
		EmittedAt:      at,
	}, true
}

// detectMomentumShift fires on a short/long MA cross (§4.4): the short MA
// was below the long MA last tick and is now above, or vice versa.
func detectMomentumShift(symbol string, s *symbolHistory, at time.Time) (Signal, bool) {
	shortMA, okS := sma(s.prices, shortMAPeriod)
	longMA, okL := sma(s.prices, longMAPeriod)
	if !okS || !okL {
		return Signal{}, false
	}

	fired := false
	var direction float64
	if s.haveCross {
		wasBelow := s.prevShortMA < s.prevLongMA
		isBelow := shortMA < longMA
		if wasBelow != isBelow {
			fired = true
			direction = shortMA - longMA
		}
	}
	s.prevShortMA, s.prevLongMA, s.haveCross = shortMA, longMA, true

	if !fired || longMA == 0 {
		return Signal{}, false
	}
	strength := math.Min(1, math.Abs(direction)/longMA*20)
	return Signal{
		Symbol:         symbol,
		Type:           MomentumShift,
		SignalStrength: strength,
		Confidence:     0.6 + strength*0.3,
		QualityScore:   qualityScore(len(s.prices)),
		EmittedAt:      at,
	}, true
}

// detectExtremeEvent fires when the max 5-bar price change is at least 5%
// or the max-volume/mean-5 ratio is at least 5x (§4.4).
func detectExtremeEvent(symbol string, prices, volumes []float64, at time.Time) (Signal, bool) {
	if len(prices) < 5 {
		return Signal{}, false
	}
	recent := prices[len(prices)-5:]
	maxChange := 0.0
	for i := 1; i < len(recent); i++ {
		if recent[i-1] == 0 {
			continue
		}
		c := math.Abs(recent[i]-recent[i-1]) / recent[i-1]
		if c > maxChange {
			maxChange = c
		}
	}

	volRatio := 0.0
	if len(volumes) >= 5 {
		mean5, _ := sma(volumes, 5)
		if mean5 > 0 {
			maxVol := 0.0
			for _, v := range volumes[len(volumes)-5:] {
				if v > maxVol {
					maxVol = v
				}
			}
			volRatio = maxVol / mean5
		}
	}

	if maxChange < 0.05 && volRatio < 5 {
		return Signal{}, false
	}

	strength := math.Max(math.Min(1, maxChange/0.10), math.Min(1, volRatio/10))
	return Signal{
		Symbol:         symbol,
		Type:           ExtremeEvent,
		SignalStrength: strength,
		Confidence:     0.7 + strength*0.2,
		QualityScore:   qualityScore(len(prices)),
		EmittedAt:      at,
	}, true
}

// qualityScore rewards a detector with more history to draw on, saturating
// once the symbol has a full window.
func qualityScore(samples int) float64 {
	return math.Min(1, float64(samples)/float64(historyCapacity))
}
