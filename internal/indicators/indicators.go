// Package indicators computes the rolling technical primitives the trigger
// engine's IndicatorState is built from: RSI, MACD, Bollinger bands, volume
// SMA/spike ratio, and simple support/resistance levels.
package indicators

import "math"

// RSI computes the Relative Strength Index over period using Wilder's
// smoothing, the same two-pass (seed SMA, then EMA) method the teacher uses
// for RSI/ATR.
func RSI(prices []float64, period int) (value float64, valid bool) {
	if len(prices) < period+1 {
		return 50.0, false // neutral RSI when insufficient data
	}

	gains := make([]float64, 0, len(prices)-1)
	losses := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		d := prices[i] - prices[i-1]
		if d > 0 {
			gains = append(gains, d)
			losses = append(losses, 0)
		} else {
			gains = append(gains, 0)
			losses = append(losses, -d)
		}
	}

	var avgGain, avgLoss float64
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	alpha := 1.0 / float64(period)
	for i := period; i < len(gains); i++ {
		avgGain = avgGain*(1-alpha) + gains[i]*alpha
		avgLoss = avgLoss*(1-alpha) + losses[i]*alpha
	}

	if avgLoss == 0 {
		return 100.0, true
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs)), true
}

// EMA computes a simple exponential moving average series seeded by an SMA
// of the first period values; returns the final value only.
func EMA(prices []float64, period int) (value float64, valid bool) {
	if len(prices) < period {
		return 0, false
	}
	var sma float64
	for i := 0; i < period; i++ {
		sma += prices[i]
	}
	sma /= float64(period)

	k := 2.0 / float64(period+1)
	ema := sma
	for i := period; i < len(prices); i++ {
		ema = prices[i]*k + ema*(1-k)
	}
	return ema, true
}

// MACD reports the MACD line, signal line, and histogram using the standard
// 12/26/9 periods.
type MACD struct {
	Value     float64
	Signal    float64
	Histogram float64
	Valid     bool
}

func ComputeMACD(prices []float64) MACD {
	if len(prices) < 35 { // 26 + 9 for the signal EMA to be meaningful
		return MACD{}
	}

	fast, okF := EMA(prices, 12)
	slow, okS := EMA(prices, 26)
	if !okF || !okS {
		return MACD{}
	}
	macdLine := fast - slow

	// Build a short macd-line series over the tail to seed the signal EMA.
	series := make([]float64, 0, 9)
	for i := len(prices) - 9; i < len(prices); i++ {
		f, _ := EMA(prices[:i+1], 12)
		s, _ := EMA(prices[:i+1], 26)
		series = append(series, f-s)
	}
	signal, ok := EMA(series, 9)
	if !ok {
		signal = macdLine
	}

	return MACD{Value: macdLine, Signal: signal, Histogram: macdLine - signal, Valid: true}
}

// Bollinger reports the upper/middle/lower bands over period with the given
// standard-deviation width (2.0 is conventional).
type Bollinger struct {
	Upper, Middle, Lower float64
	Valid                bool
}

func ComputeBollinger(prices []float64, period int, width float64) Bollinger {
	if len(prices) < period {
		return Bollinger{}
	}
	tail := prices[len(prices)-period:]

	var mean float64
	for _, p := range tail {
		mean += p
	}
	mean /= float64(period)

	var variance float64
	for _, p := range tail {
		d := p - mean
		variance += d * d
	}
	variance /= float64(period)
	sd := math.Sqrt(variance)

	return Bollinger{
		Upper:  mean + width*sd,
		Middle: mean,
		Lower:  mean - width*sd,
		Valid:  true,
	}
}

// VolumeSMA returns the simple mean of the last period volumes and the ratio
// of the most recent volume to that mean (the "volume spike ratio" used by
// the volume-confirmation trigger).
func VolumeSMA(volumes []float64, period int) (sma, ratio float64, valid bool) {
	if len(volumes) < period || period == 0 {
		return 0, 0, false
	}
	tail := volumes[len(volumes)-period:]
	for _, v := range tail {
		sma += v
	}
	sma /= float64(period)
	if sma == 0 {
		return sma, 0, true
	}
	ratio = volumes[len(volumes)-1] / sma
	return sma, ratio, true
}

// SupportResistance finds the nearest recent swing low (support) and swing
// high (resistance) within a lookback window, using a simple local-extrema
// scan (a point higher/lower than its immediate neighbors).
type SupportResistance struct {
	Support, Resistance float64
	Valid               bool
}

func ComputeSupportResistance(prices []float64, lookback int) SupportResistance {
	if len(prices) < 3 {
		return SupportResistance{}
	}
	start := 0
	if len(prices)-lookback > 0 {
		start = len(prices) - lookback
	}
	window := prices[start:]

	support := math.Inf(1)
	resistance := math.Inf(-1)
	for i := 1; i < len(window)-1; i++ {
		if window[i] < window[i-1] && window[i] < window[i+1] && window[i] < support {
			support = window[i]
		}
		if window[i] > window[i-1] && window[i] > window[i+1] && window[i] > resistance {
			resistance = window[i]
		}
	}
	if math.IsInf(support, 1) {
		support = window[0]
	}
	if math.IsInf(resistance, -1) {
		resistance = window[0]
	}
	return SupportResistance{Support: support, Resistance: resistance, Valid: true}
}
