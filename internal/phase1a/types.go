// Package phase1a implements the Phase-1A Basic Signal Generator (C4):
// four discrete typed detectors running off raw price/volume history.
package phase1a

import "time"

// SignalType is the closed enum of detector outputs.
type SignalType string

const (
	PriceBreakout SignalType = "PRICE_BREAKOUT"
	VolumeSurge   SignalType = "VOLUME_SURGE"
	MomentumShift SignalType = "MOMENTUM_SHIFT"
	ExtremeEvent  SignalType = "EXTREME_EVENT"
)

// Signal is one detector firing (§4.4).
type Signal struct {
	Symbol         string
	Type           SignalType
	SignalStrength float64 // [0,1]
	Confidence     float64 // [0,1]
	QualityScore   float64 // [0,1]
	EmittedAt      time.Time
}
