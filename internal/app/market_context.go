package app

import (
	"sync"
	"time"

	"github.com/sawpanic/signalcore/internal/mdd"
	"github.com/sawpanic/signalcore/internal/phase1b"
	"github.com/sawpanic/signalcore/internal/uscp"
)

// MarketContextAdapter supplies uscp.Pool's L0 regime classification and L2
// scoring side-inputs from the latest market-data snapshot and the
// volatility filter's rolling metrics.
//
// BTCCorrelation and SentimentAlignment have no dedicated upstream source in
// this implementation's component set (C1-C6); they default to a neutral
// 0.5 so they neither help nor penalize the composite score until a C7+
// cross-asset or sentiment feed is wired in.
type MarketContextAdapter struct {
	filter *phase1b.Filter

	mu        sync.RWMutex
	snapshots map[string]mdd.MarketDataSnapshot
}

func NewMarketContextAdapter(filter *phase1b.Filter) *MarketContextAdapter {
	return &MarketContextAdapter{filter: filter, snapshots: make(map[string]mdd.MarketDataSnapshot)}
}

func (m *MarketContextAdapter) observe(snap mdd.MarketDataSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snap.Symbol] = snap
}

func (m *MarketContextAdapter) latest(symbol string) (mdd.MarketDataSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snapshots[symbol]
	return snap, ok
}

// RegimeState classifies trending/ranging/volatile from the volatility
// filter's current snapshot, folding in the latest tick's own momentum
// reading for the extreme-market flag.
func (m *MarketContextAdapter) RegimeState(symbol string) uscp.MarketRegimeState {
	now := time.Now()
	vm := m.filter.VolatilityMetricsFor(symbol, now)

	regime := "ranging"
	switch {
	case vm.CurrentVolatility > 0.6:
		regime = "volatile"
	case absF(vm.VolatilityTrend) > 0.3:
		regime = "trending"
	}

	snap, _ := m.latest(symbol)
	return uscp.MarketRegimeState{
		Regime:           regime,
		IsExtremeMarket:  absF(snap.PriceChangePct) > 0.03 || snap.VolumeRatio > 8,
		FiveMinChangePct: snap.PriceChangePct,
		VolumeSurgeRatio: snap.VolumeRatio,
		SyncedAt:         now,
	}
}

// ScoreInputs supplies the L2 seven-dimensional scoring side-channel.
// HistoricalAccuracy is overwritten by the pool from the learner's own
// snapshot immediately after this call returns.
func (m *MarketContextAdapter) ScoreInputs(symbol string) uscp.ScoreInputs {
	snap, ok := m.latest(symbol)
	if !ok {
		return uscp.ScoreInputs{BTCCorrelation: 0.5, SentimentAlignment: 0.5}
	}
	return uscp.ScoreInputs{
		BTCCorrelation:     0.5,
		SentimentAlignment: 0.5,
		Volume24h:          snap.Volume,
		OrderbookDepth:     snap.LiquidityRatio,
	}
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
