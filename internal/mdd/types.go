// Package mdd implements the Market Data Driver (C1): a four-layer pipeline
// that ingests, cleans, normalizes, and distributes exchange market data
// under a hard internal latency budget.
package mdd

import "time"

// Topic names the logical routes subscribers attach to.
type Topic string

const (
	TopicTicker     Topic = "ticker"
	TopicKline      Topic = "kline"
	TopicOrderBook  Topic = "orderbook"
	TopicTrade      Topic = "trade"
	TopicMarkPrice  Topic = "mark_price"
	TopicPhase1A    Topic = "phase1a_feed"
	TopicIndicators Topic = "indicator_graph_feed"
	TopicPhase1B    Topic = "phase1b_feed"
	TopicUSCP       Topic = "uscp_feed"
	TopicStatus     Topic = "system_status"
	TopicError      Topic = "error"
)

// AnomalyType classifies why a record was flagged, never why it was
// dropped — anomalous records are forwarded, per §7.
type AnomalyType string

const (
	AnomalyNone             AnomalyType = ""
	AnomalyTimestampWindow  AnomalyType = "timestamp_window"
	AnomalyPriceSanity      AnomalyType = "price_sanity"
	AnomalyCrossExchange    AnomalyType = "cross_exchange_sanity"
	AnomalyOutlierZScore    AnomalyType = "outlier_zscore"
	AnomalyOutlierIQR       AnomalyType = "outlier_iqr"
	AnomalyMissingField     AnomalyType = "missing_field"
	AnomalyStaleTimestamp   AnomalyType = "stale_timestamp"
)

// MarketDataSnapshot is the last-observed tick for one symbol on one
// exchange, enriched through Layer 2. Field semantics follow §3 exactly.
type MarketDataSnapshot struct {
	Symbol           string
	TimestampMS      int64
	Price            float64
	Volume           float64
	BestBid          float64
	BestAsk          float64
	SourceExchange   string
	IngestionLatency time.Duration
	DataQuality      float64 // [0,1]

	// Derived by Layer 2.
	PriceChangePct float64
	VolumeRatio    float64
	Volatility     float64
	LiquidityRatio float64
	IsAnomaly      bool
	AnomalyType    AnomalyType

	// Basic computation (§4.1 L2).
	PriceMomentum float64
	VolumeTrend   float64
	VolumeAnomaly bool
	MoneyFlow     float64
}

// Valid checks the MarketDataSnapshot invariants from §3/§8: price > 0,
// bid <= ask, timestamp within ±5 minutes of receipt.
func (s MarketDataSnapshot) Valid(now time.Time) bool {
	if s.Price <= 0 {
		return false
	}
	if s.BestBid > 0 && s.BestAsk > 0 && s.BestBid > s.BestAsk {
		return false
	}
	age := now.UnixMilli() - s.TimestampMS
	if age < 0 {
		age = -age
	}
	return age <= int64(5*time.Minute/time.Millisecond)
}

// KlineData is a finite OHLCV candle for (symbol, timeframe).
type KlineData struct {
	Symbol      string
	Timeframe   string
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
	QuoteVolume float64
	TimestampMS int64
	Closed      bool

	PriceMomentum float64
	PriceRangePct float64
	VolumeAnomaly bool
}

// Valid enforces low <= open,close <= high and volume >= 0.
func (k KlineData) Valid() bool {
	if k.Volume < 0 {
		return false
	}
	if k.Low > k.Open || k.Open > k.High {
		return false
	}
	if k.Low > k.Close || k.Close > k.High {
		return false
	}
	return true
}

// PriceLevel is one (price, quantity) rung of an order book side.
type PriceLevel struct {
	Price    float64
	Quantity float64
}

// OrderBookSnapshot holds bids (descending) and asks (ascending).
type OrderBookSnapshot struct {
	Symbol      string
	TimestampMS int64
	Bids        []PriceLevel
	Asks        []PriceLevel

	BidAskSpread   float64
	BookDepth      float64
	LiquidityRatio float64
	DepthImbalance float64
}

// Valid enforces bids descending, asks ascending, and asks[0] > bids[0].
func (ob OrderBookSnapshot) Valid() bool {
	for i := 1; i < len(ob.Bids); i++ {
		if ob.Bids[i].Price > ob.Bids[i-1].Price {
			return false
		}
	}
	for i := 1; i < len(ob.Asks); i++ {
		if ob.Asks[i].Price < ob.Asks[i-1].Price {
			return false
		}
	}
	if len(ob.Bids) > 0 && len(ob.Asks) > 0 && ob.Asks[0].Price <= ob.Bids[0].Price {
		return false
	}
	return true
}

// Trade is a single executed trade.
type Trade struct {
	Symbol      string
	TimestampMS int64
	Price       float64
	Quantity    float64
	Side        string // "buy" | "sell"
	NoTrades    bool   // missing-value fill marker per §4.1 L2
}

// MarkPrice is an exchange mark price tick (futures venues).
type MarkPrice struct {
	Symbol      string
	TimestampMS int64
	Price       float64
}
