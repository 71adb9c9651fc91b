// Package opc implements the On-Chain Price Connector (C2): discovers the
// highest-liquidity DEX pool per symbol, streams prices from it, and fails
// over to an exchange WebSocket feed when on-chain data is stale or absent.
package opc

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// DEXVersion tags which AMM generation a pool belongs to.
type DEXVersion string

const (
	V2 DEXVersion = "v2"
	V3 DEXVersion = "v3" // carries a fee tier
)

// PoolInfo describes one candidate or selected liquidity pool (§3).
type PoolInfo struct {
	Address             common.Address
	Version             DEXVersion
	FeeTier             int // V3 only; 0 for V2
	Token0              common.Address
	Token1              common.Address
	EstimatedUSDTLiquid float64
	LiquidityScore      float64 // [0,1]
	DiscoveredAt        time.Time
}

// Source tags where a price reading came from.
type Source string

const (
	SourceOnchain  Source = "onchain"
	SourceFallback Source = "fallback"
)

// PriceData is the public get_price_data(symbol) response shape.
type PriceData struct {
	Symbol       string
	Price        float64
	Source       Source
	IsFallback   bool
	TimestampMS  int64
	PoolMetadata *PoolInfo
}

// FailoverState is the per-symbol state machine state (§4.2).
type FailoverState string

const (
	StateOnchainPrimary FailoverState = "ONCHAIN_PRIMARY"
	StateFallback       FailoverState = "FALLBACK"
)

// SystemStatus is returned by get_system_status.
type SystemStatus struct {
	Symbols      map[string]FailoverState
	PoolsBound   int
	LastRoundDur time.Duration
	RPCEndpoint  string
}
