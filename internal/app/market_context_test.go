package app

import (
	"testing"

	"github.com/sawpanic/signalcore/internal/config"
	"github.com/sawpanic/signalcore/internal/mdd"
	"github.com/sawpanic/signalcore/internal/phase1b"
)

func TestStaticTokenResolver_ResolvesConfiguredSymbol(t *testing.T) {
	cfg := config.OPC{
		TokenAddresses: map[string]string{"WETH": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"},
		TokenDecimals:  map[string]int{"WETH": 18},
	}
	r := NewStaticTokenResolver(cfg)

	addr, decimals, ok := r.TokenAddress("WETH")
	if !ok {
		t.Fatal("expected WETH to resolve")
	}
	if decimals != 18 {
		t.Errorf("expected 18 decimals, got %d", decimals)
	}
	if addr.Hex() == (commonZeroHex) {
		t.Error("expected a non-zero resolved address")
	}
}

const commonZeroHex = "0x0000000000000000000000000000000000000000"

func TestStaticTokenResolver_UnknownSymbolMisses(t *testing.T) {
	r := NewStaticTokenResolver(config.OPC{})
	if _, _, ok := r.TokenAddress("DOGE"); ok {
		t.Error("an unconfigured symbol must not resolve")
	}
}

func TestStaticTokenResolver_DefaultsToEighteenDecimals(t *testing.T) {
	cfg := config.OPC{
		TokenAddresses: map[string]string{"FOO": "0x0000000000000000000000000000000000000001"},
	}
	r := NewStaticTokenResolver(cfg)
	_, decimals, ok := r.TokenAddress("FOO")
	if !ok {
		t.Fatal("expected FOO to resolve")
	}
	if decimals != 18 {
		t.Errorf("expected the default of 18 decimals for an unlisted token, got %d", decimals)
	}
}

func TestMarketContextAdapter_ScoreInputsDefaultsWhenUnobserved(t *testing.T) {
	adapter := NewMarketContextAdapter(phase1b.NewFilter(0))
	inputs := adapter.ScoreInputs("BTC-USD")
	if inputs.BTCCorrelation != 0.5 || inputs.SentimentAlignment != 0.5 {
		t.Errorf("expected neutral defaults before any tick has been observed, got %+v", inputs)
	}
}

func TestMarketContextAdapter_ScoreInputsReflectsLatestTick(t *testing.T) {
	adapter := NewMarketContextAdapter(phase1b.NewFilter(0))
	adapter.observe(mdd.MarketDataSnapshot{Symbol: "BTC-USD", Volume: 123, LiquidityRatio: 0.4})

	inputs := adapter.ScoreInputs("BTC-USD")
	if inputs.Volume24h != 123 {
		t.Errorf("expected volume to come from the observed snapshot, got %f", inputs.Volume24h)
	}
	if inputs.OrderbookDepth != 0.4 {
		t.Errorf("expected orderbook depth to come from the observed snapshot, got %f", inputs.OrderbookDepth)
	}
}

func TestMarketContextAdapter_RegimeStateDefaultsToRanging(t *testing.T) {
	adapter := NewMarketContextAdapter(phase1b.NewFilter(0))
	state := adapter.RegimeState("BTC-USD")
	if state.Regime != "ranging" {
		t.Errorf("expected ranging regime with no volatility history yet, got %s", state.Regime)
	}
	if state.IsExtremeMarket {
		t.Error("a fresh symbol must not be flagged as an extreme market")
	}
}
