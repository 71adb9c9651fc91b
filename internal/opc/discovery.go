package opc

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/sawpanic/signalcore/internal/config"
	"github.com/sawpanic/signalcore/internal/logging"
)

// Discovery finds the best pool per symbol across a V2 factory and a
// ladder of V3 fee tiers (§4.2 "Pool discovery").
type Discovery struct {
	cfg  config.OPC
	rpc  *RPCPool
	log  zerolog.Logger
}

func NewDiscovery(cfg config.OPC, rpc *RPCPool) *Discovery {
	return &Discovery{cfg: cfg, rpc: rpc, log: logging.Component("opc.discovery")}
}

// symbolToken resolves a symbol to its ERC20 token address. In production
// this is a configured map; tests inject one directly.
type SymbolResolver interface {
	TokenAddress(symbol string) (common.Address, int, bool) // address, decimals, ok
}

// BestPool runs the full discovery pass for one symbol: query the V2
// factory, then each V3 fee tier in descending priority order, fetch
// reserves/state for every candidate, and return the highest-liquidity one
// passing the symbol's liquidity floor.
func (d *Discovery) BestPool(ctx context.Context, symbol string, resolver SymbolResolver) (*PoolInfo, error) {
	token, decimals, ok := resolver.TokenAddress(symbol)
	if !ok {
		return nil, fmt.Errorf("opc discovery: no token address configured for %s", symbol)
	}
	usdt := common.HexToAddress(d.cfg.USDTAddress)
	usdtDecimals := d.cfg.TokenDecimals["USDT"]
	if usdtDecimals == 0 {
		usdtDecimals = 6
	}

	var candidates []PoolInfo

	if v2, err := d.probeV2(ctx, token, usdt, decimals, usdtDecimals); err == nil && v2 != nil {
		candidates = append(candidates, *v2)
	}

	for _, fee := range d.cfg.V3FeeTiers {
		if v3, err := d.probeV3(ctx, token, usdt, decimals, usdtDecimals, fee); err == nil && v3 != nil {
			candidates = append(candidates, *v3)
		}
	}

	floor := d.cfg.MinLiquidityThreshold
	if isMainstream(symbol, d.cfg.MainstreamSymbols) {
		floor = 1000
	} else if floor < 5000 {
		floor = 5000
	}

	var best *PoolInfo
	for i := range candidates {
		c := &candidates[i]
		if c.EstimatedUSDTLiquid < floor {
			continue
		}
		if best == nil || c.EstimatedUSDTLiquid > best.EstimatedUSDTLiquid {
			best = c
		}
	}
	if best == nil {
		return nil, fmt.Errorf("opc discovery: no pool for %s meets liquidity floor %.0f", symbol, floor)
	}
	best.LiquidityScore = LiquidityScore(best.EstimatedUSDTLiquid, d.cfg.MinLiquidityThreshold, d.cfg.PreferredLiquidityThresh)
	best.DiscoveredAt = time.Now()
	return best, nil
}

func isMainstream(symbol string, list []string) bool {
	for _, s := range list {
		if s == symbol {
			return true
		}
	}
	return false
}

func (d *Discovery) probeV2(ctx context.Context, token, usdt common.Address, tokenDecimals, usdtDecimals int) (*PoolInfo, error) {
	factory := common.HexToAddress(d.cfg.FactoryV2Address)
	getPairData, err := packAddressAddress("getPair(address,address)", token, usdt)
	if err != nil {
		return nil, err
	}

	results, err := d.rpc.Aggregate(ctx, []Call{{Target: factory, Data: getPairData}})
	if err != nil || len(results) == 0 {
		return nil, fmt.Errorf("v2 getPair failed: %w", err)
	}
	pairAddr, err := unpackAddress(results[0])
	if err != nil || pairAddr == (common.Address{}) {
		return nil, fmt.Errorf("no v2 pair for token")
	}

	reservesData := noArgCall("getReserves()")
	token0Data := noArgCall("token0()")
	results, err = d.rpc.Aggregate(ctx, []Call{
		{Target: pairAddr, Data: reservesData},
		{Target: pairAddr, Data: token0Data},
	})
	if err != nil || len(results) != 2 {
		return nil, fmt.Errorf("v2 reserves fetch failed: %w", err)
	}

	reserve0, reserve1, err := unpackReserves(results[0])
	if err != nil {
		return nil, err
	}
	token0, err := unpackAddress(results[1])
	if err != nil {
		return nil, err
	}

	usdtIsToken0 := token0 == usdt
	reserveUSDT, reserveToken := reserve1, reserve0
	if usdtIsToken0 {
		reserveUSDT, reserveToken = reserve0, reserve1
	}

	liquidity := USDTLiquidityV2(reserveUSDT, usdtDecimals)
	return &PoolInfo{
		Address:             pairAddr,
		Version:             V2,
		Token0:              token0,
		Token1:              otherToken(token0, token, usdt),
		EstimatedUSDTLiquid: liquidity,
	}, nil
}

func (d *Discovery) probeV3(ctx context.Context, token, usdt common.Address, tokenDecimals, usdtDecimals, fee int) (*PoolInfo, error) {
	factory := common.HexToAddress(d.cfg.FactoryV3Address)
	getPoolData, err := packAddressAddressUint24("getPool(address,address,uint24)", token, usdt, uint32(fee))
	if err != nil {
		return nil, err
	}

	results, err := d.rpc.Aggregate(ctx, []Call{{Target: factory, Data: getPoolData}})
	if err != nil || len(results) == 0 {
		return nil, fmt.Errorf("v3 getPool failed: %w", err)
	}
	poolAddr, err := unpackAddress(results[0])
	if err != nil || poolAddr == (common.Address{}) {
		return nil, fmt.Errorf("no v3 pool at fee tier %d", fee)
	}

	slot0Data := noArgCall("slot0()")
	liquidityData := noArgCall("liquidity()")
	token0Data := noArgCall("token0()")
	results, err = d.rpc.Aggregate(ctx, []Call{
		{Target: poolAddr, Data: slot0Data},
		{Target: poolAddr, Data: liquidityData},
		{Target: poolAddr, Data: token0Data},
	})
	if err != nil || len(results) != 3 {
		return nil, fmt.Errorf("v3 state fetch failed: %w", err)
	}

	sqrtPriceX96, _, err := unpackSlot0(results[0])
	if err != nil {
		return nil, err
	}
	liquidity, err := unpackUint(results[1])
	if err != nil {
		return nil, err
	}
	token0, err := unpackAddress(results[2])
	if err != nil {
		return nil, err
	}

	usdtIsToken0 := token0 == usdt
	price := PriceV3(sqrtPriceX96, tokenDecimals, usdtDecimals, usdtIsToken0)
	if usdtIsToken0 {
		price = PriceV3(sqrtPriceX96, usdtDecimals, tokenDecimals, usdtIsToken0)
	}

	estLiquidity := USDTLiquidityV3(liquidity, price, tokenDecimals)
	return &PoolInfo{
		Address:             poolAddr,
		Version:             V3,
		FeeTier:             fee,
		Token0:              token0,
		Token1:              otherToken(token0, token, usdt),
		EstimatedUSDTLiquid: estLiquidity,
	}, nil
}

func otherToken(token0, a, b common.Address) common.Address {
	if token0 == a {
		return b
	}
	return a
}
