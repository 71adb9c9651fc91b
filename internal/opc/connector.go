package opc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sawpanic/signalcore/internal/config"
	"github.com/sawpanic/signalcore/internal/logging"
)

// FallbackFeed supplies an exchange-derived price when a symbol is in
// FALLBACK state; the Market Data Driver's latest-snapshot store satisfies
// this in production.
type FallbackFeed interface {
	LatestPrice(symbol string) (float64, bool)
}

// Connector is the public contract for C2: discover pools, poll prices,
// cache them, and fail over to an exchange feed on staleness or errors
// (§4.2, §6).
type Connector struct {
	cfg      config.OPC
	rpc      *RPCPool
	disc     *Discovery
	cache    *Cache
	failover *FailoverTracker
	fallback FallbackFeed
	resolver SymbolResolver
	log      zerolog.Logger

	mu       sync.RWMutex
	pools    map[string]PoolInfo
	symbols  []string
	lastRound time.Duration
	cancel   context.CancelFunc
}

func NewConnector(cfg config.OPC, rpc *RPCPool, cache *Cache, fallback FallbackFeed, resolver SymbolResolver) *Connector {
	return &Connector{
		cfg:      cfg,
		rpc:      rpc,
		disc:     NewDiscovery(cfg, rpc),
		cache:    cache,
		failover: NewFailoverTracker(time.Duration(cfg.PriceVolatilityThreshold) * time.Second),
		fallback: fallback,
		resolver: resolver,
		pools:    make(map[string]PoolInfo),
		log:      logging.Component("opc.connector"),
	}
}

// Start launches the pool discovery cadence and the adaptive price-polling
// loop for the given symbols.
func (c *Connector) Start(ctx context.Context, symbols []string) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Lock()
	c.symbols = append([]string(nil), symbols...)
	c.mu.Unlock()

	c.RefreshPools(ctx)
	go c.discoveryLoop(ctx)
	go c.pollLoop(ctx)
}

func (c *Connector) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Connector) discoveryLoop(ctx context.Context) {
	interval := time.Duration(c.cfg.PoolDiscoveryIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RefreshPools(ctx)
		}
	}
}

// RefreshPools runs one discovery pass across all tracked symbols, updating
// the in-memory and cached pool bindings.
func (c *Connector) RefreshPools(ctx context.Context) {
	c.mu.RLock()
	symbols := append([]string(nil), c.symbols...)
	c.mu.RUnlock()

	for _, sym := range symbols {
		pool, err := c.disc.BestPool(ctx, sym, c.resolver)
		if err != nil {
			c.log.Warn().Err(err).Str("symbol", sym).Msg("pool discovery failed, keeping prior binding")
			continue
		}
		c.mu.Lock()
		c.pools[sym] = *pool
		c.mu.Unlock()
		if err := c.cache.PutPool(ctx, sym, *pool); err != nil {
			c.log.Warn().Err(err).Str("symbol", sym).Msg("failed to cache pool binding")
		}
	}
}

// pollLoop polls prices at an adaptively chosen cadence: the round interval
// widens when the previous round took longer, so the connector never
// schedules back-to-back rounds shorter than it can complete (§4.2 "adaptive
// round cadence 2s/3s/5s by recent round latency").
func (c *Connector) pollLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		start := time.Now()
		c.pollOnce(ctx)
		dur := time.Since(start)

		c.mu.Lock()
		c.lastRound = dur
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-time.After(roundCadence(dur)):
		}
	}
}

func roundCadence(lastRound time.Duration) time.Duration {
	switch {
	case lastRound < 500*time.Millisecond:
		return 2 * time.Second
	case lastRound < 1500*time.Millisecond:
		return 3 * time.Second
	default:
		return 5 * time.Second
	}
}

func (c *Connector) pollOnce(ctx context.Context) {
	c.mu.RLock()
	symbols := append([]string(nil), c.symbols...)
	c.mu.RUnlock()

	now := time.Now()
	for _, sym := range symbols {
		c.failover.CheckStaleness(sym, now)
		if c.failover.State(sym) == StateFallback {
			continue
		}

		c.mu.RLock()
		pool, ok := c.pools[sym]
		c.mu.RUnlock()
		if !ok {
			c.failover.RecordFailure(sym, now)
			continue
		}

		price, err := c.readPrice(ctx, sym, pool)
		if err != nil {
			c.failover.RecordFailure(sym, now)
			c.log.Warn().Err(err).Str("symbol", sym).Msg("on-chain price read failed")
			continue
		}
		c.failover.RecordSuccess(sym, now)

		pd := PriceData{
			Symbol:       sym,
			Price:        price,
			Source:       SourceOnchain,
			TimestampMS:  now.UnixMilli(),
			PoolMetadata: &pool,
		}
		if err := c.cache.PutPrice(ctx, pd); err != nil {
			c.log.Warn().Err(err).Str("symbol", sym).Msg("failed to cache price")
		}
	}
}

func (c *Connector) readPrice(ctx context.Context, symbol string, pool PoolInfo) (float64, error) {
	_, decimals, ok := c.resolver.TokenAddress(symbol)
	if !ok {
		return 0, fmt.Errorf("no token address for %s", symbol)
	}
	usdtDecimals := c.cfg.TokenDecimals["USDT"]
	if usdtDecimals == 0 {
		usdtDecimals = 6
	}
	usdtIsToken0 := pool.Token0.Hex() == c.cfg.USDTAddress

	switch pool.Version {
	case V2:
		reservesData := noArgCall("getReserves()")
		results, err := c.rpc.Aggregate(ctx, []Call{{Target: pool.Address, Data: reservesData}})
		if err != nil || len(results) != 1 {
			return 0, fmt.Errorf("v2 reserves read: %w", err)
		}
		r0, r1, err := unpackReserves(results[0])
		if err != nil {
			return 0, err
		}
		reserveUSDT, reserveToken := r1, r0
		if usdtIsToken0 {
			reserveUSDT, reserveToken = r0, r1
		}
		return PriceV2(reserveUSDT, reserveToken, usdtDecimals, decimals, usdtIsToken0), nil
	case V3:
		slot0Data := noArgCall("slot0()")
		results, err := c.rpc.Aggregate(ctx, []Call{{Target: pool.Address, Data: slot0Data}})
		if err != nil || len(results) != 1 {
			return 0, fmt.Errorf("v3 slot0 read: %w", err)
		}
		sqrtPriceX96, _, err := unpackSlot0(results[0])
		if err != nil {
			return 0, err
		}
		if usdtIsToken0 {
			return PriceV3(sqrtPriceX96, usdtDecimals, decimals, usdtIsToken0), nil
		}
		return PriceV3(sqrtPriceX96, decimals, usdtDecimals, usdtIsToken0), nil
	default:
		return 0, fmt.Errorf("unknown pool version %q", pool.Version)
	}
}

// GetPrice returns just the numeric price, falling over to the exchange
// feed when the symbol is in FALLBACK state.
func (c *Connector) GetPrice(ctx context.Context, symbol string) (float64, error) {
	pd, err := c.GetPriceData(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return pd.Price, nil
}

// GetPriceData returns the full price record, resolving fallback sourcing
// when the symbol's state machine has tripped to FALLBACK.
func (c *Connector) GetPriceData(ctx context.Context, symbol string) (PriceData, error) {
	if c.failover.State(symbol) == StateFallback {
		if c.fallback != nil {
			if price, ok := c.fallback.LatestPrice(symbol); ok {
				return PriceData{
					Symbol:      symbol,
					Price:       price,
					Source:      SourceFallback,
					IsFallback:  true,
					TimestampMS: time.Now().UnixMilli(),
				}, nil
			}
		}
		return PriceData{}, fmt.Errorf("symbol %s in fallback with no exchange price available", symbol)
	}

	pd, ok := c.cache.GetPrice(ctx, symbol)
	if !ok {
		return PriceData{}, fmt.Errorf("no cached on-chain price for %s", symbol)
	}
	return *pd, nil
}

// GetAllPrices returns the latest price for every tracked symbol, skipping
// ones with no price yet available rather than erroring the whole batch.
func (c *Connector) GetAllPrices(ctx context.Context) map[string]PriceData {
	c.mu.RLock()
	symbols := append([]string(nil), c.symbols...)
	c.mu.RUnlock()

	out := make(map[string]PriceData, len(symbols))
	for _, sym := range symbols {
		if pd, err := c.GetPriceData(ctx, sym); err == nil {
			out[sym] = pd
		}
	}
	return out
}

// GetSystemStatus reports the connector's current failover map and pool
// bindings for the read-only status surface.
func (c *Connector) GetSystemStatus() SystemStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return SystemStatus{
		Symbols:      c.failover.Snapshot(),
		PoolsBound:   len(c.pools),
		LastRoundDur: c.lastRound,
	}
}
