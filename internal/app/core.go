package app

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/sawpanic/signalcore/internal/config"
	"github.com/sawpanic/signalcore/internal/httpapi"
	"github.com/sawpanic/signalcore/internal/ite"
	"github.com/sawpanic/signalcore/internal/logging"
	"github.com/sawpanic/signalcore/internal/mdd"
	"github.com/sawpanic/signalcore/internal/metrics"
	"github.com/sawpanic/signalcore/internal/opc"
	"github.com/sawpanic/signalcore/internal/persistence/decisiondb"
	"github.com/sawpanic/signalcore/internal/persistence/pooldb"
	"github.com/sawpanic/signalcore/internal/uscp"
)

// Core wires the six components and their supporting infrastructure into a
// single runnable process: the market data driver feeds the trigger engine,
// Phase-1A, Phase-1B, and the raw indicator detectors; the on-chain price
// connector runs as a peer feed; and the candidate pool fuses every
// upstream source behind the read-only HTTP status surface.
type Core struct {
	cfg   config.Config
	conns config.Connections
	log   zerolog.Logger

	driver     *mdd.Driver
	connector  *opc.Connector
	priceCache *opc.Cache
	engine     *ite.Engine
	pool       *uscp.Pool
	registry   *metrics.Registry
	server     *httpapi.Server

	ite        *ITECollector
	phase1a    *Phase1ACollector
	phase1b    *Phase1BCollector
	indicators *IndicatorsCollector
	market     *MarketContextAdapter

	poolRepo     *pooldb.Repository
	decisionRepo *decisiondb.Repository

	symbols    []string
	stopSweep  chan struct{}
	candidates chan uscp.StandardizedSignal
}

// New assembles every component without starting any background work.
func New(cfg config.Config, conns config.Connections, symbols []string) (*Core, error) {
	c := &Core{
		cfg:        cfg,
		conns:      conns,
		log:        logging.Component("app.core"),
		symbols:    symbols,
		stopSweep:  make(chan struct{}),
		candidates: make(chan uscp.StandardizedSignal, 256),
	}

	c.driver = mdd.NewDriver(cfg.MDD)

	rpcPool, err := opc.NewRPCPool(cfg.OPC.RPCEndpoints, time.Duration(cfg.OPC.RPCTimeoutSec)*time.Second)
	if err != nil {
		c.log.Warn().Err(err).Msg("on-chain RPC pool unavailable, C2 will run in fallback-only mode")
	}

	rdb := redis.NewClient(&redis.Options{Addr: conns.RedisAddr})
	c.priceCache = opc.NewCache(rdb, time.Duration(cfg.OPC.PriceCacheDurationSec)*time.Second)
	resolver := NewStaticTokenResolver(cfg.OPC)
	if rpcPool != nil {
		c.connector = opc.NewConnector(cfg.OPC, rpcPool, c.priceCache, mddFallbackFeed{driver: c.driver}, resolver)
	}

	c.ite = NewITECollector()
	c.engine = ite.NewEngine(cfg.Trigger, c.ite.OnIntelligentSignal)

	c.phase1a = NewPhase1ACollector()
	c.phase1b = NewPhase1BCollector(0)
	c.indicators = NewIndicatorsCollector()
	c.market = NewMarketContextAdapter(c.phase1b.Filter())

	collectors := []uscp.SourceCollector{c.ite, c.phase1a, c.phase1b, c.indicators}
	c.pool = uscp.NewPool(cfg.USCP, collectors, c.market)
	c.pool.SetPriceLookup(c.currentPrice)

	c.registry = metrics.NewRegistry()
	c.registry.MustRegister(prometheus.DefaultRegisterer)

	server, err := httpapi.NewServer(httpapi.Config{
		Host: "127.0.0.1", Port: conns.HTTPPort,
		ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, IdleTimeout: 60 * time.Second,
	}, c)
	if err != nil {
		return nil, err
	}
	c.server = server

	if repo, err := pooldb.NewRepository(conns.MySQLDSN); err != nil {
		c.log.Warn().Err(err).Msg("pool-binding repository unavailable, continuing without durable pool checkpoints")
	} else {
		c.poolRepo = repo
	}

	if repo, err := decisiondb.NewRepository(conns.PostgresDSN, 5*time.Second); err != nil {
		c.log.Warn().Err(err).Msg("decision-history repository unavailable, learner will start cold every restart")
	} else {
		c.decisionRepo = repo
	}

	return c, nil
}

// currentPrice is the live reference price USCP anchors stop-loss/take-
// profit levels to: the on-chain connector when it has one, falling back
// to the market data driver's own last tick.
func (c *Core) currentPrice(symbol string) (float64, bool) {
	if c.connector != nil {
		if price, err := c.connector.GetPrice(context.Background(), symbol); err == nil {
			return price, true
		}
	}
	snap, ok := c.driver.GetLatestSnapshot(symbol)
	if !ok {
		return 0, false
	}
	return snap.Price, true
}

// Start launches the market data driver, the on-chain connector, the
// trigger engine's periodic sweep, and the candidate-generation and
// HTTP-serving goroutines. It returns once every subsystem has been asked
// to start; Start does not block.
func (c *Core) Start(ctx context.Context) error {
	if err := c.driver.Start(ctx, c.symbols); err != nil {
		return err
	}
	c.driver.Subscribe(mdd.TopicTicker, c.onTick)

	if c.connector != nil {
		c.connector.Start(ctx, c.symbols)
	}

	c.engine.Start(c.stopSweep)
	go c.pool.RunExpirySweeper(c.stopSweep, time.Minute)
	go c.generateLoop(ctx)
	go c.warmLearner(ctx)
	if c.poolRepo != nil {
		go c.persistPoolBindings(ctx)
	}

	go func() {
		if err := c.server.Start(); err != nil {
			c.log.Warn().Err(err).Msg("http status server stopped")
		}
	}()

	return nil
}

// Stop gracefully winds down every subsystem.
func (c *Core) Stop(ctx context.Context) {
	close(c.stopSweep)
	if c.connector != nil {
		c.connector.Stop()
	}
	c.driver.Stop()
	_ = c.server.Shutdown(ctx)
	if c.poolRepo != nil {
		_ = c.poolRepo.Close()
	}
	if c.decisionRepo != nil {
		_ = c.decisionRepo.Close()
	}
}

// onTick fans one market data snapshot out to every upstream collector that
// derives raw signals from price ticks (§2 dataflow: C1 ticks -> {C3, C4},
// with C5's volatility filter and the raw indicator detectors also reading
// C1's price channel directly).
func (c *Core) onTick(payload interface{}) {
	snap, ok := payload.(mdd.MarketDataSnapshot)
	if !ok {
		return
	}
	now := time.UnixMilli(snap.TimestampMS)

	c.market.observe(snap)
	c.engine.OnPriceUpdate(snap.Symbol, snap.Price, snap.Volume, snap.LiquidityRatio, now)
	c.phase1a.OnTick(snap.Symbol, snap.Price, snap.Volume, now)
	c.phase1b.OnTick(snap.Symbol, snap.Price, now)
	c.indicators.OnTick(snap.Symbol, snap.Price, snap.Volume, now)
}

// generateLoop runs one USCP pass per tracked symbol on a fixed cadence,
// publishing every surviving candidate to the Candidates channel and, when
// a pool-binding repository is configured, persisting the on-chain pool
// binding snapshot alongside it.
func (c *Core) generateLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(c.cfg.USCP.PerPassBudgetMS) * time.Millisecond * 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopSweep:
			return
		case <-ticker.C:
			for _, sym := range c.symbols {
				for _, sig := range c.pool.GenerateCandidates(sym) {
					select {
					case c.candidates <- sig:
					default:
						c.log.Warn().Str("symbol", sym).Msg("candidate channel full, dropping oldest-pending signal")
					}
				}
			}
		}
	}
}

// persistPoolBindings mirrors the connector's redis-cached pool bindings
// into the durable MySQL repository, so a full restart (redis included)
// still has a best-pool-per-symbol binding to serve from before the next
// hourly discovery pass completes.
func (c *Core) persistPoolBindings(ctx context.Context) {
	interval := time.Duration(c.cfg.OPC.PoolDiscoveryIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopSweep:
			return
		case <-ticker.C:
			for _, sym := range c.symbols {
				pool, ok := c.priceCache.GetPool(ctx, sym)
				if !ok {
					continue
				}
				if err := c.poolRepo.Upsert(sym, *pool); err != nil {
					c.log.Warn().Err(err).Str("symbol", sym).Msg("failed to persist pool binding")
				}
			}
		}
	}
}

// warmLearner replays recent persisted decisions into the adaptive learner
// so a restart does not start every source at a neutral weight.
func (c *Core) warmLearner(ctx context.Context) {
	if c.decisionRepo == nil {
		return
	}
	for _, source := range []string{"phase1a", "indicators", "phase1b", "ite"} {
		decisions, err := c.decisionRepo.RecentBySource(ctx, source, 10)
		if err != nil {
			c.log.Warn().Err(err).Str("source", source).Msg("failed to warm learner from decision history")
			continue
		}
		c.pool.LearnFromEPLFeedback(decisions)
	}
}

// Candidates exposes the stream of standardized signals downstream
// execution policy consumers subscribe to.
func (c *Core) Candidates() <-chan uscp.StandardizedSignal { return c.candidates }

// RecordEPLFeedback feeds execution-policy outcomes back into the adaptive
// learner and checkpoints them durably.
func (c *Core) RecordEPLFeedback(ctx context.Context, decisions []uscp.EPLDecision) {
	c.pool.LearnFromEPLFeedback(decisions)
	if c.decisionRepo != nil {
		if err := c.decisionRepo.Append(ctx, decisions); err != nil {
			c.log.Warn().Err(err).Msg("failed to persist EPL decision batch")
		}
	}
}

// --- httpapi.StatusProvider ---

func (c *Core) MDDStatus() interface{} { return c.driver.GetStatus() }

func (c *Core) OPCStatus() interface{} {
	if c.connector == nil {
		return map[string]string{"state": "disabled"}
	}
	return c.connector.GetSystemStatus()
}

func (c *Core) USCPPerformance() interface{} { return c.pool.GetPerformanceReport() }

func (c *Core) USCPCandidates(symbol string) interface{} {
	return c.pool.GetCandidatesForSymbol(symbol)
}
