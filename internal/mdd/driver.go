package mdd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sawpanic/signalcore/internal/config"
	"github.com/sawpanic/signalcore/internal/logging"
)

// Stage identifies a pipeline layer for budget-breach logging.
type Stage string

const (
	StageL0Connection Stage = "L0_connection"
	StageL1Ingestion  Stage = "L1_ingestion"
	StageL2Processing Stage = "L2_processing"
	StageL3Distrib    Stage = "L3_distribution"
)

var stageBudget = map[Stage]time.Duration{
	StageL0Connection: 2 * time.Millisecond,
	StageL1Ingestion:  3 * time.Millisecond,
	StageL2Processing: 4 * time.Millisecond,
	StageL3Distrib:    3 * time.Millisecond,
}

// Status is returned by get_status.
type Status struct {
	UptimeSeconds  float64
	Connections    map[string]bool
	Degraded       map[string]bool
	MessageRates   map[string]float64
	BufferOccupancy float64
	BudgetBreaches  map[Stage]int64
}

// Driver is the Market Data Driver's public contract: start, stop,
// subscribe, get_latest_snapshot, get_status (§4.1).
type Driver struct {
	cfg config.MDD
	log zerolog.Logger

	bus    *Bus
	ring   *RingBuffer
	proc   *Processor

	mu        sync.Mutex
	sessions  map[string]*Session
	running   bool
	startedAt time.Time
	cancel    context.CancelFunc

	msgCounts      map[string]int64
	breaches       map[Stage]int64
	droppedCnt     int64
	trackedSymbols map[string]struct{}
}

// NewDriver constructs a driver that has not yet started any sessions.
func NewDriver(cfg config.MDD) *Driver {
	d := &Driver{
		cfg:       cfg,
		log:       logging.Component("mdd"),
		bus:       NewBus(),
		proc:      NewProcessor(),
		sessions:       make(map[string]*Session),
		msgCounts:      make(map[string]int64),
		breaches:       make(map[Stage]int64),
		trackedSymbols: make(map[string]struct{}),
	}
	d.ring = NewRingBuffer(cfg.BufferSize, func() {
		d.mu.Lock()
		d.droppedCnt++
		d.mu.Unlock()
	})
	return d
}

// Start opens one session per configured (exchange, endpoint). Idempotent
// while running.
func (d *Driver) Start(ctx context.Context, symbols []string) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}

	if len(d.cfg.Endpoints) == 0 {
		d.mu.Unlock()
		return fmt.Errorf("market data driver: no exchange endpoints configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running = true
	d.startedAt = time.Now()

	reconnectDelays := make([]time.Duration, 0, len(d.cfg.ReconnectDelaysSeconds))
	for _, s := range d.cfg.ReconnectDelaysSeconds {
		reconnectDelays = append(reconnectDelays, time.Duration(s)*time.Second)
	}
	if len(reconnectDelays) == 0 {
		reconnectDelays = []time.Duration{0, time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	}

	for exchange, url := range d.cfg.Endpoints {
		sess := NewSession(exchange, url, d.cfg.HeartbeatInterval, reconnectDelays, d.log)
		d.sessions[exchange] = sess
		go func(s *Session) {
			_ = s.Run(runCtx)
		}(sess)
		go d.consume(runCtx, sess)
	}
	d.mu.Unlock()

	d.publishStatusTransition("STARTING")
	d.publishStatusTransition("RUNNING")
	go d.healthMonitor(runCtx)

	return nil
}

// Stop gracefully drains in-flight messages and closes sessions within the
// configured grace window (§5, default 5s).
func (d *Driver) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	cancel := d.cancel
	d.mu.Unlock()

	d.publishStatusTransition("STOPPING")
	if cancel != nil {
		cancel()
	}
	time.Sleep(100 * time.Millisecond) // allow in-flight frames to drain
	d.publishStatusTransition("STOPPED")
}

func (d *Driver) publishStatusTransition(state string) {
	d.bus.Publish(TopicStatus, map[string]interface{}{"state": state, "at": time.Now().UnixMilli()})
}

// Subscribe registers cb on topic.
func (d *Driver) Subscribe(topic Topic, cb Callback) { d.bus.Subscribe(topic, cb) }

// GetLatestSnapshot returns the most recent enriched tick for symbol.
func (d *Driver) GetLatestSnapshot(symbol string) (MarketDataSnapshot, bool) {
	return d.ring.Latest(symbol)
}

// GetStatus implements get_status (§4.1 public contract).
func (d *Driver) GetStatus() Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	conns := make(map[string]bool)
	degraded := make(map[string]bool)
	for ex, s := range d.sessions {
		conns[ex] = s.Healthy()
		degraded[ex] = s.Degraded()
	}

	rates := make(map[string]float64)
	for ex, c := range d.msgCounts {
		elapsed := time.Since(d.startedAt).Seconds()
		if elapsed > 0 {
			rates[ex] = float64(c) / elapsed
		}
	}

	return Status{
		UptimeSeconds:   time.Since(d.startedAt).Seconds(),
		Connections:     conns,
		Degraded:        degraded,
		MessageRates:    rates,
		BufferOccupancy: d.ring.Occupancy(),
		BudgetBreaches:  copyBreaches(d.breaches),
	}
}

func copyBreaches(in map[Stage]int64) map[Stage]int64 {
	out := make(map[Stage]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// consume runs L1->L2->L3 for every message a session produces, preserving
// arrival order within the symbol (§5 ordering guarantees).
func (d *Driver) consume(ctx context.Context, sess *Session) {
	parser := NewParser(sess.Exchange)

	for raw := range sess.Messages() {
		l1Start := time.Now()
		tick, err := parser.Parse(raw.Payload)
		if err != nil {
			d.log.Warn().Err(err).Str("exchange", sess.Exchange).Msg("failed to parse frame")
			continue
		}
		d.checkBudget(StageL1Ingestion, l1Start)

		d.mu.Lock()
		d.msgCounts[sess.Exchange]++
		d.trackedSymbols[tick.Symbol] = struct{}{}
		d.mu.Unlock()

		l2Start := time.Now()
		latency := time.Since(raw.ReceivedAt)
		quality := qualityFor(tick, latency)
		snap, dup := d.proc.Process(tick, quality, latency)
		if dup {
			continue // de-duplicated within last 5 messages, §4.1 L2
		}
		if !snap.Valid(time.Now()) {
			snap.IsAnomaly = true
			if snap.AnomalyType == AnomalyNone {
				snap.AnomalyType = AnomalyTimestampWindow
			}
		}
		d.checkBudget(StageL2Processing, l2Start)

		l3Start := time.Now()
		d.ring.Push(snap)
		for _, topic := range routesFor(TopicTicker) {
			d.bus.Publish(topic, snap)
		}
		d.checkBudget(StageL3Distrib, l3Start)

		if ctx.Err() != nil {
			return
		}
	}
}

func qualityFor(t ingestTick, latency time.Duration) float64 {
	q := 1.0
	if t.Anomaly != AnomalyNone {
		q -= 0.3
	}
	if latency > 12*time.Millisecond {
		q -= 0.2
	}
	if q < 0 {
		q = 0
	}
	return q
}

func (d *Driver) checkBudget(stage Stage, start time.Time) {
	elapsed := time.Since(start)
	if elapsed > stageBudget[stage] {
		d.mu.Lock()
		d.breaches[stage]++
		d.mu.Unlock()
		d.log.Warn().Str("stage", string(stage)).Dur("elapsed", elapsed).Dur("budget", stageBudget[stage]).Msg("stage budget breached")
	}
}
