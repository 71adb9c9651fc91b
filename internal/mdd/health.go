package mdd

import (
	"context"
	"math"
	"time"
)

// ConnectionHealth is the one-way notification surfaced by the health
// monitor. Per §9's open question, this feeds the reconnection backoff
// controller only — nothing in this package lets health output gate
// inbound message processing.
type ConnectionHealth struct {
	Exchange         string
	HeartbeatOK      bool
	StalePrice       bool
	CrossExchangeDev bool
	ExtremeMove      bool
}

// healthMonitor runs at 30s cadence (§4.1) checking heartbeat freshness,
// price staleness, and cross-exchange deviation, then publishes
// ConnectionHealth on TopicStatus.
func (d *Driver) healthMonitor(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.runHealthPass()
		case <-ctx.Done():
			return
		}
	}
}

func (d *Driver) runHealthPass() {
	d.mu.Lock()
	sessions := make(map[string]*Session, len(d.sessions))
	for k, v := range d.sessions {
		sessions[k] = v
	}
	d.mu.Unlock()

	latest := make(map[string]MarketDataSnapshot)
	for exchange := range sessions {
		for _, symbol := range d.knownSymbols() {
			if s, ok := d.ring.Latest(symbol); ok && s.SourceExchange == exchange {
				latest[exchange+":"+symbol] = s
			}
		}
	}

	staleness := time.Duration(d.cfg.StalenessThresholdSec) * time.Second
	if staleness == 0 {
		staleness = 10 * time.Second
	}

	for exchange, sess := range sessions {
		health := ConnectionHealth{
			Exchange:    exchange,
			HeartbeatOK: sess.Healthy(),
		}
		for key, snap := range latest {
			if key[:len(exchange)] != exchange {
				continue
			}
			age := time.Since(time.UnixMilli(snap.TimestampMS))
			if age > staleness {
				health.StalePrice = true
			}
		}
		d.bus.Publish(TopicStatus, health)
	}

	d.checkCrossExchangeDeviation(latest)
}

// knownSymbols returns the distinct symbols seen since Start, since the
// ring buffer is keyed by push order rather than by symbol.
func (d *Driver) knownSymbols() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.trackedSymbols))
	for sym := range d.trackedSymbols {
		out = append(out, sym)
	}
	return out
}

// checkCrossExchangeDeviation flags (without dropping) symbols whose price
// differs by more than 1% across exchanges in the same pass (§4.1).
func (d *Driver) checkCrossExchangeDeviation(latest map[string]MarketDataSnapshot) {
	bySymbol := make(map[string][]float64)
	for key, snap := range latest {
		symbol := key[len(snap.SourceExchange)+1:]
		bySymbol[symbol] = append(bySymbol[symbol], snap.Price)
	}
	for symbol, prices := range bySymbol {
		if len(prices) < 2 {
			continue
		}
		min, max := prices[0], prices[0]
		for _, p := range prices {
			if p < min {
				min = p
			}
			if p > max {
				max = p
			}
		}
		if min <= 0 {
			continue
		}
		if (max-min)/min > 0.01 {
			d.bus.Publish(TopicStatus, ConnectionHealth{Exchange: symbol, CrossExchangeDev: true})
		}
	}
}

// extremeMove reports whether a single-exchange price change over 1 minute
// exceeds 10% — flagged, never dropped, and only "in extreme market" is this
// exempted from being treated as anomalous noise (§4.1).
func extremeMove(changePct float64, isExtremeMarket bool) bool {
	if isExtremeMarket {
		return false
	}
	return math.Abs(changePct) >= 0.10
}
