package opc

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sawpanic/signalcore/internal/logging"
)

const (
	failureWindow        = 30 * time.Second
	failureThreshold     = 3
	minFallbackDwell     = 60 * time.Second
	stalenessTriggerDflt = 10 * time.Second
)

// symbolFailover tracks one symbol's ONCHAIN_PRIMARY/FALLBACK state (§4.2).
type symbolFailover struct {
	state          FailoverState
	failureTimes   []time.Time
	fellBackAt     time.Time
	lastOnchainAt  time.Time
}

// FailoverTracker runs the per-symbol failover state machine independently
// for every symbol, matching the spec's per-symbol (not global) scoping.
type FailoverTracker struct {
	mu                sync.Mutex
	symbols           map[string]*symbolFailover
	stalenessTrigger  time.Duration
	log               zerolog.Logger
}

func NewFailoverTracker(stalenessTrigger time.Duration) *FailoverTracker {
	if stalenessTrigger <= 0 {
		stalenessTrigger = stalenessTriggerDflt
	}
	return &FailoverTracker{
		symbols:          make(map[string]*symbolFailover),
		stalenessTrigger: stalenessTrigger,
		log:              logging.Component("opc.failover"),
	}
}

func (f *FailoverTracker) stateFor(symbol string) *symbolFailover {
	s, ok := f.symbols[symbol]
	if !ok {
		s = &symbolFailover{state: StateOnchainPrimary}
		f.symbols[symbol] = s
	}
	return s
}

// RecordSuccess marks a successful on-chain read. It recovers a symbol from
// FALLBACK back to ONCHAIN_PRIMARY only once the minimum dwell time has
// elapsed (§4.2 "at least 60s in fallback before a recovery probe can
// succeed").
func (f *FailoverTracker) RecordSuccess(symbol string, now time.Time) FailoverState {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.stateFor(symbol)
	s.lastOnchainAt = now
	s.failureTimes = nil

	if s.state == StateFallback && now.Sub(s.fellBackAt) >= minFallbackDwell {
		s.state = StateOnchainPrimary
		f.log.Info().Str("symbol", symbol).Msg("recovered to onchain primary")
	}
	return s.state
}

// RecordFailure registers an on-chain read failure. Three failures inside a
// rolling 30s window trips the symbol into FALLBACK (§4.2).
func (f *FailoverTracker) RecordFailure(symbol string, now time.Time) FailoverState {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.stateFor(symbol)
	s.failureTimes = append(s.failureTimes, now)
	s.failureTimes = pruneOlderThan(s.failureTimes, now, failureWindow)

	switch s.state {
	case StateOnchainPrimary:
		if len(s.failureTimes) >= failureThreshold {
			s.state = StateFallback
			s.fellBackAt = now
			f.log.Warn().Str("symbol", symbol).Int("failures", len(s.failureTimes)).Msg("tripped to fallback")
		}
	case StateFallback:
		// A failed recovery probe resets the 60s dwell timer from this
		// failure rather than the original trip (§4.2).
		s.fellBackAt = now
	}
	return s.state
}

// CheckStaleness forces FALLBACK if the last successful on-chain read is
// older than the staleness trigger, independent of the failure counter
// (§4.2 "staleness OR consecutive failures").
func (f *FailoverTracker) CheckStaleness(symbol string, now time.Time) FailoverState {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.stateFor(symbol)
	if s.state == StateOnchainPrimary && !s.lastOnchainAt.IsZero() && now.Sub(s.lastOnchainAt) > f.stalenessTrigger {
		s.state = StateFallback
		s.fellBackAt = now
		f.log.Warn().Str("symbol", symbol).Dur("staleFor", now.Sub(s.lastOnchainAt)).Msg("tripped to fallback on staleness")
	}
	return s.state
}

func (f *FailoverTracker) State(symbol string) FailoverState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stateFor(symbol).state
}

func (f *FailoverTracker) Snapshot() map[string]FailoverState {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]FailoverState, len(f.symbols))
	for sym, s := range f.symbols {
		out[sym] = s.state
	}
	return out
}

func pruneOlderThan(ts []time.Time, now time.Time, window time.Duration) []time.Time {
	i := 0
	for i < len(ts) && now.Sub(ts[i]) > window {
		i++
	}
	return ts[i:]
}
