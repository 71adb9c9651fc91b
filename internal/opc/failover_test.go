package opc

import (
	"testing"
	"time"
)

func TestFailoverTracker_ThreeFailuresTripFallback(t *testing.T) {
	tracker := NewFailoverTracker(10 * time.Second)
	base := time.Now()

	if got := tracker.State("BTC-USD"); got != StateOnchainPrimary {
		t.Fatalf("a fresh symbol should start ONCHAIN_PRIMARY, got %s", got)
	}

	tracker.RecordFailure("BTC-USD", base)
	if got := tracker.State("BTC-USD"); got != StateOnchainPrimary {
		t.Fatalf("one failure must not trip fallback, got %s", got)
	}

	tracker.RecordFailure("BTC-USD", base.Add(5*time.Second))
	if got := tracker.State("BTC-USD"); got != StateOnchainPrimary {
		t.Fatalf("two failures must not trip fallback, got %s", got)
	}

	got := tracker.RecordFailure("BTC-USD", base.Add(10*time.Second))
	if got != StateFallback {
		t.Fatalf("the third failure inside the 30s window must trip fallback, got %s", got)
	}
}

func TestFailoverTracker_RecoveryRequiresMinimumDwell(t *testing.T) {
	tracker := NewFailoverTracker(10 * time.Second)
	base := time.Now()

	tracker.RecordFailure("ETH-USD", base)
	tracker.RecordFailure("ETH-USD", base.Add(1*time.Second))
	tracker.RecordFailure("ETH-USD", base.Add(2*time.Second))
	if got := tracker.State("ETH-USD"); got != StateFallback {
		t.Fatalf("expected fallback after three failures, got %s", got)
	}

	// A success before the 60s dwell has elapsed must not recover the symbol.
	if got := tracker.RecordSuccess("ETH-USD", base.Add(30*time.Second)); got != StateFallback {
		t.Fatalf("recovery before the 60s minimum dwell must not succeed, got %s", got)
	}

	// A success at/after the 60s dwell recovers the symbol.
	if got := tracker.RecordSuccess("ETH-USD", base.Add(2*time.Second).Add(60*time.Second)); got != StateOnchainPrimary {
		t.Fatalf("expected recovery to ONCHAIN_PRIMARY after the dwell elapsed, got %s", got)
	}
}

func TestFailoverTracker_FailuresOutsideWindowDoNotAccumulate(t *testing.T) {
	tracker := NewFailoverTracker(10 * time.Second)
	base := time.Now()

	tracker.RecordFailure("SOL-USD", base)
	tracker.RecordFailure("SOL-USD", base.Add(40*time.Second)) // outside the 30s window from the first

	if got := tracker.State("SOL-USD"); got != StateOnchainPrimary {
		t.Fatalf("failures more than 30s apart must not accumulate toward the trip threshold, got %s", got)
	}
}

func TestFailoverTracker_StalenessTripsIndependentlyOfFailureCount(t *testing.T) {
	tracker := NewFailoverTracker(10 * time.Second)
	base := time.Now()

	tracker.RecordSuccess("BTC-USD", base)
	got := tracker.CheckStaleness("BTC-USD", base.Add(11*time.Second))
	if got != StateFallback {
		t.Fatalf("a stale last-success should trip fallback even with zero recorded failures, got %s", got)
	}
}

func TestFailoverTracker_FailedRecoveryProbeResetsDwellTimer(t *testing.T) {
	tracker := NewFailoverTracker(10 * time.Second)
	base := time.Now()

	tracker.RecordFailure("ETH-USD", base)
	tracker.RecordFailure("ETH-USD", base.Add(1*time.Second))
	tracker.RecordFailure("ETH-USD", base.Add(2*time.Second))
	if got := tracker.State("ETH-USD"); got != StateFallback {
		t.Fatalf("expected fallback after three failures, got %s", got)
	}

	// A failed recovery probe well after the original trip, but still
	// followed by a success only 30s later, must not recover the symbol:
	// the failure should have pushed the dwell timer out another 60s.
	probeAt := base.Add(70 * time.Second)
	if got := tracker.RecordFailure("ETH-USD", probeAt); got != StateFallback {
		t.Fatalf("a failed recovery probe must keep the symbol in fallback, got %s", got)
	}

	if got := tracker.RecordSuccess("ETH-USD", probeAt.Add(30*time.Second)); got != StateFallback {
		t.Fatalf("recovery 30s after a failed probe must not succeed once the probe reset the dwell timer, got %s", got)
	}

	if got := tracker.RecordSuccess("ETH-USD", probeAt.Add(60*time.Second)); got != StateOnchainPrimary {
		t.Fatalf("expected recovery once 60s elapsed from the last failed probe, got %s", got)
	}
}

func TestFailoverTracker_PerSymbolIndependence(t *testing.T) {
	tracker := NewFailoverTracker(10 * time.Second)
	base := time.Now()

	for i := 0; i < 3; i++ {
		tracker.RecordFailure("BTC-USD", base.Add(time.Duration(i)*time.Second))
	}
	if got := tracker.State("BTC-USD"); got != StateFallback {
		t.Fatalf("expected BTC-USD in fallback, got %s", got)
	}
	if got := tracker.State("ETH-USD"); got != StateOnchainPrimary {
		t.Fatalf("ETH-USD's state must be unaffected by BTC-USD's failures, got %s", got)
	}
}
