package mdd

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testSession() *Session {
	delays := []time.Duration{0, time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	return NewSession("binance", "wss://example.test", time.Second, delays, zerolog.Nop())
}

func TestSession_HealthyBeforeConnectIsFalse(t *testing.T) {
	s := testSession()
	if s.Healthy() {
		t.Error("a session that never connected must not report healthy")
	}
}

func TestSession_BackoffDelayFollowsTableThenCapsAtLast(t *testing.T) {
	s := testSession()
	if d := s.backoffDelay(); d != 0 {
		t.Errorf("expected the first backoff delay to be 0, got %s", d)
	}
	s.attempt = 4
	if d := s.backoffDelay(); d != 8*time.Second {
		t.Errorf("expected the table's last entry at attempt 4, got %s", d)
	}
	s.attempt = 20
	if d := s.backoffDelay(); d != 8*time.Second {
		t.Errorf("expected the delay to cap at the table's last entry past the table length, got %s", d)
	}
}

func TestSession_DegradedDefaultsFalse(t *testing.T) {
	s := testSession()
	if s.Degraded() {
		t.Error("a fresh session must not start degraded")
	}
}
