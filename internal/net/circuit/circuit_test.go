package circuit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		OpenTimeout:      20 * time.Millisecond,
		CallTimeout:      50 * time.Millisecond,
	}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b := New("test", testConfig(), nil)
	failing := func(ctx context.Context) error { return errors.New("boom") }

	for i := 0; i < 3; i++ {
		_ = b.Do(context.Background(), failing)
	}
	if b.State() != Open {
		t.Fatalf("expected the breaker to open after 3 consecutive failures, state=%s", b.State())
	}
}

func TestBreaker_RejectsCallsWhileOpen(t *testing.T) {
	b := New("test", testConfig(), nil)
	failing := func(ctx context.Context) error { return errors.New("boom") }
	for i := 0; i < 3; i++ {
		_ = b.Do(context.Background(), failing)
	}

	err := b.Do(context.Background(), func(ctx context.Context) error { return nil })
	if !errors.Is(err, ErrOpen) {
		t.Errorf("expected ErrOpen while the breaker is open, got %v", err)
	}
}

func TestBreaker_HalfOpenAfterTimeoutThenClosesOnSuccesses(t *testing.T) {
	b := New("test", testConfig(), nil)
	failing := func(ctx context.Context) error { return errors.New("boom") }
	for i := 0; i < 3; i++ {
		_ = b.Do(context.Background(), failing)
	}

	time.Sleep(30 * time.Millisecond)

	ok := func(ctx context.Context) error { return nil }
	if err := b.Do(context.Background(), ok); err != nil {
		t.Fatalf("expected the probe call to succeed once half-open, got %v", err)
	}
	if err := b.Do(context.Background(), ok); err != nil {
		t.Fatalf("expected the second success to succeed, got %v", err)
	}
	if b.State() != Closed {
		t.Errorf("expected the breaker to close after SuccessThreshold consecutive successes, state=%s", b.State())
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := New("test", testConfig(), nil)
	failing := func(ctx context.Context) error { return errors.New("boom") }
	for i := 0; i < 3; i++ {
		_ = b.Do(context.Background(), failing)
	}
	time.Sleep(30 * time.Millisecond)

	_ = b.Do(context.Background(), failing)
	if b.State() != Open {
		t.Errorf("a failure while half-open must reopen the breaker, state=%s", b.State())
	}
}

func TestBreaker_CallTimeoutCountsAsFailure(t *testing.T) {
	cfg := testConfig()
	cfg.CallTimeout = 5 * time.Millisecond
	b := New("test", cfg, nil)

	slow := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	err := b.Do(context.Background(), slow)
	if !errors.Is(err, ErrCallTimeout) {
		t.Errorf("expected ErrCallTimeout for a call exceeding its deadline, got %v", err)
	}
	if b.Counts().Timeouts != 1 {
		t.Errorf("expected 1 recorded timeout, got %d", b.Counts().Timeouts)
	}
}

func TestBreaker_StateChangeCallbackFires(t *testing.T) {
	var transitions []State
	onChange := func(name string, from, to State) { transitions = append(transitions, to) }
	b := New("test", testConfig(), onChange)

	failing := func(ctx context.Context) error { return errors.New("boom") }
	for i := 0; i < 3; i++ {
		_ = b.Do(context.Background(), failing)
	}

	if len(transitions) != 1 || transitions[0] != Open {
		t.Errorf("expected exactly one transition to Open, got %+v", transitions)
	}
}
