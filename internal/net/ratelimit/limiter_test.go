package ratelimit

import (
	"testing"
	"time"
)

func TestSlidingHourLimiter_SixAttemptsFiveAdmitted(t *testing.T) {
	limiter := NewSlidingHourLimiter(5, time.Hour, 100)
	base := time.Now()

	var admitted int
	for i := 0; i < 6; i++ {
		if limiter.Allow("BTC-USD", base.Add(time.Duration(i)*time.Minute)) {
			admitted++
		}
	}
	if admitted != 5 {
		t.Fatalf("expected exactly 5 of 6 attempts within the hour to be admitted, got %d", admitted)
	}
	if got := limiter.Count("BTC-USD", base.Add(6*time.Minute)); got != 5 {
		t.Errorf("expected 5 events recorded in the window, got %d", got)
	}
}

func TestSlidingHourLimiter_WindowExpiry(t *testing.T) {
	limiter := NewSlidingHourLimiter(2, time.Hour, 100)
	base := time.Now()

	if !limiter.Allow("ETH-USD", base) {
		t.Fatal("first attempt should be admitted")
	}
	if !limiter.Allow("ETH-USD", base.Add(time.Minute)) {
		t.Fatal("second attempt should be admitted")
	}
	if limiter.Allow("ETH-USD", base.Add(2*time.Minute)) {
		t.Fatal("third attempt within the window should be rejected")
	}

	// Past the one-hour window, the earliest events fall out and capacity frees up.
	if !limiter.Allow("ETH-USD", base.Add(61*time.Minute)) {
		t.Fatal("attempt past the one-hour window should be admitted once old events expire")
	}
}

func TestSlidingHourLimiter_PerKeyIndependence(t *testing.T) {
	limiter := NewSlidingHourLimiter(1, time.Hour, 100)
	now := time.Now()

	if !limiter.Allow("BTC-USD", now) {
		t.Fatal("first BTC-USD attempt should be admitted")
	}
	if !limiter.Allow("ETH-USD", now) {
		t.Fatal("ETH-USD has its own independent budget and should be admitted")
	}
	if limiter.Allow("BTC-USD", now) {
		t.Fatal("second BTC-USD attempt should be rejected, capacity is 1")
	}
}

func TestSlidingHourLimiter_MaxDequeBound(t *testing.T) {
	limiter := NewSlidingHourLimiter(1000, time.Hour, 3)
	now := time.Now()
	for i := 0; i < 10; i++ {
		limiter.Allow("BTC-USD", now.Add(time.Duration(i)*time.Second))
	}
	if got := limiter.Count("BTC-USD", now.Add(10*time.Second)); got > 3 {
		t.Errorf("deque should be bounded to maxDeque=3 regardless of capacity, got %d", got)
	}
}
