package mdd

import "testing"

func TestRingBuffer_LatestReturnsMostRecentPerSymbol(t *testing.T) {
	r := NewRingBuffer(4, nil)
	r.Push(MarketDataSnapshot{Symbol: "BTC-USD", Price: 100})
	r.Push(MarketDataSnapshot{Symbol: "ETH-USD", Price: 10})
	r.Push(MarketDataSnapshot{Symbol: "BTC-USD", Price: 101})

	latest, ok := r.Latest("BTC-USD")
	if !ok {
		t.Fatal("expected a BTC-USD entry to be present")
	}
	if latest.Price != 101 {
		t.Errorf("expected the most recent BTC-USD price 101, got %f", latest.Price)
	}
}

func TestRingBuffer_LatestMissesUnknownSymbol(t *testing.T) {
	r := NewRingBuffer(4, nil)
	r.Push(MarketDataSnapshot{Symbol: "BTC-USD", Price: 100})
	if _, ok := r.Latest("DOGE-USD"); ok {
		t.Error("a symbol never pushed must not be found")
	}
}

func TestRingBuffer_OverflowDropsOldestAndInvokesOnDrop(t *testing.T) {
	drops := 0
	r := NewRingBuffer(2, func() { drops++ })
	r.Push(MarketDataSnapshot{Symbol: "BTC-USD", Price: 1})
	r.Push(MarketDataSnapshot{Symbol: "BTC-USD", Price: 2})
	r.Push(MarketDataSnapshot{Symbol: "BTC-USD", Price: 3})

	if drops != 1 {
		t.Errorf("expected exactly 1 onDrop call for a 2-capacity buffer's 3rd push, got %d", drops)
	}
	recent := r.Recent("BTC-USD", 10)
	if len(recent) != 2 {
		t.Fatalf("expected only 2 surviving entries, got %d", len(recent))
	}
	if recent[0].Price != 3 || recent[1].Price != 2 {
		t.Errorf("expected newest-first order [3, 2], got %+v", recent)
	}
}

func TestRingBuffer_OccupancyReflectsFillLevel(t *testing.T) {
	r := NewRingBuffer(4, nil)
	if o := r.Occupancy(); o != 0 {
		t.Errorf("expected 0 occupancy for an empty buffer, got %f", o)
	}
	r.Push(MarketDataSnapshot{Symbol: "BTC-USD"})
	r.Push(MarketDataSnapshot{Symbol: "BTC-USD"})
	if o := r.Occupancy(); o != 0.5 {
		t.Errorf("expected 0.5 occupancy after 2 of 4 slots filled, got %f", o)
	}
}

func TestRingBuffer_ZeroCapacityClampsToOne(t *testing.T) {
	r := NewRingBuffer(0, nil)
	r.Push(MarketDataSnapshot{Symbol: "BTC-USD", Price: 1})
	r.Push(MarketDataSnapshot{Symbol: "BTC-USD", Price: 2})

	recent := r.Recent("BTC-USD", 10)
	if len(recent) != 1 {
		t.Errorf("a non-positive capacity must clamp to 1 slot, got %d entries", len(recent))
	}
}
