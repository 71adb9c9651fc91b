package mdd

import "testing"

func TestProcess_FillsMissingPriceFromLastClose(t *testing.T) {
	p := NewProcessor()
	snap1, _ := p.Process(ingestTick{Symbol: "BTC-USD", TimestampMS: 1, Price: 100, Volume: 10}, 1.0, 0)
	if snap1.Price != 100 {
		t.Fatalf("expected first price to pass through, got %f", snap1.Price)
	}

	snap2, _ := p.Process(ingestTick{Symbol: "BTC-USD", TimestampMS: 2, Price: 0, Volume: 10}, 1.0, 0)
	if snap2.Price != 100 {
		t.Errorf("expected a zero price to be filled from the last close, got %f", snap2.Price)
	}
}

func TestProcess_DetectsDuplicateTimestamp(t *testing.T) {
	p := NewProcessor()
	p.Process(ingestTick{Symbol: "BTC-USD", TimestampMS: 100, Price: 50, Volume: 1}, 1.0, 0)
	_, dup := p.Process(ingestTick{Symbol: "BTC-USD", TimestampMS: 100, Price: 50, Volume: 1}, 1.0, 0)
	if !dup {
		t.Error("expected a repeated (symbol, timestamp) pair to be flagged a duplicate")
	}
}

func TestProcess_NoDuplicateAcrossDifferentSymbols(t *testing.T) {
	p := NewProcessor()
	p.Process(ingestTick{Symbol: "BTC-USD", TimestampMS: 100, Price: 50, Volume: 1}, 1.0, 0)
	_, dup := p.Process(ingestTick{Symbol: "ETH-USD", TimestampMS: 100, Price: 50, Volume: 1}, 1.0, 0)
	if dup {
		t.Error("the same timestamp on a different symbol must not be flagged a duplicate")
	}
}

func TestProcess_FlagsZScoreOutlier(t *testing.T) {
	p := NewProcessor()
	price := 100.0
	for i := 0; i < 10; i++ {
		p.Process(ingestTick{Symbol: "BTC-USD", TimestampMS: int64(i), Price: price, Volume: 10}, 1.0, 0)
	}
	snap, _ := p.Process(ingestTick{Symbol: "BTC-USD", TimestampMS: 10, Price: 100000, Volume: 10}, 1.0, 0)
	if !snap.IsAnomaly {
		t.Error("a wildly off price should be flagged as an outlier anomaly")
	}
}

func TestProcess_PriceChangePctReflectsDayRange(t *testing.T) {
	p := NewProcessor()
	p.Process(ingestTick{Symbol: "BTC-USD", TimestampMS: 1, Price: 100, Volume: 1}, 1.0, 0)
	p.Process(ingestTick{Symbol: "BTC-USD", TimestampMS: 2, Price: 200, Volume: 1}, 1.0, 0)
	snap, _ := p.Process(ingestTick{Symbol: "BTC-USD", TimestampMS: 3, Price: 150, Volume: 1}, 1.0, 0)

	if snap.PriceChangePct != 0.5 {
		t.Errorf("expected (150-100)/(200-100)=0.5 day-range position, got %f", snap.PriceChangePct)
	}
}

func TestZScoreOutlier_FlagsExtremeDeviation(t *testing.T) {
	history := []float64{100, 101, 99, 100, 102, 98, 101, 100}
	if !zScoreOutlier(history, 1000) {
		t.Error("expected a huge deviation to be flagged an outlier")
	}
	if zScoreOutlier(history, 100.5) {
		t.Error("a typical value should not be flagged an outlier")
	}
}

func TestIQROutlier_FlagsValuesOutsideFences(t *testing.T) {
	history := []float64{10, 11, 12, 10, 11, 12, 10, 11}
	if !iqrOutlier(history, 1000) {
		t.Error("expected a far-outside value to trip the IQR rule")
	}
	if iqrOutlier(history, 11) {
		t.Error("a value within the normal cluster should not trip the IQR rule")
	}
}
