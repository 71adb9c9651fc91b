package app

import "github.com/sawpanic/signalcore/internal/mdd"

// mddFallbackFeed adapts the market data driver's snapshot store into
// opc.FallbackFeed, the price source OPC reads from once a symbol trips
// into FALLBACK state.
type mddFallbackFeed struct {
	driver *mdd.Driver
}

func (f mddFallbackFeed) LatestPrice(symbol string) (float64, bool) {
	snap, ok := f.driver.GetLatestSnapshot(symbol)
	if !ok {
		return 0, false
	}
	return snap.Price, true
}
