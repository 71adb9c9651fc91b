package mdd

import "testing"

func TestExtremeMove_FlagsTenPercentMove(t *testing.T) {
	if !extremeMove(0.15, false) {
		t.Error("a 15% move in a normal market should be flagged extreme")
	}
	if extremeMove(0.05, false) {
		t.Error("a 5% move must not be flagged extreme")
	}
}

func TestExtremeMove_ExemptDuringExtremeMarket(t *testing.T) {
	if extremeMove(0.5, true) {
		t.Error("an already-flagged extreme market must not double-flag further moves")
	}
}
