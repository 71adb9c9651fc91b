package opc

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestIsMainstream_MatchesConfiguredList(t *testing.T) {
	list := []string{"BTC-USD", "ETH-USD"}
	if !isMainstream("BTC-USD", list) {
		t.Error("expected BTC-USD to match the mainstream list")
	}
	if isMainstream("DOGE-USD", list) {
		t.Error("DOGE-USD is not in the list and must not match")
	}
}

func TestIsMainstream_EmptyListMatchesNothing(t *testing.T) {
	if isMainstream("BTC-USD", nil) {
		t.Error("an empty mainstream list must never match")
	}
}

func TestOtherToken_ReturnsTheNonMatchingSide(t *testing.T) {
	a := common.HexToAddress("0x1111111111111111111111111111111111111111")
	b := common.HexToAddress("0x2222222222222222222222222222222222222222")

	if got := otherToken(a, a, b); got != b {
		t.Errorf("expected b when token0 matches a, got %s", got.Hex())
	}
	if got := otherToken(b, a, b); got != a {
		t.Errorf("expected a when token0 does not match a, got %s", got.Hex())
	}
}
