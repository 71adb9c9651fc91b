package opc

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

func TestMethodSelector_IsFourBytes(t *testing.T) {
	sel := methodSelector("getReserves()")
	if len(sel) != 4 {
		t.Fatalf("expected a 4-byte selector, got %d bytes", len(sel))
	}
}

func TestMethodSelector_KnownERC20BalanceOf(t *testing.T) {
	// balanceOf(address) has the well-known selector 0x70a08231.
	sel := methodSelector("balanceOf(address)")
	want := []byte{0x70, 0xa0, 0x82, 0x31}
	for i := range want {
		if sel[i] != want[i] {
			t.Fatalf("expected selector %x, got %x", want, sel)
		}
	}
}

func TestPackAddressAddress_PrependsSelector(t *testing.T) {
	a := common.HexToAddress("0x1111111111111111111111111111111111111111")
	b := common.HexToAddress("0x2222222222222222222222222222222222222222")

	packed, err := packAddressAddress("getPair(address,address)", a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(packed) != 4+32+32 {
		t.Fatalf("expected a 4-byte selector plus two 32-byte words, got %d bytes", len(packed))
	}
}

func TestUnpackReserves_RoundTrips(t *testing.T) {
	u112, _ := abi.NewType("uint112", "", nil)
	u32, _ := abi.NewType("uint32", "", nil)
	args := abi.Arguments{{Type: u112}, {Type: u112}, {Type: u32}}
	encoded, err := args.Pack(big.NewInt(1000), big.NewInt(2000), uint32(123))
	if err != nil {
		t.Fatalf("unexpected pack error: %v", err)
	}

	r0, r1, err := unpackReserves(encoded)
	if err != nil {
		t.Fatalf("unexpected unpack error: %v", err)
	}
	if r0.Cmp(big.NewInt(1000)) != 0 || r1.Cmp(big.NewInt(2000)) != 0 {
		t.Errorf("expected reserves (1000, 2000), got (%s, %s)", r0, r1)
	}
}

func TestUnpackAddress_RoundTrips(t *testing.T) {
	want := common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	addrTy, _ := abi.NewType("address", "", nil)
	args := abi.Arguments{{Type: addrTy}}
	encoded, err := args.Pack(want)
	if err != nil {
		t.Fatalf("unexpected pack error: %v", err)
	}

	got, err := unpackAddress(encoded)
	if err != nil {
		t.Fatalf("unexpected unpack error: %v", err)
	}
	if got != want {
		t.Errorf("expected address %s, got %s", want.Hex(), got.Hex())
	}
}

func TestUnpackUint_RoundTrips(t *testing.T) {
	u256, _ := abi.NewType("uint256", "", nil)
	args := abi.Arguments{{Type: u256}}
	encoded, err := args.Pack(big.NewInt(987654321))
	if err != nil {
		t.Fatalf("unexpected pack error: %v", err)
	}

	got, err := unpackUint(encoded)
	if err != nil {
		t.Fatalf("unexpected unpack error: %v", err)
	}
	if got.Cmp(big.NewInt(987654321)) != 0 {
		t.Errorf("expected 987654321, got %s", got)
	}
}
