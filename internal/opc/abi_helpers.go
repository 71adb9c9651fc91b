package opc

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// methodSelector returns the first 4 bytes of keccak256(signature), the
// standard Solidity function selector.
func methodSelector(signature string) []byte {
	hash := crypto.Keccak256([]byte(signature))
	return hash[:4]
}

// packAddressAddress packs two address arguments after a selector, the
// shape getPair(address,address) and getReserves()-style zero-arg calls
// both need a thin wrapper around.
func packAddressAddress(signature string, a, b common.Address) ([]byte, error) {
	addrTy, err := abi.NewType("address", "", nil)
	if err != nil {
		return nil, err
	}
	args := abi.Arguments{{Type: addrTy}, {Type: addrTy}}
	data, err := args.Pack(a, b)
	if err != nil {
		return nil, err
	}
	return append(methodSelector(signature), data...), nil
}

// packAddressAddressUint24 packs getPool(address,address,uint24).
func packAddressAddressUint24(signature string, a, b common.Address, fee uint32) ([]byte, error) {
	addrTy, _ := abi.NewType("address", "", nil)
	uintTy, err := abi.NewType("uint24", "", nil)
	if err != nil {
		return nil, err
	}
	args := abi.Arguments{{Type: addrTy}, {Type: addrTy}, {Type: uintTy}}
	data, err := args.Pack(a, b, big.NewInt(int64(fee)))
	if err != nil {
		return nil, err
	}
	return append(methodSelector(signature), data...), nil
}

func noArgCall(signature string) []byte {
	return methodSelector(signature)
}

func unpackAddress(raw []byte) (common.Address, error) {
	addrTy, err := abi.NewType("address", "", nil)
	if err != nil {
		return common.Address{}, err
	}
	args := abi.Arguments{{Type: addrTy}}
	values, err := args.Unpack(raw)
	if err != nil || len(values) != 1 {
		return common.Address{}, err
	}
	return values[0].(common.Address), nil
}

func unpackReserves(raw []byte) (reserve0, reserve1 *big.Int, err error) {
	u112, err := abi.NewType("uint112", "", nil)
	if err != nil {
		return nil, nil, err
	}
	u32, err := abi.NewType("uint32", "", nil)
	if err != nil {
		return nil, nil, err
	}
	args := abi.Arguments{{Type: u112}, {Type: u112}, {Type: u32}}
	values, err := args.Unpack(raw)
	if err != nil || len(values) != 3 {
		return nil, nil, err
	}
	return values[0].(*big.Int), values[1].(*big.Int), nil
}

func unpackSlot0(raw []byte) (sqrtPriceX96 *big.Int, tick int32, err error) {
	u160, err := abi.NewType("uint160", "", nil)
	if err != nil {
		return nil, 0, err
	}
	i24, err := abi.NewType("int24", "", nil)
	if err != nil {
		return nil, 0, err
	}
	u16, _ := abi.NewType("uint16", "", nil)
	u8, _ := abi.NewType("uint8", "", nil)
	boolTy, _ := abi.NewType("bool", "", nil)
	args := abi.Arguments{{Type: u160}, {Type: i24}, {Type: u16}, {Type: u16}, {Type: u16}, {Type: u8}, {Type: boolTy}}
	values, err := args.Unpack(raw)
	if err != nil || len(values) < 2 {
		return nil, 0, err
	}
	return values[0].(*big.Int), int32(values[1].(*big.Int).Int64()), nil
}

func unpackUint(raw []byte) (*big.Int, error) {
	u256, err := abi.NewType("uint256", "", nil)
	if err != nil {
		return nil, err
	}
	args := abi.Arguments{{Type: u256}}
	values, err := args.Unpack(raw)
	if err != nil || len(values) != 1 {
		return nil, err
	}
	return values[0].(*big.Int), nil
}
