package app

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/sawpanic/signalcore/internal/config"
)

// StaticTokenResolver resolves a trading symbol to its ERC20 token address
// and decimals from the configured maps, satisfying opc.SymbolResolver.
type StaticTokenResolver struct {
	addresses map[string]common.Address
	decimals  map[string]int
}

func NewStaticTokenResolver(cfg config.OPC) *StaticTokenResolver {
	addrs := make(map[string]common.Address, len(cfg.TokenAddresses))
	for sym, addr := range cfg.TokenAddresses {
		addrs[sym] = common.HexToAddress(addr)
	}
	return &StaticTokenResolver{addresses: addrs, decimals: cfg.TokenDecimals}
}

// TokenAddress implements opc.SymbolResolver. The symbol's quote suffix
// (e.g. "WETHUSDT") is not stripped here; callers pass the base asset
// symbol directly (e.g. "WETH"), matching cfg.TokenAddresses' keys.
func (r *StaticTokenResolver) TokenAddress(symbol string) (common.Address, int, bool) {
	addr, ok := r.addresses[symbol]
	if !ok {
		return common.Address{}, 0, false
	}
	decimals, ok := r.decimals[symbol]
	if !ok {
		decimals = 18
	}
	return addr, decimals, true
}
