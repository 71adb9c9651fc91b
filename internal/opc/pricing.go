package opc

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// two192 = 2^192, the Q96*Q96 scale sqrtPriceX96^2 lives in.
var two192 = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 192), 0)

// PriceV2 computes the USDT-quoted spot price from V2 reserves in wide
// fixed point (§9 design note: avoid float64 for reserve-ratio math until
// the final reporting conversion).
//
//	price = (reserveUSDT / 10^usdtDecimals) / (reserveToken / 10^tokenDecimals)
func PriceV2(reserveUSDT, reserveToken *big.Int, usdtDecimals, tokenDecimals int, usdtIsToken0 bool) float64 {
	usdt := decimal.NewFromBigInt(reserveUSDT, 0).Shift(int32(-usdtDecimals))
	token := decimal.NewFromBigInt(reserveToken, 0).Shift(int32(-tokenDecimals))
	if token.IsZero() {
		return 0
	}
	price := usdt.Div(token)
	f, _ := price.Float64()
	return f
}

// PriceV3 computes the spot price from a V3 sqrtPriceX96, inverting when
// USDT is token0 (§4.2: price_raw = sqrtPriceX96^2 / 2^192).
func PriceV3(sqrtPriceX96 *big.Int, token0Decimals, token1Decimals int, usdtIsToken0 bool) float64 {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() == 0 {
		return 0
	}
	sq := decimal.NewFromBigInt(sqrtPriceX96, 0)
	sq = sq.Mul(sq)
	raw := sq.Div(two192)

	// raw = token1/token0 in raw integer units; rescale for decimals then
	// invert if needed so the result is always USDT per unit of the
	// non-USDT token.
	decimalAdj := decimal.New(1, int32(token0Decimals-token1Decimals))
	price := raw.Mul(decimalAdj)

	if usdtIsToken0 {
		if price.IsZero() {
			return 0
		}
		price = decimal.New(1, 0).Div(price)
	}

	f, _ := price.Float64()
	return f
}

// USDTLiquidityV2 estimates pool USDT-equivalent liquidity as 2x the USDT
// side of the pair (both sides contribute equally in a constant-product
// pool at the current price).
func USDTLiquidityV2(reserveUSDT *big.Int, usdtDecimals int) float64 {
	amt := decimal.NewFromBigInt(reserveUSDT, 0).Shift(int32(-usdtDecimals))
	f, _ := amt.Mul(decimal.NewFromInt(2)).Float64()
	return f
}

// USDTLiquidityV3 estimates pool USDT-equivalent liquidity from the active
// liquidity figure and current price, a coarse approximation adequate for
// pool ranking (exact concentrated-liquidity TVL requires tick-range
// integration, out of scope for pool selection).
func USDTLiquidityV3(activeLiquidity *big.Int, price float64, token0Decimals int) float64 {
	if activeLiquidity == nil {
		return 0
	}
	l := decimal.NewFromBigInt(activeLiquidity, 0).Shift(int32(-token0Decimals))
	f, _ := l.Float64()
	return f * price * 2
}

// LiquidityScore linearly interpolates USDT liquidity between the minimum
// and preferred thresholds to [0,1] (§4.2).
func LiquidityScore(usdtLiquidity, min, preferred float64) float64 {
	if preferred <= min {
		return 0
	}
	score := (usdtLiquidity - min) / (preferred - min)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
