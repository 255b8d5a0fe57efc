package indexer

import "math/big"

const (
	// PlatformFeeBps is the marketplace commission, in basis points.
	PlatformFeeBps = 250

	// BpsDenominator is the basis-point scale: 10000 = 100%.
	BpsDenominator = 10000
)

// FeeAmount computes floor(priceWei * bps / 10000) using integer arithmetic
// only. Wei values never pass through floating point.
func FeeAmount(priceWei *big.Int, bps uint32) *big.Int {
	if priceWei == nil || bps == 0 {
		return new(big.Int)
	}
	fee := new(big.Int).Mul(priceWei, big.NewInt(int64(bps)))
	return fee.Div(fee, big.NewInt(BpsDenominator))
}
