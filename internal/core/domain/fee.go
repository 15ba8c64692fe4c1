package domain

import "math/big"

var bpsDenominator = big.NewInt(int64(MaxFeeBps))

// FeeSplit is the division of a settled amount between merchant and fee recipient.
type FeeSplit struct {
	Fee int64
	Net int64
}

// SplitFee computes fee = floor(amount*bps/10000) and net = amount - fee.
// The product is taken on big.Int; for amount >= 0 and bps <= MaxFeeBps the
// fee never exceeds amount, so fee+net == amount always holds.
func SplitFee(amount int64, bps uint32) FeeSplit {
	if amount <= 0 || bps == 0 {
		return FeeSplit{Net: amount}
	}
	if bps > MaxFeeBps {
		bps = MaxFeeBps
	}
	fee := new(big.Int).Mul(big.NewInt(amount), big.NewInt(int64(bps)))
	fee.Quo(fee, bpsDenominator)
	f := fee.Int64()
	return FeeSplit{Fee: f, Net: amount - f}
}
