package domain

import "math/big"

// EffectiveTotal returns the denominator basis for the proportional-payout
// formula: the operator-declared total allocation when one exists, otherwise
// the cumulative committed funding (legacy implicit mode).
//
// The basis must be invariant across a distribution's whole settlement
// sequence. It is never the amount currently sitting in custody: recomputing
// against a pool that shrinks after every payout would make each entitlement a
// function of claim order, silently underpaying late claimants.
func EffectiveTotal(declaredTotalAllocation, committedFunding *big.Int) *big.Int {
	if declaredTotalAllocation != nil && declaredTotalAllocation.Sign() > 0 {
		return declaredTotalAllocation
	}
	if committedFunding == nil {
		return new(big.Int)
	}
	return committedFunding
}

// Entitlement returns floor(weight * effectiveTotal / totalWeight), or zero
// when totalWeight or weight is zero. Truncation dust is accepted, bounded by
// totalWeight units across the whole distribution.
func Entitlement(weight, totalWeight, effectiveTotal *big.Int) *big.Int {
	if weight == nil || totalWeight == nil || effectiveTotal == nil {
		return new(big.Int)
	}
	if weight.Sign() <= 0 || totalWeight.Sign() <= 0 || effectiveTotal.Sign() <= 0 {
		return new(big.Int)
	}
	num := new(big.Int).Mul(weight, effectiveTotal)
	return num.Quo(num, totalWeight)
}

// RequiredFunding returns the amount of settlement value an operator must
// deposit to cover all on-ledger (claim + automatic) obligations:
// floor(onLedgerWeight * effectiveTotal / totalWeight). The off-ledger
// category is deliberately excluded because it never draws on custody.
func RequiredFunding(onLedgerWeight, totalWeight, effectiveTotal *big.Int) *big.Int {
	return Entitlement(onLedgerWeight, totalWeight, effectiveTotal)
}
