package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/ff-distributor/internal/domain"
	"github.com/feral-file/ff-distributor/internal/store/schema"
)

// GetDistribution returns a distribution or ErrDistributionNotFound
func (s *Service) GetDistribution(ctx context.Context, distributionID uint64) (*schema.Distribution, error) {
	dist, err := s.store.GetDistribution(ctx, distributionID)
	if err != nil {
		return nil, err
	}
	if dist == nil {
		return nil, domain.ErrDistributionNotFound
	}
	return dist, nil
}

// GetBeneficiary returns a beneficiary entry or ErrBeneficiaryNotFound
func (s *Service) GetBeneficiary(ctx context.Context, distributionID uint64, address common.Address) (*schema.Beneficiary, error) {
	ben, err := s.store.GetBeneficiary(ctx, distributionID, address)
	if err != nil {
		return nil, err
	}
	if ben == nil {
		return nil, domain.ErrBeneficiaryNotFound
	}
	return ben, nil
}

// IsBeneficiary reports whether the address currently holds non-zero weight
func (s *Service) IsBeneficiary(ctx context.Context, distributionID uint64, address common.Address) (bool, error) {
	ben, err := s.store.GetBeneficiary(ctx, distributionID, address)
	if err != nil {
		return false, err
	}
	if ben == nil {
		return false, nil
	}

	weight, ok := new(big.Int).SetString(ben.Weight, 10)
	if !ok {
		return false, fmt.Errorf("failed to parse weight %q", ben.Weight)
	}
	return weight.Sign() > 0, nil
}

// BeneficiaryCount returns the count of entries with non-zero weight
func (s *Service) BeneficiaryCount(ctx context.Context, distributionID uint64) (uint64, error) {
	dist, err := s.GetDistribution(ctx, distributionID)
	if err != nil {
		return 0, err
	}
	return dist.BeneficiaryCount, nil
}

// ListBeneficiaries returns active beneficiary entries, paginated
func (s *Service) ListBeneficiaries(ctx context.Context, distributionID uint64, limit, offset int) ([]*schema.Beneficiary, error) {
	if _, err := s.GetDistribution(ctx, distributionID); err != nil {
		return nil, err
	}
	return s.store.ListBeneficiaries(ctx, distributionID, s.clampLimit(limit), offset)
}

// ListLedgerEvents returns the distribution's journal, oldest first, paginated
func (s *Service) ListLedgerEvents(ctx context.Context, distributionID uint64, limit, offset int) ([]*schema.LedgerEvent, error) {
	if _, err := s.GetDistribution(ctx, distributionID); err != nil {
		return nil, err
	}
	return s.store.ListLedgerEvents(ctx, distributionID, s.clampLimit(limit), offset)
}

// distributionBasis extracts the aggregates needed by the read-side payout
// queries from a distribution row
func distributionBasis(dist *schema.Distribution) (totalWeight, committed, disbursed *big.Int, declared *big.Int, err error) {
	totalWeight, ok := new(big.Int).SetString(dist.TotalWeight, 10)
	if !ok {
		return nil, nil, nil, nil, fmt.Errorf("failed to parse total weight %q", dist.TotalWeight)
	}
	committed, ok = new(big.Int).SetString(dist.CommittedFunding, 10)
	if !ok {
		return nil, nil, nil, nil, fmt.Errorf("failed to parse committed funding %q", dist.CommittedFunding)
	}
	disbursed, ok = new(big.Int).SetString(dist.DisbursedAmount, 10)
	if !ok {
		return nil, nil, nil, nil, fmt.Errorf("failed to parse disbursed amount %q", dist.DisbursedAmount)
	}
	if dist.DeclaredTotalAllocation != nil {
		declared, ok = new(big.Int).SetString(*dist.DeclaredTotalAllocation, 10)
		if !ok {
			return nil, nil, nil, nil, fmt.Errorf("failed to parse declared total allocation %q", *dist.DeclaredTotalAllocation)
		}
	}
	return totalWeight, committed, disbursed, declared, nil
}

// RequiredFunding returns how much settlement value covers all on-ledger
// (claim + automatic) obligations. When no total allocation is declared, the
// caller may supply an externally known total; with neither, the result is
// zero.
func (s *Service) RequiredFunding(ctx context.Context, distributionID uint64, externalTotal *big.Int) (*big.Int, error) {
	dist, err := s.GetDistribution(ctx, distributionID)
	if err != nil {
		return nil, err
	}

	totalWeight, _, _, declared, err := distributionBasis(dist)
	if err != nil {
		return nil, err
	}

	weightClaim, ok := new(big.Int).SetString(dist.WeightClaim, 10)
	if !ok {
		return nil, fmt.Errorf("failed to parse claim weight %q", dist.WeightClaim)
	}
	weightAutomatic, ok := new(big.Int).SetString(dist.WeightAutomatic, 10)
	if !ok {
		return nil, fmt.Errorf("failed to parse automatic weight %q", dist.WeightAutomatic)
	}

	effectiveTotal := declared
	if effectiveTotal == nil {
		effectiveTotal = externalTotal
	}

	onLedgerWeight := new(big.Int).Add(weightClaim, weightAutomatic)
	return domain.RequiredFunding(onLedgerWeight, totalWeight, effectiveTotal), nil
}

// Entitlement returns the amount currently owed to a beneficiary under the
// fixed-basis formula. Zero for unknown or zero-weight beneficiaries.
func (s *Service) Entitlement(ctx context.Context, distributionID uint64, address common.Address) (*big.Int, error) {
	dist, err := s.GetDistribution(ctx, distributionID)
	if err != nil {
		return nil, err
	}

	ben, err := s.store.GetBeneficiary(ctx, distributionID, address)
	if err != nil {
		return nil, err
	}
	if ben == nil {
		return new(big.Int), nil
	}

	weight, ok := new(big.Int).SetString(ben.Weight, 10)
	if !ok {
		return nil, fmt.Errorf("failed to parse weight %q", ben.Weight)
	}

	totalWeight, committed, _, declared, err := distributionBasis(dist)
	if err != nil {
		return nil, err
	}

	effectiveTotal := domain.EffectiveTotal(declared, committed)
	return domain.Entitlement(weight, totalWeight, effectiveTotal), nil
}

// CanClaim reports whether a claim by the address would currently succeed,
// along with the amount it would pay
func (s *Service) CanClaim(ctx context.Context, distributionID uint64, address common.Address) (bool, *big.Int, error) {
	dist, err := s.GetDistribution(ctx, distributionID)
	if err != nil {
		return false, nil, err
	}

	ben, err := s.store.GetBeneficiary(ctx, distributionID, address)
	if err != nil {
		return false, nil, err
	}
	if ben == nil {
		return false, new(big.Int), nil
	}

	weight, ok := new(big.Int).SetString(ben.Weight, 10)
	if !ok {
		return false, nil, fmt.Errorf("failed to parse weight %q", ben.Weight)
	}

	totalWeight, committed, disbursed, declared, err := distributionBasis(dist)
	if err != nil {
		return false, nil, err
	}

	effectiveTotal := domain.EffectiveTotal(declared, committed)
	amount := domain.Entitlement(weight, totalWeight, effectiveTotal)

	if weight.Sign() == 0 ||
		domain.PayoutMethod(ben.Method) != domain.MethodClaim ||
		ben.Settled ||
		amount.Sign() == 0 {
		return false, amount, nil
	}

	undisbursed := new(big.Int).Sub(committed, disbursed)
	if undisbursed.Cmp(amount) < 0 {
		return false, amount, nil
	}

	required, err := s.store.AllowListRequired(ctx)
	if err != nil {
		return false, nil, err
	}
	if required {
		listed, err := s.store.IsAllowListed(ctx, address)
		if err != nil {
			return false, nil, err
		}
		if !listed {
			return false, amount, nil
		}
	}

	return true, amount, nil
}

// clampLimit applies the default page size and the configured upper bound
func (s *Service) clampLimit(limit int) int {
	if limit <= 0 || limit > s.batchLimit {
		return s.batchLimit
	}
	return limit
}
