package store

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/ff-distributor/internal/domain"
	"github.com/feral-file/ff-distributor/internal/store/schema"
)

// TransferFunc is the external value-transfer primitive invoked inside a
// settlement transaction, after the settled flag and the disbursed amount have
// been staged. Returning an error rolls the whole settlement back, so the
// ledger mutation and the transfer succeed or fail together.
type TransferFunc func(ctx context.Context, asset common.Address, to common.Address, amount *big.Int) error

// SettlementResult describes one beneficiary's completed settlement
type SettlementResult struct {
	// Beneficiary is the settled address
	Beneficiary common.Address
	// Amount is the entitlement that was paid out (or acknowledged, for off-ledger)
	Amount *big.Int
}

// Store defines the interface for ledger persistence. Every mutating method
// is atomic: it either commits all of its record updates, aggregate deltas,
// and journal entry, or none of them.
type Store interface {
	// CreateDistribution creates a new distribution with a monotonically assigned ID
	CreateDistribution(ctx context.Context, referencePoint uint64, settlementAsset common.Address, eventID string) (*schema.Distribution, error)
	// GetDistribution retrieves a distribution by ID, returning nil when it does not exist
	GetDistribution(ctx context.Context, distributionID uint64) (*schema.Distribution, error)
	// GetBeneficiary retrieves a beneficiary record, returning nil when it does not exist
	GetBeneficiary(ctx context.Context, distributionID uint64, address common.Address) (*schema.Beneficiary, error)
	// ListBeneficiaries retrieves beneficiary records with non-zero weight, ordered by address
	ListBeneficiaries(ctx context.Context, distributionID uint64, limit, offset int) ([]*schema.Beneficiary, error)
	// ListLedgerEvents retrieves journal entries for a distribution, oldest first
	ListLedgerEvents(ctx context.Context, distributionID uint64, limit, offset int) ([]*schema.LedgerEvent, error)

	// ApplyWeightBatch applies an ordered sequence of weight assignments
	// all-or-nothing, maintaining the per-method aggregates and the
	// beneficiary count without re-scanning participants
	ApplyWeightBatch(ctx context.Context, distributionID uint64, entries []domain.WeightEntry, eventID string) error
	// Fund records a deposit, increasing committed funding
	Fund(ctx context.Context, distributionID uint64, amount *big.Int, eventID string) error
	// DeclareTotalAllocation fixes the payout basis, at most once and only
	// before any settlement has occurred
	DeclareTotalAllocation(ctx context.Context, distributionID uint64, amount *big.Int, eventID string) error

	// SettleClaim settles a single claim-method beneficiary, invoking transfer
	// inside the transaction after the settlement state is staged
	SettleClaim(ctx context.Context, distributionID uint64, claimer common.Address, eventID string, transfer TransferFunc) (*SettlementResult, error)
	// SettleAutomatic settles a single automatic-method beneficiary the same way
	SettleAutomatic(ctx context.Context, distributionID uint64, beneficiary common.Address, eventID string, transfer TransferFunc) (*SettlementResult, error)
	// SettleOffLedger marks an off-ledger beneficiary settled; no value moves
	// and neither committed funding nor the disbursed amount changes
	SettleOffLedger(ctx context.Context, distributionID uint64, beneficiary common.Address, eventID string) (*SettlementResult, error)

	// AddToAllowList adds addresses to the global allow list (idempotent)
	AddToAllowList(ctx context.Context, addresses []common.Address) error
	// RemoveFromAllowList removes addresses from the global allow list (idempotent)
	RemoveFromAllowList(ctx context.Context, addresses []common.Address) error
	// IsAllowListed checks global allow-list membership
	IsAllowListed(ctx context.Context, address common.Address) (bool, error)
	// SetAllowListRequired flips the global allow-list gate for claims
	SetAllowListRequired(ctx context.Context, required bool) error
	// AllowListRequired reads the global allow-list gate
	AllowListRequired(ctx context.Context) (bool, error)
}
