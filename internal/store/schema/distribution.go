package schema

import (
	"time"
)

// Distribution represents the distributions table - one independent accounting
// domain binding a historical weight snapshot to a single settlement asset.
type Distribution struct {
	// ID is the distribution identifier, monotonically assigned and never reused
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// ReferencePoint is the immutable block height fixing which weight snapshot applies
	ReferencePoint uint64 `gorm:"column:reference_point;not null"`
	// SettlementAsset is the asset paid out by this distribution (zero address = native asset)
	SettlementAsset string `gorm:"column:settlement_asset;not null;type:text"`
	// TotalWeight is the sum of all registered beneficiary weights (stored as string to support up to 78 digits)
	TotalWeight string `gorm:"column:total_weight;not null;default:0;type:numeric(78,0)"`
	// WeightClaim is the running sum of weights assigned to the claim channel
	WeightClaim string `gorm:"column:weight_claim;not null;default:0;type:numeric(78,0)"`
	// WeightAutomatic is the running sum of weights assigned to the automatic channel
	WeightAutomatic string `gorm:"column:weight_automatic;not null;default:0;type:numeric(78,0)"`
	// WeightOffLedger is the running sum of weights assigned to the off-ledger channel
	WeightOffLedger string `gorm:"column:weight_off_ledger;not null;default:0;type:numeric(78,0)"`
	// CommittedFunding is the cumulative value ever deposited, monotonically non-decreasing
	CommittedFunding string `gorm:"column:committed_funding;not null;default:0;type:numeric(78,0)"`
	// DeclaredTotalAllocation is the intended total payout across all methods, settable at most once (nil = implicit mode)
	DeclaredTotalAllocation *string `gorm:"column:declared_total_allocation;type:numeric(78,0)"`
	// DisbursedAmount is the cumulative value transferred out via the claim and automatic channels
	DisbursedAmount string `gorm:"column:disbursed_amount;not null;default:0;type:numeric(78,0)"`
	// BeneficiaryCount is the number of beneficiaries with non-zero weight
	BeneficiaryCount uint64 `gorm:"column:beneficiary_count;not null;default:0"`
	// CreatedAt is the timestamp when this distribution was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when this distribution was last mutated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`

	// Associations
	Beneficiaries []Beneficiary `gorm:"foreignKey:DistributionID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Distribution model
func (Distribution) TableName() string {
	return "distributions"
}
