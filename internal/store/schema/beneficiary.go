package schema

import (
	"time"
)

// Beneficiary represents the beneficiaries table - the per-(distribution,
// address) snapshot weight, payout method, and settlement flag.
type Beneficiary struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// DistributionID references the owning distribution
	DistributionID uint64 `gorm:"column:distribution_id;not null;uniqueIndex:idx_beneficiaries_distribution_address,priority:1"`
	// Address is the beneficiary's blockchain address
	Address string `gorm:"column:address;not null;type:text;uniqueIndex:idx_beneficiaries_distribution_address,priority:2"`
	// Weight is the snapshot balance; zero means not currently a beneficiary
	Weight string `gorm:"column:weight;not null;default:0;type:numeric(78,0)"`
	// Method is the payout channel fixed at weight-assignment time (unset, claim, automatic, off_ledger)
	Method string `gorm:"column:method;not null;default:unset;type:text"`
	// Settled is monotonic false to true, flipped by exactly one successful settlement
	Settled bool `gorm:"column:settled;not null;default:false"`
	// CachedEntitlement is the last computed payout amount, advisory only
	CachedEntitlement string `gorm:"column:cached_entitlement;not null;default:0;type:numeric(78,0)"`
	// CreatedAt is the timestamp when this record was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when this record was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`

	// Associations
	Distribution Distribution `gorm:"foreignKey:DistributionID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Beneficiary model
func (Beneficiary) TableName() string {
	return "beneficiaries"
}
