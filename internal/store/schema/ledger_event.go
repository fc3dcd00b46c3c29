package schema

import (
	"time"

	"gorm.io/datatypes"
)

// LedgerEvent represents the ledger_events table - the append-only journal
// written in the same transaction as every ledger mutation. It is the audit
// trail for funding, weight changes, and the three settlement channels.
type LedgerEvent struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// EventID is the time-ordered ULID identifying this event externally
	EventID string `gorm:"column:event_id;not null;uniqueIndex;type:text"`
	// DistributionID references the distribution this event belongs to
	DistributionID uint64 `gorm:"column:distribution_id;not null;index:idx_ledger_events_distribution_id"`
	// EventType labels the mutation (funded, weights_set, claim_settled, ...)
	EventType string `gorm:"column:event_type;not null;type:text"`
	// Beneficiary is the affected address, when the event concerns a single beneficiary
	Beneficiary *string `gorm:"column:beneficiary;type:text"`
	// Amount is the value moved or acknowledged, when applicable
	Amount *string `gorm:"column:amount;type:numeric(78,0)"`
	// Meta carries event-specific details as JSON
	Meta datatypes.JSON `gorm:"column:meta;type:jsonb"`
	// CreatedAt is the timestamp when this event was recorded
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the LedgerEvent model
func (LedgerEvent) TableName() string {
	return "ledger_events"
}
