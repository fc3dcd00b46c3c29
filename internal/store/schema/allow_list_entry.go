package schema

import (
	"time"
)

// AllowListEntry represents the allow_list_entries table - the global set of
// addresses permitted to claim when the allow list is required.
type AllowListEntry struct {
	// Address is the allow-listed blockchain address
	Address string `gorm:"column:address;primaryKey;type:text"`
	// CreatedAt is the timestamp when this entry was added
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the AllowListEntry model
func (AllowListEntry) TableName() string {
	return "allow_list_entries"
}
