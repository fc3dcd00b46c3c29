package schema

import (
	"time"
)

// Setting represents the settings table - flat key/value rows for global
// flags such as whether the allow list is required.
type Setting struct {
	// Key is the setting name
	Key string `gorm:"column:key;primaryKey;type:text"`
	// Value is the setting value
	Value string `gorm:"column:value;not null;type:text"`
	// UpdatedAt is the timestamp when this setting was last changed
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Setting model
func (Setting) TableName() string {
	return "settings"
}

// SettingAllowListRequired is the settings key gating claims behind the allow list
const SettingAllowListRequired = "allow_list_required"
