package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// SystemSetting is one DB-backed runtime switch. The engine reads switches
// on every use rather than caching them, so flipping a row takes effect on
// the next sweep tick.
type SystemSetting struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Key string `gorm:"type:varchar(120);not null;uniqueIndex"`

	// Value is JSON: a bare boolean for feature switches, an object for
	// richer settings.
	Value datatypes.JSON `gorm:"type:jsonb;not null"`

	Description string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"type:timestamptz;autoUpdateTime;index"`
}

func (SystemSetting) TableName() string {
	return "system_settings"
}

// BoolValue decodes the value as a switch. ok is false when the row is nil,
// empty, or not a bare boolean.
func (s *SystemSetting) BoolValue() (enabled, ok bool) {
	if s == nil || len(s.Value) == 0 {
		return false, false
	}
	if err := json.Unmarshal(s.Value, &enabled); err != nil {
		return false, false
	}
	return enabled, true
}
